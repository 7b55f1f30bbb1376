package meteora

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg/fixedpoint"
)

// MeteoraProgramID is the Meteora DLMM program.
var MeteoraProgramID = solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")

// BasisPointMax is shared with the fixed-point package's own DLMM price
// kernel; kept as a package-local name so the fee math below reads the way
// the on-chain program's own source does.
const BasisPointMax = fixedpoint.BasisPointMax

const (
	// FeePrecision is the denominator the base and variable fee rates are
	// expressed against before being applied to a swap amount.
	FeePrecision = 1_000_000_000
	// MaxFeeRate caps the combined base+variable fee rate, denominated in
	// FeePrecision units (10%).
	MaxFeeRate = 100_000_000
)

// MinBinID and MaxBinID bound every bin index the on-chain program accepts.
const (
	MinBinID = -443_636
	MaxBinID = 443_636
)

// Pair status and type tags, matching the LbPair account's single-byte
// enum fields.
const (
	PairStatusEnabled  = 0
	PairStatusDisabled = 1
)

const (
	PairTypePermissionless = 0
	PairTypePermission     = 1
)

const (
	ActivationTypeSlot      = 0
	ActivationTypeTimestamp = 1
)

// BinsPerArray is the fixed number of bins packed into a single bin array
// account.
const BinsPerArray = 70

// MaxBinArraysPerQuote bounds how many bin arrays a single quote will walk
// across before giving up, mirroring the CLMM tick-array walk's
// prefetch-and-give-up heuristic rather than chasing liquidity indefinitely.
const MaxBinArraysPerQuote = 3

func floorDivInt32(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// BinIDToBinArrayIndex maps a bin id to the index of the array that owns it.
func BinIDToBinArrayIndex(binID int32) int32 {
	return floorDivInt32(binID, BinsPerArray)
}

// GetBinArrayLowerUpperBinID returns the inclusive bin id range an array
// index owns.
func GetBinArrayLowerUpperBinID(arrayIndex int32) (int32, int32, error) {
	lower := arrayIndex * BinsPerArray
	upper := lower + BinsPerArray - 1
	return lower, upper, nil
}

// internalBitmapMin and internalBitmapMax bound the array-index range a
// pool's own 16x64-bit binArrayBitmap field can represent: 1024 bits, split
// evenly either side of index 0.
const (
	internalBitmapMin = -512
	internalBitmapMax = 511
)

// BitmapRange reports the array-index range covered by a pool's own
// bitmap field, before an extension account is needed.
func BitmapRange() (int32, int32) {
	return internalBitmapMin, internalBitmapMax
}

// IsOverflowDefaultBinArrayBitmap reports whether arrayIndex falls outside
// the pool's own bitmap and therefore needs the bitmap extension account.
func IsOverflowDefaultBinArrayBitmap(arrayIndex int32) bool {
	min, max := BitmapRange()
	return arrayIndex < min || arrayIndex > max
}

// GetBinArrayOffset converts an in-range array index into a 0..1023 bit
// position within the pool's own bitmap.
func GetBinArrayOffset(arrayIndex int32) int {
	return int(arrayIndex - internalBitmapMin)
}

// DeriveBinArrayPDA derives the bin array account address for a given pool
// and array index: seeds ["bin_array", poolId, index as little-endian i64].
func DeriveBinArrayPDA(poolId solana.PublicKey, index int64) (solana.PublicKey, error) {
	var idxBytes [8]byte
	binary.LittleEndian.PutUint64(idxBytes[:], uint64(index))
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bin_array"), poolId[:], idxBytes[:]},
		MeteoraProgramID,
	)
	return pda, err
}

// DeriveBinArrayBitmapExtension derives the bitmap extension account address
// for a pool: seeds ["bitmap", poolId].
func DeriveBinArrayBitmapExtension(poolId solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bitmap"), poolId[:]},
		MeteoraProgramID,
	)
	return pda, err
}

// BinArrayBitmapExtensionGroups is the number of 512-bit groups on each side
// of an extension account, matching the on-chain [[u64;8];12] layout.
const BinArrayBitmapExtensionGroups = 12

// extensionGroupBits is the bit width of a single [8]uint64 group.
const extensionGroupBits = 512

// BinArrayBitmapExtension tracks which bin arrays hold liquidity once a
// pool's array indices run past the range its own bitmap can represent.
type BinArrayBitmapExtension struct {
	LbPair                 solana.PublicKey
	PositiveBinArrayBitmap [BinArrayBitmapExtensionGroups][8]uint64
	NegativeBinArrayBitmap [BinArrayBitmapExtensionGroups][8]uint64
}

// ParseBinArrayBitmapExtension decodes a bitmap extension account's bytes.
func ParseBinArrayBitmapExtension(data []byte) (*BinArrayBitmapExtension, error) {
	const bitmapBytes = BinArrayBitmapExtensionGroups * 8 * 8
	const headerLen = 8 + 32
	if len(data) < headerLen+2*bitmapBytes {
		return nil, fmt.Errorf("meteora: bitmap extension data too short: got %d bytes", len(data))
	}
	offset := 8
	ext := &BinArrayBitmapExtension{}
	copy(ext.LbPair[:], data[offset:offset+32])
	offset += 32
	for g := 0; g < BinArrayBitmapExtensionGroups; g++ {
		for w := 0; w < 8; w++ {
			ext.PositiveBinArrayBitmap[g][w] = binary.LittleEndian.Uint64(data[offset : offset+8])
			offset += 8
		}
	}
	for g := 0; g < BinArrayBitmapExtensionGroups; g++ {
		for w := 0; w < 8; w++ {
			ext.NegativeBinArrayBitmap[g][w] = binary.LittleEndian.Uint64(data[offset : offset+8])
			offset += 8
		}
	}
	return ext, nil
}

// extensionRangeMin and extensionRangeMax bound the array indices the
// extension's two bitmap halves can represent, continuing outward from the
// internal bitmap's own range.
const (
	extensionRangeMin = internalBitmapMin - BinArrayBitmapExtensionGroups*extensionGroupBits
	extensionRangeMax = internalBitmapMax + BinArrayBitmapExtensionGroups*extensionGroupBits
)

func (ext *BinArrayBitmapExtension) hasLiquidity(arrayIndex int32) bool {
	if arrayIndex > internalBitmapMax {
		offset := arrayIndex - internalBitmapMax - 1
		if offset >= BinArrayBitmapExtensionGroups*extensionGroupBits {
			return false
		}
		group := offset / extensionGroupBits
		bitInGroup := offset % extensionGroupBits
		return ext.PositiveBinArrayBitmap[group][bitInGroup/64]&(1<<uint(bitInGroup%64)) != 0
	}
	if arrayIndex < internalBitmapMin {
		offset := internalBitmapMin - 1 - arrayIndex
		if offset >= BinArrayBitmapExtensionGroups*extensionGroupBits {
			return false
		}
		group := offset / extensionGroupBits
		bitInGroup := offset % extensionGroupBits
		return ext.NegativeBinArrayBitmap[group][bitInGroup/64]&(1<<uint(bitInGroup%64)) != 0
	}
	return false
}

// NextBinArrayIndexWithLiquidity scans the extension's bitmap starting at
// startArrayIndex in the swap's direction, returning the first array index
// with liquidity. hasLiquidity=false with the range boundary index means the
// caller has exhausted the extension without finding one.
func (ext *BinArrayBitmapExtension) NextBinArrayIndexWithLiquidity(swapForY bool, startArrayIndex int32) (int32, bool, error) {
	if swapForY {
		for idx := startArrayIndex; idx >= extensionRangeMin; idx-- {
			if ext.hasLiquidity(idx) {
				return idx, true, nil
			}
		}
		return extensionRangeMin - 1, false, nil
	}
	for idx := startArrayIndex; idx <= extensionRangeMax; idx++ {
		if ext.hasLiquidity(idx) {
			return idx, true, nil
		}
	}
	return extensionRangeMax + 1, false, nil
}
