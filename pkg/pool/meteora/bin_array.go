package meteora

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg/byteutil"
	"lukechampine.com/uint128"
)

// binArrayHeaderLen and binSpan describe the raw account layout ParseBinArray
// consumes: an 8-byte discriminator, i64 array index, version byte, 7 bytes
// padding, the owning pair's key, then BinsPerArray packed bin records.
const (
	binArrayHeaderLen = 8 + 8 + 1 + 7 + 32
	binSpan           = 8 + 8 + 16 + 16 + 2*16 + 16 + 16 + 16 + 16
)

// BinArray is one cached bin-array account: BinsPerArray consecutive bins
// covering index*BinsPerArray .. index*BinsPerArray+BinsPerArray-1.
type BinArray struct {
	index   int64
	version uint8
	LbPair  solana.PublicKey
	bins    [BinsPerArray]Bin
}

// LowerUpperBinID returns the inclusive bin id range this array owns.
func (binArray *BinArray) LowerUpperBinID() (int32, int32, error) {
	return GetBinArrayLowerUpperBinID(int32(binArray.index))
}

// IsBinIDWithinRange reports whether activeID falls inside this array.
func (binArray *BinArray) IsBinIDWithinRange(activeID int32) (bool, error) {
	lower, upper, err := binArray.LowerUpperBinID()
	if err != nil {
		return false, err
	}
	return activeID >= lower && activeID <= upper, nil
}

// GetBinMut returns the bin owning activeID, addressable so a swap walk can
// deplete it in place as it fills.
func (binArray *BinArray) GetBinMut(activeID int32) (*Bin, error) {
	index, err := binArray.GetBinIndexInArray(activeID)
	if err != nil {
		return nil, err
	}
	return &binArray.bins[index], nil
}

// GetBinIndexInArray maps activeID to its offset within this array.
func (binArray *BinArray) GetBinIndexInArray(activeID int32) (int, error) {
	lower, upper, err := binArray.LowerUpperBinID()
	if err != nil {
		return 0, err
	}
	if activeID < lower || activeID > upper {
		return 0, fmt.Errorf("meteora: bin id %d outside array [%d, %d]", activeID, lower, upper)
	}
	return int(activeID - lower), nil
}

// ParseBinArray decodes a bin-array account's raw cached bytes. Every bin
// field is decoded and kept; a quote reads only the amounts and price.
func ParseBinArray(data []byte) (BinArray, error) {
	if len(data) < binArrayHeaderLen+BinsPerArray*binSpan {
		return BinArray{}, errors.New("meteora: bin array data too short")
	}
	data = data[8:]

	arr := BinArray{
		index:   byteutil.I64(data),
		version: data[8],
		LbPair:  byteutil.Pubkey(data[16:]),
	}

	data = data[8+1+7+32:]
	for i := range arr.bins {
		b := data[i*binSpan:]
		arr.bins[i] = Bin{
			amountX:         byteutil.U64(b),
			amountY:         byteutil.U64(b[8:]),
			price:           byteutil.U128(b[16:]),
			liquiditySupply: byteutil.U128(b[32:]),
			rewardPerTokenStored: [2]uint128.Uint128{
				byteutil.U128(b[48:]),
				byteutil.U128(b[64:]),
			},
			feeAmountXPerTokenStored: byteutil.U128(b[80:]),
			feeAmountYPerTokenStored: byteutil.U128(b[96:]),
			amountXIn:                byteutil.U128(b[112:]),
			amountYIn:                byteutil.U128(b[128:]),
		}
	}
	return arr, nil
}
