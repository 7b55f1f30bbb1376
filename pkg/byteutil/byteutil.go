// Package byteutil reads fixed-width little-endian integers and public keys
// directly from slices of raw account data.
//
// The wire layout of every account this module reads is fixed by its owning
// on-chain program: packed, little-endian, no alignment padding. Copying into
// aligned Go structs field-by-field via reflection is measurable overhead on
// the quote hot path, so callers slice the raw bytes themselves and use these
// readers at the exact offset the layout specifies. There is no bounds
// checking beyond what slicing already gives you; passing a short slice
// panics like any other out-of-range index.
package byteutil

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// U16 reads a little-endian uint16 from the head of b.
func U16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b[:2])
}

// I32 reads a little-endian int32 from the head of b.
func I32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b[:4]))
}

// U32 reads a little-endian uint32 from the head of b.
func U32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b[:4])
}

// U64 reads a little-endian uint64 from the head of b.
func U64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b[:8])
}

// I64 reads a little-endian int64 from the head of b.
func I64(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b[:8]))
}

// U128 reads a little-endian uint128 from the head of b.
func U128(b []byte) uint128.Uint128 {
	return uint128.New(
		binary.LittleEndian.Uint64(b[:8]),
		binary.LittleEndian.Uint64(b[8:16]),
	)
}

// U128Bytes copies the 16-byte little-endian unsigned integer at the head of
// b, for callers that construct their own wide-integer type from the halves.
func U128Bytes(b []byte) [16]byte {
	var out [16]byte
	copy(out[:], b[:16])
	return out
}

// Pubkey reads a 32-byte Solana public key from the head of b.
func Pubkey(b []byte) solana.PublicKey {
	var pk solana.PublicKey
	copy(pk[:], b[:32])
	return pk
}

// SPLTokenAccountAmountOffset is the byte offset of the "amount" field in an
// SPL token account: 32 bytes mint, 32 bytes owner, then the u64 amount.
const SPLTokenAccountAmountOffset = 64

// VaultBalance reads a vault's token amount out of a cached SPL token
// account blob. ok=false if the blob is too short to be a token account.
func VaultBalance(data []byte) (uint64, bool) {
	if len(data) < SPLTokenAccountAmountOffset+8 {
		return 0, false
	}
	return U64(data[SPLTokenAccountAmountOffset:]), true
}
