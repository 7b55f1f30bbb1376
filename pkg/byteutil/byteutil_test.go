package byteutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestReadersDecodeLittleEndianAtHead(t *testing.T) {
	require.Equal(t, uint16(0x0201), U16([]byte{0x01, 0x02}))
	require.Equal(t, uint32(0x04030201), U32([]byte{0x01, 0x02, 0x03, 0x04}))
	require.Equal(t, int32(-1), I32([]byte{0xff, 0xff, 0xff, 0xff}))
	require.Equal(t, uint64(0x0807060504030201), U64([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.Equal(t, int64(-1), I64([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}))
}

func TestReadersIgnoreTrailingBytes(t *testing.T) {
	// Callers slice to an offset and read from the head; bytes past the
	// field's width must not leak into the value.
	require.Equal(t, uint16(0x0201), U16([]byte{0x01, 0x02, 0xff, 0xff}))
	require.Equal(t, uint64(1), U64([]byte{1, 0, 0, 0, 0, 0, 0, 0, 0xee}))
}

func TestU128(t *testing.T) {
	src := make([]byte, 16)
	src[0] = 1    // low half = 1
	src[8] = 2    // high half = 2
	src[15] = 0x80
	got := U128(src)
	require.Equal(t, uint128.New(1, 2|0x80<<56), got)
}

func TestU128Bytes(t *testing.T) {
	src := make([]byte, 20)
	for i := range src {
		src[i] = byte(i + 1)
	}
	got := U128Bytes(src)
	require.Equal(t, src[:16], got[:])
}

func TestPubkey(t *testing.T) {
	src := make([]byte, 40)
	for i := range src {
		src[i] = byte(i)
	}
	pk := Pubkey(src)
	require.Equal(t, src[:32], pk[:])
}

func TestVaultBalance(t *testing.T) {
	data := make([]byte, 72)
	data[SPLTokenAccountAmountOffset] = 0x39
	data[SPLTokenAccountAmountOffset+1] = 0x30
	amount, ok := VaultBalance(data)
	require.True(t, ok)
	require.Equal(t, uint64(0x3039), amount)
}

func TestVaultBalance_ShortSliceNotOK(t *testing.T) {
	_, ok := VaultBalance(make([]byte, SPLTokenAccountAmountOffset))
	require.False(t, ok)
	_, ok = VaultBalance(nil)
	require.False(t, ok)
}
