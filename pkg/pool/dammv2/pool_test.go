package dammv2

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/stretchr/testify/require"
)

func splTokenAccount(amount uint64) []byte {
	data := make([]byte, 72)
	binary.LittleEndian.PutUint64(data[64:], amount)
	return data
}

func testKey(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

func newTestPool(vaultA, vaultB solana.PublicKey, tradeFeeNumerator uint64) *Pool {
	return &Pool{
		TokenAVault:       vaultA,
		TokenBVault:       vaultB,
		TradeFeeNumerator: tradeFeeNumerator,
	}
}

// TestQuote_ShapeC locks in the same hand-computed constant-product-with-a-
// single-millionths-fee quote as Raydium CPMM's Shape C, since this quoter
// uses the identical formula: reserves 2e12/5e10, fee 2500/1e6, 5e6 in.
func TestQuote_ShapeC(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)
	pool := newTestPool(vaultA, vaultB, 2500)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(2_000_000_000_000))
	c.PutDynamic(vaultB, splTokenAccount(50_000_000_000))

	out, ok := pool.Quote(c, 5_000_000, true)
	require.True(t, ok)
	require.Equal(t, uint64(124687), out)
}

// TestQuote_Monotonic: quote(a) <= quote(b) for a <= b.
func TestQuote_Monotonic(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)
	pool := newTestPool(vaultA, vaultB, 2500)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(2_000_000_000_000))
	c.PutDynamic(vaultB, splTokenAccount(50_000_000_000))

	small, ok := pool.Quote(c, 5_000_000, true)
	require.True(t, ok)
	large, ok := pool.Quote(c, 10_000_000, true)
	require.True(t, ok)
	require.True(t, large > small)
}

// TestQuote_FeeFloor: a positive trade fee strictly reduces the quote versus
// a zero-fee pool for the same input.
func TestQuote_FeeFloor(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)

	fee := newTestPool(vaultA, vaultB, 2500)
	noFee := newTestPool(vaultA, vaultB, 0)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(2_000_000_000_000))
	c.PutDynamic(vaultB, splTokenAccount(50_000_000_000))

	feeOut, ok := fee.Quote(c, 5_000_000, true)
	require.True(t, ok)
	noFeeOut, ok := noFee.Quote(c, 5_000_000, true)
	require.True(t, ok)
	require.True(t, feeOut < noFeeOut)
}

// TestQuote_ReserveCap: output never meets or exceeds the destination
// reserve.
func TestQuote_ReserveCap(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)
	pool := newTestPool(vaultA, vaultB, 2500)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(1_000))
	c.PutDynamic(vaultB, splTokenAccount(1_000))

	out, ok := pool.Quote(c, 1_000_000_000_000, true)
	require.True(t, ok)
	require.True(t, out < 1_000)
}

// TestQuote_DirectionSymmetry: both swap directions produce a valid,
// positive quote against the same cache.
func TestQuote_DirectionSymmetry(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)
	pool := newTestPool(vaultA, vaultB, 2500)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(2_000_000_000_000))
	c.PutDynamic(vaultB, splTokenAccount(50_000_000_000))

	aToB, ok := pool.Quote(c, 5_000_000, true)
	require.True(t, ok)
	bToA, ok := pool.Quote(c, 5_000_000, false)
	require.True(t, ok)
	require.True(t, aToB > 0)
	require.True(t, bToA > 0)
}

// TestQuote_MissingVaultYieldsNoQuote: a pool whose vault was never seeded in
// the cache declines rather than panicking.
func TestQuote_MissingVaultYieldsNoQuote(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)
	pool := newTestPool(vaultA, vaultB, 2500)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(2_000_000_000_000))

	_, ok := pool.Quote(c, 5_000_000, true)
	require.False(t, ok)
}
