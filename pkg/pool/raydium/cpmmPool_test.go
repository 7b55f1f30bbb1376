package raydium

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/stretchr/testify/require"
)

func newTestCPMMPool(vault0, vault1 solana.PublicKey, tradeFeeRate uint64) *CPMMPool {
	return &CPMMPool{
		Token0Vault:  vault0,
		Token1Vault:  vault1,
		TradeFeeRate: tradeFeeRate,
	}
}

// TestCPMMPool_Quote_ShapeC locks in a hand-computed Shape C quote: single
// millionths-denominated trade fee, ceiling rounded, then
// swap_base_input_without_fees on the fee-reduced amount.
func TestCPMMPool_Quote_ShapeC(t *testing.T) {
	vault0 := testKey(1)
	vault1 := testKey(2)
	pool := newTestCPMMPool(vault0, vault1, 2500) // 0.25% in millionths

	c := cache.New()
	c.PutDynamic(vault0, splTokenAccount(2_000_000_000_000))
	c.PutDynamic(vault1, splTokenAccount(50_000_000_000))

	out, ok := pool.Quote(c, 5_000_000, true)
	require.True(t, ok)
	require.Equal(t, uint64(124687), out)
}

// TestCPMMPool_Quote_Monotonic: quote(a) <= quote(b) for a <= b.
func TestCPMMPool_Quote_Monotonic(t *testing.T) {
	vault0 := testKey(1)
	vault1 := testKey(2)
	pool := newTestCPMMPool(vault0, vault1, 2500)

	c := cache.New()
	c.PutDynamic(vault0, splTokenAccount(2_000_000_000_000))
	c.PutDynamic(vault1, splTokenAccount(50_000_000_000))

	small, ok := pool.Quote(c, 5_000_000, true)
	require.True(t, ok)
	large, ok := pool.Quote(c, 10_000_000, true)
	require.True(t, ok)
	require.True(t, large > small)
}

// TestCPMMPool_Quote_FeeFloor: a positive trade fee rate strictly reduces
// the quote versus a zero-fee pool for the same input.
func TestCPMMPool_Quote_FeeFloor(t *testing.T) {
	vault0 := testKey(1)
	vault1 := testKey(2)

	fee := newTestCPMMPool(vault0, vault1, 2500)
	noFee := newTestCPMMPool(vault0, vault1, 0)

	c := cache.New()
	c.PutDynamic(vault0, splTokenAccount(2_000_000_000_000))
	c.PutDynamic(vault1, splTokenAccount(50_000_000_000))

	feeOut, ok := fee.Quote(c, 5_000_000, true)
	require.True(t, ok)
	noFeeOut, ok := noFee.Quote(c, 5_000_000, true)
	require.True(t, ok)
	require.True(t, feeOut < noFeeOut)
}

// TestCPMMPool_Quote_ReserveCap: output never meets or exceeds the
// destination reserve.
func TestCPMMPool_Quote_ReserveCap(t *testing.T) {
	vault0 := testKey(1)
	vault1 := testKey(2)
	pool := newTestCPMMPool(vault0, vault1, 2500)

	c := cache.New()
	c.PutDynamic(vault0, splTokenAccount(1_000))
	c.PutDynamic(vault1, splTokenAccount(1_000))

	out, ok := pool.Quote(c, 1_000_000_000_000, true)
	require.True(t, ok)
	require.True(t, out < 1_000)
}

// TestCPMMPool_Quote_DirectionSymmetry: both swap directions produce a
// valid, positive quote against the same cache.
func TestCPMMPool_Quote_DirectionSymmetry(t *testing.T) {
	vault0 := testKey(1)
	vault1 := testKey(2)
	pool := newTestCPMMPool(vault0, vault1, 2500)

	c := cache.New()
	c.PutDynamic(vault0, splTokenAccount(2_000_000_000_000))
	c.PutDynamic(vault1, splTokenAccount(50_000_000_000))

	zeroToOne, ok := pool.Quote(c, 5_000_000, true)
	require.True(t, ok)
	oneToZero, ok := pool.Quote(c, 5_000_000, false)
	require.True(t, ok)
	require.True(t, zeroToOne > 0)
	require.True(t, oneToZero > 0)
}
