package raydium

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/stretchr/testify/require"
)

// splTokenAccount builds a minimal SPL-token-account blob carrying only the
// fields byteutil.VaultBalance reads: 32 bytes mint, 32 bytes owner, then
// the u64 amount at offset 64.
func splTokenAccount(amount uint64) []byte {
	data := make([]byte, 72)
	binary.LittleEndian.PutUint64(data[64:], amount)
	return data
}

// testKey returns a deterministic, distinct PublicKey for test fixtures.
func testKey(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

func newTestAMMPool(baseVault, quoteVault solana.PublicKey, feeNum, feeDen, basePnl, quotePnl uint64) *AMMPool {
	return &AMMPool{
		BaseVault:        baseVault,
		QuoteVault:       quoteVault,
		SwapFeeNumerator: feeNum,
		SwapFeeDenominator: feeDen,
		BaseNeedTakePnl:  basePnl,
		QuoteNeedTakePnl: quotePnl,
	}
}

// TestAMMPool_Quote_Golden locks in the exact quote for a fixed pool state:
// reserves 26,324,870,000,000 coin / 3,524,576,300,000 pc, fee 25/10_000,
// no PnL reservation, 1e9 coin units in, coin->pc. Computed once from the
// ceil-fee + floor-constant-product formula, asserted forever.
func TestAMMPool_Quote_Golden(t *testing.T) {
	baseVault := testKey(1)
	quoteVault := testKey(2)

	pool := newTestAMMPool(baseVault, quoteVault, 25, 10_000, 0, 0)
	c := cache.New()
	c.PutDynamic(baseVault, splTokenAccount(26_324_870_000_000))
	c.PutDynamic(quoteVault, splTokenAccount(3_524_576_300_000))

	out, ok := pool.Quote(c, 1_000_000_000, true)
	require.True(t, ok)
	require.Equal(t, uint64(133547920), out)
}

// TestAMMPool_Quote_PnlReservationReducesReserves verifies that need-take-pnl
// amounts are subtracted from vault balances before the constant-product
// step: a pool with no PnL owed quotes at least as much as an
// otherwise-identical pool that owes PnL on the output side.
func TestAMMPool_Quote_PnlReservationReducesReserves(t *testing.T) {
	baseVault := testKey(1)
	quoteVault := testKey(2)

	noPnl := newTestAMMPool(baseVault, quoteVault, 25, 10_000, 0, 0)
	withPnl := newTestAMMPool(baseVault, quoteVault, 25, 10_000, 0, 1_000_000_000)

	c := cache.New()
	c.PutDynamic(baseVault, splTokenAccount(26_324_870_000_000))
	c.PutDynamic(quoteVault, splTokenAccount(3_524_576_300_000))

	outNoPnl, ok := noPnl.Quote(c, 1_000_000_000, true)
	require.True(t, ok)
	outWithPnl, ok := withPnl.Quote(c, 1_000_000_000, true)
	require.True(t, ok)
	require.True(t, outWithPnl <= outNoPnl)
}

// TestAMMPool_Quote_Monotonic: quote(a) <= quote(b) for a <= b, strictly
// above the minimum quote unit.
func TestAMMPool_Quote_Monotonic(t *testing.T) {
	baseVault := testKey(1)
	quoteVault := testKey(2)
	pool := newTestAMMPool(baseVault, quoteVault, 25, 10_000, 0, 0)

	c := cache.New()
	c.PutDynamic(baseVault, splTokenAccount(26_324_870_000_000))
	c.PutDynamic(quoteVault, splTokenAccount(3_524_576_300_000))

	small, ok := pool.Quote(c, 1_000_000_000, true)
	require.True(t, ok)
	large, ok := pool.Quote(c, 2_000_000_000, true)
	require.True(t, ok)
	require.True(t, large > small)
}

// TestAMMPool_Quote_ReserveCap: the quote never meets or exceeds the output
// reserve, even for an enormous input.
func TestAMMPool_Quote_ReserveCap(t *testing.T) {
	baseVault := testKey(1)
	quoteVault := testKey(2)
	pool := newTestAMMPool(baseVault, quoteVault, 25, 10_000, 0, 0)

	c := cache.New()
	c.PutDynamic(baseVault, splTokenAccount(1_000_000))
	c.PutDynamic(quoteVault, splTokenAccount(500_000))

	out, ok := pool.Quote(c, 1_000_000_000_000, true)
	require.True(t, ok)
	require.True(t, out < 500_000)
}

// TestAMMPool_Quote_FeeFloor: a positive fee rate strictly reduces the
// amount out versus a zero-fee pool for the same input.
func TestAMMPool_Quote_FeeFloor(t *testing.T) {
	baseVault := testKey(1)
	quoteVault := testKey(2)

	fee := newTestAMMPool(baseVault, quoteVault, 25, 10_000, 0, 0)
	noFee := newTestAMMPool(baseVault, quoteVault, 0, 10_000, 0, 0)

	c := cache.New()
	c.PutDynamic(baseVault, splTokenAccount(26_324_870_000_000))
	c.PutDynamic(quoteVault, splTokenAccount(3_524_576_300_000))

	feeOut, ok := fee.Quote(c, 1_000_000_000, true)
	require.True(t, ok)
	noFeeOut, ok := noFee.Quote(c, 1_000_000_000, true)
	require.True(t, ok)
	require.True(t, feeOut < noFeeOut)
}

// TestAMMPool_Quote_DirectionSymmetry: swapping direction swaps which
// reserve decreases, i.e. quoting pc->coin uses the pc reserve as input.
func TestAMMPool_Quote_DirectionSymmetry(t *testing.T) {
	baseVault := testKey(1)
	quoteVault := testKey(2)
	pool := newTestAMMPool(baseVault, quoteVault, 25, 10_000, 0, 0)

	c := cache.New()
	c.PutDynamic(baseVault, splTokenAccount(26_324_870_000_000))
	c.PutDynamic(quoteVault, splTokenAccount(3_524_576_300_000))

	coinToPc, ok := pool.Quote(c, 1_000_000_000, true)
	require.True(t, ok)
	pcToCoin, ok := pool.Quote(c, 1_000_000_000, false)
	require.True(t, ok)
	// Different reserve ratios mean the two directions are not expected to
	// be equal, but both must be valid, strictly-positive, reserve-capped
	// quotes.
	require.True(t, coinToPc > 0)
	require.True(t, pcToCoin > 0)
}

// TestAMMPool_Quote_MissingVaultYieldsNoQuote: a pool whose vault was never
// seeded in the cache declines rather than panicking.
func TestAMMPool_Quote_MissingVaultYieldsNoQuote(t *testing.T) {
	baseVault := testKey(1)
	quoteVault := testKey(2)
	pool := newTestAMMPool(baseVault, quoteVault, 25, 10_000, 0, 0)

	c := cache.New()
	_, ok := pool.Quote(c, 1_000_000_000, true)
	require.False(t, ok)
}
