package raydium

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

// testTick describes one initialized tick to plant into a raw tick-array
// account blob.
type testTick struct {
	offset         int // index within the array, 0..59
	tick           int32
	liquidityNet   int64
	liquidityGross uint64
}

// clmmTickArrayBytes builds a raw tick-array account exactly as
// TickArray.Decode expects it: 8 bytes padding, 32-byte pool id, i32 start
// tick index, then 60 fixed-size tick records, then the initialized count.
// Only the ticks named in ticks get nonzero fields; everything else is zero.
func clmmTickArrayBytes(poolID solana.PublicKey, startTickIndex int32, ticks []testTick) []byte {
	data := make([]byte, 8+32+4+TICK_ARRAY_SIZE*TickSize+1+115)
	copy(data[8:], poolID[:])
	binary.LittleEndian.PutUint32(data[40:], uint32(startTickIndex))
	const base = 44
	for _, tk := range ticks {
		off := base + tk.offset*TickSize
		binary.LittleEndian.PutUint32(data[off:], uint32(tk.tick))
		binary.LittleEndian.PutUint64(data[off+4:], uint64(tk.liquidityNet))
		if tk.liquidityNet < 0 {
			binary.LittleEndian.PutUint64(data[off+12:], ^uint64(0))
		}
		binary.LittleEndian.PutUint64(data[off+20:], tk.liquidityGross)
	}
	data[base+TICK_ARRAY_SIZE*TickSize] = byte(len(ticks))
	return data
}

// setBitmapBit marks the tick array starting at arrayStart (a multiple of
// tickSpacing*TICK_ARRAY_SIZE) as initialized in a pool's own bitmap.
func setBitmapBit(bitmap *[16]uint64, arrayStart, tickSpacing int64) {
	bitPos := arrayStart/getTickCount(tickSpacing) + 512
	bitmap[bitPos/64] |= 1 << uint(bitPos%64)
}

func sqrtAtTick(t *testing.T, tick int64) *big.Int {
	v, err := getSqrtPriceX64FromTick(tick)
	require.NoError(t, err)
	return v.BigInt()
}

// newTestCLMMPool builds a pool whose bitmap extension is absent (the loader
// substitutes an all-zero extension) and whose tick arrays live in c under
// their derived addresses.
func newTestCLMMPool(t *testing.T, poolID solana.PublicKey, tickSpacing uint16, tickCurrent int32, liquidity uint64, feeRate uint32) *CLMMPool {
	pool := &CLMMPool{
		PoolId:      poolID,
		TickSpacing: tickSpacing,
		TickCurrent: tickCurrent,
		Liquidity:   uint128.From64(liquidity),
		FeeRate:     feeRate,
	}
	pool.SqrtPriceX64 = uint128.FromBig(sqrtAtTick(t, int64(tickCurrent)))
	exAddr, _, err := GetPdaExBitmapAccount(RAYDIUM_CLMM_PROGRAM_ID, poolID)
	require.NoError(t, err)
	pool.ExBitmapAddress = exAddr
	return pool
}

func seedTickArray(c *cache.Cache, poolID solana.PublicKey, startIndex int64, data []byte) {
	addr := getPdaTickArrayAddress(RAYDIUM_CLMM_PROGRAM_ID, poolID, startIndex)
	c.PutDynamic(addr, data)
}

// TestCLMMPool_Quote_SingleTickNoCross: the current tick sits well above the
// only initialized tick in its array, and the input is too small to reach
// it. The quote must equal the single-step formula's output exactly, and the
// pool snapshot (liquidity, current tick) must be left untouched.
func TestCLMMPool_Quote_SingleTickNoCross(t *testing.T) {
	poolID := testKey(9)
	const (
		tickSpacing = uint16(10)
		tickCurrent = int32(400)
		liquidity   = uint64(1_000_000_000_000)
		feeRate     = uint32(2500)
	)

	pool := newTestCLMMPool(t, poolID, tickSpacing, tickCurrent, liquidity, feeRate)
	setBitmapBit(&pool.TickArrayBitmap, 0, int64(tickSpacing))

	c := cache.New()
	seedTickArray(c, poolID, 0, clmmTickArrayBytes(poolID, 0, []testTick{
		{offset: 10, tick: 100, liquidityNet: 0, liquidityGross: 1_000_000},
	}))

	const amountIn = uint64(1_000)
	out, ok := pool.Quote(c, amountIn, true)
	require.True(t, ok)

	step, ok := ComputeSwapStep(
		sqrtAtTick(t, int64(tickCurrent)),
		sqrtAtTick(t, 100),
		new(big.Int).SetUint64(liquidity),
		new(big.Int).SetUint64(amountIn),
		feeRate,
		true,
	)
	require.True(t, ok)
	require.NotEqual(t, 0, step.SqrtPriceNext.Cmp(sqrtAtTick(t, 100)), "input this small must not reach the tick")
	require.Equal(t, step.AmountOut.Uint64(), out)

	// The quote is read-only: the pool snapshot still describes the
	// pre-swap state.
	require.Equal(t, tickCurrent, pool.TickCurrent)
	require.Equal(t, uint128.From64(liquidity), pool.Liquidity)

	// Determinism: the identical request quotes the identical amount.
	again, ok := pool.Quote(c, amountIn, true)
	require.True(t, ok)
	require.Equal(t, out, again)
}

// TestCLMMPool_Quote_CrossesInitializedTick: the input is sized to exactly
// exhaust the segment down to the first initialized tick plus a little more,
// so the walk must cross it, subtract liquidity_net from the active
// liquidity, and price the remainder against the reduced liquidity. The
// expected total is assembled from two explicit single steps.
func TestCLMMPool_Quote_CrossesInitializedTick(t *testing.T) {
	poolID := testKey(9)
	const (
		tickSpacing  = uint16(10)
		tickCurrent  = int32(400)
		liquidity    = uint64(1_000_000_000_000)
		liquidityNet = int64(300_000_000_000)
		feeRate      = uint32(2500)
		tailIn       = uint64(1_000)
	)

	pool := newTestCLMMPool(t, poolID, tickSpacing, tickCurrent, liquidity, feeRate)
	setBitmapBit(&pool.TickArrayBitmap, 0, int64(tickSpacing))

	c := cache.New()
	seedTickArray(c, poolID, 0, clmmTickArrayBytes(poolID, 0, []testTick{
		{offset: 5, tick: 50, liquidityNet: 0, liquidityGross: 1_000_000},
		{offset: 10, tick: 100, liquidityNet: liquidityNet, liquidityGross: 1_000_000},
	}))

	// Step 1: all the way down to tick 100, from a surplus budget so the
	// step's own charge (amount in + fee) is what reaching the tick costs.
	step1, ok := ComputeSwapStep(
		sqrtAtTick(t, int64(tickCurrent)),
		sqrtAtTick(t, 100),
		new(big.Int).SetUint64(liquidity),
		new(big.Int).SetUint64(1_000_000_000_000_000),
		feeRate,
		true,
	)
	require.True(t, ok)
	require.Equal(t, 0, step1.SqrtPriceNext.Cmp(sqrtAtTick(t, 100)), "surplus budget must reach the tick")
	spent1 := new(big.Int).Add(step1.AmountIn, step1.FeeAmount)
	require.True(t, spent1.IsUint64())

	// Step 2: the tail continues below the crossed tick against liquidity
	// reduced by its liquidity_net.
	reducedLiquidity := new(big.Int).SetUint64(liquidity - uint64(liquidityNet))
	step2, ok := ComputeSwapStep(
		sqrtAtTick(t, 100),
		sqrtAtTick(t, 50),
		reducedLiquidity,
		new(big.Int).SetUint64(tailIn),
		feeRate,
		true,
	)
	require.True(t, ok)
	require.NotEqual(t, 0, step2.SqrtPriceNext.Cmp(sqrtAtTick(t, 50)), "the tail must not reach the second tick")

	amountIn := spent1.Uint64() + tailIn
	out, ok := pool.Quote(c, amountIn, true)
	require.True(t, ok)
	expected := new(big.Int).Add(step1.AmountOut, step2.AmountOut)
	require.Equal(t, expected.Uint64(), out)
	require.True(t, out > step1.AmountOut.Uint64(), "the post-cross segment must contribute output")
}

// TestCLMMPool_Quote_ExhaustsPrefetchWindowYieldsNoQuote: a swap that would
// need a fourth tick array declines rather than mis-pricing against
// liquidity it cannot see.
func TestCLMMPool_Quote_ExhaustsPrefetchWindowYieldsNoQuote(t *testing.T) {
	poolID := testKey(9)
	const (
		tickSpacing = uint16(10)
		tickCurrent = int32(400)
		liquidity   = uint64(1_000)
		feeRate     = uint32(2500)
	)

	pool := newTestCLMMPool(t, poolID, tickSpacing, tickCurrent, liquidity, feeRate)
	for _, start := range []int64{0, -600, -1200, -1800} {
		setBitmapBit(&pool.TickArrayBitmap, start, int64(tickSpacing))
	}

	c := cache.New()
	seedTickArray(c, poolID, 0, clmmTickArrayBytes(poolID, 0, []testTick{
		{offset: 10, tick: 100, liquidityNet: 0, liquidityGross: 1_000_000},
	}))
	seedTickArray(c, poolID, -600, clmmTickArrayBytes(poolID, -600, []testTick{
		{offset: 30, tick: -300, liquidityNet: 0, liquidityGross: 1_000_000},
	}))
	seedTickArray(c, poolID, -1200, clmmTickArrayBytes(poolID, -1200, []testTick{
		{offset: 30, tick: -900, liquidityNet: 0, liquidityGross: 1_000_000},
	}))
	seedTickArray(c, poolID, -1800, clmmTickArrayBytes(poolID, -1800, []testTick{
		{offset: 30, tick: -1500, liquidityNet: 0, liquidityGross: 1_000_000},
	}))

	// Active liquidity this thin absorbs almost nothing per segment, so an
	// input this large is guaranteed to still have remainder after the third
	// array.
	_, ok := pool.Quote(c, 1_000_000_000_000_000_000, true)
	require.False(t, ok)
}

// TestCLMMPool_Quote_MissingTickArrayYieldsNoQuote: the bitmap claims an
// initialized array that was never cached; the quote declines instead of
// walking into the gap.
func TestCLMMPool_Quote_MissingTickArrayYieldsNoQuote(t *testing.T) {
	poolID := testKey(9)
	pool := newTestCLMMPool(t, poolID, 10, 400, 1_000_000_000_000, 2500)
	setBitmapBit(&pool.TickArrayBitmap, 0, 10)

	c := cache.New()
	_, ok := pool.Quote(c, 1_000, true)
	require.False(t, ok)
}
