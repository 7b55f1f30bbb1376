package orca

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/fixedpoint"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
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

// tickArrayBytes builds a raw whirlpool tick-array account: an 8-byte
// discriminator (Decode unconditionally strips the first 8 bytes once the
// slice is longer than that), a 4-byte start tick index, then 88 fixed-size
// tick records. Only the byte-0 initialized flag is set for the indices
// named in initializedAt; every other byte stays zero.
func tickArrayBytes(startTickIndex int32, initializedAt ...int) []byte {
	const recordsLen = TicksPerArray * tickRecordSize
	data := make([]byte, 8+4+recordsLen)
	binary.LittleEndian.PutUint32(data[8:], uint32(startTickIndex))
	for _, i := range initializedAt {
		data[8+4+i*tickRecordSize] = 1
	}
	return data
}

func newTestWhirlpool(vaultA, vaultB, poolID solana.PublicKey, tickSpacing uint16, feeRate uint16, liquidity uint128.Uint128, sqrtPrice uint128.Uint128, tickCurrent int32) *WhirlpoolPool {
	return &WhirlpoolPool{
		TickSpacing:      tickSpacing,
		FeeRate:          feeRate,
		Liquidity:        liquidity,
		SqrtPrice:        sqrtPrice,
		TickCurrentIndex: tickCurrent,
		TokenVaultA:      vaultA,
		TokenVaultB:      vaultB,
		PoolId:           poolID,
	}
}

// TestQuote_PartialFillWithinActiveArray exercises the full tick-array-
// walking path (PDA derivation, cache lookup, initialized-tick scan) for a
// swap small enough that it never reaches the next initialized tick: a
// larger input must never yield a smaller output, checked against
// the real Quote() entry point rather than the bare
// computeSwapStep helper the sibling Raydium CLMM tests cover directly.
func TestQuote_PartialFillWithinActiveArray(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)
	poolID := testKey(3)

	tickSpacing := uint16(64)
	tickCurrent := int32(1024)

	sqrtPriceCurrent, ok := fixedpoint.SqrtPriceFromTick(tickCurrent)
	require.True(t, ok)
	// Tick 960 (index 15 in a start-0 array of tickSpacing 64) is the only
	// initialized tick at or below the current one, so a zero-for-one swap
	// targets it.
	targetTickIndex := int32(960)
	targetSqrt, ok := fixedpoint.SqrtPriceFromTick(targetTickIndex)
	require.True(t, ok)
	require.True(t, targetSqrt.Cmp(sqrtPriceCurrent) < 0, "lower tick must have lower price")

	arrData := tickArrayBytes(0, 15)
	arrKey, err := deriveTickArrayPDA(poolID, arrayStartIndex(tickCurrent, tickSpacing))
	require.NoError(t, err)

	liquidity := uint128.From64(1_000_000_000_000)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(1))
	c.PutDynamic(vaultB, splTokenAccount(1))
	c.PutStatic(arrKey, arrData)

	pool := newTestWhirlpool(vaultA, vaultB, poolID, tickSpacing, 0, liquidity, sqrtPriceCurrent, tickCurrent)

	small, ok := pool.Quote(c, 1_000, true)
	require.True(t, ok)
	large, ok := pool.Quote(c, 2_000, true)
	require.True(t, ok)
	require.True(t, large > small)
}

// TestQuote_FeeFloor: a positive fee rate strictly reduces the amount out
// versus a zero-fee pool for the same input, at the full Quote() level.
func TestQuote_FeeFloor(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)
	poolID := testKey(3)

	tickSpacing := uint16(64)
	tickCurrent := int32(1024)
	sqrtPriceCurrent, ok := fixedpoint.SqrtPriceFromTick(tickCurrent)
	require.True(t, ok)

	arrData := tickArrayBytes(0, 15)
	arrKey, err := deriveTickArrayPDA(poolID, arrayStartIndex(tickCurrent, tickSpacing))
	require.NoError(t, err)

	liquidity := uint128.From64(1_000_000_000_000)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(1))
	c.PutDynamic(vaultB, splTokenAccount(1))
	c.PutStatic(arrKey, arrData)

	withFee := newTestWhirlpool(vaultA, vaultB, poolID, tickSpacing, 2500, liquidity, sqrtPriceCurrent, tickCurrent)
	noFee := newTestWhirlpool(vaultA, vaultB, poolID, tickSpacing, 0, liquidity, sqrtPriceCurrent, tickCurrent)

	withFeeOut, ok := withFee.Quote(c, 1_000, true)
	require.True(t, ok)
	noFeeOut, ok := noFee.Quote(c, 1_000, true)
	require.True(t, ok)
	require.True(t, withFeeOut < noFeeOut)
}

// TestQuote_MissingTickArrayYieldsNoQuote: a pool whose current tick array
// was never prefetched into the cache declines rather than panicking.
func TestQuote_MissingTickArrayYieldsNoQuote(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)
	poolID := testKey(3)

	sqrtPriceCurrent, ok := fixedpoint.SqrtPriceFromTick(0)
	require.True(t, ok)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(1))
	c.PutDynamic(vaultB, splTokenAccount(1))

	pool := newTestWhirlpool(vaultA, vaultB, poolID, 64, 0, uint128.From64(1_000_000_000_000), sqrtPriceCurrent, 0)

	_, ok = pool.Quote(c, 1_000, true)
	require.False(t, ok)
}

// TestQuote_ZeroLiquidityYieldsNoQuote: a pool reporting zero active
// liquidity declines immediately rather than dividing by it.
func TestQuote_ZeroLiquidityYieldsNoQuote(t *testing.T) {
	vaultA := testKey(1)
	vaultB := testKey(2)
	poolID := testKey(3)

	sqrtPriceCurrent, ok := fixedpoint.SqrtPriceFromTick(0)
	require.True(t, ok)

	c := cache.New()
	c.PutDynamic(vaultA, splTokenAccount(1))
	c.PutDynamic(vaultB, splTokenAccount(1))

	pool := newTestWhirlpool(vaultA, vaultB, poolID, 64, 0, uint128.Zero, sqrtPriceCurrent, 0)

	_, ok = pool.Quote(c, 1_000, true)
	require.False(t, ok)
}

// TestDecodeTickArray_RoundTrip confirms the start index and per-tick
// initialized flag survive the raw-byte round trip decodeTickArray/tickAt
// perform.
func TestDecodeTickArray_RoundTrip(t *testing.T) {
	data := tickArrayBytes(-5632, 0, 15, 87)
	arr, ok := decodeTickArray(data)
	require.True(t, ok)
	require.Equal(t, int32(-5632), arr.StartTickIndex)

	t0 := arr.tickAt(0, 64)
	require.True(t, t0.Initialized)
	t1 := arr.tickAt(1, 64)
	require.False(t, t1.Initialized)
	t15 := arr.tickAt(15, 64)
	require.True(t, t15.Initialized)
	require.Equal(t, int32(-5632+15*64), t15.TickIndex)
}

// TestFindNextInitializedTick_ZeroForOneScansDownward verifies the
// zero-for-one search picks the nearest initialized tick at or below
// fromTick, not simply the first one in array order.
func TestFindNextInitializedTick_ZeroForOneScansDownward(t *testing.T) {
	data := tickArrayBytes(0, 10, 15)
	arr, ok := decodeTickArray(data)
	require.True(t, ok)

	found, ok := findNextInitializedTick(arr, 64, 1024, true)
	require.True(t, ok)
	require.Equal(t, int32(15*64), found.TickIndex)
}

// TestFindNextInitializedTick_OneForZeroScansUpward verifies the
// one-for-zero search picks the nearest initialized tick at or above
// fromTick.
func TestFindNextInitializedTick_OneForZeroScansUpward(t *testing.T) {
	data := tickArrayBytes(0, 10, 15)
	arr, ok := decodeTickArray(data)
	require.True(t, ok)

	found, ok := findNextInitializedTick(arr, 64, 0, false)
	require.True(t, ok)
	require.Equal(t, int32(10*64), found.TickIndex)
}
