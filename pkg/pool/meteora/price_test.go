package meteora

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestDlmmPool builds a pool with activeId=0 and bin_step=25 (so
// GetOrStoreBinPrice falls back to get_price_from_id, which is exactly 1.0 in
// Q64.64 at id 0) and a base fee schedule with no volatility component, so
// the total fee rate is deterministic.
func newTestDlmmPool(baseFactor uint16, baseFeePowerFactor uint8) *MeteoraDlmmPool {
	pool := &MeteoraDlmmPool{}
	pool.activeId = 0
	pool.binStep = 25
	pool.parameters.baseFactor = baseFactor
	pool.parameters.baseFeePowerFactor = baseFeePowerFactor
	pool.parameters.variableFeeControl = 0
	pool.vParameters.volatilityAccumulator = 0
	return pool
}

// TestSwap_ActiveBinGolden locks in the exact fill for active_id=0,
// bin_step=25, X->Y, an amount small enough to stay in the active bin.
// p_0 is exactly 1.0 at id 0, so the quoted Y must equal
// floor(amount_x * (1 - fee)) to the unit. baseFactor=10000,
// baseFeePowerFactor=0 gives a base fee rate of 10000*25*10 = 2,500,000 out
// of FeePrecision=1e9 (0.25%).
func TestSwap_ActiveBinGolden(t *testing.T) {
	pool := newTestDlmmPool(10_000, 0)

	bin := &Bin{
		amountX: 0,
		amountY: 10_000_000_000,
	}

	result, err := pool.Swap(bin, 1_000_000, true)
	require.NoError(t, err)
	// fee = ceil(1_000_000 * 2_500_000 / 1_000_000_000) = ceil(2500) = 2500
	require.Equal(t, uint64(2500), result.fee)
	// amountOut = floor((1_000_000 - 2500) * 1.0) = 997_500
	require.Equal(t, uint64(997_500), result.amountOut)
	require.Equal(t, uint64(1_000_000), result.amountInWithFees)
}

// TestSwap_Monotonic: a larger input never yields a smaller output while the
// swap stays within the active bin's liquidity.
func TestSwap_Monotonic(t *testing.T) {
	pool := newTestDlmmPool(10_000, 0)

	bin := func() *Bin { return &Bin{amountX: 0, amountY: 10_000_000_000} }

	small, err := pool.Swap(bin(), 1_000_000, true)
	require.NoError(t, err)
	large, err := pool.Swap(bin(), 2_000_000, true)
	require.NoError(t, err)
	require.True(t, large.amountOut > small.amountOut)
}

// TestSwap_FeeFloor: a positive base fee strictly reduces the amount out
// versus a zero-fee schedule for the same input.
func TestSwap_FeeFloor(t *testing.T) {
	withFee := newTestDlmmPool(10_000, 0)
	noFee := newTestDlmmPool(0, 0)

	withFeeOut, err := withFee.Swap(&Bin{amountX: 0, amountY: 10_000_000_000}, 1_000_000, true)
	require.NoError(t, err)
	noFeeOut, err := noFee.Swap(&Bin{amountX: 0, amountY: 10_000_000_000}, 1_000_000, true)
	require.NoError(t, err)
	require.True(t, withFeeOut.amountOut < noFeeOut.amountOut)
	// Zero fee schedule: amount out equals amount in exactly at price 1.0.
	require.Equal(t, uint64(1_000_000), noFeeOut.amountOut)
}

// TestSwap_ReserveCap: an input that would exceed the bin's output-side
// reserve is capped to draining it, per the max-amount-in branch.
func TestSwap_ReserveCap(t *testing.T) {
	pool := newTestDlmmPool(10_000, 0)
	bin := &Bin{amountX: 0, amountY: 1_000}

	result, err := pool.Swap(bin, 1_000_000_000, true)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), result.amountOut)
}

// TestSwap_DirectionSymmetry: both swap directions against a bin with
// reserves on both sides yield valid, positive fills.
func TestSwap_DirectionSymmetry(t *testing.T) {
	pool := newTestDlmmPool(10_000, 0)

	xToY, err := pool.Swap(&Bin{amountX: 1_000_000_000, amountY: 1_000_000_000}, 1_000_000, true)
	require.NoError(t, err)
	yToX, err := pool.Swap(&Bin{amountX: 1_000_000_000, amountY: 1_000_000_000}, 1_000_000, false)
	require.NoError(t, err)
	require.True(t, xToY.amountOut > 0)
	require.True(t, yToX.amountOut > 0)
}

// TestGetTotalFee_VariableFeeAddsToBase verifies GetVariableFee contributes
// on top of the base fee when variable_fee_control is nonzero.
func TestGetTotalFee_VariableFeeAddsToBase(t *testing.T) {
	pool := newTestDlmmPool(10_000, 0)
	pool.parameters.variableFeeControl = 0

	zeroVar, err := pool.GetTotalFee()
	require.NoError(t, err)
	require.Equal(t, int64(2_500_000), zeroVar.Int64())

	pool2 := newTestDlmmPool(10_000, 0)
	pool2.parameters.variableFeeControl = 1
	pool2.vParameters.volatilityAccumulator = 100
	withVar, err := pool2.GetTotalFee()
	require.NoError(t, err)
	require.True(t, withVar.Int64() > zeroVar.Int64())
}
