package raydium

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// q64One is 1.0 in Q64.64.
func q64One() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), U64Resolution)
}

// TestComputeSwapStep_NoCross locks in the exact single-step output for a
// swap whose target sqrt-price lies far from the current price and whose
// input is too small to reach it: amountOut, the fee taken, and the next
// sqrt-price all come from the same formula the on-chain program uses.
func TestComputeSwapStep_NoCross(t *testing.T) {
	current := q64One()
	target := new(big.Int).Div(q64One(), big.NewInt(2))
	liquidity := big.NewInt(1_000_000_000_000)
	amountRemaining := big.NewInt(1_000_000)
	feeRate := uint32(2500) // 0.25% in millionths

	step, ok := computeSwapStep(current, target, liquidity, amountRemaining, feeRate, true)
	require.True(t, ok)
	require.False(t, step.SqrtPriceNext.Cmp(target) == 0, "should not reach target")
	require.Equal(t, "997500", step.AmountIn.String())
	require.Equal(t, "997499", step.AmountOut.String())
	require.Equal(t, "2500", step.FeeAmount.String())
	require.Equal(t, "18446725673100692699", step.SqrtPriceNext.String())
}

// TestComputeSwapStep_ReachesTarget verifies a step whose remaining input
// comfortably exceeds what's needed to reach the target price: the target
// price is hit exactly, and the fee is the ceiling-divided amount against
// amountIn rather than amountRemaining-amountIn.
func TestComputeSwapStep_ReachesTarget(t *testing.T) {
	current := q64One()
	target := new(big.Int).Sub(q64One(), new(big.Int).Div(q64One(), big.NewInt(1_000_000)))
	liquidity := big.NewInt(1_000_000_000_000)
	amountRemaining := big.NewInt(1_000_000_000_000)
	feeRate := uint32(2500)

	step, ok := computeSwapStep(current, target, liquidity, amountRemaining, feeRate, true)
	require.True(t, ok)
	require.Equal(t, 0, step.SqrtPriceNext.Cmp(target), "should reach target exactly")
	require.Equal(t, "1000002", step.AmountIn.String())
	require.Equal(t, "999999", step.AmountOut.String())
	require.Equal(t, "2507", step.FeeAmount.String())
}

// TestComputeSwapStep_Monotonic: a larger input never yields a smaller
// output for a fixed, non-crossing step.
func TestComputeSwapStep_Monotonic(t *testing.T) {
	current := q64One()
	target := new(big.Int).Div(q64One(), big.NewInt(2))
	liquidity := big.NewInt(1_000_000_000_000)
	feeRate := uint32(2500)

	small, ok := computeSwapStep(current, target, liquidity, big.NewInt(1_000_000), feeRate, true)
	require.True(t, ok)
	big_, ok := computeSwapStep(current, target, liquidity, big.NewInt(2_000_000), feeRate, true)
	require.True(t, ok)
	require.True(t, big_.AmountOut.Cmp(small.AmountOut) > 0)
}

// TestComputeSwapStep_FeeFloor: a positive fee rate strictly reduces the
// amount out versus a zero-fee step for the same input.
func TestComputeSwapStep_FeeFloor(t *testing.T) {
	current := q64One()
	target := new(big.Int).Div(q64One(), big.NewInt(2))
	liquidity := big.NewInt(1_000_000_000_000)
	amountRemaining := big.NewInt(1_000_000)

	withFee, ok := computeSwapStep(current, target, liquidity, amountRemaining, 2500, true)
	require.True(t, ok)
	noFee, ok := computeSwapStep(current, target, liquidity, amountRemaining, 0, true)
	require.True(t, ok)
	require.True(t, withFee.AmountOut.Cmp(noFee.AmountOut) < 0)
}

// TestComputeSwapStep_ZeroFeeRateDenominatorFails guards the feeComplement
// divide-by-zero edge case directly (a 100% fee rate, FEE_RATE_DENOMINATOR
// units, is nonsensical but must decline rather than panic).
func TestComputeSwapStep_ZeroFeeRateDenominatorFails(t *testing.T) {
	current := q64One()
	target := new(big.Int).Div(q64One(), big.NewInt(2))
	liquidity := big.NewInt(1_000_000_000_000)
	amountRemaining := big.NewInt(1_000_000)

	_, ok := computeSwapStep(current, target, liquidity, amountRemaining, uint32(FEE_RATE_DENOMINATOR.Int64()), true)
	require.False(t, ok)
}
