package meteora

import (
	"fmt"
	"math/big"

	"github.com/Islinces/solquote/pkg/fixedpoint"
	"lukechampine.com/uint128"
)

// Bin is one discretized liquidity bucket inside a BinArray: its own X/Y
// reserves and the price the on-chain program stores for it (rather than
// recomputing (1+bin_step/BASIS_POINT_MAX)^id on every read).
type Bin struct {
	amountX                  uint64
	amountY                  uint64
	price                    uint128.Uint128
	liquiditySupply          uint128.Uint128
	rewardPerTokenStored     [2]uint128.Uint128
	feeAmountXPerTokenStored uint128.Uint128
	feeAmountYPerTokenStored uint128.Uint128
	amountXIn                uint128.Uint128
	amountYIn                uint128.Uint128
}

// IsEmpty reports whether the reserve a swap would draw from (X if
// checkX, Y otherwise) holds nothing.
func (b *Bin) IsEmpty(checkX bool) bool {
	if checkX {
		return b.amountX == 0
	}
	return b.amountY == 0
}

// GetOrStoreBinPrice returns the bin's Q64.64 price, falling back to the
// get_price_from_id formula if the account's stored price was never
// initialized (a zero value, which only a never-traded bin can have).
func (b *Bin) GetOrStoreBinPrice(activeID int32, binStep uint16) (uint128.Uint128, error) {
	if !b.price.IsZero() {
		return b.price, nil
	}
	price, ok := fixedpoint.GetPriceFromID(activeID, binStep)
	if !ok {
		return uint128.Zero, fmt.Errorf("meteora: price overflow at bin %d", activeID)
	}
	return price, nil
}

// GetMaxAmountOut returns how much of the output token (Y if swapForY, X
// otherwise) this bin can give out: its entire reserve on that side.
func (b *Bin) GetMaxAmountOut(swapForY bool) uint64 {
	if swapForY {
		return b.amountY
	}
	return b.amountX
}

// GetAmountOut converts a fee-deducted input amount to an output amount at
// price (Q64.64, Y per unit X), rounding down as the on-chain program does.
func (b *Bin) GetAmountOut(amountInAfterFee uint64, price uint128.Uint128, swapForY bool) (*big.Int, error) {
	in := uint128.From64(amountInAfterFee)
	var out uint128.Uint128
	var ok bool
	if swapForY {
		out, ok = fixedpoint.MulShr(in, price, fixedpoint.Q64, fixedpoint.Down)
	} else {
		out, ok = fixedpoint.ShlDiv(in, price, fixedpoint.Q64, fixedpoint.Down)
	}
	if !ok {
		return nil, fmt.Errorf("meteora: amount-out overflow")
	}
	return out.Big(), nil
}

// GetMaxAmountIn returns the input amount (before fees) needed to drain
// this bin's output-side reserve entirely, the ceiling-rounded inverse of
// GetAmountOut.
func (b *Bin) GetMaxAmountIn(price uint128.Uint128, swapForY bool) (*big.Int, error) {
	maxOut := uint128.From64(b.GetMaxAmountOut(swapForY))
	var in uint128.Uint128
	var ok bool
	if swapForY {
		in, ok = fixedpoint.ShlDiv(maxOut, price, fixedpoint.Q64, fixedpoint.Up)
	} else {
		in, ok = fixedpoint.MulShr(maxOut, price, fixedpoint.Q64, fixedpoint.Up)
	}
	if !ok {
		return nil, fmt.Errorf("meteora: max-amount-in overflow")
	}
	return in.Big(), nil
}
