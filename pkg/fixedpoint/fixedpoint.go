// Package fixedpoint implements the rounding-exact arithmetic the on-chain
// AMM programs themselves perform: 128x128->256 multiply-shift-divide with
// explicit rounding direction, Q64.64 exponentiation, ceiling division with
// the constant-product programs' particular rounding quirks, and the
// sqrt-price/geometric-price conversions the concentrated-liquidity and
// binned-liquidity protocols use to turn a tick or bin index into a price.
//
// Every kernel here returns an ok bool instead of panicking or returning an
// error: a quote that hits an overflow, a zero divisor, or an out-of-range
// tick is not a bug to crash on, it is simply a pool this engine declines to
// price right now.
package fixedpoint

import (
	"errors"
	"math/big"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"
)

// Rounding selects which way a division truncates.
type Rounding int

const (
	Down Rounding = iota
	Up
)

// Q64.64 fixed point: 64 integer bits, 64 fractional bits, stored in a
// 128-bit unsigned integer.
const Q64 = 64

var (
	one64 = new(big.Int).Lsh(big.NewInt(1), Q64) // 2^64, i.e. Q64.64 "1.0"

	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

func divRound(num, den *big.Int, rnd Rounding) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if rnd == Up && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// MulDiv computes floor|ceil(x*y/d) for 128-bit x, y, d, widening through an
// arbitrary-precision intermediate. Fails (ok=false) when d=0 or the result
// does not fit back into 128 bits.
func MulDiv(x, y, d uint128.Uint128, rnd Rounding) (uint128.Uint128, bool) {
	if d.IsZero() {
		return uint128.Zero, false
	}
	xb, yb, db := x.Big(), y.Big(), d.Big()
	prod := new(big.Int).Mul(xb, yb)
	q := divRound(prod, db, rnd)
	if q.Sign() < 0 || q.Cmp(maxUint128) > 0 {
		return uint128.Zero, false
	}
	return uint128.FromBig(q), true
}

// MulShr computes (x*y) >> off for 128-bit x, y, rounding per rnd. Fails when
// the product overflows what the shift can represent back in 128 bits.
func MulShr(x, y uint128.Uint128, off uint, rnd Rounding) (uint128.Uint128, bool) {
	prod := new(big.Int).Mul(x.Big(), y.Big())
	den := new(big.Int).Lsh(big.NewInt(1), off)
	q := divRound(prod, den, rnd)
	if q.Sign() < 0 || q.Cmp(maxUint128) > 0 {
		return uint128.Zero, false
	}
	return uint128.FromBig(q), true
}

// ShlDiv computes (x << off) / y for 128-bit x, y, rounding per rnd. Fails
// when y=0 or the result overflows 128 bits.
func ShlDiv(x, y uint128.Uint128, off uint, rnd Rounding) (uint128.Uint128, bool) {
	if y.IsZero() {
		return uint128.Zero, false
	}
	num := new(big.Int).Lsh(x.Big(), off)
	q := divRound(num, y.Big(), rnd)
	if q.Sign() < 0 || q.Cmp(maxUint128) > 0 {
		return uint128.Zero, false
	}
	return uint128.FromBig(q), true
}

// MulDivU256 is MulDiv for 256-bit operands (cosmossdk.io/math.Int is
// arbitrary precision, so the "widen to 512 bits" step the contract
// describes is implicit in the intermediate product). Fails when d=0 or the
// result does not fit back into 256 bits.
func MulDivU256(x, y, d cosmath.Int, rnd Rounding) (cosmath.Int, bool) {
	if d.IsZero() {
		return cosmath.Int{}, false
	}
	prod := x.BigInt()
	prod = new(big.Int).Mul(prod, y.BigInt())
	q := divRound(prod, d.BigInt(), rnd)
	if q.Sign() < 0 || q.BitLen() > 256 {
		return cosmath.Int{}, false
	}
	return cosmath.NewIntFromBigInt(q), true
}

// CheckedCeilDiv reproduces the constant-product AMM program's particular
// ceiling-division contract: when the true quotient would be 0 but the
// dividend is at least half the divisor, it returns (1, 0) rather than
// declining the division outright; otherwise it ceilings normally and backs
// a minimal adjusted divisor out of the rounded-up quotient. Returns
// (quotient, adjustedDivisor, ok).
func CheckedCeilDiv(a, b uint128.Uint128) (uint128.Uint128, uint128.Uint128, bool) {
	if b.IsZero() {
		return uint128.Zero, uint128.Zero, false
	}
	quotient := a.Div(b)
	if quotient.IsZero() {
		if a.Mul64(2).Cmp(b) >= 0 {
			return uint128.From64(1), uint128.Zero, true
		}
		return uint128.Zero, uint128.Zero, true
	}

	remainder := a.Mod(b)
	adjustedDivisor := b
	if remainder.Cmp(uint128.Zero) > 0 {
		quotient = quotient.Add64(1)
		adjustedDivisor = a.Div(quotient)
		if a.Mod(quotient).Cmp(uint128.Zero) > 0 {
			adjustedDivisor = adjustedDivisor.Add64(1)
		}
	}
	return quotient, adjustedDivisor, true
}

// Pow raises a Q64.64 fixed-point base to a signed integer exponent, also in
// Q64.64, via binary exponentiation. Used by GetPriceFromID; a negative
// exponent inverts the result. Fails on overflow past 128 bits.
func Pow(baseQ64 uint128.Uint128, exp int32) (uint128.Uint128, bool) {
	negative := exp < 0
	e := exp
	if negative {
		e = -e
	}

	result := uint128.From64(1).Lsh(Q64) // 1.0 in Q64.64
	base := baseQ64
	ok := true
	for e > 0 {
		if e&1 == 1 {
			result, ok = MulShr(result, base, Q64, Down)
			if !ok {
				return uint128.Zero, false
			}
		}
		base, ok = MulShr(base, base, Q64, Down)
		if !ok {
			return uint128.Zero, false
		}
		e >>= 1
	}

	if !negative {
		return result, true
	}
	if result.IsZero() {
		return uint128.Zero, false
	}
	one := uint128.From64(1).Lsh(Q64)
	return ShlDiv(one, result, Q64, Down)
}

const (
	// BasisPointMax is the denominator DLMM bin steps are expressed against.
	BasisPointMax = 10_000
)

// GetPriceFromID computes the Meteora-DLMM-style per-bin price
// (1 + bin_step/BASIS_POINT_MAX)^active_id in Q64.64, matching the on-chain
// program's get_price_from_id formula: the per-step multiplier is built once
// as a Q64.64 value, then raised to the signed bin index.
func GetPriceFromID(activeID int32, binStep uint16) (uint128.Uint128, bool) {
	bps, ok := ShlDiv(uint128.From64(uint64(binStep)), uint128.From64(BasisPointMax), Q64, Down)
	if !ok {
		return uint128.Zero, false
	}
	base := uint128.From64(1).Lsh(Q64).Add(bps)
	return Pow(base, activeID)
}

const (
	minTick = -443636
	maxTick = 443636
)

var tickRatioTable = []struct {
	mask uint32
	mul  string
}{
	{0x1, "18445821805675395072"},
	{0x2, "18444899583751176192"},
	{0x4, "18443055278223355904"},
	{0x8, "18439367220385607680"},
	{0x10, "18431993317065453568"},
	{0x20, "18417254355718170624"},
	{0x40, "18387811781193609216"},
	{0x80, "18329067761203558400"},
	{0x100, "18212142134806163456"},
	{0x200, "17980523815641700352"},
	{0x400, "17526086738831433728"},
	{0x800, "16651378430235570176"},
	{0x1000, "15030750278694412288"},
	{0x2000, "12247334978884435968"},
	{0x4000, "8131365268886854656"},
	{0x8000, "3584323654725218816"},
	{0x10000, "696457651848324352"},
	{0x20000, "26294789957507116"},
	{0x40000, "37481735321082"},
}

// SqrtPriceFromTick computes the Uniswap-V3-style Q64.64 sqrt price for a
// given tick via the program's bit-magic squaring ladder: each set bit of
// the absolute tick index multiplies in a precomputed per-bit ratio, and a
// positive tick inverts the accumulated ratio against the 128-bit maximum.
func SqrtPriceFromTick(tick int32) (uint128.Uint128, bool) {
	if tick < minTick || tick > maxTick {
		return uint128.Zero, false
	}

	tickAbs := tick
	if tick < 0 {
		tickAbs = -tick
	}

	var ratio *big.Int
	if tickAbs&0x1 != 0 {
		ratio, _ = new(big.Int).SetString("18445821805675395072", 10)
	} else {
		ratio = new(big.Int).Set(one64)
	}

	for _, step := range tickRatioTable[1:] {
		if uint32(tickAbs)&step.mask == 0 {
			continue
		}
		mulBy, ok := new(big.Int).SetString(step.mul, 10)
		if !ok {
			return uint128.Zero, false
		}
		ratio = new(big.Int).Rsh(new(big.Int).Mul(ratio, mulBy), Q64)
	}

	if tick > 0 {
		ratio = new(big.Int).Quo(maxUint128, ratio)
	}
	if ratio.Sign() < 0 || ratio.Cmp(maxUint128) > 0 {
		return uint128.Zero, false
	}
	return uint128.FromBig(ratio), true
}

// ErrNoQuote is returned by higher layers, never by the kernels above
// (which signal failure via their ok bool); it exists so callers assembling
// a multi-step quote have one sentinel to wrap into their own "no quote"
// result.
var ErrNoQuote = errors.New("fixedpoint: no quote")
