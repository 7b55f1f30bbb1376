package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func u128(v uint64) uint128.Uint128 { return uint128.From64(v) }

func TestCheckedCeilDiv_RoundTrip(t *testing.T) {
	cases := []struct {
		a, b uint64
	}{
		{0, 10},
		{1, 10},
		{5, 10},  // exactly half: the (1,0) special case
		{4, 10},  // below half: stays zero
		{100, 10}, // divides evenly
		{101, 10},
		{1, 1},
		{999_999_999, 1_000_000},
	}
	for _, c := range cases {
		quotient, _, ok := CheckedCeilDiv(u128(c.a), u128(c.b))
		require.True(t, ok, "a=%d b=%d", c.a, c.b)
		if c.a > 0 && 2*c.a < c.b {
			// Below half of the divisor the kernel returns a zero quotient,
			// so the product falls short of a.
			require.Equal(t, u128(0), quotient, "a=%d b=%d", c.a, c.b)
			continue
		}
		product := quotient.Mul64(c.b)
		require.True(t, product.Cmp(u128(c.a)) >= 0, "a=%d b=%d quotient=%s", c.a, c.b, quotient.String())
		if c.a%c.b == 0 {
			require.Equal(t, u128(c.a), product, "a=%d b=%d should divide evenly", c.a, c.b)
		}
	}
}

func TestCheckedCeilDiv_HalfwayCase(t *testing.T) {
	// a*2 == b exactly: the program's special case returns (1, 0) instead of
	// declining the division outright.
	quotient, adjustedDivisor, ok := CheckedCeilDiv(u128(5), u128(10))
	require.True(t, ok)
	require.Equal(t, u128(1), quotient)
	require.Equal(t, u128(0), adjustedDivisor)
}

func TestCheckedCeilDiv_BelowHalfStaysZero(t *testing.T) {
	quotient, _, ok := CheckedCeilDiv(u128(4), u128(10))
	require.True(t, ok)
	require.Equal(t, u128(0), quotient)
}

func TestCheckedCeilDiv_ZeroDivisorFails(t *testing.T) {
	_, _, ok := CheckedCeilDiv(u128(1), u128(0))
	require.False(t, ok)
}

func TestMulDiv_FloorAndCeil(t *testing.T) {
	// 10 * 3 / 4 = 7.5 -> floor 7, ceil 8
	down, ok := MulDiv(u128(10), u128(3), u128(4), Down)
	require.True(t, ok)
	require.Equal(t, u128(7), down)

	up, ok := MulDiv(u128(10), u128(3), u128(4), Up)
	require.True(t, ok)
	require.Equal(t, u128(8), up)
}

func TestMulDiv_ZeroDivisorFails(t *testing.T) {
	_, ok := MulDiv(u128(1), u128(1), u128(0), Down)
	require.False(t, ok)
}

func TestMulDiv_OverflowFails(t *testing.T) {
	maxVal := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	max := uint128.FromBig(maxVal)
	_, ok := MulDiv(max, max, u128(1), Down)
	require.False(t, ok)
}

func TestPow_IdentityExponentZero(t *testing.T) {
	one := u128(1).Lsh(Q64)
	got, ok := Pow(u128(2).Lsh(Q64), 0)
	require.True(t, ok)
	require.Equal(t, one, got)
}

func TestPow_NegativeExponentInverts(t *testing.T) {
	base := u128(2).Lsh(Q64) // 2.0 in Q64.64
	positive, ok := Pow(base, 3)
	require.True(t, ok)
	negative, ok := Pow(base, -3)
	require.True(t, ok)

	one := new(big.Int).Lsh(big.NewInt(1), 2*Q64)
	product := new(big.Int).Mul(positive.Big(), negative.Big())
	// positive*negative should be close to 1.0 in Q128.128 terms, modulo the
	// truncation each MulShr/ShlDiv step performs.
	diff := new(big.Int).Sub(one, product)
	require.True(t, diff.Sign() >= 0)
}

func TestGetPriceFromID_ZeroIDIsOne(t *testing.T) {
	price, ok := GetPriceFromID(0, 25)
	require.True(t, ok)
	require.Equal(t, u128(1).Lsh(Q64), price)
}

func TestSqrtPriceFromTick_ZeroTickIsOne(t *testing.T) {
	price, ok := SqrtPriceFromTick(0)
	require.True(t, ok)
	require.Equal(t, u128(1).Lsh(Q64), price)
}

func TestSqrtPriceFromTick_OutOfRangeFails(t *testing.T) {
	_, ok := SqrtPriceFromTick(minTick - 1)
	require.False(t, ok)
	_, ok = SqrtPriceFromTick(maxTick + 1)
	require.False(t, ok)
}

func TestSqrtPriceFromTick_PositiveTickIncreasesPrice(t *testing.T) {
	base, ok := SqrtPriceFromTick(0)
	require.True(t, ok)
	higher, ok := SqrtPriceFromTick(1000)
	require.True(t, ok)
	require.True(t, higher.Cmp(base) > 0)

	lower, ok := SqrtPriceFromTick(-1000)
	require.True(t, ok)
	require.True(t, lower.Cmp(base) < 0)
}
