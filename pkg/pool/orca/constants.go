// Package orca implements the Orca Whirlpool quoter: a concentrated-liquidity
// pool structurally identical to Raydium CLMM (same sqrt-price/liquidity/tick
// model) but addressed differently — tick arrays are derived PDAs with a
// deterministic start index rather than being reached through a bitmap, and
// each array holds 88 ticks instead of 60.
//
// The single-step swap math is shared with the Raydium CLMM quoter via
// raydium.ComputeSwapStep, since Whirlpool's swap step is the same
// Uniswap-V3 formula against the same Q64.64 sqrt-price representation;
// only the account parsing and tick-array addressing differ.
package orca

import "github.com/gagliardetto/solana-go"

// WhirlpoolProgramID is the Orca Whirlpool program.
var WhirlpoolProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

const (
	// TicksPerArray is the fixed tick-array length Orca uses (88, vs
	// Raydium CLMM's 60).
	TicksPerArray = 88

	// MaxTickArraysPerQuote bounds how many tick arrays a single quote
	// walks before giving up, the same 3-array prefetch window the sibling
	// Raydium CLMM quoter uses.
	MaxTickArraysPerQuote = 3

	// FeeRateDenominator is the denominator Whirlpool's u16 fee_rate and
	// protocol_fee_rate fields are expressed against (millionths), the same
	// denominator Raydium CLMM/CPMM use.
	FeeRateDenominator = 1_000_000

	minTick = -443636
	maxTick = 443636
)

// arrayStartIndex returns the start tick index of the 88*tickSpacing-wide
// array that owns tick:
// floor(tick / (tickSpacing*TicksPerArray)) * (tickSpacing*TicksPerArray).
func arrayStartIndex(tick int32, tickSpacing uint16) int32 {
	width := int32(tickSpacing) * TicksPerArray
	q := tick / width
	if tick%width != 0 && tick < 0 {
		q--
	}
	return q * width
}

// deriveTickArrayPDA derives the tick-array account address for a given
// whirlpool and start tick index: seeds ["tick_array", whirlpool,
// start_tick_index as decimal ASCII] per Orca's own PDA convention.
func deriveTickArrayPDA(whirlpool solana.PublicKey, startTickIndex int32) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("tick_array"), whirlpool[:], []byte(formatInt32(startTickIndex))},
		WhirlpoolProgramID,
	)
	return pda, err
}

// TickArrayPrefetchAddresses derives the tick-array PDA containing the
// current tick plus one neighbor on each side, so LoadPool can prefetch a
// fixed set without guessing how far a swap will travel. Quote may walk up
// to MaxTickArraysPerQuote arrays in one direction; a quote that reaches an
// array outside this set finds it absent from the cache and returns no quote.
func TickArrayPrefetchAddresses(whirlpool solana.PublicKey, currentTick int32, tickSpacing uint16) ([]solana.PublicKey, error) {
	width := int32(tickSpacing) * TicksPerArray
	start := arrayStartIndex(currentTick, tickSpacing)

	candidates := []int32{start - width, start, start + width}
	addrs := make([]solana.PublicKey, 0, len(candidates))
	for _, idx := range candidates {
		if idx < minTick || idx > maxTick {
			continue
		}
		pda, err := deriveTickArrayPDA(whirlpool, idx)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, pda)
	}
	return addrs, nil
}

func formatInt32(v int32) string {
	neg := v < 0
	if neg {
		v = -v
	}
	if v == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
