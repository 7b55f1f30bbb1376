package orca

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/byteutil"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/fixedpoint"
	"github.com/Islinces/solquote/pkg/pool/raydium"
	"lukechampine.com/uint128"
)

// WhirlpoolPool mirrors the fields of an Orca Whirlpool account this quoter
// needs. Reward-tracking fields the quoter never reads are skipped rather
// than modeled, since the cache stores raw bytes and this type only decodes
// the prefix it uses.
type WhirlpoolPool struct {
	TickSpacing     uint16
	FeeRate         uint16
	ProtocolFeeRate uint16

	Liquidity        uint128.Uint128
	SqrtPrice        uint128.Uint128
	TickCurrentIndex int32

	TokenMintA  solana.PublicKey
	TokenVaultA solana.PublicKey
	TokenMintB  solana.PublicKey
	TokenVaultB solana.PublicKey

	PoolId solana.PublicKey
}

func (pool *WhirlpoolPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameOrcaWhirlpool
}

func (pool *WhirlpoolPool) GetProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (pool *WhirlpoolPool) GetID() string {
	return pool.PoolId.String()
}

func (pool *WhirlpoolPool) GetTokens() (baseMint, quoteMint string) {
	return pool.TokenMintA.String(), pool.TokenMintB.String()
}

// Span is the whirlpool account's total byte size, discriminator included.
func (pool *WhirlpoolPool) Span() uint64 { return 653 }

// Offset returns the byte offset of the named field, for RPC memcmp filters.
func (pool *WhirlpoolPool) Offset(field string) uint64 {
	const base = 8
	switch field {
	case "TokenMintA":
		return base + 32 + 1 + 2 + 2 + 2 + 2 + 16 + 16 + 4 + 8 + 8 // 101
	case "TokenMintB":
		return base + 32 + 1 + 2 + 2 + 2 + 2 + 16 + 16 + 4 + 8 + 8 + 32 + 32 + 16 // 181
	default:
		return 0
	}
}

// Decode reads the static and dynamic fields this quoter needs from a
// whirlpool account's raw bytes.
func (pool *WhirlpoolPool) Decode(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}
	if len(data) < 197 {
		return fmt.Errorf("orca: whirlpool data too short: got %d bytes", len(data))
	}
	offset := 32 + 1 // whirlpoolsConfig, bump
	pool.TickSpacing = binary.LittleEndian.Uint16(data[offset:])
	offset += 2 + 2 // tickSpacing, feeTierIndexSeed
	pool.FeeRate = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	pool.ProtocolFeeRate = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	pool.Liquidity = uint128.FromBytes(data[offset : offset+16])
	offset += 16
	pool.SqrtPrice = uint128.FromBytes(data[offset : offset+16])
	offset += 16
	pool.TickCurrentIndex = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4 + 8 + 8 // tickCurrentIndex, protocolFeeOwedA, protocolFeeOwedB
	pool.TokenMintA = byteutil.Pubkey(data[offset:])
	offset += 32
	pool.TokenVaultA = byteutil.Pubkey(data[offset:])
	offset += 32 + 16 // tokenVaultA, feeGrowthGlobalA
	pool.TokenMintB = byteutil.Pubkey(data[offset:])
	offset += 32
	pool.TokenVaultB = byteutil.Pubkey(data[offset:])
	return nil
}

// tick is the subset of an on-chain Tick this quoter reads: whether it's
// initialized and its signed liquidity delta.
type tick struct {
	Initialized  bool
	LiquidityNet *big.Int
	TickIndex    int32
}

const tickRecordSize = 1 + 16 + 16 + 16 + 16 + 3*16 // initialized flag + liquidity_net + liquidity_gross + 2 fee growths + 3 reward growths

// tickArray is the subset of a Whirlpool TickArray account this quoter
// reads: its start index and, lazily, each tick's initialized/liquidity_net
// fields decoded on demand from the raw cached bytes.
type tickArray struct {
	StartTickIndex int32
	raw            []byte
}

func decodeTickArray(data []byte) (*tickArray, bool) {
	if len(data) > 8 {
		data = data[8:]
	}
	if len(data) < 4+TicksPerArray*tickRecordSize {
		return nil, false
	}
	return &tickArray{
		StartTickIndex: int32(binary.LittleEndian.Uint32(data)),
		raw:            data[4:],
	}, true
}

func (ta *tickArray) tickAt(i int, tickSpacing uint16) tick {
	rec := ta.raw[i*tickRecordSize : (i+1)*tickRecordSize]
	initialized := rec[0] != 0
	netBytes := rec[1:17]
	net := new(big.Int).SetBytes(reverse(netBytes))
	if net.Bit(127) == 1 {
		net.Sub(net, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return tick{
		Initialized:  initialized,
		LiquidityNet: net,
		TickIndex:    ta.StartTickIndex + int32(i)*int32(tickSpacing),
	}
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}

// Quote walks tick arrays outward from the pool's current tick in
// swapDirection (true = A->B), applying the Uniswap-V3 single-step formula
// at each initialized tick boundary it crosses, exactly like the sibling
// Raydium CLMM quoter — the only structural difference is how the next
// tick array is located: Orca has no bitmap, so arrays are found by direct
// PDA derivation and looked up in the cache by that derived key.
func (pool *WhirlpoolPool) Quote(c *cache.Cache, amountIn uint64, swapDirection bool) (uint64, bool) {
	zeroForOne := swapDirection

	vaultAData, ok := c.GetDynamic(pool.TokenVaultA)
	if !ok {
		return 0, false
	}
	vaultBData, ok := c.GetDynamic(pool.TokenVaultB)
	if !ok {
		return 0, false
	}
	if _, ok := byteutil.VaultBalance(vaultAData); !ok {
		return 0, false
	}
	if _, ok := byteutil.VaultBalance(vaultBData); !ok {
		return 0, false
	}

	if pool.Liquidity.IsZero() {
		return 0, false
	}
	liquidity := pool.Liquidity.Big()
	sqrtPrice := pool.SqrtPrice.Big()
	if sqrtPrice.Sign() <= 0 {
		return 0, false
	}

	startIdx := arrayStartIndex(pool.TickCurrentIndex, pool.TickSpacing)
	arrKey, err := deriveTickArrayPDA(pool.PoolId, startIdx)
	if err != nil {
		return 0, false
	}
	arrData, ok := c.GetStatic(arrKey)
	if !ok {
		return 0, false
	}
	arr, ok := decodeTickArray(arrData)
	if !ok {
		return 0, false
	}

	remaining := new(big.Int).SetUint64(amountIn)
	totalOut := new(big.Int)
	visited := 1
	width := int32(pool.TickSpacing) * TicksPerArray
	tickIdx := pool.TickCurrentIndex

	for remaining.Sign() > 0 {
		nextTick, found := findNextInitializedTick(arr, pool.TickSpacing, tickIdx, zeroForOne)
		if !found {
			nextStart := arr.StartTickIndex - width
			if !zeroForOne {
				nextStart = arr.StartTickIndex + width
			}
			if nextStart < minTick || nextStart > maxTick {
				break
			}
			visited++
			if visited > MaxTickArraysPerQuote {
				return 0, false
			}
			nextKey, err := deriveTickArrayPDA(pool.PoolId, nextStart)
			if err != nil {
				return 0, false
			}
			nextData, ok := c.GetStatic(nextKey)
			if !ok {
				break
			}
			arr, ok = decodeTickArray(nextData)
			if !ok {
				return 0, false
			}
			if zeroForOne {
				tickIdx = arr.StartTickIndex + width - int32(pool.TickSpacing)
			} else {
				tickIdx = arr.StartTickIndex
			}
			continue
		}

		targetSqrtQ64, ok := fixedpoint.SqrtPriceFromTick(nextTick.TickIndex)
		if !ok {
			return 0, false
		}
		targetSqrt := targetSqrtQ64.Big()

		step, ok := raydium.ComputeSwapStep(sqrtPrice, targetSqrt, liquidity, remaining, uint32(pool.FeeRate), zeroForOne)
		if !ok {
			return 0, false
		}
		spent := new(big.Int).Add(step.AmountIn, step.FeeAmount)
		if spent.Cmp(remaining) > 0 {
			return 0, false
		}
		remaining.Sub(remaining, spent)
		totalOut.Add(totalOut, step.AmountOut)
		sqrtPrice = step.SqrtPriceNext

		if sqrtPrice.Cmp(targetSqrt) == 0 {
			if nextTick.Initialized {
				net := nextTick.LiquidityNet
				if zeroForOne {
					net = new(big.Int).Neg(net)
				}
				liquidity = new(big.Int).Add(liquidity, net)
				if liquidity.Sign() < 0 {
					return 0, false
				}
			}
			if zeroForOne {
				tickIdx = nextTick.TickIndex - int32(pool.TickSpacing)
			} else {
				tickIdx = nextTick.TickIndex + int32(pool.TickSpacing)
			}
		} else {
			break
		}
	}

	if remaining.Sign() > 0 {
		return 0, false
	}
	if totalOut.Sign() <= 0 || !totalOut.IsUint64() {
		return 0, false
	}
	return totalOut.Uint64(), true
}

// findNextInitializedTick scans arr in the swap direction from fromTick for
// the next initialized tick, the same "multiples of tick spacing" search
// Raydium CLMM's getNextInitTick performs.
func findNextInitializedTick(arr *tickArray, tickSpacing uint16, fromTick int32, zeroForOne bool) (tick, bool) {
	startI := int((fromTick - arr.StartTickIndex) / int32(tickSpacing))
	if zeroForOne {
		for i := startI; i >= 0; i-- {
			if i >= TicksPerArray {
				continue
			}
			t := arr.tickAt(i, tickSpacing)
			if t.Initialized && t.TickIndex <= fromTick {
				return t, true
			}
		}
		return tick{}, false
	}
	for i := startI; i < TicksPerArray; i++ {
		if i < 0 {
			continue
		}
		t := arr.tickAt(i, tickSpacing)
		if t.Initialized && t.TickIndex >= fromTick {
			return t, true
		}
	}
	return tick{}, false
}
