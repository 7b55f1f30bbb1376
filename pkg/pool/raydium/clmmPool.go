package raydium

import (
	"encoding/binary"
	"math"
	"math/big"
	"strconv"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/cache"
	"lukechampine.com/uint128"
)

type CLMMPool struct {
	// 8 bytes discriminator
	Discriminator [8]uint8 `bin:"skip"`
	// Core states
	Bump           uint8
	AmmConfig      solana.PublicKey
	Owner          solana.PublicKey
	TokenMint0     solana.PublicKey
	TokenMint1     solana.PublicKey
	TokenVault0    solana.PublicKey
	TokenVault1    solana.PublicKey
	ObservationKey solana.PublicKey
	MintDecimals0  uint8
	MintDecimals1  uint8
	TickSpacing    uint16
	// Liquidity states
	Liquidity                 uint128.Uint128
	SqrtPriceX64              uint128.Uint128
	TickCurrent               int32
	ObservationIndex          uint16
	ObservationUpdateDuration uint16
	FeeGrowthGlobal0X64       uint128.Uint128
	FeeGrowthGlobal1X64       uint128.Uint128
	ProtocolFeesToken0        uint64
	ProtocolFeesToken1        uint64
	SwapInAmountToken0        uint128.Uint128
	SwapOutAmountToken1       uint128.Uint128
	SwapInAmountToken1        uint128.Uint128
	SwapOutAmountToken0       uint128.Uint128
	Status                    uint8
	Padding                   [7]uint8
	// Reward states
	RewardInfos [3]RewardInfo
	// Tick array states
	TickArrayBitmap [16]uint64
	// Fee states
	TotalFeesToken0        uint64
	TotalFeesClaimedToken0 uint64
	TotalFeesToken1        uint64
	TotalFeesClaimedToken1 uint64
	FundFeesToken0         uint64
	FundFeesToken1         uint64
	// Other states
	OpenTime    uint64
	RecentEpoch uint64
	Padding1    [24]uint64
	Padding2    [32]uint64

	PoolId            solana.PublicKey
	FeeRate           uint32
	ExBitmapAddress   solana.PublicKey
	exTickArrayBitmap *TickArrayBitmapExtensionType
	TickArrayCache    map[string]TickArray
}

type RewardInfo struct {
	RewardState           uint8
	OpenTime              uint64
	EndTime               uint64
	LastUpdateTime        uint64
	EmissionsPerSecondX64 uint128.Uint128
	RewardTotalEmissioned uint64
	RewardClaimed         uint64
	TokenMint             solana.PublicKey
	TokenVault            solana.PublicKey
	Authority             solana.PublicKey
	RewardGrowthGlobalX64 uint128.Uint128
}

func (pool *CLMMPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumClmm
}

func (pool *CLMMPool) GetProgramID() solana.PublicKey {
	return RAYDIUM_CLMM_PROGRAM_ID
}

func (l *CLMMPool) Decode(data []byte) error {
	// Skip 8 bytes discriminator if present
	if len(data) > 8 {
		data = data[8:]
	}

	offset := 0

	// Parse core states
	l.Bump = data[offset]
	offset += 1

	l.AmmConfig = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	l.Owner = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	l.TokenMint0 = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	l.TokenMint1 = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	l.TokenVault0 = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	l.TokenVault1 = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	l.ObservationKey = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	l.MintDecimals0 = data[offset]
	offset += 1

	l.MintDecimals1 = data[offset]
	offset += 1

	l.TickSpacing = binary.LittleEndian.Uint16(data[offset : offset+2])
	offset += 2

	// Parse liquidity states
	l.Liquidity = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	l.SqrtPriceX64 = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	l.TickCurrent = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	l.ObservationIndex = binary.LittleEndian.Uint16(data[offset : offset+2])
	offset += 2

	l.ObservationUpdateDuration = binary.LittleEndian.Uint16(data[offset : offset+2])
	offset += 2

	l.FeeGrowthGlobal0X64 = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	l.FeeGrowthGlobal1X64 = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	l.ProtocolFeesToken0 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.ProtocolFeesToken1 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.SwapInAmountToken0 = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	l.SwapOutAmountToken1 = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	l.SwapInAmountToken1 = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	l.SwapOutAmountToken0 = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	l.Status = data[offset]
	offset += 1

	// Skip padding
	offset += 7

	// Parse reward states
	for i := 0; i < 3; i++ {
		l.RewardInfos[i].RewardState = data[offset]
		offset += 1

		l.RewardInfos[i].OpenTime = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8

		l.RewardInfos[i].EndTime = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8

		l.RewardInfos[i].LastUpdateTime = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8

		l.RewardInfos[i].EmissionsPerSecondX64 = uint128.FromBytes(data[offset : offset+16])
		offset += 16

		l.RewardInfos[i].RewardTotalEmissioned = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8

		l.RewardInfos[i].RewardClaimed = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8

		l.RewardInfos[i].TokenMint = solana.PublicKeyFromBytes(data[offset : offset+32])
		offset += 32

		l.RewardInfos[i].TokenVault = solana.PublicKeyFromBytes(data[offset : offset+32])
		offset += 32

		l.RewardInfos[i].Authority = solana.PublicKeyFromBytes(data[offset : offset+32])
		offset += 32

		l.RewardInfos[i].RewardGrowthGlobalX64 = uint128.FromBytes(data[offset : offset+16])
		offset += 16
	}

	// Parse tick array bitmap
	for i := 0; i < 16; i++ {
		l.TickArrayBitmap[i] = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8
	}

	// Parse fee states
	l.TotalFeesToken0 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.TotalFeesClaimedToken0 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.TotalFeesToken1 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.TotalFeesClaimedToken1 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.FundFeesToken0 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.FundFeesToken1 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	// Parse other states
	l.OpenTime = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.RecentEpoch = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	// Skip padding1
	offset += 24 * 8

	// Skip padding2
	offset += 32 * 8
	return nil
}

func (l *CLMMPool) Span() uint64 {
	return uint64(1544)
}

func (l *CLMMPool) Offset(field string) uint64 {
	// Add 8 bytes for discriminator
	baseOffset := uint64(8)

	switch field {
	case "TokenMint0":
		return baseOffset + 1 + 32 + 32 // bump + ammConfig + owner
	case "TokenMint1":
		return baseOffset + 1 + 32 + 32 + 32 // bump + ammConfig + owner + tokenMint0
	}
	return 0
}

func (l *CLMMPool) CurrentPrice() float64 {
	sqrtPrice, _ := l.SqrtPriceX64.Big().Float64()
	sqrtPrice = sqrtPrice / math.Pow(2, 64)
	price := sqrtPrice * sqrtPrice
	return price
}


// GetID returns the pool ID
func (pool *CLMMPool) GetID() string {
	return pool.PoolId.String()
}

// GetTokens returns the base and quote token mints
func (pool *CLMMPool) GetTokens() (baseMint, quoteMint string) {
	return pool.TokenMint0.String(), pool.TokenMint1.String()
}

// loadExBitmapFromCache decodes the pool's tick-array bitmap extension from
// the static cache. A missing or undersized entry yields a zero-valued
// extension (no initialized ticks beyond the default bitmap range) rather
// than a nil-slice panic: the bitmap walker below then simply finds nothing
// reachable past the default range, the conservative "no quote" outcome for
// an extension that is absent but needed.
func (pool *CLMMPool) loadExBitmapFromCache(c *cache.Cache) {
	const minExtensionLen = 8 + 32 + EXTENSION_TICKARRAY_BITMAP_SIZE*64*2
	data, ok := c.GetStatic(pool.ExBitmapAddress)
	if ok && len(data) >= minExtensionLen {
		pool.ParseExBitmapInfo(data)
		return
	}
	zero := func() [][]uint64 {
		out := make([][]uint64, EXTENSION_TICKARRAY_BITMAP_SIZE)
		for i := range out {
			out[i] = make([]uint64, 8)
		}
		return out
	}
	pool.exTickArrayBitmap = &TickArrayBitmapExtensionType{
		PoolId:                  pool.PoolId,
		PositiveTickArrayBitmap: zero(),
		NegativeTickArrayBitmap: zero(),
	}
}

// Quote implements the concentrated-liquidity swap: walk the
// cached tick arrays in the swap direction from the current tick, applying
// the Uniswap-V3 single-step formula at each initialized tick boundary,
// crossing ticks by updating liquidity by ±liquidity_net, until amountIn is
// exhausted or the TickArrayPrefetchCount-bounded window of cached tick
// arrays runs out. ok=false on any missing cache entry, inconsistent bitmap
// state, or arithmetic overflow — never a panic.
func (pool *CLMMPool) Quote(c *cache.Cache, amountIn uint64, swapDirection bool) (uint64, bool) {
	zeroForOne := swapDirection
	pool.loadExBitmapFromCache(c)
	pool.LoadTickArraysFromCache(c)

	startIndex, _, err := pool.getFirstInitializedTickArray(zeroForOne, pool.exTickArrayBitmap)
	if err != nil {
		return 0, false
	}
	tickArrayCurrent, ok := pool.TickArrayCache[strconv.FormatInt(startIndex, 10)]
	if !ok {
		return 0, false
	}

	tickSpacing := int64(pool.TickSpacing)
	currentTick := int64(pool.TickCurrent)
	var tick int64
	if currentTick > startIndex {
		if startIndex+getTickCount(tickSpacing)-1 < currentTick {
			tick = startIndex + getTickCount(tickSpacing) - 1
		} else {
			tick = currentTick
		}
	} else {
		tick = startIndex
	}

	liquidity := pool.Liquidity.Big()
	sqrtPriceX64 := pool.SqrtPriceX64.Big()
	if sqrtPriceX64.Sign() <= 0 {
		return 0, false
	}

	var sqrtPriceLimit *big.Int
	if zeroForOne {
		sqrtPriceLimit = new(big.Int).Add(MIN_SQRT_PRICE_X64.BigInt(), big.NewInt(1))
	} else {
		sqrtPriceLimit = new(big.Int).Sub(MAX_SQRT_PRICE_X64.BigInt(), big.NewInt(1))
	}

	remaining := new(big.Int).SetUint64(amountIn)
	totalOut := new(big.Int)
	visitedArrays := 1
	t := !zeroForOne && int64(tickArrayCurrent.StartTickIndex) == tick

	for remaining.Sign() > 0 && sqrtPriceX64.Cmp(sqrtPriceLimit) != 0 {
		sqrtPriceStart := new(big.Int).Set(sqrtPriceX64)
		nextTickState := getNextInitTick(&tickArrayCurrent, tick, tickSpacing, zeroForOne, t)

		if nextTickState == nil || nextTickState.LiquidityGross.Big().Sign() <= 0 {
			isExist, nextStart, err := nextInitializedTickArrayStartIndexUtils(
				pool.exTickArrayBitmap, tick, tickSpacing, pool.TickArrayBitmap, zeroForOne)
			if err != nil || !isExist {
				break
			}
			visitedArrays++
			if visitedArrays > TickArrayPrefetchCount {
				return 0, false
			}
			nextArray, ok := pool.TickArrayCache[strconv.FormatInt(nextStart, 10)]
			if !ok {
				return 0, false
			}
			tickArrayCurrent = nextArray
			nextTickState, err = firstInitializedTick(&tickArrayCurrent, zeroForOne)
			if err != nil {
				return 0, false
			}
		}

		tickNext := int64(nextTickState.Tick)
		initialized := nextTickState.LiquidityGross.Big().Sign() > 0
		if tickNext < MIN_TICK {
			tickNext = MIN_TICK
		} else if tickNext > MAX_TICK {
			tickNext = MAX_TICK
		}

		sqrtPriceNextTickCos, err := getSqrtPriceX64FromTick(tickNext)
		if err != nil {
			return 0, false
		}
		sqrtPriceNextTick := sqrtPriceNextTickCos.BigInt()

		target := sqrtPriceNextTick
		if zeroForOne && sqrtPriceNextTick.Cmp(sqrtPriceLimit) < 0 {
			target = sqrtPriceLimit
		} else if !zeroForOne && sqrtPriceNextTick.Cmp(sqrtPriceLimit) > 0 {
			target = sqrtPriceLimit
		}

		step, ok := computeSwapStep(sqrtPriceX64, target, liquidity, remaining, pool.FeeRate, zeroForOne)
		if !ok {
			return 0, false
		}

		spent := new(big.Int).Add(step.AmountIn, step.FeeAmount)
		if spent.Cmp(remaining) > 0 {
			return 0, false
		}
		remaining = new(big.Int).Sub(remaining, spent)
		totalOut = totalOut.Add(totalOut, step.AmountOut)
		sqrtPriceX64 = step.SqrtPriceNext

		if sqrtPriceX64.Cmp(sqrtPriceNextTick) == 0 {
			if initialized {
				liquidityNet := nextTickState.LiquidityNet
				if zeroForOne {
					liquidityNet = -liquidityNet
				}
				liquidity = new(big.Int).Add(liquidity, big.NewInt(liquidityNet))
				if liquidity.Sign() < 0 {
					return 0, false
				}
			}
			t = tickNext != tick && !zeroForOne && int64(tickArrayCurrent.StartTickIndex) == tickNext
			if zeroForOne {
				tick = tickNext - 1
			} else {
				tick = tickNext
			}
		} else if sqrtPriceX64.Cmp(sqrtPriceStart) != 0 {
			newTick, err := getTickFromSqrtPriceX64(cosmath.NewIntFromBigInt(sqrtPriceX64))
			if err != nil {
				return 0, false
			}
			t = newTick != tick && !zeroForOne && int64(tickArrayCurrent.StartTickIndex) == newTick
			tick = newTick
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
