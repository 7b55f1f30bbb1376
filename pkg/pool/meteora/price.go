package meteora

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"

	cosmosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg/cache"
	"lukechampine.com/uint128"
)

// Quote walks bins outward from the pool's active id, swapping against each
// non-empty one in turn until amountIn is exhausted or liquidity runs out.
// swapDirection true means swapping X for Y (swapForY); false means Y for X.
func (pool *MeteoraDlmmPool) Quote(c *cache.Cache, amountIn uint64, swapDirection bool) (uint64, bool) {
	swapForY := swapDirection
	orgActiveId := pool.activeId
	orgVParams := pool.vParameters
	defer func() {
		pool.activeId = orgActiveId
		pool.vParameters = orgVParams
	}()

	if !pool.loadClock(c) {
		return 0, false
	}
	if err := pool.validateSwapActivation(); err != nil {
		return 0, false
	}
	pool.loadBitmapExtension(c)
	pool.UpdateReferences()

	amountLeft := amountIn
	var totalOut uint64
	visited := 0

	for amountLeft > 0 {
		visited++
		if visited > MaxBinArraysPerQuote*BinsPerArray {
			return 0, false
		}

		if pool.bitmapExtension == nil && IsOverflowDefaultBinArrayBitmap(BinIDToBinArrayIndex(pool.activeId)) {
			return 0, false
		}
		activeBinArray, ok := pool.loadBinArray(c)
		if !ok {
			return 0, false
		}

		withinRange, err := activeBinArray.IsBinIDWithinRange(pool.activeId)
		if err != nil {
			return 0, false
		}
		if !withinRange {
			if err := pool.AdvanceActiveBin(swapForY); err != nil {
				return 0, false
			}
			continue
		}

		if err := pool.UpdateVolatilityAccumulator(); err != nil {
			return 0, false
		}

		activeBin, err := activeBinArray.GetBinMut(pool.activeId)
		if err != nil {
			return 0, false
		}

		if !activeBin.IsEmpty(!swapForY) {
			result, err := pool.Swap(activeBin, amountLeft, swapForY)
			if err != nil {
				return 0, false
			}
			amountLeft -= result.amountInWithFees
			totalOut += result.amountOut
		}

		if amountLeft == 0 {
			break
		}
		if err := pool.AdvanceActiveBin(swapForY); err != nil {
			return 0, false
		}
	}

	return totalOut, true
}

// loadClock reads the Solana sysvar clock account out of the cache rather
// than sampling wall-clock time, so a quote against a given cache snapshot
// is reproducible.
func (pool *MeteoraDlmmPool) loadClock(c *cache.Cache) bool {
	data, ok := c.GetDynamic(solana.SysVarClockPubkey)
	if !ok || len(data) < 40 {
		return false
	}
	pool.Clock.Slot = binary.LittleEndian.Uint64(data[0:8])
	pool.Clock.EpochStartTime = binary.LittleEndian.Uint64(data[8:16])
	pool.Clock.Epoch = binary.LittleEndian.Uint64(data[16:24])
	pool.Clock.LeaderScheduleEpoch = binary.LittleEndian.Uint64(data[24:32])
	pool.Clock.UnixTimestamp = binary.LittleEndian.Uint64(data[32:40])
	return true
}

// loadBitmapExtension loads and decodes the pool's bitmap extension account
// from cache, if it has one. A missing or undecodable extension leaves
// pool.bitmapExtension nil; the quote still succeeds as long as it never
// needs to cross into the range the extension would have covered.
func (pool *MeteoraDlmmPool) loadBitmapExtension(c *cache.Cache) {
	var zero solana.PublicKey
	if pool.BitmapExtensionKey == zero {
		pool.bitmapExtension = nil
		return
	}
	data, ok := c.GetDynamic(pool.BitmapExtensionKey)
	if !ok {
		pool.bitmapExtension = nil
		return
	}
	ext, err := ParseBinArrayBitmapExtension(data)
	if err != nil {
		pool.bitmapExtension = nil
		return
	}
	pool.bitmapExtension = ext
}

// loadBinArray fetches and decodes the bin array owning the pool's current
// active id directly from cache.
func (pool *MeteoraDlmmPool) loadBinArray(c *cache.Cache) (*BinArray, bool) {
	idx := BinIDToBinArrayIndex(pool.activeId)
	pda, err := DeriveBinArrayPDA(pool.PoolId, int64(idx))
	if err != nil {
		return nil, false
	}
	data, ok := c.GetDynamic(pda)
	if !ok {
		return nil, false
	}
	arr, err := ParseBinArray(data)
	if err != nil {
		return nil, false
	}
	return &arr, true
}

// validateSwapActivation checks if the swap is allowed based on pair status
// and activation conditions, both read from cached on-chain state rather
// than any wall-clock value.
func (pool *MeteoraDlmmPool) validateSwapActivation() error {
	if pool.status != uint8(PairStatusEnabled) {
		return errors.New("pair is disabled")
	}

	if pool.pairType == uint8(PairTypePermission) {
		var currentPoint uint64
		switch pool.activationType {
		case uint8(ActivationTypeSlot):
			currentPoint = pool.Clock.Slot
		case uint8(ActivationTypeTimestamp):
			currentPoint = pool.Clock.UnixTimestamp
		default:
			return errors.New("invalid activation type")
		}
		if currentPoint < pool.activationPoint {
			return errors.New("pair is not yet activated")
		}
	}
	return nil
}

// UpdateReferences updates the volatility reference parameters based on
// elapsed time since the account's last update, read from the cached clock.
func (pool *MeteoraDlmmPool) UpdateReferences() {
	elapsed := int64(pool.Clock.UnixTimestamp) - pool.vParameters.lastUpdateTimestamp
	if elapsed >= int64(pool.parameters.filterPeriod) {
		pool.vParameters.indexReference = pool.activeId
		if elapsed < int64(pool.parameters.decayPeriod) {
			// Note: JS SDK and Rust SDK have different implementations
			// JS uses multiplication, Rust uses subtraction
			volatilityAccumulator := pool.vParameters.volatilityAccumulator * uint32(pool.parameters.reductionFactor)
			volatilityReference := volatilityAccumulator / BasisPointMax

			pool.vParameters.volatilityReference = volatilityReference
		} else {
			pool.vParameters.volatilityReference = 0
		}
	}
}

// SwapResult represents the result of a swap operation
type SwapResult struct {
	// Amount of token swapped into the bin (including fees)
	amountInWithFees uint64
	// Amount of token swapped out from the bin
	amountOut uint64
	// Swap fee, includes protocol fee
	fee uint64
	// Protocol fee portion
	protocolFee uint64
}

// Swap performs a swap operation on a specific bin
func (pool *MeteoraDlmmPool) Swap(bin *Bin, amountIn uint64, swapForY bool) (*SwapResult, error) {
	price, err := bin.GetOrStoreBinPrice(pool.activeId, pool.binStep)
	if err != nil {
		return nil, fmt.Errorf("failed to get bin price: %w", err)
	}

	maxAmountOut := bin.GetMaxAmountOut(swapForY)
	maxAmountIn, err := bin.GetMaxAmountIn(price, swapForY)
	if err != nil {
		return nil, fmt.Errorf("failed to get max amount in: %w", err)
	}
	maxFee, err := pool.ComputeFee(maxAmountIn.Uint64())
	if err != nil {
		return nil, fmt.Errorf("failed to compute max fee: %w", err)
	}
	maxAmountIn = maxAmountIn.Add(maxAmountIn, big.NewInt(int64(maxFee))) // Go automatically checks overflow

	var (
		amountInWithFees uint64
		amountOut        uint64
		fee              uint64
		protocolFee      uint64
	)

	// Determine actual swap amount and fees
	if amountIn > maxAmountIn.Uint64() {
		amountInWithFees = maxAmountIn.Uint64()
		amountOut = maxAmountOut
		fee = maxFee
		protocolFee, err = pool.ComputeProtocolFee(maxFee)
		if err != nil {
			return nil, fmt.Errorf("failed to compute protocol fee: %w", err)
		}
	} else {
		fee, err = pool.ComputeFeeFromAmount(amountIn)
		if err != nil {
			return nil, fmt.Errorf("failed to compute fee from amount: %w", err)
		}
		amountInAfterFee := amountIn - fee
		amountOutTemp, err := bin.GetAmountOut(amountInAfterFee, price, swapForY)
		if err != nil {
			return nil, fmt.Errorf("failed to get amount out: %w", err)
		}

		amountOut = min(amountOutTemp.Uint64(), maxAmountOut)
		amountInWithFees = amountIn

		protocolFee, err = pool.ComputeProtocolFee(fee)
		if err != nil {
			return nil, fmt.Errorf("failed to compute protocol fee: %w", err)
		}
	}

	amountIntoBin := amountInWithFees - fee

	// Update bin amounts
	if swapForY {
		bin.amountX += amountIntoBin
		if bin.amountY < amountOut {
			return nil, fmt.Errorf("insufficient Y amount")
		}
		bin.amountY -= amountOut
	} else {
		bin.amountY += amountIntoBin
		if bin.amountX < amountOut {
			return nil, fmt.Errorf("insufficient X amount")
		}
		bin.amountX -= amountOut
	}

	return &SwapResult{
		amountInWithFees: amountInWithFees,
		amountOut:        amountOut,
		fee:              fee,
		protocolFee:      protocolFee,
	}, nil
}

// NextBinArrayIndexWithLiquidityInternal scans the pool's own bitmap for the
// next array index with liquidity, starting at startArrayIndex and moving in
// the swap's direction.
func (pool *MeteoraDlmmPool) NextBinArrayIndexWithLiquidityInternal(swapForY bool, startArrayIndex int32) (int32, bool, error) {
	minBitmapID, maxBitmapID := BitmapRange()
	if swapForY {
		for idx := startArrayIndex; idx >= minBitmapID; idx-- {
			if pool.binArrayBitmapHasLiquidity(idx) {
				return idx, true, nil
			}
		}
		return minBitmapID - 1, false, nil
	}
	for idx := startArrayIndex; idx <= maxBitmapID; idx++ {
		if pool.binArrayBitmapHasLiquidity(idx) {
			return idx, true, nil
		}
	}
	return maxBitmapID + 1, false, nil
}

func (pool *MeteoraDlmmPool) binArrayBitmapHasLiquidity(arrayIndex int32) bool {
	if IsOverflowDefaultBinArrayBitmap(arrayIndex) {
		return false
	}
	bitPos := GetBinArrayOffset(arrayIndex)
	return pool.binArrayBitmap[bitPos/64]&(1<<uint(bitPos%64)) != 0
}

// UpdateVolatilityAccumulator updates the volatility accumulator based on index changes
func (pool *MeteoraDlmmPool) UpdateVolatilityAccumulator() error {
	// Calculate delta_id (absolute difference of indices)
	deltaID := int64(pool.vParameters.indexReference) - int64(pool.activeId)

	// Take absolute value
	if deltaID < 0 {
		deltaID = -deltaID
	}

	// Calculate deltaID * BASIS_POINT_MAX
	deltaIdWithBasisPoint := deltaID * int64(BasisPointMax)

	// Calculate volatility_accumulator
	volatilityAccumulator := uint64(pool.vParameters.volatilityReference) + uint64(deltaIdWithBasisPoint)

	// Take the smaller value
	minValue := uint64(math.Min(
		float64(volatilityAccumulator),
		float64(pool.parameters.maxVolatilityAccumulator),
	))

	// Update accumulator value
	pool.vParameters.volatilityAccumulator = uint32(minValue)

	return nil
}

// ComputeProtocolFee calculates the protocol fee from the total fee amount
func (pool *MeteoraDlmmPool) ComputeProtocolFee(feeAmount uint64) (uint64, error) {
	feeAmountBig := uint128.From64(feeAmount)
	protocolShare := uint128.From64(uint64(pool.parameters.protocolShare))
	protocolFee := feeAmountBig.Mul(protocolShare)
	protocolFee = protocolFee.Div(uint128.From64(BasisPointMax))
	if protocolFee.Hi != 0 {
		return 0, fmt.Errorf("protocol fee exceeds uint64 range")
	}
	return protocolFee.Lo, nil
}

// ComputeFeeFromAmount calculates the fee from an amount including fees
func (pool *MeteoraDlmmPool) ComputeFeeFromAmount(amountWithFees uint64) (uint64, error) {
	totalFeeRate, err := pool.GetTotalFee()
	if err != nil {
		return 0, fmt.Errorf("failed to get total fee: %w", err)
	}

	amount := new(big.Int).SetUint64(amountWithFees)
	feeAmount := new(big.Int).Mul(amount, totalFeeRate)
	feeAmount = feeAmount.Add(feeAmount, big.NewInt(FeePrecision-1))
	feeAmount = feeAmount.Div(feeAmount, big.NewInt(FeePrecision))

	if !feeAmount.IsUint64() {
		return 0, fmt.Errorf("fee exceeds uint64 range")
	}
	return feeAmount.Uint64(), nil
}

// GetTotalFee calculates the total fee rate by combining base and variable fees
func (pool *MeteoraDlmmPool) GetTotalFee() (*big.Int, error) {
	baseFee, err := pool.GetBaseFee()
	if err != nil {
		return big.NewInt(0), fmt.Errorf("failed to get base fee: %w", err)
	}

	variableFee, err := pool.GetVariableFee()
	if err != nil {
		return big.NewInt(0), fmt.Errorf("failed to get variable fee: %w", err)
	}
	totalFeeRate := baseFee.Add(baseFee, variableFee)

	maxFeeRate := big.NewInt(MaxFeeRate)
	if totalFeeRate.Cmp(maxFeeRate) > 0 {
		totalFeeRate = maxFeeRate
	}

	return totalFeeRate, nil
}

// GetBaseFee calculates the base fee based on pool parameters
func (pool *MeteoraDlmmPool) GetBaseFee() (*big.Int, error) {
	result := new(big.Int).SetUint64(uint64(pool.parameters.baseFactor))
	result.Mul(result, new(big.Int).SetUint64(uint64(pool.binStep)))
	result.Mul(result, big.NewInt(10))

	powerOf10 := new(big.Int).Exp(
		big.NewInt(10),
		new(big.Int).SetUint64(uint64(pool.parameters.baseFeePowerFactor)),
		nil,
	)
	result.Mul(result, powerOf10)

	if result.BitLen() > 128 {
		return big.NewInt(0), fmt.Errorf("result exceeds uint128 range")
	}
	return result, nil
}

// GetVariableFee gets the variable fee based on current volatility accumulator
func (pool *MeteoraDlmmPool) GetVariableFee() (*big.Int, error) {
	return pool.ComputeVariableFee(pool.vParameters.volatilityAccumulator)
}

// ComputeVariableFee calculates the variable fee based on volatility accumulator
func (pool *MeteoraDlmmPool) ComputeVariableFee(volatilityAccumulator uint32) (*big.Int, error) {
	if pool.parameters.variableFeeControl == 0 {
		return big.NewInt(0), nil
	}

	volatilityAccumulatorBig := cosmosmath.NewInt(int64(volatilityAccumulator))
	binStep := cosmosmath.NewInt(int64(pool.binStep))
	variableFeeControl := cosmosmath.NewInt(int64(pool.parameters.variableFeeControl))

	squareVfaBin := volatilityAccumulatorBig.Mul(binStep)
	squareVfaBin = squareVfaBin.Mul(squareVfaBin)
	vFee := variableFeeControl.Mul(squareVfaBin)
	scaledVFee := vFee.Add(cosmosmath.NewInt(99_999_999_999))
	divisor := cosmosmath.NewInt(100_000_000_000)
	scaledVFee = scaledVFee.Quo(divisor)

	return scaledVFee.BigInt(), nil
}

// AdvanceActiveBin advances the active bin ID based on swap direction
func (pool *MeteoraDlmmPool) AdvanceActiveBin(swapForY bool) error {
	var nextActiveBinID int32

	if swapForY {
		if pool.activeId == math.MinInt32 {
			return fmt.Errorf("bin id underflow")
		}
		nextActiveBinID = pool.activeId - 1
	} else {
		if pool.activeId == math.MaxInt32 {
			return fmt.Errorf("bin id overflow")
		}
		nextActiveBinID = pool.activeId + 1
	}

	if nextActiveBinID < MinBinID || nextActiveBinID > MaxBinID {
		return fmt.Errorf("insufficient liquidity: bin id %d out of range [%d, %d]",
			nextActiveBinID, MinBinID, MaxBinID)
	}

	pool.activeId = nextActiveBinID
	return nil
}

// GetBinArrayPubkeysForSwap enumerates the bin array accounts a snapshot
// loader needs to fetch: up to takeCount bin arrays in the given direction,
// consulting the pool's own bitmap first and its extension once that range
// is exhausted.
func (pool *MeteoraDlmmPool) GetBinArrayPubkeysForSwap(swapForY bool, takeCount uint8) ([]solana.PublicKey, error) {
	binArrayPubkeys := make([]solana.PublicKey, 0)

	startBinArrayIdx := int64(BinIDToBinArrayIndex(pool.activeId))

	increment := int64(1)
	if swapForY {
		increment = -1
	}
	for i := 0; i < int(takeCount); i++ {
		if IsOverflowDefaultBinArrayBitmap(int32(startBinArrayIdx)) {
			if pool.bitmapExtension == nil {
				break
			}
			nextBinArrayIdx, hasLiquidity, err := pool.bitmapExtension.NextBinArrayIndexWithLiquidity(swapForY, int32(startBinArrayIdx))
			if err != nil {
				break
			}
			if hasLiquidity {
				pda, _ := DeriveBinArrayPDA(pool.PoolId, int64(nextBinArrayIdx))
				binArrayPubkeys = append(binArrayPubkeys, pda)
				startBinArrayIdx = int64(nextBinArrayIdx) + increment
			} else {
				startBinArrayIdx = int64(nextBinArrayIdx)
			}
		} else {
			nextBinArrayIdx, hasLiquidity, err := pool.NextBinArrayIndexWithLiquidityInternal(swapForY, int32(startBinArrayIdx))
			if err != nil {
				break
			}
			if hasLiquidity {
				pda, _ := DeriveBinArrayPDA(pool.PoolId, int64(nextBinArrayIdx))
				binArrayPubkeys = append(binArrayPubkeys, pda)
				startBinArrayIdx = int64(nextBinArrayIdx) + increment
			} else {
				startBinArrayIdx = int64(nextBinArrayIdx)
			}
		}
	}

	return binArrayPubkeys, nil
}
