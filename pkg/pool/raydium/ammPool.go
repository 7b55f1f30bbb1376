// Package raydium implements the Raydium AMM, CLMM and CPMM pool types.
package raydium

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/byteutil"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/fixedpoint"
	"lukechampine.com/uint128"
)

// AMMPool represents a Raydium AMM (Shape A constant-product) liquidity pool
// with all its on-chain fields and state.
type AMMPool struct {
	// Pool status and configuration
	Status                 uint64
	Nonce                  uint64
	MaxOrder               uint64
	Depth                  uint64
	BaseDecimal            uint64
	QuoteDecimal           uint64
	State                  uint64
	ResetFlag              uint64
	MinSize                uint64
	VolMaxCutRatio         uint64
	AmountWaveRatio        uint64
	BaseLotSize            uint64
	QuoteLotSize           uint64
	MinPriceMultiplier     uint64
	MaxPriceMultiplier     uint64
	SystemDecimalValue     uint64
	MinSeparateNumerator   uint64
	MinSeparateDenominator uint64
	TradeFeeNumerator      uint64
	TradeFeeDenominator    uint64
	PnlNumerator           uint64
	PnlDenominator         uint64
	SwapFeeNumerator       uint64
	SwapFeeDenominator     uint64

	// Pool state and PnL tracking
	BaseNeedTakePnl     uint64
	QuoteNeedTakePnl    uint64
	QuoteTotalPnl       uint64
	BaseTotalPnl        uint64
	PoolOpenTime        uint64
	PunishPcAmount      uint64
	PunishCoinAmount    uint64
	OrderbookToInitTime uint64

	// Swap related amounts
	SwapBaseInAmount   uint128.Uint128
	SwapQuoteOutAmount uint128.Uint128
	SwapBase2QuoteFee  uint64
	SwapQuoteInAmount  uint128.Uint128
	SwapBaseOutAmount  uint128.Uint128
	SwapQuote2BaseFee  uint64

	// Pool accounts
	BaseVault       solana.PublicKey
	QuoteVault      solana.PublicKey
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	LpMint          solana.PublicKey
	OpenOrders      solana.PublicKey
	MarketId        solana.PublicKey
	MarketProgramId solana.PublicKey
	TargetOrders    solana.PublicKey
	WithdrawQueue   solana.PublicKey
	LpVault         solana.PublicKey
	Owner           solana.PublicKey
	LpReserve       uint64
	Padding         [3]uint64

	PoolId solana.PublicKey
}

func (pool *AMMPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumAmm
}

func (pool *AMMPool) GetProgramID() solana.PublicKey {
	return RAYDIUM_AMM_PROGRAM_ID
}

func (l *AMMPool) Span() uint64 {
	return 752
}

func (l *AMMPool) Offset(value string) uint64 {
	fieldType, found := reflect.TypeOf(*l).FieldByName(value)
	if !found {
		return 0
	}
	return uint64(fieldType.Offset)
}

func (l *AMMPool) DecodeBase64(data string) error {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return err
	}
	return l.Decode(decoded)
}

func (l *AMMPool) Decode(data []byte) error {
	if len(data) < 752 {
		return fmt.Errorf("data too short: expected 752 bytes, got %d", len(data))
	}

	offset := 0

	l.Status = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.Nonce = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.MaxOrder = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.Depth = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.BaseDecimal = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.QuoteDecimal = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.State = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.ResetFlag = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.MinSize = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.VolMaxCutRatio = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.AmountWaveRatio = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.BaseLotSize = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.QuoteLotSize = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.MinPriceMultiplier = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.MaxPriceMultiplier = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.SystemDecimalValue = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.MinSeparateNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.MinSeparateDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.TradeFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.TradeFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.PnlNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.PnlDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.SwapFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.SwapFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.BaseNeedTakePnl = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.QuoteNeedTakePnl = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.QuoteTotalPnl = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.BaseTotalPnl = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.PoolOpenTime = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.PunishPcAmount = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.PunishCoinAmount = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.OrderbookToInitTime = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.SwapBaseInAmount = uint128.FromBytes(data[offset : offset+16])
	offset += 16
	l.SwapQuoteOutAmount = uint128.FromBytes(data[offset : offset+16])
	offset += 16
	l.SwapBase2QuoteFee = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.SwapQuoteInAmount = uint128.FromBytes(data[offset : offset+16])
	offset += 16
	l.SwapBaseOutAmount = uint128.FromBytes(data[offset : offset+16])
	offset += 16
	l.SwapQuote2BaseFee = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	l.BaseVault = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.QuoteVault = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.BaseMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.QuoteMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.LpMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.OpenOrders = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.MarketId = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.MarketProgramId = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.TargetOrders = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.WithdrawQueue = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.LpVault = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	l.Owner = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	l.LpReserve = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	for i := 0; i < 3; i++ {
		l.Padding[i] = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8
	}

	return nil
}

// GetID returns the pool ID.
func (p *AMMPool) GetID() string {
	return p.PoolId.String()
}

// GetTokens returns the base and quote token mints.
func (p *AMMPool) GetTokens() (baseMint, quoteMint string) {
	return p.BaseMint.String(), p.QuoteMint.String()
}

// Quote implements the constant-product Shape A formula: a single
// ceiling-divided swap fee, reserves adjusted by each side's untaken PnL,
// then a floor-divided constant-product step. amount_in/out are always
// expressed in the smallest token unit; ok=false on any missing vault
// balance or overflow.
func (p *AMMPool) Quote(c *cache.Cache, amountIn uint64, swapDirection bool) (uint64, bool) {
	baseVaultData, ok := c.GetDynamic(p.BaseVault)
	if !ok {
		return 0, false
	}
	quoteVaultData, ok := c.GetDynamic(p.QuoteVault)
	if !ok {
		return 0, false
	}
	baseAmount, ok := byteutil.VaultBalance(baseVaultData)
	if !ok {
		return 0, false
	}
	quoteAmount, ok := byteutil.VaultBalance(quoteVaultData)
	if !ok {
		return 0, false
	}

	if baseAmount < p.BaseNeedTakePnl || quoteAmount < p.QuoteNeedTakePnl {
		return 0, false
	}
	coinWithoutPnl := uint128.From64(baseAmount - p.BaseNeedTakePnl)
	pcWithoutPnl := uint128.From64(quoteAmount - p.QuoteNeedTakePnl)

	reserveIn, reserveOut := coinWithoutPnl, pcWithoutPnl
	if !swapDirection {
		reserveIn, reserveOut = pcWithoutPnl, coinWithoutPnl
	}

	in := uint128.From64(amountIn)
	fee, _, ok := fixedpoint.CheckedCeilDiv(in.Mul64(p.SwapFeeNumerator), uint128.From64(p.SwapFeeDenominator))
	if !ok {
		return 0, false
	}
	if fee.Cmp(in) > 0 {
		return 0, false
	}
	effective := in.Sub(fee)

	denom := reserveIn.Add(effective)
	if denom.IsZero() {
		return 0, false
	}
	out, ok := fixedpoint.MulDiv(reserveOut, effective, denom, fixedpoint.Down)
	if !ok {
		return 0, false
	}
	if out.Cmp(reserveOut) >= 0 {
		return 0, false
	}
	if out.Hi != 0 {
		return 0, false
	}
	return out.Lo, true
}
