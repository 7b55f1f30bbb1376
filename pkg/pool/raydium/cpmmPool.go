package raydium

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/byteutil"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/fixedpoint"
	"lukechampine.com/uint128"
)

// CPMMPool represents a Raydium CPMM (Shape C constant-product) pool: a
// single millionths-denominated trade fee read from its AmmConfig account,
// applied with ceiling rounding, then a floor-divided constant-product swap.
type CPMMPool struct {
	AmmConfig          solana.PublicKey // 32 bytes
	PoolCreator        solana.PublicKey // 32 bytes
	Token0Vault        solana.PublicKey // 32 bytes
	Token1Vault        solana.PublicKey // 32 bytes
	LpMint             solana.PublicKey // 32 bytes
	Token0Mint         solana.PublicKey // 32 bytes
	Token1Mint         solana.PublicKey // 32 bytes
	Token0Program      solana.PublicKey // 32 bytes
	Token1Program      solana.PublicKey // 32 bytes
	ObservationKey     solana.PublicKey // 32 bytes
	AuthBump           uint8            // 1 byte
	Status             uint8            // 1 byte
	LpMintDecimals     uint8            // 1 byte
	Mint0Decimals      uint8            // 1 byte
	Mint1Decimals      uint8            // 1 byte
	_padding1          [3]uint8         // 3 bytes padding
	LpSupply           uint64           // 8 bytes
	ProtocolFeesToken0 uint64           // 8 bytes
	ProtocolFeesToken1 uint64           // 8 bytes
	FundFeesToken0     uint64           // 8 bytes
	FundFeesToken1     uint64           // 8 bytes
	OpenTime           uint64           // 8 bytes
	_padding2          [32]uint64       // 256 bytes padding

	PoolId       solana.PublicKey
	TradeFeeRate uint64
}

// CPMMAmmConfig mirrors the fee fields of a Raydium CPMM config account:
// discriminator, bump, disable_create_pool flag, index, then the three
// millionths-denominated fee rates.
type CPMMAmmConfig struct {
	Bump              uint8
	DisableCreatePool uint8
	Index             uint16
	TradeFeeRate      uint64
	ProtocolFeeRate   uint64
	FundFeeRate       uint64
	CreatePoolFee     uint64
}

func (a *CPMMAmmConfig) Decode(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}
	dec := bin.NewBinDecoder(data)
	return dec.Decode(a)
}

func (pool *CPMMPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumCpmm
}

func (pool *CPMMPool) GetProgramID() solana.PublicKey {
	return RAYDIUM_CPMM_PROGRAM_ID
}

func (p *CPMMPool) Decode(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}

	dec := bin.NewBinDecoder(data)
	return dec.Decode(p)
}

func (p *CPMMPool) Span() uint64 {
	return 637 // Total size in bytes (including discriminator)
}

func (p *CPMMPool) Offset(field string) uint64 {
	switch field {
	case "Token0Mint":
		return 8 + 32*5 // discriminator + 5 pubkeys
	case "Token1Mint":
		return 8 + 32*6 // discriminator + 6 pubkeys
	default:
		return 0
	}
}

func (pool *CPMMPool) GetID() string {
	return pool.PoolId.String()
}

func (pool *CPMMPool) GetTokens() (string, string) {
	return pool.Token0Mint.String(), pool.Token1Mint.String()
}

// Quote implements Shape C: trade_fee = ceil(amount_in * trade_fee_rate /
// 1_000_000), then the Uniswap-style invariant swap on the fee-reduced
// amount. ok=false on a missing vault entry, a fee at least the input, or
// overflow.
func (pool *CPMMPool) Quote(c *cache.Cache, amountIn uint64, swapDirection bool) (uint64, bool) {
	vault0Data, ok := c.GetDynamic(pool.Token0Vault)
	if !ok {
		return 0, false
	}
	vault1Data, ok := c.GetDynamic(pool.Token1Vault)
	if !ok {
		return 0, false
	}
	amount0, ok := byteutil.VaultBalance(vault0Data)
	if !ok {
		return 0, false
	}
	amount1, ok := byteutil.VaultBalance(vault1Data)
	if !ok {
		return 0, false
	}

	reserveIn, reserveOut := uint128.From64(amount0), uint128.From64(amount1)
	if !swapDirection {
		reserveIn, reserveOut = reserveOut, reserveIn
	}

	in := uint128.From64(amountIn)
	fee, _, ok := fixedpoint.CheckedCeilDiv(in.Mul64(pool.TradeFeeRate), uint128.From64(1_000_000))
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
