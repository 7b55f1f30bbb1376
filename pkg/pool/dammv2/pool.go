// Package dammv2 implements a Meteora DAMM v2 quoter.
//
// The quoter treats the pool as a constant-product pair with a single
// on-chain trade fee (round-up fee, floor the swap), the same conservative
// shape pkg/pool/raydium's CPMMPool uses. It deliberately does not model the
// dynamic fee schedule; a pool whose fee state this subset cannot represent
// simply quotes slightly pessimistically, which is the safe direction.
package dammv2

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/byteutil"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/fixedpoint"
	"lukechampine.com/uint128"
)

// ProgramID is the Meteora DAMM v2 program.
var ProgramID = solana.MustPublicKeyFromBase58("cpamdpZCGKUy5JxQXB4dcpGPiikHawvSWAd6mEn1sGG")

// TradeFeeDenominator is the denominator the pool's trade fee numerator is
// expressed against (millionths, the same scale Raydium CPMM uses).
const TradeFeeDenominator = 1_000_000

// Pool is a Meteora DAMM v2 pool: two token vaults and a single trade fee
// numerator, quoted as a constant-product pair. There is no
// AmmConfig-equivalent account, so the fee numerator is read directly off
// the pool account.
type Pool struct {
	TokenAMint  solana.PublicKey
	TokenBMint  solana.PublicKey
	TokenAVault solana.PublicKey
	TokenBVault solana.PublicKey

	TradeFeeNumerator uint64

	PoolId solana.PublicKey
}

func (pool *Pool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameMeteoraDammV2
}

func (pool *Pool) GetProgramID() solana.PublicKey {
	return ProgramID
}

func (pool *Pool) GetID() string {
	return pool.PoolId.String()
}

func (pool *Pool) GetTokens() (baseMint, quoteMint string) {
	return pool.TokenAMint.String(), pool.TokenBMint.String()
}

// Span is this quoter's assumed account size: 4 pubkeys plus an 8-byte fee
// numerator, discriminator included. Accounts this size and shape are the
// conservative subset this package reads; anything smaller is rejected by
// Decode rather than guessed at.
func (pool *Pool) Span() uint64 { return 8 + 32*4 + 8 }

// Offset returns the byte offset of the named field, for RPC memcmp filters.
func (pool *Pool) Offset(field string) uint64 {
	const base = 8
	switch field {
	case "TokenAMint":
		return base
	case "TokenBMint":
		return base + 32
	default:
		return 0
	}
}

// Decode reads the four account pubkeys and fee numerator this quoter
// needs, in the conservative layout Span/Offset describe.
func (pool *Pool) Decode(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}
	dec := bin.NewBinDecoder(data)
	if err := dec.Decode(&pool.TokenAMint); err != nil {
		return err
	}
	if err := dec.Decode(&pool.TokenBMint); err != nil {
		return err
	}
	if err := dec.Decode(&pool.TokenAVault); err != nil {
		return err
	}
	if err := dec.Decode(&pool.TokenBVault); err != nil {
		return err
	}
	return dec.Decode(&pool.TradeFeeNumerator)
}

// Quote applies a single round-up trade fee, then a floor-divided
// constant-product swap on the fee-reduced amount, the same shape
// pkg/pool/raydium's CPMMPool uses.
func (pool *Pool) Quote(c *cache.Cache, amountIn uint64, swapDirection bool) (uint64, bool) {
	vaultAData, ok := c.GetDynamic(pool.TokenAVault)
	if !ok {
		return 0, false
	}
	vaultBData, ok := c.GetDynamic(pool.TokenBVault)
	if !ok {
		return 0, false
	}
	amountA, ok := byteutil.VaultBalance(vaultAData)
	if !ok {
		return 0, false
	}
	amountB, ok := byteutil.VaultBalance(vaultBData)
	if !ok {
		return 0, false
	}

	reserveIn, reserveOut := uint128.From64(amountA), uint128.From64(amountB)
	if !swapDirection {
		reserveIn, reserveOut = reserveOut, reserveIn
	}

	in := uint128.From64(amountIn)
	fee, _, ok := fixedpoint.CheckedCeilDiv(in.Mul64(pool.TradeFeeNumerator), uint128.From64(TradeFeeDenominator))
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
