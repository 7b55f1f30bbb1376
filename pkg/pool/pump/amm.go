// Package pump implements the PumpFun AMM (Shape B constant-product) quoter:
// two ceiling-rounded basis-point fee components — an LP fee and a protocol
// fee — taken off the input before the invariant swap, both read from a
// pool-independent GlobalConfig account rather than the pool itself.
package pump

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/byteutil"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/fixedpoint"
	"lukechampine.com/uint128"
)

// PumpSwapProgramID is the PumpFun AMM program.
var PumpSwapProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

const (
	// PoolDataSize represents the expected size of pool data in bytes
	PoolDataSize = 211

	// DefaultSpan represents the default span value for the pool
	DefaultSpan = 300

	// BaseMintOffset represents the offset for BaseMint in the pool data
	BaseMintOffset = 43

	// QuoteMintOffset represents the offset for QuoteMint in the pool data
	QuoteMintOffset = BaseMintOffset + 32
)

// PumpAMMPool represents an AMM pool for the Pump protocol
type PumpAMMPool struct {
	Discriminator         [8]uint8 `bin:"skip"`
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LpMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LpSupply              uint64
	CoinCreator           solana.PublicKey

	PoolId solana.PublicKey

	// LpFeeBasisPoints and ProtocolFeeBasisPoints come off the pool's
	// GlobalConfig PDA (seeds ["global_config"]), not the pool account
	// itself — see GlobalConfig below.
	LpFeeBasisPoints       uint64
	ProtocolFeeBasisPoints uint64
}

func (pool *PumpAMMPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNamePumpAmm
}

func (pool *PumpAMMPool) GetProgramID() solana.PublicKey {
	return PumpSwapProgramID
}

// Span returns the default span value for the pool
func (p *PumpAMMPool) Span() uint64 {
	return uint64(DefaultSpan)
}

// Offset returns the byte offset for a given field in the pool data
func (p *PumpAMMPool) Offset(value string) uint64 {
	switch value {
	case "BaseMint":
		return BaseMintOffset
	case "QuoteMint":
		return QuoteMintOffset
	default:
		return 0
	}
}

// Decode decodes the pool data from bytes
func (p *PumpAMMPool) Decode(data []byte) error {
	if len(data) < PoolDataSize {
		return fmt.Errorf("data too short: expected %d bytes, got %d", PoolDataSize, len(data))
	}
	dec := bin.NewBinDecoder(data)
	return dec.Decode(p)
}

// ParsePoolData parses the raw pool data into a PumpAMMPool struct
func ParsePoolData(data []byte) (*PumpAMMPool, error) {
	if len(data) < PoolDataSize {
		return nil, fmt.Errorf("data too short: expected %d bytes, got %d", PoolDataSize, len(data))
	}

	layout := &PumpAMMPool{}
	layout.PoolBump = uint8(data[8])
	layout.Index = binary.LittleEndian.Uint16(data[9:11])

	offset := 11
	layout.Creator = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	layout.BaseMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	layout.QuoteMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	layout.LpMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	layout.PoolBaseTokenAccount = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	layout.PoolQuoteTokenAccount = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	layout.LpSupply = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	if len(data[offset:]) >= 32 {
		layout.CoinCreator = solana.PublicKeyFromBytes(data[offset : offset+32])
	}

	return layout, nil
}

func (l *PumpAMMPool) GetID() string {
	return l.PoolId.String()
}

func (l *PumpAMMPool) GetTokens() (string, string) {
	return l.BaseMint.String(), l.QuoteMint.String()
}

// GlobalConfigSeed is the single PDA seed for the program-wide fee config
// account.
const GlobalConfigSeed = "global_config"

// DeriveGlobalConfigPDA derives the GlobalConfig account address.
func DeriveGlobalConfigPDA() (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{[]byte(GlobalConfigSeed)}, PumpSwapProgramID)
	return pda, err
}

// GlobalConfig mirrors the program-wide fee account's byte layout:
// discriminator, admin pubkey, then the two basis-point fee rates this
// quoter needs.
type GlobalConfig struct {
	LpFeeBasisPoints       uint64
	ProtocolFeeBasisPoints uint64
}

// lpFeeBasisPointsOffset and protocolFeeBasisPointsOffset are the byte
// offsets of the two fee fields past the 8-byte discriminator and 32-byte
// admin pubkey.
const (
	lpFeeBasisPointsOffset       = 8 + 32
	protocolFeeBasisPointsOffset = lpFeeBasisPointsOffset + 8
)

// DecodeGlobalConfig reads the two fee fields a quote needs out of a
// GlobalConfig account's raw bytes.
func DecodeGlobalConfig(data []byte) (GlobalConfig, error) {
	if len(data) < protocolFeeBasisPointsOffset+8 {
		return GlobalConfig{}, fmt.Errorf("pump: global config data too short: got %d bytes", len(data))
	}
	return GlobalConfig{
		LpFeeBasisPoints:       byteutil.U64(data[lpFeeBasisPointsOffset:]),
		ProtocolFeeBasisPoints: byteutil.U64(data[protocolFeeBasisPointsOffset:]),
	}, nil
}

// Quote implements Shape B: lp_fee and protocol_fee are each
// ceil(amount_in * basis_points / 10_000), deducted from amount_in before
// the constant-product swap against the raw (non-PnL-adjusted) vault
// balances. ok=false on a missing vault, a fee exceeding the input, or
// overflow.
func (pool *PumpAMMPool) Quote(c *cache.Cache, amountIn uint64, swapDirection bool) (uint64, bool) {
	baseData, ok := c.GetDynamic(pool.PoolBaseTokenAccount)
	if !ok {
		return 0, false
	}
	quoteData, ok := c.GetDynamic(pool.PoolQuoteTokenAccount)
	if !ok {
		return 0, false
	}
	baseAmount, ok := byteutil.VaultBalance(baseData)
	if !ok {
		return 0, false
	}
	quoteAmount, ok := byteutil.VaultBalance(quoteData)
	if !ok {
		return 0, false
	}

	reserveIn, reserveOut := uint128.From64(baseAmount), uint128.From64(quoteAmount)
	if !swapDirection {
		reserveIn, reserveOut = reserveOut, reserveIn
	}

	in := uint128.From64(amountIn)
	basisPoints := uint128.From64(10_000)

	lpFee, _, ok := fixedpoint.CheckedCeilDiv(in.Mul64(pool.LpFeeBasisPoints), basisPoints)
	if !ok {
		return 0, false
	}
	protocolFee, _, ok := fixedpoint.CheckedCeilDiv(in.Mul64(pool.ProtocolFeeBasisPoints), basisPoints)
	if !ok {
		return 0, false
	}

	totalFee := lpFee.Add(protocolFee)
	if totalFee.Cmp(in) > 0 {
		return 0, false
	}
	effective := in.Sub(totalFee)

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
