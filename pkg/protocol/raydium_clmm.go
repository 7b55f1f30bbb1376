package protocol

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/anchor"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/pool/raydium"
	"github.com/Islinces/solquote/pkg/sol"
)

// RaydiumClmmProtocol discovers and loads Raydium's concentrated-liquidity
// (CLMM) pools.
type RaydiumClmmProtocol struct {
	SolClient *sol.Client
}

func NewRaydiumClmm(solClient *sol.Client) *RaydiumClmmProtocol {
	return &RaydiumClmmProtocol{
		SolClient: solClient,
	}
}

func (p *RaydiumClmmProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumClmm
}

func (p *RaydiumClmmProtocol) DiscoverPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]solana.PublicKey, error) {
	accounts, err := p.getCLMMPoolAccountsByTokenPair(ctx, baseMint, quoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with base token %s: %w", baseMint, err)
	}
	keys := make([]solana.PublicKey, 0, len(accounts))
	for _, v := range accounts {
		keys = append(keys, v.Pubkey)
	}
	return keys, nil
}

func (p *RaydiumClmmProtocol) getCLMMPoolAccountsByTokenPair(ctx context.Context, baseMint string, quoteMint string) (rpc.GetProgramAccountsResult, error) {
	baseKey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quoteKey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	var knownPoolLayout raydium.CLMMPool
	result, err := p.SolClient.GetProgramAccountsWithOpts(ctx, raydium.RAYDIUM_CLMM_PROGRAM_ID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{
				DataSize: uint64(knownPoolLayout.Span()),
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  anchor.GetDiscriminator("account", "PoolState"),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: knownPoolLayout.Offset("TokenMint0"),
					Bytes:  baseKey.Bytes(),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: knownPoolLayout.Offset("TokenMint1"),
					Bytes:  quoteKey.Bytes(),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}

	return result, nil
}

// LoadPool fetches and decodes the pool account, its AmmConfig fee rate and
// tick-array bitmap extension, and seeds the cache with both token vaults
// plus a bounded prefetch window of tick arrays around the current tick so
// Quote never needs the network mid-walk.
func (p *RaydiumClmmProtocol) LoadPool(ctx context.Context, c *cache.Cache, poolID solana.PublicKey) (pkg.Quoter, error) {
	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolID, err)
	}

	data := account.Value.Data.GetBinary()
	layout := &raydium.CLMMPool{}
	if err := layout.Decode(data); err != nil {
		return nil, fmt.Errorf("failed to decode pool data for %s: %w", poolID, err)
	}
	layout.PoolId = poolID

	ammConfigData, err := p.SolClient.GetAccountInfoWithOpts(ctx, layout.AmmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get amm config for %s: %w", poolID, err)
	}
	feeRate, err := parseAmmConfig(ammConfigData.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to parse amm config for %s: %w", poolID, err)
	}
	layout.FeeRate = feeRate

	exBitmapAddress, _, err := raydium.GetPdaExBitmapAccount(raydium.RAYDIUM_CLMM_PROGRAM_ID, layout.PoolId)
	if err != nil {
		return nil, fmt.Errorf("failed to derive bitmap extension for %s: %w", poolID, err)
	}
	layout.ExBitmapAddress = exBitmapAddress

	exBitmapAccount, err := p.SolClient.GetAccountInfoWithOpts(ctx, exBitmapAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get bitmap extension for %s: %w", poolID, err)
	}
	c.PutStatic(exBitmapAddress, exBitmapAccount.Value.Data.GetBinary())

	vaultResult, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, []solana.PublicKey{layout.TokenVault0, layout.TokenVault1})
	if err != nil {
		return nil, fmt.Errorf("failed to get vault accounts for %s: %w", poolID, err)
	}
	if len(vaultResult.Value) != 2 || vaultResult.Value[0] == nil || vaultResult.Value[1] == nil {
		return nil, fmt.Errorf("missing vault account data for pool %s", poolID)
	}
	c.PutDynamic(layout.TokenVault0, vaultResult.Value[0].Data.GetBinary())
	c.PutDynamic(layout.TokenVault1, vaultResult.Value[1].Data.GetBinary())

	layout.LoadTickArraysFromCache(c)
	tickArrayAddresses, err := layout.GetTickArrayAddresses()
	if err == nil && len(tickArrayAddresses) > 0 {
		tickArrayResult, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, tickArrayAddresses)
		if err == nil {
			for i, addr := range tickArrayAddresses {
				if i < len(tickArrayResult.Value) && tickArrayResult.Value[i] != nil {
					c.PutDynamic(addr, tickArrayResult.Value[i].Data.GetBinary())
				}
			}
		}
		layout.LoadTickArraysFromCache(c)
	}

	return layout, nil
}

func parseAmmConfig(data []byte) (uint32, error) {
	var ammConfig AmmConfig
	if err := ammConfig.Decode(data); err != nil {
		return 0, fmt.Errorf("failed to decode amm config: %w", err)
	}
	return ammConfig.TradeFeeRate, nil
}

type AmmConfig struct {
	Bump            uint8
	Index           uint16
	Owner           solana.PublicKey
	ProtocolFeeRate uint32
	TradeFeeRate    uint32
	TickSpacing     uint16
	FundFeeRate     uint32
	PaddingU32      uint32
	FundOwner       solana.PublicKey
	Padding         [3]uint64
}

func (l *AmmConfig) Decode(data []byte) error {
	// Skip 8 bytes discriminator if present
	if len(data) > 8 {
		data = data[8:]
	}

	dec := bin.NewBinDecoder(data)
	return dec.Decode(l)
}
