package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/anchor"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/pool/dammv2"
	"github.com/Islinces/solquote/pkg/sol"
)

// MeteoraDammV2Protocol discovers and loads Meteora DAMM v2 pools.
type MeteoraDammV2Protocol struct {
	SolClient *sol.Client
}

func NewMeteoraDammV2(solClient *sol.Client) *MeteoraDammV2Protocol {
	return &MeteoraDammV2Protocol{
		SolClient: solClient,
	}
}

func (p *MeteoraDammV2Protocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameMeteoraDammV2
}

func (p *MeteoraDammV2Protocol) DiscoverPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]solana.PublicKey, error) {
	baseKey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quoteKey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	var layout dammv2.Pool
	result, err := p.SolClient.GetProgramAccountsWithOpts(ctx, dammv2.ProgramID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{
				DataSize: layout.Span(),
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  anchor.GetDiscriminator("account", "Pool"),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: layout.Offset("TokenAMint"),
					Bytes:  baseKey.Bytes(),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: layout.Offset("TokenBMint"),
					Bytes:  quoteKey.Bytes(),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}

	keys := make([]solana.PublicKey, 0, len(result))
	for _, v := range result {
		keys = append(keys, v.Pubkey)
	}
	return keys, nil
}

// LoadPool fetches and decodes the pool account and seeds the cache with
// both token vaults so Quote can run against cached bytes alone.
func (p *MeteoraDammV2Protocol) LoadPool(ctx context.Context, c *cache.Cache, poolID solana.PublicKey) (pkg.Quoter, error) {
	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolID, err)
	}

	layout := &dammv2.Pool{}
	if err := layout.Decode(account.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to decode pool data for %s: %w", poolID, err)
	}
	layout.PoolId = poolID

	vaultResult, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, []solana.PublicKey{layout.TokenAVault, layout.TokenBVault})
	if err != nil {
		return nil, fmt.Errorf("failed to get vault accounts for %s: %w", poolID, err)
	}
	if len(vaultResult.Value) != 2 || vaultResult.Value[0] == nil || vaultResult.Value[1] == nil {
		return nil, fmt.Errorf("missing vault account data for pool %s", poolID)
	}
	c.PutDynamic(layout.TokenAVault, vaultResult.Value[0].Data.GetBinary())
	c.PutDynamic(layout.TokenBVault, vaultResult.Value[1].Data.GetBinary())

	return layout, nil
}
