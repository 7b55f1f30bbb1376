// Package protocol wires each supported DEX's discovery-time account layout
// to the quote-time Quoter types in pkg/pool — resolving a token pair or pool
// id to on-chain addresses, then seeding a cache.Cache with the bytes a
// Quote call needs so the hot path never touches the network.
package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/pool/raydium"
	"github.com/Islinces/solquote/pkg/sol"
)

// RaydiumAMMProtocol discovers and loads Raydium's original AMM v4 pools.
type RaydiumAMMProtocol struct {
	SolClient *sol.Client
}

func NewRaydiumAmm(solClient *sol.Client) *RaydiumAMMProtocol {
	return &RaydiumAMMProtocol{
		SolClient: solClient,
	}
}

func (p *RaydiumAMMProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumAmm
}

// DiscoverPoolsByPair returns every AMM v4 pool address trading baseMint
// against quoteMint.
func (p *RaydiumAMMProtocol) DiscoverPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]solana.PublicKey, error) {
	accounts, err := p.getAMMPoolAccountsByTokenPair(ctx, baseMint, quoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with base token %s: %w", baseMint, err)
	}
	keys := make([]solana.PublicKey, 0, len(accounts))
	for _, v := range accounts {
		keys = append(keys, v.Pubkey)
	}
	return keys, nil
}

func (p *RaydiumAMMProtocol) getAMMPoolAccountsByTokenPair(ctx context.Context, baseMint string, quoteMint string) (rpc.GetProgramAccountsResult, error) {
	var layout raydium.AMMPool
	baseMintPubkey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quoteMintPubkey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	return p.SolClient.GetProgramAccountsWithOpts(ctx, raydium.RAYDIUM_AMM_PROGRAM_ID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{
				DataSize: layout.Span(),
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: layout.Offset("BaseMint"),
					Bytes:  baseMintPubkey.Bytes(),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: layout.Offset("QuoteMint"),
					Bytes:  quoteMintPubkey.Bytes(),
				},
			},
		},
	})
}

// LoadPool fetches and decodes the pool account and seeds the cache with
// both token vaults so Quote can run against cached bytes alone.
func (p *RaydiumAMMProtocol) LoadPool(ctx context.Context, c *cache.Cache, poolID solana.PublicKey) (pkg.Quoter, error) {
	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolID, err)
	}

	layout := &raydium.AMMPool{}
	if err := layout.Decode(account.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to decode pool data for %s: %w", poolID, err)
	}
	layout.PoolId = poolID

	if err := p.seedVaults(ctx, c, layout); err != nil {
		return nil, err
	}
	return layout, nil
}

func (p *RaydiumAMMProtocol) seedVaults(ctx context.Context, c *cache.Cache, layout *raydium.AMMPool) error {
	result, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, []solana.PublicKey{layout.BaseVault, layout.QuoteVault})
	if err != nil {
		return fmt.Errorf("failed to get vault accounts: %w", err)
	}
	if len(result.Value) != 2 || result.Value[0] == nil || result.Value[1] == nil {
		return fmt.Errorf("missing vault account data for pool %s", layout.PoolId)
	}
	c.PutDynamic(layout.BaseVault, result.Value[0].Data.GetBinary())
	c.PutDynamic(layout.QuoteVault, result.Value[1].Data.GetBinary())
	return nil
}
