package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/anchor"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/pool/orca"
	"github.com/Islinces/solquote/pkg/sol"
)

// OrcaWhirlpoolProtocol discovers and loads Orca Whirlpool concentrated-
// liquidity pools.
type OrcaWhirlpoolProtocol struct {
	SolClient *sol.Client
}

func NewOrcaWhirlpool(solClient *sol.Client) *OrcaWhirlpoolProtocol {
	return &OrcaWhirlpoolProtocol{
		SolClient: solClient,
	}
}

func (p *OrcaWhirlpoolProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameOrcaWhirlpool
}

func (p *OrcaWhirlpoolProtocol) DiscoverPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]solana.PublicKey, error) {
	baseKey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quoteKey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	var layout orca.WhirlpoolPool
	result, err := p.SolClient.GetProgramAccountsWithOpts(ctx, orca.WhirlpoolProgramID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{
				DataSize: layout.Span(),
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  anchor.GetDiscriminator("account", "Whirlpool"),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: layout.Offset("TokenMintA"),
					Bytes:  baseKey.Bytes(),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: layout.Offset("TokenMintB"),
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

// LoadPool fetches and decodes the whirlpool account, seeds the cache with
// both token vaults, and prefetches the array containing the current tick
// plus one neighbor on each side. Quote never uses the network mid-walk; a
// walk that needs an array beyond that set returns no quote.
func (p *OrcaWhirlpoolProtocol) LoadPool(ctx context.Context, c *cache.Cache, poolID solana.PublicKey) (pkg.Quoter, error) {
	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolID, err)
	}

	layout := &orca.WhirlpoolPool{}
	if err := layout.Decode(account.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to decode pool data for %s: %w", poolID, err)
	}
	layout.PoolId = poolID

	vaultResult, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, []solana.PublicKey{layout.TokenVaultA, layout.TokenVaultB})
	if err != nil {
		return nil, fmt.Errorf("failed to get vault accounts for %s: %w", poolID, err)
	}
	if len(vaultResult.Value) != 2 || vaultResult.Value[0] == nil || vaultResult.Value[1] == nil {
		return nil, fmt.Errorf("missing vault account data for pool %s", poolID)
	}
	c.PutDynamic(layout.TokenVaultA, vaultResult.Value[0].Data.GetBinary())
	c.PutDynamic(layout.TokenVaultB, vaultResult.Value[1].Data.GetBinary())

	tickArrayAddresses, err := orca.TickArrayPrefetchAddresses(layout.PoolId, layout.TickCurrentIndex, layout.TickSpacing)
	if err == nil && len(tickArrayAddresses) > 0 {
		tickArrayResult, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, tickArrayAddresses)
		if err == nil {
			for i, addr := range tickArrayAddresses {
				if i < len(tickArrayResult.Value) && tickArrayResult.Value[i] != nil {
					c.PutStatic(addr, tickArrayResult.Value[i].Data.GetBinary())
				}
			}
		}
	}

	return layout, nil
}
