package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/anchor"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/pool/raydium"
	"github.com/Islinces/solquote/pkg/sol"
)

// RaydiumCpmmProtocol discovers and loads Raydium's constant-product v2
// (CPMM) pools.
type RaydiumCpmmProtocol struct {
	SolClient *sol.Client
}

func NewRaydiumCpmm(solClient *sol.Client) *RaydiumCpmmProtocol {
	return &RaydiumCpmmProtocol{
		SolClient: solClient,
	}
}

func (p *RaydiumCpmmProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumCpmm
}

func (p *RaydiumCpmmProtocol) DiscoverPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]solana.PublicKey, error) {
	accounts, err := p.getCPMMPoolAccountsByTokenPair(ctx, baseMint, quoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with base token %s: %w", baseMint, err)
	}
	keys := make([]solana.PublicKey, 0, len(accounts))
	for _, account := range accounts {
		keys = append(keys, account.Pubkey)
	}
	return keys, nil
}

func (p *RaydiumCpmmProtocol) getCPMMPoolAccountsByTokenPair(ctx context.Context, baseMint string, quoteMint string) (rpc.GetProgramAccountsResult, error) {
	baseKey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}

	quoteKey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	var layout raydium.CPMMPool
	filters := []rpc.RPCFilter{
		{
			DataSize: 637,
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: 0,
				Bytes:  anchor.GetDiscriminator("account", "PoolState"),
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: layout.Offset("Token0Mint"),
				Bytes:  baseKey.Bytes(),
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: layout.Offset("Token1Mint"),
				Bytes:  quoteKey.Bytes(),
			},
		},
	}

	result, err := p.SolClient.GetProgramAccountsWithOpts(ctx, raydium.RAYDIUM_CPMM_PROGRAM_ID, &rpc.GetProgramAccountsOpts{
		Filters: filters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}

	return result, nil
}

// LoadPool fetches and decodes the pool account and its AmmConfig trade fee
// rate, and seeds the cache with both token vaults.
func (p *RaydiumCpmmProtocol) LoadPool(ctx context.Context, c *cache.Cache, poolID solana.PublicKey) (pkg.Quoter, error) {
	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolID, err)
	}

	pool := &raydium.CPMMPool{}
	if err := pool.Decode(account.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to decode pool data for %s: %w", poolID, err)
	}
	pool.PoolId = poolID

	configAccount, err := p.SolClient.GetAccountInfoWithOpts(ctx, pool.AmmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get amm config for %s: %w", poolID, err)
	}
	var config raydium.CPMMAmmConfig
	if err := config.Decode(configAccount.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to decode amm config for %s: %w", poolID, err)
	}
	pool.TradeFeeRate = config.TradeFeeRate

	result, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, []solana.PublicKey{pool.Token0Vault, pool.Token1Vault})
	if err != nil {
		return nil, fmt.Errorf("failed to get vault accounts for %s: %w", poolID, err)
	}
	if len(result.Value) != 2 || result.Value[0] == nil || result.Value[1] == nil {
		return nil, fmt.Errorf("missing vault account data for pool %s", poolID)
	}
	c.PutDynamic(pool.Token0Vault, result.Value[0].Data.GetBinary())
	c.PutDynamic(pool.Token1Vault, result.Value[1].Data.GetBinary())

	return pool, nil
}
