package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/anchor"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/pool/meteora"
	"github.com/Islinces/solquote/pkg/sol"
)

// binArrayPrefetchCount bounds how many bin arrays on each side of the
// active bin a discovery load will seed into the cache, mirroring the CLMM
// tick-array prefetch window.
const binArrayPrefetchCount = 3

// MeteoraDlmmProtocol discovers and loads Meteora DLMM (discretized
// liquidity) pools.
type MeteoraDlmmProtocol struct {
	SolClient *sol.Client
}

// NewMeteoraDlmm creates a new MeteoraDlmmProtocol instance
func NewMeteoraDlmm(solClient *sol.Client) *MeteoraDlmmProtocol {
	return &MeteoraDlmmProtocol{
		SolClient: solClient,
	}
}

func (protocol *MeteoraDlmmProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameMeteoraDlmm
}

// DiscoverPoolsByPair retrieves all Meteora DLMM pool addresses for a given
// token pair
func (protocol *MeteoraDlmmProtocol) DiscoverPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]solana.PublicKey, error) {
	accounts, err := protocol.getMeteoraDlmmPoolAccountsByTokenPair(ctx, baseMint, quoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with baseMint as TokenX: %w", err)
	}
	keys := make([]solana.PublicKey, 0, len(accounts))
	for _, account := range accounts {
		keys = append(keys, account.Pubkey)
	}
	return keys, nil
}

// getMeteoraDlmmPoolAccountsByTokenPair retrieves pool accounts for a specific token pair configuration
func (protocol *MeteoraDlmmProtocol) getMeteoraDlmmPoolAccountsByTokenPair(ctx context.Context, baseMint string, quoteMint string) (rpc.GetProgramAccountsResult, error) {
	var poolLayout meteora.MeteoraDlmmPool
	result, err := protocol.SolClient.GetProgramAccountsWithOpts(ctx, meteora.MeteoraProgramID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{
				DataSize: 904, // Meteora DLMM pool account size
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  anchor.GetDiscriminator("account", "LbPair"),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: poolLayout.Offset("TokenXMint"),
					Bytes:  solana.MustPublicKeyFromBase58(baseMint).Bytes(),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: poolLayout.Offset("TokenYMint"),
					Bytes:  solana.MustPublicKeyFromBase58(quoteMint).Bytes(),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get program accounts: %w", err)
	}
	return result, nil
}

// LoadPool fetches and decodes the pool account, derives its bitmap
// extension address, and seeds the cache with the Clock sysvar, the bitmap
// extension (if any), and a prefetch window of bin arrays around the active
// bin so Quote never needs the network mid-walk.
func (protocol *MeteoraDlmmProtocol) LoadPool(ctx context.Context, c *cache.Cache, poolID solana.PublicKey) (pkg.Quoter, error) {
	poolData := &meteora.MeteoraDlmmPool{}
	account, err := protocol.SolClient.GetAccountInfoWithOpts(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account: %w", err)
	}

	if err := poolData.Decode(account.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to decode pool data: %w", err)
	}
	poolData.PoolId = poolID

	poolData.BitmapExtensionKey, _ = meteora.DeriveBinArrayBitmapExtension(poolData.PoolId)

	clockAccount, err := protocol.SolClient.GetAccountInfoWithOpts(ctx, solana.SysVarClockPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to get clock sysvar: %w", err)
	}
	c.PutDynamic(solana.SysVarClockPubkey, clockAccount.Value.Data.GetBinary())

	var zero solana.PublicKey
	if poolData.BitmapExtensionKey != zero {
		extAccount, err := protocol.SolClient.GetAccountInfoWithOpts(ctx, poolData.BitmapExtensionKey)
		if err == nil && extAccount.Value != nil {
			c.PutDynamic(poolData.BitmapExtensionKey, extAccount.Value.Data.GetBinary())
		}
	}

	binArrayKeys, err := poolData.DiscoverBinArrayKeysForSnapshot(binArrayPrefetchCount)
	if err == nil && len(binArrayKeys) > 0 {
		result, err := protocol.SolClient.GetMultipleAccountsWithOpts(ctx, binArrayKeys)
		if err == nil {
			for i, key := range binArrayKeys {
				if i < len(result.Value) && result.Value[i] != nil {
					c.PutDynamic(key, result.Value[i].Data.GetBinary())
				}
			}
		}
	}

	return poolData, nil
}
