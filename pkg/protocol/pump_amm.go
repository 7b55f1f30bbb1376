package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/anchor"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/pool/pump"
	"github.com/Islinces/solquote/pkg/sol"
)

// PumpAmmProtocol discovers and loads PumpFun AMM pools.
type PumpAmmProtocol struct {
	SolClient *sol.Client
}

func NewPumpAmm(solClient *sol.Client) *PumpAmmProtocol {
	return &PumpAmmProtocol{
		SolClient: solClient,
	}
}

func (p *PumpAmmProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNamePumpAmm
}

func (p *PumpAmmProtocol) DiscoverPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]solana.PublicKey, error) {
	accounts, err := p.getPumpAMMPoolAccountsByTokenPair(ctx, baseMint, quoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with base token %s: %w", baseMint, err)
	}
	keys := make([]solana.PublicKey, 0, len(accounts))
	for _, v := range accounts {
		keys = append(keys, v.Pubkey)
	}
	return keys, nil
}

func (p *PumpAmmProtocol) getPumpAMMPoolAccountsByTokenPair(ctx context.Context, baseMint string, quoteMint string) (rpc.GetProgramAccountsResult, error) {
	var layout pump.PumpAMMPool
	baseMintPubkey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quoteMintPubkey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	return p.SolClient.GetProgramAccountsWithOpts(ctx, pump.PumpSwapProgramID, &rpc.GetProgramAccountsOpts{
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

// LoadPool fetches and parses the pool account, resolves the program-wide
// GlobalConfig fee rates, and seeds the cache with both token vaults.
func (p *PumpAmmProtocol) LoadPool(ctx context.Context, c *cache.Cache, poolID solana.PublicKey) (pkg.Quoter, error) {
	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolID, err)
	}

	layout, err := pump.ParsePoolData(account.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool data for pool %s: %w", poolID, err)
	}
	layout.PoolId = poolID

	globalConfigKey, err := pump.DeriveGlobalConfigPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to derive global config: %w", err)
	}
	globalConfigAccount, err := p.SolClient.GetAccountInfoWithOpts(ctx, globalConfigKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get global config: %w", err)
	}
	globalConfig, err := pump.DecodeGlobalConfig(globalConfigAccount.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to decode global config: %w", err)
	}
	layout.LpFeeBasisPoints = globalConfig.LpFeeBasisPoints
	layout.ProtocolFeeBasisPoints = globalConfig.ProtocolFeeBasisPoints

	vaultResult, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, []solana.PublicKey{layout.PoolBaseTokenAccount, layout.PoolQuoteTokenAccount})
	if err != nil {
		return nil, fmt.Errorf("failed to get vault accounts for %s: %w", poolID, err)
	}
	if len(vaultResult.Value) != 2 || vaultResult.Value[0] == nil || vaultResult.Value[1] == nil {
		return nil, fmt.Errorf("missing vault account data for pool %s", poolID)
	}
	c.PutDynamic(layout.PoolBaseTokenAccount, vaultResult.Value[0].Data.GetBinary())
	c.PutDynamic(layout.PoolQuoteTokenAccount, vaultResult.Value[1].Data.GetBinary())

	return layout, nil
}
