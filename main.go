package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Islinces/solquote/pkg/protocol"
	"github.com/Islinces/solquote/pkg/router"
	"github.com/Islinces/solquote/pkg/sol"
)

var (
	rpcEndpoint string
	rateLimit   int
	baseMint    string
	quoteMint   string
	amountIn    uint64
	sellBase    bool
)

func newRootCmd(logger *zap.SugaredLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solquote",
		Short: "Quote a Solana DEX swap across Raydium, PumpFun, Meteora, and Orca pools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd.Context(), logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&rpcEndpoint, "rpc", os.Getenv("SOLQUOTE_RPC"), "Solana RPC endpoint")
	flags.IntVar(&rateLimit, "rate-limit", 20, "RPC requests per second")
	flags.StringVar(&baseMint, "base-mint", sol.WSOL.String(), "base token mint")
	flags.StringVar(&quoteMint, "quote-mint", "", "quote token mint")
	flags.Uint64Var(&amountIn, "amount-in", 0, "input amount, in the base token's smallest unit")
	flags.BoolVar(&sellBase, "sell-base", true, "swap direction: true sells base for quote")

	return cmd
}

func runQuote(ctx context.Context, logger *zap.SugaredLogger) error {
	if rpcEndpoint == "" {
		return fmt.Errorf("--rpc is required")
	}
	if quoteMint == "" {
		return fmt.Errorf("--quote-mint is required")
	}

	solClient, err := sol.NewClient(ctx, rpcEndpoint, rateLimit)
	if err != nil {
		return fmt.Errorf("failed to create solana client: %w", err)
	}

	r := router.New(
		protocol.NewRaydiumAmm(solClient),
		protocol.NewRaydiumClmm(solClient),
		protocol.NewRaydiumCpmm(solClient),
		protocol.NewPumpAmm(solClient),
		protocol.NewMeteoraDlmm(solClient),
		protocol.NewMeteoraDammV2(solClient),
		protocol.NewOrcaWhirlpool(solClient),
	)

	logger.Infow("discovering pools", "baseMint", baseMint, "quoteMint", quoteMint)
	if err := r.DiscoverAndLoad(ctx, baseMint, quoteMint); err != nil {
		return fmt.Errorf("failed to discover pools: %w", err)
	}
	logger.Infow("loaded pools", "count", r.PoolCount(), "staticAccounts", r.Cache.StaticLen(), "dynamicAccounts", r.Cache.DynamicLen())

	poolID, amountOut, ok := r.BestQuote(amountIn, sellBase)
	if !ok {
		return fmt.Errorf("no pool could quote amountIn=%d", amountIn)
	}
	fmt.Printf("best pool: %s\namount out: %d\n", poolID, amountOut)
	return nil
}

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Errorw("solquote failed", "error", err)
		os.Exit(1)
	}
}
