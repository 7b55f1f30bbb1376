package sol

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// WSOL is the canonical wrapped-SOL mint, used as the default base mint for
// a quote request when the caller doesn't name one explicitly.
var WSOL = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// Client is the narrow RPC surface the discovery/snapshot layer needs: rate
// limited reads of account data. It never signs or sends anything.
type Client struct {
	rpcClient   *rpc.Client
	rateLimiter *RateLimiter
}

// NewClient creates a new Solana client with custom rate limiting.
func NewClient(ctx context.Context, endpoint string, reqLimitPerSecond int) (*Client, error) {
	return &Client{
		rpcClient:   rpc.New(endpoint),
		rateLimiter: NewRateLimiter(reqLimitPerSecond),
	}, nil
}
