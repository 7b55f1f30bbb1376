package pkg

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/Islinces/solquote/pkg/sol"
)

// ProtocolName represents the string name of an AMM protocol family.
type ProtocolName string

const (
	ProtocolNameRaydiumAmm     ProtocolName = "raydium_amm"
	ProtocolNameRaydiumClmm    ProtocolName = "raydium_clmm"
	ProtocolNameRaydiumCpmm    ProtocolName = "raydium_cpmm"
	ProtocolNameMeteoraDlmm    ProtocolName = "meteora_dlmm"
	ProtocolNamePumpAmm        ProtocolName = "pump_amm"
	ProtocolNameMeteoraDammV2  ProtocolName = "meteora_damm_v2"
	ProtocolNameOrcaWhirlpool  ProtocolName = "orca_whirlpool"
)

// Quoter is the capability every pool type exposes to the dispatch layer: a
// single, read-only, synchronous price computation over the cache. It never
// touches the network and never mutates the cache.
type Quoter interface {
	ProtocolName() ProtocolName
	GetProgramID() solana.PublicKey
	GetID() string
	GetTokens() (baseMint, quoteMint string)

	// Quote answers "how much of the other token do I receive for amountIn,
	// swapping in swapDirection" using only bytes already resident in c.
	// ok=false covers every failure mode in the error-handling taxonomy:
	// missing cache entry, arithmetic overflow, inconsistent bitmap state,
	// or a pool whose liquidity cannot absorb the requested amount.
	Quote(c *cache.Cache, amountIn uint64, swapDirection bool) (amountOut uint64, ok bool)
}

// Protocol is the discovery-time collaborator: given a token pair or a pool
// id, it resolves which on-chain accounts make up the pool and seeds the
// cache with their bytes. This is the only part of the module that performs
// network I/O.
type Protocol interface {
	ProtocolName() ProtocolName
	DiscoverPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]solana.PublicKey, error)
	LoadPool(ctx context.Context, c *cache.Cache, poolID solana.PublicKey) (Quoter, error)
}

// SolClient is the narrow RPC surface Protocol implementations need. It is
// satisfied by *sol.Client.
type SolClient = sol.Client
