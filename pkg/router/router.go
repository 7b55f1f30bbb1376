// Package router ties the discovery-time Protocol collaborators to the
// quote-time Quoter values they produce: for a token pair, ask every
// registered protocol which pools exist, load each one (seeding the shared
// cache), then answer "what's the best quote across everything we loaded"
// without any further network access.
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/cache"
)

// Router holds one Cache shared by every loaded pool and the closed set of
// Protocol collaborators that know how to discover and load pools for their
// own protocol family. There is no open registration path: the set of
// protocols a Router can dispatch to is exactly what's passed to New.
type Router struct {
	Cache     *cache.Cache
	protocols []pkg.Protocol
	pools     map[solana.PublicKey]pkg.Quoter
	mu        sync.RWMutex
}

// New builds a Router over the given protocols, sharing one Cache across
// all of them.
func New(protocols ...pkg.Protocol) *Router {
	return &Router{
		Cache:     cache.New(),
		protocols: protocols,
		pools:     make(map[solana.PublicKey]pkg.Quoter),
	}
}

// DiscoverAndLoad asks every registered protocol for its pools trading
// baseMint against quoteMint, loads each one, and keeps the resulting
// Quoter values indexed by pool id. A single protocol or pool failing to
// load is skipped, not fatal, so one bad account doesn't block the rest.
func (r *Router) DiscoverAndLoad(ctx context.Context, baseMint, quoteMint string) error {
	var loaded int
	for _, proto := range r.protocols {
		poolIDs, err := proto.DiscoverPoolsByPair(ctx, baseMint, quoteMint)
		if err != nil {
			continue
		}
		for _, poolID := range poolIDs {
			quoter, err := proto.LoadPool(ctx, r.Cache, poolID)
			if err != nil {
				continue
			}
			r.mu.Lock()
			r.pools[poolID] = quoter
			r.mu.Unlock()
			loaded++
		}
	}
	if loaded == 0 {
		return fmt.Errorf("no pools loaded for %s/%s", baseMint, quoteMint)
	}
	return nil
}

// Quote answers a single pool's quote by id.
func (r *Router) Quote(poolID solana.PublicKey, amountIn uint64, swapDirection bool) (uint64, bool) {
	r.mu.RLock()
	quoter, ok := r.pools[poolID]
	r.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return quoter.Quote(r.Cache, amountIn, swapDirection)
}

// BestQuote evaluates every loaded pool concurrently and returns the pool id
// and amount of the best quote found, ok=false if none of them could quote.
func (r *Router) BestQuote(amountIn uint64, swapDirection bool) (bestPoolID solana.PublicKey, bestOut uint64, ok bool) {
	r.mu.RLock()
	quoters := make(map[solana.PublicKey]pkg.Quoter, len(r.pools))
	for k, v := range r.pools {
		quoters[k] = v
	}
	r.mu.RUnlock()

	type result struct {
		poolID solana.PublicKey
		out    uint64
		ok     bool
	}
	results := make(chan result, len(quoters))
	var wg sync.WaitGroup
	for poolID, quoter := range quoters {
		wg.Add(1)
		go func(poolID solana.PublicKey, quoter pkg.Quoter) {
			defer wg.Done()
			out, ok := quoter.Quote(r.Cache, amountIn, swapDirection)
			results <- result{poolID: poolID, out: out, ok: ok}
		}(poolID, quoter)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if !res.ok {
			continue
		}
		if !ok || res.out > bestOut {
			bestPoolID, bestOut, ok = res.poolID, res.out, true
		}
	}
	return bestPoolID, bestOut, ok
}

// PoolCount reports how many pools are currently loaded, for ambient
// startup/summary logging.
func (r *Router) PoolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}
