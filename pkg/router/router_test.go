package router

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/Islinces/solquote/pkg"
	"github.com/Islinces/solquote/pkg/cache"
	"github.com/stretchr/testify/require"
)

func testKey(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

// fixedQuoter quotes a constant amount (or declines), recording nothing;
// enough to exercise the dispatch and best-of selection without any real
// pool math.
type fixedQuoter struct {
	id  solana.PublicKey
	out uint64
	ok  bool
}

func (q *fixedQuoter) ProtocolName() pkg.ProtocolName      { return "fixed" }
func (q *fixedQuoter) GetProgramID() solana.PublicKey      { return solana.PublicKey{} }
func (q *fixedQuoter) GetID() string                       { return q.id.String() }
func (q *fixedQuoter) GetTokens() (string, string)         { return "", "" }
func (q *fixedQuoter) Quote(c *cache.Cache, amountIn uint64, swapDirection bool) (uint64, bool) {
	return q.out, q.ok
}

func newRouterWith(quoters ...*fixedQuoter) *Router {
	r := New()
	for _, q := range quoters {
		r.pools[q.id] = q
	}
	return r
}

func TestRouter_Quote_DispatchesByPoolID(t *testing.T) {
	a := &fixedQuoter{id: testKey(1), out: 100, ok: true}
	b := &fixedQuoter{id: testKey(2), out: 200, ok: true}
	r := newRouterWith(a, b)

	out, ok := r.Quote(a.id, 1, true)
	require.True(t, ok)
	require.Equal(t, uint64(100), out)

	out, ok = r.Quote(b.id, 1, true)
	require.True(t, ok)
	require.Equal(t, uint64(200), out)
}

func TestRouter_Quote_UnknownPoolDeclines(t *testing.T) {
	r := newRouterWith(&fixedQuoter{id: testKey(1), out: 100, ok: true})
	_, ok := r.Quote(testKey(99), 1, true)
	require.False(t, ok)
}

func TestRouter_BestQuote_PicksLargestAcrossPools(t *testing.T) {
	best := &fixedQuoter{id: testKey(3), out: 300, ok: true}
	r := newRouterWith(
		&fixedQuoter{id: testKey(1), out: 100, ok: true},
		&fixedQuoter{id: testKey(2), out: 200, ok: true},
		best,
	)

	poolID, out, ok := r.BestQuote(1, true)
	require.True(t, ok)
	require.Equal(t, best.id, poolID)
	require.Equal(t, uint64(300), out)
}

func TestRouter_BestQuote_SkipsDecliningPools(t *testing.T) {
	r := newRouterWith(
		&fixedQuoter{id: testKey(1), out: 0, ok: false},
		&fixedQuoter{id: testKey(2), out: 50, ok: true},
		&fixedQuoter{id: testKey(3), out: 999, ok: false},
	)

	poolID, out, ok := r.BestQuote(1, true)
	require.True(t, ok)
	require.Equal(t, testKey(2), poolID)
	require.Equal(t, uint64(50), out)
}

func TestRouter_BestQuote_AllDecline(t *testing.T) {
	r := newRouterWith(
		&fixedQuoter{id: testKey(1), ok: false},
		&fixedQuoter{id: testKey(2), ok: false},
	)
	_, _, ok := r.BestQuote(1, true)
	require.False(t, ok)
	require.Equal(t, 2, r.PoolCount())
}
