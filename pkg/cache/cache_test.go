package cache

import (
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func testKey(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

func TestCache_MissingKeyReturnsNotOK(t *testing.T) {
	c := New()
	_, ok := c.GetStatic(testKey(1))
	require.False(t, ok)
	_, ok = c.GetDynamic(testKey(1))
	require.False(t, ok)
}

func TestCache_StaticAndDynamicAreIndependent(t *testing.T) {
	c := New()
	key := testKey(1)
	c.PutStatic(key, []byte{1, 2, 3})

	got, ok := c.GetStatic(key)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, got)

	// The same key in the dynamic map is a separate record.
	_, ok = c.GetDynamic(key)
	require.False(t, ok)

	c.PutDynamic(key, []byte{9})
	got, ok = c.GetDynamic(key)
	require.True(t, ok)
	require.Equal(t, []byte{9}, got)
	require.Equal(t, 1, c.StaticLen())
	require.Equal(t, 1, c.DynamicLen())
}

// TestCache_GetReturnsCopy: a reader mutating the slice it got back must not
// corrupt the cached bytes, and a writer reusing its input buffer must not
// retroactively change what readers observe.
func TestCache_GetReturnsCopy(t *testing.T) {
	c := New()
	key := testKey(1)

	src := []byte{1, 2, 3}
	c.PutDynamic(key, src)
	src[0] = 99

	got, ok := c.GetDynamic(key)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 99
	again, ok := c.GetDynamic(key)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, again)
}

func TestCache_PutOverwrites(t *testing.T) {
	c := New()
	key := testKey(1)
	c.PutDynamic(key, []byte{1})
	c.PutDynamic(key, []byte{2, 3})

	got, ok := c.GetDynamic(key)
	require.True(t, ok)
	require.Equal(t, []byte{2, 3}, got)
	require.Equal(t, 1, c.DynamicLen())
}

// TestCache_ConcurrentReadersAndWriters hammers one key from writer
// goroutines while readers poll it; every read must observe one of the
// values some writer put, never a torn or empty slice. Run with -race.
func TestCache_ConcurrentReadersAndWriters(t *testing.T) {
	c := New()
	key := testKey(1)
	c.PutDynamic(key, []byte{0, 0, 0, 0, 0, 0, 0, 0})

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			payload := make([]byte, 8)
			for i := 0; i < 1000; i++ {
				for j := range payload {
					payload[j] = byte(w)
				}
				c.PutDynamic(key, payload)
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				got, ok := c.GetDynamic(key)
				require.True(t, ok)
				require.Len(t, got, 8)
				for _, b := range got[1:] {
					require.Equal(t, got[0], b, "read observed a torn write")
				}
			}
		}()
	}
	wg.Wait()
}
