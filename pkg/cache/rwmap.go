package cache

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// rwMap is a single map from account key to raw bytes guarded by a
// sync.RWMutex, which blocks new readers once a writer is waiting (it is not
// reader-preferring). put stores a private copy; get releases the lock and
// then returns a fresh copy, since stored slices are only ever replaced,
// never mutated. No math ever runs while holding the lock.
type rwMap struct {
	mu   sync.RWMutex
	data map[solana.PublicKey][]byte
}

func newRWMap() *rwMap {
	return &rwMap{data: make(map[solana.PublicKey][]byte)}
}

func (m *rwMap) put(key solana.PublicKey, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
}

func (m *rwMap) get(key solana.PublicKey) ([]byte, bool) {
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true
}

func (m *rwMap) delete(key solana.PublicKey) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

func (m *rwMap) len() int {
	m.mu.RLock()
	n := len(m.data)
	m.mu.RUnlock()
	return n
}
