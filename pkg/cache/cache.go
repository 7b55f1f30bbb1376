// Package cache holds the hot in-memory mirror of on-chain account bytes
// that every quoter reads from. It is the one piece of process-wide mutable
// state in this module: two maps, guarded by their own RWMutex, one for
// fields that never change once a pool is created and one for fields a
// subscription stream rewrites on every account update.
package cache

import (
	"github.com/gagliardetto/solana-go"
)

// Cache is two independently-locked key->bytes maps. Static entries are
// written once, at pool discovery; dynamic entries are rewritten on every
// account update the subscription collaborator observes. A quoter reads
// whichever map its typed view declares a field to live in.
type Cache struct {
	static  *rwMap
	dynamic *rwMap
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{static: newRWMap(), dynamic: newRWMap()}
}

// PutStatic records the raw bytes for key's immutable fields.
func (c *Cache) PutStatic(key solana.PublicKey, data []byte) {
	c.static.put(key, data)
}

// PutDynamic records the raw bytes for key's fields that change over time.
func (c *Cache) PutDynamic(key solana.PublicKey, data []byte) {
	c.dynamic.put(key, data)
}

// GetStatic returns a copy of the bytes last recorded for key, or ok=false if
// key has never been seeded.
func (c *Cache) GetStatic(key solana.PublicKey) ([]byte, bool) {
	return c.static.get(key)
}

// GetDynamic returns a copy of the bytes last recorded for key, or ok=false
// if key has never been observed.
func (c *Cache) GetDynamic(key solana.PublicKey) ([]byte, bool) {
	return c.dynamic.get(key)
}

// DeleteStatic and DeleteDynamic exist for completeness but are not expected
// to be called during a run: records are never destroyed while the process
// is up.
func (c *Cache) DeleteStatic(key solana.PublicKey)  { c.static.delete(key) }
func (c *Cache) DeleteDynamic(key solana.PublicKey) { c.dynamic.delete(key) }

// StaticLen and DynamicLen report how many accounts are currently cached, for
// the ambient startup/summary logging layer.
func (c *Cache) StaticLen() int  { return c.static.len() }
func (c *Cache) DynamicLen() int { return c.dynamic.len() }
