// Package cache provides a typed, time-bounded memoization layer used for
// catalog loads. It wraps patrickmn/go-cache, which handles expiry and
// background cleanup.
package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// NoExpiration keeps entries until they are invalidated explicitly.
const NoExpiration = gocache.NoExpiration

// Cache maps keys of type K to values of type V for a bounded time.
// It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	store *gocache.Cache
	ttl   time.Duration
}

// New creates a cache whose entries live for ttl. Expired entries are purged
// every 2*ttl; a non-positive ttl means entries never expire.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	cleanup := 2 * ttl
	if ttl <= 0 {
		ttl = NoExpiration
		cleanup = 0
	}
	return &Cache[K, V]{
		store: gocache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

// Get retrieves the value for key if present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	raw, found := c.store.Get(c.key(key))
	if !found {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Put stores value under key with the default TTL.
func (c *Cache[K, V]) Put(key K, value V) {
	c.store.Set(c.key(key), value, gocache.DefaultExpiration)
}

// PutWithTTL stores value under key with a custom TTL.
func (c *Cache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) {
	c.store.Set(c.key(key), value, ttl)
}

// Invalidate removes key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.store.Delete(c.key(key))
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.store.Flush()
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *Cache[K, V]) Len() int {
	return c.store.ItemCount()
}

// TTL returns the default entry lifetime.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Errors are returned as-is and never cached.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Put(key, v)
	return v, nil
}

func (c *Cache[K, V]) key(k K) string {
	return fmt.Sprint(k)
}
