package catalog

import (
	"context"
	"time"

	"github.com/agentstation/renewals/pkg/cache"
)

// CachedLoader memoizes catalog loads per path for a bounded time.
// Errors are never cached.
type CachedLoader struct {
	source Source
	cache  *cache.Cache[string, *Catalog]
	loads  func(path string, err error)
}

var _ Source = (*CachedLoader)(nil)

// NewCachedLoader wraps source with a cache whose entries live for ttl.
func NewCachedLoader(source Source, ttl time.Duration) *CachedLoader {
	return &CachedLoader{
		source: source,
		cache:  cache.New[string, *Catalog](ttl),
	}
}

// OnLoad registers fn to observe every uncached load and its outcome.
func (c *CachedLoader) OnLoad(fn func(path string, err error)) {
	c.loads = fn
}

// Load returns the cached catalog for path or reads it through the source.
func (c *CachedLoader) Load(ctx context.Context, path string) (*Catalog, error) {
	return c.cache.GetOrLoad(path, func() (*Catalog, error) {
		cat, err := c.source.Load(ctx, path)
		if c.loads != nil {
			c.loads(path, err)
		}
		return cat, err
	})
}

// Invalidate drops every cached catalog so the next Load rereads the file.
func (c *CachedLoader) Invalidate() {
	c.cache.Clear()
}

// TTL returns the cache lifetime.
func (c *CachedLoader) TTL() time.Duration {
	return c.cache.TTL()
}
