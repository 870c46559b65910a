// Package cache provides a generic expiring loader cache that coalesces concurrent loads
// for the same key.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// LoaderCache loads values on miss via a callback. Concurrent misses for one key share a single
// load through singleflight; failed loads are never cached.
type LoaderCache[V any] struct {
	lru   *expirable.LRU[string, V]
	group singleflight.Group
}

// NewLoaderCache creates a cache holding at most maxEntries values, each living for ttl.
// A ttl of zero keeps entries until they are evicted by size.
func NewLoaderCache[V any](maxEntries int, ttl time.Duration) *LoaderCache[V] {
	return &LoaderCache[V]{
		lru: expirable.NewLRU[string, V](maxEntries, nil, ttl),
	}
}

// Get returns the cached value for key, loading it on miss. hit reports whether the value
// came from the cache.
func (c *LoaderCache[V]) Get(
	ctx context.Context, key string, load func(context.Context) (V, error),
) (value V, hit bool, err error) {
	if v, ok := c.lru.Get(key); ok {
		return v, true, nil
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		loaded, loadErr := load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}

		c.lru.Add(key, loaded)

		return loaded, nil
	})
	if err != nil {
		var zero V

		return zero, false, err
	}

	return val.(V), false, nil
}

// Invalidate removes the entry for key.
func (c *LoaderCache[V]) Invalidate(key string) {
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *LoaderCache[V]) Len() int {
	return c.lru.Len()
}
