package cachemanager

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/vk/streamgrid/internal/ctxlog"
)

// NewInMemoryCacheManager creates a cache whose entries expire after
// defaultExpiration. A non-positive expiration disables expiry and the
// cleanup janitor.
func NewInMemoryCacheManager[V any](useCase string, defaultExpiration, cleanupInterval time.Duration) *InMemoryCacheManager[V] {
	if defaultExpiration <= 0 {
		defaultExpiration = gocache.NoExpiration
		cleanupInterval = 0
	}
	return &InMemoryCacheManager[V]{
		useCase:           useCase,
		defaultExpiration: defaultExpiration,
		cache:             gocache.New(defaultExpiration, cleanupInterval),
	}
}

// InMemoryCacheManager is the concrete implementation of the CacheManager interface
type InMemoryCacheManager[V any] struct {
	useCase           string
	defaultExpiration time.Duration
	cache             *gocache.Cache
}

// Get retrieves an item from the cache by its key
func (c *InMemoryCacheManager[V]) Get(ctx context.Context, key string) (V, bool) {
	var zeroValue V

	value, found := c.cache.Get(key)
	if !found {
		return zeroValue, false
	}

	// Type assertion check to ensure the type is correct
	v, ok := value.(V)
	if !ok {
		ctxlog.FromContext(ctx).Error("Wrong type assertion when getting cached value.", "cache", c.useCase, "key", key)
		return zeroValue, false
	}

	return v, true
}

// GetWithRefresh retrieves an item and, when found, restarts its expiry.
func (c *InMemoryCacheManager[V]) GetWithRefresh(ctx context.Context, key string, ttl time.Duration) (V, bool) {
	value, found := c.Get(ctx, key)
	if !found {
		return value, found
	}

	c.Set(ctx, key, value, ttl)

	return value, found
}

// Set stores a value. A zero ttl uses the cache's default expiration.
// Replacing an existing value does not trigger the eviction callback.
func (c *InMemoryCacheManager[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
}

// Delete removes values by key. The eviction callback runs for each
// removed value, expired or not.
func (c *InMemoryCacheManager[V]) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.cache.Delete(key)
	}
	return nil
}

// Flush deletes every entry, running the eviction callback for each.
func (c *InMemoryCacheManager[V]) Flush(ctx context.Context) error {
	for key := range c.cache.Items() {
		c.cache.Delete(key)
	}
	// Items skips entries that expired but were not yet purged.
	c.cache.DeleteExpired()
	return nil
}

// OnEvicted registers a callback run when a value is deleted or expires.
func (c *InMemoryCacheManager[V]) OnEvicted(fn func(key string, value V)) {
	if fn == nil {
		c.cache.OnEvicted(nil)
		return
	}
	c.cache.OnEvicted(func(key string, value interface{}) {
		if v, ok := value.(V); ok {
			fn(key, v)
		}
	})
}

// DeleteExpired purges expired entries now instead of waiting for the
// janitor.
func (c *InMemoryCacheManager[V]) DeleteExpired() {
	c.cache.DeleteExpired()
}

// Len counts entries, including expired ones not yet purged.
func (c *InMemoryCacheManager[V]) Len() int {
	return c.cache.ItemCount()
}
