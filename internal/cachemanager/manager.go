// Package cachemanager wraps an expiring in-memory cache behind a typed
// interface. The pipeline keeps node outputs in it so idle outputs can be
// dropped after a configurable time.
package cachemanager

import (
	"context"
	"time"
)

// NoExpiration keeps an entry until it is deleted.
const NoExpiration time.Duration = -1

// DefaultCleanupInterval is how often expired entries are purged.
const DefaultCleanupInterval = time.Minute

type CacheManager[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	GetWithRefresh(ctx context.Context, key string, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
	OnEvicted(fn func(key string, value V))
	Len() int
}
