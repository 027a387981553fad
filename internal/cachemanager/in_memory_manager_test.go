package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemoryCacheManager(t *testing.T) {
	require.NotPanics(t, func() {
		NewInMemoryCacheManager[string]("test", NoExpiration, DefaultCleanupInterval)
	})
}

type exampleStruct struct {
	ID   int
	Name string
}

func TestInMemoryCacheManager_GetExistingValue_StructType(t *testing.T) {
	cache := NewInMemoryCacheManager[exampleStruct]("outputs", NoExpiration, DefaultCleanupInterval)
	example := exampleStruct{Name: "grid"}
	cache.Set(context.Background(), "src.output[0]", example, 0)

	got, ok := cache.Get(context.Background(), "src.output[0]")
	require.True(t, ok)
	require.Equal(t, example, got)
}

func TestInMemoryCacheManager_GetWithNoExistingValue(t *testing.T) {
	cache := NewInMemoryCacheManager[string]("outputs", NoExpiration, DefaultCleanupInterval)

	got, ok := cache.Get(context.Background(), "missing")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_GetWithExistingInvalidValueType(t *testing.T) {
	cache := NewInMemoryCacheManager[string]("outputs", NoExpiration, DefaultCleanupInterval)

	cache.cache.Set("key", 123, NoExpiration)

	got, ok := cache.Get(context.Background(), "key")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_EvictionCallback(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string]("outputs", NoExpiration, DefaultCleanupInterval)
	var evicted []string
	cache.OnEvicted(func(key, value string) { evicted = append(evicted, key+"="+value) })

	cache.Set(ctx, "a", "1", 0)
	cache.Set(ctx, "b", "2", 0)
	require.NoError(t, cache.Delete(ctx, "a", "missing"))
	assert.Equal(t, []string{"a=1"}, evicted)

	require.NoError(t, cache.Flush(ctx))
	assert.Equal(t, []string{"a=1", "b=2"}, evicted)
	assert.Zero(t, cache.Len())
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string]("outputs", time.Millisecond, time.Hour)
	var evicted []string
	cache.OnEvicted(func(key, _ string) { evicted = append(evicted, key) })

	cache.Set(ctx, "a", "1", 0)
	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)
	cache.DeleteExpired()
	assert.Equal(t, []string{"a"}, evicted)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string]("outputs", NoExpiration, DefaultCleanupInterval)
	cache.Set(ctx, "a", "1", 0)

	got, ok := cache.GetWithRefresh(ctx, "a", time.Hour)
	require.True(t, ok)
	assert.Equal(t, "1", got)
}
