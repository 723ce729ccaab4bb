package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, cfg MemoryConfig) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, DefaultMemoryConfig())

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
		got, ok := c.Get(ctx, "k")
		require.True(t, ok)
		require.Equal(t, []byte("v"), got)
	})

	t.Run("miss", func(t *testing.T) {
		_, ok := c.Get(ctx, "absent")
		require.False(t, ok)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k2", []byte("a"), time.Minute))
		require.NoError(t, c.Set(ctx, "k2", []byte("b"), time.Minute))
		got, ok := c.Get(ctx, "k2")
		require.True(t, ok)
		require.Equal(t, []byte("b"), got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k3", []byte("v"), time.Minute))
		require.NoError(t, c.Delete(ctx, "k3"))
		_, ok := c.Get(ctx, "k3")
		require.False(t, ok)
	})
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, MemoryConfig{Capacity: 10, DefaultTTL: time.Minute, CleanupInterval: time.Hour})

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	_, ok := c.Get(ctx, "short")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get(ctx, "short")
	require.False(t, ok, "expired entries must not be served")
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, MemoryConfig{Capacity: 3, DefaultTTL: time.Minute, CleanupInterval: time.Hour})

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
	}

	// Touch k0 so k1 becomes the eviction victim.
	_, ok := c.Get(ctx, "k0")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "k3", []byte("v"), time.Minute))
	require.Equal(t, 3, c.Size())

	_, ok = c.Get(ctx, "k1")
	require.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(ctx, "k0")
	require.True(t, ok)
}

func TestMemoryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, DefaultMemoryConfig())

	require.NoError(t, c.Set(ctx, "uservector:u1", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "uservector:u2", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "search:q1", []byte("v"), time.Minute))

	t.Run("prefix pattern", func(t *testing.T) {
		n, err := c.Invalidate(ctx, "uservector:*")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		_, ok := c.Get(ctx, "search:q1")
		require.True(t, ok, "non-matching keys survive")
	})

	t.Run("exact key", func(t *testing.T) {
		n, err := c.Invalidate(ctx, "search:q1")
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, 0, c.Size())
	})
}
