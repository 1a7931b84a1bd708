package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandorodriques37/planejamento-compras-app/internal/config"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

func TestKeyForIsStable(t *testing.T) {
	t.Parallel()

	type input struct {
		SKU    string
		Orders map[string]float64
	}

	a, err := KeyFor(input{SKU: "P1", Orders: map[string]float64{"2026_02": 1, "2026_03": 2}})
	require.NoError(t, err)
	b, err := KeyFor(input{SKU: "P1", Orders: map[string]float64{"2026_03": 2, "2026_02": 1}})
	require.NoError(t, err)
	c, err := KeyFor(input{SKU: "P1", Orders: map[string]float64{"2026_02": 0, "2026_03": 2}})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 40)
}

func TestMemoryProjectionCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemoryProjectionCache()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	s := projection.Series{"2026_02": {Demand: 3, Projected: 7}}
	require.NoError(t, c.Set(ctx, "k", s))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, s, got)

	require.NoError(t, c.InvalidateAll(ctx))
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNoopProjectionCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewNoopProjectionCache()
	require.NoError(t, c.Set(ctx, "k", projection.Series{}))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewProjectionCacheDisabledIsLocal(t *testing.T) {
	t.Parallel()

	c, err := NewProjectionCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, &memoryProjectionCache{}, c)
}

func TestBuildRedisOptions(t *testing.T) {
	t.Parallel()

	opts, err := buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@cache.internal:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisDB: 1})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}
