package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nandorodriques37/planejamento-compras-app/internal/config"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

const (
	projectionKeyPrefix     = "planning:projection"
	projectionScanBatchSize = 200
	memoryCacheLimit        = 50000
)

// ProjectionCache memoizes engine output by input content hash.
type ProjectionCache interface {
	Get(ctx context.Context, key string) (projection.Series, bool, error)
	Set(ctx context.Context, key string, series projection.Series) error
	InvalidateAll(ctx context.Context) error
}

// KeyFor hashes any JSON encodable engine input into a cache key.
func KeyFor(input any) (string, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encode projection cache key: %w", err)
	}
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:]), nil
}

// NewProjectionCache returns a redis backed cache when enabled and an
// in-process cache otherwise.
func NewProjectionCache(cfg config.CacheConfig) (ProjectionCache, error) {
	if !cfg.Enabled {
		return NewMemoryProjectionCache(), nil
	}

	store, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}
	return &redisProjectionCache{store: store}, nil
}

type redisProjectionCache struct {
	store *redisStore
}

func (c *redisProjectionCache) Get(ctx context.Context, key string) (projection.Series, bool, error) {
	payload, err := c.store.client.Get(ctx, projectionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var series projection.Series
	if err := json.Unmarshal(payload, &series); err != nil {
		return nil, false, fmt.Errorf("decode projection cache: %w", err)
	}
	return series, true, nil
}

func (c *redisProjectionCache) Set(ctx context.Context, key string, series projection.Series) error {
	payload, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode projection cache: %w", err)
	}
	if err := c.store.client.Set(ctx, projectionKey(key), payload, c.store.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisProjectionCache) InvalidateAll(ctx context.Context) error {
	removed, err := c.store.unlinkPrefix(ctx, projectionKeyPrefix, projectionScanBatchSize)
	if err != nil {
		return err
	}
	log.Debug().Int("keys", removed).Msg("projection cache invalidated")
	return nil
}

func projectionKey(hash string) string {
	return projectionKeyPrefix + ":" + hash
}

// memoryProjectionCache is a process local map. It is dropped wholesale once
// it reaches memoryCacheLimit entries.
type memoryProjectionCache struct {
	mu      sync.RWMutex
	entries map[string]projection.Series
}

func NewMemoryProjectionCache() ProjectionCache {
	return &memoryProjectionCache{entries: make(map[string]projection.Series)}
}

func (c *memoryProjectionCache) Get(_ context.Context, key string) (projection.Series, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[key]
	return s, ok, nil
}

func (c *memoryProjectionCache) Set(_ context.Context, key string, series projection.Series) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= memoryCacheLimit {
		c.entries = make(map[string]projection.Series)
	}
	c.entries[key] = series
	return nil
}

func (c *memoryProjectionCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]projection.Series)
	c.mu.Unlock()
	return nil
}

type noopProjectionCache struct{}

func NewNoopProjectionCache() ProjectionCache {
	return noopProjectionCache{}
}

func (noopProjectionCache) Get(context.Context, string) (projection.Series, bool, error) {
	return nil, false, nil
}

func (noopProjectionCache) Set(context.Context, string, projection.Series) error {
	return nil
}

func (noopProjectionCache) InvalidateAll(context.Context) error {
	return nil
}
