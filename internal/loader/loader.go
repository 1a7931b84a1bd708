// Package loader reads planning bundles from disk or object storage.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/storage"
)

// Decode parses a bundle and drops what cannot be planned: registry entries
// failing validation and series rows that have no registry entry. Malformed
// month keys fail the whole bundle.
func Decode(r io.Reader) (*domain.Bundle, error) {
	var b domain.Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if err := calendar.ValidateKeys(b.Metadata.MonthKeys); err != nil {
		return nil, fmt.Errorf("bundle metadata: %w", err)
	}

	registry := make([]domain.RegistryEntry, 0, len(b.Registry))
	known := make(map[domain.SKUKey]struct{}, len(b.Registry))
	for _, e := range b.Registry {
		if err := e.Validate(); err != nil {
			log.Warn().Err(err).Str("sku", string(e.Key)).Msg("skipping invalid registry entry")
			continue
		}
		registry = append(registry, e)
		known[e.Key] = struct{}{}
	}

	series := make([]domain.SeriesRow, 0, len(b.Series))
	orphans := 0
	for _, row := range b.Series {
		if _, ok := known[row.SKUKey]; !ok {
			orphans++
			continue
		}
		series = append(series, row)
	}
	if orphans > 0 {
		log.Warn().Int("rows", orphans).Msg("skipping series rows without registry entry")
	}

	b.Registry = registry
	b.Series = series
	b.Metadata.TotalSKUs = len(registry)
	return &b, nil
}

// Source yields the latest bundle.
type Source interface {
	Load(ctx context.Context) (*domain.Bundle, error)
}

// FileSource reads a bundle from a local path.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) (*domain.Bundle, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// ObjectSource reads a bundle from object storage.
type ObjectSource struct {
	Storage storage.ObjectStorage
	Key     string
}

func (s ObjectSource) Load(ctx context.Context) (*domain.Bundle, error) {
	rc, err := s.Storage.GetObject(ctx, s.Key)
	if err != nil {
		return nil, fmt.Errorf("fetch bundle: %w", err)
	}
	defer rc.Close()
	return Decode(rc)
}

// Clock returns the current time.
type Clock func() time.Time

// BundleCache keeps the last loaded bundle until the clock enters a month
// other than the one it was loaded in.
type BundleCache struct {
	source Source
	now    Clock
	retry  time.Duration

	mu       sync.Mutex
	bundle   *domain.Bundle
	month    calendar.MonthKey
	failedAt time.Time
}

// DefaultRetryInterval spaces out reload attempts while a stale bundle is
// being served.
const DefaultRetryInterval = 5 * time.Minute

type CacheOption func(*BundleCache)

// WithRetryInterval sets how long a failed month rollover waits before the
// source is tried again.
func WithRetryInterval(d time.Duration) CacheOption {
	return func(c *BundleCache) {
		if d > 0 {
			c.retry = d
		}
	}
}

func NewBundleCache(source Source, now Clock, opts ...CacheOption) *BundleCache {
	if now == nil {
		now = time.Now
	}
	c := &BundleCache{source: source, now: now, retry: DefaultRetryInterval}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached bundle, loading it on first use or when the month
// changed. It reports whether a load happened.
func (c *BundleCache) Get(ctx context.Context) (*domain.Bundle, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	month := calendar.MonthKeyOf(now)
	if c.bundle != nil && c.month == month {
		return c.bundle, false, nil
	}
	if c.bundle != nil && !c.failedAt.IsZero() && now.Sub(c.failedAt) < c.retry {
		return c.bundle, false, nil
	}

	b, err := c.source.Load(ctx)
	if err != nil {
		if c.bundle != nil {
			c.failedAt = now
			log.Warn().Err(err).Str("month", string(month)).Dur("retry_in", c.retry).Msg("bundle reload failed, serving previous bundle")
			return c.bundle, false, nil
		}
		return nil, false, err
	}
	c.bundle, c.month, c.failedAt = b, month, time.Time{}
	return b, true, nil
}

// Reload loads unconditionally. On failure the previous bundle stays.
func (c *BundleCache) Reload(ctx context.Context) (*domain.Bundle, error) {
	b, err := c.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.bundle, c.month, c.failedAt = b, calendar.MonthKeyOf(c.now()), time.Time{}
	c.mu.Unlock()
	return b, nil
}

// ErrNoSource is returned by NewSource when neither a path nor storage is
// configured.
var ErrNoSource = errors.New("no bundle source configured")

// NewSource prefers a readable local path and falls back to object storage.
func NewSource(path string, store storage.ObjectStorage, key string) (Source, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return FileSource{Path: path}, nil
		}
	}
	if store != nil && key != "" {
		return ObjectSource{Storage: store, Key: key}, nil
	}
	if path != "" {
		return FileSource{Path: path}, nil
	}
	return nil, ErrNoSource
}
