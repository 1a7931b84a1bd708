// Package app wires configuration into the planner, its stores and the
// approval service. The server and the CLI share it.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nandorodriques37/planejamento-compras-app/internal/approval"
	"github.com/nandorodriques37/planejamento-compras-app/internal/cache"
	"github.com/nandorodriques37/planejamento-compras-app/internal/config"
	"github.com/nandorodriques37/planejamento-compras-app/internal/loader"
	"github.com/nandorodriques37/planejamento-compras-app/internal/planning"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository/memory"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository/postgres"
	"github.com/nandorodriques37/planejamento-compras-app/internal/storage"
)

type App struct {
	Config    *config.Config
	Planner   *planning.Planner
	Bundles   *loader.BundleCache
	Storage   storage.ObjectStorage
	Approvals *approval.Service

	closers []func() error
}

// Option adjusts how New wires the app.
type Option func(*options)

type options struct {
	approvals   repository.ApprovalRepository
	projections cache.ProjectionCache
	now         func() time.Time
}

// WithApprovalRepository skips opening the configured approval store.
func WithApprovalRepository(repo repository.ApprovalRepository) Option {
	return func(o *options) { o.approvals = repo }
}

// WithProjectionCache replaces the configured projection cache.
func WithProjectionCache(c cache.ProjectionCache) Option {
	return func(o *options) { o.projections = c }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds every component and loads the bundle once. A missing bundle is
// not fatal; the planner answers ErrBundleNotAvailable until a reload works.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}

	projections := o.projections
	if projections == nil {
		var err error
		projections, err = cache.NewProjectionCache(cfg.Cache)
		if err != nil {
			log.Warn().Err(err).Msg("projection cache unavailable, using in-memory cache")
			projections = cache.NewMemoryProjectionCache()
		}
	}
	a.Planner = planning.NewPlanner(planning.WithCache(projections), planning.WithWorkers(cfg.Planning.Workers))

	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		a.Storage = client
	}

	source, err := loader.NewSource(cfg.Planning.BundlePath, a.Storage, cfg.Planning.BundleObjectKey)
	if err != nil {
		return nil, err
	}
	a.Bundles = loader.NewBundleCache(source, o.now, loader.WithRetryInterval(cfg.Planning.BundleRetry()))
	if b, _, err := a.Bundles.Get(ctx); err != nil {
		log.Warn().Err(err).Msg("initial bundle load failed")
	} else if err := a.Planner.Load(b); err != nil {
		log.Warn().Err(err).Msg("initial bundle rejected")
	}

	repo := o.approvals
	if repo == nil {
		repo, err = a.openApprovals(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Approvals = approval.NewService(repo, a.Planner, approval.WithClock(o.now))
	return a, nil
}

func (a *App) openApprovals(cfg *config.Config) (repository.ApprovalRepository, error) {
	switch strings.ToLower(cfg.Planning.ApprovalStore) {
	case "", "memory":
		return memory.NewApprovalRepository(), nil
	case "postgres":
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("init approvals database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return postgres.NewApprovalRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown approval store %q", cfg.Planning.ApprovalStore)
	}
}

// Close releases the database handles opened by New.
func (a *App) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
