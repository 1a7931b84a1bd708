package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandorodriques37/planejamento-compras-app/internal/app"
	"github.com/nandorodriques37/planejamento-compras-app/internal/cache"
	"github.com/nandorodriques37/planejamento-compras-app/internal/config"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
)

const bundleJSON = `{
  "metadata": {"reference_date": "2026-02-13", "month_keys": ["2026_02", "2026_03"]},
  "registry": [{"key": "P1-DC1", "product_name": "Arroz", "unit_cost": 4}],
  "series": [{"sku_key": "P1-DC1", "months": {"2026_02": {"demand": 28}, "2026_03": {"demand": 31}}}]
}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg := config.FromViper(v)
	cfg.Planning.BundlePath = filepath.Join(t.TempDir(), "planning.json")
	return cfg
}

func clock() time.Time {
	return time.Date(2026, time.February, 13, 10, 0, 0, 0, time.UTC)
}

func TestNewLoadsBundle(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Planning.BundlePath, []byte(bundleJSON), 0o644))

	a, err := app.New(context.Background(), cfg, app.WithClock(clock))
	require.NoError(t, err)
	defer a.Close()

	ix, err := a.Planner.Index()
	require.NoError(t, err)
	assert.Equal(t, []domain.SKUKey{"P1-DC1"}, ix.SKUs)
	assert.Nil(t, a.Storage)

	s, err := a.Planner.Series(context.Background(), "P1-DC1")
	require.NoError(t, err)
	assert.Equal(t, 28, s["2026_02"].Order)
}

func TestNewWithProjectionCache(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Planning.BundlePath, []byte(bundleJSON), 0o644))

	a, err := app.New(context.Background(), cfg,
		app.WithClock(clock),
		app.WithProjectionCache(cache.NewNoopProjectionCache()),
	)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	first, err := a.Planner.Series(ctx, "P1-DC1")
	require.NoError(t, err)
	second, err := a.Planner.Series(ctx, "P1-DC1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NoError(t, a.Planner.PurgeCache(ctx))
}

func TestNewWithoutBundle(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(t), app.WithClock(clock))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Planner.Index()
	assert.ErrorIs(t, err, domain.ErrBundleNotAvailable)
	assert.NotNil(t, a.Approvals)
}

func TestNewRejectsUnknownApprovalStore(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Planning.ApprovalStore = "sqlite"

	_, err := app.New(context.Background(), cfg, app.WithClock(clock))
	assert.ErrorContains(t, err, "unknown approval store")
}
