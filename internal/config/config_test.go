package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/nandorodriques37/planejamento-compras-app/internal/config"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	cfg := config.FromViper(v)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 8, cfg.Planning.Workers)
	assert.Equal(t, "memory", cfg.Planning.ApprovalStore)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, int64(10), cfg.Database.MaxConns)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 5*time.Minute, cfg.Planning.BundleRetry())
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("PLANNING_WORKERS", 2)
	v.Set("STORAGE_ENABLED", true)
	v.Set("STORAGE_BUCKET", "compras")
	v.Set("CACHE_PROJECTION_TTL_SECONDS", 30)

	cfg := config.FromViper(v)
	assert.Equal(t, 2, cfg.Planning.Workers)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "compras", cfg.Storage.Bucket)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL())
}
