package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	require := require.New(t)
	t.Setenv("FNP_ADS_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(err)
	require.Equal(":8080", cfg.Server.Addr)
	require.Equal("development", cfg.Server.Env)
	require.True(cfg.IsDevelopment())
	require.Equal("data/inventory.db", cfg.Storage.InventoryPath)
	require.Equal("data/analytics.db", cfg.Storage.AnalyticsPath)
	require.Equal(1*time.Minute, cfg.Delivery.StatusSweepInterval)
	require.Equal(12*time.Hour, cfg.Delivery.CleanupInterval)
	require.Equal(90, cfg.Delivery.CleanupDaysToKeep)
	require.False(cfg.Geo.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	require := require.New(t)
	t.Setenv("FNP_ADS_API_KEY", "test-key")
	t.Setenv("FNP_ADS_HTTP_ADDR", ":9999")
	t.Setenv("FNP_ADS_ENV", "production")
	t.Setenv("FNP_ADS_RATE_LIMIT_RPS", "42.5")
	t.Setenv("FNP_ADS_CLEANUP_DAYS", "30")
	t.Setenv("FNP_ADS_AUTH_SKIP_PATHS", "/health, /metrics")

	cfg, err := Load()
	require.NoError(err)
	require.Equal(":9999", cfg.Server.Addr)
	require.True(cfg.IsProduction())
	require.Equal(42.5, cfg.RateLimit.RPS)
	require.Equal(30, cfg.Delivery.CleanupDaysToKeep)
	require.Equal([]string{"/health", "/metrics"}, cfg.Auth.SkipPaths)
}

func TestLoadRequiresAPIKeyWhenAuthEnabled(t *testing.T) {
	require := require.New(t)
	t.Setenv("FNP_ADS_API_KEY", "")

	_, err := Load()
	require.Error(err)

	t.Setenv("FNP_ADS_AUTH_ENABLED", "false")
	_, err = Load()
	require.NoError(err)
}

func TestLoadRejectsBadCleanupDays(t *testing.T) {
	require := require.New(t)
	t.Setenv("FNP_ADS_API_KEY", "k")
	t.Setenv("FNP_ADS_CLEANUP_DAYS", "0")

	_, err := Load()
	require.Error(err)
}
