package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the FNPulse ad server.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Geo       GeoConfig
	Delivery  DeliveryConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

// StorageConfig locates the document store files.
type StorageConfig struct {
	InventoryPath string
	AnalyticsPath string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled    bool
	RPS        float64
	Burst      int
	AdminRPS   float64
	AdminBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
	Port    string
}

// GeoConfig configures GeoIP lookup for geo targeting.
type GeoConfig struct {
	Enabled      bool
	DatabasePath string
	CacheSize    int
	CacheTTL     time.Duration
}

// DeliveryConfig holds delivery and maintenance cadence settings.
type DeliveryConfig struct {
	StatusSweepInterval time.Duration
	CleanupInterval     time.Duration
	CleanupDaysToKeep   int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("FNP_ADS_HTTP_ADDR", ":8080"),
			Env:             getEnv("FNP_ADS_ENV", "development"),
			ShutdownTimeout: getDurationEnv("FNP_ADS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			InventoryPath: getEnv("FNP_ADS_INVENTORY_PATH", "data/inventory.db"),
			AnalyticsPath: getEnv("FNP_ADS_ANALYTICS_PATH", "data/analytics.db"),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("FNP_ADS_AUTH_ENABLED", true),
			MasterKey: getEnv("FNP_ADS_API_KEY", ""),
			SkipPaths: getSliceEnv("FNP_ADS_AUTH_SKIP_PATHS", []string{"/health", "/metrics", "/api/deliver", "/api/track", "/click"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getBoolEnv("FNP_ADS_RATE_LIMIT_ENABLED", true),
			RPS:        getFloatEnv("FNP_ADS_RATE_LIMIT_RPS", 500),
			Burst:      getIntEnv("FNP_ADS_RATE_LIMIT_BURST", 100),
			AdminRPS:   getFloatEnv("FNP_ADS_RATE_LIMIT_ADMIN_RPS", 50),
			AdminBurst: getIntEnv("FNP_ADS_RATE_LIMIT_ADMIN_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("FNP_ADS_LOG_LEVEL", "info"),
			Format: getEnv("FNP_ADS_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("FNP_ADS_METRICS_ENABLED", true),
			Path:    getEnv("FNP_ADS_METRICS_PATH", "/metrics"),
			Port:    getEnv("FNP_ADS_METRICS_PORT", "9090"),
		},
		Geo: GeoConfig{
			Enabled:      getBoolEnv("FNP_ADS_GEO_ENABLED", false),
			DatabasePath: getEnv("FNP_ADS_GEO_DB_PATH", "data/GeoLite2-Country.mmdb"),
			CacheSize:    getIntEnv("FNP_ADS_GEO_CACHE_SIZE", 10000),
			CacheTTL:     getDurationEnv("FNP_ADS_GEO_CACHE_TTL", 1*time.Hour),
		},
		Delivery: DeliveryConfig{
			StatusSweepInterval: getDurationEnv("FNP_ADS_STATUS_SWEEP_INTERVAL", 1*time.Minute),
			CleanupInterval:     getDurationEnv("FNP_ADS_CLEANUP_INTERVAL", 12*time.Hour),
			CleanupDaysToKeep:   getIntEnv("FNP_ADS_CLEANUP_DAYS", 90),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("FNP_ADS_API_KEY is required when auth is enabled")
	}
	if c.Storage.InventoryPath == "" || c.Storage.AnalyticsPath == "" {
		return fmt.Errorf("storage paths must not be empty")
	}
	if c.Delivery.CleanupDaysToKeep < 1 {
		return fmt.Errorf("FNP_ADS_CLEANUP_DAYS must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
