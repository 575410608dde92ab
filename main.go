package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fnpulse/adserver/internal/ads"
	"github.com/fnpulse/adserver/internal/config"
	"github.com/fnpulse/adserver/internal/httpserver"
	"github.com/fnpulse/adserver/internal/metrics"
	"github.com/fnpulse/adserver/internal/middleware"
	"github.com/fnpulse/adserver/internal/storage"
	"github.com/fnpulse/adserver/internal/targeting"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use logger yet, fall back to panic
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting FNPulse ad server",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open document stores
	inventory, err := storage.Open(cfg.Storage.InventoryPath, time.Now().UTC())
	if err != nil {
		logger.Fatal("failed to open inventory store", zap.Error(err))
	}
	defer inventory.Close()

	analytics, err := storage.Open(cfg.Storage.AnalyticsPath, time.Now().UTC())
	if err != nil {
		logger.Fatal("failed to open analytics store", zap.Error(err))
	}
	defer analytics.Close()

	invStore := inventory.Inventory()
	anStore := analytics.Analytics()

	m := metrics.NewMetrics("fnp")
	inventory.SetObserver(m.RecordStoreOp)
	analytics.SetObserver(m.RecordStoreOp)

	// GeoIP resolver for geo targeting
	var geo targeting.GeoResolver = targeting.NoopResolver{}
	if cfg.Geo.Enabled {
		resolver, err := targeting.NewMaxMindResolver(cfg.Geo.DatabasePath)
		if err != nil {
			logger.Warn("geoip database unavailable, geo targeting disabled", zap.Error(err))
		} else {
			cached := targeting.NewCachedResolver(resolver, cfg.Geo.CacheSize, cfg.Geo.CacheTTL)
			cached.OnLookup = m.RecordGeoLookup
			geo = cached
		}
	}
	defer geo.Close()

	// Build services
	svc := httpserver.Services{
		Banners:    ads.NewBannerService(invStore, anStore, logger),
		Placements: ads.NewPlacementService(invStore, anStore, logger),
		Clients:    ads.NewClientService(invStore, anStore, logger),
		Campaigns:  ads.NewCampaignService(invStore, anStore, logger),
		Analytics:  ads.NewAnalyticsService(invStore, anStore, logger),
	}

	server := httpserver.NewServer(svc, cfg, logger, m, geo)

	// Apply middleware chain (order matters: outermost first)
	// Recovery -> Logging -> RateLimit -> Auth -> Handler
	recoveryMW := middleware.NewRecoveryMiddleware(logger)
	loggingMW := middleware.NewLoggingMiddleware(logger)
	rateLimitMW := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	rateLimitMW.SetMetrics(m)
	authMW := middleware.NewAuthMiddleware(cfg.Auth, logger)

	finalHandler := recoveryMW.Handler(
		loggingMW.Handler(
			rateLimitMW.Handler(
				authMW.Handler(server.Handler()),
			),
		),
	)

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(finalHandler); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Metrics endpoint on its own port
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, metrics.Handler())
			addr := ":" + cfg.Metrics.Port
			logger.Info("metrics server starting", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	// Banner status sweep goroutine
	go func() {
		ticker := time.NewTicker(cfg.Delivery.StatusSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := svc.Banners.SweepStatuses(); err != nil {
					logger.Error("status sweep failed", zap.Error(err))
				}
				if sum, err := svc.Banners.Stats(); err == nil {
					m.UpdateInventoryCounts(sum.Active, sum.Placements)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Analytics cleanup goroutine
	go func() {
		ticker := time.NewTicker(cfg.Delivery.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := svc.Analytics.CleanupOldData(cfg.Delivery.CleanupDaysToKeep); err != nil {
					logger.Error("analytics cleanup failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Cancel main context to stop background goroutines
	cancel()

	logger.Info("server stopped")
}
