package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fnpulse/adserver/internal/ads"
	"github.com/fnpulse/adserver/internal/config"
	"github.com/fnpulse/adserver/internal/metrics"
	"github.com/fnpulse/adserver/internal/targeting"
)

// Services bundles the ad server's service layer for route wiring.
type Services struct {
	Banners    *ads.BannerService
	Placements *ads.PlacementService
	Clients    *ads.ClientService
	Campaigns  *ads.CampaignService
	Analytics  *ads.AnalyticsService
}

// Server is the HTTP server for the admin API and the public delivery
// and tracking endpoints.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	svc        Services
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Metrics
	geo        targeting.GeoResolver
}

// NewServer creates a server with all routes configured. The outer
// middleware chain (recovery, logging, rate limiting, auth) is applied
// by the caller around Handler.
func NewServer(svc Services, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, geo targeting.GeoResolver) *Server {
	if geo == nil {
		geo = targeting.NoopResolver{}
	}
	s := &Server{
		router:  chi.NewRouter(),
		svc:     svc,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		geo:     geo,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Public delivery and tracking surface.
	s.router.Get("/api/deliver/{placementId}", s.handleDeliver)
	s.router.Post("/api/track/impression", s.handleTrackImpression)
	s.router.Post("/api/track/click", s.handleTrackClick)
	s.router.Get("/click/{bannerId}", s.handleClickRedirect)

	// Admin API.
	s.router.Route("/api/banners", func(r chi.Router) {
		r.Get("/", s.handleBannerList)
		r.Post("/", s.handleBannerCreate)
		r.Get("/stats", s.handleBannerStats)
		r.Get("/{id}", s.handleBannerGet)
		r.Put("/{id}", s.handleBannerUpdate)
		r.Delete("/{id}", s.handleBannerDelete)
		r.Post("/{id}/toggle", s.handleBannerToggle)
		r.Post("/{id}/duplicate", s.handleBannerDuplicate)
		r.Get("/{id}/versions", s.handleBannerVersions)
	})

	s.router.Route("/api/placements", func(r chi.Router) {
		r.Get("/", s.handlePlacementList)
		r.Post("/", s.handlePlacementCreate)
		r.Get("/stats", s.handlePlacementAllStats)
		r.Get("/{id}", s.handlePlacementGet)
		r.Put("/{id}", s.handlePlacementUpdate)
		r.Delete("/{id}", s.handlePlacementDelete)
		r.Post("/{id}/toggle", s.handlePlacementToggle)
		r.Get("/{id}/stats", s.handlePlacementStats)
		r.Get("/{id}/banners", s.handlePlacementBanners)
		r.Get("/{id}/embed", s.handlePlacementEmbed)
	})

	s.router.Route("/api/clients", func(r chi.Router) {
		r.Get("/", s.handleClientList)
		r.Post("/", s.handleClientCreate)
		r.Get("/{id}", s.handleClientGet)
		r.Put("/{id}", s.handleClientUpdate)
		r.Delete("/{id}", s.handleClientDelete)
		r.Get("/{id}/stats", s.handleClientStats)
		r.Get("/{id}/banners", s.handleClientBanners)
		r.Get("/{id}/campaigns", s.handleClientCampaigns)
	})

	s.router.Route("/api/campaigns", func(r chi.Router) {
		r.Get("/", s.handleCampaignList)
		r.Post("/", s.handleCampaignCreate)
		r.Get("/{id}", s.handleCampaignGet)
		r.Put("/{id}", s.handleCampaignUpdate)
		r.Delete("/{id}", s.handleCampaignDelete)
		r.Get("/{id}/stats", s.handleCampaignStats)
		r.Get("/{id}/banners", s.handleCampaignBanners)
	})

	s.router.Route("/api/analytics", func(r chi.Router) {
		r.Get("/summary", s.handleAnalyticsSummary)
		r.Get("/banner/{id}", s.handleAnalyticsBanner)
		r.Get("/placement/{id}", s.handleAnalyticsPlacement)
		r.Get("/client/{id}", s.handleAnalyticsClient)
		r.Get("/export/{type}/{id}", s.handleAnalyticsExport)
	})

	s.router.Get("/api/audit-log", s.handleAuditLog)
	s.router.Get("/api/settings", s.handleSettingsGet)
	s.router.Put("/api/settings", s.handleSettingsUpdate)
	s.router.Post("/api/maintenance/sweep", s.handleMaintenanceSweep)
	s.router.Post("/api/maintenance/cleanup", s.handleMaintenanceCleanup)
}

// Handler returns the route tree for middleware wrapping.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("starting HTTP server", zap.String("addr", s.cfg.Server.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ok wraps a payload in the {"success":true,"<entity>":...} envelope.
func ok(w http.ResponseWriter, entity string, v any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, entity: v})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch ads.ErrKind(err) {
	case ads.KindNotFound:
		status = http.StatusNotFound
	case ads.KindValidation, ads.KindUnsupported:
		status = http.StatusBadRequest
	case ads.KindReferentialIntegrity:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// userID identifies the admin actor for audit entries. With single-key
// auth there is no per-user identity, so a header is trusted when set.
func userID(r *http.Request) string {
	if u := r.Header.Get("X-User-ID"); u != "" {
		return u
	}
	return "admin"
}
