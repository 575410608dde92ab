package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fnpulse/adserver/internal/ads"
	"github.com/fnpulse/adserver/internal/models"
)

// Banner handlers

func (s *Server) handleBannerList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ads.BannerFilter{
		Status:      models.BannerStatus(q.Get("status")),
		ClientID:    q.Get("clientId"),
		CampaignID:  q.Get("campaignId"),
		PlacementID: q.Get("placementId"),
	}
	banners, err := s.svc.Banners.List(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "banners", banners)
}

func (s *Server) handleBannerGet(w http.ResponseWriter, r *http.Request) {
	banner, err := s.svc.Banners.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "banner", banner)
}

func (s *Server) handleBannerCreate(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("banner", r.Method)
	var in models.Banner
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	banner, err := s.svc.Banners.Create(in, userID(r))
	if err != nil {
		s.adminError(w, "banner", err)
		return
	}
	ok(w, "banner", banner)
}

func (s *Server) handleBannerUpdate(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("banner", r.Method)
	var in models.Banner
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	banner, err := s.svc.Banners.Update(chi.URLParam(r, "id"), in, userID(r))
	if err != nil {
		s.adminError(w, "banner", err)
		return
	}
	ok(w, "banner", banner)
}

func (s *Server) handleBannerDelete(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("banner", r.Method)
	if err := s.svc.Banners.Delete(chi.URLParam(r, "id"), userID(r)); err != nil {
		s.adminError(w, "banner", err)
		return
	}
	ok(w, "deleted", true)
}

func (s *Server) handleBannerToggle(w http.ResponseWriter, r *http.Request) {
	banner, err := s.svc.Banners.Toggle(chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.adminError(w, "banner", err)
		return
	}
	ok(w, "banner", banner)
}

func (s *Server) handleBannerDuplicate(w http.ResponseWriter, r *http.Request) {
	banner, err := s.svc.Banners.Duplicate(chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.adminError(w, "banner", err)
		return
	}
	ok(w, "banner", banner)
}

func (s *Server) handleBannerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Banners.Stats()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "stats", stats)
}

func (s *Server) handleBannerVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.svc.Banners.Versions(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "versions", versions)
}

// Placement handlers

func (s *Server) handlePlacementList(w http.ResponseWriter, r *http.Request) {
	if pt := r.URL.Query().Get("pageType"); pt != "" {
		placements, err := s.svc.Placements.ByPageType(models.PageType(pt))
		if err != nil {
			s.writeError(w, err)
			return
		}
		ok(w, "placements", placements)
		return
	}
	placements, err := s.svc.Placements.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "placements", placements)
}

func (s *Server) handlePlacementGet(w http.ResponseWriter, r *http.Request) {
	placement, err := s.svc.Placements.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "placement", placement)
}

func (s *Server) handlePlacementCreate(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("placement", r.Method)
	var in models.Placement
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	placement, err := s.svc.Placements.Create(in)
	if err != nil {
		s.adminError(w, "placement", err)
		return
	}
	ok(w, "placement", placement)
}

func (s *Server) handlePlacementUpdate(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("placement", r.Method)
	var in models.Placement
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	placement, err := s.svc.Placements.Update(chi.URLParam(r, "id"), in)
	if err != nil {
		s.adminError(w, "placement", err)
		return
	}
	ok(w, "placement", placement)
}

func (s *Server) handlePlacementDelete(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("placement", r.Method)
	if err := s.svc.Placements.Delete(chi.URLParam(r, "id")); err != nil {
		s.adminError(w, "placement", err)
		return
	}
	ok(w, "deleted", true)
}

func (s *Server) handlePlacementToggle(w http.ResponseWriter, r *http.Request) {
	placement, err := s.svc.Placements.Toggle(chi.URLParam(r, "id"))
	if err != nil {
		s.adminError(w, "placement", err)
		return
	}
	ok(w, "placement", placement)
}

func (s *Server) handlePlacementStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Placements.Stats(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "stats", stats)
}

func (s *Server) handlePlacementAllStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Placements.AllStats()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "stats", stats)
}

func (s *Server) handlePlacementBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := s.svc.Placements.Banners(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "banners", banners)
}

func (s *Server) handlePlacementEmbed(w http.ResponseWriter, r *http.Request) {
	placement, err := s.svc.Placements.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "embedCode", ads.EmbedCode(placement))
}

// Client handlers

func (s *Server) handleClientList(w http.ResponseWriter, r *http.Request) {
	clients, err := s.svc.Clients.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "clients", clients)
}

func (s *Server) handleClientGet(w http.ResponseWriter, r *http.Request) {
	client, err := s.svc.Clients.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "client", client)
}

func (s *Server) handleClientCreate(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("client", r.Method)
	var in models.Client
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	client, err := s.svc.Clients.Create(in)
	if err != nil {
		s.adminError(w, "client", err)
		return
	}
	ok(w, "client", client)
}

func (s *Server) handleClientUpdate(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("client", r.Method)
	var in models.Client
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	client, err := s.svc.Clients.Update(chi.URLParam(r, "id"), in)
	if err != nil {
		s.adminError(w, "client", err)
		return
	}
	ok(w, "client", client)
}

func (s *Server) handleClientDelete(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("client", r.Method)
	if err := s.svc.Clients.Delete(chi.URLParam(r, "id")); err != nil {
		s.adminError(w, "client", err)
		return
	}
	ok(w, "deleted", true)
}

func (s *Server) handleClientStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Clients.Stats(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "stats", stats)
}

func (s *Server) handleClientBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := s.svc.Clients.Banners(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "banners", banners)
}

func (s *Server) handleClientCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.svc.Clients.Campaigns(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "campaigns", campaigns)
}

// Campaign handlers

func (s *Server) handleCampaignList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.svc.Campaigns.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "campaigns", campaigns)
}

func (s *Server) handleCampaignGet(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.svc.Campaigns.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "campaign", campaign)
}

func (s *Server) handleCampaignCreate(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("campaign", r.Method)
	var in models.Campaign
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	campaign, err := s.svc.Campaigns.Create(in)
	if err != nil {
		s.adminError(w, "campaign", err)
		return
	}
	ok(w, "campaign", campaign)
}

func (s *Server) handleCampaignUpdate(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("campaign", r.Method)
	var in models.Campaign
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	campaign, err := s.svc.Campaigns.Update(chi.URLParam(r, "id"), in)
	if err != nil {
		s.adminError(w, "campaign", err)
		return
	}
	ok(w, "campaign", campaign)
}

func (s *Server) handleCampaignDelete(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordAdminRequest("campaign", r.Method)
	if err := s.svc.Campaigns.Delete(chi.URLParam(r, "id")); err != nil {
		s.adminError(w, "campaign", err)
		return
	}
	ok(w, "deleted", true)
}

func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Campaigns.Stats(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "stats", stats)
}

func (s *Server) handleCampaignBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := s.svc.Campaigns.Banners(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "banners", banners)
}

// Audit, settings and maintenance

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := s.svc.Banners.AuditLog(ads.AuditFilter{
		EntityID: q.Get("entityId"),
		Action:   q.Get("action"),
		UserID:   q.Get("userId"),
		Limit:    limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "entries", entries)
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Banners.Settings()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "settings", settings)
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var in models.Settings
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	settings, err := s.svc.Banners.UpdateSettings(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "settings", settings)
}

func (s *Server) handleMaintenanceSweep(w http.ResponseWriter, r *http.Request) {
	changed, err := s.svc.Banners.SweepStatuses()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "transitioned", changed)
}

func (s *Server) handleMaintenanceCleanup(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	removed, err := s.svc.Analytics.CleanupOldData(days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "removedDays", removed)
}

func (s *Server) adminError(w http.ResponseWriter, entity string, err error) {
	s.metrics.RecordAdminError(entity, kindLabel(err))
	s.writeError(w, err)
}

func kindLabel(err error) string {
	switch ads.ErrKind(err) {
	case ads.KindNotFound:
		return "not_found"
	case ads.KindValidation:
		return "validation"
	case ads.KindReferentialIntegrity:
		return "referential_integrity"
	case ads.KindUnsupported:
		return "unsupported"
	}
	return "internal"
}
