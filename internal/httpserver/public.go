package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fnpulse/adserver/internal/ads"
	"github.com/fnpulse/adserver/internal/models"
	"github.com/fnpulse/adserver/internal/targeting"
)

const sessionCookie = "fnp_session"

// deliveredBanner is the public wire shape for a selected creative.
type deliveredBanner struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Size      string `json:"size"`
	AssetURL  string `json:"assetUrl,omitempty"`
	HTMLCode  string `json:"htmlCode,omitempty"`
	TargetURL string `json:"targetUrl,omitempty"`
	AltText   string `json:"altText,omitempty"`
}

func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	placementID := chi.URLParam(r, "placementId")
	q := r.URL.Query()

	ctx := ads.DeliveryContext{
		Device:   q.Get("device"),
		PageType: q.Get("pageType"),
	}
	if info, err := s.geo.Lookup(targeting.ClientIP(r)); err == nil && info != nil {
		ctx.Country = info.CountryCode
	}

	banners, err := s.svc.Banners.ActiveBannersForPlacement(placementID, ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Frequency caps are enforced at serve time against the session.
	if sid := sessionID(r); sid != "" {
		banners = s.applyFrequencyCaps(banners, sid)
	}

	out := make([]deliveredBanner, 0, len(banners))
	for i := range banners {
		b := &banners[i]
		out = append(out, deliveredBanner{
			ID:        b.ID,
			Type:      string(b.CreativeType),
			Size:      b.Size,
			AssetURL:  b.AssetURL,
			HTMLCode:  b.HTMLCode,
			TargetURL: ads.BuildUTMURL(b),
			AltText:   b.AltText,
		})
	}

	s.metrics.RecordDelivery(placementID, ctx.Device, "", len(out), time.Since(start))
	ok(w, "banners", out)
}

// applyFrequencyCaps drops banners the session has already seen too many
// times today. Banners without a cap pass through.
func (s *Server) applyFrequencyCaps(banners []models.Banner, sessionID string) []models.Banner {
	out := banners[:0]
	for _, b := range banners {
		if b.FrequencyCap <= 0 {
			out = append(out, b)
			continue
		}
		allowed, err := s.svc.Analytics.CheckFrequencyCap(b.ID, sessionID, b.FrequencyCap)
		if err != nil || allowed {
			out = append(out, b)
			continue
		}
		s.metrics.RecordFreqCapRejection(b.ID)
	}
	return out
}

func (s *Server) handleTrackImpression(w http.ResponseWriter, r *http.Request) {
	var in ads.EventInput
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	s.fillEventDefaults(&in, r)

	imp, err := s.svc.Analytics.RecordImpression(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.RecordImpression(in.PlacementID)
	ok(w, "impression", imp)
}

func (s *Server) handleTrackClick(w http.ResponseWriter, r *http.Request) {
	var in ads.EventInput
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	s.fillEventDefaults(&in, r)

	clk, err := s.svc.Analytics.RecordClick(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.RecordClick(in.PlacementID)
	ok(w, "click", clk)
}

// handleClickRedirect records a click then redirects to the banner's
// tracking URL. Any failure falls back to the site root so the visitor
// is never stranded on an error page.
func (s *Server) handleClickRedirect(w http.ResponseWriter, r *http.Request) {
	bannerID := chi.URLParam(r, "bannerId")

	banner, err := s.svc.Banners.Get(bannerID)
	if err != nil {
		s.logger.Warn("click redirect for unknown banner", zap.String("banner_id", bannerID))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	target := ads.BuildUTMURL(banner)
	if target == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	in := ads.EventInput{
		BannerID:   bannerID,
		ClientID:   banner.ClientID,
		CampaignID: banner.CampaignID,
		TargetURL:  target,
	}
	if len(banner.Placements) > 0 {
		in.PlacementID = banner.Placements[0]
	}
	s.fillEventDefaults(&in, r)
	if _, err := s.svc.Analytics.RecordClick(in); err != nil {
		s.logger.Warn("click record failed", zap.String("banner_id", bannerID), zap.Error(err))
	} else {
		s.metrics.RecordClick(in.PlacementID)
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// fillEventDefaults derives event context from the request when the body
// omits it: page URL from the referer, session from the visitor cookie,
// geography from the client IP.
func (s *Server) fillEventDefaults(in *ads.EventInput, r *http.Request) {
	if in.PageURL == "" {
		in.PageURL = r.Referer()
	}
	if in.SessionID == "" {
		in.SessionID = sessionID(r)
	}
	if in.UserAgent == "" {
		in.UserAgent = r.UserAgent()
	}
	if in.Country == "" {
		if info, err := s.geo.Lookup(targeting.ClientIP(r)); err == nil && info != nil {
			in.Country = info.CountryCode
			if in.Region == "" {
				in.Region = info.Region
			}
		}
	}
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
