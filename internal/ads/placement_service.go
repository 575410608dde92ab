package ads

import (
	"fmt"
	"strings"
	"time"

	"github.com/fnpulse/adserver/internal/models"
	"github.com/fnpulse/adserver/internal/storage"
	"go.uber.org/zap"
)

// PlacementService manages the ad slot configuration and the stats and
// embed snippets derived from it.
type PlacementService struct {
	inv       storage.InventoryStore
	analytics storage.AnalyticsStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewPlacementService(inv storage.InventoryStore, analytics storage.AnalyticsStore, logger *zap.Logger) *PlacementService {
	return &PlacementService{inv: inv, analytics: analytics, logger: logger, now: time.Now}
}

// List returns all placements in stored order.
func (s *PlacementService) List() ([]models.Placement, error) {
	var out []models.Placement
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		out = append(out, doc.Placements...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PlacementService) Get(id string) (*models.Placement, error) {
	var found *models.Placement
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if p := findPlacement(doc, id); p != nil {
			cp := *p
			found = &cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, notFoundf("placement %s not found", id)
	}
	return found, nil
}

// Create adds a new placement. New placements are enabled, lazy-loaded
// and labeled unless the caller disables those after creation.
func (s *PlacementService) Create(in models.Placement) (*models.Placement, error) {
	if v := Validate(&in); !v.Valid {
		return nil, validationf("invalid placement: %s", strings.Join(v.Errors, "; "))
	}
	now := s.now().UTC()
	p := in
	if p.ID == "" {
		p.ID = newID("plc")
	}
	p.Enabled = true
	p.LazyLoad = true
	p.ShowLabel = true
	if p.LabelText == "" {
		p.LabelText = "Advertisement"
	}
	if p.DeviceTarget == "" {
		p.DeviceTarget = "all"
	}
	if p.Rotation == "" {
		p.Rotation = models.RotationWeighted
	}
	if p.Priority == 0 {
		p.Priority = 5
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		if findPlacement(doc, p.ID) != nil {
			return validationf("placement %s already exists", p.ID)
		}
		doc.Placements = append(doc.Placements, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("placement created", zap.String("placement_id", p.ID), zap.String("name", p.Name))
	return &p, nil
}

// Update replaces a placement's configuration, keeping its identity and
// creation time.
func (s *PlacementService) Update(id string, in models.Placement) (*models.Placement, error) {
	if v := Validate(&in); !v.Valid {
		return nil, validationf("invalid placement: %s", strings.Join(v.Errors, "; "))
	}
	now := s.now().UTC()
	var updated models.Placement
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		cur := findPlacement(doc, id)
		if cur == nil {
			return notFoundf("placement %s not found", id)
		}
		next := in
		next.ID = cur.ID
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = now
		*cur = next
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a placement. It fails while any banner still lists the
// placement; the banner assignments must be cleared first.
func (s *PlacementService) Delete(id string) error {
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		if findPlacement(doc, id) == nil {
			return notFoundf("placement %s not found", id)
		}
		for _, b := range doc.Banners {
			if contains(b.Placements, id) {
				return refIntegrityf("placement %s is still assigned to banner %s", id, b.ID)
			}
		}
		out := doc.Placements[:0]
		for _, p := range doc.Placements {
			if p.ID != id {
				out = append(out, p)
			}
		}
		doc.Placements = out
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("placement deleted", zap.String("placement_id", id))
	return nil
}

// Toggle flips a placement's enabled flag.
func (s *PlacementService) Toggle(id string) (*models.Placement, error) {
	now := s.now().UTC()
	var toggled models.Placement
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		p := findPlacement(doc, id)
		if p == nil {
			return notFoundf("placement %s not found", id)
		}
		p.Enabled = !p.Enabled
		p.UpdatedAt = now
		toggled = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &toggled, nil
}

// ByPageType returns enabled placements serving the page type, including
// site-wide placements.
func (s *PlacementService) ByPageType(pageType models.PageType) ([]models.Placement, error) {
	var out []models.Placement
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		for _, p := range doc.Placements {
			if p.Enabled && (p.PageType == pageType || p.PageType == models.PageAll) {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Banners returns every banner assigned to the placement, any status.
func (s *PlacementService) Banners(placementID string) ([]models.Banner, error) {
	var out []models.Banner
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if findPlacement(doc, placementID) == nil {
			return notFoundf("placement %s not found", placementID)
		}
		for _, b := range doc.Banners {
			if contains(b.Placements, placementID) {
				out = append(out, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PlacementStats aggregates delivery performance for one slot.
type PlacementStats struct {
	Placement     models.Placement `json:"placement"`
	TotalBanners  int              `json:"totalBanners"`
	ActiveBanners int              `json:"activeBanners"`
	Impressions   int64            `json:"totalImpressions"`
	Clicks        int64            `json:"totalClicks"`
	CTR           string           `json:"ctr"`
	FillRate      string           `json:"fillRate"` // percent of slot capacity filled by active banners
}

// Stats computes banner counts from the inventory and impression and
// click totals from the daily rollup.
func (s *PlacementService) Stats(placementID string) (*PlacementStats, error) {
	stats := &PlacementStats{}
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		p := findPlacement(doc, placementID)
		if p == nil {
			return notFoundf("placement %s not found", placementID)
		}
		stats.Placement = *p
		for _, b := range doc.Banners {
			if !contains(b.Placements, placementID) {
				continue
			}
			stats.TotalBanners++
			if b.Status == models.BannerStatusActive {
				stats.ActiveBanners++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.analytics.View(func(doc *storage.AnalyticsDoc) error {
		for _, day := range doc.DailyStats {
			if c, ok := day.Placements[placementID]; ok {
				stats.Impressions += c.Impressions
				stats.Clicks += c.Clicks
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.CTR = ctrString(stats.Impressions, stats.Clicks)
	if stats.Placement.MaxBanners > 0 {
		stats.FillRate = percentString(int64(stats.ActiveBanners), int64(stats.Placement.MaxBanners), 1)
	} else {
		stats.FillRate = "0"
	}
	return stats, nil
}

// AllStats returns stats for every placement.
func (s *PlacementService) AllStats() ([]PlacementStats, error) {
	placements, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]PlacementStats, 0, len(placements))
	for _, p := range placements {
		st, err := s.Stats(p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

// EmbedCode renders the self-contained snippet a page embeds to request
// this placement's banners.
func EmbedCode(p *models.Placement) string {
	label := p.LabelText
	if label == "" {
		label = "Advertisement"
	}
	return fmt.Sprintf(`<!-- FNPulse Ad Placement: %s -->
<div class="fnp-ad-placement"
     data-placement-id="%s"
     data-lazy-load="%t"
     data-refresh="%t"
     data-refresh-interval="%d">
    <script>
        (function() {
            window.FNPulseAds = window.FNPulseAds || [];
            window.FNPulseAds.push({
                placementId: '%s',
                container: document.currentScript.parentNode
            });
        })();
    </script>
    <noscript>
        <a href="/ads/fallback/%s" target="_blank">
            <img src="/ads/fallback/%s/image" alt="%s">
        </a>
    </noscript>
</div>
<!-- End FNPulse Ad Placement -->`,
		p.Name, p.ID, p.LazyLoad, p.RefreshEnabled, p.RefreshInterval, p.ID, p.ID, p.ID, label)
}

// ValidationResult lists every configuration problem found, not just the
// first.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks a placement's configuration.
func Validate(p *models.Placement) ValidationResult {
	var errs []string
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "Placement name is required")
	}
	if len(p.AllowedSizes) == 0 {
		errs = append(errs, "At least one allowed size is required")
	}
	if p.MaxBanners < 1 {
		errs = append(errs, "Max banners must be at least 1")
	}
	if p.RotationInterval != 0 && p.RotationInterval < 5 {
		errs = append(errs, "Rotation interval must be at least 5 seconds")
	}
	if p.RefreshInterval != 0 && p.RefreshInterval < 10 {
		errs = append(errs, "Refresh interval must be at least 10 seconds")
	}
	if errs == nil {
		errs = []string{}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func findPlacement(doc *storage.InventoryDoc, id string) *models.Placement {
	for i := range doc.Placements {
		if doc.Placements[i].ID == id {
			return &doc.Placements[i]
		}
	}
	return nil
}
