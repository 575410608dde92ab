package ads

import (
	"time"

	"github.com/fnpulse/adserver/internal/models"
	"github.com/fnpulse/adserver/internal/storage"
	"go.uber.org/zap"
)

// CampaignService manages campaigns and their goal tracking.
type CampaignService struct {
	inv       storage.InventoryStore
	analytics storage.AnalyticsStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewCampaignService(inv storage.InventoryStore, analytics storage.AnalyticsStore, logger *zap.Logger) *CampaignService {
	return &CampaignService{inv: inv, analytics: analytics, logger: logger, now: time.Now}
}

func (s *CampaignService) List() ([]models.Campaign, error) {
	var out []models.Campaign
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		out = append(out, doc.Campaigns...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CampaignService) Get(id string) (*models.Campaign, error) {
	var found *models.Campaign
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if c := findCampaign(doc, id); c != nil {
			cp := *c
			found = &cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, notFoundf("campaign %s not found", id)
	}
	return found, nil
}

// Create adds a campaign for an existing client. New campaigns start in
// draft with an unlimited budget unless specified.
func (s *CampaignService) Create(in models.Campaign) (*models.Campaign, error) {
	now := s.now().UTC()
	c := in
	c.ID = newID("cam")
	if c.Status == "" {
		c.Status = models.CampaignStatusDraft
	}
	if c.BudgetType == "" {
		c.BudgetType = models.BudgetUnlimited
	}
	if len(c.DefaultPageTargeting) == 0 {
		c.DefaultPageTargeting = []string{"all"}
	}
	if c.DefaultDeviceTargeting == "" {
		c.DefaultDeviceTargeting = "all"
	}
	c.SpentAmount = 0
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := c.Validate(); err != nil {
		return nil, validationf("invalid campaign: %v", err)
	}

	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		if findClient(doc, c.ClientID) == nil {
			return refIntegrityf("client %s not found", c.ClientID)
		}
		doc.Campaigns = append(doc.Campaigns, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("campaign created", zap.String("campaign_id", c.ID), zap.String("client_id", c.ClientID))
	return &c, nil
}

func (s *CampaignService) Update(id string, in models.Campaign) (*models.Campaign, error) {
	now := s.now().UTC()
	var updated models.Campaign
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		cur := findCampaign(doc, id)
		if cur == nil {
			return notFoundf("campaign %s not found", id)
		}
		next := in
		next.ID = cur.ID
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = now
		if next.ClientID == "" {
			next.ClientID = cur.ClientID
		}
		if err := next.Validate(); err != nil {
			return validationf("invalid campaign: %v", err)
		}
		if findClient(doc, next.ClientID) == nil {
			return refIntegrityf("client %s not found", next.ClientID)
		}
		*cur = next
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a campaign. It fails while the campaign still has
// active banners.
func (s *CampaignService) Delete(id string) error {
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		if findCampaign(doc, id) == nil {
			return notFoundf("campaign %s not found", id)
		}
		active := 0
		for _, b := range doc.Banners {
			if b.CampaignID == id && b.Status == models.BannerStatusActive {
				active++
			}
		}
		if active > 0 {
			return refIntegrityf("cannot delete campaign with %d active banner(s)", active)
		}
		out := doc.Campaigns[:0]
		for _, c := range doc.Campaigns {
			if c.ID != id {
				out = append(out, c)
			}
		}
		doc.Campaigns = out
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("campaign deleted", zap.String("campaign_id", id))
	return nil
}

// Banners returns every banner assigned to the campaign.
func (s *CampaignService) Banners(campaignID string) ([]models.Banner, error) {
	var out []models.Banner
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		for _, b := range doc.Banners {
			if b.CampaignID == campaignID {
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

// CampaignStats aggregates performance and goal progress for a campaign.
// Progress fields are percentages with one decimal, empty when the
// campaign has no corresponding goal.
type CampaignStats struct {
	Campaign           models.Campaign `json:"campaign"`
	TotalBanners       int             `json:"totalBanners"`
	ActiveBanners      int             `json:"activeBanners"`
	Impressions        int64           `json:"totalImpressions"`
	Clicks             int64           `json:"totalClicks"`
	CTR                string          `json:"ctr"`
	ImpressionProgress string          `json:"impressionProgress,omitempty"`
	ClickProgress      string          `json:"clickProgress,omitempty"`
}

// Stats sums the campaign's banner traffic from the daily rollup.
func (s *CampaignService) Stats(campaignID string) (*CampaignStats, error) {
	stats := &CampaignStats{}
	bannerIDs := make(map[string]bool)
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		c := findCampaign(doc, campaignID)
		if c == nil {
			return notFoundf("campaign %s not found", campaignID)
		}
		stats.Campaign = *c
		for _, b := range doc.Banners {
			if b.CampaignID != campaignID {
				continue
			}
			stats.TotalBanners++
			if b.Status == models.BannerStatusActive {
				stats.ActiveBanners++
			}
			bannerIDs[b.ID] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.analytics.View(func(doc *storage.AnalyticsDoc) error {
		for _, day := range doc.DailyStats {
			for id, c := range day.Banners {
				if bannerIDs[id] {
					stats.Impressions += c.Impressions
					stats.Clicks += c.Clicks
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.CTR = ctrString(stats.Impressions, stats.Clicks)
	if stats.Campaign.ImpressionGoal > 0 {
		stats.ImpressionProgress = percentString(stats.Impressions, int64(stats.Campaign.ImpressionGoal), 1)
	}
	if stats.Campaign.ClickGoal > 0 {
		stats.ClickProgress = percentString(stats.Clicks, int64(stats.Campaign.ClickGoal), 1)
	}
	return stats, nil
}

func findCampaign(doc *storage.InventoryDoc, id string) *models.Campaign {
	for i := range doc.Campaigns {
		if doc.Campaigns[i].ID == id {
			return &doc.Campaigns[i]
		}
	}
	return nil
}
