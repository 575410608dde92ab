package ads

import (
	"time"

	"github.com/fnpulse/adserver/internal/models"
	"github.com/fnpulse/adserver/internal/storage"
	"go.uber.org/zap"
)

// ClientService manages advertiser accounts.
type ClientService struct {
	inv       storage.InventoryStore
	analytics storage.AnalyticsStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewClientService(inv storage.InventoryStore, analytics storage.AnalyticsStore, logger *zap.Logger) *ClientService {
	return &ClientService{inv: inv, analytics: analytics, logger: logger, now: time.Now}
}

func (s *ClientService) List() ([]models.Client, error) {
	var out []models.Client
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		out = append(out, doc.Clients...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ClientService) Get(id string) (*models.Client, error) {
	var found *models.Client
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if c := findClient(doc, id); c != nil {
			cp := *c
			found = &cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, notFoundf("client %s not found", id)
	}
	return found, nil
}

// Create adds a new client account. New accounts default to active
// standard tier with net30 payment terms.
func (s *ClientService) Create(in models.Client) (*models.Client, error) {
	now := s.now().UTC()
	c := in
	c.ID = newID("cli")
	if c.Status == "" {
		c.Status = models.ClientStatusActive
	}
	if c.Tier == "" {
		c.Tier = models.TierStandard
	}
	if c.PaymentTerms == "" {
		c.PaymentTerms = "net30"
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := c.Validate(); err != nil {
		return nil, validationf("invalid client: %v", err)
	}

	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		doc.Clients = append(doc.Clients, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("client created", zap.String("client_id", c.ID), zap.String("name", c.Name))
	return &c, nil
}

func (s *ClientService) Update(id string, in models.Client) (*models.Client, error) {
	now := s.now().UTC()
	var updated models.Client
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		cur := findClient(doc, id)
		if cur == nil {
			return notFoundf("client %s not found", id)
		}
		next := in
		next.ID = cur.ID
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = now
		if err := next.Validate(); err != nil {
			return validationf("invalid client: %v", err)
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

// Delete removes a client. It fails while the client still has active
// banners; those must be deactivated or reassigned first. The client's
// campaigns are removed along with the account.
func (s *ClientService) Delete(id string) error {
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		if findClient(doc, id) == nil {
			return notFoundf("client %s not found", id)
		}
		active := 0
		for _, b := range doc.Banners {
			if b.ClientID == id && b.Status == models.BannerStatusActive {
				active++
			}
		}
		if active > 0 {
			return refIntegrityf("cannot delete client with %d active banner(s)", active)
		}
		clients := doc.Clients[:0]
		for _, c := range doc.Clients {
			if c.ID != id {
				clients = append(clients, c)
			}
		}
		doc.Clients = clients
		campaigns := doc.Campaigns[:0]
		for _, c := range doc.Campaigns {
			if c.ClientID != id {
				campaigns = append(campaigns, c)
			}
		}
		doc.Campaigns = campaigns
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("client deleted", zap.String("client_id", id))
	return nil
}

// Banners returns every banner owned by the client, any status.
func (s *ClientService) Banners(clientID string) ([]models.Banner, error) {
	var out []models.Banner
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		for _, b := range doc.Banners {
			if b.ClientID == clientID {
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

// Campaigns returns every campaign owned by the client.
func (s *ClientService) Campaigns(clientID string) ([]models.Campaign, error) {
	var out []models.Campaign
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		for _, c := range doc.Campaigns {
			if c.ClientID == clientID {
				out = append(out, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClientStats aggregates an advertiser's footprint and performance.
type ClientStats struct {
	TotalBanners    int    `json:"totalBanners"`
	ActiveBanners   int    `json:"activeBanners"`
	PausedBanners   int    `json:"pausedBanners"`
	TotalCampaigns  int    `json:"totalCampaigns"`
	ActiveCampaigns int    `json:"activeCampaigns"`
	Impressions     int64  `json:"totalImpressions"`
	Clicks          int64  `json:"totalClicks"`
	CTR             string `json:"ctr"`
}

// Stats counts the client's banners and campaigns and sums its traffic
// from the daily rollup.
func (s *ClientService) Stats(clientID string) (*ClientStats, error) {
	stats := &ClientStats{}
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if findClient(doc, clientID) == nil {
			return notFoundf("client %s not found", clientID)
		}
		for _, b := range doc.Banners {
			if b.ClientID != clientID {
				continue
			}
			stats.TotalBanners++
			switch b.Status {
			case models.BannerStatusActive:
				stats.ActiveBanners++
			case models.BannerStatusPaused:
				stats.PausedBanners++
			}
		}
		for _, c := range doc.Campaigns {
			if c.ClientID != clientID {
				continue
			}
			stats.TotalCampaigns++
			if c.Status == models.CampaignStatusActive {
				stats.ActiveCampaigns++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.analytics.View(func(doc *storage.AnalyticsDoc) error {
		for _, day := range doc.DailyStats {
			if c, ok := day.Clients[clientID]; ok {
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
	return stats, nil
}

func findClient(doc *storage.InventoryDoc, id string) *models.Client {
	for i := range doc.Clients {
		if doc.Clients[i].ID == id {
			return &doc.Clients[i]
		}
	}
	return nil
}
