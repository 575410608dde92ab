package ads

import (
	"sort"
	"strings"
	"time"

	"github.com/fnpulse/adserver/internal/models"
	"github.com/fnpulse/adserver/internal/storage"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// AnalyticsService records delivery events, maintains the daily rollup
// and serves reports derived from it.
type AnalyticsService struct {
	inv       storage.InventoryStore
	analytics storage.AnalyticsStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewAnalyticsService(inv storage.InventoryStore, analytics storage.AnalyticsStore, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{inv: inv, analytics: analytics, logger: logger, now: time.Now}
}

// EventInput carries request context for impression and click recording.
type EventInput struct {
	BannerID    string `json:"bannerId"`
	PlacementID string `json:"placementId"`
	ClientID    string `json:"clientId"`
	CampaignID  string `json:"campaignId"`

	PageURL  string `json:"pageUrl"`
	PageType string `json:"pageType"`
	Referrer string `json:"referrer"`

	SessionID string `json:"sessionId"`
	UserAgent string `json:"userAgent"`
	Device    string `json:"device"`
	Viewport  string `json:"viewport"`

	TargetURL string `json:"targetUrl"`

	Country string `json:"country"`
	Region  string `json:"region"`
}

// RecordImpression stores an impression event in the ring buffer and
// bumps the day's rollup buckets.
func (s *AnalyticsService) RecordImpression(in EventInput) (*models.Impression, error) {
	if in.BannerID == "" {
		return nil, validationf("bannerId is required")
	}
	now := s.now().UTC()
	imp := models.Impression{
		ID:          newID("imp"),
		BannerID:    in.BannerID,
		PlacementID: in.PlacementID,
		ClientID:    in.ClientID,
		CampaignID:  in.CampaignID,
		Timestamp:   now,
		PageURL:     in.PageURL,
		PageType:    in.PageType,
		Referrer:    in.Referrer,
		SessionID:   in.SessionID,
		UserAgent:   in.UserAgent,
		Device:      in.Device,
		Viewport:    in.Viewport,
		Country:     in.Country,
		Region:      in.Region,
	}
	day := now.Format(dateLayout)
	err := s.analytics.Update(func(doc *storage.AnalyticsDoc) error {
		doc.Impressions = append([]models.Impression{imp}, doc.Impressions...)
		if len(doc.Impressions) > storage.MaxBufferedEvents {
			doc.Impressions = doc.Impressions[:storage.MaxBufferedEvents]
		}
		stats := dayStats(doc, day)
		stats.Impressions++
		models.Bucket(stats.Banners, in.BannerID).Impressions++
		if in.PlacementID != "" {
			models.Bucket(stats.Placements, in.PlacementID).Impressions++
		}
		if in.ClientID != "" {
			models.Bucket(stats.Clients, in.ClientID).Impressions++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// RecordClick stores a click event in the ring buffer and bumps the
// day's rollup buckets.
func (s *AnalyticsService) RecordClick(in EventInput) (*models.Click, error) {
	if in.BannerID == "" {
		return nil, validationf("bannerId is required")
	}
	now := s.now().UTC()
	clk := models.Click{
		ID:          newID("clk"),
		BannerID:    in.BannerID,
		PlacementID: in.PlacementID,
		ClientID:    in.ClientID,
		CampaignID:  in.CampaignID,
		Timestamp:   now,
		PageURL:     in.PageURL,
		TargetURL:   in.TargetURL,
		SessionID:   in.SessionID,
		UserAgent:   in.UserAgent,
		Device:      in.Device,
	}
	day := now.Format(dateLayout)
	err := s.analytics.Update(func(doc *storage.AnalyticsDoc) error {
		doc.Clicks = append([]models.Click{clk}, doc.Clicks...)
		if len(doc.Clicks) > storage.MaxBufferedEvents {
			doc.Clicks = doc.Clicks[:storage.MaxBufferedEvents]
		}
		stats := dayStats(doc, day)
		stats.Clicks++
		models.Bucket(stats.Banners, in.BannerID).Clicks++
		if in.PlacementID != "" {
			models.Bucket(stats.Placements, in.PlacementID).Clicks++
		}
		if in.ClientID != "" {
			models.Bucket(stats.Clients, in.ClientID).Clicks++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &clk, nil
}

// DayPoint is one entry in a chronological daily series.
type DayPoint struct {
	Date        string `json:"date"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
	CTR         string `json:"ctr"`
}

// WindowStats summarizes a trailing window of days.
type WindowStats struct {
	Impressions int64      `json:"impressions"`
	Clicks      int64      `json:"clicks"`
	CTR         string     `json:"ctr"`
	Daily       []DayPoint `json:"daily"`
}

// TopBanner joins rollup totals with banner metadata for ranking lists.
type TopBanner struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
	CTR         string `json:"ctr"`
}

// DashboardSummary is the landing page aggregate.
type DashboardSummary struct {
	Today       WindowStats     `json:"today"`
	Last7Days   WindowStats     `json:"last7Days"`
	Last30Days  WindowStats     `json:"last30Days"`
	TopBanners  []TopBanner     `json:"topBanners"`
	Expiring    []models.Banner `json:"expiringBanners"`
	Underperf   []TopBanner     `json:"underperformingBanners"`
	TotalEvents int64           `json:"totalEvents"`
	Banners     int             `json:"totalBanners"`
	Clients     int             `json:"totalClients"`
	Placements  int             `json:"totalPlacements"`
}

// DashboardSummary computes today, 7-day and 30-day windows plus
// top, expiring and underperforming banner lists.
func (s *AnalyticsService) DashboardSummary() (*DashboardSummary, error) {
	now := s.now().UTC()
	sum := &DashboardSummary{}

	totals := make(map[string]*models.Counts)
	err := s.analytics.View(func(doc *storage.AnalyticsDoc) error {
		sum.Today = windowStats(doc, now, 1)
		sum.Last7Days = windowStats(doc, now, 7)
		sum.Last30Days = windowStats(doc, now, 30)
		sum.TotalEvents = int64(len(doc.Impressions) + len(doc.Clicks))
		for _, day := range doc.DailyStats {
			for id, c := range day.Banners {
				t := models.Bucket(totals, id)
				t.Impressions += c.Impressions
				t.Clicks += c.Clicks
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	weekOut := now.Add(7 * 24 * time.Hour)
	err = s.inv.View(func(doc *storage.InventoryDoc) error {
		sum.Banners = len(doc.Banners)
		sum.Clients = len(doc.Clients)
		sum.Placements = len(doc.Placements)

		byID := make(map[string]models.Banner, len(doc.Banners))
		for _, b := range doc.Banners {
			byID[b.ID] = b
			if b.Status == models.BannerStatusActive && b.EndDate != nil &&
				b.EndDate.After(now) && !b.EndDate.After(weekOut) {
				sum.Expiring = append(sum.Expiring, b)
			}
		}
		sort.SliceStable(sum.Expiring, func(i, j int) bool {
			return sum.Expiring[i].EndDate.Before(*sum.Expiring[j].EndDate)
		})

		for id, c := range totals {
			b, ok := byID[id]
			if !ok {
				continue
			}
			entry := TopBanner{
				ID:          id,
				Name:        b.Name,
				Status:      string(b.Status),
				Impressions: c.Impressions,
				Clicks:      c.Clicks,
				CTR:         ctrString(c.Impressions, c.Clicks),
			}
			sum.TopBanners = append(sum.TopBanners, entry)
			if b.Status == models.BannerStatusActive && c.Impressions > 100 &&
				ctrValue(c.Impressions, c.Clicks) < 0.5 {
				sum.Underperf = append(sum.Underperf, entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(sum.TopBanners, func(i, j int) bool {
		return sum.TopBanners[i].Impressions > sum.TopBanners[j].Impressions
	})
	if len(sum.TopBanners) > 5 {
		sum.TopBanners = sum.TopBanners[:5]
	}
	sort.SliceStable(sum.Underperf, func(i, j int) bool {
		return ctrValue(sum.Underperf[i].Impressions, sum.Underperf[i].Clicks) <
			ctrValue(sum.Underperf[j].Impressions, sum.Underperf[j].Clicks)
	})
	if len(sum.Underperf) > 5 {
		sum.Underperf = sum.Underperf[:5]
	}
	return sum, nil
}

// Report is a per-entity performance breakdown over a date range.
type Report struct {
	EntityType string     `json:"entityType"`
	EntityID   string     `json:"entityId"`
	StartDate  string     `json:"startDate"`
	EndDate    string     `json:"endDate"`
	Totals     DayPoint   `json:"totals"`
	Daily      []DayPoint `json:"daily"`

	// Per-banner breakdown, client reports only.
	Banners []TopBanner `json:"banners,omitempty"`
}

// BannerReport aggregates one banner's daily series over [start, end].
func (s *AnalyticsService) BannerReport(bannerID, start, end string) (*Report, error) {
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if findBanner(doc, bannerID) == nil {
			return notFoundf("banner %s not found", bannerID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.entityReport("banner", bannerID, start, end, func(day *models.DayStats) *models.Counts {
		return day.Banners[bannerID]
	})
}

// PlacementReport aggregates one placement's daily series over [start, end].
func (s *AnalyticsService) PlacementReport(placementID, start, end string) (*Report, error) {
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if findPlacement(doc, placementID) == nil {
			return notFoundf("placement %s not found", placementID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.entityReport("placement", placementID, start, end, func(day *models.DayStats) *models.Counts {
		return day.Placements[placementID]
	})
}

// ClientReport aggregates one client's daily series over [start, end],
// with a per-banner breakdown of the client's creatives.
func (s *AnalyticsService) ClientReport(clientID, start, end string) (*Report, error) {
	var bannerIDs []string
	names := make(map[string]models.Banner)
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if findClient(doc, clientID) == nil {
			return notFoundf("client %s not found", clientID)
		}
		for _, b := range doc.Banners {
			if b.ClientID == clientID {
				bannerIDs = append(bannerIDs, b.ID)
				names[b.ID] = b
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report, err := s.entityReport("client", clientID, start, end, func(day *models.DayStats) *models.Counts {
		return day.Clients[clientID]
	})
	if err != nil {
		return nil, err
	}

	from, _ := time.Parse(dateLayout, start)
	to, _ := time.Parse(dateLayout, end)
	perBanner := make(map[string]*models.Counts)
	err = s.analytics.View(func(doc *storage.AnalyticsDoc) error {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			day, ok := doc.DailyStats[d.Format(dateLayout)]
			if !ok {
				continue
			}
			for _, id := range bannerIDs {
				if c, ok := day.Banners[id]; ok {
					t := models.Bucket(perBanner, id)
					t.Impressions += c.Impressions
					t.Clicks += c.Clicks
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range bannerIDs {
		c := perBanner[id]
		if c == nil {
			c = &models.Counts{}
		}
		b := names[id]
		report.Banners = append(report.Banners, TopBanner{
			ID:          id,
			Name:        b.Name,
			Status:      string(b.Status),
			Impressions: c.Impressions,
			Clicks:      c.Clicks,
			CTR:         ctrString(c.Impressions, c.Clicks),
		})
	}
	return report, nil
}

func (s *AnalyticsService) entityReport(entityType, entityID, start, end string, pick func(*models.DayStats) *models.Counts) (*Report, error) {
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, validationf("invalid start date %q", start)
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, validationf("invalid end date %q", end)
	}
	if to.Before(from) {
		return nil, validationf("end date precedes start date")
	}

	report := &Report{EntityType: entityType, EntityID: entityID, StartDate: start, EndDate: end}
	err = s.analytics.View(func(doc *storage.AnalyticsDoc) error {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			key := d.Format(dateLayout)
			point := DayPoint{Date: key}
			if day, ok := doc.DailyStats[key]; ok {
				if c := pick(day); c != nil {
					point.Impressions = c.Impressions
					point.Clicks = c.Clicks
				}
			}
			point.CTR = ctrString(point.Impressions, point.Clicks)
			report.Daily = append(report.Daily, point)
			report.Totals.Impressions += point.Impressions
			report.Totals.Clicks += point.Clicks
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Totals.CTR = ctrString(report.Totals.Impressions, report.Totals.Clicks)
	return report, nil
}

// ExportCSV renders an entity report as CSV, one row per day.
func (s *AnalyticsService) ExportCSV(reportType, entityID, start, end string) (string, error) {
	var report *Report
	var err error
	switch reportType {
	case "banner":
		report, err = s.BannerReport(entityID, start, end)
	case "placement":
		report, err = s.PlacementReport(entityID, start, end)
	case "client":
		report, err = s.ClientReport(entityID, start, end)
	default:
		return "", unsupportedf("unknown report type %q", reportType)
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Date,Impressions,Clicks,CTR (%)")
	for _, p := range report.Daily {
		b.WriteString("\n")
		b.WriteString(p.Date)
		b.WriteString(",")
		b.WriteString(formatInt(p.Impressions))
		b.WriteString(",")
		b.WriteString(formatInt(p.Clicks))
		b.WriteString(",")
		b.WriteString(p.CTR)
	}
	return b.String(), nil
}

// CleanupOldData prunes rollup keys and buffered events older than
// daysToKeep (90 when zero). Running it twice is a no-op the second time.
func (s *AnalyticsService) CleanupOldData(daysToKeep int) (removed int, err error) {
	if daysToKeep <= 0 {
		daysToKeep = 90
	}
	now := s.now().UTC()
	cutoff := now.AddDate(0, 0, -daysToKeep)
	cutoffKey := cutoff.Format(dateLayout)

	err = s.analytics.Update(func(doc *storage.AnalyticsDoc) error {
		for key := range doc.DailyStats {
			if key < cutoffKey {
				delete(doc.DailyStats, key)
				removed++
			}
		}
		imps := doc.Impressions[:0]
		for _, e := range doc.Impressions {
			if !e.Timestamp.Before(cutoff) {
				imps = append(imps, e)
			}
		}
		doc.Impressions = imps
		clicks := doc.Clicks[:0]
		for _, e := range doc.Clicks {
			if !e.Timestamp.Before(cutoff) {
				clicks = append(clicks, e)
			}
		}
		doc.Clicks = clicks
		doc.LastCleanup = now
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("analytics cleanup", zap.Int("days_removed", removed), zap.Int("days_kept", daysToKeep))
	}
	return removed, nil
}

// CheckFrequencyCap reports whether the banner may serve to the session
// today. Counts come from the buffered impression window, so accuracy
// degrades once the day's traffic exceeds the buffer size.
func (s *AnalyticsService) CheckFrequencyCap(bannerID, sessionID string, maxPerDay int) (bool, error) {
	if maxPerDay <= 0 {
		maxPerDay = 5
	}
	if sessionID == "" {
		return true, nil
	}
	today := s.now().UTC().Format(dateLayout)
	count := 0
	err := s.analytics.View(func(doc *storage.AnalyticsDoc) error {
		for _, imp := range doc.Impressions {
			if imp.BannerID == bannerID && imp.SessionID == sessionID &&
				imp.Timestamp.Format(dateLayout) == today {
				count++
				if count >= maxPerDay {
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return count < maxPerDay, nil
}

// windowStats sums the trailing n days ending today into one window,
// oldest day first in the series.
func windowStats(doc *storage.AnalyticsDoc, now time.Time, n int) WindowStats {
	w := WindowStats{Daily: make([]DayPoint, 0, n)}
	for i := n - 1; i >= 0; i-- {
		key := now.AddDate(0, 0, -i).Format(dateLayout)
		point := DayPoint{Date: key}
		if day, ok := doc.DailyStats[key]; ok {
			point.Impressions = day.Impressions
			point.Clicks = day.Clicks
		}
		point.CTR = ctrString(point.Impressions, point.Clicks)
		w.Daily = append(w.Daily, point)
		w.Impressions += point.Impressions
		w.Clicks += point.Clicks
	}
	w.CTR = ctrString(w.Impressions, w.Clicks)
	return w
}

func dayStats(doc *storage.AnalyticsDoc, key string) *models.DayStats {
	day, ok := doc.DailyStats[key]
	if !ok {
		day = models.NewDayStats()
		doc.DailyStats[key] = day
	}
	return day
}
