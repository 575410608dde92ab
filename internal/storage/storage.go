package storage

import (
	"time"

	"github.com/fnpulse/adserver/internal/models"
)

// MaxBufferedEvents caps the impression and click ring buffers. The
// buffers are a recent-event window for frequency capping and entity
// scans; the daily rollup is the durable source for reporting.
const MaxBufferedEvents = 10000

// MaxAuditEntries caps the audit log at the most recent entries.
const MaxAuditEntries = 1000

// MaxBannerVersions bounds the per-banner edit history ring.
const MaxBannerVersions = 20

// InventoryDoc is the single mutable document holding all ad inventory.
// Every write is read-modify-write of the whole document.
type InventoryDoc struct {
	Banners    []models.Banner                   `json:"banners"`
	Clients    []models.Client                   `json:"clients"`
	Campaigns  []models.Campaign                 `json:"campaigns"`
	Placements []models.Placement                `json:"placements"`
	AuditLog   []models.AuditEntry               `json:"auditLog"`
	Versions   map[string][]models.BannerVersion `json:"versions"`
	Settings   models.Settings                   `json:"settings"`
}

// AnalyticsDoc is the companion document holding raw events and the
// date-keyed rollup. Kept separate from the inventory so tracking writes
// do not contend with admin edits.
type AnalyticsDoc struct {
	Impressions []models.Impression         `json:"impressions"`
	Clicks      []models.Click              `json:"clicks"`
	DailyStats  map[string]*models.DayStats `json:"dailyStats"`
	LastCleanup time.Time                   `json:"lastCleanup"`
}

// NewInventoryDoc returns an inventory document seeded with the default
// placements and settings.
func NewInventoryDoc(now time.Time) *InventoryDoc {
	return &InventoryDoc{
		Banners:    []models.Banner{},
		Clients:    []models.Client{},
		Campaigns:  []models.Campaign{},
		Placements: models.DefaultPlacements(now),
		AuditLog:   []models.AuditEntry{},
		Versions:   make(map[string][]models.BannerVersion),
		Settings:   models.DefaultSettings(),
	}
}

func NewAnalyticsDoc(now time.Time) *AnalyticsDoc {
	return &AnalyticsDoc{
		Impressions: []models.Impression{},
		Clicks:      []models.Click{},
		DailyStats:  make(map[string]*models.DayStats),
		LastCleanup: now,
	}
}

// normalize repairs nil maps after JSON decoding of older documents.
func (d *InventoryDoc) normalize() {
	if d.Versions == nil {
		d.Versions = make(map[string][]models.BannerVersion)
	}
}

func (d *AnalyticsDoc) normalize() {
	if d.DailyStats == nil {
		d.DailyStats = make(map[string]*models.DayStats)
	}
	for _, day := range d.DailyStats {
		if day.Banners == nil {
			day.Banners = make(map[string]*models.Counts)
		}
		if day.Placements == nil {
			day.Placements = make(map[string]*models.Counts)
		}
		if day.Clients == nil {
			day.Clients = make(map[string]*models.Counts)
		}
	}
}

// InventoryStore provides serialized access to the inventory document.
// View runs read-only and may execute concurrently with other readers;
// Update serializes with all other writers, and the mutated document is
// persisted only when fn returns nil.
type InventoryStore interface {
	View(fn func(*InventoryDoc) error) error
	Update(fn func(*InventoryDoc) error) error
}

// AnalyticsStore provides serialized access to the analytics document.
type AnalyticsStore interface {
	View(fn func(*AnalyticsDoc) error) error
	Update(fn func(*AnalyticsDoc) error) error
}
