package models

import "time"

// Impression is an immutable record of one banner render.
type Impression struct {
	ID          string    `json:"id"`
	BannerID    string    `json:"bannerId"`
	PlacementID string    `json:"placementId,omitempty"`
	ClientID    string    `json:"clientId,omitempty"`
	CampaignID  string    `json:"campaignId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	PageURL  string `json:"pageUrl,omitempty"`
	PageType string `json:"pageType,omitempty"`
	Referrer string `json:"referrer,omitempty"`

	SessionID string `json:"sessionId,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Device    string `json:"device,omitempty"`
	Viewport  string `json:"viewport,omitempty"`

	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

// Click is an immutable record of one banner click-through.
type Click struct {
	ID          string    `json:"id"`
	BannerID    string    `json:"bannerId"`
	PlacementID string    `json:"placementId,omitempty"`
	ClientID    string    `json:"clientId,omitempty"`
	CampaignID  string    `json:"campaignId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	PageURL   string `json:"pageUrl,omitempty"`
	TargetURL string `json:"targetUrl,omitempty"`

	SessionID string `json:"sessionId,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Device    string `json:"device,omitempty"`
}

// Counts is an impression/click pair inside a daily rollup bucket.
type Counts struct {
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
}

// DayStats is one date bucket of the rollup. The per-entity maps are
// created lazily; callers go through Bucket rather than indexing nil maps.
type DayStats struct {
	Impressions int64              `json:"impressions"`
	Clicks      int64              `json:"clicks"`
	Banners     map[string]*Counts `json:"banners"`
	Placements  map[string]*Counts `json:"placements"`
	Clients     map[string]*Counts `json:"clients"`
}

func NewDayStats() *DayStats {
	return &DayStats{
		Banners:    make(map[string]*Counts),
		Placements: make(map[string]*Counts),
		Clients:    make(map[string]*Counts),
	}
}

// Bucket returns the Counts for key in m, creating it if absent.
func Bucket(m map[string]*Counts, key string) *Counts {
	c, ok := m[key]
	if !ok {
		c = &Counts{}
		m[key] = c
	}
	return c
}

// AuditEntry records one mutation of the banner inventory.
type AuditEntry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	EntityID  string         `json:"entityId"`
	UserID    string         `json:"userId"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Settings are site-wide delivery defaults kept in the inventory document.
type Settings struct {
	DefaultRotation Rotation `json:"defaultRotation"`
	FrequencyCap    int      `json:"frequencyCap"`
	LazyLoading     bool     `json:"lazyLoading"`
	GDPRCompliant   bool     `json:"gdprCompliant"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultRotation: RotationWeighted,
		FrequencyCap:    5,
		LazyLoading:     true,
		GDPRCompliant:   true,
	}
}
