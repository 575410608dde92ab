package models

import (
	"errors"
	"time"
)

type BannerStatus string

const (
	BannerStatusActive    BannerStatus = "active"
	BannerStatusPaused    BannerStatus = "paused"
	BannerStatusExpired   BannerStatus = "expired"
	BannerStatusDraft     BannerStatus = "draft"
	BannerStatusScheduled BannerStatus = "scheduled"
)

type CreativeType string

const (
	CreativeImage   CreativeType = "image"
	CreativeHTML    CreativeType = "html"
	CreativeVideo   CreativeType = "video"
	CreativeAdSense CreativeType = "adsense"
)

type Rotation string

const (
	RotationRandom     Rotation = "random"
	RotationWeighted   Rotation = "weighted"
	RotationSequential Rotation = "sequential"
	RotationEven       Rotation = "even"
)

// BannerSize holds the pixel dimensions for a named size preset.
type BannerSize struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Label  string `json:"label"`
}

// BannerSizes maps size keys to their IAB-style dimensions.
var BannerSizes = map[string]BannerSize{
	"leaderboard":      {Width: 728, Height: 90, Label: "Leaderboard"},
	"medium-rectangle": {Width: 300, Height: 250, Label: "Medium Rectangle"},
	"skyscraper":       {Width: 160, Height: 600, Label: "Skyscraper"},
	"billboard":        {Width: 970, Height: 250, Label: "Billboard"},
	"mobile-banner":    {Width: 320, Height: 100, Label: "Mobile Banner"},
	"large-rectangle":  {Width: 336, Height: 280, Label: "Large Rectangle"},
	"half-page":        {Width: 300, Height: 600, Label: "Half Page"},
	"wide-skyscraper":  {Width: 160, Height: 600, Label: "Wide Skyscraper"},
	"square":           {Width: 250, Height: 250, Label: "Square"},
}

// TimeWindow restricts delivery to a daily interval, bounds inclusive.
// Start and End are zero-padded 24h "HH:MM" strings compared lexically.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Banner is a schedulable, targetable ad creative assignable to one or
// more placements.
type Banner struct {
	ID         string `json:"id"`
	InternalID string `json:"internalId,omitempty"`
	Name       string `json:"name"`
	ClientID   string `json:"clientId,omitempty"`
	CampaignID string `json:"campaignId,omitempty"`

	Status   BannerStatus `json:"status"`
	Priority int          `json:"priority"`

	// Creative
	CreativeType CreativeType `json:"creativeType"`
	Size         string       `json:"size"`
	CustomWidth  int          `json:"customWidth,omitempty"`
	CustomHeight int          `json:"customHeight,omitempty"`
	AssetURL     string       `json:"assetUrl,omitempty"`
	AssetPath    string       `json:"assetPath,omitempty"`
	HTMLCode     string       `json:"htmlCode,omitempty"`
	AltText      string       `json:"altText,omitempty"`

	// Click tracking
	TargetURL   string `json:"targetUrl,omitempty"`
	UTMSource   string `json:"utmSource,omitempty"`
	UTMMedium   string `json:"utmMedium,omitempty"`
	UTMCampaign string `json:"utmCampaign,omitempty"`
	UTMContent  string `json:"utmContent,omitempty"`

	// Placement assignment
	Placements []string `json:"placements"`

	// Scheduling
	StartDate   *time.Time   `json:"startDate,omitempty"`
	EndDate     *time.Time   `json:"endDate,omitempty"`
	TimeWindows []TimeWindow `json:"timeWindows,omitempty"`

	// Targeting
	PageTargeting     []string `json:"pageTargeting"`
	CategoryTargeting []string `json:"categoryTargeting,omitempty"`
	DeviceTargeting   string   `json:"deviceTargeting"`
	GeoTargeting      []string `json:"geoTargeting,omitempty"` // ISO country codes

	// Delivery limits
	ImpressionLimit int    `json:"impressionLimit,omitempty"`
	ClickLimit      int    `json:"clickLimit,omitempty"`
	FrequencyCap    int    `json:"frequencyCap,omitempty"` // per session per day
	ABTestGroup     string `json:"abTestGroup,omitempty"`

	Version int `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

// BannerVersion is one snapshot in a banner's bounded edit history.
type BannerVersion struct {
	Version int       `json:"version"`
	Data    Banner    `json:"data"`
	SavedAt time.Time `json:"savedAt"`
}

func (s BannerStatus) Valid() bool {
	switch s {
	case BannerStatusActive, BannerStatusPaused, BannerStatusExpired,
		BannerStatusDraft, BannerStatusScheduled:
		return true
	}
	return false
}

func (r Rotation) Valid() bool {
	switch r {
	case RotationRandom, RotationWeighted, RotationSequential, RotationEven:
		return true
	}
	return false
}

func (b *Banner) Validate() error {
	if b.Name == "" {
		return errors.New("name is required")
	}
	if !b.Status.Valid() {
		return errors.New("invalid status")
	}
	if _, ok := BannerSizes[b.Size]; !ok {
		return errors.New("unknown banner size")
	}
	if b.StartDate != nil && b.EndDate != nil && b.EndDate.Before(*b.StartDate) {
		return errors.New("endDate precedes startDate")
	}
	return nil
}
