package ads

import (
	"math/rand"
	"net/url"
	"sort"
	"time"

	"github.com/fnpulse/adserver/internal/models"
	"github.com/fnpulse/adserver/internal/storage"
)

// DeliveryContext carries the request attributes used by the eligibility
// gates. Empty fields skip their gate.
type DeliveryContext struct {
	Device   string
	PageType string
	Country  string // ISO 3166-1 alpha-2, resolved from the client IP
}

// ActiveBannersForPlacement filters the inventory for banners eligible to
// serve in the placement and applies its rotation policy. A missing or
// disabled placement yields an empty slice, not an error.
func (s *BannerService) ActiveBannersForPlacement(placementID string, ctx DeliveryContext) ([]models.Banner, error) {
	now := s.now().UTC()

	var eligible []models.Banner
	var placement *models.Placement
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		for i := range doc.Placements {
			if doc.Placements[i].ID == placementID {
				cp := doc.Placements[i]
				placement = &cp
				break
			}
		}
		if placement == nil || !placement.Enabled {
			return nil
		}
		for _, b := range doc.Banners {
			if b.Status != models.BannerStatusActive {
				continue
			}
			if !contains(b.Placements, placementID) {
				continue
			}
			if !placement.AllowsSize(b.Size) {
				continue
			}
			if !scheduledNow(&b, now) {
				continue
			}
			if b.DeviceTargeting != "all" && ctx.Device != "" && b.DeviceTargeting != ctx.Device {
				continue
			}
			if !pageMatches(b.PageTargeting, ctx.PageType) {
				continue
			}
			if !geoMatches(b.GeoTargeting, ctx.Country) {
				continue
			}
			eligible = append(eligible, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if placement == nil || !placement.Enabled || len(eligible) == 0 {
		return []models.Banner{}, nil
	}

	env := rotationEnv{now: now}
	if placement.Rotation == models.RotationEven {
		env.impressions = s.impressionTotals(eligible)
	}
	return applyRotation(eligible, placement.Rotation, placement.MaxBanners, env), nil
}

// scheduledNow applies the date range and daily time window gates.
// Missing date bounds are unbounded; time windows compare zero-padded
// "HH:MM" strings with inclusive bounds.
func scheduledNow(b *models.Banner, now time.Time) bool {
	if b.StartDate != nil && now.Before(*b.StartDate) {
		return false
	}
	if b.EndDate != nil && now.After(*b.EndDate) {
		return false
	}
	if len(b.TimeWindows) == 0 {
		return true
	}
	hm := now.Format("15:04")
	for _, w := range b.TimeWindows {
		if w.Start <= hm && hm <= w.End {
			return true
		}
	}
	return false
}

func pageMatches(targeting []string, pageType string) bool {
	if len(targeting) == 0 || contains(targeting, "all") {
		return true
	}
	if pageType == "" {
		return true
	}
	return contains(targeting, pageType)
}

// geoMatches admits everyone when the banner has no geo targeting. A
// targeted banner excludes requests whose country could not be resolved.
func geoMatches(targeting []string, country string) bool {
	if len(targeting) == 0 {
		return true
	}
	return contains(targeting, country)
}

// rotationEnv carries the ambient inputs a rotation strategy may need.
type rotationEnv struct {
	now         time.Time
	impressions map[string]int64 // banner ID to lifetime impressions
}

type rotationFunc func(eligible []models.Banner, n int, env rotationEnv) []models.Banner

var rotations = map[models.Rotation]rotationFunc{
	models.RotationWeighted:   rotateWeighted,
	models.RotationRandom:     rotateRandom,
	models.RotationSequential: rotateSequential,
	models.RotationEven:       rotateEven,
}

// applyRotation picks at most maxBanners from eligible according to the
// placement's rotation policy. Unknown policies fall back to filter order.
func applyRotation(eligible []models.Banner, rotation models.Rotation, maxBanners int, env rotationEnv) []models.Banner {
	if maxBanners <= 0 {
		maxBanners = 1
	}
	fn, ok := rotations[rotation]
	if !ok {
		return firstN(eligible, maxBanners)
	}
	return fn(eligible, maxBanners, env)
}

func rotateWeighted(eligible []models.Banner, n int, _ rotationEnv) []models.Banner {
	out := append([]models.Banner(nil), eligible...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return firstN(out, n)
}

func rotateRandom(eligible []models.Banner, n int, _ rotationEnv) []models.Banner {
	out := append([]models.Banner(nil), eligible...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return firstN(out, n)
}

// rotateSequential serves a minute-granularity rotating window: all
// requests within the same minute see the same starting offset. Not a
// fair per-request round robin.
func rotateSequential(eligible []models.Banner, n int, env rotationEnv) []models.Banner {
	start := int(env.now.UnixMilli()/60000) % len(eligible)
	if n > len(eligible) {
		n = len(eligible)
	}
	out := make([]models.Banner, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, eligible[(start+i)%len(eligible)])
	}
	return out
}

// rotateEven favors the least-shown banners to approximate an even
// delivery distribution.
func rotateEven(eligible []models.Banner, n int, env rotationEnv) []models.Banner {
	out := append([]models.Banner(nil), eligible...)
	sort.SliceStable(out, func(i, j int) bool {
		return env.impressions[out[i].ID] < env.impressions[out[j].ID]
	})
	return firstN(out, n)
}

func firstN(banners []models.Banner, n int) []models.Banner {
	if n > len(banners) {
		n = len(banners)
	}
	return banners[:n]
}

// impressionTotals sums lifetime impressions per banner from the daily
// rollup. Errors are swallowed; even rotation degrades to filter order
// when the analytics store is unavailable.
func (s *BannerService) impressionTotals(banners []models.Banner) map[string]int64 {
	totals := make(map[string]int64, len(banners))
	ids := make(map[string]bool, len(banners))
	for _, b := range banners {
		ids[b.ID] = true
	}
	_ = s.analytics.View(func(doc *storage.AnalyticsDoc) error {
		for _, day := range doc.DailyStats {
			for id, c := range day.Banners {
				if ids[id] {
					totals[id] += c.Impressions
				}
			}
		}
		return nil
	})
	return totals
}

// BuildUTMURL attaches the banner's UTM parameters to its target URL,
// overwriting any existing values so repeated application is a no-op.
// Returns the empty string when the banner has no target URL.
func BuildUTMURL(b *models.Banner) string {
	if b.TargetURL == "" {
		return ""
	}
	u, err := url.Parse(b.TargetURL)
	if err != nil {
		return b.TargetURL
	}
	q := u.Query()
	set := func(key, val string) {
		if val != "" {
			q.Set(key, val)
		}
	}
	set("utm_source", b.UTMSource)
	set("utm_medium", b.UTMMedium)
	set("utm_campaign", b.UTMCampaign)
	set("utm_content", b.UTMContent)
	u.RawQuery = q.Encode()
	return u.String()
}
