package ads

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fnpulse/adserver/internal/models"
)

func TestPlacementValidate(t *testing.T) {
	require := require.New(t)

	good := testPlacement("P1")
	res := Validate(&good)
	require.True(res.Valid)
	require.Empty(res.Errors)

	bad := models.Placement{RotationInterval: 2, RefreshInterval: 3}
	res = Validate(&bad)
	require.False(res.Valid)
	require.Len(res.Errors, 5)
	require.Contains(res.Errors, "Placement name is required")
	require.Contains(res.Errors, "At least one allowed size is required")
	require.Contains(res.Errors, "Max banners must be at least 1")
	require.Contains(res.Errors, "Rotation interval must be at least 5 seconds")
	require.Contains(res.Errors, "Refresh interval must be at least 10 seconds")
}

func TestPlacementCreateDefaults(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	p, err := env.placement.Create(models.Placement{
		Name:         "Sidebar",
		AllowedSizes: []string{"medium-rectangle"},
		MaxBanners:   2,
	})
	require.NoError(err)
	require.NotEmpty(p.ID)
	require.True(p.Enabled)
	require.True(p.LazyLoad)
	require.True(p.ShowLabel)
	require.Equal("Advertisement", p.LabelText)
	require.Equal("all", p.DeviceTarget)
	require.Equal(models.RotationWeighted, p.Rotation)
}

func TestPlacementCreateRejectsInvalid(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	_, err := env.placement.Create(models.Placement{Name: "no sizes", MaxBanners: 1})
	require.True(IsValidation(err))
}

func TestPlacementDeleteGuardedByBanners(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	p := env.mustPlacement(t, testPlacement("P1"))
	b := env.mustBanner(t, activeBanner("a", "P1", 5))

	err := env.placement.Delete(p.ID)
	require.True(IsReferentialIntegrity(err))

	// Store unchanged.
	_, err = env.placement.Get(p.ID)
	require.NoError(err)

	// Clearing the assignment unblocks deletion.
	next := *b
	next.Placements = []string{}
	_, err = env.banners.Update(b.ID, next, "alice")
	require.NoError(err)
	require.NoError(env.placement.Delete(p.ID))

	_, err = env.placement.Get(p.ID)
	require.True(IsNotFound(err))
}

func TestPlacementByPageType(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	// Default placements: article-sidebar and article-inline match
	// "article" directly, footer-global and mobile-sticky via "all".
	placements, err := env.placement.ByPageType(models.PageArticle)
	require.NoError(err)
	require.Len(placements, 4)

	// Disabled placements are excluded.
	_, err = env.placement.Toggle("article-sidebar")
	require.NoError(err)
	placements, err = env.placement.ByPageType(models.PageArticle)
	require.NoError(err)
	require.Len(placements, 3)
}

func TestPlacementStatsAndFillRate(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	p := testPlacement("P1")
	p.MaxBanners = 2
	env.mustPlacement(t, p)

	env.mustBanner(t, activeBanner("a", "P1", 5))
	draft := models.Banner{Name: "d", Size: "medium-rectangle", Placements: []string{"P1"}}
	env.mustBanner(t, draft)

	b := env.mustBanner(t, activeBanner("b", "P1", 5))
	for i := 0; i < 4; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: b.ID, PlacementID: "P1"})
		require.NoError(err)
	}
	_, err := env.events.RecordClick(EventInput{BannerID: b.ID, PlacementID: "P1"})
	require.NoError(err)

	stats, err := env.placement.Stats("P1")
	require.NoError(err)
	require.Equal(3, stats.TotalBanners)
	require.Equal(2, stats.ActiveBanners)
	require.EqualValues(4, stats.Impressions)
	require.EqualValues(1, stats.Clicks)
	require.Equal("25.00", stats.CTR)
	require.Equal("100.0", stats.FillRate)
}

func TestPlacementEmbedCode(t *testing.T) {
	require := require.New(t)
	p := testPlacement("article-sidebar")
	p.LazyLoad = true
	p.RefreshInterval = 30

	code := EmbedCode(&p)
	require.Contains(code, `data-placement-id="article-sidebar"`)
	require.Contains(code, "fnp-ad-placement")
	require.Contains(code, "window.FNPulseAds")
	require.Contains(code, "/ads/fallback/article-sidebar")
	require.True(strings.HasPrefix(code, "<!-- FNPulse Ad Placement:"))
}

func TestPlacementToggleUpdatesTimestamp(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	p := env.mustPlacement(t, testPlacement("P1"))

	toggled, err := env.placement.Toggle(p.ID)
	require.NoError(err)
	require.False(toggled.Enabled)

	toggled, err = env.placement.Toggle(p.ID)
	require.NoError(err)
	require.True(toggled.Enabled)
}
