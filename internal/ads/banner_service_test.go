package ads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fnpulse/adserver/internal/models"
	"github.com/fnpulse/adserver/internal/storage"
)

func TestBannerCreateDefaults(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	b, err := env.banners.Create(models.Banner{Name: "House Ad", Size: "medium-rectangle"}, "alice")
	require.NoError(err)
	require.NotEmpty(b.ID)
	require.Equal(models.BannerStatusDraft, b.Status)
	require.Equal(5, b.Priority)
	require.Equal(models.CreativeImage, b.CreativeType)
	require.Equal("Advertisement", b.AltText)
	require.Equal("fnpulse", b.UTMSource)
	require.Equal("banner", b.UTMMedium)
	require.Equal([]string{"all"}, b.PageTargeting)
	require.Equal("all", b.DeviceTargeting)
	require.Equal(1, b.Version)
	require.Equal("alice", b.CreatedBy)
}

func TestBannerCreateValidation(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	_, err := env.banners.Create(models.Banner{Size: "medium-rectangle"}, "alice")
	require.True(IsValidation(err))

	bad := models.Banner{Name: "x", Size: "no-such-size"}
	_, err = env.banners.Create(bad, "alice")
	require.True(IsValidation(err))
}

func TestBannerUpdateBumpsVersionAndSnapshots(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	b := env.mustBanner(t, activeBanner("v1", "P1", 5))

	next := *b
	next.Name = "v2"
	updated, err := env.banners.Update(b.ID, next, "bob")
	require.NoError(err)
	require.Equal(2, updated.Version)
	require.Equal("v2", updated.Name)
	require.Equal("bob", updated.UpdatedBy)

	versions, err := env.banners.Versions(b.ID)
	require.NoError(err)
	require.Len(versions, 1)
	require.Equal(1, versions[0].Version)
	require.Equal("v1", versions[0].Data.Name)
}

func TestBannerVersionHistoryBounded(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	b := env.mustBanner(t, activeBanner("v", "P1", 5))

	cur := *b
	for i := 0; i < storage.MaxBannerVersions+5; i++ {
		cur.Name = "rev"
		updated, err := env.banners.Update(b.ID, cur, "bob")
		require.NoError(err)
		cur = *updated
	}

	versions, err := env.banners.Versions(b.ID)
	require.NoError(err)
	require.Len(versions, storage.MaxBannerVersions)
	// Newest snapshot first.
	require.Equal(cur.Version-1, versions[0].Version)
}

func TestBannerToggle(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	b := env.mustBanner(t, activeBanner("t", "P1", 5))

	toggled, err := env.banners.Toggle(b.ID, "alice")
	require.NoError(err)
	require.Equal(models.BannerStatusPaused, toggled.Status)

	toggled, err = env.banners.Toggle(b.ID, "alice")
	require.NoError(err)
	require.Equal(models.BannerStatusActive, toggled.Status)
}

func TestBannerToggleRejectsDraft(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	b, err := env.banners.Create(models.Banner{Name: "d", Size: "medium-rectangle"}, "alice")
	require.NoError(err)

	_, err = env.banners.Toggle(b.ID, "alice")
	require.True(IsValidation(err))

	got, err := env.banners.Get(b.ID)
	require.NoError(err)
	require.Equal(models.BannerStatusDraft, got.Status)
}

func TestBannerDuplicate(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	src := activeBanner("Original", "P1", 7)
	src.InternalID = "INV-42"
	b := env.mustBanner(t, src)

	dup, err := env.banners.Duplicate(b.ID, "alice")
	require.NoError(err)
	require.NotEqual(b.ID, dup.ID)
	require.Equal("Original (Copy)", dup.Name)
	require.Equal(models.BannerStatusDraft, dup.Status)
	require.Empty(dup.InternalID)
	require.Equal(1, dup.Version)
	require.Equal(7, dup.Priority)

	versions, err := env.banners.Versions(dup.ID)
	require.NoError(err)
	require.Empty(versions)
}

func TestBannerNotFound(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	_, err := env.banners.Get("ban_missing")
	require.True(IsNotFound(err))
	_, err = env.banners.Update("ban_missing", models.Banner{Name: "x", Size: "square"}, "a")
	require.True(IsNotFound(err))
	require.True(IsNotFound(env.banners.Delete("ban_missing", "a")))
	_, err = env.banners.Duplicate("ban_missing", "a")
	require.True(IsNotFound(err))
}

func TestSweepStatuses(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	scheduled := models.Banner{
		Name: "due", Size: "medium-rectangle",
		Status: models.BannerStatusScheduled, StartDate: &past,
	}
	due := env.mustBanner(t, scheduled)

	notYet := models.Banner{
		Name: "later", Size: "medium-rectangle",
		Status: models.BannerStatusScheduled, StartDate: &future,
	}
	later := env.mustBanner(t, notYet)

	expiring := activeBanner("over", "P1", 5)
	expiring.EndDate = &past
	over := env.mustBanner(t, expiring)

	changed, err := env.banners.SweepStatuses()
	require.NoError(err)
	require.Equal(2, changed)

	got, _ := env.banners.Get(due.ID)
	require.Equal(models.BannerStatusActive, got.Status)
	got, _ = env.banners.Get(later.ID)
	require.Equal(models.BannerStatusScheduled, got.Status)
	got, _ = env.banners.Get(over.ID)
	require.Equal(models.BannerStatusExpired, got.Status)
}

func TestBannerStats(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	env.mustBanner(t, activeBanner("a", "P1", 5))
	soon := testNow.Add(3 * 24 * time.Hour)
	expSoon := activeBanner("b", "P1", 5)
	expSoon.EndDate = &soon
	env.mustBanner(t, expSoon)
	env.mustBanner(t, models.Banner{Name: "c", Size: "square"})

	stats, err := env.banners.Stats()
	require.NoError(err)
	require.Equal(3, stats.Total)
	require.Equal(2, stats.Active)
	require.Equal(1, stats.Draft)
	require.Equal(1, stats.ExpiringSoon)
	// Default placements are seeded on first run.
	require.Equal(7, stats.Placements)
}

func TestAuditLog(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	b := env.mustBanner(t, activeBanner("a", "P1", 5))
	next := *b
	next.Name = "b"
	_, err := env.banners.Update(b.ID, next, "carol")
	require.NoError(err)
	require.NoError(env.banners.Delete(b.ID, "carol"))

	entries, err := env.banners.AuditLog(AuditFilter{})
	require.NoError(err)
	require.Len(entries, 3)
	// Newest first.
	require.Equal("banner_deleted", entries[0].Action)
	require.Equal("banner_created", entries[2].Action)

	entries, err = env.banners.AuditLog(AuditFilter{Action: "banner_updated"})
	require.NoError(err)
	require.Len(entries, 1)
	require.Equal("carol", entries[0].UserID)

	entries, err = env.banners.AuditLog(AuditFilter{Limit: 2})
	require.NoError(err)
	require.Len(entries, 2)
}

func TestSettingsRoundTrip(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	settings, err := env.banners.Settings()
	require.NoError(err)
	require.Equal(models.RotationWeighted, settings.DefaultRotation)
	require.Equal(5, settings.FrequencyCap)

	updated, err := env.banners.UpdateSettings(models.Settings{
		DefaultRotation: models.RotationRandom,
		FrequencyCap:    3,
	})
	require.NoError(err)
	require.Equal(models.RotationRandom, updated.DefaultRotation)

	_, err = env.banners.UpdateSettings(models.Settings{DefaultRotation: "bogus"})
	require.True(IsValidation(err))
}
