package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fnpulse/adserver/internal/models"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestNewInventoryDocSeedsDefaults(t *testing.T) {
	require := require.New(t)
	doc := NewInventoryDoc(testNow)

	require.Len(doc.Placements, 7)
	require.Equal(models.RotationWeighted, doc.Settings.DefaultRotation)
	require.Equal(5, doc.Settings.FrequencyCap)
	require.NotNil(doc.Versions)

	ids := map[string]bool{}
	for _, p := range doc.Placements {
		ids[p.ID] = true
		require.True(p.Enabled)
	}
	require.True(ids["homepage-top-leaderboard"])
	require.True(ids["mobile-sticky"])
}

func TestMemoryStoreUpdateRollsBackOnError(t *testing.T) {
	require := require.New(t)
	store := NewMemoryInventoryStore(testNow)

	boom := errors.New("boom")
	err := store.Update(func(doc *InventoryDoc) error {
		doc.Banners = append(doc.Banners, models.Banner{ID: "ban_1", Name: "x"})
		return boom
	})
	require.ErrorIs(err, boom)

	err = store.View(func(doc *InventoryDoc) error {
		require.Empty(doc.Banners)
		return nil
	})
	require.NoError(err)
}

func TestMemoryStoreViewIsolation(t *testing.T) {
	require := require.New(t)
	store := NewMemoryInventoryStore(testNow)

	// Mutations inside View must not leak into the stored document.
	err := store.View(func(doc *InventoryDoc) error {
		doc.Placements = nil
		return nil
	})
	require.NoError(err)

	err = store.View(func(doc *InventoryDoc) error {
		require.Len(doc.Placements, 7)
		return nil
	})
	require.NoError(err)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "ads", "inventory.db")

	store, err := Open(path, testNow)
	require.NoError(err)

	inv := store.Inventory()
	err = inv.Update(func(doc *InventoryDoc) error {
		doc.Banners = append(doc.Banners, models.Banner{ID: "ban_1", Name: "persisted"})
		return nil
	})
	require.NoError(err)
	require.NoError(store.Close())

	// Reopen and verify both the write and the first-run seed survived.
	store, err = Open(path, testNow)
	require.NoError(err)
	defer store.Close()

	err = store.Inventory().View(func(doc *InventoryDoc) error {
		require.Len(doc.Banners, 1)
		require.Equal("persisted", doc.Banners[0].Name)
		require.Len(doc.Placements, 7)
		return nil
	})
	require.NoError(err)
}

func TestBoltStoreUpdateDiscardedOnError(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "analytics.db")

	store, err := Open(path, testNow)
	require.NoError(err)
	defer store.Close()

	an := store.Analytics()
	boom := errors.New("boom")
	err = an.Update(func(doc *AnalyticsDoc) error {
		doc.Impressions = append(doc.Impressions, models.Impression{ID: "imp_1", BannerID: "ban_1"})
		return boom
	})
	require.ErrorIs(err, boom)

	err = an.View(func(doc *AnalyticsDoc) error {
		require.Empty(doc.Impressions)
		return nil
	})
	require.NoError(err)
}

func TestAnalyticsDocNormalizeRepairsNilMaps(t *testing.T) {
	require := require.New(t)
	doc := &AnalyticsDoc{
		DailyStats: map[string]*models.DayStats{
			"2024-01-01": {Impressions: 3},
		},
	}
	doc.normalize()
	require.NotNil(doc.DailyStats["2024-01-01"].Banners)
	require.NotNil(doc.DailyStats["2024-01-01"].Placements)
	require.NotNil(doc.DailyStats["2024-01-01"].Clients)
}
