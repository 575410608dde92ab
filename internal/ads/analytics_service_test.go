package ads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fnpulse/adserver/internal/models"
	"github.com/fnpulse/adserver/internal/storage"
)

func TestRecordImpressionUpdatesRollup(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	for i := 0; i < 3; i++ {
		_, err := env.events.RecordImpression(EventInput{
			BannerID:    "ban_x",
			PlacementID: "P1",
			ClientID:    "cli_1",
			SessionID:   "sess-1",
		})
		require.NoError(err)
	}

	day := testNow.Format(dateLayout)
	err := env.analytics.View(func(doc *storage.AnalyticsDoc) error {
		require.Len(doc.Impressions, 3)
		stats := doc.DailyStats[day]
		require.NotNil(stats)
		require.EqualValues(3, stats.Impressions)
		require.EqualValues(3, stats.Banners["ban_x"].Impressions)
		require.EqualValues(3, stats.Placements["P1"].Impressions)
		require.EqualValues(3, stats.Clients["cli_1"].Impressions)
		return nil
	})
	require.NoError(err)
}

func TestRecordImpressionRequiresBanner(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	_, err := env.events.RecordImpression(EventInput{})
	require.Error(err)
	require.True(IsValidation(err))
}

func TestBannerReportSingleDay(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	banner := env.mustBanner(t, activeBanner("X", "P1", 5))

	for i := 0; i < 3; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: banner.ID})
		require.NoError(err)
	}
	_, err := env.events.RecordClick(EventInput{BannerID: banner.ID})
	require.NoError(err)

	day := testNow.Format(dateLayout)
	report, err := env.events.BannerReport(banner.ID, day, day)
	require.NoError(err)
	require.EqualValues(3, report.Totals.Impressions)
	require.EqualValues(1, report.Totals.Clicks)
	require.Equal("33.33", report.Totals.CTR)
	require.Len(report.Daily, 1)
}

func TestBannerReportTotalsEqualDailySum(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	banner := env.mustBanner(t, activeBanner("X", "P1", 5))

	// Spread events over two days by moving the clock.
	for i := 0; i < 4; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: banner.ID})
		require.NoError(err)
	}
	later := testNow.Add(24 * time.Hour)
	env.events.now = func() time.Time { return later }
	for i := 0; i < 2; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: banner.ID})
		require.NoError(err)
	}

	report, err := env.events.BannerReport(banner.ID,
		testNow.Format(dateLayout), later.Format(dateLayout))
	require.NoError(err)

	var sumImps, sumClicks int64
	for _, p := range report.Daily {
		sumImps += p.Impressions
		sumClicks += p.Clicks
	}
	require.Equal(report.Totals.Impressions, sumImps)
	require.Equal(report.Totals.Clicks, sumClicks)
	require.EqualValues(6, sumImps)
}

func TestReportZeroFillsMissingDays(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	banner := env.mustBanner(t, activeBanner("X", "P1", 5))

	_, err := env.events.RecordImpression(EventInput{BannerID: banner.ID})
	require.NoError(err)

	start := testNow.AddDate(0, 0, -2).Format(dateLayout)
	end := testNow.Format(dateLayout)
	report, err := env.events.BannerReport(banner.ID, start, end)
	require.NoError(err)
	require.Len(report.Daily, 3)
	require.EqualValues(0, report.Daily[0].Impressions)
	require.Equal("0", report.Daily[0].CTR)
	require.EqualValues(1, report.Daily[2].Impressions)
}

func TestReportUnknownEntity(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	day := testNow.Format(dateLayout)
	_, err := env.events.BannerReport("ban_missing", day, day)
	require.True(IsNotFound(err))

	_, err = env.events.PlacementReport("plc_missing", day, day)
	require.True(IsNotFound(err))

	_, err = env.events.ClientReport("cli_missing", day, day)
	require.True(IsNotFound(err))
}

func TestClientReportBreaksDownPerBanner(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	client, err := env.clients.Create(models.Client{Name: "Acme"})
	require.NoError(err)

	b1 := activeBanner("one", "P1", 5)
	b1.ClientID = client.ID
	banner1 := env.mustBanner(t, b1)
	b2 := activeBanner("two", "P1", 5)
	b2.ClientID = client.ID
	banner2 := env.mustBanner(t, b2)

	for i := 0; i < 2; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: banner1.ID, ClientID: client.ID})
		require.NoError(err)
	}
	_, err = env.events.RecordImpression(EventInput{BannerID: banner2.ID, ClientID: client.ID})
	require.NoError(err)

	day := testNow.Format(dateLayout)
	report, err := env.events.ClientReport(client.ID, day, day)
	require.NoError(err)
	require.EqualValues(3, report.Totals.Impressions)
	require.Len(report.Banners, 2)

	byID := map[string]TopBanner{}
	for _, b := range report.Banners {
		byID[b.ID] = b
	}
	require.EqualValues(2, byID[banner1.ID].Impressions)
	require.EqualValues(1, byID[banner2.ID].Impressions)
}

func TestExportCSVExactFormat(t *testing.T) {
	require := require.New(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, now)
	banner := env.mustBanner(t, activeBanner("X", "P1", 5))

	for i := 0; i < 3; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: banner.ID})
		require.NoError(err)
	}
	_, err := env.events.RecordClick(EventInput{BannerID: banner.ID})
	require.NoError(err)

	csv, err := env.events.ExportCSV("banner", banner.ID, "2024-01-01", "2024-01-01")
	require.NoError(err)
	require.Equal("Date,Impressions,Clicks,CTR (%)\n2024-01-01,3,1,33.33", csv)
}

func TestExportCSVUnknownType(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	_, err := env.events.ExportCSV("bogus", "x", "2024-01-01", "2024-01-01")
	require.True(IsUnsupported(err))
}

func TestCleanupOldDataIdempotent(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	// One fresh day, one stale day.
	_, err := env.events.RecordImpression(EventInput{BannerID: "ban_x"})
	require.NoError(err)

	stale := testNow.AddDate(0, 0, -120)
	env.events.now = func() time.Time { return stale }
	_, err = env.events.RecordImpression(EventInput{BannerID: "ban_x"})
	require.NoError(err)
	env.events.now = func() time.Time { return testNow }

	removed, err := env.events.CleanupOldData(90)
	require.NoError(err)
	require.Equal(1, removed)

	removed, err = env.events.CleanupOldData(90)
	require.NoError(err)
	require.Zero(removed)

	err = env.analytics.View(func(doc *storage.AnalyticsDoc) error {
		require.Len(doc.Impressions, 1)
		require.Len(doc.DailyStats, 1)
		return nil
	})
	require.NoError(err)
}

func TestCheckFrequencyCap(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	for i := 0; i < 5; i++ {
		allowed, err := env.events.CheckFrequencyCap("ban_x", "sess-1", 5)
		require.NoError(err)
		require.True(allowed)
		_, err = env.events.RecordImpression(EventInput{BannerID: "ban_x", SessionID: "sess-1"})
		require.NoError(err)
	}

	allowed, err := env.events.CheckFrequencyCap("ban_x", "sess-1", 5)
	require.NoError(err)
	require.False(allowed)

	// Other sessions and banners are unaffected.
	allowed, err = env.events.CheckFrequencyCap("ban_x", "sess-2", 5)
	require.NoError(err)
	require.True(allowed)
	allowed, err = env.events.CheckFrequencyCap("ban_y", "sess-1", 5)
	require.NoError(err)
	require.True(allowed)
}

func TestDashboardSummary(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	banner := env.mustBanner(t, activeBanner("Top", "P1", 5))

	for i := 0; i < 10; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: banner.ID})
		require.NoError(err)
	}
	_, err := env.events.RecordClick(EventInput{BannerID: banner.ID})
	require.NoError(err)

	sum, err := env.events.DashboardSummary()
	require.NoError(err)
	require.EqualValues(10, sum.Today.Impressions)
	require.EqualValues(1, sum.Today.Clicks)
	require.Equal("10.00", sum.Today.CTR)
	require.Len(sum.Today.Daily, 1)
	require.Len(sum.Last7Days.Daily, 7)
	require.Len(sum.Last30Days.Daily, 30)
	require.Len(sum.TopBanners, 1)
	require.Equal(banner.ID, sum.TopBanners[0].ID)
	require.Equal(1, sum.Banners)
}

func TestDashboardUnderperformers(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)
	banner := env.mustBanner(t, activeBanner("Weak", "P1", 5))

	// 150 impressions, zero clicks puts CTR below the 0.5% threshold.
	for i := 0; i < 150; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: banner.ID})
		require.NoError(err)
	}

	sum, err := env.events.DashboardSummary()
	require.NoError(err)
	require.Len(sum.Underperf, 1)
	require.Equal(banner.ID, sum.Underperf[0].ID)
}
