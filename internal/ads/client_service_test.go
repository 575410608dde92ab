package ads

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fnpulse/adserver/internal/models"
)

func TestClientCreateDefaults(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	c, err := env.clients.Create(models.Client{Name: "Acme Corp"})
	require.NoError(err)
	require.NotEmpty(c.ID)
	require.Equal(models.ClientStatusActive, c.Status)
	require.Equal(models.TierStandard, c.Tier)
	require.Equal("net30", c.PaymentTerms)

	_, err = env.clients.Create(models.Client{})
	require.True(IsValidation(err))
}

func TestClientDeleteGuardedByActiveBanners(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	c, err := env.clients.Create(models.Client{Name: "Acme"})
	require.NoError(err)

	b := activeBanner("a", "P1", 5)
	b.ClientID = c.ID
	banner := env.mustBanner(t, b)

	err = env.clients.Delete(c.ID)
	require.True(IsReferentialIntegrity(err))

	// Pausing the banner unblocks deletion.
	_, err = env.banners.Toggle(banner.ID, "alice")
	require.NoError(err)
	require.NoError(env.clients.Delete(c.ID))

	_, err = env.clients.Get(c.ID)
	require.True(IsNotFound(err))
}

func TestClientDeleteRemovesCampaigns(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	c, err := env.clients.Create(models.Client{Name: "Acme"})
	require.NoError(err)
	camp, err := env.campaigns.Create(models.Campaign{Name: "Q1", ClientID: c.ID})
	require.NoError(err)

	require.NoError(env.clients.Delete(c.ID))
	_, err = env.campaigns.Get(camp.ID)
	require.True(IsNotFound(err))
}

func TestClientStats(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	c, err := env.clients.Create(models.Client{Name: "Acme"})
	require.NoError(err)

	active := activeBanner("a", "P1", 5)
	active.ClientID = c.ID
	banner := env.mustBanner(t, active)

	paused := activeBanner("p", "P1", 5)
	paused.ClientID = c.ID
	paused.Status = models.BannerStatusPaused
	env.mustBanner(t, paused)

	_, err = env.campaigns.Create(models.Campaign{
		Name: "Q1", ClientID: c.ID, Status: models.CampaignStatusActive,
	})
	require.NoError(err)

	for i := 0; i < 4; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: banner.ID, ClientID: c.ID})
		require.NoError(err)
	}
	_, err = env.events.RecordClick(EventInput{BannerID: banner.ID, ClientID: c.ID})
	require.NoError(err)

	stats, err := env.clients.Stats(c.ID)
	require.NoError(err)
	require.Equal(2, stats.TotalBanners)
	require.Equal(1, stats.ActiveBanners)
	require.Equal(1, stats.PausedBanners)
	require.Equal(1, stats.TotalCampaigns)
	require.Equal(1, stats.ActiveCampaigns)
	require.EqualValues(4, stats.Impressions)
	require.EqualValues(1, stats.Clicks)
	require.Equal("25.00", stats.CTR)
}

func TestCampaignCreateRequiresExistingClient(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	_, err := env.campaigns.Create(models.Campaign{Name: "Q1", ClientID: "cli_missing"})
	require.True(IsReferentialIntegrity(err))

	_, err = env.campaigns.Create(models.Campaign{Name: "Q1"})
	require.True(IsValidation(err))
}

func TestCampaignCreateDefaults(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	c, err := env.clients.Create(models.Client{Name: "Acme"})
	require.NoError(err)

	camp, err := env.campaigns.Create(models.Campaign{Name: "Q1", ClientID: c.ID})
	require.NoError(err)
	require.Equal(models.CampaignStatusDraft, camp.Status)
	require.Equal(models.BudgetUnlimited, camp.BudgetType)
	require.Equal([]string{"all"}, camp.DefaultPageTargeting)
	require.Equal("all", camp.DefaultDeviceTargeting)
	require.Zero(camp.SpentAmount)
}

func TestCampaignDeleteGuardedByActiveBanners(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	c, err := env.clients.Create(models.Client{Name: "Acme"})
	require.NoError(err)
	camp, err := env.campaigns.Create(models.Campaign{Name: "Q1", ClientID: c.ID})
	require.NoError(err)

	b := activeBanner("a", "P1", 5)
	b.CampaignID = camp.ID
	banner := env.mustBanner(t, b)

	err = env.campaigns.Delete(camp.ID)
	require.True(IsReferentialIntegrity(err))

	_, err = env.banners.Toggle(banner.ID, "alice")
	require.NoError(err)
	require.NoError(env.campaigns.Delete(camp.ID))
}

func TestCampaignStatsGoalProgress(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	c, err := env.clients.Create(models.Client{Name: "Acme"})
	require.NoError(err)
	camp, err := env.campaigns.Create(models.Campaign{
		Name: "Q1", ClientID: c.ID,
		ImpressionGoal: 1000, ClickGoal: 10,
	})
	require.NoError(err)

	b := activeBanner("a", "P1", 5)
	b.CampaignID = camp.ID
	banner := env.mustBanner(t, b)

	for i := 0; i < 250; i++ {
		_, err := env.events.RecordImpression(EventInput{BannerID: banner.ID, CampaignID: camp.ID})
		require.NoError(err)
	}
	for i := 0; i < 5; i++ {
		_, err := env.events.RecordClick(EventInput{BannerID: banner.ID, CampaignID: camp.ID})
		require.NoError(err)
	}

	stats, err := env.campaigns.Stats(camp.ID)
	require.NoError(err)
	require.EqualValues(250, stats.Impressions)
	require.EqualValues(5, stats.Clicks)
	require.Equal("2.00", stats.CTR)
	require.Equal("25.0", stats.ImpressionProgress)
	require.Equal("50.0", stats.ClickProgress)
}

func TestCampaignStatsNoGoals(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testNow)

	c, err := env.clients.Create(models.Client{Name: "Acme"})
	require.NoError(err)
	camp, err := env.campaigns.Create(models.Campaign{Name: "Q1", ClientID: c.ID})
	require.NoError(err)

	stats, err := env.campaigns.Stats(camp.ID)
	require.NoError(err)
	require.Empty(stats.ImpressionProgress)
	require.Empty(stats.ClickProgress)
	require.Equal("0", stats.CTR)
}
