package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderhub/pkg/models"
)

type serviceFixture struct {
	svc          GamificationService
	progressRepo *fakeProgressRepo
	ruleRepo     *fakeRuleRepo
	badgeRepo    *fakeBadgeRepo
	campaignRepo *fakeCampaignRepo
	userRepo     *fakeUserRepo
	clock        *time.Time
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	now := testNow
	f := &serviceFixture{
		progressRepo: newFakeProgressRepo(),
		ruleRepo:     &fakeRuleRepo{},
		badgeRepo:    newFakeBadgeRepo(),
		campaignRepo: &fakeCampaignRepo{},
		userRepo:     newFakeUserRepo(),
		clock:        &now,
	}
	f.svc = NewGamificationService(
		f.progressRepo, f.ruleRepo, f.badgeRepo, f.campaignRepo, f.userRepo,
		nil, Options{Now: func() time.Time { return *f.clock }},
	)
	return f
}

func (f *serviceFixture) advanceDays(n int) {
	*f.clock = f.clock.AddDate(0, 0, n)
}

func TestProcessEvent_ImmediateRuleAwardsPoints(t *testing.T) {
	f := newFixture(t)
	f.ruleRepo.rules = []*models.Rule{immediateRule(150)}

	result, err := f.svc.ProcessEvent(context.Background(), "user-1", models.EventBucketListAdd,
		map[string]interface{}{"contentType": "destination", "itemId": "dest-42"})

	require.NoError(t, err)
	assert.Equal(t, 150, result.Points)
	assert.Equal(t, 1, result.CurrentLevel, "150 points stays on level 1")
	assert.Empty(t, result.Badges)
	assert.Zero(t, result.RuleErrors)

	// Progress record created on first event, one history row tagged with the rule
	progress, err := f.progressRepo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 150, progress.Points)
	assert.Equal(t, 2, progress.Version, "save bumps the version")

	require.Len(t, f.progressRepo.events, 1)
	row := f.progressRepo.events[0]
	assert.Equal(t, models.EventBucketListAdd, row.EventType)
	assert.Equal(t, 150, row.Points)
	require.NotNil(t, row.RuleID)
	assert.Equal(t, "rule-immediate", *row.RuleID)
	assert.Equal(t, "destination", row.Details["contentType"])
}

func TestProcessEvent_LevelBoundaryAtThousand(t *testing.T) {
	f := newFixture(t)
	f.ruleRepo.rules = []*models.Rule{immediateRule(1)}
	require.NoError(t, f.progressRepo.Create(context.Background(),
		&models.UserProgress{UserID: "user-1", Points: 999, Level: 1}))

	result, err := f.svc.ProcessEvent(context.Background(), "user-1", models.EventBucketListAdd, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.CurrentLevel, "crossing 1000 total points reaches level 2")
}

func TestProcessEvent_UnknownEventTypeRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ProcessEvent(context.Background(), "user-1", "profile_viewed", nil)
	assert.ErrorIs(t, err, models.ErrInvalidEventType)
}

func TestProcessEvent_NoMatchingRulesIsQuietSuccess(t *testing.T) {
	f := newFixture(t)
	f.ruleRepo.rules = []*models.Rule{streakRule(7)} // user_login trigger only

	result, err := f.svc.ProcessEvent(context.Background(), "user-1", models.EventBucketListAdd, nil)

	require.NoError(t, err)
	assert.Zero(t, result.Points)
	assert.Empty(t, f.progressRepo.events, "nothing fired, no history rows")
}

func TestProcessEvent_MaxCountStopsRepeatPayouts(t *testing.T) {
	f := newFixture(t)
	rule := immediateRule(25)
	rule.Conditions.MaxCount = 2
	f.ruleRepo.rules = []*models.Rule{rule}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		result, err := f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd, nil)
		require.NoError(t, err)
		assert.Equal(t, 25, result.Points)
	}

	result, err := f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Points, "cap reached, third event pays nothing")

	progress, _ := f.progressRepo.GetByUserID(ctx, "user-1")
	assert.Equal(t, 50, progress.Points)
	assert.Len(t, f.progressRepo.events, 2, "capped trigger leaves no history row")
}

func TestProcessEvent_MilestoneAchievedThroughService(t *testing.T) {
	f := newFixture(t)
	f.badgeRepo.badges["badge-collector"] = &models.Badge{
		ID: "badge-collector", Name: "Collector", Tier: models.BadgeTierBronze, IsActive: true,
	}
	f.ruleRepo.rules = []*models.Rule{milestoneRule(3)}

	ctx := context.Background()
	for i := 1; i <= 2; i++ {
		result, err := f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd, nil)
		require.NoError(t, err)
		assert.Zero(t, result.Points)
		require.Len(t, result.Milestones, 1)
		assert.Equal(t, i, result.Milestones[0].Progress)
		assert.False(t, result.Milestones[0].Achieved)
	}

	result, err := f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd, nil)
	require.NoError(t, err)
	assert.Equal(t, 500, result.Points)
	require.Len(t, result.Badges, 1)
	assert.Equal(t, "badge-collector", result.Badges[0].BadgeID)
	assert.True(t, result.Milestones[0].Achieved)

	// Fourth event: counter keeps moving, reward never repeats
	result, err = f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Points)
	assert.Empty(t, result.Badges)
	assert.Equal(t, 4, result.Milestones[0].Progress)

	progress, _ := f.progressRepo.GetByUserID(ctx, "user-1")
	assert.Equal(t, 500, progress.Points)
	assert.Len(t, progress.Badges, 1)
}

func TestProcessEvent_StreakThroughService(t *testing.T) {
	f := newFixture(t)
	f.ruleRepo.rules = []*models.Rule{streakRule(3)}

	ctx := context.Background()
	for day := 1; day <= 2; day++ {
		result, err := f.svc.ProcessEvent(ctx, "user-1", models.EventUserLogin, nil)
		require.NoError(t, err)
		assert.Zero(t, result.Points, "day %d below threshold", day)
		f.advanceDays(1)
	}

	result, err := f.svc.ProcessEvent(ctx, "user-1", models.EventUserLogin, nil)
	require.NoError(t, err)
	assert.Equal(t, 70, result.Points, "third consecutive day pays")

	// Second login the same day changes nothing
	result, err = f.svc.ProcessEvent(ctx, "user-1", models.EventUserLogin, nil)
	require.NoError(t, err)
	assert.Equal(t, 70, result.Points, "still at threshold")
	progress, _ := f.progressRepo.GetByUserID(ctx, "user-1")
	require.Len(t, progress.Streaks, 1)
	assert.Equal(t, 3, progress.Streaks[0].CurrentStreak, "same-day repeat does not extend")

	// A two-day gap resets the streak
	f.advanceDays(2)
	result, err = f.svc.ProcessEvent(ctx, "user-1", models.EventUserLogin, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Points)
	progress, _ = f.progressRepo.GetByUserID(ctx, "user-1")
	assert.Equal(t, 1, progress.Streaks[0].CurrentStreak)
	assert.Equal(t, 3, progress.Streaks[0].LongestStreak)
}

func TestProcessEvent_BadgeNeverDuplicated(t *testing.T) {
	f := newFixture(t)
	f.badgeRepo.badges["badge-starter"] = &models.Badge{
		ID: "badge-starter", Name: "Starter", Tier: models.BadgeTierBronze, IsActive: true,
	}
	rule := immediateRule(10)
	rule.Rewards.BadgeID = "badge-starter"
	f.ruleRepo.rules = []*models.Rule{rule}

	ctx := context.Background()
	result, err := f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd, nil)
	require.NoError(t, err)
	require.Len(t, result.Badges, 1)

	result, err = f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Points, "points still pay on repeat")
	assert.Empty(t, result.Badges, "badge set is a set")

	progress, _ := f.progressRepo.GetByUserID(ctx, "user-1")
	assert.Len(t, progress.Badges, 1)
}

func TestProcessEvent_MissingBadgeGrantsPointsOnly(t *testing.T) {
	f := newFixture(t)
	rule := immediateRule(40)
	rule.Rewards.BadgeID = "badge-ghost" // not in the badge store
	f.ruleRepo.rules = []*models.Rule{rule}

	result, err := f.svc.ProcessEvent(context.Background(), "user-1", models.EventBucketListAdd, nil)

	require.NoError(t, err)
	assert.Equal(t, 40, result.Points)
	assert.Empty(t, result.Badges)
}

func TestProcessEvent_BrokenRuleDoesNotSinkBatch(t *testing.T) {
	f := newFixture(t)
	broken := milestoneRule(0) // structurally invalid: no milestone count
	broken.ID = "rule-broken"
	f.ruleRepo.rules = []*models.Rule{broken, immediateRule(60)}

	result, err := f.svc.ProcessEvent(context.Background(), "user-1", models.EventBucketListAdd, nil)

	require.NoError(t, err)
	assert.Equal(t, 60, result.Points, "healthy rule still pays")
	assert.Equal(t, 1, result.RuleErrors)
}

func TestProcessEvent_CampaignRuleNeedsActiveWindow(t *testing.T) {
	f := newFixture(t)
	rule := &models.Rule{
		ID:           "rule-summer",
		Name:         "Summer Push",
		Type:         models.RuleTypeCampaign,
		TriggerEvent: models.EventBucketListComplete,
		Rewards:      models.RuleRewards{Points: 300},
		IsActive:     true,
	}
	f.ruleRepo.rules = []*models.Rule{rule}

	start := testNow.AddDate(0, 0, -3)
	end := testNow.AddDate(0, 0, 3)
	f.campaignRepo.campaigns = []*models.Campaign{{
		ID: "camp-summer", Name: "Summer", RuleIDs: []string{"rule-summer"},
		StartDate: start, EndDate: end, IsActive: true,
	}}

	ctx := context.Background()
	result, err := f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListComplete, nil)
	require.NoError(t, err)
	assert.Equal(t, 300, result.Points)

	// Past the window the rule goes quiet without being deactivated
	f.advanceDays(10)
	result, err = f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListComplete, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Points)
}

func TestProcessEvent_RequiredContentTypesFromHistory(t *testing.T) {
	f := newFixture(t)
	collect := immediateRule(5)
	collect.ID = "rule-collect"
	explorer := &models.Rule{
		ID:           "rule-explorer",
		Name:         "Well Rounded Explorer",
		Type:         models.RuleTypeImmediate,
		TriggerEvent: models.EventBucketListAdd,
		Conditions: models.RuleConditions{
			RequiredContentTypes: []string{"destination", "restaurant"},
			MaxCount:             1,
		},
		Rewards:  models.RuleRewards{Points: 250},
		IsActive: true,
	}
	f.ruleRepo.rules = []*models.Rule{collect, explorer}

	ctx := context.Background()
	result, err := f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd,
		map[string]interface{}{"contentType": "destination"})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Points, "only one content type seen so far")

	result, err = f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd,
		map[string]interface{}{"contentType": "restaurant"})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Points, "restaurant add lands before the gate can see it")

	result, err = f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd,
		map[string]interface{}{"contentType": "hotel"})
	require.NoError(t, err)
	assert.Equal(t, 255, result.Points, "both required types now in committed history")
}

func TestProcessEvent_RetriesOnVersionConflict(t *testing.T) {
	f := newFixture(t)
	f.ruleRepo.rules = []*models.Rule{immediateRule(10)}
	f.progressRepo.failSaves = 1

	result, err := f.svc.ProcessEvent(context.Background(), "user-1", models.EventBucketListAdd, nil)

	require.NoError(t, err)
	assert.Equal(t, 10, result.Points)
	assert.Equal(t, 2, f.progressRepo.saveCalls, "failed save plus the retried one")
}

func TestProcessEvent_GivesUpAfterRetryBudget(t *testing.T) {
	f := newFixture(t)
	f.ruleRepo.rules = []*models.Rule{immediateRule(10)}
	f.progressRepo.failSaves = 10

	_, err := f.svc.ProcessEvent(context.Background(), "user-1", models.EventBucketListAdd, nil)

	assert.ErrorIs(t, err, models.ErrVersionConflict)
}

func TestGetUserProfile_EmptyBaseline(t *testing.T) {
	f := newFixture(t)

	profile, err := f.svc.GetUserProfile(context.Background(), "user-new")

	require.NoError(t, err)
	assert.Zero(t, profile.Points)
	assert.Equal(t, 1, profile.Level)
	assert.Zero(t, profile.NextLevelProgress)
	assert.Empty(t, profile.Badges)
	assert.Empty(t, profile.Streaks)
	assert.Empty(t, profile.Milestones)
}

func TestGetUserProfile_JoinsBadgeDefinitions(t *testing.T) {
	f := newFixture(t)
	f.badgeRepo.badges["badge-starter"] = &models.Badge{
		ID: "badge-starter", Name: "Starter", Tier: models.BadgeTierBronze, IsActive: true,
	}
	rule := immediateRule(1250)
	rule.Rewards.BadgeID = "badge-starter"
	f.ruleRepo.rules = []*models.Rule{rule}

	ctx := context.Background()
	_, err := f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd, nil)
	require.NoError(t, err)

	profile, err := f.svc.GetUserProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1250, profile.Points)
	assert.Equal(t, 2, profile.Level)
	assert.Equal(t, 250, profile.NextLevelProgress)
	require.Len(t, profile.Badges, 1)
	require.NotNil(t, profile.Badges[0].Badge)
	assert.Equal(t, "Starter", profile.Badges[0].Badge.Name)
}

func TestGetLeaderboard_OrderingAndUsernames(t *testing.T) {
	f := newFixture(t)
	f.userRepo.users = map[string]*models.User{
		"user-a": {ID: "user-a", Username: "amelia"},
		"user-b": {ID: "user-b", Username: "bruno"},
		"user-c": {ID: "user-c", Username: "chika"},
	}
	ctx := context.Background()
	for _, p := range []struct {
		id     string
		points int
	}{{"user-a", 500}, {"user-b", 2400}, {"user-c", 500}} {
		require.NoError(t, f.progressRepo.Create(ctx, &models.UserProgress{
			UserID: p.id, Points: p.points, Level: models.LevelForPoints(p.points),
		}))
	}

	resp, err := f.svc.GetLeaderboard(ctx, "all", 10)

	require.NoError(t, err)
	assert.Equal(t, "all", resp.Timeframe)
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, "bruno", resp.Entries[0].Username)
	assert.Equal(t, 1, resp.Entries[0].Rank)
	// Ties break on user id for a stable ordering
	assert.Equal(t, "amelia", resp.Entries[1].Username)
	assert.Equal(t, "chika", resp.Entries[2].Username)
}

func TestGetLeaderboard_RejectsUnknownTimeframe(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetLeaderboard(context.Background(), "hourly", 10)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestAwardBadge_IdempotentManualGrant(t *testing.T) {
	f := newFixture(t)
	f.badgeRepo.badges["badge-vip"] = &models.Badge{
		ID: "badge-vip", Name: "VIP", Tier: models.BadgeTierGold, IsActive: true,
	}
	f.userRepo.users["user-1"] = &models.User{ID: "user-1", Username: "amelia"}

	ctx := context.Background()
	require.NoError(t, f.svc.AwardBadge(ctx, "user-1", "badge-vip", "support goodwill"))
	require.NoError(t, f.svc.AwardBadge(ctx, "user-1", "badge-vip", "support goodwill"))

	progress, err := f.progressRepo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, progress.Badges, 1)
	assert.Zero(t, progress.Points, "manual grants carry no points")

	require.Len(t, f.progressRepo.events, 1)
	assert.Equal(t, "badge_awarded", f.progressRepo.events[0].EventType)
	assert.Zero(t, f.progressRepo.events[0].Points)
}

func TestAwardBadge_UnknownOrInactiveBadge(t *testing.T) {
	f := newFixture(t)
	f.userRepo.users["user-1"] = &models.User{ID: "user-1"}
	f.badgeRepo.badges["badge-retired"] = &models.Badge{ID: "badge-retired", IsActive: false}

	err := f.svc.AwardBadge(context.Background(), "user-1", "badge-missing", "x")
	assert.ErrorIs(t, err, models.ErrBadgeNotFound)

	err = f.svc.AwardBadge(context.Background(), "user-1", "badge-retired", "x")
	assert.ErrorIs(t, err, models.ErrBadgeNotFound)
}

func TestRedeemPoints_SpendsAndRecomputesLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.progressRepo.Create(ctx, &models.UserProgress{
		UserID: "user-1", Points: 2300, Level: 3,
	}))

	result, err := f.svc.RedeemPoints(ctx, "user-1", 1500, "flight discount")

	require.NoError(t, err)
	assert.Equal(t, -1500, result.Points)
	assert.Equal(t, 1, result.CurrentLevel, "level drops with the balance")

	progress, _ := f.progressRepo.GetByUserID(ctx, "user-1")
	assert.Equal(t, 800, progress.Points)

	require.Len(t, f.progressRepo.events, 1)
	assert.Equal(t, "points_redeemed", f.progressRepo.events[0].EventType)
	assert.Equal(t, -1500, f.progressRepo.events[0].Points)
}

func TestRedeemPoints_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.progressRepo.Create(ctx, &models.UserProgress{
		UserID: "user-1", Points: 100, Level: 1,
	}))

	_, err := f.svc.RedeemPoints(ctx, "user-1", 500, "too ambitious")
	assert.ErrorIs(t, err, models.ErrInsufficientPoints)

	progress, _ := f.progressRepo.GetByUserID(ctx, "user-1")
	assert.Equal(t, 100, progress.Points, "balance untouched on rejection")
}

func TestGetEventHistory_Paginates(t *testing.T) {
	f := newFixture(t)
	f.ruleRepo.rules = []*models.Rule{immediateRule(10)}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.svc.ProcessEvent(ctx, "user-1", models.EventBucketListAdd, nil)
		require.NoError(t, err)
	}

	page, err := f.svc.GetEventHistory(ctx, "user-1", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 5, page.Meta.Total)

	page, err = f.svc.GetEventHistory(ctx, "user-1", 2, 4)
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
}
