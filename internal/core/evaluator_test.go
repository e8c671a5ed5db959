package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderhub/pkg/models"
)

var testNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func immediateRule(points int) *models.Rule {
	return &models.Rule{
		ID:           "rule-immediate",
		Name:         "Bucket List Starter",
		Type:         models.RuleTypeImmediate,
		TriggerEvent: models.EventBucketListAdd,
		Rewards:      models.RuleRewards{Points: points},
		IsActive:     true,
	}
}

func TestEvaluateRule_ImmediatePayout(t *testing.T) {
	rule := immediateRule(50)
	rule.Rewards.BadgeID = "badge-starter"

	outcome, err := evaluateRule(rule, &models.UserProgress{}, RuleFacts{}, nil, testNow)

	require.NoError(t, err)
	assert.Equal(t, 50, outcome.Points)
	assert.Equal(t, "badge-starter", outcome.BadgeID)
	assert.True(t, outcome.Fired())
	assert.Nil(t, outcome.Milestone)
	assert.Nil(t, outcome.Streak)
}

func TestEvaluateRule_MaxCountGate(t *testing.T) {
	rule := immediateRule(25)
	rule.Conditions.MaxCount = 3

	outcome, err := evaluateRule(rule, &models.UserProgress{}, RuleFacts{PriorTriggers: 2}, nil, testNow)
	require.NoError(t, err)
	assert.Equal(t, 25, outcome.Points, "third trigger still pays")

	outcome, err = evaluateRule(rule, &models.UserProgress{}, RuleFacts{PriorTriggers: 3}, nil, testNow)
	require.NoError(t, err)
	assert.False(t, outcome.Fired(), "fourth trigger must be silent")
}

func TestEvaluateRule_ContentTypeGate(t *testing.T) {
	rule := immediateRule(30)
	rule.Conditions.ContentType = models.ContentTypeRestaurant

	tests := []struct {
		name      string
		eventData map[string]interface{}
		fired     bool
	}{
		{"matching type", map[string]interface{}{"contentType": "restaurant"}, true},
		{"wrong type", map[string]interface{}{"contentType": "hotel"}, false},
		{"missing field", map[string]interface{}{}, false},
		{"nil data", nil, false},
		{"non-string value", map[string]interface{}{"contentType": 7}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := evaluateRule(rule, &models.UserProgress{}, RuleFacts{}, tt.eventData, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.fired, outcome.Fired())
		})
	}
}

func TestEvaluateRule_ReferrerGate(t *testing.T) {
	rule := &models.Rule{
		ID:           "rule-referral",
		Type:         models.RuleTypeImmediate,
		TriggerEvent: models.EventUserLogin,
		Conditions:   models.RuleConditions{Referrer: "partner"},
		Rewards:      models.RuleRewards{Points: 100},
		IsActive:     true,
	}

	outcome, err := evaluateRule(rule, &models.UserProgress{}, RuleFacts{},
		map[string]interface{}{"referrer": "https://partner.example.com/promo"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 100, outcome.Points, "substring match qualifies")

	outcome, err = evaluateRule(rule, &models.UserProgress{}, RuleFacts{},
		map[string]interface{}{"referrer": "https://search.example.com"}, testNow)
	require.NoError(t, err)
	assert.False(t, outcome.Fired())

	outcome, err = evaluateRule(rule, &models.UserProgress{}, RuleFacts{}, nil, testNow)
	require.NoError(t, err)
	assert.False(t, outcome.Fired(), "absent referrer never matches")
}

func TestEvaluateRule_RequiredContentTypesGate(t *testing.T) {
	rule := immediateRule(200)
	rule.Conditions.RequiredContentTypes = []string{"destination", "activity", "restaurant"}

	outcome, err := evaluateRule(rule, &models.UserProgress{},
		RuleFacts{ContentTypesSeen: []string{"destination", "restaurant"}}, nil, testNow)
	require.NoError(t, err)
	assert.False(t, outcome.Fired(), "missing one required type")

	outcome, err = evaluateRule(rule, &models.UserProgress{},
		RuleFacts{ContentTypesSeen: []string{"restaurant", "activity", "hotel", "destination"}}, nil, testNow)
	require.NoError(t, err)
	assert.Equal(t, 200, outcome.Points, "superset of required types qualifies")
}

func TestEvaluateRule_UnknownType(t *testing.T) {
	rule := immediateRule(10)
	rule.Type = "raffle"

	_, err := evaluateRule(rule, &models.UserProgress{}, RuleFacts{}, nil, testNow)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func milestoneRule(count int) *models.Rule {
	return &models.Rule{
		ID:           "rule-milestone",
		Name:         "Collector",
		Type:         models.RuleTypeMilestone,
		TriggerEvent: models.EventBucketListAdd,
		Conditions:   models.RuleConditions{MilestoneCount: count},
		Rewards:      models.RuleRewards{Points: 500, BadgeID: "badge-collector"},
		IsActive:     true,
	}
}

func TestEvaluateMilestone_PaysExactlyOnceAtThreshold(t *testing.T) {
	rule := milestoneRule(3)
	progress := &models.UserProgress{}

	for i := 1; i <= 5; i++ {
		outcome, err := evaluateMilestone(rule, progress, testNow)
		require.NoError(t, err)
		require.NotNil(t, outcome.Milestone)
		assert.Equal(t, i, outcome.Milestone.Progress, "counter advances on every event")

		if i == 3 {
			assert.True(t, outcome.Achieved)
			assert.Equal(t, 500, outcome.Points)
			assert.Equal(t, "badge-collector", outcome.BadgeID)
			require.NotNil(t, outcome.Milestone.AchievedAt)
		} else {
			assert.False(t, outcome.Achieved)
			assert.False(t, outcome.Fired(), "event %d must not pay", i)
		}

		progress.Milestones = []models.MilestoneState{*outcome.Milestone}
	}
}

func TestEvaluateMilestone_MaxCountCapSuppressesReward(t *testing.T) {
	rule := milestoneRule(5)
	rule.Conditions.MaxCount = 3

	progress := &models.UserProgress{Milestones: []models.MilestoneState{
		{RuleID: rule.ID, Progress: 4},
	}}
	outcome, err := evaluateMilestone(rule, progress, testNow)
	require.NoError(t, err)
	assert.Equal(t, 5, outcome.Milestone.Progress)
	assert.False(t, outcome.Achieved, "threshold reached past the cap stays unpaid")
	assert.False(t, outcome.Fired())
}

func TestEvaluateMilestone_MissingCountIsInvalid(t *testing.T) {
	rule := milestoneRule(0)
	_, err := evaluateMilestone(rule, &models.UserProgress{}, testNow)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func streakRule(days int) *models.Rule {
	return &models.Rule{
		ID:           "rule-streak",
		Name:         "Daily Explorer",
		Type:         models.RuleTypeStreak,
		TriggerEvent: models.EventUserLogin,
		Conditions:   models.RuleConditions{StreakDays: days},
		Rewards:      models.RuleRewards{Points: 70},
		IsActive:     true,
	}
}

func TestEvaluateStreak_FirstEventStartsAtOne(t *testing.T) {
	outcome, err := evaluateStreak(streakRule(7), &models.UserProgress{}, testNow)
	require.NoError(t, err)
	require.NotNil(t, outcome.Streak)
	assert.Equal(t, 1, outcome.Streak.CurrentStreak)
	assert.Equal(t, 1, outcome.Streak.LongestStreak)
	assert.Equal(t, testNow, outcome.Streak.LastActivityDate)
	assert.False(t, outcome.Fired())
}

func TestEvaluateStreak_DayDifferenceTransitions(t *testing.T) {
	tests := []struct {
		name         string
		lastActivity time.Time
		current      int
		want         int
	}{
		{"next calendar day extends", testNow.AddDate(0, 0, -1), 4, 5},
		{"same day is a no-op", testNow.Add(-2 * time.Hour), 4, 4},
		{"late night to early morning extends", time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC), 4, 5},
		{"two day gap resets", testNow.AddDate(0, 0, -2), 4, 1},
		{"long gap resets", testNow.AddDate(0, -1, 0), 12, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress := &models.UserProgress{Streaks: []models.StreakState{{
				Type:             models.EventUserLogin,
				CurrentStreak:    tt.current,
				LongestStreak:    9,
				LastActivityDate: tt.lastActivity,
			}}}
			outcome, err := evaluateStreak(streakRule(30), progress, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome.Streak.CurrentStreak)
			assert.Equal(t, 9, outcome.Streak.LongestStreak, "longest never shrinks")
			assert.Equal(t, testNow, outcome.Streak.LastActivityDate)
		})
	}
}

func TestEvaluateStreak_PaysAtAndBeyondThreshold(t *testing.T) {
	rule := streakRule(3)
	progress := &models.UserProgress{Streaks: []models.StreakState{{
		Type:             models.EventUserLogin,
		CurrentStreak:    2,
		LongestStreak:    2,
		LastActivityDate: testNow.AddDate(0, 0, -1),
	}}}

	outcome, err := evaluateStreak(rule, progress, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.Streak.CurrentStreak)
	assert.Equal(t, 70, outcome.Points, "reaching the threshold pays")

	// the day after: still at/over threshold, pays again
	progress.Streaks = []models.StreakState{*outcome.Streak}
	nextDay := testNow.AddDate(0, 0, 1)
	outcome, err = evaluateStreak(rule, progress, nextDay)
	require.NoError(t, err)
	assert.Equal(t, 4, outcome.Streak.CurrentStreak)
	assert.Equal(t, 70, outcome.Points)
}

func TestEvaluateStreak_LongestTracksCurrent(t *testing.T) {
	progress := &models.UserProgress{Streaks: []models.StreakState{{
		Type:             models.EventUserLogin,
		CurrentStreak:    5,
		LongestStreak:    5,
		LastActivityDate: testNow.AddDate(0, 0, -1),
	}}}
	outcome, err := evaluateStreak(streakRule(30), progress, testNow)
	require.NoError(t, err)
	assert.Equal(t, 6, outcome.Streak.LongestStreak)
}

func TestEvaluateRule_CampaignRequiresActiveWindow(t *testing.T) {
	rule := &models.Rule{
		ID:           "rule-campaign",
		Type:         models.RuleTypeCampaign,
		TriggerEvent: models.EventBucketListComplete,
		Rewards:      models.RuleRewards{Points: 300},
		IsActive:     true,
	}

	outcome, err := evaluateRule(rule, &models.UserProgress{}, RuleFacts{CampaignActive: true}, nil, testNow)
	require.NoError(t, err)
	assert.Equal(t, 300, outcome.Points)

	outcome, err = evaluateRule(rule, &models.UserProgress{}, RuleFacts{CampaignActive: false}, nil, testNow)
	require.NoError(t, err)
	assert.False(t, outcome.Fired(), "no active campaign window, no payout")
}
