// Package core - Gamification Business Logic
// Rule evaluation and progress aggregation for trackable user events
package core

import (
	"fmt"
	"strings"
	"time"

	"wanderhub/pkg/models"
	"wanderhub/pkg/utils"
)

// RuleOutcome is the result of evaluating one rule against one event.
// It carries the reward plus the replacement milestone/streak state; the
// caller applies it to the in-memory progress record, never the evaluator.
type RuleOutcome struct {
	Points    int
	BadgeID   string
	Milestone *models.MilestoneState // replacement state, nil if untouched
	Streak    *models.StreakState    // replacement state, nil if untouched
	Achieved  bool                   // milestone crossed its threshold in this call
}

// Fired reports whether the outcome pays anything out
func (o RuleOutcome) Fired() bool {
	return o.Points > 0 || o.BadgeID != ""
}

// RuleFacts carries the history-derived inputs a rule's gates may need.
// The service resolves them from the event log before evaluation so the
// evaluator itself stays free of I/O.
type RuleFacts struct {
	PriorTriggers    int      // history entries already tagged with this rule
	ContentTypesSeen []string // distinct contentType values over prior bucket adds
	CampaignActive   bool     // an active campaign currently references this rule
}

// evaluateRule runs one rule against a read-only progress snapshot.
// Gates are checked in order and short-circuit to a zero outcome; only a
// structurally broken rule returns an error.
func evaluateRule(rule *models.Rule, progress *models.UserProgress, facts RuleFacts, eventData map[string]interface{}, now time.Time) (RuleOutcome, error) {
	// Gate 1: max trigger count over committed history
	if rule.Conditions.MaxCount > 0 && facts.PriorTriggers >= rule.Conditions.MaxCount {
		return RuleOutcome{}, nil
	}

	// Gate 2: bucket-add content type must match
	if rule.TriggerEvent == models.EventBucketListAdd && rule.Conditions.ContentType != "" {
		if stringField(eventData, "contentType") != rule.Conditions.ContentType {
			return RuleOutcome{}, nil
		}
	}

	// Gate 3: login referrer substring
	if rule.TriggerEvent == models.EventUserLogin && rule.Conditions.Referrer != "" {
		if !strings.Contains(stringField(eventData, "referrer"), rule.Conditions.Referrer) {
			return RuleOutcome{}, nil
		}
	}

	// Gate 4: the user must have collected every required content type
	if len(rule.Conditions.RequiredContentTypes) > 0 {
		seen := make(map[string]bool, len(facts.ContentTypesSeen))
		for _, ct := range facts.ContentTypesSeen {
			seen[ct] = true
		}
		for _, required := range rule.Conditions.RequiredContentTypes {
			if !seen[required] {
				return RuleOutcome{}, nil
			}
		}
	}

	switch rule.Type {
	case models.RuleTypeImmediate:
		return RuleOutcome{Points: rule.Rewards.Points, BadgeID: rule.Rewards.BadgeID}, nil
	case models.RuleTypeMilestone:
		return evaluateMilestone(rule, progress, now)
	case models.RuleTypeStreak:
		return evaluateStreak(rule, progress, now)
	case models.RuleTypeCampaign:
		if facts.CampaignActive {
			return RuleOutcome{Points: rule.Rewards.Points, BadgeID: rule.Rewards.BadgeID}, nil
		}
		return RuleOutcome{}, nil
	}
	return RuleOutcome{}, fmt.Errorf("rule %s: %w: unknown type %q", rule.ID, models.ErrInvalidInput, rule.Type)
}

// evaluateMilestone advances cumulative progress by one. The reward pays
// out exactly once, on the false→true transition of achieved; afterwards
// the counter keeps advancing but never pays again.
func evaluateMilestone(rule *models.Rule, progress *models.UserProgress, now time.Time) (RuleOutcome, error) {
	if rule.Conditions.MilestoneCount <= 0 {
		return RuleOutcome{}, fmt.Errorf("rule %s: %w: milestone rule without milestone_count", rule.ID, models.ErrInvalidInput)
	}

	state := models.MilestoneState{RuleID: rule.ID}
	if existing := progress.Milestone(rule.ID); existing != nil {
		state = *existing
	}
	state.Progress++

	outcome := RuleOutcome{Milestone: &state}
	withinCap := rule.Conditions.MaxCount == 0 || state.Progress <= rule.Conditions.MaxCount
	if !state.Achieved && state.Progress >= rule.Conditions.MilestoneCount && withinCap {
		achievedAt := now
		state.Achieved = true
		state.AchievedAt = &achievedAt
		outcome.Achieved = true
		outcome.Points = rule.Rewards.Points
		outcome.BadgeID = rule.Rewards.BadgeID
	}
	return outcome, nil
}

// evaluateStreak applies the tri-state day-difference update: +1 day
// extends the streak, a longer gap resets it to 1, and a same-day repeat
// leaves the counter untouched. Longest streak and last activity date are
// refreshed on every qualifying event.
func evaluateStreak(rule *models.Rule, progress *models.UserProgress, now time.Time) (RuleOutcome, error) {
	if rule.Conditions.StreakDays <= 0 {
		return RuleOutcome{}, fmt.Errorf("rule %s: %w: streak rule without streak_days", rule.ID, models.ErrInvalidInput)
	}

	state := models.StreakState{Type: rule.TriggerEvent}
	if existing := progress.Streak(rule.TriggerEvent); existing != nil {
		state = *existing
	}

	if state.LastActivityDate.IsZero() {
		state.CurrentStreak = 1
	} else {
		switch days := utils.DaysBetween(state.LastActivityDate, now); {
		case days == 1:
			state.CurrentStreak++
		case days > 1:
			state.CurrentStreak = 1
		}
		// days == 0 (same calendar day) leaves CurrentStreak unchanged
	}
	if state.CurrentStreak > state.LongestStreak {
		state.LongestStreak = state.CurrentStreak
	}
	state.LastActivityDate = now

	outcome := RuleOutcome{Streak: &state}
	if state.CurrentStreak >= rule.Conditions.StreakDays {
		outcome.Points = rule.Rewards.Points
		outcome.BadgeID = rule.Rewards.BadgeID
	}
	return outcome, nil
}

func stringField(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
