// Package models - User Gamification Progress
// Per-user mutable accumulator of points, level, badges, streaks and
// milestones, plus the append-only event history behind count-based gates.
package models

import (
	"time"
)

// PointsPerLevel is the level divisor: level = points/1000 + 1
const PointsPerLevel = 1000

// StreakState tracks consecutive-day activity for one trigger event type.
// At most one entry per event type on a user's progress record.
type StreakState struct {
	Type             string    `json:"type" db:"type"`
	CurrentStreak    int       `json:"current_streak" db:"current_streak"`
	LongestStreak    int       `json:"longest_streak" db:"longest_streak"`
	LastActivityDate time.Time `json:"last_activity_date" db:"last_activity_date"`
}

// MilestoneState tracks cumulative progress toward one milestone rule.
// At most one entry per rule ID on a user's progress record.
type MilestoneState struct {
	RuleID     string     `json:"rule_id" db:"rule_id"`
	Progress   int        `json:"progress" db:"progress"`
	Achieved   bool       `json:"achieved" db:"achieved"`
	AchievedAt *time.Time `json:"achieved_at,omitempty" db:"achieved_at"`
}

// UserProgress is the per-user gamification state. Created lazily on first
// event, mutated only by the gamification service, never deleted here.
// Version is the optimistic-lock counter guarding read-modify-write races.
type UserProgress struct {
	UserID     string           `json:"user_id" db:"user_id"`
	Points     int              `json:"points" db:"points"`
	Level      int              `json:"level" db:"level"`
	Badges     []UserBadge      `json:"badges" db:"-"`
	Streaks    []StreakState    `json:"streaks" db:"-"`
	Milestones []MilestoneState `json:"milestones" db:"-"`
	Version    int              `json:"-" db:"version"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// LevelForPoints derives the level from a points total
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

// HasBadge reports whether the badge is already in the user's set
func (p *UserProgress) HasBadge(badgeID string) bool {
	for i := range p.Badges {
		if p.Badges[i].BadgeID == badgeID {
			return true
		}
	}
	return false
}

// Milestone returns the milestone state for a rule, or nil
func (p *UserProgress) Milestone(ruleID string) *MilestoneState {
	for i := range p.Milestones {
		if p.Milestones[i].RuleID == ruleID {
			return &p.Milestones[i]
		}
	}
	return nil
}

// Streak returns the streak state for an event type, or nil
func (p *UserProgress) Streak(eventType string) *StreakState {
	for i := range p.Streaks {
		if p.Streaks[i].Type == eventType {
			return &p.Streaks[i]
		}
	}
	return nil
}

// ProgressEvent is one row of the append-only history log. Every entry with
// points != 0 or a badge grant carries the rule that caused it, so maxCount
// gates can be enforced by counting matching entries.
type ProgressEvent struct {
	ID        string                 `json:"id" db:"id"`
	UserID    string                 `json:"user_id" db:"user_id"`
	EventType string                 `json:"event_type" db:"event_type"`
	Points    int                    `json:"points" db:"points"`
	RuleID    *string                `json:"rule_id,omitempty" db:"rule_id"`
	RuleName  *string                `json:"rule_name,omitempty" db:"rule_name"`
	Details   map[string]interface{} `json:"details,omitempty" db:"details"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// ==== SERVICE RESULT & REQUEST SHAPES ====

// BadgeGrant is a badge earned during one ProcessEvent call
type BadgeGrant struct {
	BadgeID  string `json:"badge_id"`
	Name     string `json:"name,omitempty"`
	RuleID   string `json:"rule_id,omitempty"`
	RuleName string `json:"rule_name,omitempty"`
}

// MilestoneResult reports milestone movement during one ProcessEvent call
type MilestoneResult struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Progress int    `json:"progress"`
	Target   int    `json:"target"`
	Achieved bool   `json:"achieved"`
}

// EventResult is the summary returned to the caller after one event
type EventResult struct {
	Points       int               `json:"points"`
	Badges       []BadgeGrant      `json:"badges"`
	Milestones   []MilestoneResult `json:"milestones"`
	CurrentLevel int               `json:"current_level"`
	RuleErrors   int               `json:"rule_errors,omitempty"` // rules skipped due to malformed conditions
}

// SubmitEventRequest is the HTTP payload for event submission
type SubmitEventRequest struct {
	EventType string                 `json:"event_type" validate:"required,oneof=user_login bucket_list_add bucket_list_complete"`
	EventData map[string]interface{} `json:"event_data,omitempty"`
}

// RedeemRequest spends points (the one sanctioned points decrement)
type RedeemRequest struct {
	Points int    `json:"points" validate:"required,gt=0"`
	Reason string `json:"reason,omitempty"`
}

// AwardBadgeRequest is the admin payload for manual badge grants
type AwardBadgeRequest struct {
	BadgeID string `json:"badge_id" validate:"required"`
	Reason  string `json:"reason,omitempty"`
}

// UserProfileResponse is the read-only profile projection
type UserProfileResponse struct {
	UserID            string           `json:"user_id"`
	Points            int              `json:"points"`
	Level             int              `json:"level"`
	NextLevelProgress int              `json:"next_level_progress"` // points into the current level, out of PointsPerLevel
	Badges            []UserBadge      `json:"badges"`
	Streaks           []StreakState    `json:"streaks"`
	Milestones        []MilestoneState `json:"milestones"`
	ActiveCampaigns   []Campaign       `json:"active_campaigns"`
}

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
}

// LeaderboardResponse wraps a ranked page
type LeaderboardResponse struct {
	Timeframe string             `json:"timeframe"` // all, daily, weekly, monthly
	Entries   []LeaderboardEntry `json:"entries"`
	Total     int                `json:"total"`
}
