// Package models - Gamification Rule System
// Declarative reward rules evaluated against user events
// Covers:
//   - Rule definitions with trigger events and conditions
//   - Reward payloads (points and badges)
//   - Closed rule-type enum for exhaustive dispatch
package models

import (
	"fmt"
	"time"
)

// RuleType is the closed set of rule variants. Dispatch on it is an
// exhaustive switch, never reflection or string matching elsewhere.
type RuleType string

const (
	RuleTypeImmediate RuleType = "immediate"
	RuleTypeMilestone RuleType = "milestone"
	RuleTypeStreak    RuleType = "streak"
	RuleTypeCampaign  RuleType = "campaign"
)

// Trackable event types - ENFORCES schema CHECK constraint
const (
	EventUserLogin          = "user_login"
	EventBucketListAdd      = "bucket_list_add"
	EventBucketListComplete = "bucket_list_complete"
)

// Bucket item content types
const (
	ContentTypeDestination = "destination"
	ContentTypeActivity    = "activity"
	ContentTypeRestaurant  = "restaurant"
	ContentTypeHotel       = "hotel"
	ContentTypeDeal        = "deal"
)

// RuleConditions holds the optional gates a rule checks before paying out.
// Zero values mean "not set" for every field.
type RuleConditions struct {
	MilestoneCount       int      `json:"milestone_count,omitempty" db:"milestone_count"`
	StreakDays           int      `json:"streak_days,omitempty" db:"streak_days"`
	MaxCount             int      `json:"max_count,omitempty" db:"max_count"`
	Timeframe            string   `json:"timeframe,omitempty" db:"timeframe"`
	ContentType          string   `json:"content_type,omitempty" db:"content_type"`
	Referrer             string   `json:"referrer,omitempty" db:"referrer"`
	RequiredContentTypes []string `json:"required_content_types,omitempty" db:"required_content_types"`
}

// RuleRewards is the payload emitted when a rule fires
type RuleRewards struct {
	Points  int    `json:"points" db:"points"`
	BadgeID string `json:"badge_id,omitempty" db:"badge_id"`
}

// Rule represents a declarative trigger→reward mapping.
// Immutable during evaluation; created/edited only via admin endpoints.
type Rule struct {
	ID           string         `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Description  string         `json:"description,omitempty" db:"description"`
	TriggerEvent string         `json:"trigger_event" db:"trigger_event"`
	Type         RuleType       `json:"type" db:"type" validate:"required,oneof=immediate milestone streak campaign"`
	Conditions   RuleConditions `json:"conditions" db:"conditions"`
	Rewards      RuleRewards    `json:"rewards" db:"rewards"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	StartDate    *time.Time     `json:"start_date,omitempty" db:"start_date"`
	EndDate      *time.Time     `json:"end_date,omitempty" db:"end_date"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks the structural invariants a rule must satisfy before it
// can be stored or evaluated.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	switch r.TriggerEvent {
	case EventUserLogin, EventBucketListAdd, EventBucketListComplete:
	default:
		return fmt.Errorf("invalid trigger event: must be one of [user_login, bucket_list_add, bucket_list_complete]")
	}
	switch r.Type {
	case RuleTypeImmediate, RuleTypeCampaign:
	case RuleTypeMilestone:
		if r.Conditions.MilestoneCount <= 0 {
			return fmt.Errorf("milestone rule requires conditions.milestone_count > 0")
		}
	case RuleTypeStreak:
		if r.Conditions.StreakDays <= 0 {
			return fmt.Errorf("streak rule requires conditions.streak_days > 0")
		}
	default:
		return fmt.Errorf("invalid rule type: %q", r.Type)
	}
	if r.Conditions.MaxCount < 0 {
		return fmt.Errorf("conditions.max_count cannot be negative")
	}
	if r.Rewards.Points < 0 {
		return fmt.Errorf("rewards.points cannot be negative")
	}
	if r.Rewards.Points == 0 && r.Rewards.BadgeID == "" {
		return fmt.Errorf("rule must reward points, a badge, or both")
	}
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return fmt.Errorf("rule end_date cannot precede start_date")
	}
	return nil
}

// ActiveAt reports whether the rule's own date window contains t.
// Campaign windows are checked separately against the campaign store.
func (r *Rule) ActiveAt(t time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.StartDate != nil && t.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && t.After(*r.EndDate) {
		return false
	}
	return true
}
