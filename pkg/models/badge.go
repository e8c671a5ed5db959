package models

import (
	"time"
)

// Badge tiers
const (
	BadgeTierBronze   = "bronze"
	BadgeTierSilver   = "silver"
	BadgeTierGold     = "gold"
	BadgeTierPlatinum = "platinum"
)

// Badge represents a named reward unit, granted at most once per user.
// The engine treats badges as opaque: only ID and active flag matter
// during evaluation.
type Badge struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description,omitempty" db:"description"`
	Tier         string    `json:"tier" db:"tier"` // bronze, silver, gold, platinum
	IconURL      string    `json:"icon_url,omitempty" db:"icon_url"`
	Benefits     []string  `json:"benefits,omitempty" db:"benefits"`
	Requirements string    `json:"requirements,omitempty" db:"requirements"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserBadge records a single badge grant. Badge IDs are unique within a
// user's set - a second grant of the same badge is a no-op.
type UserBadge struct {
	BadgeID  string    `json:"badge_id" db:"badge_id"`
	Badge    *Badge    `json:"badge,omitempty" db:"-"` // Joined
	EarnedAt time.Time `json:"earned_at" db:"earned_at"`
	Reason   string    `json:"reason,omitempty" db:"reason"` // rule name or manual award reason
}
