package models

import (
	"fmt"
	"time"
)

// Campaign is a time-boxed activation window gating a set of campaign-type
// rules. A campaign rule only pays out while at least one campaign
// referencing it is currently active.
type Campaign struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	RuleIDs     []string  `json:"rule_ids" db:"rule_ids"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks campaign invariants before storage
func (c *Campaign) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("campaign name is required")
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("campaign end_date cannot precede start_date")
	}
	return nil
}

// ActiveAt reports whether the campaign window contains t (inclusive on
// both ends) and the campaign is switched on.
func (c *Campaign) ActiveAt(t time.Time) bool {
	if !c.IsActive {
		return false
	}
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}
