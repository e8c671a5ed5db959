package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wanderhub/pkg/models"
)

// RuleRepository handles reward rule persistence. Rules are read-only from
// the engine's perspective; writes come only from admin endpoints and the
// seed tool.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.Rule) error
	GetByID(ctx context.Context, id string) (*models.Rule, error)
	Update(ctx context.Context, rule *models.Rule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Rule, int, error)
	ListActiveByTrigger(ctx context.Context, triggerEvent string, now time.Time) ([]*models.Rule, error)
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository creates a new PostgreSQL rule repository
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

const ruleColumns = `id, name, description, trigger_event, type, conditions,
	reward_points, reward_badge_id, is_active, start_date, end_date,
	created_at, updated_at`

// Create inserts a new rule
func (r *ruleRepository) Create(ctx context.Context, rule *models.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal rule conditions: %w", err)
	}

	query := `
		INSERT INTO reward_rules
			(id, name, description, trigger_event, type, conditions,
			 reward_points, reward_badge_id, is_active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.TriggerEvent,
		string(rule.Type),
		conditions,
		rule.Rewards.Points,
		rule.Rewards.BadgeID,
		rule.IsActive,
		rule.StartDate,
		rule.EndDate,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return mapDBError(err, "create_rule")
	}
	return nil
}

// GetByID retrieves a rule by ID
func (r *ruleRepository) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM reward_rules WHERE id = $1`

	rule, err := scanRule(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewHTTPError(models.ErrCodeNotFound, "rule not found", 404, err)
	}
	if err != nil {
		return nil, mapDBError(err, "get_rule_by_id")
	}
	return rule, nil
}

// Update replaces a rule's mutable fields
func (r *ruleRepository) Update(ctx context.Context, rule *models.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal rule conditions: %w", err)
	}

	query := `
		UPDATE reward_rules
		SET name = $2, description = $3, trigger_event = $4, type = $5,
		    conditions = $6, reward_points = $7, reward_badge_id = NULLIF($8, ''),
		    is_active = $9, start_date = $10, end_date = $11,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.TriggerEvent,
		string(rule.Type),
		conditions,
		rule.Rewards.Points,
		rule.Rewards.BadgeID,
		rule.IsActive,
		rule.StartDate,
		rule.EndDate,
	)
	if err != nil {
		return mapDBError(err, "update_rule")
	}
	if tag.RowsAffected() == 0 {
		return models.NewHTTPError(models.ErrCodeNotFound, "rule not found", 404, nil)
	}
	return nil
}

// Delete removes a rule
func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reward_rules WHERE id = $1`, id)
	if err != nil {
		return mapDBError(err, "delete_rule")
	}
	if tag.RowsAffected() == 0 {
		return models.NewHTTPError(models.ErrCodeNotFound, "rule not found", 404, nil)
	}
	return nil
}

// List returns a page of rules ordered by creation time
func (r *ruleRepository) List(ctx context.Context, limit, offset int) ([]*models.Rule, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reward_rules`).Scan(&total); err != nil {
		return nil, 0, mapDBError(err, "count_rules")
	}

	query := `SELECT ` + ruleColumns + `
		FROM reward_rules
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, mapDBError(err, "list_rules")
	}
	defer rows.Close()

	rules, err := collectRules(rows)
	if err != nil {
		return nil, 0, mapDBError(err, "list_rules")
	}
	return rules, total, nil
}

// ListActiveByTrigger returns all rules for a trigger event that are active
// and whose date window contains now. This is the per-event hot query.
func (r *ruleRepository) ListActiveByTrigger(ctx context.Context, triggerEvent string, now time.Time) ([]*models.Rule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM reward_rules
		WHERE trigger_event = $1
		  AND is_active = TRUE
		  AND (start_date IS NULL OR start_date <= $2)
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, triggerEvent, now)
	if err != nil {
		return nil, mapDBError(err, "list_active_rules")
	}
	defer rows.Close()

	rules, err := collectRules(rows)
	if err != nil {
		return nil, mapDBError(err, "list_active_rules")
	}
	return rules, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.Rule, error) {
	rule := &models.Rule{}
	var (
		typeStr    string
		conditions []byte
		badgeID    *string
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&rule.TriggerEvent,
		&typeStr,
		&conditions,
		&rule.Rewards.Points,
		&badgeID,
		&rule.IsActive,
		&rule.StartDate,
		&rule.EndDate,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Type = models.RuleType(typeStr)
	if badgeID != nil {
		rule.Rewards.BadgeID = *badgeID
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions for rule %s: %w", rule.ID, err)
		}
	}
	return rule, nil
}

func collectRules(rows pgx.Rows) ([]*models.Rule, error) {
	var rules []*models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
