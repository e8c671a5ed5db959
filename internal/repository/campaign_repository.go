package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wanderhub/pkg/models"
)

// CampaignRepository handles campaign persistence
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Campaign, int, error)
	// ExistsActiveForRule reports whether any active campaign references the
	// rule with the current time inside its window.
	ExistsActiveForRule(ctx context.Context, ruleID string, now time.Time) (bool, error)
	ListActive(ctx context.Context, now time.Time) ([]*models.Campaign, error)
}

type campaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository creates a new PostgreSQL campaign repository
func NewCampaignRepository(pool *pgxpool.Pool) CampaignRepository {
	return &campaignRepository{pool: pool}
}

// Create inserts a new campaign
func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaigns (id, name, description, rule_ids, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		campaign.ID,
		campaign.Name,
		campaign.Description,
		campaign.RuleIDs,
		campaign.StartDate,
		campaign.EndDate,
		campaign.IsActive,
	).Scan(&campaign.CreatedAt, &campaign.UpdatedAt)

	if err != nil {
		return mapDBError(err, "create_campaign")
	}
	return nil
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `
		SELECT id, name, description, rule_ids, start_date, end_date, is_active, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`

	campaign, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewHTTPError(models.ErrCodeNotFound, "campaign not found", 404, err)
	}
	if err != nil {
		return nil, mapDBError(err, "get_campaign_by_id")
	}
	return campaign, nil
}

// Update replaces a campaign's mutable fields
func (r *campaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	query := `
		UPDATE campaigns
		SET name = $2, description = $3, rule_ids = $4, start_date = $5,
		    end_date = $6, is_active = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		campaign.ID,
		campaign.Name,
		campaign.Description,
		campaign.RuleIDs,
		campaign.StartDate,
		campaign.EndDate,
		campaign.IsActive,
	)
	if err != nil {
		return mapDBError(err, "update_campaign")
	}
	if tag.RowsAffected() == 0 {
		return models.NewHTTPError(models.ErrCodeNotFound, "campaign not found", 404, nil)
	}
	return nil
}

// Delete removes a campaign
func (r *campaignRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return mapDBError(err, "delete_campaign")
	}
	if tag.RowsAffected() == 0 {
		return models.NewHTTPError(models.ErrCodeNotFound, "campaign not found", 404, nil)
	}
	return nil
}

// List returns a page of campaigns
func (r *campaignRepository) List(ctx context.Context, limit, offset int) ([]*models.Campaign, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, mapDBError(err, "count_campaigns")
	}

	query := `
		SELECT id, name, description, rule_ids, start_date, end_date, is_active, created_at, updated_at
		FROM campaigns
		ORDER BY start_date DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, mapDBError(err, "list_campaigns")
	}
	defer rows.Close()

	campaigns, err := collectCampaigns(rows)
	if err != nil {
		return nil, 0, mapDBError(err, "list_campaigns")
	}
	return campaigns, total, nil
}

// ExistsActiveForRule is the campaign-rule gate query
func (r *campaignRepository) ExistsActiveForRule(ctx context.Context, ruleID string, now time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM campaigns
			WHERE $1 = ANY(rule_ids)
			  AND is_active = TRUE
			  AND start_date <= $2
			  AND end_date >= $2
		)
	`, ruleID, now).Scan(&exists)
	if err != nil {
		return false, mapDBError(err, "campaign_active_for_rule")
	}
	return exists, nil
}

// ListActive returns campaigns whose window contains now
func (r *campaignRepository) ListActive(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	query := `
		SELECT id, name, description, rule_ids, start_date, end_date, is_active, created_at, updated_at
		FROM campaigns
		WHERE is_active = TRUE AND start_date <= $1 AND end_date >= $1
		ORDER BY end_date
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, mapDBError(err, "list_active_campaigns")
	}
	defer rows.Close()

	campaigns, err := collectCampaigns(rows)
	if err != nil {
		return nil, mapDBError(err, "list_active_campaigns")
	}
	return campaigns, nil
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	err := row.Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.Description,
		&campaign.RuleIDs,
		&campaign.StartDate,
		&campaign.EndDate,
		&campaign.IsActive,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return campaign, nil
}

func collectCampaigns(rows pgx.Rows) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, rows.Err()
}
