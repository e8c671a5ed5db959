package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wanderhub/pkg/models"
)

// BadgeRepository handles badge definition persistence
type BadgeRepository interface {
	Create(ctx context.Context, badge *models.Badge) error
	GetByID(ctx context.Context, id string) (*models.Badge, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Badge, error)
	Update(ctx context.Context, badge *models.Badge) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Badge, int, error)
}

type badgeRepository struct {
	pool *pgxpool.Pool
}

// NewBadgeRepository creates a new PostgreSQL badge repository
func NewBadgeRepository(pool *pgxpool.Pool) BadgeRepository {
	return &badgeRepository{pool: pool}
}

// Create inserts a new badge definition
func (r *badgeRepository) Create(ctx context.Context, badge *models.Badge) error {
	query := `
		INSERT INTO badges (id, name, description, tier, icon_url, benefits, requirements, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		badge.ID,
		badge.Name,
		badge.Description,
		badge.Tier,
		badge.IconURL,
		badge.Benefits,
		badge.Requirements,
		badge.IsActive,
	).Scan(&badge.CreatedAt)

	if err != nil {
		return mapDBError(err, "create_badge")
	}
	return nil
}

// GetByID retrieves a badge by ID
func (r *badgeRepository) GetByID(ctx context.Context, id string) (*models.Badge, error) {
	query := `
		SELECT id, name, description, tier, icon_url, benefits, requirements, is_active, created_at
		FROM badges
		WHERE id = $1
	`

	badge, err := scanBadge(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewHTTPError(models.ErrCodeNotFound, "badge not found", 404, err)
	}
	if err != nil {
		return nil, mapDBError(err, "get_badge_by_id")
	}
	return badge, nil
}

// GetByIDs loads several badges at once for profile joins
func (r *badgeRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Badge, error) {
	result := make(map[string]*models.Badge, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `
		SELECT id, name, description, tier, icon_url, benefits, requirements, is_active, created_at
		FROM badges
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, mapDBError(err, "get_badges_by_ids")
	}
	defer rows.Close()

	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, mapDBError(err, "get_badges_by_ids")
		}
		result[badge.ID] = badge
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err, "get_badges_by_ids")
	}
	return result, nil
}

// Update replaces a badge's mutable fields
func (r *badgeRepository) Update(ctx context.Context, badge *models.Badge) error {
	query := `
		UPDATE badges
		SET name = $2, description = $3, tier = $4, icon_url = $5,
		    benefits = $6, requirements = $7, is_active = $8
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		badge.ID,
		badge.Name,
		badge.Description,
		badge.Tier,
		badge.IconURL,
		badge.Benefits,
		badge.Requirements,
		badge.IsActive,
	)
	if err != nil {
		return mapDBError(err, "update_badge")
	}
	if tag.RowsAffected() == 0 {
		return models.NewHTTPError(models.ErrCodeNotFound, "badge not found", 404, nil)
	}
	return nil
}

// Delete removes a badge definition. Grants already recorded on user
// progress keep the badge ID; only the definition disappears.
func (r *badgeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM badges WHERE id = $1`, id)
	if err != nil {
		return mapDBError(err, "delete_badge")
	}
	if tag.RowsAffected() == 0 {
		return models.NewHTTPError(models.ErrCodeNotFound, "badge not found", 404, nil)
	}
	return nil
}

// List returns a page of badges
func (r *badgeRepository) List(ctx context.Context, limit, offset int) ([]*models.Badge, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM badges`).Scan(&total); err != nil {
		return nil, 0, mapDBError(err, "count_badges")
	}

	query := `
		SELECT id, name, description, tier, icon_url, benefits, requirements, is_active, created_at
		FROM badges
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, mapDBError(err, "list_badges")
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, 0, mapDBError(err, "list_badges")
		}
		badges = append(badges, badge)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "list_badges")
	}
	return badges, total, nil
}

func scanBadge(row rowScanner) (*models.Badge, error) {
	badge := &models.Badge{}
	err := row.Scan(
		&badge.ID,
		&badge.Name,
		&badge.Description,
		&badge.Tier,
		&badge.IconURL,
		&badge.Benefits,
		&badge.Requirements,
		&badge.IsActive,
		&badge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return badge, nil
}
