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

// ProgressRepository handles per-user gamification state and the append-only
// event history. The progress record is guarded by an optimistic version
// counter; concurrent writers lose with ErrVersionConflict and retry.
type ProgressRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserProgress, error)
	Create(ctx context.Context, progress *models.UserProgress) error
	// SaveWithEvents persists the full progress record under the version
	// check and appends history rows in the same transaction. On success
	// progress.Version is advanced to the stored value.
	SaveWithEvents(ctx context.Context, progress *models.UserProgress, events []*models.ProgressEvent) error

	// History-derived predicates used by rule gates
	CountRuleTriggers(ctx context.Context, userID, ruleID, eventType string) (int, error)
	DistinctContentTypes(ctx context.Context, userID, eventType string) ([]string, error)

	ListEvents(ctx context.Context, userID string, limit, offset int) ([]*models.ProgressEvent, int, error)
	Leaderboard(ctx context.Context, since *time.Time, limit int) ([]models.LeaderboardEntry, int, error)

	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type progressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new PostgreSQL progress repository
func NewProgressRepository(pool *pgxpool.Pool) ProgressRepository {
	return &progressRepository{pool: pool}
}

// GetByUserID loads a progress record with its badges, streaks and milestones
func (r *progressRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProgress, error) {
	progress := &models.UserProgress{UserID: userID}

	err := r.pool.QueryRow(ctx, `
		SELECT points, level, version, created_at, updated_at
		FROM user_progress
		WHERE user_id = $1
	`, userID).Scan(
		&progress.Points,
		&progress.Level,
		&progress.Version,
		&progress.CreatedAt,
		&progress.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("progress for user %s: %w", userID, models.ErrProgressNotFound)
	}
	if err != nil {
		return nil, mapDBError(err, "get_progress")
	}

	if progress.Badges, err = r.loadBadges(ctx, userID); err != nil {
		return nil, err
	}
	if progress.Streaks, err = r.loadStreaks(ctx, userID); err != nil {
		return nil, err
	}
	if progress.Milestones, err = r.loadMilestones(ctx, userID); err != nil {
		return nil, err
	}
	return progress, nil
}

func (r *progressRepository) loadBadges(ctx context.Context, userID string) ([]models.UserBadge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT badge_id, earned_at, reason
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at
	`, userID)
	if err != nil {
		return nil, mapDBError(err, "load_badges")
	}
	defer rows.Close()

	var badges []models.UserBadge
	for rows.Next() {
		var b models.UserBadge
		var reason *string
		if err := rows.Scan(&b.BadgeID, &b.EarnedAt, &reason); err != nil {
			return nil, mapDBError(err, "load_badges")
		}
		if reason != nil {
			b.Reason = *reason
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func (r *progressRepository) loadStreaks(ctx context.Context, userID string) ([]models.StreakState, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT type, current_streak, longest_streak, last_activity_date
		FROM user_streaks
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, mapDBError(err, "load_streaks")
	}
	defer rows.Close()

	var streaks []models.StreakState
	for rows.Next() {
		var s models.StreakState
		if err := rows.Scan(&s.Type, &s.CurrentStreak, &s.LongestStreak, &s.LastActivityDate); err != nil {
			return nil, mapDBError(err, "load_streaks")
		}
		streaks = append(streaks, s)
	}
	return streaks, rows.Err()
}

func (r *progressRepository) loadMilestones(ctx context.Context, userID string) ([]models.MilestoneState, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rule_id, progress, achieved, achieved_at
		FROM user_milestones
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, mapDBError(err, "load_milestones")
	}
	defer rows.Close()

	var milestones []models.MilestoneState
	for rows.Next() {
		var m models.MilestoneState
		if err := rows.Scan(&m.RuleID, &m.Progress, &m.Achieved, &m.AchievedAt); err != nil {
			return nil, mapDBError(err, "load_milestones")
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// Create inserts a fresh progress record (first event for a user).
// Version starts at 1. Races between two first events surface as a
// unique violation, mapped to CONFLICT so the caller retries via Get.
func (r *progressRepository) Create(ctx context.Context, progress *models.UserProgress) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_progress (user_id, points, level, version)
		VALUES ($1, $2, $3, 1)
		RETURNING version, created_at, updated_at
	`,
		progress.UserID,
		progress.Points,
		progress.Level,
	).Scan(&progress.Version, &progress.CreatedAt, &progress.UpdatedAt)

	if err != nil {
		return mapDBError(err, "create_progress")
	}
	return nil
}

// SaveWithEvents is the single write path for event processing: progress
// row (version-checked), child tables, and history rows commit or roll
// back together.
func (r *progressRepository) SaveWithEvents(ctx context.Context, progress *models.UserProgress, events []*models.ProgressEvent) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE user_progress
			SET points = $2, level = $3, version = version + 1, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $1 AND version = $4
		`,
			progress.UserID,
			progress.Points,
			progress.Level,
			progress.Version,
		)
		if err != nil {
			return mapDBError(err, "save_progress")
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("save progress for user %s: %w", progress.UserID, models.ErrVersionConflict)
		}

		// Streaks and milestones are tiny per-user sets; full replace keeps
		// the write path simple.
		if _, err := tx.Exec(ctx, `DELETE FROM user_streaks WHERE user_id = $1`, progress.UserID); err != nil {
			return mapDBError(err, "save_streaks")
		}
		for _, s := range progress.Streaks {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_streaks (user_id, type, current_streak, longest_streak, last_activity_date)
				VALUES ($1, $2, $3, $4, $5)
			`, progress.UserID, s.Type, s.CurrentStreak, s.LongestStreak, s.LastActivityDate); err != nil {
				return mapDBError(err, "save_streaks")
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM user_milestones WHERE user_id = $1`, progress.UserID); err != nil {
			return mapDBError(err, "save_milestones")
		}
		for _, m := range progress.Milestones {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_milestones (user_id, rule_id, progress, achieved, achieved_at)
				VALUES ($1, $2, $3, $4, $5)
			`, progress.UserID, m.RuleID, m.Progress, m.Achieved, m.AchievedAt); err != nil {
				return mapDBError(err, "save_milestones")
			}
		}

		// Badge grants are insert-only; the primary key keeps the set free
		// of duplicates even if a grant is replayed.
		for _, b := range progress.Badges {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_badges (user_id, badge_id, earned_at, reason)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_id, badge_id) DO NOTHING
			`, progress.UserID, b.BadgeID, b.EarnedAt, b.Reason); err != nil {
				return mapDBError(err, "save_badges")
			}
		}

		for _, e := range events {
			details, err := json.Marshal(e.Details)
			if err != nil {
				return fmt.Errorf("failed to marshal event details: %w", err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO progress_events (id, user_id, event_type, points, rule_id, rule_name, details, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, e.ID, e.UserID, e.EventType, e.Points, e.RuleID, e.RuleName, details, e.CreatedAt); err != nil {
				return mapDBError(err, "append_events")
			}
		}

		progress.Version++
		return nil
	})
}

// CountRuleTriggers counts history entries for one rule, the maxCount gate
func (r *progressRepository) CountRuleTriggers(ctx context.Context, userID, ruleID, eventType string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM progress_events
		WHERE user_id = $1 AND rule_id = $2 AND event_type = $3
	`, userID, ruleID, eventType).Scan(&count)
	if err != nil {
		return 0, mapDBError(err, "count_rule_triggers")
	}
	return count, nil
}

// DistinctContentTypes returns the distinct details.contentType values over
// a user's history for one event type, the requiredContentTypes gate
func (r *progressRepository) DistinctContentTypes(ctx context.Context, userID, eventType string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT details->>'contentType'
		FROM progress_events
		WHERE user_id = $1 AND event_type = $2 AND details ? 'contentType'
	`, userID, eventType)
	if err != nil {
		return nil, mapDBError(err, "distinct_content_types")
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var ct string
		if err := rows.Scan(&ct); err != nil {
			return nil, mapDBError(err, "distinct_content_types")
		}
		types = append(types, ct)
	}
	return types, rows.Err()
}

// ListEvents returns a page of a user's history, newest first
func (r *progressRepository) ListEvents(ctx context.Context, userID string, limit, offset int) ([]*models.ProgressEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM progress_events WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, mapDBError(err, "count_events")
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, event_type, points, rule_id, rule_name, details, created_at
		FROM progress_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, mapDBError(err, "list_events")
	}
	defer rows.Close()

	var events []*models.ProgressEvent
	for rows.Next() {
		e := &models.ProgressEvent{}
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &e.Points, &e.RuleID, &e.RuleName, &details, &e.CreatedAt); err != nil {
			return nil, 0, mapDBError(err, "list_events")
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal event details: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "list_events")
	}
	return events, total, nil
}

// Leaderboard ranks users by (points desc, level desc). A non-nil since
// filters by progress-record creation time, which is how the daily/weekly/
// monthly views are defined.
func (r *progressRepository) Leaderboard(ctx context.Context, since *time.Time, limit int) ([]models.LeaderboardEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_progress
		WHERE $1::timestamptz IS NULL OR created_at >= $1
	`, since).Scan(&total); err != nil {
		return nil, 0, mapDBError(err, "count_leaderboard")
	}

	rows, err := r.pool.Query(ctx, `
		SELECT user_id, points, level
		FROM user_progress
		WHERE $1::timestamptz IS NULL OR created_at >= $1
		ORDER BY points DESC, level DESC, user_id
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, 0, mapDBError(err, "leaderboard")
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Points, &e.Level); err != nil {
			return nil, 0, mapDBError(err, "leaderboard")
		}
		e.Rank = rank
		rank++
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "leaderboard")
	}
	return entries, total, nil
}

// WithTransaction executes a function within a database transaction
func (r *progressRepository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapDBError(err, "begin_transaction")
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapDBError(err, "commit_transaction")
	}
	return nil
}
