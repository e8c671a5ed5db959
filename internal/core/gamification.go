package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wanderhub/internal/repository"
	"wanderhub/pkg/cache"
	"wanderhub/pkg/logger"
	"wanderhub/pkg/models"
	"wanderhub/pkg/utils"
)

// GamificationService is the reward engine entry point. ProcessEvent is
// called by route handlers after the primary action (login, bucket add,
// bucket completion) has succeeded.
type GamificationService interface {
	ProcessEvent(ctx context.Context, userID, eventType string, eventData map[string]interface{}) (*models.EventResult, error)
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfileResponse, error)
	GetLeaderboard(ctx context.Context, timeframe string, limit int) (*models.LeaderboardResponse, error)
	AwardBadge(ctx context.Context, userID, badgeID, reason string) error
	RedeemPoints(ctx context.Context, userID string, points int, reason string) (*models.EventResult, error)
	GetEventHistory(ctx context.Context, userID string, limit, offset int) (*models.PaginatedResponse[*models.ProgressEvent], error)
}

// Options tunes the service; zero values fall back to sane defaults
type Options struct {
	SaveRetries         int
	LeaderboardMaxLimit int
	Now                 func() time.Time // injectable clock for tests
}

type gamificationService struct {
	progressRepo repository.ProgressRepository
	ruleRepo     repository.RuleRepository
	badgeRepo    repository.BadgeRepository
	campaignRepo repository.CampaignRepository
	userRepo     repository.UserRepository
	lbCache      *cache.LeaderboardCache
	saveRetries  int
	lbMaxLimit   int
	now          func() time.Time
}

// NewGamificationService creates the reward engine. lbCache may be nil to
// disable leaderboard caching.
func NewGamificationService(
	progressRepo repository.ProgressRepository,
	ruleRepo repository.RuleRepository,
	badgeRepo repository.BadgeRepository,
	campaignRepo repository.CampaignRepository,
	userRepo repository.UserRepository,
	lbCache *cache.LeaderboardCache,
	opts Options,
) GamificationService {
	if opts.SaveRetries <= 0 {
		opts.SaveRetries = 3
	}
	if opts.LeaderboardMaxLimit <= 0 {
		opts.LeaderboardMaxLimit = 100
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &gamificationService{
		progressRepo: progressRepo,
		ruleRepo:     ruleRepo,
		badgeRepo:    badgeRepo,
		campaignRepo: campaignRepo,
		userRepo:     userRepo,
		lbCache:      lbCache,
		saveRetries:  opts.SaveRetries,
		lbMaxLimit:   opts.LeaderboardMaxLimit,
		now:          opts.Now,
	}
}

// ProcessEvent evaluates every active rule matching the event and applies
// the merged outcome atomically. Concurrent events for the same user are
// serialized by the version check on the progress record: the loser
// reloads and re-evaluates, up to saveRetries attempts.
func (s *gamificationService) ProcessEvent(ctx context.Context, userID, eventType string, eventData map[string]interface{}) (*models.EventResult, error) {
	switch eventType {
	case models.EventUserLogin, models.EventBucketListAdd, models.EventBucketListComplete:
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidEventType, eventType)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrInvalidInput)
	}

	var lastErr error
	for attempt := 0; attempt < s.saveRetries; attempt++ {
		result, err := s.processEventOnce(ctx, userID, eventType, eventData)
		if err == nil {
			logger.Event(userID, eventType, result.Points, len(result.Badges))
			return result, nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		logger.Warnf("progress version conflict for user %s, retrying (attempt %d)", userID, attempt+1)
	}
	return nil, fmt.Errorf("failed to process event after %d attempts: %w", s.saveRetries, lastErr)
}

func (s *gamificationService) processEventOnce(ctx context.Context, userID, eventType string, eventData map[string]interface{}) (*models.EventResult, error) {
	now := s.now()

	progress, err := s.loadOrCreateProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	rules, err := s.ruleRepo.ListActiveByTrigger(ctx, eventType, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for %s: %w", eventType, err)
	}

	result := &models.EventResult{
		Badges:     []models.BadgeGrant{},
		Milestones: []models.MilestoneResult{},
	}
	var historyRows []*models.ProgressEvent
	totalPoints := 0

	// Distinct content types are shared across rules; resolve once, lazily.
	var contentTypesSeen []string
	contentTypesLoaded := false

	for _, rule := range rules {
		facts := RuleFacts{}

		if rule.Conditions.MaxCount > 0 {
			facts.PriorTriggers, err = s.progressRepo.CountRuleTriggers(ctx, userID, rule.ID, eventType)
			if err != nil {
				return nil, fmt.Errorf("failed to count triggers for rule %s: %w", rule.ID, err)
			}
		}
		if len(rule.Conditions.RequiredContentTypes) > 0 {
			if !contentTypesLoaded {
				contentTypesSeen, err = s.progressRepo.DistinctContentTypes(ctx, userID, models.EventBucketListAdd)
				if err != nil {
					return nil, fmt.Errorf("failed to load content types: %w", err)
				}
				contentTypesLoaded = true
			}
			facts.ContentTypesSeen = contentTypesSeen
		}
		if rule.Type == models.RuleTypeCampaign {
			facts.CampaignActive, err = s.campaignRepo.ExistsActiveForRule(ctx, rule.ID, now)
			if err != nil {
				return nil, fmt.Errorf("failed to check campaigns for rule %s: %w", rule.ID, err)
			}
		}

		outcome, evalErr := evaluateRule(rule, progress, facts, eventData, now)
		if evalErr != nil {
			// A broken rule must not sink the whole event; skip it and
			// keep the rest of the batch alive.
			logger.Warnf("skipping rule %s (%s): %v", rule.ID, rule.Name, evalErr)
			result.RuleErrors++
			continue
		}

		// Later rules in the batch see milestone/streak movement from
		// earlier ones, but not an updated points total.
		if outcome.Milestone != nil {
			applyMilestone(progress, outcome.Milestone)
			result.Milestones = append(result.Milestones, models.MilestoneResult{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Progress: outcome.Milestone.Progress,
				Target:   rule.Conditions.MilestoneCount,
				Achieved: outcome.Milestone.Achieved,
			})
		}
		if outcome.Streak != nil {
			applyStreak(progress, outcome.Streak)
		}

		if !outcome.Fired() {
			continue
		}

		totalPoints += outcome.Points

		badgeID := ""
		if outcome.BadgeID != "" && !progress.HasBadge(outcome.BadgeID) {
			badge, badgeErr := s.badgeRepo.GetByID(ctx, outcome.BadgeID)
			if badgeErr != nil || !badge.IsActive {
				logger.Warnf("rule %s references missing or inactive badge %s, granting points only", rule.ID, outcome.BadgeID)
			} else {
				badgeID = outcome.BadgeID
				progress.Badges = append(progress.Badges, models.UserBadge{
					BadgeID:  badgeID,
					EarnedAt: now,
					Reason:   rule.Name,
				})
				result.Badges = append(result.Badges, models.BadgeGrant{
					BadgeID:  badgeID,
					Name:     badge.Name,
					RuleID:   rule.ID,
					RuleName: rule.Name,
				})
			}
		}

		ruleID := rule.ID
		ruleName := rule.Name
		details := mergeDetails(eventData, badgeID)
		historyRows = append(historyRows, &models.ProgressEvent{
			ID:        uuid.New().String(),
			UserID:    userID,
			EventType: eventType,
			Points:    outcome.Points,
			RuleID:    &ruleID,
			RuleName:  &ruleName,
			Details:   details,
			CreatedAt: now,
		})
	}

	progress.Points += totalPoints
	progress.Level = models.LevelForPoints(progress.Points)

	if err := s.progressRepo.SaveWithEvents(ctx, progress, historyRows); err != nil {
		return nil, err
	}

	result.Points = totalPoints
	result.CurrentLevel = progress.Level
	return result, nil
}

func (s *gamificationService) loadOrCreateProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	progress, err := s.progressRepo.GetByUserID(ctx, userID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, models.ErrProgressNotFound) {
		return nil, err
	}

	progress = &models.UserProgress{
		UserID: userID,
		Points: 0,
		Level:  models.LevelForPoints(0),
	}
	if createErr := s.progressRepo.Create(ctx, progress); createErr != nil {
		// Lost a creation race; the winner's record is authoritative.
		if existing, getErr := s.progressRepo.GetByUserID(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	return progress, nil
}

func applyMilestone(progress *models.UserProgress, state *models.MilestoneState) {
	for i := range progress.Milestones {
		if progress.Milestones[i].RuleID == state.RuleID {
			progress.Milestones[i] = *state
			return
		}
	}
	progress.Milestones = append(progress.Milestones, *state)
}

func applyStreak(progress *models.UserProgress, state *models.StreakState) {
	for i := range progress.Streaks {
		if progress.Streaks[i].Type == state.Type {
			progress.Streaks[i] = *state
			return
		}
	}
	progress.Streaks = append(progress.Streaks, *state)
}

func mergeDetails(eventData map[string]interface{}, badgeID string) map[string]interface{} {
	details := make(map[string]interface{}, len(eventData)+1)
	for k, v := range eventData {
		details[k] = v
	}
	if badgeID != "" {
		details["badgeId"] = badgeID
	}
	return details
}

// GetUserProfile returns the read-only profile projection. Users without a
// progress record get the empty baseline rather than an error; the record
// itself is only created when the first event arrives.
func (s *gamificationService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfileResponse, error) {
	now := s.now()

	progress, err := s.progressRepo.GetByUserID(ctx, userID)
	if errors.Is(err, models.ErrProgressNotFound) {
		progress = &models.UserProgress{UserID: userID, Points: 0, Level: models.LevelForPoints(0)}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	// Join badge definitions for display
	badgeIDs := make([]string, 0, len(progress.Badges))
	for _, b := range progress.Badges {
		badgeIDs = append(badgeIDs, b.BadgeID)
	}
	badgeDefs, err := s.badgeRepo.GetByIDs(ctx, badgeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge definitions: %w", err)
	}
	badges := make([]models.UserBadge, len(progress.Badges))
	copy(badges, progress.Badges)
	for i := range badges {
		badges[i].Badge = badgeDefs[badges[i].BadgeID]
	}

	campaigns, err := s.campaignRepo.ListActive(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load active campaigns: %w", err)
	}
	activeCampaigns := make([]models.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		activeCampaigns = append(activeCampaigns, *c)
	}

	streaks := progress.Streaks
	if streaks == nil {
		streaks = []models.StreakState{}
	}
	milestones := progress.Milestones
	if milestones == nil {
		milestones = []models.MilestoneState{}
	}

	return &models.UserProfileResponse{
		UserID:            userID,
		Points:            progress.Points,
		Level:             progress.Level,
		NextLevelProgress: progress.Points % models.PointsPerLevel,
		Badges:            badges,
		Streaks:           streaks,
		Milestones:        milestones,
		ActiveCampaigns:   activeCampaigns,
	}, nil
}

// GetLeaderboard ranks users by (points desc, level desc). The daily,
// weekly and monthly views filter by progress-record creation time, not by
// recent activity.
func (s *gamificationService) GetLeaderboard(ctx context.Context, timeframe string, limit int) (*models.LeaderboardResponse, error) {
	tf, err := utils.ValidateTimeframe(timeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timeframe %q", models.ErrInvalidInput, timeframe)
	}
	if limit <= 0 || limit > s.lbMaxLimit {
		limit = 20
	}

	if s.lbCache != nil {
		if cached, ok := s.lbCache.Get(ctx, tf, limit); ok {
			return cached, nil
		}
	}

	now := s.now()
	var since *time.Time
	switch tf {
	case "daily":
		t := now.AddDate(0, 0, -1)
		since = &t
	case "weekly":
		t := now.AddDate(0, 0, -7)
		since = &t
	case "monthly":
		t := now.AddDate(0, -1, 0)
		since = &t
	}

	entries, total, err := s.progressRepo.Leaderboard(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	usernames, err := s.userRepo.GetUsernames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve usernames: %w", err)
	}
	for i := range entries {
		entries[i].Username = usernames[entries[i].UserID]
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}

	resp := &models.LeaderboardResponse{
		Timeframe: tf,
		Entries:   entries,
		Total:     total,
	}
	if s.lbCache != nil {
		s.lbCache.Set(ctx, tf, limit, resp)
	}
	return resp, nil
}

// AwardBadge grants a badge outside the rule pipeline (admin or coupon
// driven). Idempotent: granting an already-held badge is a no-op.
func (s *gamificationService) AwardBadge(ctx context.Context, userID, badgeID, reason string) error {
	badge, err := s.badgeRepo.GetByID(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("badge %s: %w", badgeID, models.ErrBadgeNotFound)
	}
	if !badge.IsActive {
		return fmt.Errorf("badge %s is inactive: %w", badgeID, models.ErrBadgeNotFound)
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return fmt.Errorf("user %s: %w", userID, models.ErrUserNotFound)
	}

	var lastErr error
	for attempt := 0; attempt < s.saveRetries; attempt++ {
		progress, err := s.loadOrCreateProgress(ctx, userID)
		if err != nil {
			return err
		}
		if progress.HasBadge(badgeID) {
			return nil
		}

		now := s.now()
		progress.Badges = append(progress.Badges, models.UserBadge{
			BadgeID:  badgeID,
			EarnedAt: now,
			Reason:   reason,
		})
		event := &models.ProgressEvent{
			ID:        uuid.New().String(),
			UserID:    userID,
			EventType: "badge_awarded",
			Points:    0,
			Details:   map[string]interface{}{"badgeId": badgeID, "reason": reason},
			CreatedAt: now,
		}

		err = s.progressRepo.SaveWithEvents(ctx, progress, []*models.ProgressEvent{event})
		if err == nil {
			logger.Infof("badge %s awarded to user %s (%s)", badgeID, userID, reason)
			return nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("failed to award badge after %d attempts: %w", s.saveRetries, lastErr)
}

// RedeemPoints is the one sanctioned points decrement. Level is recomputed
// from the reduced total, so it can drop.
func (s *gamificationService) RedeemPoints(ctx context.Context, userID string, points int, reason string) (*models.EventResult, error) {
	if points <= 0 {
		return nil, fmt.Errorf("%w: redemption amount must be positive", models.ErrInvalidInput)
	}

	var lastErr error
	for attempt := 0; attempt < s.saveRetries; attempt++ {
		progress, err := s.progressRepo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if progress.Points < points {
			return nil, fmt.Errorf("%w: have %d, want %d", models.ErrInsufficientPoints, progress.Points, points)
		}

		now := s.now()
		progress.Points -= points
		progress.Level = models.LevelForPoints(progress.Points)
		event := &models.ProgressEvent{
			ID:        uuid.New().String(),
			UserID:    userID,
			EventType: "points_redeemed",
			Points:    -points,
			Details:   map[string]interface{}{"reason": reason},
			CreatedAt: now,
		}

		err = s.progressRepo.SaveWithEvents(ctx, progress, []*models.ProgressEvent{event})
		if err == nil {
			if s.lbCache != nil {
				s.lbCache.Invalidate(ctx)
			}
			return &models.EventResult{
				Points:       -points,
				Badges:       []models.BadgeGrant{},
				Milestones:   []models.MilestoneResult{},
				CurrentLevel: progress.Level,
			}, nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to redeem points after %d attempts: %w", s.saveRetries, lastErr)
}

// GetEventHistory returns a page of the user's history log, newest first
func (s *gamificationService) GetEventHistory(ctx context.Context, userID string, limit, offset int) (*models.PaginatedResponse[*models.ProgressEvent], error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	events, total, err := s.progressRepo.ListEvents(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load event history: %w", err)
	}
	if events == nil {
		events = []*models.ProgressEvent{}
	}

	return &models.PaginatedResponse[*models.ProgressEvent]{
		Data: events,
		Meta: models.NewPaginationMeta(total, limit, offset),
	}, nil
}
