package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"wanderhub/internal/repository"
	"wanderhub/pkg/models"
)

// AdminService manages the rule, badge and campaign catalogs. All writes
// to the catalogs flow through here; the engine itself only reads them.
type AdminService interface {
	CreateRule(ctx context.Context, rule *models.Rule) error
	UpdateRule(ctx context.Context, rule *models.Rule) error
	DeleteRule(ctx context.Context, id string) error
	GetRule(ctx context.Context, id string) (*models.Rule, error)
	ListRules(ctx context.Context, limit, offset int) (*models.PaginatedResponse[*models.Rule], error)

	CreateBadge(ctx context.Context, badge *models.Badge) error
	UpdateBadge(ctx context.Context, badge *models.Badge) error
	DeleteBadge(ctx context.Context, id string) error
	ListBadges(ctx context.Context, limit, offset int) (*models.PaginatedResponse[*models.Badge], error)

	CreateCampaign(ctx context.Context, campaign *models.Campaign) error
	UpdateCampaign(ctx context.Context, campaign *models.Campaign) error
	DeleteCampaign(ctx context.Context, id string) error
	ListCampaigns(ctx context.Context, limit, offset int) (*models.PaginatedResponse[*models.Campaign], error)
}

type adminService struct {
	ruleRepo     repository.RuleRepository
	badgeRepo    repository.BadgeRepository
	campaignRepo repository.CampaignRepository
}

// NewAdminService creates a new catalog management service
func NewAdminService(
	ruleRepo repository.RuleRepository,
	badgeRepo repository.BadgeRepository,
	campaignRepo repository.CampaignRepository,
) AdminService {
	return &adminService{
		ruleRepo:     ruleRepo,
		badgeRepo:    badgeRepo,
		campaignRepo: campaignRepo,
	}
}

// CreateRule validates and stores a new rule
func (s *adminService) CreateRule(ctx context.Context, rule *models.Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if rule.Rewards.BadgeID != "" {
		if _, err := s.badgeRepo.GetByID(ctx, rule.Rewards.BadgeID); err != nil {
			return fmt.Errorf("reward badge %s: %w", rule.Rewards.BadgeID, models.ErrBadgeNotFound)
		}
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	return s.ruleRepo.Create(ctx, rule)
}

// UpdateRule validates and replaces an existing rule
func (s *adminService) UpdateRule(ctx context.Context, rule *models.Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", models.ErrInvalidInput)
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if rule.Rewards.BadgeID != "" {
		if _, err := s.badgeRepo.GetByID(ctx, rule.Rewards.BadgeID); err != nil {
			return fmt.Errorf("reward badge %s: %w", rule.Rewards.BadgeID, models.ErrBadgeNotFound)
		}
	}
	return s.ruleRepo.Update(ctx, rule)
}

// DeleteRule removes a rule from the catalog
func (s *adminService) DeleteRule(ctx context.Context, id string) error {
	return s.ruleRepo.Delete(ctx, id)
}

// GetRule fetches one rule
func (s *adminService) GetRule(ctx context.Context, id string) (*models.Rule, error) {
	return s.ruleRepo.GetByID(ctx, id)
}

// ListRules returns a page of the rule catalog
func (s *adminService) ListRules(ctx context.Context, limit, offset int) (*models.PaginatedResponse[*models.Rule], error) {
	limit, offset = clampPage(limit, offset)
	rules, total, err := s.ruleRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	if rules == nil {
		rules = []*models.Rule{}
	}
	return &models.PaginatedResponse[*models.Rule]{
		Data: rules,
		Meta: models.NewPaginationMeta(total, limit, offset),
	}, nil
}

// CreateBadge stores a new badge definition
func (s *adminService) CreateBadge(ctx context.Context, badge *models.Badge) error {
	if badge.Name == "" {
		return fmt.Errorf("%w: badge name is required", models.ErrInvalidInput)
	}
	if badge.ID == "" {
		badge.ID = uuid.New().String()
	}
	return s.badgeRepo.Create(ctx, badge)
}

// UpdateBadge replaces a badge definition
func (s *adminService) UpdateBadge(ctx context.Context, badge *models.Badge) error {
	if badge.ID == "" || badge.Name == "" {
		return fmt.Errorf("%w: badge id and name are required", models.ErrInvalidInput)
	}
	return s.badgeRepo.Update(ctx, badge)
}

// DeleteBadge removes a badge definition
func (s *adminService) DeleteBadge(ctx context.Context, id string) error {
	return s.badgeRepo.Delete(ctx, id)
}

// ListBadges returns a page of the badge catalog
func (s *adminService) ListBadges(ctx context.Context, limit, offset int) (*models.PaginatedResponse[*models.Badge], error) {
	limit, offset = clampPage(limit, offset)
	badges, total, err := s.badgeRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	if badges == nil {
		badges = []*models.Badge{}
	}
	return &models.PaginatedResponse[*models.Badge]{
		Data: badges,
		Meta: models.NewPaginationMeta(total, limit, offset),
	}, nil
}

// CreateCampaign validates rule references and stores a new campaign
func (s *adminService) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	if err := campaign.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	for _, ruleID := range campaign.RuleIDs {
		if _, err := s.ruleRepo.GetByID(ctx, ruleID); err != nil {
			return fmt.Errorf("campaign references rule %s: %w", ruleID, models.ErrRuleNotFound)
		}
	}
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	return s.campaignRepo.Create(ctx, campaign)
}

// UpdateCampaign validates rule references and replaces a campaign
func (s *adminService) UpdateCampaign(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID == "" {
		return fmt.Errorf("%w: campaign id is required", models.ErrInvalidInput)
	}
	if err := campaign.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	for _, ruleID := range campaign.RuleIDs {
		if _, err := s.ruleRepo.GetByID(ctx, ruleID); err != nil {
			return fmt.Errorf("campaign references rule %s: %w", ruleID, models.ErrRuleNotFound)
		}
	}
	return s.campaignRepo.Update(ctx, campaign)
}

// DeleteCampaign removes a campaign
func (s *adminService) DeleteCampaign(ctx context.Context, id string) error {
	return s.campaignRepo.Delete(ctx, id)
}

// ListCampaigns returns a page of the campaign catalog
func (s *adminService) ListCampaigns(ctx context.Context, limit, offset int) (*models.PaginatedResponse[*models.Campaign], error) {
	limit, offset = clampPage(limit, offset)
	campaigns, total, err := s.campaignRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	if campaigns == nil {
		campaigns = []*models.Campaign{}
	}
	return &models.PaginatedResponse[*models.Campaign]{
		Data: campaigns,
		Meta: models.NewPaginationMeta(total, limit, offset),
	}, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
