package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"wanderhub/pkg/models"
)

// In-memory repository fakes. They mirror the PostgreSQL repositories'
// observable behavior, including version-conflict semantics on the
// progress record.

type fakeProgressRepo struct {
	progress map[string]*models.UserProgress
	events   []*models.ProgressEvent

	// failSaves forces the next N SaveWithEvents calls to report a
	// version conflict, for retry-path tests.
	failSaves int
	saveCalls int
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{progress: map[string]*models.UserProgress{}}
}

func copyProgress(p *models.UserProgress) *models.UserProgress {
	cp := *p
	cp.Badges = append([]models.UserBadge(nil), p.Badges...)
	cp.Streaks = append([]models.StreakState(nil), p.Streaks...)
	cp.Milestones = append([]models.MilestoneState(nil), p.Milestones...)
	return &cp
}

func (f *fakeProgressRepo) GetByUserID(ctx context.Context, userID string) (*models.UserProgress, error) {
	p, ok := f.progress[userID]
	if !ok {
		return nil, fmt.Errorf("progress for user %s: %w", userID, models.ErrProgressNotFound)
	}
	return copyProgress(p), nil
}

func (f *fakeProgressRepo) Create(ctx context.Context, progress *models.UserProgress) error {
	if _, ok := f.progress[progress.UserID]; ok {
		return models.NewHTTPError(models.ErrCodeConflict, "resource already exists", 409, nil)
	}
	progress.Version = 1
	progress.CreatedAt = time.Now()
	progress.UpdatedAt = progress.CreatedAt
	f.progress[progress.UserID] = copyProgress(progress)
	return nil
}

func (f *fakeProgressRepo) SaveWithEvents(ctx context.Context, progress *models.UserProgress, events []*models.ProgressEvent) error {
	f.saveCalls++
	if f.failSaves > 0 {
		f.failSaves--
		return fmt.Errorf("save progress: %w", models.ErrVersionConflict)
	}

	stored, ok := f.progress[progress.UserID]
	if !ok || stored.Version != progress.Version {
		return fmt.Errorf("save progress: %w", models.ErrVersionConflict)
	}

	progress.Version++
	progress.UpdatedAt = time.Now()
	f.progress[progress.UserID] = copyProgress(progress)
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeProgressRepo) CountRuleTriggers(ctx context.Context, userID, ruleID, eventType string) (int, error) {
	count := 0
	for _, e := range f.events {
		if e.UserID == userID && e.EventType == eventType && e.RuleID != nil && *e.RuleID == ruleID {
			count++
		}
	}
	return count, nil
}

func (f *fakeProgressRepo) DistinctContentTypes(ctx context.Context, userID, eventType string) ([]string, error) {
	seen := map[string]bool{}
	var types []string
	for _, e := range f.events {
		if e.UserID != userID || e.EventType != eventType {
			continue
		}
		if ct, ok := e.Details["contentType"].(string); ok && !seen[ct] {
			seen[ct] = true
			types = append(types, ct)
		}
	}
	return types, nil
}

func (f *fakeProgressRepo) ListEvents(ctx context.Context, userID string, limit, offset int) ([]*models.ProgressEvent, int, error) {
	var all []*models.ProgressEvent
	for _, e := range f.events {
		if e.UserID == userID {
			all = append(all, e)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeProgressRepo) Leaderboard(ctx context.Context, since *time.Time, limit int) ([]models.LeaderboardEntry, int, error) {
	var entries []models.LeaderboardEntry
	for _, p := range f.progress {
		if since != nil && p.CreatedAt.Before(*since) {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID: p.UserID,
			Points: p.Points,
			Level:  p.Level,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		if entries[i].Level != entries[j].Level {
			return entries[i].Level > entries[j].Level
		}
		return entries[i].UserID < entries[j].UserID
	})
	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, total, nil
}

func (f *fakeProgressRepo) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeRuleRepo struct {
	rules []*models.Rule
}

func (f *fakeRuleRepo) Create(ctx context.Context, rule *models.Rule) error {
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeRuleRepo) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	for _, r := range f.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, models.NewHTTPError(models.ErrCodeNotFound, "rule not found", 404, nil)
}

func (f *fakeRuleRepo) Update(ctx context.Context, rule *models.Rule) error {
	for i, r := range f.rules {
		if r.ID == rule.ID {
			f.rules[i] = rule
			return nil
		}
	}
	return models.NewHTTPError(models.ErrCodeNotFound, "rule not found", 404, nil)
}

func (f *fakeRuleRepo) Delete(ctx context.Context, id string) error {
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return models.NewHTTPError(models.ErrCodeNotFound, "rule not found", 404, nil)
}

func (f *fakeRuleRepo) List(ctx context.Context, limit, offset int) ([]*models.Rule, int, error) {
	return f.rules, len(f.rules), nil
}

func (f *fakeRuleRepo) ListActiveByTrigger(ctx context.Context, triggerEvent string, now time.Time) ([]*models.Rule, error) {
	var matched []*models.Rule
	for _, r := range f.rules {
		if r.TriggerEvent == triggerEvent && r.ActiveAt(now) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

type fakeBadgeRepo struct {
	badges map[string]*models.Badge
}

func newFakeBadgeRepo(badges ...*models.Badge) *fakeBadgeRepo {
	f := &fakeBadgeRepo{badges: map[string]*models.Badge{}}
	for _, b := range badges {
		f.badges[b.ID] = b
	}
	return f
}

func (f *fakeBadgeRepo) Create(ctx context.Context, badge *models.Badge) error {
	f.badges[badge.ID] = badge
	return nil
}

func (f *fakeBadgeRepo) GetByID(ctx context.Context, id string) (*models.Badge, error) {
	if b, ok := f.badges[id]; ok {
		return b, nil
	}
	return nil, models.NewHTTPError(models.ErrCodeNotFound, "badge not found", 404, nil)
}

func (f *fakeBadgeRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Badge, error) {
	result := map[string]*models.Badge{}
	for _, id := range ids {
		if b, ok := f.badges[id]; ok {
			result[id] = b
		}
	}
	return result, nil
}

func (f *fakeBadgeRepo) Update(ctx context.Context, badge *models.Badge) error {
	if _, ok := f.badges[badge.ID]; !ok {
		return models.NewHTTPError(models.ErrCodeNotFound, "badge not found", 404, nil)
	}
	f.badges[badge.ID] = badge
	return nil
}

func (f *fakeBadgeRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.badges[id]; !ok {
		return models.NewHTTPError(models.ErrCodeNotFound, "badge not found", 404, nil)
	}
	delete(f.badges, id)
	return nil
}

func (f *fakeBadgeRepo) List(ctx context.Context, limit, offset int) ([]*models.Badge, int, error) {
	var badges []*models.Badge
	for _, b := range f.badges {
		badges = append(badges, b)
	}
	return badges, len(badges), nil
}

type fakeCampaignRepo struct {
	campaigns []*models.Campaign
}

func (f *fakeCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	f.campaigns = append(f.campaigns, campaign)
	return nil
}

func (f *fakeCampaignRepo) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	for _, c := range f.campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, models.NewHTTPError(models.ErrCodeNotFound, "campaign not found", 404, nil)
}

func (f *fakeCampaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	for i, c := range f.campaigns {
		if c.ID == campaign.ID {
			f.campaigns[i] = campaign
			return nil
		}
	}
	return models.NewHTTPError(models.ErrCodeNotFound, "campaign not found", 404, nil)
}

func (f *fakeCampaignRepo) Delete(ctx context.Context, id string) error {
	for i, c := range f.campaigns {
		if c.ID == id {
			f.campaigns = append(f.campaigns[:i], f.campaigns[i+1:]...)
			return nil
		}
	}
	return models.NewHTTPError(models.ErrCodeNotFound, "campaign not found", 404, nil)
}

func (f *fakeCampaignRepo) List(ctx context.Context, limit, offset int) ([]*models.Campaign, int, error) {
	return f.campaigns, len(f.campaigns), nil
}

func (f *fakeCampaignRepo) ExistsActiveForRule(ctx context.Context, ruleID string, now time.Time) (bool, error) {
	for _, c := range f.campaigns {
		if !c.ActiveAt(now) {
			continue
		}
		for _, id := range c.RuleIDs {
			if id == ruleID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeCampaignRepo) ListActive(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	var active []*models.Campaign
	for _, c := range f.campaigns {
		if c.ActiveAt(now) {
			active = append(active, c)
		}
	}
	return active, nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, models.NewHTTPError(models.ErrCodeNotFound, "user not found", 404, nil)
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.NewHTTPError(models.ErrCodeNotFound, "user not found", 404, nil)
}

func (f *fakeUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	return err == nil, nil
}

func (f *fakeUserRepo) GetUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	result := map[string]string{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			result[id] = u.Username
		}
	}
	return result, nil
}
