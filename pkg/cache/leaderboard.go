// Package cache provides a Redis read-through cache for leaderboard pages.
// The leaderboard query scans and sorts the whole progress table, so pages
// are cached under a short TTL; a nil client disables caching entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wanderhub/pkg/logger"
	"wanderhub/pkg/models"
	"wanderhub/pkg/utils"
)

// LeaderboardCache caches leaderboard responses keyed by timeframe and limit
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaderboardCache creates a leaderboard cache. client may be nil, in
// which case Get always misses and Set is a no-op.
func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LeaderboardCache{client: client, ttl: ttl}
}

func leaderboardKey(timeframe string, limit int) string {
	return fmt.Sprintf("leaderboard:%s:%d", timeframe, limit)
}

// Get returns a cached leaderboard page, or (nil, false) on miss
func (c *LeaderboardCache) Get(ctx context.Context, timeframe string, limit int) (*models.LeaderboardResponse, bool) {
	if c.client == nil {
		return nil, false
	}
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	data, err := c.client.Get(ctx, leaderboardKey(timeframe, limit)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("leaderboard cache read failed: %v", err)
		}
		return nil, false
	}

	resp := &models.LeaderboardResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		logger.Warnf("leaderboard cache entry corrupt, dropping: %v", err)
		c.client.Del(ctx, leaderboardKey(timeframe, limit))
		return nil, false
	}
	return resp, true
}

// Set stores a leaderboard page under the cache TTL
func (c *LeaderboardCache) Set(ctx context.Context, timeframe string, limit int, resp *models.LeaderboardResponse) {
	if c.client == nil || resp == nil {
		return
	}
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(resp)
	if err != nil {
		logger.Warnf("leaderboard cache marshal failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, leaderboardKey(timeframe, limit), data, c.ttl).Err(); err != nil {
		logger.Warnf("leaderboard cache write failed: %v", err)
	}
}

// Invalidate drops all cached leaderboard pages. Called after manual badge
// awards and redemptions so admin actions show up promptly.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	iter := c.client.Scan(ctx, 0, "leaderboard:*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warnf("leaderboard cache invalidation failed: %v", err)
	}
}
