package redis

import (
	"context"
	"time"

	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

// TTLLeaderboard is the default lifetime of a cached group leaderboard.
const TTLLeaderboard = 10 * time.Minute

// LeaderboardCache implements leaderboard.Cache. A leaderboard is cached as
// one JSON document per group and dropped after every refresh.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a leaderboard cache. ttl <= 0 uses TTLLeaderboard.
func NewLeaderboardCache(cache *Cache, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = TTLLeaderboard
	}
	return &LeaderboardCache{cache: cache, ttl: ttl}
}

var _ leaderboard.Cache = (*LeaderboardCache)(nil)

func leaderboardKey(groupID shared.GroupID) string {
	return "leaderboard:" + groupID.String()
}

// GetLeaderboard returns the cached leaderboard or ErrCacheMiss.
func (c *LeaderboardCache) GetLeaderboard(ctx context.Context, groupID shared.GroupID) ([]leaderboard.Entry, error) {
	var entries []leaderboard.Entry
	if err := c.cache.GetJSON(ctx, leaderboardKey(groupID), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetLeaderboard caches a built leaderboard.
func (c *LeaderboardCache) SetLeaderboard(ctx context.Context, groupID shared.GroupID, entries []leaderboard.Entry) error {
	return c.cache.SetJSON(ctx, leaderboardKey(groupID), entries, c.ttl)
}

// Invalidate drops cached leaderboards of the given groups.
func (c *LeaderboardCache) Invalidate(ctx context.Context, groupIDs ...shared.GroupID) error {
	keys := make([]string, len(groupIDs))
	for i, id := range groupIDs {
		keys[i] = leaderboardKey(id)
	}
	return c.cache.Delete(ctx, keys...)
}
