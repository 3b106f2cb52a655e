package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLeaderboardKey(t *testing.T) {
	c := &Cache{prefix: DefaultConfig().KeyPrefix}
	assert.Equal(t, "leetboard:leaderboard:g-1", c.Key(leaderboardKey("g-1")))
}

func TestNewLeaderboardCache_DefaultTTL(t *testing.T) {
	lc := NewLeaderboardCache(&Cache{}, 0)
	assert.Equal(t, TTLLeaderboard, lc.ttl)

	lc = NewLeaderboardCache(&Cache{}, time.Minute)
	assert.Equal(t, time.Minute, lc.ttl)
}

func TestConfig_Addr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "cache.internal"
	assert.Equal(t, "cache.internal:6379", cfg.Addr())
}
