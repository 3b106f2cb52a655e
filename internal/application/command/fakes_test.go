package command

import (
	"context"
	"sync"
	"time"

	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/internal/infrastructure/persistence/memory"
	"github.com/codeclub/leetboard/pkg/timeutil"
)

// now is the fixed "today" of every test in this package.
var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

var clock = timeutil.Fixed(now)

type fakeSource struct {
	mu       sync.Mutex
	stats    map[string]profile.Stats
	failures map[string]profile.FailureReason
	calls    map[string]int

	validateErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		stats:    map[string]profile.Stats{},
		failures: map[string]profile.FailureReason{},
		calls:    map[string]int{},
	}
}

func (f *fakeSource) Fetch(_ context.Context, username string) profile.FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[username]++

	if reason, ok := f.failures[username]; ok {
		return profile.FetchResult{
			Username: username,
			Outcome:  profile.OutcomeFailed,
			Reason:   reason,
			Err:      shared.ErrLeetCodeTimeout,
		}
	}
	stats, ok := f.stats[username]
	if !ok {
		return profile.FetchResult{Username: username, Outcome: profile.OutcomeNotFound}
	}
	return profile.FetchResult{Username: username, Outcome: profile.OutcomeFound, Stats: stats}
}

func (f *fakeSource) Validate(ctx context.Context, username string) (*profile.Stats, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	res := f.Fetch(ctx, username)
	if res.Outcome == profile.OutcomeNotFound {
		return nil, shared.ErrProfileNotFound
	}
	return &res.Stats, nil
}

func (f *fakeSource) callCount(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[username]
}

type fakeCache struct {
	mu          sync.Mutex
	invalidated []shared.GroupID
}

func (c *fakeCache) GetLeaderboard(context.Context, shared.GroupID) ([]leaderboard.Entry, error) {
	return nil, nil
}

func (c *fakeCache) SetLeaderboard(context.Context, shared.GroupID, []leaderboard.Entry) error {
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...shared.GroupID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, ids...)
	return nil
}

// seedProfile registers username in store and returns its profile.
func seedProfile(store *memory.Store, username string) profile.Profile {
	p, err := store.Ensure(context.Background(), shared.Username(username))
	if err != nil {
		panic(err)
	}
	return *p
}

// seedSample stores a sample taken daysAgo days before now.
func seedSample(store *memory.Store, p profile.Profile, daysAgo int, stats profile.Stats) {
	sample := profile.NewStatSample(p.ID, stats, leaderboard.RoundedRankingPoints(stats), now.AddDate(0, 0, -daysAgo))
	if err := store.UpsertSample(context.Background(), sample); err != nil {
		panic(err)
	}
}
