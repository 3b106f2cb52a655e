package command

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeclub/leetboard/internal/domain/group"
	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/internal/infrastructure/persistence/memory"
	"github.com/codeclub/leetboard/pkg/batch"
	"github.com/codeclub/leetboard/pkg/logger"
	"github.com/codeclub/leetboard/pkg/timeutil"
)

func newSnapshotHandler(store *memory.Store) *BuildSnapshotsHandler {
	return NewBuildSnapshotsHandler(store, store, store,
		DefaultBuildSnapshotsHandlerConfig(),
		logger.Discard(),
		WithSnapshotClock(clock),
	)
}

// seedGroup creates a group with the given members and returns it.
func seedGroup(t *testing.T, store *memory.Store, name string, usernames ...string) (group.Group, map[string]profile.Profile) {
	t.Helper()
	id := store.AddGroup(name)
	profiles := make(map[string]profile.Profile, len(usernames))
	for _, u := range usernames {
		p := seedProfile(store, u)
		require.NoError(t, store.AddMember(id, p.ID))
		profiles[u] = p
	}
	g, err := store.GetGroup(context.Background(), id)
	require.NoError(t, err)
	return *g, profiles
}

func stats(total, ranking int) profile.Stats {
	return profile.Stats{TotalSolved: total, EasySolved: total, Ranking: ranking}
}

func TestRefreshThenSnapshot_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	source := newFakeSource()

	g, members := seedGroup(t, store, "cohort", "alice", "bob", "carol", "dave", "erin")

	// a week of history for three members
	seedSample(store, members["alice"], 7, stats(100, 200_000))
	seedSample(store, members["bob"], 7, stats(50, 300_000))
	seedSample(store, members["carol"], 7, stats(30, 400_000))
	source.stats["alice"] = stats(105, 190_000)
	source.stats["bob"] = stats(62, 250_000)
	source.stats["carol"] = stats(30, 400_000)

	var tracked []profile.Profile
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin"} {
		tracked = append(tracked, members[name])
	}
	refreshed := newRefreshHandler(source, store).Handle(ctx, tracked)
	assert.Equal(t, RefreshSummary{Total: 5, Succeeded: 3, Failed: 2}, Summary(refreshed))

	results := newSnapshotHandler(store).Handle(ctx, []group.Group{g})
	require.Len(t, results, 1)
	require.Equal(t, batch.StatusSucceeded, results[0].Status, results[0].Reason)

	snap, err := store.GetSnapshot(ctx, g.ID, now)
	require.NoError(t, err)
	assert.Equal(t, timeutil.Day(now), snap.Date)
	assert.Equal(t, leaderboard.PayloadVersion, snap.Payload.Version)

	board := snap.Payload.Leaderboard
	require.Len(t, board, 5)
	var order []shared.Username
	for _, e := range board {
		order = append(order, e.Username)
	}
	assert.Equal(t, []shared.Username{"alice", "bob", "carol", "dave", "erin"}, order)
	assert.Nil(t, board[3].LastUpdated)
	assert.Equal(t, leaderboard.UnrankedSentinel, board[4].Ranking)

	want := []leaderboard.GainerEntry{
		{Username: "bob", ProblemsGained: 12, RankImproved: 50_000, CurrentSolved: 62, CurrentRank: 250_000},
		{Username: "alice", ProblemsGained: 5, RankImproved: 10_000, CurrentSolved: 105, CurrentRank: 190_000},
	}
	if diff := cmp.Diff(want, snap.Payload.Gainers); diff != "" {
		t.Errorf("gainers mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSnapshots_SkipsSmallGroups(t *testing.T) {
	store := memory.NewStore()
	small, _ := seedGroup(t, store, "small", "a_1", "a_2", "a_3", "a_4")

	results := newSnapshotHandler(store).Handle(context.Background(), []group.Group{small})

	require.Len(t, results, 1)
	assert.Equal(t, batch.StatusSkipped, results[0].Status)
	assert.Equal(t, ReasonTooFewMembers, results[0].Reason)
	assert.Zero(t, store.SnapshotCount())
}

func TestBuildSnapshots_NoHistoryMeansNilGainers(t *testing.T) {
	store := memory.NewStore()
	g, members := seedGroup(t, store, "fresh", "m_1", "m_2", "m_3", "m_4", "m_5")
	for _, p := range members {
		seedSample(store, p, 0, stats(10, 1_000_000))
	}

	results := newSnapshotHandler(store).Handle(context.Background(), []group.Group{g})
	require.Equal(t, batch.StatusSucceeded, results[0].Status)
	assert.Nil(t, results[0].Snapshot.Payload.Gainers)
	assert.Len(t, results[0].Snapshot.Payload.Leaderboard, 5)
}

func TestBuildSnapshots_HistoryWithoutProgressIsEmptyNotNil(t *testing.T) {
	store := memory.NewStore()
	g, members := seedGroup(t, store, "idle", "m_1", "m_2", "m_3", "m_4", "m_5")
	for _, p := range members {
		seedSample(store, p, 3, stats(10, 1_000_000))
		seedSample(store, p, 0, stats(10, 1_000_000))
	}

	results := newSnapshotHandler(store).Handle(context.Background(), []group.Group{g})
	require.Equal(t, batch.StatusSucceeded, results[0].Status)
	assert.NotNil(t, results[0].Snapshot.Payload.Gainers)
	assert.Empty(t, results[0].Snapshot.Payload.Gainers)
}

func TestBuildSnapshots_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	g, members := seedGroup(t, store, "cohort", "m_1", "m_2", "m_3", "m_4", "m_5")
	for _, p := range members {
		seedSample(store, p, 0, stats(5, 2_000_000))
	}
	h := newSnapshotHandler(store)

	first := h.Handle(ctx, []group.Group{g})
	second := h.Handle(ctx, []group.Group{g})

	assert.Equal(t, batch.StatusSucceeded, first[0].Status)
	assert.Equal(t, batch.StatusSucceeded, second[0].Status)
	assert.Equal(t, 1, store.SnapshotCount())
}

func TestBuildSnapshots_UnknownGroupFailsAlone(t *testing.T) {
	store := memory.NewStore()
	good, members := seedGroup(t, store, "cohort", "m_1", "m_2", "m_3", "m_4", "m_5")
	for _, p := range members {
		seedSample(store, p, 0, stats(5, 2_000_000))
	}
	ghost := group.Group{ID: "00000000-0000-0000-0000-000000000000", Name: "ghost"}

	results := newSnapshotHandler(store).Handle(context.Background(), []group.Group{ghost, good})

	assert.Equal(t, batch.StatusFailed, results[0].Status)
	assert.Equal(t, ReasonMembers, results[0].Reason)
	assert.ErrorIs(t, results[0].Err, shared.ErrGroupNotFound)
	assert.Equal(t, batch.StatusSucceeded, results[1].Status)
	assert.Equal(t, SnapshotSummary{Total: 2, Succeeded: 1, Failed: 1}, SummarizeSnapshots(results))
}
