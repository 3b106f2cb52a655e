package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

var today = time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)

func TestStore_UpsertSampleOverwritesSameDay(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p, err := s.Ensure(ctx, "alice")
	require.NoError(t, err)

	first := profile.NewStatSample(p.ID, profile.Stats{TotalSolved: 10, Ranking: 1000}, 100, today.Add(time.Hour))
	second := profile.NewStatSample(p.ID, profile.Stats{TotalSolved: 12, Ranking: 900}, 120, today.Add(5*time.Hour))
	require.NoError(t, s.UpsertSample(ctx, first))
	require.NoError(t, s.UpsertSample(ctx, second))

	latest, err := s.LatestSamples(ctx, []shared.ProfileID{p.ID})
	require.NoError(t, err)
	require.Contains(t, latest, p.ID)
	assert.Equal(t, 12, latest[p.ID].TotalSolved)

	inRange, err := s.SamplesInRange(ctx, []shared.ProfileID{p.ID}, today, today)
	require.NoError(t, err)
	assert.Len(t, inRange[p.ID], 1)
}

func TestStore_SamplesInRangeInclusiveAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p, _ := s.Ensure(ctx, "bob")

	for _, d := range []int{8, 7, 3, 0} {
		sample := profile.NewStatSample(p.ID, profile.Stats{TotalSolved: 100 - d, Ranking: 10}, 0, today.AddDate(0, 0, -d))
		require.NoError(t, s.UpsertSample(ctx, sample))
	}

	got, err := s.SamplesInRange(ctx, []shared.ProfileID{p.ID}, today.AddDate(0, 0, -7), today)
	require.NoError(t, err)
	require.Len(t, got[p.ID], 3)
	assert.Equal(t, today.AddDate(0, 0, -7), got[p.ID][0].Date)
	assert.Equal(t, today, got[p.ID][2].Date)
}

func TestStore_ListStaleAndHasSample(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	fresh, _ := s.Ensure(ctx, "fresh")
	_, _ = s.Ensure(ctx, "stale")

	require.NoError(t, s.UpsertSample(ctx, profile.NewStatSample(fresh.ID, profile.DefaultStats(), 0, today)))

	stale, err := s.ListStale(ctx, today)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, shared.Username("stale"), stale[0].Username)

	ok, err := s.HasSample(ctx, fresh.ID, today.Add(23*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_DeleteOrphans(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	member, _ := s.Ensure(ctx, "member")
	_, _ = s.Ensure(ctx, "orphan")
	g := s.AddGroup("club")
	require.NoError(t, s.AddMember(g, member.ID))

	n, err := s.DeleteOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetByUsername(ctx, "orphan")
	assert.True(t, shared.IsNotFound(err))

	groups, err := s.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].MemberCount)
}

func TestStore_UpsertSnapshotIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	g := s.AddGroup("club")

	entries := leaderboard.Build([]leaderboard.MemberStats{{Username: "alice"}})
	snap, err := leaderboard.NewSnapshot(g, today.Add(9*time.Hour), entries, nil)
	require.NoError(t, err)

	require.NoError(t, s.UpsertSnapshot(ctx, *snap))
	require.NoError(t, s.UpsertSnapshot(ctx, *snap))
	assert.Equal(t, 1, s.SnapshotCount())

	got, err := s.GetSnapshot(ctx, g, today)
	require.NoError(t, err)
	assert.Equal(t, snap.Payload, got.Payload)

	// rewriting the same day replaces the payload
	gainers := []leaderboard.GainerEntry{{Username: "alice", ProblemsGained: 1, CurrentRank: 5}}
	snap.Payload.Gainers = gainers
	require.NoError(t, s.UpsertSnapshot(ctx, *snap))
	assert.Equal(t, 1, s.SnapshotCount())

	latest, err := s.LatestSnapshot(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, gainers, latest.Payload.Gainers)
}

func TestStore_UpsertSnapshotRejectsInvalidPayload(t *testing.T) {
	s := NewStore()
	g := s.AddGroup("club")

	err := s.UpsertSnapshot(context.Background(), leaderboard.Snapshot{
		GroupID: g,
		Date:    today,
		Payload: leaderboard.Payload{Version: leaderboard.PayloadVersion},
	})
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, 0, s.SnapshotCount())

	_, err = s.LatestSnapshot(context.Background(), g)
	assert.True(t, shared.IsNotFound(err))
}

func TestStore_ListMembers(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	carol, err := s.Ensure(ctx, "carol")
	require.NoError(t, err)
	alice, err := s.Ensure(ctx, "alice")
	require.NoError(t, err)

	full := s.AddGroup("full")
	require.NoError(t, s.AddMember(full, carol.ID))
	require.NoError(t, s.AddMember(full, alice.ID))
	empty := s.AddGroup("empty")

	members, err := s.ListMembers(ctx, full)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, shared.Username("alice"), members[0].Username)
	assert.Equal(t, shared.Username("carol"), members[1].Username)

	members, err = s.ListMembers(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = s.ListMembers(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrGroupNotFound)
}
