package leaderboard

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func sample(total, easy, medium, hard, ranking int) *profile.StatSample {
	s := profile.NewStatSample("p", profile.Stats{
		TotalSolved:  total,
		EasySolved:   easy,
		MediumSolved: medium,
		HardSolved:   hard,
		Ranking:      ranking,
	}, RoundedRankingPoints(profile.Stats{
		TotalSolved:  total,
		EasySolved:   easy,
		MediumSolved: medium,
		HardSolved:   hard,
		Ranking:      ranking,
	}), day.Add(6*time.Hour))
	return &s
}

func usernames(entries []Entry) []shared.Username {
	out := make([]shared.Username, len(entries))
	for i, e := range entries {
		out[i] = e.Username
	}
	return out
}

func TestBuild_MissingSampleGetsDefaults(t *testing.T) {
	entries := Build([]MemberStats{
		{Username: "ghost"},
		{Username: "alice", Latest: sample(10, 10, 0, 0, 2_000_000)},
	})

	require.Len(t, entries, 2)
	ghost := entries[1]
	assert.Equal(t, shared.Username("ghost"), ghost.Username)
	assert.Equal(t, UnrankedSentinel, ghost.Ranking)
	assert.Zero(t, ghost.TotalSolved)
	assert.Zero(t, ghost.RankingPoints)
	assert.Nil(t, ghost.LastUpdated)
	assert.Equal(t, 2, ghost.Position)
	assert.False(t, ghost.IsRanked())
	assert.True(t, entries[0].IsRanked())

	require.NotNil(t, entries[0].LastUpdated)
	assert.Equal(t, day.Add(6*time.Hour), *entries[0].LastUpdated)
}

func TestBuild_RecomputesMissingPoints(t *testing.T) {
	s := sample(100, 40, 40, 20, 100_000)
	s.RankingPoints = nil

	entries := Build([]MemberStats{{Username: "alice", Latest: s}})
	assert.Equal(t, 6160, entries[0].RankingPoints)
}

func TestBuild_TieBreaks(t *testing.T) {
	// same points, different rank
	a := sample(0, 0, 0, 0, 4_000_000)
	a.RankingPoints = ptr(500)
	b := sample(0, 0, 0, 0, 3_000_000)
	b.RankingPoints = ptr(500)
	// same points, same rank, username decides (case-sensitive: "Z" < "a")
	c := sample(0, 0, 0, 0, 3_000_000)
	c.RankingPoints = ptr(500)

	entries := Build([]MemberStats{
		{Username: "a-user", Latest: a},
		{Username: "zed", Latest: b},
		{Username: "Zed", Latest: c},
	})

	want := []shared.Username{"Zed", "zed", "a-user"}
	if diff := cmp.Diff(want, usernames(entries)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_TotalOrderIndependentOfInput(t *testing.T) {
	faker := gofakeit.New(42)

	members := make([]MemberStats, 0, 6)
	for i := 0; i < 6; i++ {
		name := shared.Username(faker.Username())
		var s *profile.StatSample
		switch i % 3 {
		case 0:
			s = sample(50, 20, 20, 10, 1_000_000)
		case 1:
			s = sample(50, 20, 20, 10, 1_000_000) // identical to case 0
		}
		members = append(members, MemberStats{Username: name, Latest: s})
	}

	want := usernames(Build(members))

	permute(members, func(p []MemberStats) {
		got := usernames(Build(p))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("order depends on input permutation (-want +got):\n%s", diff)
		}
	})
}

func TestSort_AssignsPositions(t *testing.T) {
	entries := []Entry{
		{Username: "b", RankingPoints: 10},
		{Username: "a", RankingPoints: 20},
	}
	Sort(entries)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, shared.Username("a"), entries[0].Username)
	assert.Equal(t, 2, entries[1].Position)
}

func ptr(v int) *int { return &v }

// permute calls fn with every permutation of items (Heap's algorithm).
func permute[T any](items []T, fn func([]T)) {
	a := append([]T(nil), items...)
	c := make([]int, len(a))
	fn(append([]T(nil), a...))
	for i := 0; i < len(a); {
		if c[i] < i {
			if i%2 == 0 {
				a[0], a[i] = a[i], a[0]
			} else {
				a[c[i]], a[i] = a[i], a[c[i]]
			}
			fn(append([]T(nil), a...))
			c[i]++
			i = 0
		} else {
			c[i] = 0
			i++
		}
	}
}
