//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

// testConn is shared by every test in this file; each test starts from
// empty tables.
var testConn *Connection

var testDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("leetboard"),
		tcpostgres.WithUsername("leetboard"),
		tcpostgres.WithPassword("leetboard"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		if container != nil {
			_ = container.Terminate(ctx)
		}
		log.Fatalf("failed to start postgres container: %v", err)
	}

	code := func() int {
		defer func() { _ = container.Terminate(ctx) }()

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			log.Printf("failed to get connection string: %v", err)
			return 1
		}
		testConn, err = Connect(ctx, dsn, DefaultPoolOptions())
		if err != nil {
			log.Printf("failed to connect: %v", err)
			return 1
		}
		defer testConn.Close()

		if _, err := NewMigrator(testConn).Migrate(ctx); err != nil {
			log.Printf("failed to migrate: %v", err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

func resetTables(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()
	_, err := testConn.Exec(ctx, `TRUNCATE group_snapshots, group_members, groups, stat_samples, profiles`)
	require.NoError(t, err)
	return ctx
}

func insertGroup(t *testing.T, ctx context.Context, name string, members ...*profile.Profile) shared.GroupID {
	t.Helper()
	id := uuid.New()
	_, err := testConn.Exec(ctx, `INSERT INTO groups (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)
	for _, p := range members {
		_, err := testConn.Exec(ctx,
			`INSERT INTO group_members (group_id, profile_id) VALUES ($1, $2)`,
			id, uuid.MustParse(p.ID.String()))
		require.NoError(t, err)
	}
	return shared.GroupID(id.String())
}

func ensureProfile(t *testing.T, ctx context.Context, repo *ProfileRepository, username string) *profile.Profile {
	t.Helper()
	p, err := repo.Ensure(ctx, shared.Username(username))
	require.NoError(t, err)
	return p
}

func countRows(t *testing.T, ctx context.Context, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, testConn.QueryRow(ctx, query, args...).Scan(&n))
	return n
}

func TestProfileRepository_EnsureIsIdempotent(t *testing.T) {
	ctx := resetTables(t)
	repo := NewProfileRepository(testConn)

	first := ensureProfile(t, ctx, repo, "Alice_01")
	second := ensureProfile(t, ctx, repo, "Alice_01")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, shared.Username("Alice_01"), second.Username)

	got, err := repo.GetByUsername(ctx, "Alice_01")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)
}

func TestProfileRepository_UpsertSampleOverwritesSameDay(t *testing.T) {
	ctx := resetTables(t)
	repo := NewProfileRepository(testConn)
	alice := ensureProfile(t, ctx, repo, "alice")
	bob := ensureProfile(t, ctx, repo, "bob")

	first := profile.NewStatSample(alice.ID, profile.Stats{TotalSolved: 10, Ranking: 1_000}, 100, testDay.Add(time.Hour))
	second := profile.NewStatSample(alice.ID, profile.Stats{TotalSolved: 12, Ranking: 900}, 120, testDay.Add(5*time.Hour))
	require.NoError(t, repo.UpsertSample(ctx, first))
	require.NoError(t, repo.UpsertSample(ctx, second))
	require.NoError(t, repo.UpsertSample(ctx, second))

	assert.Equal(t, 1, countRows(t, ctx,
		`SELECT COUNT(*) FROM stat_samples WHERE profile_id = $1`, uuid.MustParse(alice.ID.String())))

	latest, err := repo.LatestSamples(ctx, []shared.ProfileID{alice.ID})
	require.NoError(t, err)
	got := latest[alice.ID]
	assert.Equal(t, testDay, got.Date)
	assert.Equal(t, 12, got.TotalSolved)
	assert.Equal(t, 900, got.Ranking)
	require.NotNil(t, got.RankingPoints)
	assert.Equal(t, 120, *got.RankingPoints)
	assert.True(t, got.FetchedAt.Equal(testDay.Add(5*time.Hour)))

	has, err := repo.HasSample(ctx, alice.ID, testDay)
	require.NoError(t, err)
	assert.True(t, has)

	stale, err := repo.ListStale(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, bob.ID, stale[0].ID)
}

func TestProfileRepository_LatestAndRange(t *testing.T) {
	ctx := resetTables(t)
	repo := NewProfileRepository(testConn)
	alice := ensureProfile(t, ctx, repo, "alice")
	bob := ensureProfile(t, ctx, repo, "bob")
	carol := ensureProfile(t, ctx, repo, "carol")

	for _, d := range []int{7, 3, 0} {
		s := profile.NewStatSample(alice.ID, profile.Stats{TotalSolved: 100 - d, Ranking: 50_000}, 0, testDay.AddDate(0, 0, -d))
		require.NoError(t, repo.UpsertSample(ctx, s))
	}
	unscored := profile.StatSample{
		ProfileID: bob.ID,
		Date:      testDay.AddDate(0, 0, -1),
		Stats:     profile.Stats{TotalSolved: 5, Ranking: profile.UnrankedSentinel},
		FetchedAt: testDay.AddDate(0, 0, -1),
	}
	require.NoError(t, repo.UpsertSample(ctx, unscored))

	ids := []shared.ProfileID{alice.ID, bob.ID, carol.ID}
	latest, err := repo.LatestSamples(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, latest, 2)
	assert.Equal(t, testDay, latest[alice.ID].Date)
	assert.Equal(t, 100, latest[alice.ID].TotalSolved)
	assert.Equal(t, testDay.AddDate(0, 0, -1), latest[bob.ID].Date)
	assert.Nil(t, latest[bob.ID].RankingPoints, "NULL ranking_points reads back as nil")
	_, ok := latest[carol.ID]
	assert.False(t, ok)

	window := leaderboard.TrailingWindow(testDay, 3)
	ranged, err := repo.SamplesInRange(ctx, ids, window.Start, window.End)
	require.NoError(t, err)
	require.Len(t, ranged[alice.ID], 2)
	assert.Equal(t, testDay.AddDate(0, 0, -3), ranged[alice.ID][0].Date)
	assert.Equal(t, testDay, ranged[alice.ID][1].Date)
	require.Len(t, ranged[bob.ID], 1)
	assert.Empty(t, ranged[carol.ID])

	empty, err := repo.LatestSamples(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProfileRepository_DeleteOrphans(t *testing.T) {
	ctx := resetTables(t)
	repo := NewProfileRepository(testConn)
	member := ensureProfile(t, ctx, repo, "member")
	ensureProfile(t, ctx, repo, "orphan")
	insertGroup(t, ctx, "cohort", member)

	n, err := repo.DeleteOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, member.ID, all[0].ID)
}

func TestGroupRepository_ListMembers(t *testing.T) {
	ctx := resetTables(t)
	profiles := NewProfileRepository(testConn)
	groups := NewGroupRepository(testConn)

	carol := ensureProfile(t, ctx, profiles, "carol")
	alice := ensureProfile(t, ctx, profiles, "alice")
	full := insertGroup(t, ctx, "full", carol, alice)
	empty := insertGroup(t, ctx, "empty")

	members, err := groups.ListMembers(ctx, full)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, shared.Username("alice"), members[0].Username)
	assert.Equal(t, alice.ID, members[0].ProfileID)
	assert.Equal(t, shared.Username("carol"), members[1].Username)

	members, err = groups.ListMembers(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = groups.ListMembers(ctx, shared.GroupID(uuid.NewString()))
	assert.ErrorIs(t, err, shared.ErrGroupNotFound)

	_, err = groups.ListMembers(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, shared.ErrGroupNotFound)

	list, err := groups.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "empty", list[0].Name)
	assert.Zero(t, list[0].MemberCount)
	assert.Equal(t, 2, list[1].MemberCount)

	g, err := groups.GetGroup(ctx, full)
	require.NoError(t, err)
	assert.Equal(t, "full", g.Name)
}

func TestSnapshotRepository_UpsertAndNullGainers(t *testing.T) {
	ctx := resetTables(t)
	profiles := NewProfileRepository(testConn)
	store := NewSnapshotRepository(testConn)

	alice := ensureProfile(t, ctx, profiles, "alice")
	gid := insertGroup(t, ctx, "cohort", alice)
	entries := leaderboard.Build([]leaderboard.MemberStats{{Username: alice.Username}})

	noHistory, err := leaderboard.NewSnapshot(gid, testDay, entries, nil)
	require.NoError(t, err)
	require.NoError(t, store.UpsertSnapshot(ctx, *noHistory))

	got, err := store.GetSnapshot(ctx, gid, testDay)
	require.NoError(t, err)
	assert.Nil(t, got.Payload.Gainers, "NULL gainers column reads back as nil")
	assert.Equal(t, entries, got.Payload.Leaderboard)
	assert.Equal(t, leaderboard.PayloadVersion, got.Payload.Version)

	gainers := []leaderboard.GainerEntry{{Username: alice.Username, ProblemsGained: 4, CurrentSolved: 9, CurrentRank: 40_000}}
	withGainers, err := leaderboard.NewSnapshot(gid, testDay.Add(20*time.Hour), entries, gainers)
	require.NoError(t, err)
	require.NoError(t, store.UpsertSnapshot(ctx, *withGainers))
	require.NoError(t, store.UpsertSnapshot(ctx, *withGainers))

	assert.Equal(t, 1, countRows(t, ctx,
		`SELECT COUNT(*) FROM group_snapshots WHERE group_id = $1`, uuid.MustParse(gid.String())))

	got, err = store.GetSnapshot(ctx, gid, testDay)
	require.NoError(t, err)
	assert.Equal(t, gainers, got.Payload.Gainers)

	earlier, err := leaderboard.NewSnapshot(gid, testDay.AddDate(0, 0, -1), entries, []leaderboard.GainerEntry{})
	require.NoError(t, err)
	require.NoError(t, store.UpsertSnapshot(ctx, *earlier))

	latest, err := store.LatestSnapshot(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, testDay, latest.Date)

	prev, err := store.GetSnapshot(ctx, gid, testDay.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.NotNil(t, prev.Payload.Gainers)
	assert.Empty(t, prev.Payload.Gainers)

	_, err = store.GetSnapshot(ctx, gid, testDay.AddDate(0, 0, -30))
	assert.ErrorIs(t, err, shared.ErrSnapshotNotFound)
	_, err = store.LatestSnapshot(ctx, shared.GroupID(uuid.NewString()))
	assert.ErrorIs(t, err, shared.ErrSnapshotNotFound)
}

func TestMigrator_RollbackAndReapply(t *testing.T) {
	ctx := context.Background()
	m := NewMigrator(testConn)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Len(t, status, len(Migrations()))

	require.NoError(t, m.Rollback(ctx))
	n, err := m.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the rolled back migration is re-applied")
}
