package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements profile.Repository and profile.SampleRepository.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new repository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

var (
	_ profile.Repository       = (*ProfileRepository)(nil)
	_ profile.SampleRepository = (*ProfileRepository)(nil)
)

const profileColumns = `id, username, created_at`

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	var (
		id       uuid.UUID
		username string
		p        profile.Profile
	)
	if err := row.Scan(&id, &username, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ID = shared.ProfileID(id.String())
	p.Username = shared.Username(username)
	return &p, nil
}

func collectProfiles(rows pgx.Rows) ([]profile.Profile, error) {
	defer rows.Close()

	var out []profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetByUsername returns the tracked profile with the exact username.
func (r *ProfileRepository) GetByUsername(ctx context.Context, username shared.Username) (*profile.Profile, error) {
	p, err := scanProfile(r.conn.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE username = $1`, username.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile %s: %w", username, err)
	}
	return p, nil
}

// Ensure returns the existing profile or inserts a new one.
func (r *ProfileRepository) Ensure(ctx context.Context, username shared.Username) (*profile.Profile, error) {
	p, err := scanProfile(r.conn.QueryRow(ctx, `
		INSERT INTO profiles (id, username, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING `+profileColumns,
		uuid.New(), username.String(),
	))
	if err != nil {
		return nil, fmt.Errorf("ensure profile %s: %w", username, err)
	}
	return p, nil
}

// ListAll returns all tracked profiles ordered by username.
func (r *ProfileRepository) ListAll(ctx context.Context) ([]profile.Profile, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return collectProfiles(rows)
}

// ListStale returns profiles with no sample for day.
func (r *ProfileRepository) ListStale(ctx context.Context, day time.Time) ([]profile.Profile, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT p.id, p.username, p.created_at
		FROM profiles p
		WHERE NOT EXISTS (
			SELECT 1 FROM stat_samples s
			WHERE s.profile_id = p.id AND s.sample_date = $1
		)
		ORDER BY p.username`,
		day.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list stale profiles: %w", err)
	}
	return collectProfiles(rows)
}

// DeleteOrphans removes profiles that belong to no group.
func (r *ProfileRepository) DeleteOrphans(ctx context.Context) (int, error) {
	tag, err := r.conn.Exec(ctx, `
		DELETE FROM profiles p
		WHERE NOT EXISTS (SELECT 1 FROM group_members m WHERE m.profile_id = p.id)`)
	if err != nil {
		return 0, fmt.Errorf("delete orphan profiles: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STAT SAMPLES
// ══════════════════════════════════════════════════════════════════════════════

const sampleColumns = `profile_id, sample_date, total_solved, easy_solved, medium_solved,
	hard_solved, ranking, contest_rating, ranking_points, fetched_at`

// UpsertSample writes the sample, overwriting any sample for the same day.
func (r *ProfileRepository) UpsertSample(ctx context.Context, s profile.StatSample) error {
	if err := s.Validate(); err != nil {
		return err
	}
	id, err := uuid.Parse(s.ProfileID.String())
	if err != nil {
		return shared.ErrInvalidSample.Wrap(err)
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO stat_samples (`+sampleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (profile_id, sample_date) DO UPDATE SET
			total_solved = EXCLUDED.total_solved,
			easy_solved = EXCLUDED.easy_solved,
			medium_solved = EXCLUDED.medium_solved,
			hard_solved = EXCLUDED.hard_solved,
			ranking = EXCLUDED.ranking,
			contest_rating = EXCLUDED.contest_rating,
			ranking_points = EXCLUDED.ranking_points,
			fetched_at = EXCLUDED.fetched_at`,
		id, s.Date.UTC(), s.TotalSolved, s.EasySolved, s.MediumSolved,
		s.HardSolved, s.Ranking, s.ContestRating, s.RankingPoints, s.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert sample %s@%s: %w", s.ProfileID, s.Date.Format("2006-01-02"), err)
	}
	return nil
}

func scanSample(row pgx.Row) (profile.StatSample, error) {
	var (
		s  profile.StatSample
		id uuid.UUID
	)
	err := row.Scan(&id, &s.Date, &s.TotalSolved, &s.EasySolved, &s.MediumSolved,
		&s.HardSolved, &s.Ranking, &s.ContestRating, &s.RankingPoints, &s.FetchedAt)
	if err != nil {
		return s, err
	}
	s.ProfileID = shared.ProfileID(id.String())
	s.Date = time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)
	return s, nil
}

// LatestSamples returns the newest sample per profile.
func (r *ProfileRepository) LatestSamples(ctx context.Context, ids []shared.ProfileID) (map[shared.ProfileID]profile.StatSample, error) {
	out := make(map[shared.ProfileID]profile.StatSample, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	uuids, err := toUUIDs(ids)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn.Query(ctx, `
		SELECT DISTINCT ON (profile_id) `+sampleColumns+`
		FROM stat_samples
		WHERE profile_id = ANY($1)
		ORDER BY profile_id, sample_date DESC`,
		uuids,
	)
	if err != nil {
		return nil, fmt.Errorf("latest samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out[s.ProfileID] = s
	}
	return out, rows.Err()
}

// SamplesInRange returns samples dated within [from, to], oldest first.
func (r *ProfileRepository) SamplesInRange(ctx context.Context, ids []shared.ProfileID, from, to time.Time) (map[shared.ProfileID][]profile.StatSample, error) {
	out := make(map[shared.ProfileID][]profile.StatSample, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	uuids, err := toUUIDs(ids)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn.Query(ctx, `
		SELECT `+sampleColumns+`
		FROM stat_samples
		WHERE profile_id = ANY($1) AND sample_date BETWEEN $2 AND $3
		ORDER BY profile_id, sample_date`,
		uuids, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("samples in range: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out[s.ProfileID] = append(out[s.ProfileID], s)
	}
	return out, rows.Err()
}

// HasSample reports whether the profile already has a sample for day.
func (r *ProfileRepository) HasSample(ctx context.Context, id shared.ProfileID, day time.Time) (bool, error) {
	pid, err := uuid.Parse(id.String())
	if err != nil {
		return false, fmt.Errorf("has sample: %w", err)
	}

	var exists bool
	err = r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stat_samples WHERE profile_id = $1 AND sample_date = $2)`,
		pid, day.UTC(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has sample: %w", err)
	}
	return exists, nil
}

func toUUIDs[T ~string](ids []T) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(string(id))
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", id, err)
		}
		out = append(out, u)
	}
	return out, nil
}
