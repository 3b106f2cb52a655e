package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

// SnapshotRepository implements leaderboard.SnapshotStore.
// Leaderboard and gainers are stored as separate JSONB columns next to the
// payload version.
type SnapshotRepository struct {
	conn *Connection
}

// NewSnapshotRepository creates a new repository.
func NewSnapshotRepository(conn *Connection) *SnapshotRepository {
	return &SnapshotRepository{conn: conn}
}

var _ leaderboard.SnapshotStore = (*SnapshotRepository)(nil)

// UpsertSnapshot validates the payload and writes it, replacing any
// snapshot for the same group and day.
func (r *SnapshotRepository) UpsertSnapshot(ctx context.Context, s leaderboard.Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	gid, err := uuid.Parse(s.GroupID.String())
	if err != nil {
		return shared.ErrInvalidSnapshot.Wrap(err)
	}

	entries, err := json.Marshal(s.Payload.Leaderboard)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	var gainers []byte
	if s.Payload.Gainers != nil {
		if gainers, err = json.Marshal(s.Payload.Gainers); err != nil {
			return fmt.Errorf("marshal gainers: %w", err)
		}
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO group_snapshots (group_id, snapshot_date, version, leaderboard, gainers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (group_id, snapshot_date) DO UPDATE SET
			version = EXCLUDED.version,
			leaderboard = EXCLUDED.leaderboard,
			gainers = EXCLUDED.gainers,
			updated_at = NOW()`,
		gid, s.Date.UTC(), s.Payload.Version, entries, gainers,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s@%s: %w", s.GroupID, s.Date.Format("2006-01-02"), err)
	}
	return nil
}

// GetSnapshot returns the snapshot of a group for a day.
func (r *SnapshotRepository) GetSnapshot(ctx context.Context, groupID shared.GroupID, date time.Time) (*leaderboard.Snapshot, error) {
	gid, err := uuid.Parse(groupID.String())
	if err != nil {
		return nil, shared.ErrSnapshotNotFound
	}
	return r.scanSnapshot(groupID, r.conn.QueryRow(ctx, `
		SELECT snapshot_date, version, leaderboard, gainers, created_at
		FROM group_snapshots
		WHERE group_id = $1 AND snapshot_date = $2`,
		gid, date.UTC(),
	))
}

// LatestSnapshot returns the most recent snapshot of a group.
func (r *SnapshotRepository) LatestSnapshot(ctx context.Context, groupID shared.GroupID) (*leaderboard.Snapshot, error) {
	gid, err := uuid.Parse(groupID.String())
	if err != nil {
		return nil, shared.ErrSnapshotNotFound
	}
	return r.scanSnapshot(groupID, r.conn.QueryRow(ctx, `
		SELECT snapshot_date, version, leaderboard, gainers, created_at
		FROM group_snapshots
		WHERE group_id = $1
		ORDER BY snapshot_date DESC
		LIMIT 1`,
		gid,
	))
}

func (r *SnapshotRepository) scanSnapshot(groupID shared.GroupID, row pgx.Row) (*leaderboard.Snapshot, error) {
	var (
		s       = leaderboard.Snapshot{GroupID: groupID}
		entries []byte
		gainers []byte
	)
	if err := row.Scan(&s.Date, &s.Payload.Version, &entries, &gainers, &s.CreatedAt); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("scan snapshot %s: %w", groupID, err)
	}
	s.Date = time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)

	if err := json.Unmarshal(entries, &s.Payload.Leaderboard); err != nil {
		return nil, shared.ErrInvalidSnapshot.Wrap(err)
	}
	if gainers != nil {
		if err := json.Unmarshal(gainers, &s.Payload.Gainers); err != nil {
			return nil, shared.ErrInvalidSnapshot.Wrap(err)
		}
	}
	if err := s.Payload.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
