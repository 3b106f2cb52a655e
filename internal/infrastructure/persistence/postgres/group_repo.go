package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeclub/leetboard/internal/domain/group"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

// GroupRepository implements group.Repository on top of the groups and
// group_members tables. Group management itself lives elsewhere.
type GroupRepository struct {
	conn *Connection
}

// NewGroupRepository creates a new repository.
func NewGroupRepository(conn *Connection) *GroupRepository {
	return &GroupRepository{conn: conn}
}

var _ group.Repository = (*GroupRepository)(nil)

const groupSelect = `
	SELECT g.id, g.name, COUNT(m.profile_id)
	FROM groups g
	LEFT JOIN group_members m ON m.group_id = g.id`

func scanGroup(row pgx.Row) (*group.Group, error) {
	var (
		id uuid.UUID
		g  group.Group
	)
	if err := row.Scan(&id, &g.Name, &g.MemberCount); err != nil {
		return nil, err
	}
	g.ID = shared.GroupID(id.String())
	return &g, nil
}

// ListGroups returns every group with its member count.
func (r *GroupRepository) ListGroups(ctx context.Context) ([]group.Group, error) {
	rows, err := r.conn.Query(ctx, groupSelect+` GROUP BY g.id, g.name ORDER BY g.name, g.id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []group.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// GetGroup returns one group or shared.ErrGroupNotFound.
func (r *GroupRepository) GetGroup(ctx context.Context, id shared.GroupID) (*group.Group, error) {
	gid, err := uuid.Parse(id.String())
	if err != nil {
		return nil, shared.ErrGroupNotFound
	}

	g, err := scanGroup(r.conn.QueryRow(ctx, groupSelect+` WHERE g.id = $1 GROUP BY g.id, g.name`, gid))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group %s: %w", id, err)
	}
	return g, nil
}

// ListMembers returns the group's members ordered by username, or
// shared.ErrGroupNotFound when the group row does not exist. An existing
// group without members yields one row of NULLs and an empty result.
func (r *GroupRepository) ListMembers(ctx context.Context, id shared.GroupID) ([]group.Member, error) {
	gid, err := uuid.Parse(id.String())
	if err != nil {
		return nil, shared.ErrGroupNotFound
	}

	rows, err := r.conn.Query(ctx, `
		SELECT p.id::text, p.username
		FROM groups g
		LEFT JOIN group_members m ON m.group_id = g.id
		LEFT JOIN profiles p ON p.id = m.profile_id
		WHERE g.id = $1
		ORDER BY p.username`,
		gid,
	)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", id, err)
	}
	defer rows.Close()

	found := false
	out := []group.Member{}
	for rows.Next() {
		found = true
		var pid, username *string
		if err := rows.Scan(&pid, &username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if pid == nil {
			continue
		}
		out = append(out, group.Member{
			ProfileID: shared.ProfileID(*pid),
			Username:  shared.Username(*username),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members of %s: %w", id, err)
	}
	if !found {
		return nil, shared.ErrGroupNotFound
	}
	return out, nil
}
