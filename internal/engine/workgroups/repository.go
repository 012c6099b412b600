package workgroups

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const groupColumns = `id, tenant_id, name, description, visibility, archived, created_at`

func (r *Repository) CreateGroup(ctx context.Context, g *WorkGroup) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO work_groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.TenantID, g.Name, g.Description, g.Visibility, g.Archived, g.CreatedAt)
	return err
}

func (r *Repository) GetGroup(ctx context.Context, tenantID, id string) (*WorkGroup, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM work_groups WHERE tenant_id = ? AND id = ?`, tenantID, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

func (r *Repository) ListGroups(ctx context.Context, tenantID string) ([]*WorkGroup, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+groupColumns+` FROM work_groups WHERE tenant_id = ? ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*WorkGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *Repository) UpdateGroup(ctx context.Context, g *WorkGroup) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE work_groups SET name = ?, description = ?, visibility = ?, archived = ?
		WHERE tenant_id = ? AND id = ?
	`, g.Name, g.Description, g.Visibility, g.Archived, g.TenantID, g.ID)
	return err
}

func (r *Repository) DeleteGroup(ctx context.Context, tenantID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM work_groups WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(s rowScanner) (*WorkGroup, error) {
	g := &WorkGroup{}
	if err := s.Scan(&g.ID, &g.TenantID, &g.Name, &g.Description, &g.Visibility, &g.Archived, &g.CreatedAt); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *Repository) GetMember(ctx context.Context, tenantID, groupID, userID string) (*Member, error) {
	m := &Member{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, work_group_id, user_id, is_moderator, joined_at
		FROM work_group_members WHERE tenant_id = ? AND work_group_id = ? AND user_id = ?
	`, tenantID, groupID, userID).Scan(&m.ID, &m.WorkGroupID, &m.UserID, &m.IsModerator, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// InsertMember adds the row unless it already exists and reports whether it did.
func (r *Repository) InsertMember(ctx context.Context, tenantID string, m *Member) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO work_group_members (id, tenant_id, work_group_id, user_id, is_moderator, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(work_group_id, user_id) DO NOTHING
	`, m.ID, tenantID, m.WorkGroupID, m.UserID, m.IsModerator, m.JoinedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) DeleteMember(ctx context.Context, tenantID, groupID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM work_group_members WHERE tenant_id = ? AND work_group_id = ? AND user_id = ?
	`, tenantID, groupID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) SetModerator(ctx context.Context, tenantID, groupID, userID string, flag bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE work_group_members SET is_moderator = ?
		WHERE tenant_id = ? AND work_group_id = ? AND user_id = ?
	`, flag, tenantID, groupID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) ListMembers(ctx context.Context, tenantID, groupID string, moderatorsOnly bool) ([]*Member, error) {
	query := `
		SELECT m.id, m.work_group_id, m.user_id, m.is_moderator, m.joined_at,
		       u.username, u.first_name, u.last_name
		FROM work_group_members m
		JOIN users u ON u.id = m.user_id AND u.tenant_id = m.tenant_id
		WHERE m.tenant_id = ? AND m.work_group_id = ?`
	if moderatorsOnly {
		query += ` AND m.is_moderator = 1`
	}
	query += ` ORDER BY u.last_name, u.first_name`

	rows, err := r.db.QueryContext(ctx, query, tenantID, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{User: &MemberUser{}}
		if err := rows.Scan(&m.ID, &m.WorkGroupID, &m.UserID, &m.IsModerator, &m.JoinedAt,
			&m.User.Username, &m.User.FirstName, &m.User.LastName); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *Repository) ListMemberships(ctx context.Context, tenantID, userID string) ([]*Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.tenant_id, g.name, g.description, g.visibility, g.archived, g.created_at,
		       m.is_moderator, m.joined_at
		FROM work_group_members m
		JOIN work_groups g ON g.id = m.work_group_id AND g.tenant_id = m.tenant_id
		WHERE m.tenant_id = ? AND m.user_id = ?
		ORDER BY g.name
	`, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Membership
	for rows.Next() {
		g := &WorkGroup{}
		ms := &Membership{WorkGroup: g}
		if err := rows.Scan(&g.ID, &g.TenantID, &g.Name, &g.Description, &g.Visibility, &g.Archived, &g.CreatedAt,
			&ms.IsModerator, &ms.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

const requestColumns = `id, tenant_id, user_id, work_group_id, status, request_date, decided_at, decided_by`

func (r *Repository) CreateRequest(ctx context.Context, req *AccessRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_requests (`+requestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, req.ID, req.TenantID, req.UserID, req.WorkGroupID, req.Status, req.RequestDate, req.DecidedAt, req.DecidedBy)
	return err
}

func (r *Repository) GetRequest(ctx context.Context, tenantID, id string) (*AccessRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM access_requests WHERE tenant_id = ? AND id = ?`, tenantID, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return req, err
}

func (r *Repository) HasPendingRequest(ctx context.Context, tenantID, groupID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM access_requests
		WHERE tenant_id = ? AND work_group_id = ? AND user_id = ? AND status = 'pending'
	`, tenantID, groupID, userID).Scan(&n)
	return n > 0, err
}

// ListRequests returns the tenant's requests; an empty userID means all users.
func (r *Repository) ListRequests(ctx context.Context, tenantID, userID string) ([]*AccessRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM access_requests WHERE tenant_id = ?`
	args := []interface{}{tenantID}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY request_date DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AccessRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// DecideRequest moves a pending request to status. It reports false when
// the request was no longer pending.
func (r *Repository) DecideRequest(ctx context.Context, tenantID, id string, status RequestStatus, decidedBy string, at int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_requests SET status = ?, decided_at = ?, decided_by = ?
		WHERE tenant_id = ? AND id = ? AND status = 'pending'
	`, status, at, decidedBy, tenantID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ApproveRequest decides a pending request as approved and inserts the
// member row in one transaction. decided is false when the request was no
// longer pending; added is false when the user was already a member.
func (r *Repository) ApproveRequest(ctx context.Context, tenantID, id, decidedBy string, at int64, m *Member) (decided, added bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE access_requests SET status = ?, decided_at = ?, decided_by = ?
		WHERE tenant_id = ? AND id = ? AND status = 'pending'
	`, RequestApproved, at, decidedBy, tenantID, id)
	if err != nil {
		return false, false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, false, err
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO work_group_members (id, tenant_id, work_group_id, user_id, is_moderator, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(work_group_id, user_id) DO NOTHING
	`, m.ID, tenantID, m.WorkGroupID, m.UserID, m.IsModerator, m.JoinedAt)
	if err != nil {
		return false, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, false, err
	}
	if err := tx.Commit(); err != nil {
		return false, false, err
	}
	return true, n > 0, nil
}

func scanRequest(s rowScanner) (*AccessRequest, error) {
	req := &AccessRequest{}
	if err := s.Scan(&req.ID, &req.TenantID, &req.UserID, &req.WorkGroupID, &req.Status, &req.RequestDate, &req.DecidedAt, &req.DecidedBy); err != nil {
		return nil, err
	}
	return req, nil
}
