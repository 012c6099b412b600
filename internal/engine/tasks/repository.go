package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const taskColumns = `id, tenant_id, work_group_id, title, description, status, assigned_user_ids,
	due_date, points_value, estimated_cost, created_by_id, created_at, completed_at`

// lockGuard keeps writes off tasks that reached a terminal status.
const lockGuard = ` AND status NOT IN ('završeno', 'arhiva')`

func (r *Repository) Create(ctx context.Context, t *Task) error {
	assigned, err := encodeAssignees(t.AssignedUserIDs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.TenantID, t.WorkGroupID, t.Title, t.Description, t.Status, assigned,
		t.DueDate, t.PointsValue, t.EstimatedCost, t.CreatedByID, t.CreatedAt, t.CompletedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, tenantID, id string) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE tenant_id = ? AND id = ?`, tenantID, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// Update writes t only if the stored status still equals expected and is
// not locked. It reports whether a row changed.
func (r *Repository) Update(ctx context.Context, t *Task, expected Status) (bool, error) {
	assigned, err := encodeAssignees(t.AssignedUserIDs)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET work_group_id = ?, title = ?, description = ?, status = ?, assigned_user_ids = ?,
			due_date = ?, points_value = ?, estimated_cost = ?, completed_at = ?
		WHERE tenant_id = ? AND id = ? AND status = ?`+lockGuard,
		t.WorkGroupID, t.Title, t.Description, t.Status, assigned,
		t.DueDate, t.PointsValue, t.EstimatedCost, t.CompletedAt,
		t.TenantID, t.ID, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE tenant_id = ? AND id = ?`+lockGuard, tenantID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) ListByGroup(ctx context.Context, tenantID, groupID string) ([]*Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE tenant_id = ? AND work_group_id = ? ORDER BY created_at DESC, id`, tenantID, groupID)
}

func (r *Repository) ListOpen(ctx context.Context, tenantID string) ([]*Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE tenant_id = ?`+lockGuard+` ORDER BY created_at DESC, id`, tenantID)
}

// ListForUser returns open tasks the user is assigned to or moderates.
func (r *Repository) ListForUser(ctx context.Context, tenantID, userID string) ([]*Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.tenant_id = ?`+lockGuard+`
		  AND (
		    EXISTS (SELECT 1 FROM json_each(t.assigned_user_ids) WHERE json_each.value = ?)
		    OR EXISTS (
		      SELECT 1 FROM work_group_members m
		      WHERE m.tenant_id = t.tenant_id AND m.work_group_id = t.work_group_id
		        AND m.user_id = ? AND m.is_moderator = 1
		    )
		  )
		ORDER BY t.created_at DESC, t.id
	`, tenantID, userID, userID)
}

func (r *Repository) ListLocked(ctx context.Context, tenantID string) ([]*Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE tenant_id = ? AND status IN ('završeno', 'arhiva') ORDER BY completed_at DESC, created_at DESC, id`, tenantID)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(s rowScanner) (*Task, error) {
	t := &Task{}
	var assigned string
	if err := s.Scan(&t.ID, &t.TenantID, &t.WorkGroupID, &t.Title, &t.Description, &t.Status, &assigned,
		&t.DueDate, &t.PointsValue, &t.EstimatedCost, &t.CreatedByID, &t.CreatedAt, &t.CompletedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(assigned), &t.AssignedUserIDs); err != nil {
		return nil, err
	}
	if t.AssignedUserIDs == nil {
		t.AssignedUserIDs = []string{}
	}
	return t, nil
}

func encodeAssignees(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	return string(b), err
}

func (r *Repository) CreateComment(ctx context.Context, c *Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO task_comments (id, tenant_id, task_id, user_id, content, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.TenantID, c.TaskID, c.UserID, c.Content, c.CreatedAt)
	return err
}

func (r *Repository) GetComment(ctx context.Context, tenantID, id string) (*Comment, error) {
	c := &Comment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, task_id, user_id, content, created_at FROM task_comments WHERE tenant_id = ? AND id = ?
	`, tenantID, id).Scan(&c.ID, &c.TenantID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) ListComments(ctx context.Context, tenantID, taskID string) ([]*Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, task_id, user_id, content, created_at
		FROM task_comments WHERE tenant_id = ? AND task_id = ? ORDER BY created_at, id
	`, tenantID, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []*Comment{}
	for rows.Next() {
		c := &Comment{}
		if err := rows.Scan(&c.ID, &c.TenantID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *Repository) DeleteComment(ctx context.Context, tenantID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM task_comments WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return err
}
