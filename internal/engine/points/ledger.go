// Package points carries completion rewards to the activity ledger and any
// external collector.
package points

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTaskPoints is awarded when a task carries no explicit value.
const DefaultTaskPoints = 50

type Award struct {
	UserID      string `json:"userId"`
	Points      int    `json:"points"`
	TaskID      string `json:"taskId,omitempty"`
	Description string `json:"description,omitempty"`
}

type Ledger interface {
	Award(ctx context.Context, tenantID string, awards []Award) error
}

// ActivityLedger writes one activity_logs row per award and bumps the user's total.
type ActivityLedger struct {
	db *sql.DB
}

func NewActivityLedger(db *sql.DB) *ActivityLedger {
	return &ActivityLedger{db: db}
}

func (l *ActivityLedger) Award(ctx context.Context, tenantID string, awards []Award) error {
	if len(awards) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, a := range awards {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO activity_logs (id, tenant_id, user_id, activity_type, description, points, related_entity_id, created_at)
			VALUES (?, ?, ?, 'task_completed', ?, ?, ?, ?)
		`, "log_"+uuid.New().String(), tenantID, a.UserID, a.Description, a.Points, a.TaskID, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET total_points = total_points + ? WHERE tenant_id = ? AND id = ?
		`, a.Points, tenantID, a.UserID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type Entry struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Type        string `json:"activityType"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	TaskID      string `json:"relatedEntityId,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// ForUser lists a user's ledger entries, newest first.
func (l *ActivityLedger) ForUser(ctx context.Context, tenantID, userID string) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, user_id, activity_type, description, points, related_entity_id, created_at
		FROM activity_logs WHERE tenant_id = ? AND user_id = ?
		ORDER BY created_at DESC, id
	`, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var taskID sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Description, &e.Points, &taskID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.TaskID = taskID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Multi fans awards out to several ledgers and joins their errors.
type Multi []Ledger

func (m Multi) Award(ctx context.Context, tenantID string, awards []Award) error {
	var errs []error
	for _, l := range m {
		if err := l.Award(ctx, tenantID, awards); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
