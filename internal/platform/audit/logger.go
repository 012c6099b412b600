package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ActionLogin             = "login"
	ActionWorkGroupCreated  = "work_group_created"
	ActionWorkGroupUpdated  = "work_group_updated"
	ActionWorkGroupArchived = "work_group_archived"
	ActionWorkGroupDeleted  = "work_group_deleted"
	ActionMemberAdded       = "member_added"
	ActionMemberRemoved     = "member_removed"
	ActionModeratorChanged  = "moderator_changed"
	ActionAccessRequested   = "access_requested"
	ActionAccessDecided     = "access_decided"
	ActionTaskCreated       = "task_created"
	ActionTaskUpdated       = "task_updated"
	ActionTaskCompleted     = "task_completed"
	ActionTaskMoved         = "task_moved"
	ActionTaskDeleted       = "task_deleted"
	ActionProposalCreated   = "proposal_created"
	ActionProposalUpdated   = "proposal_updated"
	ActionProposalApproved  = "proposal_approved"
	ActionProposalRejected  = "proposal_rejected"
)

type Activity struct {
	ID          string                 `json:"id"`
	TenantID    string                 `json:"tenantId"`
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	UserID      string                 `json:"userId,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   int64                  `json:"createdAt"`
}

// Logger records activities without blocking or failing the caller.
type Logger struct {
	db *sql.DB
	wg sync.WaitGroup
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

func (l *Logger) Log(ctx context.Context, tenantID, userID, action, description string, metadata map[string]interface{}) {
	metaJSON, _ := json.Marshal(metadata)
	if metadata == nil {
		metaJSON = []byte("{}")
	}

	entry := &Activity{
		ID:          "act_" + uuid.New().String(),
		TenantID:    tenantID,
		Type:        action,
		Description: description,
		UserID:      userID,
		CreatedAt:   time.Now().Unix(),
	}

	ctx = context.WithoutCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		_, err := l.db.ExecContext(ctx, `
			INSERT INTO activities (id, tenant_id, type, description, user_id, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, entry.ID, entry.TenantID, entry.Type, entry.Description, nullable(entry.UserID), string(metaJSON), entry.CreatedAt)
		if err != nil {
			log.Warn().Err(err).Str("tenant_id", tenantID).Str("type", action).Msg("failed to record activity")
		}
	}()
}

// Wait blocks until every pending write has finished.
func (l *Logger) Wait() {
	l.wg.Wait()
}

func (l *Logger) List(ctx context.Context, tenantID string, limit int) ([]*Activity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, tenant_id, type, description, user_id, metadata, created_at
		FROM activities WHERE tenant_id = ? ORDER BY created_at DESC, id LIMIT ?
	`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		a := &Activity{}
		var userID sql.NullString
		var meta string
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Type, &a.Description, &userID, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.UserID = userID.String
		if meta != "" {
			json.Unmarshal([]byte(meta), &a.Metadata)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
