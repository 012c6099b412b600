package tasks

import (
	"context"

	"dzemat/internal/engine/capability"
	"dzemat/internal/engine/workgroups"
	apperr "dzemat/internal/pkg/errors"
)

type Status string

const (
	StatusInProgress Status = "u_toku"
	StatusPending    Status = "na_cekanju"
	StatusDone       Status = "završeno"
	StatusCancelled  Status = "otkazano"
	StatusArchived   Status = "arhiva"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusPending, StatusDone, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// Locked reports a terminal status that freezes the task.
func (s Status) Locked() bool {
	return s == StatusDone || s == StatusArchived
}

// PointValues are the rewards a task may carry.
var PointValues = []int{10, 20, 30, 50}

func validPoints(p int) bool {
	for _, v := range PointValues {
		if v == p {
			return true
		}
	}
	return false
}

type Task struct {
	ID              string   `json:"id"`
	TenantID        string   `json:"tenantId"`
	WorkGroupID     string   `json:"workGroupId"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Status          Status   `json:"status"`
	AssignedUserIDs []string `json:"assignedUserIds"`
	DueDate         *int64   `json:"dueDate,omitempty"`
	PointsValue     int      `json:"pointsValue"`
	EstimatedCost   string   `json:"estimatedCost,omitempty"`
	CreatedByID     string   `json:"createdById"`
	CreatedAt       int64    `json:"createdAt"`
	CompletedAt     *int64   `json:"completedAt,omitempty"`
}

func (t *Task) IsAssigned(userID string) bool {
	for _, id := range t.AssignedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type Comment struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	TaskID    string `json:"taskId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

var (
	ErrTaskNotFound    = apperr.NotFound("Task not found")
	ErrCommentNotFound = apperr.NotFound("Comment not found")
	ErrTaskLocked      = apperr.WithCode(apperr.KindConflict, apperr.ErrCodeTaskLocked, "Task is locked")
	ErrConcurrentEdit  = apperr.Conflict("Task was changed by someone else, reload and retry")
)

// Groups is the slice of the membership manager the task engine needs.
type Groups interface {
	Group(ctx context.Context, tenantID, groupID string) (*workgroups.WorkGroup, error)
	Role(ctx context.Context, tenantID, groupID, userID string) (capability.GroupRole, error)
}

type ActivityRecorder interface {
	Log(ctx context.Context, tenantID, userID, action, description string, metadata map[string]interface{})
}
