package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dzemat/internal/engine/capability"
	"dzemat/internal/engine/identity"
	"dzemat/internal/engine/points"
	"dzemat/internal/engine/workgroups"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/pkg/validator"
	"dzemat/internal/platform/audit"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxCommentLength     = 2000
)

// Engine drives the task lifecycle: u_toku -> na_cekanju -> završeno, with
// otkazano and arhiva as side exits. završeno and arhiva are terminal.
type Engine struct {
	repo     *Repository
	groups   Groups
	ledger   points.Ledger
	activity ActivityRecorder
	now      func() time.Time
}

func NewEngine(repo *Repository, groups Groups, ledger points.Ledger, activity ActivityRecorder) *Engine {
	return &Engine{repo: repo, groups: groups, ledger: ledger, activity: activity, now: time.Now}
}

type CreateInput struct {
	WorkGroupID     string   `json:"workGroupId"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	AssignedUserIDs []string `json:"assignedUserIds"`
	DueDate         *int64   `json:"dueDate"`
	PointsValue     *int     `json:"pointsValue"`
	EstimatedCost   string   `json:"estimatedCost"`
}

// UpdateInput carries a partial edit. Nil fields are left untouched.
type UpdateInput struct {
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	Status          *Status   `json:"status"`
	AssignedUserIDs *[]string `json:"assignedUserIds"`
	DueDate         *int64    `json:"dueDate"`
	PointsValue     *int      `json:"pointsValue"`
	EstimatedCost   *string   `json:"estimatedCost"`
}

func (in UpdateInput) editsFields() bool {
	return in.Title != nil || in.Description != nil || in.AssignedUserIDs != nil ||
		in.DueDate != nil || in.PointsValue != nil || in.EstimatedCost != nil
}

func (e *Engine) Create(ctx context.Context, p *identity.Principal, in CreateInput) (*Task, error) {
	g, err := e.groups.Group(ctx, p.TenantID, in.WorkGroupID)
	if err != nil {
		return nil, err
	}
	if g.Archived {
		return nil, workgroups.ErrGroupArchived
	}
	role, err := e.groups.Role(ctx, p.TenantID, g.ID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := capability.CreateTask(p, role).Err(); err != nil {
		return nil, err
	}

	t := &Task{
		ID:              "task_" + uuid.New().String(),
		TenantID:        p.TenantID,
		WorkGroupID:     g.ID,
		Title:           validator.Plain(in.Title),
		Description:     validator.RichText(in.Description),
		Status:          StatusInProgress,
		AssignedUserIDs: dedupe(in.AssignedUserIDs),
		DueDate:         in.DueDate,
		PointsValue:     points.DefaultTaskPoints,
		EstimatedCost:   validator.Plain(in.EstimatedCost),
		CreatedByID:     p.ID,
		CreatedAt:       e.now().Unix(),
	}
	if in.PointsValue != nil {
		t.PointsValue = *in.PointsValue
	}
	if err := e.validate(ctx, t, true); err != nil {
		return nil, err
	}

	if err := e.repo.Create(ctx, t); err != nil {
		return nil, apperr.Internal(err, "create task")
	}
	e.activity.Log(ctx, p.TenantID, p.ID, audit.ActionTaskCreated, "Task created: "+t.Title, map[string]interface{}{
		"taskId":      t.ID,
		"workGroupId": t.WorkGroupID,
	})
	return t, nil
}

func (e *Engine) Get(ctx context.Context, p *identity.Principal, taskID string) (*Task, error) {
	t, err := e.load(ctx, p.TenantID, taskID)
	if err != nil {
		return nil, err
	}
	role, err := e.groups.Role(ctx, p.TenantID, t.WorkGroupID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := capability.ViewWorkGroup(p, role).Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies a partial edit and, when Status is set, a transition.
// Locked tasks reject every change with ErrTaskLocked.
func (e *Engine) Update(ctx context.Context, p *identity.Principal, taskID string, in UpdateInput) (*Task, error) {
	t, err := e.load(ctx, p.TenantID, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status.Locked() {
		return nil, ErrTaskLocked
	}
	role, err := e.groups.Role(ctx, p.TenantID, t.WorkGroupID, p.ID)
	if err != nil {
		return nil, err
	}

	if in.editsFields() {
		if err := capability.EditTask(p, role).Err(); err != nil {
			return nil, err
		}
	}
	from := t.Status
	to := from
	if in.Status != nil && *in.Status != from {
		to = *in.Status
		if err := authorizeTransition(p, role, t, to); err != nil {
			return nil, err
		}
	}
	if !in.editsFields() && to == from {
		return t, nil
	}

	if in.Title != nil {
		t.Title = validator.Plain(*in.Title)
	}
	if in.Description != nil {
		t.Description = validator.RichText(*in.Description)
	}
	if in.AssignedUserIDs != nil {
		t.AssignedUserIDs = dedupe(*in.AssignedUserIDs)
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.PointsValue != nil {
		t.PointsValue = *in.PointsValue
	}
	if in.EstimatedCost != nil {
		t.EstimatedCost = validator.Plain(*in.EstimatedCost)
	}
	// Assignees are checked against the group only when they change, so a
	// status change still works after a move or after an assignee leaves.
	if err := e.validate(ctx, t, in.AssignedUserIDs != nil); err != nil {
		return nil, err
	}

	t.Status = to
	if to == StatusDone {
		completed := e.now().Unix()
		t.CompletedAt = &completed
	}
	if err := e.save(ctx, t, from); err != nil {
		return nil, err
	}

	if to == StatusDone {
		e.award(ctx, t)
		e.activity.Log(ctx, p.TenantID, p.ID, audit.ActionTaskCompleted, "Task completed: "+t.Title, map[string]interface{}{
			"taskId":      t.ID,
			"workGroupId": t.WorkGroupID,
			"points":      t.PointsValue,
			"assignees":   t.AssignedUserIDs,
		})
		return t, nil
	}
	e.activity.Log(ctx, p.TenantID, p.ID, audit.ActionTaskUpdated, "Task updated: "+t.Title, map[string]interface{}{
		"taskId": t.ID,
		"from":   from,
		"to":     to,
	})
	return t, nil
}

// MarkPending is how an assignee submits work for approval.
func (e *Engine) MarkPending(ctx context.Context, p *identity.Principal, taskID string) (*Task, error) {
	return e.transition(ctx, p, taskID, StatusPending)
}

func (e *Engine) Approve(ctx context.Context, p *identity.Principal, taskID string) (*Task, error) {
	return e.transition(ctx, p, taskID, StatusDone)
}

func (e *Engine) Cancel(ctx context.Context, p *identity.Principal, taskID string) (*Task, error) {
	return e.transition(ctx, p, taskID, StatusCancelled)
}

func (e *Engine) Archive(ctx context.Context, p *identity.Principal, taskID string) (*Task, error) {
	return e.transition(ctx, p, taskID, StatusArchived)
}

func (e *Engine) transition(ctx context.Context, p *identity.Principal, taskID string, to Status) (*Task, error) {
	return e.Update(ctx, p, taskID, UpdateInput{Status: &to})
}

// Move reassigns an unlocked task to another active group of the tenant.
// Existing assignees are kept even when they are not members of the target
// group; they can still submit the task.
func (e *Engine) Move(ctx context.Context, p *identity.Principal, taskID, targetGroupID string) (*Task, error) {
	t, err := e.load(ctx, p.TenantID, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status.Locked() {
		return nil, ErrTaskLocked
	}
	role, err := e.groups.Role(ctx, p.TenantID, t.WorkGroupID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := capability.EditTask(p, role).Err(); err != nil {
		return nil, err
	}
	if targetGroupID == t.WorkGroupID {
		return nil, apperr.Invalid("Task is already in this work group", nil)
	}
	target, err := e.groups.Group(ctx, p.TenantID, targetGroupID)
	if err != nil {
		return nil, err
	}
	if target.Archived {
		return nil, workgroups.ErrGroupArchived
	}

	from := t.WorkGroupID
	t.WorkGroupID = target.ID
	if err := e.save(ctx, t, t.Status); err != nil {
		return nil, err
	}
	e.activity.Log(ctx, p.TenantID, p.ID, audit.ActionTaskMoved, "Task moved: "+t.Title, map[string]interface{}{
		"taskId":          t.ID,
		"fromWorkGroupId": from,
		"toWorkGroupId":   target.ID,
	})
	return t, nil
}

func (e *Engine) Delete(ctx context.Context, p *identity.Principal, taskID string) error {
	t, err := e.load(ctx, p.TenantID, taskID)
	if err != nil {
		return err
	}
	if t.Status.Locked() {
		return ErrTaskLocked
	}
	role, err := e.groups.Role(ctx, p.TenantID, t.WorkGroupID, p.ID)
	if err != nil {
		return err
	}
	if err := capability.EditTask(p, role).Err(); err != nil {
		return err
	}

	deleted, err := e.repo.Delete(ctx, p.TenantID, t.ID)
	if err != nil {
		return apperr.Internal(err, "delete task")
	}
	if !deleted {
		return e.staleWrite(ctx, t)
	}
	e.activity.Log(ctx, p.TenantID, p.ID, audit.ActionTaskDeleted, "Task deleted: "+t.Title, map[string]interface{}{"taskId": t.ID})
	return nil
}

func (e *Engine) ListByGroup(ctx context.Context, p *identity.Principal, groupID string) ([]*Task, error) {
	if _, err := e.groups.Group(ctx, p.TenantID, groupID); err != nil {
		return nil, err
	}
	role, err := e.groups.Role(ctx, p.TenantID, groupID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := capability.ViewWorkGroup(p, role).Err(); err != nil {
		return nil, err
	}
	tasks, err := e.repo.ListByGroup(ctx, p.TenantID, groupID)
	if err != nil {
		return nil, apperr.Internal(err, "list tasks")
	}
	return tasks, nil
}

// Dashboard lists open tasks: everything for admins, otherwise tasks the
// principal is assigned to or moderates.
func (e *Engine) Dashboard(ctx context.Context, p *identity.Principal) ([]*Task, error) {
	var (
		tasks []*Task
		err   error
	)
	if p.IsAdmin {
		tasks, err = e.repo.ListOpen(ctx, p.TenantID)
	} else {
		tasks, err = e.repo.ListForUser(ctx, p.TenantID, p.ID)
	}
	if err != nil {
		return nil, apperr.Internal(err, "list dashboard tasks")
	}
	return tasks, nil
}

// AdminArchive lists locked tasks of the tenant.
func (e *Engine) AdminArchive(ctx context.Context, p *identity.Principal) ([]*Task, error) {
	if err := capability.AdminOnly(p, "view the task archive").Err(); err != nil {
		return nil, err
	}
	tasks, err := e.repo.ListLocked(ctx, p.TenantID)
	if err != nil {
		return nil, apperr.Internal(err, "list archived tasks")
	}
	return tasks, nil
}

func (e *Engine) load(ctx context.Context, tenantID, taskID string) (*Task, error) {
	t, err := e.repo.Get(ctx, tenantID, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "load task")
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

func (e *Engine) save(ctx context.Context, t *Task, expected Status) error {
	ok, err := e.repo.Update(ctx, t, expected)
	if err != nil {
		return apperr.Internal(err, "update task")
	}
	if !ok {
		return e.staleWrite(ctx, t)
	}
	return nil
}

// staleWrite explains a guarded write that matched no row.
func (e *Engine) staleWrite(ctx context.Context, t *Task) error {
	current, err := e.load(ctx, t.TenantID, t.ID)
	if err != nil {
		return err
	}
	if current.Status.Locked() {
		return ErrTaskLocked
	}
	return ErrConcurrentEdit
}

func (e *Engine) validate(ctx context.Context, t *Task, checkAssignees bool) error {
	errs := validator.FieldErrors{}
	errs.Required("title", t.Title)
	errs.MaxLength("title", t.Title, maxTitleLength)
	errs.MaxLength("description", t.Description, maxDescriptionLength)
	if !validPoints(t.PointsValue) {
		errs["pointsValue"] = fmt.Sprintf("must be one of %v", PointValues)
	}
	if checkAssignees {
		for _, id := range t.AssignedUserIDs {
			role, err := e.groups.Role(ctx, t.TenantID, t.WorkGroupID, id)
			if err != nil {
				return err
			}
			if !role.IsMember {
				errs["assignedUserIds"] = "assignees must be members of the work group"
				break
			}
		}
	}
	if !errs.Empty() {
		return apperr.Invalid("Invalid task", errs)
	}
	return nil
}

func (e *Engine) award(ctx context.Context, t *Task) {
	value := t.PointsValue
	if value == 0 {
		value = points.DefaultTaskPoints
	}
	awards := make([]points.Award, 0, len(t.AssignedUserIDs))
	for _, id := range t.AssignedUserIDs {
		awards = append(awards, points.Award{
			UserID:      id,
			Points:      value,
			TaskID:      t.ID,
			Description: "Završen zadatak: " + t.Title,
		})
	}
	if err := e.ledger.Award(ctx, t.TenantID, awards); err != nil {
		log.Warn().Err(err).Str("task_id", t.ID).Msg("Failed to record task points")
	}
}

func authorizeTransition(p *identity.Principal, role capability.GroupRole, t *Task, to Status) error {
	if !to.Valid() {
		return apperr.Invalid("Unknown task status", map[string]string{"status": string(to)})
	}
	switch to {
	case StatusPending:
		if t.Status != StatusInProgress && t.Status != StatusCancelled {
			return invalidTransition(t.Status, to)
		}
		return capability.MarkPending(p, t.AssignedUserIDs).Err()
	case StatusDone:
		if t.Status != StatusPending {
			return invalidTransition(t.Status, to)
		}
		return capability.ApproveTask(p, role).Err()
	default:
		return capability.EditTask(p, role).Err()
	}
}

func invalidTransition(from, to Status) error {
	return apperr.Conflict(fmt.Sprintf("Cannot move task from %s to %s", from, to))
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
