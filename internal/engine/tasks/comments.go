package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dzemat/internal/engine/capability"
	"dzemat/internal/engine/identity"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/pkg/validator"
)

func (e *Engine) ListComments(ctx context.Context, p *identity.Principal, taskID string) ([]*Comment, error) {
	t, err := e.Get(ctx, p, taskID)
	if err != nil {
		return nil, err
	}
	comments, err := e.repo.ListComments(ctx, p.TenantID, t.ID)
	if err != nil {
		return nil, apperr.Internal(err, "list comments")
	}
	return comments, nil
}

// AddComment appends a member comment. Comments stay open on locked tasks.
func (e *Engine) AddComment(ctx context.Context, p *identity.Principal, taskID, content string) (*Comment, error) {
	t, err := e.load(ctx, p.TenantID, taskID)
	if err != nil {
		return nil, err
	}
	role, err := e.groups.Role(ctx, p.TenantID, t.WorkGroupID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := capability.CommentOnTask(p, role).Err(); err != nil {
		return nil, err
	}

	c := &Comment{
		ID:        "cmt_" + uuid.New().String(),
		TenantID:  p.TenantID,
		TaskID:    t.ID,
		UserID:    p.ID,
		Content:   validator.RichText(content),
		CreatedAt: time.Now().Unix(),
	}
	errs := validator.FieldErrors{}
	errs.Required("content", c.Content)
	errs.MaxLength("content", c.Content, maxCommentLength)
	if !errs.Empty() {
		return nil, apperr.Invalid("Invalid comment", errs)
	}

	if err := e.repo.CreateComment(ctx, c); err != nil {
		return nil, apperr.Internal(err, "create comment")
	}
	return c, nil
}

func (e *Engine) DeleteComment(ctx context.Context, p *identity.Principal, commentID string) error {
	c, err := e.repo.GetComment(ctx, p.TenantID, commentID)
	if err != nil {
		return apperr.Internal(err, "load comment")
	}
	if c == nil {
		return ErrCommentNotFound
	}
	t, err := e.load(ctx, p.TenantID, c.TaskID)
	if err != nil {
		return err
	}
	role, err := e.groups.Role(ctx, p.TenantID, t.WorkGroupID, p.ID)
	if err != nil {
		return err
	}
	if err := capability.DeleteComment(p, role, c.UserID).Err(); err != nil {
		return err
	}
	if err := e.repo.DeleteComment(ctx, p.TenantID, c.ID); err != nil {
		return apperr.Internal(err, "delete comment")
	}
	return nil
}
