// Package proposals runs the proposal approval workflow. Anyone in a work
// group may submit; only tenant administrators decide, through a Reviewer.
package proposals

import (
	"context"

	"dzemat/internal/engine/capability"
	"dzemat/internal/engine/workgroups"
	apperr "dzemat/internal/pkg/errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

type Proposal struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenantId"`
	WorkGroupID   string  `json:"workGroupId"`
	CreatedByID   string  `json:"createdById"`
	What          string  `json:"what"`
	Where         string  `json:"where"`
	When          string  `json:"when"`
	How           string  `json:"how"`
	Why           string  `json:"why"`
	Budget        string  `json:"budget"`
	Status        Status  `json:"status"`
	ReviewedByID  *string `json:"reviewedById,omitempty"`
	ReviewComment *string `json:"reviewComment,omitempty"`
	ReviewedAt    *int64  `json:"reviewedAt,omitempty"`
	CreatedAt     int64   `json:"createdAt"`
}

var (
	ErrProposalNotFound = apperr.NotFound("Proposal not found")
	ErrNotPending       = apperr.Conflict("Proposal has already been decided")
	ErrCommentRequired  = apperr.Invalid("A comment is required when rejecting a proposal", map[string]string{"comment": "is required"})
)

type Groups interface {
	Group(ctx context.Context, tenantID, groupID string) (*workgroups.WorkGroup, error)
	Role(ctx context.Context, tenantID, groupID, userID string) (capability.GroupRole, error)
}

type ActivityRecorder interface {
	Log(ctx context.Context, tenantID, userID, action, description string, metadata map[string]interface{})
}
