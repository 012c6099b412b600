package workgroups

import (
	"context"

	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/platform/models"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "javna"
	VisibilityPrivate Visibility = "privatna"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

type WorkGroup struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	Archived    bool       `json:"archived"`
	CreatedAt   int64      `json:"createdAt"`
}

type MemberUser struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Member struct {
	ID          string      `json:"id"`
	WorkGroupID string      `json:"workGroupId"`
	UserID      string      `json:"userId"`
	IsModerator bool        `json:"isModerator"`
	JoinedAt    int64       `json:"joinedAt"`
	User        *MemberUser `json:"user,omitempty"`
}

// Membership pairs a group with the user's standing in it.
type Membership struct {
	WorkGroup   *WorkGroup `json:"workGroup"`
	IsModerator bool       `json:"isModerator"`
	JoinedAt    int64      `json:"joinedAt"`
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type AccessRequest struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenantId"`
	UserID      string        `json:"userId"`
	WorkGroupID string        `json:"workGroupId"`
	Status      RequestStatus `json:"status"`
	RequestDate int64         `json:"requestDate"`
	DecidedAt   *int64        `json:"decidedAt,omitempty"`
	DecidedBy   *string       `json:"decidedBy,omitempty"`
}

var (
	ErrWorkGroupNotFound = apperr.NotFound("Work group not found")
	ErrUserNotFound      = apperr.NotFound("User not found")
	ErrNotMember         = apperr.NotFound("User is not a member of this work group")
	ErrAlreadyMember     = apperr.Conflict("User is already a member of this work group")
	ErrRequestNotFound   = apperr.NotFound("Access request not found")
	ErrRequestPending    = apperr.Conflict("An access request is already pending")
	ErrRequestDecided    = apperr.Conflict("Access request has already been decided")
	ErrGroupArchived     = apperr.Conflict("Work group is archived")
)

type UserLookup interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.User, error)
}

type ActivityRecorder interface {
	Log(ctx context.Context, tenantID, userID, action, description string, metadata map[string]interface{})
}
