package workgroups

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dzemat/internal/engine/capability"
	"dzemat/internal/engine/identity"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/platform/audit"
)

// RequestAccess files a pending request for p to join the group.
func (s *Service) RequestAccess(ctx context.Context, p *identity.Principal, groupID string) (*AccessRequest, error) {
	g, err := s.members.Group(ctx, p.TenantID, groupID)
	if err != nil {
		return nil, err
	}
	if g.Archived {
		return nil, ErrGroupArchived
	}

	role, err := s.members.Role(ctx, p.TenantID, groupID, p.ID)
	if err != nil {
		return nil, err
	}
	if role.IsMember {
		return nil, ErrAlreadyMember
	}

	pending, err := s.repo.HasPendingRequest(ctx, p.TenantID, groupID, p.ID)
	if err != nil {
		return nil, apperr.Internal(err, "check pending requests")
	}
	if pending {
		return nil, ErrRequestPending
	}

	req := &AccessRequest{
		ID:          "ar_" + uuid.New().String(),
		TenantID:    p.TenantID,
		UserID:      p.ID,
		WorkGroupID: groupID,
		Status:      RequestPending,
		RequestDate: time.Now().Unix(),
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, apperr.Internal(err, "create access request")
	}
	s.activity.Log(ctx, p.TenantID, p.ID, audit.ActionAccessRequested, "Access requested to "+g.Name, map[string]interface{}{
		"workGroupId":     groupID,
		"accessRequestId": req.ID,
	})
	return req, nil
}

func (s *Service) ListAccessRequests(ctx context.Context, p *identity.Principal) ([]*AccessRequest, error) {
	if err := capability.DecideAccessRequest(p).Err(); err != nil {
		return nil, err
	}
	reqs, err := s.repo.ListRequests(ctx, p.TenantID, "")
	if err != nil {
		return nil, apperr.Internal(err, "list access requests")
	}
	return reqs, nil
}

func (s *Service) MyAccessRequests(ctx context.Context, p *identity.Principal) ([]*AccessRequest, error) {
	reqs, err := s.repo.ListRequests(ctx, p.TenantID, p.ID)
	if err != nil {
		return nil, apperr.Internal(err, "list access requests")
	}
	return reqs, nil
}

// DecideAccessRequest approves or rejects a pending request. Approval adds
// the requester to the group in the same transaction, so a failed add
// leaves the request pending.
func (s *Service) DecideAccessRequest(ctx context.Context, p *identity.Principal, requestID string, status RequestStatus) (*AccessRequest, error) {
	if err := capability.DecideAccessRequest(p).Err(); err != nil {
		return nil, err
	}
	if status != RequestApproved && status != RequestRejected {
		return nil, apperr.Invalid("Status must be approved or rejected", map[string]string{"status": "invalid"})
	}

	req, err := s.repo.GetRequest(ctx, p.TenantID, requestID)
	if err != nil {
		return nil, apperr.Internal(err, "load access request")
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != RequestPending {
		return nil, ErrRequestDecided
	}

	now := time.Now().Unix()
	if status == RequestApproved {
		if err := s.members.Admit(ctx, req, p.ID, now); err != nil {
			return nil, err
		}
	} else {
		decided, err := s.repo.DecideRequest(ctx, p.TenantID, requestID, status, p.ID, now)
		if err != nil {
			return nil, apperr.Internal(err, "decide access request")
		}
		if !decided {
			return nil, ErrRequestDecided
		}
	}

	req.Status = status
	req.DecidedAt = &now
	req.DecidedBy = &p.ID
	s.activity.Log(ctx, p.TenantID, p.ID, audit.ActionAccessDecided, "Access request "+string(status), map[string]interface{}{
		"accessRequestId": req.ID,
		"workGroupId":     req.WorkGroupID,
		"userId":          req.UserID,
	})
	return req, nil
}
