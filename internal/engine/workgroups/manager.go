package workgroups

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dzemat/internal/engine/capability"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/platform/audit"
)

// Manager owns work-group membership. It performs no authorization; callers
// check capabilities first.
type Manager struct {
	repo     *Repository
	users    UserLookup
	activity ActivityRecorder
}

func NewManager(repo *Repository, users UserLookup, activity ActivityRecorder) *Manager {
	return &Manager{repo: repo, users: users, activity: activity}
}

// Group loads a work group or returns ErrWorkGroupNotFound.
func (m *Manager) Group(ctx context.Context, tenantID, groupID string) (*WorkGroup, error) {
	g, err := m.repo.GetGroup(ctx, tenantID, groupID)
	if err != nil {
		return nil, apperr.Internal(err, "load work group")
	}
	if g == nil {
		return nil, ErrWorkGroupNotFound
	}
	return g, nil
}

// AddMember is idempotent: adding an existing member returns the existing
// row and added=false.
func (m *Manager) AddMember(ctx context.Context, tenantID, groupID, userID, actorID string) (*Member, bool, error) {
	if _, err := m.Group(ctx, tenantID, groupID); err != nil {
		return nil, false, err
	}
	user, err := m.users.GetByID(ctx, tenantID, userID)
	if err != nil {
		return nil, false, apperr.Internal(err, "load user")
	}
	if user == nil {
		return nil, false, ErrUserNotFound
	}

	member := &Member{
		ID:          "wgm_" + uuid.New().String(),
		WorkGroupID: groupID,
		UserID:      userID,
		JoinedAt:    time.Now().Unix(),
	}
	added, err := m.repo.InsertMember(ctx, tenantID, member)
	if err != nil {
		return nil, false, apperr.Internal(err, "insert member")
	}
	if !added {
		existing, err := m.repo.GetMember(ctx, tenantID, groupID, userID)
		if err != nil {
			return nil, false, apperr.Internal(err, "load member")
		}
		return existing, false, nil
	}

	m.activity.Log(ctx, tenantID, actorID, audit.ActionMemberAdded, "Member added to work group", map[string]interface{}{
		"workGroupId": groupID,
		"userId":      userID,
	})
	return member, true, nil
}

// Admit approves a pending access request and adds its requester in one
// step. Nothing is written when the group or the user no longer resolves.
func (m *Manager) Admit(ctx context.Context, req *AccessRequest, actorID string, at int64) error {
	if _, err := m.Group(ctx, req.TenantID, req.WorkGroupID); err != nil {
		return err
	}
	user, err := m.users.GetByID(ctx, req.TenantID, req.UserID)
	if err != nil {
		return apperr.Internal(err, "load user")
	}
	if user == nil {
		return ErrUserNotFound
	}

	member := &Member{
		ID:          "wgm_" + uuid.New().String(),
		WorkGroupID: req.WorkGroupID,
		UserID:      req.UserID,
		JoinedAt:    at,
	}
	decided, added, err := m.repo.ApproveRequest(ctx, req.TenantID, req.ID, actorID, at, member)
	if err != nil {
		return apperr.Internal(err, "approve access request")
	}
	if !decided {
		return ErrRequestDecided
	}
	if added {
		m.activity.Log(ctx, req.TenantID, actorID, audit.ActionMemberAdded, "Member added to work group", map[string]interface{}{
			"workGroupId": req.WorkGroupID,
			"userId":      req.UserID,
		})
	}
	return nil
}

func (m *Manager) RemoveMember(ctx context.Context, tenantID, groupID, userID, actorID string) error {
	removed, err := m.repo.DeleteMember(ctx, tenantID, groupID, userID)
	if err != nil {
		return apperr.Internal(err, "delete member")
	}
	if !removed {
		return ErrNotMember
	}

	m.activity.Log(ctx, tenantID, actorID, audit.ActionMemberRemoved, "Member removed from work group", map[string]interface{}{
		"workGroupId": groupID,
		"userId":      userID,
	})
	return nil
}

func (m *Manager) SetModerator(ctx context.Context, tenantID, groupID, userID string, flag bool, actorID string) error {
	updated, err := m.repo.SetModerator(ctx, tenantID, groupID, userID, flag)
	if err != nil {
		return apperr.Internal(err, "update moderator flag")
	}
	if !updated {
		return ErrNotMember
	}

	m.activity.Log(ctx, tenantID, actorID, audit.ActionModeratorChanged, "Moderator flag changed", map[string]interface{}{
		"workGroupId": groupID,
		"userId":      userID,
		"isModerator": flag,
	})
	return nil
}

// Role reports userID's standing in the group.
func (m *Manager) Role(ctx context.Context, tenantID, groupID, userID string) (capability.GroupRole, error) {
	member, err := m.repo.GetMember(ctx, tenantID, groupID, userID)
	if err != nil {
		return capability.GroupRole{}, apperr.Internal(err, "load member")
	}
	if member == nil {
		return capability.GroupRole{}, nil
	}
	return capability.GroupRole{IsMember: true, IsModerator: member.IsModerator}, nil
}

func (m *Manager) IsMember(ctx context.Context, tenantID, groupID, userID string) (bool, error) {
	role, err := m.Role(ctx, tenantID, groupID, userID)
	return role.IsMember, err
}

func (m *Manager) IsModerator(ctx context.Context, tenantID, groupID, userID string) (bool, error) {
	role, err := m.Role(ctx, tenantID, groupID, userID)
	return role.IsModerator, err
}

func (m *Manager) Memberships(ctx context.Context, tenantID, userID string) ([]*Membership, error) {
	ms, err := m.repo.ListMemberships(ctx, tenantID, userID)
	if err != nil {
		return nil, apperr.Internal(err, "list memberships")
	}
	return ms, nil
}
