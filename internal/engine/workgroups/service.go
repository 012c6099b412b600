package workgroups

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dzemat/internal/engine/capability"
	"dzemat/internal/engine/identity"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/pkg/validator"
	"dzemat/internal/platform/audit"
)

// Service exposes work-group operations on behalf of a principal.
type Service struct {
	repo     *Repository
	members  *Manager
	activity ActivityRecorder
}

func NewService(repo *Repository, members *Manager, activity ActivityRecorder) *Service {
	return &Service{repo: repo, members: members, activity: activity}
}

func (s *Service) Members() *Manager {
	return s.members
}

type GroupInput struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Visibility  *Visibility `json:"visibility"`
}

// List returns the groups p may see. Admins and board members see private
// groups; archived groups are shown to admins only.
func (s *Service) List(ctx context.Context, p *identity.Principal) ([]*WorkGroup, error) {
	groups, err := s.repo.ListGroups(ctx, p.TenantID)
	if err != nil {
		return nil, apperr.Internal(err, "list work groups")
	}

	seeAll := capability.ViewAllWorkGroups(p).Allowed
	memberOf := map[string]bool{}
	if !seeAll {
		memberships, err := s.members.Memberships(ctx, p.TenantID, p.ID)
		if err != nil {
			return nil, err
		}
		for _, ms := range memberships {
			memberOf[ms.WorkGroup.ID] = true
		}
	}

	visible := make([]*WorkGroup, 0, len(groups))
	for _, g := range groups {
		if g.Archived && !p.IsAdmin {
			continue
		}
		if seeAll || g.Visibility == VisibilityPublic || memberOf[g.ID] {
			visible = append(visible, g)
		}
	}
	return visible, nil
}

func (s *Service) Get(ctx context.Context, p *identity.Principal, groupID string) (*WorkGroup, error) {
	g, err := s.members.Group(ctx, p.TenantID, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, p, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) Create(ctx context.Context, p *identity.Principal, in GroupInput) (*WorkGroup, error) {
	if err := capability.AdminOnly(p, "create work groups").Err(); err != nil {
		return nil, err
	}

	g := &WorkGroup{
		ID:         "wg_" + uuid.New().String(),
		TenantID:   p.TenantID,
		Visibility: VisibilityPublic,
		CreatedAt:  time.Now().Unix(),
	}
	if err := applyGroupInput(g, in); err != nil {
		return nil, err
	}

	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return nil, apperr.Internal(err, "create work group")
	}
	s.activity.Log(ctx, p.TenantID, p.ID, audit.ActionWorkGroupCreated, "Work group created: "+g.Name, map[string]interface{}{"workGroupId": g.ID})
	return g, nil
}

func (s *Service) Update(ctx context.Context, p *identity.Principal, groupID string, in GroupInput) (*WorkGroup, error) {
	g, err := s.members.Group(ctx, p.TenantID, groupID)
	if err != nil {
		return nil, err
	}
	role, err := s.members.Role(ctx, p.TenantID, groupID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := capability.EditWorkGroup(p, role).Err(); err != nil {
		return nil, err
	}

	if err := applyGroupInput(g, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateGroup(ctx, g); err != nil {
		return nil, apperr.Internal(err, "update work group")
	}
	s.activity.Log(ctx, p.TenantID, p.ID, audit.ActionWorkGroupUpdated, "Work group updated: "+g.Name, map[string]interface{}{"workGroupId": g.ID})
	return g, nil
}

// ToggleArchive flips the archived flag.
func (s *Service) ToggleArchive(ctx context.Context, p *identity.Principal, groupID string) (*WorkGroup, error) {
	if err := capability.AdminOnly(p, "archive work groups").Err(); err != nil {
		return nil, err
	}
	g, err := s.members.Group(ctx, p.TenantID, groupID)
	if err != nil {
		return nil, err
	}

	g.Archived = !g.Archived
	if err := s.repo.UpdateGroup(ctx, g); err != nil {
		return nil, apperr.Internal(err, "archive work group")
	}
	s.activity.Log(ctx, p.TenantID, p.ID, audit.ActionWorkGroupArchived, "Work group archive toggled: "+g.Name, map[string]interface{}{
		"workGroupId": g.ID,
		"archived":    g.Archived,
	})
	return g, nil
}

func (s *Service) Delete(ctx context.Context, p *identity.Principal, groupID string) error {
	if err := capability.AdminOnly(p, "delete work groups").Err(); err != nil {
		return err
	}
	g, err := s.members.Group(ctx, p.TenantID, groupID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteGroup(ctx, p.TenantID, g.ID); err != nil {
		return apperr.Internal(err, "delete work group")
	}
	s.activity.Log(ctx, p.TenantID, p.ID, audit.ActionWorkGroupDeleted, "Work group deleted: "+g.Name, map[string]interface{}{"workGroupId": g.ID})
	return nil
}

func (s *Service) ListMembers(ctx context.Context, p *identity.Principal, groupID string, moderatorsOnly bool) ([]*Member, error) {
	g, err := s.members.Group(ctx, p.TenantID, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, p, g); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, p.TenantID, groupID, moderatorsOnly)
	if err != nil {
		return nil, apperr.Internal(err, "list members")
	}
	return members, nil
}

// AddMember reports an existing membership as a conflict to the caller;
// the underlying Manager.AddMember stays idempotent.
func (s *Service) AddMember(ctx context.Context, p *identity.Principal, groupID, userID string) (*Member, error) {
	if _, err := s.members.Group(ctx, p.TenantID, groupID); err != nil {
		return nil, err
	}
	role, err := s.members.Role(ctx, p.TenantID, groupID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := capability.ManageMembers(p, role).Err(); err != nil {
		return nil, err
	}

	member, added, err := s.members.AddMember(ctx, p.TenantID, groupID, userID, p.ID)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, ErrAlreadyMember
	}
	return member, nil
}

func (s *Service) RemoveMember(ctx context.Context, p *identity.Principal, groupID, userID string) error {
	if _, err := s.members.Group(ctx, p.TenantID, groupID); err != nil {
		return err
	}
	role, err := s.members.Role(ctx, p.TenantID, groupID, p.ID)
	if err != nil {
		return err
	}
	if err := capability.RemoveMember(p, role, userID).Err(); err != nil {
		return err
	}
	return s.members.RemoveMember(ctx, p.TenantID, groupID, userID, p.ID)
}

func (s *Service) SetModerator(ctx context.Context, p *identity.Principal, groupID, userID string, flag bool) error {
	if err := capability.SetModerator(p).Err(); err != nil {
		return err
	}
	if _, err := s.members.Group(ctx, p.TenantID, groupID); err != nil {
		return err
	}
	return s.members.SetModerator(ctx, p.TenantID, groupID, userID, flag, p.ID)
}

// UserGroups lists another user's memberships; users may always list their own.
func (s *Service) UserGroups(ctx context.Context, p *identity.Principal, userID string) ([]*Membership, error) {
	if userID != p.ID && !capability.ViewAllWorkGroups(p).Allowed {
		return nil, apperr.Forbidden("Not allowed to view this user's work groups")
	}
	return s.members.Memberships(ctx, p.TenantID, userID)
}

func (s *Service) authorizeView(ctx context.Context, p *identity.Principal, g *WorkGroup) error {
	if g.Visibility == VisibilityPublic && !g.Archived {
		return nil
	}
	role, err := s.members.Role(ctx, p.TenantID, g.ID, p.ID)
	if err != nil {
		return err
	}
	return capability.ViewWorkGroup(p, role).Err()
}

func applyGroupInput(g *WorkGroup, in GroupInput) error {
	errs := validator.FieldErrors{}
	if in.Name != nil {
		g.Name = validator.Plain(*in.Name)
	}
	if in.Description != nil {
		g.Description = validator.RichText(*in.Description)
	}
	if in.Visibility != nil {
		if !in.Visibility.Valid() {
			errs["visibility"] = "must be javna or privatna"
		}
		g.Visibility = *in.Visibility
	}
	errs.Required("name", g.Name)
	errs.MaxLength("name", g.Name, 200)
	if !errs.Empty() {
		return apperr.Invalid("Invalid work group", errs)
	}
	return nil
}
