// Package capability holds every role check used by the workflow engines.
// Each predicate is pure: it sees the principal and the facts the caller
// loaded, never the store.
package capability

import (
	"dzemat/internal/engine/identity"
	apperr "dzemat/internal/pkg/errors"
)

type Outcome struct {
	Allowed bool
	Reason  string
}

func Allow() Outcome { return Outcome{Allowed: true} }

func Deny(reason string) Outcome { return Outcome{Reason: reason} }

// Err converts a denial into an AuthorizationDenied error.
func (o Outcome) Err() error {
	if o.Allowed {
		return nil
	}
	return apperr.Forbidden(o.Reason)
}

// GroupRole is the principal's standing inside one work group.
type GroupRole struct {
	IsMember    bool
	IsModerator bool
}

func (r GroupRole) moderates() bool { return r.IsMember && r.IsModerator }

func AdminOnly(p *identity.Principal, action string) Outcome {
	if p.IsAdmin {
		return Allow()
	}
	return Deny("Only administrators can " + action)
}

func ViewAllWorkGroups(p *identity.Principal) Outcome {
	if p.IsAdmin || p.IsBoardMember() {
		return Allow()
	}
	return Deny("Not allowed to view every work group")
}

func ViewWorkGroup(p *identity.Principal, role GroupRole) Outcome {
	if role.IsMember || ViewAllWorkGroups(p).Allowed {
		return Allow()
	}
	return Deny("Not a member of this work group")
}

func EditWorkGroup(p *identity.Principal, role GroupRole) Outcome {
	if p.IsAdmin || role.moderates() {
		return Allow()
	}
	return Deny("Only administrators or moderators can edit this work group")
}

func ManageMembers(p *identity.Principal, role GroupRole) Outcome {
	if p.IsAdmin || role.moderates() {
		return Allow()
	}
	return Deny("Only administrators or moderators can manage members")
}

func RemoveMember(p *identity.Principal, role GroupRole, targetUserID string) Outcome {
	if p.ID == targetUserID {
		return Allow()
	}
	return ManageMembers(p, role)
}

func SetModerator(p *identity.Principal) Outcome {
	return AdminOnly(p, "assign moderators")
}

func DecideAccessRequest(p *identity.Principal) Outcome {
	return AdminOnly(p, "decide access requests")
}

func CreateTask(p *identity.Principal, role GroupRole) Outcome {
	if p.IsAdmin || role.moderates() {
		return Allow()
	}
	return Deny("Only administrators or moderators can create tasks")
}

func EditTask(p *identity.Principal, role GroupRole) Outcome {
	if p.IsAdmin || role.moderates() {
		return Allow()
	}
	return Deny("Only administrators or moderators can edit tasks")
}

// MarkPending lets an assignee report a task as done.
func MarkPending(p *identity.Principal, assignees []string) Outcome {
	for _, id := range assignees {
		if id == p.ID {
			return Allow()
		}
	}
	return Deny("Only assigned users can submit a task for approval")
}

func ApproveTask(p *identity.Principal, role GroupRole) Outcome {
	if p.IsAdmin || role.moderates() {
		return Allow()
	}
	return Deny("Only administrators or moderators can complete tasks")
}

func CommentOnTask(p *identity.Principal, role GroupRole) Outcome {
	if p.IsAdmin || role.IsMember {
		return Allow()
	}
	return Deny("Only work group members can comment")
}

func DeleteComment(p *identity.Principal, role GroupRole, authorID string) Outcome {
	if p.IsAdmin || role.moderates() || p.ID == authorID {
		return Allow()
	}
	return Deny("Only the author, moderators or administrators can delete comments")
}

func CreateProposal(p *identity.Principal, role GroupRole) Outcome {
	if p.IsAdmin || role.IsMember {
		return Allow()
	}
	return Deny("Only work group members can submit proposals")
}

func EditProposal(p *identity.Principal, creatorID string) Outcome {
	if p.IsAdmin || p.ID == creatorID {
		return Allow()
	}
	return Deny("Only the author or administrators can edit proposals")
}

func ViewAllProposals(p *identity.Principal) Outcome {
	if p.IsAdmin || p.IsBoardMember() {
		return Allow()
	}
	return Deny("Not allowed to view every proposal")
}

func ViewProposal(p *identity.Principal, role GroupRole) Outcome {
	if role.IsMember || ViewAllProposals(p).Allowed {
		return Allow()
	}
	return Deny("Not a member of this work group")
}

// DecideProposal is tenant-admin only; clan_io board members view but never decide.
func DecideProposal(p *identity.Principal) Outcome {
	return AdminOnly(p, "approve or reject proposals")
}
