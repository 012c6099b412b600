package proposals

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"dzemat/internal/engine/capability"
	"dzemat/internal/engine/identity"
	"dzemat/internal/engine/workgroups"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/pkg/validator"
	"dzemat/internal/platform/audit"
)

const (
	maxWhatLength  = 500
	maxFieldLength = 5000
)

type Engine struct {
	repo     *Repository
	groups   Groups
	activity ActivityRecorder
	now      func() time.Time
}

func NewEngine(repo *Repository, groups Groups, activity ActivityRecorder) *Engine {
	return &Engine{repo: repo, groups: groups, activity: activity, now: time.Now}
}

// Viewer is the read and submit side of the workflow for one principal.
type Viewer struct {
	e *Engine
	p *identity.Principal
}

func (e *Engine) Viewer(p *identity.Principal) *Viewer {
	return &Viewer{e: e, p: p}
}

// Reviewer decides proposals. It can only be obtained for a tenant admin.
type Reviewer struct {
	e *Engine
	p *identity.Principal
}

func (e *Engine) Reviewer(p *identity.Principal) (*Reviewer, error) {
	if err := capability.DecideProposal(p).Err(); err != nil {
		return nil, err
	}
	return &Reviewer{e: e, p: p}, nil
}

type Input struct {
	WorkGroupID string  `json:"workGroupId"`
	What        *string `json:"what"`
	Where       *string `json:"where"`
	When        *string `json:"when"`
	How         *string `json:"how"`
	Why         *string `json:"why"`
	Budget      *string `json:"budget"`
}

// List returns proposals visible to the viewer, optionally filtered by status.
func (v *Viewer) List(ctx context.Context, status Status) ([]*Proposal, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Invalid("Unknown proposal status", map[string]string{"status": string(status)})
	}
	var (
		list []*Proposal
		err  error
	)
	if capability.ViewAllProposals(v.p).Allowed {
		list, err = v.e.repo.ListAll(ctx, v.p.TenantID, status)
	} else {
		list, err = v.e.repo.ListForMember(ctx, v.p.TenantID, v.p.ID, status)
	}
	if err != nil {
		return nil, apperr.Internal(err, "list proposals")
	}
	return list, nil
}

func (v *Viewer) Get(ctx context.Context, id string) (*Proposal, error) {
	p, err := v.e.load(ctx, v.p.TenantID, id)
	if err != nil {
		return nil, err
	}
	role, err := v.e.groups.Role(ctx, v.p.TenantID, p.WorkGroupID, v.p.ID)
	if err != nil {
		return nil, err
	}
	if err := capability.ViewProposal(v.p, role).Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func (v *Viewer) Create(ctx context.Context, in Input) (*Proposal, error) {
	g, err := v.e.groups.Group(ctx, v.p.TenantID, in.WorkGroupID)
	if err != nil {
		return nil, err
	}
	if g.Archived {
		return nil, workgroups.ErrGroupArchived
	}
	role, err := v.e.groups.Role(ctx, v.p.TenantID, g.ID, v.p.ID)
	if err != nil {
		return nil, err
	}
	if err := capability.CreateProposal(v.p, role).Err(); err != nil {
		return nil, err
	}

	p := &Proposal{
		ID:          "prop_" + uuid.New().String(),
		TenantID:    v.p.TenantID,
		WorkGroupID: g.ID,
		CreatedByID: v.p.ID,
		Status:      StatusPending,
		CreatedAt:   v.e.now().Unix(),
	}
	applyInput(p, in)
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := v.e.repo.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err, "create proposal")
	}
	v.e.activity.Log(ctx, v.p.TenantID, v.p.ID, audit.ActionProposalCreated, "Proposal submitted: "+p.What, map[string]interface{}{
		"proposalId":  p.ID,
		"workGroupId": p.WorkGroupID,
	})
	return p, nil
}

// Update edits a pending proposal. The work group cannot change.
func (v *Viewer) Update(ctx context.Context, id string, in Input) (*Proposal, error) {
	p, err := v.e.load(ctx, v.p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := capability.EditProposal(v.p, p.CreatedByID).Err(); err != nil {
		return nil, err
	}
	if p.Status != StatusPending {
		return nil, ErrNotPending
	}

	applyInput(p, in)
	if err := validate(p); err != nil {
		return nil, err
	}
	ok, err := v.e.repo.UpdatePending(ctx, p)
	if err != nil {
		return nil, apperr.Internal(err, "update proposal")
	}
	if !ok {
		return nil, ErrNotPending
	}
	v.e.activity.Log(ctx, v.p.TenantID, v.p.ID, audit.ActionProposalUpdated, "Proposal updated: "+p.What, map[string]interface{}{"proposalId": p.ID})
	return p, nil
}

func (r *Reviewer) Approve(ctx context.Context, id, comment string) (*Proposal, error) {
	var note *string
	if c := validator.RichText(comment); c != "" {
		note = &c
	}
	return r.decide(ctx, id, StatusApproved, note)
}

// Reject requires a non-blank comment explaining the decision.
func (r *Reviewer) Reject(ctx context.Context, id, comment string) (*Proposal, error) {
	c := validator.RichText(comment)
	if strings.TrimSpace(c) == "" {
		return nil, ErrCommentRequired
	}
	return r.decide(ctx, id, StatusRejected, &c)
}

func (r *Reviewer) decide(ctx context.Context, id string, status Status, comment *string) (*Proposal, error) {
	p, err := r.e.load(ctx, r.p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPending {
		return nil, ErrNotPending
	}

	at := r.e.now().Unix()
	ok, err := r.e.repo.Decide(ctx, r.p.TenantID, p.ID, status, r.p.ID, comment, at)
	if err != nil {
		return nil, apperr.Internal(err, "decide proposal")
	}
	if !ok {
		return nil, ErrNotPending
	}

	reviewer := r.p.ID
	p.Status = status
	p.ReviewedByID = &reviewer
	p.ReviewComment = comment
	p.ReviewedAt = &at

	action, verb := audit.ActionProposalApproved, "approved"
	if status == StatusRejected {
		action, verb = audit.ActionProposalRejected, "rejected"
	}
	r.e.activity.Log(ctx, r.p.TenantID, r.p.ID, action, "Proposal "+verb+": "+p.What, map[string]interface{}{
		"proposalId":  p.ID,
		"workGroupId": p.WorkGroupID,
	})
	return p, nil
}

func (e *Engine) load(ctx context.Context, tenantID, id string) (*Proposal, error) {
	p, err := e.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, apperr.Internal(err, "load proposal")
	}
	if p == nil {
		return nil, ErrProposalNotFound
	}
	return p, nil
}

func applyInput(p *Proposal, in Input) {
	set := func(dst *string, src *string, clean func(string) string) {
		if src != nil {
			*dst = clean(*src)
		}
	}
	set(&p.What, in.What, validator.Plain)
	set(&p.Where, in.Where, validator.Plain)
	set(&p.When, in.When, validator.Plain)
	set(&p.How, in.How, validator.RichText)
	set(&p.Why, in.Why, validator.RichText)
	set(&p.Budget, in.Budget, validator.Plain)
}

func validate(p *Proposal) error {
	errs := validator.FieldErrors{}
	errs.Required("what", p.What)
	errs.MaxLength("what", p.What, maxWhatLength)
	errs.MaxLength("how", p.How, maxFieldLength)
	errs.MaxLength("why", p.Why, maxFieldLength)
	if !errs.Empty() {
		return apperr.Invalid("Invalid proposal", errs)
	}
	return nil
}
