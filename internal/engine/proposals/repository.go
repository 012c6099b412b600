package proposals

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const proposalColumns = `p.id, p.tenant_id, p.work_group_id, p.created_by_id, p.what, p."where", p."when",
	p.how, p.why, p.budget, p.status, p.reviewed_by_id, p.review_comment, p.reviewed_at, p.created_at`

func (r *Repository) Create(ctx context.Context, p *Proposal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO proposals (id, tenant_id, work_group_id, created_by_id, what, "where", "when", how, why, budget, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.TenantID, p.WorkGroupID, p.CreatedByID, p.What, p.Where, p.When, p.How, p.Why, p.Budget, p.Status, p.CreatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, tenantID, id string) (*Proposal, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals p WHERE p.tenant_id = ? AND p.id = ?`, tenantID, id)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// UpdatePending rewrites the free-text fields of a proposal still pending.
func (r *Repository) UpdatePending(ctx context.Context, p *Proposal) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE proposals SET what = ?, "where" = ?, "when" = ?, how = ?, why = ?, budget = ?
		WHERE tenant_id = ? AND id = ? AND status = 'pending'
	`, p.What, p.Where, p.When, p.How, p.Why, p.Budget, p.TenantID, p.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Decide moves a pending proposal to its final status. Only one caller wins.
func (r *Repository) Decide(ctx context.Context, tenantID, id string, status Status, reviewerID string, comment *string, at int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE proposals SET status = ?, reviewed_by_id = ?, review_comment = ?, reviewed_at = ?
		WHERE tenant_id = ? AND id = ? AND status = 'pending'
	`, status, reviewerID, comment, at, tenantID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) ListAll(ctx context.Context, tenantID string, status Status) ([]*Proposal, error) {
	return r.list(ctx, `
		SELECT `+proposalColumns+` FROM proposals p
		WHERE p.tenant_id = ? AND (? = '' OR p.status = ?)
		ORDER BY p.created_at DESC, p.id
	`, tenantID, status, status)
}

// ListForMember returns proposals of the groups userID belongs to.
func (r *Repository) ListForMember(ctx context.Context, tenantID, userID string, status Status) ([]*Proposal, error) {
	return r.list(ctx, `
		SELECT `+proposalColumns+` FROM proposals p
		JOIN work_group_members m ON m.work_group_id = p.work_group_id AND m.tenant_id = p.tenant_id
		WHERE p.tenant_id = ? AND m.user_id = ? AND (? = '' OR p.status = ?)
		ORDER BY p.created_at DESC, p.id
	`, tenantID, userID, status, status)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*Proposal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	proposals := []*Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

func scanProposal(s interface {
	Scan(dest ...interface{}) error
}) (*Proposal, error) {
	p := &Proposal{}
	if err := s.Scan(&p.ID, &p.TenantID, &p.WorkGroupID, &p.CreatedByID, &p.What, &p.Where, &p.When,
		&p.How, &p.Why, &p.Budget, &p.Status, &p.ReviewedByID, &p.ReviewComment, &p.ReviewedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}
