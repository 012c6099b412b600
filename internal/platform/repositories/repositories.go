package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"dzemat/internal/platform/models"
)

type TenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, name, code, subscription_tier, subscription_status, trial_ends_at, is_active, created_at`

func (r *TenantRepository) Create(ctx context.Context, t *models.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Code, t.SubscriptionTier, t.SubscriptionStatus, t.TrialEndsAt, t.IsActive, t.CreatedAt)
	return err
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	return scanTenant(row)
}

func (r *TenantRepository) GetByCode(ctx context.Context, code string) (*models.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE code = ?`, code)
	return scanTenant(row)
}

// ListIDs returns every tenant id, global tenant included.
func (r *TenantRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *TenantRepository) UpdateSubscription(ctx context.Context, id string, tier models.SubscriptionTier, status models.SubscriptionStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tenants SET subscription_tier = ?, subscription_status = ? WHERE id = ?`, tier, status, id)
	return err
}

// ExpireTrials marks lapsed trials inactive and reports how many changed.
func (r *TenantRepository) ExpireTrials(ctx context.Context, now int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET subscription_status = 'inactive'
		WHERE subscription_status = 'trial' AND trial_ends_at IS NOT NULL AND trial_ends_at < ?
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanTenant(row *sql.Row) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(&t.ID, &t.Name, &t.Code, &t.SubscriptionTier, &t.SubscriptionStatus, &t.TrialEndsAt, &t.IsActive, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, tenant_id, username, email, password_hash, first_name, last_name, roles, is_admin, is_super_admin, total_points, created_at`

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	roles, err := json.Marshal(rolesOrEmpty(u.Roles))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.TenantID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, string(roles), u.IsAdmin, u.IsSuperAdmin, u.TotalPoints, u.CreatedAt)
	return err
}

// GetByID looks the user up inside one tenant only.
func (r *UserRepository) GetByID(ctx context.Context, tenantID, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, tenantID, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND username = ?`, tenantID, username)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context, tenantID string) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE tenant_id = ? ORDER BY last_name, first_name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE tenant_id = ?`, tenantID).Scan(&n)
	return n, err
}

func (r *UserRepository) AddPoints(ctx context.Context, tenantID, userID string, points int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET total_points = total_points + ? WHERE tenant_id = ? AND id = ?`, points, tenantID, userID)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	var roles string
	err := s.Scan(&u.ID, &u.TenantID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &roles, &u.IsAdmin, &u.IsSuperAdmin, &u.TotalPoints, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if roles != "" {
		if err := json.Unmarshal([]byte(roles), &u.Roles); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func rolesOrEmpty(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
