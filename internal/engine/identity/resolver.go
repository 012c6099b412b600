package identity

import (
	"context"

	"github.com/rs/zerolog/log"

	"dzemat/internal/platform/models"
	"dzemat/internal/platform/session"
)

type UserLookup interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.User, error)
}

type TenantLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Outcome is the result of resolving a session. ClearSession asks the caller
// to wipe the session it passed in.
type Outcome struct {
	Principal    *Principal
	ClearSession bool
}

func anonymous() Outcome { return Outcome{} }

func cleared() Outcome { return Outcome{ClearSession: true} }

type Resolver struct {
	users   UserLookup
	tenants TenantLister
	cache   *SuperAdminCache
}

func NewResolver(users UserLookup, tenants TenantLister, cache *SuperAdminCache) *Resolver {
	return &Resolver{users: users, tenants: tenants, cache: cache}
}

// Resolve turns a session into a principal. It reads nothing but sess and
// the user store.
func (r *Resolver) Resolve(ctx context.Context, sess session.Session) Outcome {
	if sess.UserID == "" {
		return anonymous()
	}

	if sess.IsSuperAdmin {
		return r.resolveSuperAdmin(ctx, sess)
	}

	if sess.TenantID == "" {
		log.Warn().Str("user_id", sess.UserID).Msg("session without tenant, clearing")
		return cleared()
	}

	user, err := r.users.GetByID(ctx, sess.TenantID, sess.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", sess.UserID).Str("tenant_id", sess.TenantID).Msg("user lookup failed, clearing session")
		return cleared()
	}
	if user == nil {
		return cleared()
	}

	return Outcome{Principal: &Principal{
		ID:        user.ID,
		TenantID:  sess.TenantID,
		IsAdmin:   user.IsAdmin || user.HasRole(models.RoleImam),
		Roles:     user.Roles,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}}
}

func (r *Resolver) resolveSuperAdmin(ctx context.Context, sess session.Session) Outcome {
	user, err := r.lookupSuperAdmin(ctx, sess.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", sess.UserID).Msg("super-admin lookup failed, clearing session")
		return cleared()
	}
	if user == nil {
		return cleared()
	}

	return Outcome{Principal: &Principal{
		ID:           user.ID,
		TenantID:     models.GlobalTenantID,
		IsAdmin:      true,
		IsSuperAdmin: true,
		Roles:        user.Roles,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
	}}
}

func (r *Resolver) lookupSuperAdmin(ctx context.Context, userID string) (*models.User, error) {
	user, err := r.users.GetByID(ctx, models.GlobalTenantID, userID)
	if err != nil || user != nil {
		return user, err
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(userID); ok {
			// The cache only remembers where the account lives; the flag is re-read.
			current, err := r.users.GetByID(ctx, cached.TenantID, userID)
			if err != nil {
				return nil, err
			}
			if current != nil && current.IsSuperAdmin {
				return current, nil
			}
			r.cache.Invalidate(userID)
			return nil, nil
		}
	}

	// Accounts created before the global tenant existed live in ordinary tenants.
	tenantIDs, err := r.tenants.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, tenantID := range tenantIDs {
		if tenantID == models.GlobalTenantID {
			continue
		}
		candidate, err := r.users.GetByID(ctx, tenantID, userID)
		if err != nil {
			return nil, err
		}
		if candidate != nil && candidate.IsSuperAdmin {
			log.Warn().Str("user_id", userID).Str("tenant_id", tenantID).Msg("super-admin found outside global tenant")
			if r.cache != nil {
				r.cache.Set(candidate)
			}
			return candidate, nil
		}
	}

	return nil, nil
}
