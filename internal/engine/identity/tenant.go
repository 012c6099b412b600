package identity

import (
	"dzemat/internal/platform/models"
	"dzemat/internal/platform/session"
)

// TenantResolver maps a session to the tenant its request belongs to.
type TenantResolver struct {
	defaultTenantID string
}

func NewTenantResolver(defaultTenantID string) *TenantResolver {
	if defaultTenantID == "" {
		defaultTenantID = models.DefaultTenantID
	}
	return &TenantResolver{defaultTenantID: defaultTenantID}
}

// Resolve never consults headers or hostnames; the session is the only input.
func (r *TenantResolver) Resolve(sess session.Session) string {
	if sess.TenantID != "" {
		return sess.TenantID
	}
	return r.defaultTenantID
}
