package session

import "github.com/gorilla/sessions"

const (
	keyUserID       = "user_id"
	keyTenantID     = "tenant_id"
	keyIsSuperAdmin = "is_super_admin"
)

// Session is the authoritative per-client state. TenantID is the only tenant
// source consulted for regular users.
type Session struct {
	UserID       string `json:"userId,omitempty"`
	TenantID     string `json:"tenantId,omitempty"`
	IsSuperAdmin bool   `json:"isSuperAdmin,omitempty"`
}

func (s Session) IsZero() bool {
	return s.UserID == "" && s.TenantID == "" && !s.IsSuperAdmin
}

// FromValues reads the session fields out of a gorilla session.
func FromValues(values map[interface{}]interface{}) Session {
	var s Session
	s.UserID, _ = values[keyUserID].(string)
	s.TenantID, _ = values[keyTenantID].(string)
	s.IsSuperAdmin, _ = values[keyIsSuperAdmin].(bool)
	return s
}

func (s Session) apply(gs *sessions.Session) {
	gs.Values[keyUserID] = s.UserID
	gs.Values[keyTenantID] = s.TenantID
	gs.Values[keyIsSuperAdmin] = s.IsSuperAdmin
}

func clearValues(gs *sessions.Session) {
	delete(gs.Values, keyUserID)
	delete(gs.Values, keyTenantID)
	delete(gs.Values, keyIsSuperAdmin)
}
