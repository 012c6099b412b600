package models

import "time"

const (
	// DefaultTenantID receives traffic that carries no tenant in its session.
	DefaultTenantID = "default-tenant-demo"
	// GlobalTenantID holds super-admin accounts only.
	GlobalTenantID = "tenant-superadmin-global"
)

type SubscriptionTier string

const (
	TierBasic    SubscriptionTier = "basic"
	TierStandard SubscriptionTier = "standard"
	TierFull     SubscriptionTier = "full"
)

type SubscriptionStatus string

const (
	StatusTrial    SubscriptionStatus = "trial"
	StatusActive   SubscriptionStatus = "active"
	StatusInactive SubscriptionStatus = "inactive"
)

type Tenant struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Code               string             `json:"code"`
	SubscriptionTier   SubscriptionTier   `json:"subscriptionTier"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	TrialEndsAt        *int64             `json:"trialEndsAt,omitempty"`
	IsActive           bool               `json:"isActive"`
	CreatedAt          int64              `json:"createdAt"`
}

// EffectiveStatus folds an expired trial into inactive.
func (t *Tenant) EffectiveStatus(now time.Time) SubscriptionStatus {
	if t.SubscriptionStatus == StatusTrial && t.TrialEndsAt != nil && *t.TrialEndsAt < now.Unix() {
		return StatusInactive
	}
	return t.SubscriptionStatus
}

const (
	RoleAdmin        = "admin"
	RoleBoardMember  = "clan_io"
	RoleMember       = "clan"
	RoleFamilyMember = "clan_porodice"
	RoleImam         = "imam"
)

type User struct {
	ID           string   `json:"id"`
	TenantID     string   `json:"tenantId"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Roles        []string `json:"roles"`
	IsAdmin      bool     `json:"isAdmin"`
	IsSuperAdmin bool     `json:"isSuperAdmin"`
	TotalPoints  int      `json:"totalPoints"`
	CreatedAt    int64    `json:"createdAt"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
