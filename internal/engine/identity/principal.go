package identity

import "dzemat/internal/platform/models"

// Principal is the resolved identity used for every authorization decision.
type Principal struct {
	ID           string   `json:"id"`
	TenantID     string   `json:"tenantId"`
	IsAdmin      bool     `json:"isAdmin"`
	IsSuperAdmin bool     `json:"isSuperAdmin"`
	Roles        []string `json:"roles"`
	Username     string   `json:"username"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
}

func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsBoardMember reports the cross-cutting clan_io role.
func (p *Principal) IsBoardMember() bool {
	return p.HasRole(models.RoleBoardMember)
}

func (p *Principal) DisplayName() string {
	if p.FirstName == "" && p.LastName == "" {
		return p.Username
	}
	return p.FirstName + " " + p.LastName
}
