package features

import (
	"context"
	"fmt"
	"time"

	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/platform/models"
)

type TenantLookup interface {
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
}

// Subject is who is asking for a module.
type Subject struct {
	TenantID     string
	IsSuperAdmin bool
}

type Decision struct {
	Allowed            bool
	UpgradeRequired    bool
	CurrentPlan        models.SubscriptionTier
	RequiredPlan       models.SubscriptionTier
	SubscriptionStatus models.SubscriptionStatus
	// Preview marks a denied module the current plan may still show read-only.
	Preview            bool
	Message            string
}

type Gate struct {
	tenants TenantLookup
	catalog *Catalog
	now     func() time.Time
}

func NewGate(tenants TenantLookup, catalog *Catalog) *Gate {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Gate{tenants: tenants, catalog: catalog, now: time.Now}
}

func (g *Gate) Catalog() *Catalog {
	return g.catalog
}

// Check decides whether subject may use module. Denials come back as a
// Decision; errors are reserved for missing tenants and broken plan data.
func (g *Gate) Check(ctx context.Context, subject Subject, module string) (Decision, error) {
	if subject.IsSuperAdmin {
		return Decision{Allowed: true}, nil
	}
	if subject.TenantID == "" {
		return Decision{}, apperr.Unauthenticated("Authentication required")
	}

	tenant, err := g.tenants.GetByID(ctx, subject.TenantID)
	if err != nil {
		return Decision{}, apperr.Internal(err, "load tenant")
	}
	if tenant == nil {
		return Decision{}, apperr.NotFound("Tenant not found")
	}

	status := tenant.EffectiveStatus(g.now())
	if status != models.StatusActive && status != models.StatusTrial {
		return Decision{
			SubscriptionStatus: status,
			CurrentPlan:        tenant.SubscriptionTier,
			Message:            "Subscription inactive. Please contact support.",
		}, nil
	}

	plan, ok := g.catalog.Plan(tenant.SubscriptionTier)
	if !ok {
		return Decision{}, apperr.Internal(fmt.Errorf("unknown tier %q for tenant %s", tenant.SubscriptionTier, tenant.ID), "invalid subscription plan")
	}

	if plan.Enables(module) {
		return Decision{Allowed: true, CurrentPlan: plan.Slug, SubscriptionStatus: status}, nil
	}

	return Decision{
		UpgradeRequired:    true,
		CurrentPlan:        plan.Slug,
		RequiredPlan:       g.catalog.RequiredTier(module),
		SubscriptionStatus: status,
		Preview:            plan.Previews(module),
		Message:            fmt.Sprintf("Feature %q not available in your %s plan", g.catalog.DisplayName(module), plan.Name),
	}, nil
}

type SubscriptionInfo struct {
	TenantID           string                    `json:"tenantId"`
	TenantName         string                    `json:"tenantName"`
	SubscriptionTier   models.SubscriptionTier   `json:"subscriptionTier"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscriptionStatus"`
	Plan               *Plan                     `json:"plan"`
	TrialEndsAt        *int64                    `json:"trialEndsAt,omitempty"`
	IsActive           bool                      `json:"isActive"`
}

func (g *Gate) Info(ctx context.Context, tenantID string) (*SubscriptionInfo, error) {
	tenant, err := g.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, apperr.Internal(err, "load tenant")
	}
	if tenant == nil {
		return nil, apperr.NotFound("Tenant not found")
	}

	info := &SubscriptionInfo{
		TenantID:           tenant.ID,
		TenantName:         tenant.Name,
		SubscriptionTier:   tenant.SubscriptionTier,
		SubscriptionStatus: tenant.EffectiveStatus(g.now()),
		TrialEndsAt:        tenant.TrialEndsAt,
		IsActive:           tenant.IsActive,
	}
	if plan, ok := g.catalog.Plan(tenant.SubscriptionTier); ok {
		info.Plan = plan
	}
	return info, nil
}
