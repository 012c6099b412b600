package middleware

import (
	"net/http"

	apiContext "dzemat/internal/api/context"
	"dzemat/internal/engine/features"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/platform/models"
)

type FeatureMiddleware struct {
	gate *features.Gate
}

func NewFeatureMiddleware(gate *features.Gate) *FeatureMiddleware {
	return &FeatureMiddleware{gate: gate}
}

// upgradeResponse extends the error envelope with plan metadata the client
// uses to render an upgrade prompt.
type upgradeResponse struct {
	apperr.ErrorResponse
	UpgradeRequired    bool                      `json:"upgradeRequired"`
	CurrentPlan        models.SubscriptionTier   `json:"currentPlan,omitempty"`
	RequiredPlan       models.SubscriptionTier   `json:"requiredPlan,omitempty"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscriptionStatus,omitempty"`
	ReadOnlyPreview    bool                      `json:"readOnlyPreview"`
}

// Require admits the request only when the principal's tenant plan enables
// module. Anonymous requests are rejected with 401.
func (m *FeatureMiddleware) Require(module string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			p := apiContext.PrincipalFrom(r.Context())
			decision, err := m.gate.Check(r.Context(), features.Subject{TenantID: p.TenantID, IsSuperAdmin: p.IsSuperAdmin}, module)
			if err != nil {
				apperr.Write(w, err)
				return
			}
			if decision.Allowed {
				next(w, r)
				return
			}

			code := apperr.ErrCodeUpgradeRequired
			if !decision.UpgradeRequired {
				code = apperr.ErrCodeSubscriptionInactive
			}
			apperr.WriteJSON(w, http.StatusForbidden, upgradeResponse{
				ErrorResponse: apperr.ErrorResponse{
					Error:   http.StatusText(http.StatusForbidden),
					Message: decision.Message,
					Code:    code,
				},
				UpgradeRequired:    decision.UpgradeRequired,
				CurrentPlan:        decision.CurrentPlan,
				RequiredPlan:       decision.RequiredPlan,
				SubscriptionStatus: decision.SubscriptionStatus,
				ReadOnlyPreview:    decision.Preview,
			})
		})
	}
}
