package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apiContext "dzemat/internal/api/context"
	"dzemat/internal/engine/features"
	"dzemat/internal/engine/identity"
	"dzemat/internal/platform/models"
	"dzemat/internal/platform/repositories"
	"dzemat/internal/platform/testutil"
)

func withPrincipal(r *http.Request, p *identity.Principal) context.Context {
	return context.WithValue(r.Context(), apiContext.Principal, p)
}

func TestFeatureMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedTenant(t, db, "basic", models.TierBasic, models.StatusActive)
	testutil.SeedTenant(t, db, "full", models.TierFull, models.StatusActive)
	testutil.SeedTenant(t, db, "lapsed", models.TierFull, models.StatusInactive)

	gate := features.NewGate(repositories.NewTenantRepository(db), features.DefaultCatalog())
	handler := NewFeatureMiddleware(gate).Require(features.ModuleTasks)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name      string
		principal *identity.Principal
		status    int
		code      string
		upgrade   bool
		current   string
		required  string
		subStatus string
	}{
		{name: "anonymous", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "full plan", principal: &identity.Principal{ID: "u", TenantID: "full"}, status: http.StatusNoContent},
		{name: "super admin", principal: &identity.Principal{ID: "s", TenantID: models.GlobalTenantID, IsSuperAdmin: true}, status: http.StatusNoContent},
		{
			name: "basic plan", principal: &identity.Principal{ID: "u", TenantID: "basic"},
			status: http.StatusForbidden, code: "UPGRADE_REQUIRED", upgrade: true,
			current: "basic", required: "standard", subStatus: "active",
		},
		{
			name: "inactive", principal: &identity.Principal{ID: "u", TenantID: "lapsed"},
			status: http.StatusForbidden, code: "SUBSCRIPTION_INACTIVE",
			current: "full", subStatus: "inactive",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/work-groups", nil)
			if tc.principal != nil {
				req = req.WithContext(withPrincipal(req, tc.principal))
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("Expected %d, got %d", tc.status, rec.Code)
			}
			if tc.code == "" {
				return
			}
			var body map[string]interface{}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body["code"] != tc.code {
				t.Errorf("Expected code %s, got %v", tc.code, body["code"])
			}
			if tc.status != http.StatusForbidden {
				return
			}
			if body["upgradeRequired"] != tc.upgrade {
				t.Errorf("Expected upgradeRequired=%v, got %v", tc.upgrade, body["upgradeRequired"])
			}
			if tc.current != "" && body["currentPlan"] != tc.current {
				t.Errorf("Expected currentPlan %s, got %v", tc.current, body["currentPlan"])
			}
			if tc.required != "" && body["requiredPlan"] != tc.required {
				t.Errorf("Expected requiredPlan %s, got %v", tc.required, body["requiredPlan"])
			}
			if body["subscriptionStatus"] != tc.subStatus {
				t.Errorf("Expected subscriptionStatus %s, got %v", tc.subStatus, body["subscriptionStatus"])
			}
		})
	}
}
