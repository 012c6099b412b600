package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apiContext "dzemat/internal/api/context"
	"dzemat/internal/engine/identity"
	"dzemat/internal/platform/auth"
	"dzemat/internal/platform/config"
	"dzemat/internal/platform/models"
	"dzemat/internal/platform/repositories"
	"dzemat/internal/platform/session"
	"dzemat/internal/platform/testutil"
)

type identityFixture struct {
	sessions   *session.Manager
	tokens     *auth.TokenService
	middleware *IdentityMiddleware
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.SeedTenant(t, db, "tenant_a", models.TierFull, models.StatusActive)
	testutil.SeedTenant(t, db, "tenant_b", models.TierFull, models.StatusActive)
	testutil.SeedUser(t, db, "tenant_a", "alice")

	sessions := session.NewManager(session.NewSQLStore(db, []byte("0123456789abcdef0123456789abcdef")), "dzemat_session")
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})
	resolver := identity.NewResolver(
		repositories.NewUserRepository(db),
		repositories.NewTenantRepository(db),
		identity.NewSuperAdminCache(time.Minute),
	)
	return &identityFixture{
		sessions:   sessions,
		tokens:     tokens,
		middleware: NewIdentityMiddleware(sessions, tokens, identity.NewTenantResolver("tenant_a"), resolver),
	}
}

// startSession stores sess and returns the cookie the client would send back.
func (f *identityFixture) startSession(t *testing.T, sess session.Session) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	gs, _ := f.sessions.Load(req)
	if err := f.sessions.Start(rec, req, gs, sess); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected a session cookie")
	}
	return cookies[0]
}

type seen struct {
	principal *identity.Principal
	tenant    string
}

func (f *identityFixture) serve(req *http.Request) (*httptest.ResponseRecorder, *seen) {
	var s *seen
	handler := f.middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
		s = &seen{
			principal: apiContext.PrincipalFrom(r.Context()),
			tenant:    apiContext.TenantFrom(r.Context()),
		}
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec, s
}

func TestIdentity_CookieSession(t *testing.T) {
	f := newIdentityFixture(t)
	cookie := f.startSession(t, session.Session{UserID: "alice", TenantID: "tenant_a"})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookie)
	_, s := f.serve(req)

	if s == nil || s.principal == nil {
		t.Fatal("Expected a resolved principal")
	}
	if s.principal.ID != "alice" || s.tenant != "tenant_a" {
		t.Errorf("Unexpected identity %+v in tenant %s", s.principal, s.tenant)
	}
}

func TestIdentity_Anonymous(t *testing.T) {
	f := newIdentityFixture(t)
	_, s := f.serve(httptest.NewRequest(http.MethodGet, "/api/tenant/current", nil))

	if s.principal != nil {
		t.Errorf("Expected no principal, got %+v", s.principal)
	}
	if s.tenant != "tenant_a" {
		t.Errorf("Expected default tenant, got %s", s.tenant)
	}
}

func TestIdentity_CrossTenantSessionIsCleared(t *testing.T) {
	f := newIdentityFixture(t)
	// alice belongs to tenant_a; a session naming tenant_b must not resolve.
	cookie := f.startSession(t, session.Session{UserID: "alice", TenantID: "tenant_b"})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookie)
	rec, s := f.serve(req)

	if s.principal != nil {
		t.Fatalf("Expected no principal, got %+v", s.principal)
	}
	var expired bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookie.Name && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Error("Expected the session cookie to be expired")
	}
}

func TestIdentity_BearerToken(t *testing.T) {
	f := newIdentityFixture(t)
	token, _, err := f.tokens.GenerateAccessToken(session.Session{UserID: "alice", TenantID: "tenant_a"})
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, s := f.serve(req)
	if s == nil || s.principal == nil || s.principal.ID != "alice" {
		t.Fatalf("Expected alice from bearer token, got %+v", s)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec, s := f.serve(req)
	if rec.Code != http.StatusUnauthorized || s != nil {
		t.Errorf("Expected 401 without reaching the handler, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name      string
		principal *identity.Principal
		want      int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", &identity.Principal{ID: "u1", TenantID: "t"}, http.StatusForbidden},
		{"admin", &identity.Principal{ID: "u2", TenantID: "t", IsAdmin: true}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.principal != nil {
				req = req.WithContext(withPrincipal(req, tc.principal))
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, rec.Code)
			}
			if rec.Code >= 400 {
				var body map[string]interface{}
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["code"] == "" {
					t.Errorf("Expected an error envelope, got %v (%v)", body, err)
				}
			}
		})
	}
}
