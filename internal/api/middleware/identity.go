package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"

	apiContext "dzemat/internal/api/context"
	"dzemat/internal/engine/identity"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/platform/auth"
	"dzemat/internal/platform/session"
)

// IdentityMiddleware resolves the tenant and principal of every request.
// Cookie sessions are the primary source; a bearer token is accepted in
// their place and resolved the same way.
type IdentityMiddleware struct {
	sessions *session.Manager
	tokens   *auth.TokenService
	tenants  *identity.TenantResolver
	resolver *identity.Resolver
}

func NewIdentityMiddleware(sessions *session.Manager, tokens *auth.TokenService, tenants *identity.TenantResolver, resolver *identity.Resolver) *IdentityMiddleware {
	return &IdentityMiddleware{sessions: sessions, tokens: tokens, tenants: tenants, resolver: resolver}
}

func (m *IdentityMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			gs   *sessions.Session
			sess session.Session
		)

		if token, ok := bearerToken(r); ok {
			claims, err := m.tokens.ValidateToken(token)
			if err != nil {
				apperr.WriteError(w, http.StatusUnauthorized, apperr.ErrCodeUnauthorized, "Invalid or expired token", nil)
				return
			}
			sess = claims.Session()
		} else {
			gs, sess = m.sessions.Load(r)
		}

		tenantID := m.tenants.Resolve(sess)
		outcome := m.resolver.Resolve(r.Context(), sess)
		if outcome.ClearSession && gs != nil {
			if err := m.sessions.Clear(w, r, gs); err != nil {
				log.Warn().Err(err).Msg("Failed to clear invalid session")
			}
		}

		ctx := r.Context()
		if gs != nil {
			ctx = context.WithValue(ctx, apiContext.Session, gs)
		}
		if p := outcome.Principal; p != nil {
			tenantID = p.TenantID
			ctx = context.WithValue(ctx, apiContext.Principal, p)
		}
		ctx = context.WithValue(ctx, apiContext.Tenant, tenantID)

		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apiContext.PrincipalFrom(r.Context()) == nil {
			apperr.WriteError(w, http.StatusUnauthorized, apperr.ErrCodeUnauthorized, "Authentication required", nil)
			return
		}
		next(w, r)
	}
}

func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !apiContext.PrincipalFrom(r.Context()).IsAdmin {
			apperr.WriteError(w, http.StatusForbidden, apperr.ErrCodeForbidden, "Administrator access required", nil)
			return
		}
		next(w, r)
	})
}

func RequireSuperAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !apiContext.PrincipalFrom(r.Context()).IsSuperAdmin {
			apperr.WriteError(w, http.StatusForbidden, apperr.ErrCodeForbidden, "Super-admin access required", nil)
			return
		}
		next(w, r)
	})
}
