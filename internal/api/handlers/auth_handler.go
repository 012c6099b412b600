package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apiContext "dzemat/internal/api/context"
	"dzemat/internal/engine/identity"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/pkg/parser"
	"dzemat/internal/platform/audit"
	"dzemat/internal/platform/auth"
	"dzemat/internal/platform/models"
	"dzemat/internal/platform/repositories"
	"dzemat/internal/platform/session"
)

type AuthHandler struct {
	userRepo        *repositories.UserRepository
	tenantRepo      *repositories.TenantRepository
	sessions        *session.Manager
	tokenSvc        *auth.TokenService
	activity        *audit.Logger
	defaultTenantID string
}

func NewAuthHandler(userRepo *repositories.UserRepository, tenantRepo *repositories.TenantRepository, sessions *session.Manager, tokenSvc *auth.TokenService, activity *audit.Logger, defaultTenantID string) *AuthHandler {
	if defaultTenantID == "" {
		defaultTenantID = models.DefaultTenantID
	}
	return &AuthHandler{
		userRepo:        userRepo,
		tenantRepo:      tenantRepo,
		sessions:        sessions,
		tokenSvc:        tokenSvc,
		activity:        activity,
		defaultTenantID: defaultTenantID,
	}
}

type LoginRequest struct {
	TenantCode string `json:"tenantCode"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

type UserResponse struct {
	ID           string   `json:"id"`
	TenantID     string   `json:"tenantId"`
	Username     string   `json:"username"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	DisplayName  string   `json:"displayName"`
	Roles        []string `json:"roles"`
	IsAdmin      bool     `json:"isAdmin"`
	IsSuperAdmin bool     `json:"isSuperAdmin"`
}

func userResponse(p *identity.Principal) *UserResponse {
	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}
	return &UserResponse{
		ID:           p.ID,
		TenantID:     p.TenantID,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		DisplayName:  p.DisplayName(),
		Roles:        roles,
		IsAdmin:      p.IsAdmin,
		IsSuperAdmin: p.IsSuperAdmin,
	}
}

func principalOf(u *models.User, tenantID string, superAdmin bool) *identity.Principal {
	return &identity.Principal{
		ID:           u.ID,
		TenantID:     tenantID,
		IsAdmin:      superAdmin || u.IsAdmin || u.HasRole(models.RoleImam),
		IsSuperAdmin: superAdmin,
		Roles:        u.Roles,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
	}
}

var errInvalidCredentials = apperr.Unauthenticated("Invalid credentials")

// authenticate checks credentials inside one tenant. Unknown tenants and
// users fail the same way as wrong passwords.
func (h *AuthHandler) authenticate(r *http.Request, req LoginRequest) (*models.User, *models.Tenant, error) {
	ctx := r.Context()
	var (
		tenant *models.Tenant
		err    error
	)
	if code := strings.TrimSpace(req.TenantCode); code != "" {
		tenant, err = h.tenantRepo.GetByCode(ctx, code)
	} else {
		tenant, err = h.tenantRepo.GetByID(ctx, h.defaultTenantID)
	}
	if err != nil {
		return nil, nil, apperr.Internal(err, "load tenant")
	}
	if tenant == nil || !tenant.IsActive || tenant.ID == models.GlobalTenantID {
		return nil, nil, errInvalidCredentials
	}

	user, err := h.userRepo.GetByUsername(ctx, tenant.ID, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, nil, apperr.Internal(err, "load user")
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, nil, errInvalidCredentials
	}
	return user, tenant, nil
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	user, tenant, err := h.authenticate(r, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	sess := session.Session{UserID: user.ID, TenantID: tenant.ID}
	if !h.startSession(w, r, sess) {
		return
	}
	h.recordLogin(r, tenant.ID, user.ID)
	apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": userResponse(principalOf(user, tenant.ID, false))})
}

// SuperAdminLogin authenticates against the global tenant only.
func (h *AuthHandler) SuperAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.userRepo.GetByUsername(r.Context(), models.GlobalTenantID, strings.TrimSpace(req.Username))
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "load user"))
		return
	}
	if user == nil || !user.IsSuperAdmin || !auth.CheckPassword(user.PasswordHash, req.Password) {
		apperr.Write(w, errInvalidCredentials)
		return
	}

	sess := session.Session{UserID: user.ID, TenantID: models.GlobalTenantID, IsSuperAdmin: true}
	if !h.startSession(w, r, sess) {
		return
	}
	h.recordLogin(r, models.GlobalTenantID, user.ID)
	apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": userResponse(principalOf(user, models.GlobalTenantID, true))})
}

type TokenResponse struct {
	AccessToken string        `json:"accessToken"`
	ExpiresAt   int64         `json:"expiresAt"`
	User        *UserResponse `json:"user"`
}

// Token issues a bearer token carrying the same fields as a cookie session.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	user, tenant, err := h.authenticate(r, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	token, expiresAt, err := h.tokenSvc.GenerateAccessToken(session.Session{UserID: user.ID, TenantID: tenant.ID})
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "generate token"))
		return
	}
	h.recordLogin(r, tenant.ID, user.ID)
	apperr.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
		User:        userResponse(principalOf(user, tenant.ID, false)),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if gs := apiContext.SessionFrom(r.Context()); gs != nil {
		if err := h.sessions.Clear(w, r, gs); err != nil {
			apperr.Write(w, apperr.Internal(err, "clear session"))
			return
		}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Session reports who the current request resolves to.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p == nil {
		apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          userResponse(p),
	})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, sess session.Session) bool {
	gs := apiContext.SessionFrom(r.Context())
	if gs == nil {
		gs, _ = h.sessions.Load(r)
	}
	if err := h.sessions.Start(w, r, gs, sess); err != nil {
		apperr.Write(w, apperr.Internal(err, "start session"))
		return false
	}
	return true
}

func (h *AuthHandler) recordLogin(r *http.Request, tenantID, userID string) {
	client := parser.ParseUserAgent(r.UserAgent())
	h.activity.Log(r.Context(), tenantID, userID, audit.ActionLogin, "User logged in", map[string]interface{}{
		"os":      client.OS,
		"browser": client.Browser,
	})
	log.Info().Str("tenant_id", tenantID).Str("user_id", userID).Msg("login")
}
