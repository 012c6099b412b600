package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	apiContext "dzemat/internal/api/context"
	"dzemat/internal/engine/features"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/pkg/invite"
	"dzemat/internal/platform/audit"
	"dzemat/internal/platform/repositories"
)

// PlatformHandler serves tenant, subscription, activity and health endpoints.
type PlatformHandler struct {
	db         *sql.DB
	tenantRepo *repositories.TenantRepository
	gate       *features.Gate
	activity   *audit.Logger
	publicURL  string
}

func NewPlatformHandler(db *sql.DB, tenantRepo *repositories.TenantRepository, gate *features.Gate, activity *audit.Logger, publicURL string) *PlatformHandler {
	return &PlatformHandler{db: db, tenantRepo: tenantRepo, gate: gate, activity: activity, publicURL: publicURL}
}

// CurrentTenant describes the tenant the request resolved to.
func (h *PlatformHandler) CurrentTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenantRepo.GetByID(r.Context(), apiContext.TenantFrom(r.Context()))
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "load tenant"))
		return
	}
	if tenant == nil {
		apperr.Write(w, apperr.NotFound("Tenant not found"))
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":                 tenant.ID,
		"name":               tenant.Name,
		"code":               tenant.Code,
		"subscriptionTier":   tenant.SubscriptionTier,
		"subscriptionStatus": tenant.EffectiveStatus(time.Now()),
	})
}

// SignInQR serves a PNG QR code of the tenant's login link.
func (h *PlatformHandler) SignInQR(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenantRepo.GetByID(r.Context(), principal(r).TenantID)
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "load tenant"))
		return
	}
	if tenant == nil {
		apperr.Write(w, apperr.NotFound("Tenant not found"))
		return
	}

	link, err := invite.LoginURL(h.publicURL, tenant.Code)
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "build login url"))
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := invite.QRCode(link, size)
	if err == invite.ErrInvalidSize {
		apperr.Write(w, apperr.Invalid(err.Error(), map[string]string{"size": "must be between 128 and 2048"}))
		return
	}
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "render qr code"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *PlatformHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	info, err := h.gate.Info(r.Context(), principal(r).TenantID)
	respond(w, http.StatusOK, info, err)
}

func (h *PlatformHandler) Plans(w http.ResponseWriter, r *http.Request) {
	apperr.WriteJSON(w, http.StatusOK, h.gate.Catalog().Tiers)
}

func (h *PlatformHandler) Activities(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 100
	}
	activities, err := h.activity.List(r.Context(), principal(r).TenantID, limit)
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "list activities"))
		return
	}
	apperr.WriteJSON(w, http.StatusOK, activities)
}

func (h *PlatformHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "healthy"}
	status, code := "healthy", http.StatusOK
	if err := h.db.PingContext(r.Context()); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status, code = "degraded", http.StatusServiceUnavailable
	}

	apperr.WriteJSON(w, code, struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	})
}
