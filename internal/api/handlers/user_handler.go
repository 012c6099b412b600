package handlers

import (
	"net/http"

	"dzemat/internal/engine/points"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/platform/repositories"
)

type UserHandler struct {
	userRepo *repositories.UserRepository
	ledger   *points.ActivityLedger
}

func NewUserHandler(userRepo *repositories.UserRepository, ledger *points.ActivityLedger) *UserHandler {
	return &UserHandler{userRepo: userRepo, ledger: ledger}
}

// List returns the users of the caller's tenant, used to pick assignees
// and members.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.List(r.Context(), principal(r).TenantID)
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "list users"))
		return
	}
	apperr.WriteJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userRepo.GetByID(r.Context(), principal(r).TenantID, param(r, "id"))
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "load user"))
		return
	}
	if user == nil {
		apperr.Write(w, apperr.NotFound("User not found"))
		return
	}
	apperr.WriteJSON(w, http.StatusOK, user)
}

// Points lists a user's ledger entries. Users see their own history,
// admins see everyone's.
func (h *UserHandler) Points(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	userID := param(r, "id")
	if userID != p.ID && !p.IsAdmin {
		apperr.Write(w, apperr.Forbidden("You can only view your own points"))
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), p.TenantID, userID)
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "load user"))
		return
	}
	if user == nil {
		apperr.Write(w, apperr.NotFound("User not found"))
		return
	}

	entries, err := h.ledger.ForUser(r.Context(), p.TenantID, userID)
	if err != nil {
		apperr.Write(w, apperr.Internal(err, "list points"))
		return
	}
	if entries == nil {
		entries = []*points.Entry{}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"totalPoints": user.TotalPoints,
		"entries":     entries,
	})
}
