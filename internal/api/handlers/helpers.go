package handlers

import (
	"encoding/json"
	"net/http"

	apiContext "dzemat/internal/api/context"
	"dzemat/internal/engine/identity"
	apperr "dzemat/internal/pkg/errors"
)

const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apperr.WriteError(w, http.StatusBadRequest, apperr.ErrCodeInvalidInput, "Invalid request body", nil)
		return false
	}
	return true
}

func principal(r *http.Request) *identity.Principal {
	return apiContext.PrincipalFrom(r.Context())
}

func param(r *http.Request, name string) string {
	return apiContext.Param(r.Context(), name)
}

func respond(w http.ResponseWriter, status int, body interface{}, err error) {
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, status, body)
}
