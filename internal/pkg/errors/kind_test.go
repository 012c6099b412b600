package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWrite_TypedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthenticated", Unauthenticated("login required"), http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, ErrCodeForbidden},
		{"not found", NotFound("missing"), http.StatusNotFound, ErrCodeNotFound},
		{"validation", Invalid("bad", map[string]string{"field": "title"}), http.StatusBadRequest, ErrCodeInvalidInput},
		{"conflict with code", WithCode(KindConflict, ErrCodeTaskLocked, "task is locked"), http.StatusConflict, ErrCodeTaskLocked},
		{"wrapped", fmt.Errorf("update: %w", NotFound("task not found")), http.StatusNotFound, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Write(rr, tt.err)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
		})
	}
}

func TestWrite_InternalErrorIsNotLeaked(t *testing.T) {
	rr := httptest.NewRecorder()
	Write(rr, stderrors.New("database is locked: /var/lib/secret.db"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var body ErrorResponse
	json.NewDecoder(rr.Body).Decode(&body)
	if body.Message != "Internal server error" {
		t.Errorf("message leaked: %q", body.Message)
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Conflict("x")); got != KindConflict {
		t.Errorf("KindOf(conflict) = %v", got)
	}
	if got := KindOf(stderrors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %v", got)
	}
	sentinel := NotFound("gone")
	if !stderrors.Is(fmt.Errorf("wrap: %w", sentinel), sentinel) {
		t.Error("sentinel should survive wrapping")
	}
}
