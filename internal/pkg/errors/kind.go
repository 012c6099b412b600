package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Kind classifies a failure for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthenticationRequired
	KindAuthorizationDenied
	KindNotFound
	KindValidation
	KindConflict
	KindUpgradeRequired
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationRequired:
		return "authentication_required"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUpgradeRequired:
		return "upgrade_required"
	default:
		return "internal"
	}
}

func (k Kind) Status() int {
	switch k {
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindAuthorizationDenied, KindUpgradeRequired:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) defaultCode() string {
	switch k {
	case KindAuthenticationRequired:
		return ErrCodeUnauthorized
	case KindAuthorizationDenied:
		return ErrCodeForbidden
	case KindNotFound:
		return ErrCodeNotFound
	case KindValidation:
		return ErrCodeInvalidInput
	case KindConflict:
		return ErrCodeConflict
	case KindUpgradeRequired:
		return ErrCodeUpgradeRequired
	default:
		return ErrCodeInternal
	}
}

// Error is the typed failure returned by the engines.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Code: kind.defaultCode(), Message: message}
}

func WithCode(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Unauthenticated(message string) *Error { return New(KindAuthenticationRequired, message) }

func Forbidden(message string) *Error { return New(KindAuthorizationDenied, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

func Invalid(message string, details interface{}) *Error {
	e := New(KindValidation, message)
	e.Details = details
	return e
}

// Internal wraps an unexpected failure. The message never reaches clients.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Code: ErrCodeInternal, Message: message, Err: err}
}

// KindOf reports the kind of err, treating untyped errors as internal.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Write renders err using the JSON error envelope.
func Write(w http.ResponseWriter, err error) {
	var e *Error
	if !stderrors.As(err, &e) {
		e = Internal(err, "unexpected error")
	}

	if e.Kind == KindInternal {
		log.Error().Err(err).Msg("request failed")
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", nil)
		return
	}
	WriteError(w, e.Kind.Status(), e.Code, e.Message, e.Details)
}
