// Package serviceerr defines the error classifications shared between the
// auth session core, the repositories and the HTTP layer.
package serviceerr

import (
	"errors"
	"net/http"
)

// Repository-level sentinels. Repositories translate their driver errors
// into these so callers never depend on pgx or valkey error types.
var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("already exists")

// Code classifies a failure the way the UI layer needs to distinguish it:
// connectivity problems are retryable, credential problems are not.
type Code string

const (
	CodeUnreachable           Code = "unreachable"
	CodeInvalidCredentials    Code = "invalid_credentials"
	CodeProfileNotFound       Code = "profile_not_found"
	CodeProfileFetchTimeout   Code = "profile_fetch_timeout"
	CodeProfileCreationFailed Code = "profile_creation_failed"
	CodeInvalidRole           Code = "invalid_role"
	CodeNotFound              Code = "not_found"
	CodeConflict              Code = "conflict"
	CodeInvalidRequest        Code = "invalid_request"
	CodeUnknown               Code = "unknown"
)

func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnreachable:
		return http.StatusBadGateway
	case CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeProfileNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeProfileFetchTimeout:
		return http.StatusGatewayTimeout
	case CodeProfileCreationFailed:
		return http.StatusConflict
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidRole, CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the UI should offer a "try again" action for
// this classification rather than asking the user to fix their input.
func (c Code) Retryable() bool {
	switch c {
	case CodeUnreachable, CodeProfileFetchTimeout:
		return true
	default:
		return false
	}
}

type Error struct {
	Err         Code
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

var (
	ErrUnreachable           = &Error{Err: CodeUnreachable, Description: "identity provider unreachable"}
	ErrInvalidCredentials    = &Error{Err: CodeInvalidCredentials, Description: "invalid email or password"}
	ErrProfileNotFound       = &Error{Err: CodeProfileNotFound, Description: "no profile record for subject"}
	ErrProfileFetchTimeout   = &Error{Err: CodeProfileFetchTimeout, Description: "profile store unreachable or slow"}
	ErrProfileCreationFailed = &Error{Err: CodeProfileCreationFailed, Description: "identity created but profile write failed"}
	ErrInvalidRole           = &Error{Err: CodeInvalidRole, Description: "role must be therapist or client"}
	ErrSignupDisabled        = &Error{Err: CodeInvalidRequest, Description: "provider has sign-ups disabled"}
	ErrUnknown               = &Error{Err: CodeUnknown, Description: "unknown error"}
)

// Classify maps an arbitrary error onto its Code. Unclassified errors
// come back as CodeUnknown.
func Classify(err error) Code {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Err
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeUnknown
	}
}
