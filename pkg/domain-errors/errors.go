// Package domainerrors defines the coded error type services return to
// transport layers. Stores return sentinel errors (pkg/platform/sentinel);
// services translate those facts into one of the codes below so handlers can
// map errors to HTTP statuses without inspecting internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks malformed or missing input. Recoverable by the
	// caller after correcting the request.
	CodeValidation Code = "validation"
	// CodeNotFound marks lookups of unknown entities.
	CodeNotFound Code = "not_found"
	// CodeForbidden marks actors lacking the role or access level an
	// operation requires. Never silently downgraded.
	CodeForbidden Code = "forbidden"
	// CodeInvalidState marks workflow transitions that are illegal from the
	// item's current status, including re-invoking a stage already passed and
	// any mutation of an archived item.
	CodeInvalidState Code = "invalid_state"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeConflict marks uniqueness violations (duplicate ref, concurrent
	// create races).
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a broken model invariant detected at
	// construction time. Services usually re-surface it as CodeValidation.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks infrastructure failures (storage I/O, broker). These
	// are the only unexpected errors; everything above is a domain outcome.
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a domain error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readable alias for HasCode in handler code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// AsDomain extracts the coded error from err's chain, if any.
func AsDomain(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ToHTTPStatus maps a code to the HTTP status handlers should return.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
