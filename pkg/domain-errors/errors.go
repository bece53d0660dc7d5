// Package domainerrors carries coded errors across service boundaries.
// Services attach a Code so transports and callers can branch on the class
// of failure without string matching; sentinel infrastructure errors from
// pkg/platform/sentinel get translated into these at the service layer.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeBadRequest marks invalid input: malformed timestamps, missing
	// coordinates for an operation that requires them. Never persisted.
	CodeBadRequest Code = "bad_request"

	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"

	// CodeInvalidTransition marks a lifecycle operation attempted from a
	// state that does not permit it. State is left unchanged.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeConflict marks an optimistic-concurrency version mismatch. The
	// caller reloads and retries; stale writes are never merged.
	CodeConflict Code = "conflict"

	// CodeIntegrityMismatch marks a recomputed hash disagreeing with a
	// stored hash. Always fatal to the discovering operation.
	CodeIntegrityMismatch Code = "integrity_mismatch"

	// CodeUnavailable marks a collaborator timeout or outage. Retryable.
	CodeUnavailable Code = "unavailable"

	// CodeUnauthorized marks a missing or invalid credential.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an actor lacking authority for the operation.
	CodeForbidden Code = "forbidden"

	// CodeInternal marks an unexpected failure with no better class.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It wraps an optional cause so errors.Is and
// errors.As keep working through it.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a coded error around a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so transports always have something to map.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
