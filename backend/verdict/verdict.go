package verdict

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names a per-request failure outcome.
type Kind string

const (
	AuthenticityRejected  Kind = "AuthenticityRejected"
	RateLimited           Kind = "RateLimited"
	CooldownActive        Kind = "CooldownActive"
	DuplicateDetected     Kind = "DuplicateDetected"
	ValidationFailed      Kind = "ValidationFailed"
	ClassifierUnavailable Kind = "ClassifierUnavailable"
	NotFound              Kind = "NotFound"
	InvalidInput          Kind = "InvalidInput"
	InternalError         Kind = "InternalError"
)

// Error is a failure outcome with a user-facing reason. Cause, when set, is the
// underlying error and is never shown to the caller.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Rejected reports whether the outcome is a policy rejection rather than an error.
func (e *Error) Rejected() bool {
	switch e.Kind {
	case InternalError, InvalidInput, ClassifierUnavailable, NotFound:
		return false
	}
	return true
}

// Status returns the response status string for the outcome.
func (e *Error) Status() string {
	if e.Rejected() {
		return "rejected"
	}
	return "error"
}

// HTTPStatus maps the outcome to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case AuthenticityRejected, DuplicateDetected, ValidationFailed:
		return http.StatusUnprocessableEntity
	case RateLimited, CooldownActive:
		return http.StatusTooManyRequests
	case ClassifierUnavailable:
		return http.StatusServiceUnavailable
	case NotFound:
		return http.StatusNotFound
	case InvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var v *Error
	if errors.As(err, &v) {
		return v
	}
	return Wrap(InternalError, "Internal error", err)
}

// KindOf returns the kind of err, or the empty kind when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}
