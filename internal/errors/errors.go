package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type for sitequery.
// It carries the classification the HTTP layer needs to pick a status code
// and the caller needs to decide whether a retry can help.
type Error struct {
	// Kind classifies the failure (Validation, Timeout, ...).
	Kind Kind

	// Code is the stable machine-readable error code (e.g. "ERR_VALIDATION").
	Code string

	// Message is the human-readable error message.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates whether retrying the operation can succeed.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind, enabling errors.Is with kind sentinels.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error of the given kind.
// The code and retryable flag are derived from the kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Code:      codeForKind(kind),
		Message:   message,
		Cause:     cause,
		Retryable: kind.Retryable(),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...), nil)
}

// Validation creates an input validation error. Never retryable.
func Validation(message string) *Error {
	return New(KindValidation, message, nil)
}

// Timeout creates a deadline-exceeded error.
func Timeout(message string, cause error) *Error {
	return New(KindTimeout, message, cause)
}

// Degraded creates a non-fatal dependency failure. The pipeline continues
// without the dependency's contribution; the response stays a success.
func Degraded(component string, cause error) *Error {
	e := New(KindDependencyDegraded, component+" unavailable", cause)
	return e.WithDetail("component", component)
}

// Fatal creates an essential-dependency failure that aborts the request.
func Fatal(component string, cause error) *Error {
	e := New(KindDependencyFatal, component+" unavailable", cause)
	return e.WithDetail("component", component)
}

// NotFound creates a missing-entity error.
func NotFound(entity, id string) *Error {
	e := Newf(KindNotFound, "%s %q not found", entity, id)
	return e.WithDetail("id", id)
}

// RateLimited creates an inbound-throttle error.
func RateLimited(message string) *Error {
	return New(KindRateLimited, message, nil)
}

// Internal creates an unexpected internal error.
func Internal(message string, cause error) *Error {
	return New(KindInternal, message, cause)
}

// KindOf extracts the kind from an error chain.
// Plain errors and nil causes map to KindInternal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether any error in the chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// IsRetryable reports whether the error chain allows a retry.
func IsRetryable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
