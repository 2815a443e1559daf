// Package apperr defines the error categories returned to API clients.
package apperr

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Kind is a stable, machine readable error category
type Kind string

// Error categories
const (
	KindValidation         Kind = "ValidationError"
	KindDuplicateEmail     Kind = "DuplicateEmail"
	KindUnauthenticated    Kind = "Unauthenticated"
	KindAccountLocked      Kind = "AccountLocked"
	KindAccountDeactivated Kind = "AccountDeactivated"
	KindForbidden          Kind = "Forbidden"
	KindNotFound           Kind = "NotFound"
	KindTooManyRequests    Kind = "TooManyRequests"
	KindInternal           Kind = "InternalError"
)

// Status maps a Kind to its HTTP status code
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindDuplicateEmail:
		return http.StatusBadRequest
	case KindUnauthenticated, KindAccountDeactivated:
		return http.StatusUnauthorized
	case KindAccountLocked:
		return http.StatusLocked
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is an error with a category and a client-safe message
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error
func (e *Error) Status() int { return e.Kind.Status() }

// WithDetails attaches structured details and returns e
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// New creates an Error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind that keeps cause for logging
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Internal wraps an unexpected failure
func Internal(cause error) *Error {
	return Wrap(KindInternal, "Internal server error", cause)
}

// Unauthenticated creates a 401 error
func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }

// Forbidden creates a 403 error
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// NotFound creates a 404 error
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Validation turns an ozzo-validation result into a ValidationError.
// Field errors are reported as details keyed by JSON field name.
func Validation(err error) *Error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		details := make(map[string]string, len(fields))
		for field, ferr := range fields {
			if ferr != nil {
				details[field] = ferr.Error()
			}
		}
		return &Error{Kind: KindValidation, Message: "Validation failed", Details: details, Err: err}
	}
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

// KindOf returns the category of err, or KindInternal when err carries none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
