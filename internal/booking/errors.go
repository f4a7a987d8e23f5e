// Package booking implements the booking engine: creation, plan
// purchase, cancellation, reschedule and attendance flows over narrow
// store interfaces.  All domain failures are reported as *Error values
// carrying a Kind, so handlers translate them to HTTP statuses without
// string matching.
package booking

import (
	"fmt"
	"net/http"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindAuthorization       Kind = "authorization"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindState               Kind = "state"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindInternal            Kind = "internal"
)

// Error is the engine's error type.  Message is safe to show to the
// caller; Err, when set, is the underlying cause and stays server-side.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status.  Conflict and
// state errors surface as 400 rather than 409: clients treat them as
// request-level failures, the distinction lives in the error code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindConflict, KindState, KindInsufficientCredits:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func authorizationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func statef(format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

func insufficientCredits() *Error {
	return &Error{Kind: KindInsufficientCredits, Message: "insufficient credits"}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
