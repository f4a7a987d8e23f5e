// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the booking engine to distinguish between different
// failure scenarios. For example, ErrForbidden indicates that the
// current user is not authorized to perform an operation on a resource
// owned by someone else, while ErrConflict signals that an operation
// cannot proceed due to existing dependent records (e.g. deleting a
// session that already has bookings).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a session that still has bookings. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNoSeats is returned by the conditional seat reservation update
// when a session (or batch) is already at capacity. The update matched
// zero rows, so nothing was changed.
var ErrNoSeats = errors.New("no seats available")

// ErrInsufficientCredits is returned by the conditional wallet debit
// when the balance is lower than the requested amount. The wallet row
// is left untouched.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrNotFound is the generic row-missing sentinel for domain entities
// that do not warrant their own error (lookups the engine turns into a
// typed not-found for the client).
var ErrNotFound = errors.New("not found")
