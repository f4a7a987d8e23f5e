package model

import "time"

// SessionStatus tracks the scheduling state of a bookable time slot.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCanceled  SessionStatus = "canceled"
	SessionCompleted SessionStatus = "completed"
)

// Session represents a single bookable time slot of a listing.  The
// seats_booked counter is the capacity source of truth and must only be
// mutated through SessionRepo.Reserve and SessionRepo.Release, which
// issue conditional single-row updates.  Invariant at all times:
// 0 <= SeatsBooked <= SeatsTotal.
//
// Fields:
//  ID                      – UUID primary key.
//  ListingID               – owning listing.
//  BatchID                 – batch this session was generated from (nil for
//                            ad hoc sessions).
//  StartAt                 – when the class begins, UTC.
//  DurationMinutes         – class length.
//  SeatsTotal              – capacity of the slot.
//  SeatsBooked             – seats currently taken.
//  PriceOverrideINR        – per-session price override (nil falls back to
//                            the listing base price).
//  AllowLateBookingMinutes – bookings close this many minutes before start.
//  Status                  – scheduled, canceled or completed.
type Session struct {
	ID                      string        // sessions.id (UUID)
	ListingID               string        // sessions.listing_id
	BatchID                 *string       // sessions.batch_id (nullable)
	StartAt                 time.Time     // sessions.start_at
	DurationMinutes         int           // sessions.duration_minutes
	SeatsTotal              int           // sessions.seats_total
	SeatsBooked             int           // sessions.seats_booked
	PriceOverrideINR        *float64      // sessions.price_override_inr (nullable)
	AllowLateBookingMinutes int           // sessions.allow_late_booking_minutes
	Status                  SessionStatus // sessions.status
	IsRescheduled           bool          // sessions.is_rescheduled
	CreatedAt               time.Time     // sessions.created_at
	UpdatedAt               time.Time     // sessions.updated_at
}

// BookingCutoff returns the instant after which the session no longer
// accepts new bookings.
func (s *Session) BookingCutoff() time.Time {
	return s.StartAt.Add(-time.Duration(s.AllowLateBookingMinutes) * time.Minute)
}

// SeatsAvailable returns the number of free seats.
func (s *Session) SeatsAvailable() int {
	return s.SeatsTotal - s.SeatsBooked
}

// UnitPriceINR resolves the effective per-session price given the
// listing base price.
func (s *Session) UnitPriceINR(basePrice float64) float64 {
	if s.PriceOverrideINR != nil {
		return *s.PriceOverrideINR
	}
	return basePrice
}
