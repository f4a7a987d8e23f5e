// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingEvent is published on every booking lifecycle change
// (confirmed, canceled, rescheduled, absence flagged). It carries
// enough information for downstream consumers to write notifications
// or trigger analytics without querying the primary database.
type BookingEvent struct {
	Type       string  `json:"type"`
	BookingID  string  `json:"booking_id"`
	UserID     uint64  `json:"user_id"`
	ListingID  string  `json:"listing_id"`
	SessionID  string  `json:"session_id"`
	Message    string  `json:"message"`
	AmountINR  float64 `json:"amount_inr,omitempty"`
	OccurredAt string  `json:"occurred_at"`
}
