package model

import "time"

// BookingStatus is the lifecycle state of a booking.  Transitions:
//
//	pending -> confirmed -> {attended, no_show, canceled} -> refunded
//
// where refunded is only reachable from canceled in the partner-cancel
// flow.  attended, no_show, canceled and refunded are terminal; trial
// bookings are never cancelable at all.  Bookings are never deleted,
// only status-transitioned.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingAttended  BookingStatus = "attended"
	BookingNoShow    BookingStatus = "no_show"
	BookingCanceled  BookingStatus = "canceled"
	BookingRefunded  BookingStatus = "refunded"
)

// Terminal reports whether no further lifecycle transition is allowed.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingAttended, BookingNoShow, BookingCanceled, BookingRefunded:
		return true
	}
	return false
}

// PaymentMethod enumerates how a booking was paid for.
type PaymentMethod string

const (
	PayCreditWallet PaymentMethod = "credit_wallet"
	PayRazorpayCard PaymentMethod = "razorpay_card"
	PayUPI          PaymentMethod = "upi"
)

// ValidPaymentMethod reports whether s names a known payment method.
func ValidPaymentMethod(s string) bool {
	switch PaymentMethod(s) {
	case PayCreditWallet, PayRazorpayCard, PayUPI:
		return true
	}
	return false
}

// Attendance values a partner can record for a booking.
type Attendance string

const (
	AttendancePresent Attendance = "present"
	AttendanceAbsent  Attendance = "absent"
	AttendanceLate    Attendance = "late"
)

// ValidAttendance reports whether s names a known attendance value.
func ValidAttendance(s string) bool {
	switch Attendance(s) {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return true
	}
	return false
}

// Booking records one child's place in one session, bought either as a
// standalone booking or as part of a multi-session plan (in which case
// SessionIDs carries the whole plan and PlanOptionID/BatchID are set).
type Booking struct {
	ID                 string        // bookings.id (UUID)
	UserID             uint64        // bookings.user_id
	SessionID          string        // bookings.session_id
	ListingID          string        // bookings.listing_id
	ChildProfileName   string        // bookings.child_profile_name
	ChildProfileAge    int           // bookings.child_profile_age
	Qty                int           // bookings.qty (always 1 today)
	UnitPriceINR       float64       // bookings.unit_price_inr
	TaxesINR           float64       // bookings.taxes_inr
	TotalINR           float64       // bookings.total_inr
	CreditsUsed        int           // bookings.credits_used
	PaymentMethod      PaymentMethod // bookings.payment_method
	PaymentTxnID       *string       // bookings.payment_txn_id (nullable)
	Status             BookingStatus // bookings.booking_status
	BookedAt           time.Time     // bookings.booked_at
	CanceledAt         *time.Time    // bookings.canceled_at (nullable)
	CancellationReason *string       // bookings.cancellation_reason (nullable)
	RefundAmountINR    float64       // bookings.refund_amount_inr
	RefundCredits      int           // bookings.refund_credits
	Attendance         *Attendance   // bookings.attendance (nullable)
	AttendanceNotes    *string       // bookings.attendance_notes (nullable)
	AttendanceAt       *time.Time    // bookings.attendance_at (nullable)
	PayoutEligible     bool          // bookings.payout_eligible
	CanceledBy         *string       // bookings.canceled_by ("customer" | "partner")
	IsTrial            bool          // bookings.is_trial
	RescheduleCount    int           // bookings.reschedule_count
	PlanOptionID       *string       // bookings.plan_option_id (nullable)
	BatchID            *string       // bookings.batch_id (nullable)
	SessionIDs         []string      // rows of booking_sessions
}

// BookingDetail is a booking enriched with listing and session display
// fields for the customer's "my bookings" view.
type BookingDetail struct {
	Booking
	ListingTitle   string     `json:"listing_title"`
	SessionStartAt *time.Time `json:"session_start_at"`
	SessionStatus  string     `json:"session_status"`
}

// AbsenceReason constrains the unable-to-attend reasons a customer can
// give.
type AbsenceReason string

const (
	AbsenceFeelingUnwell      AbsenceReason = "feeling_unwell"
	AbsenceTraveling          AbsenceReason = "traveling"
	AbsenceSchedulingConflict AbsenceReason = "scheduling_conflict"
	AbsenceOther              AbsenceReason = "other"
)

// ValidAbsenceReason reports whether s names a known absence reason.
func ValidAbsenceReason(s string) bool {
	switch AbsenceReason(s) {
	case AbsenceFeelingUnwell, AbsenceTraveling, AbsenceSchedulingConflict, AbsenceOther:
		return true
	}
	return false
}

// AbsenceNotice is an advisory heads-up that a child cannot attend a
// booked session.  It never changes the booking status.
type AbsenceNotice struct {
	ID         string        // absence_notices.id (UUID)
	BookingID  string        // absence_notices.booking_id
	UserID     uint64        // absence_notices.user_id
	SessionID  *string       // absence_notices.session_id (nullable)
	Reason     AbsenceReason // absence_notices.reason
	CustomNote *string       // absence_notices.custom_note (nullable)
	CreatedAt  time.Time     // absence_notices.created_at
}
