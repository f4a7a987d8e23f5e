package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/rayyhq/rayy-backend/internal/model"
)

// BookingRepo provides CRUD operations for bookings, the plan
// session-membership table (booking_sessions) and absence notices.
// Bookings are append-only: lifecycle changes are status transitions
// written by targeted UPDATEs, rows are never deleted.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB for cross-repository transactions.
func (r *BookingRepo) DB() *sql.DB {
	return r.db
}

const bookingCols = `id, user_id, session_id, listing_id, child_profile_name, child_profile_age, qty,
	unit_price_inr, taxes_inr, total_inr, credits_used, payment_method, payment_txn_id, booking_status,
	booked_at, canceled_at, cancellation_reason, refund_amount_inr, refund_credits,
	attendance, attendance_notes, attendance_at, payout_eligible, canceled_by, is_trial,
	reschedule_count, plan_option_id, batch_id`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b          model.Booking
		txnID      sql.NullString
		canceledAt sql.NullTime
		reason     sql.NullString
		attendance sql.NullString
		attNotes   sql.NullString
		attAt      sql.NullTime
		canceledBy sql.NullString
		planOptID  sql.NullString
		batchID    sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.SessionID, &b.ListingID, &b.ChildProfileName, &b.ChildProfileAge, &b.Qty,
		&b.UnitPriceINR, &b.TaxesINR, &b.TotalINR, &b.CreditsUsed, &b.PaymentMethod, &txnID, &b.Status,
		&b.BookedAt, &canceledAt, &reason, &b.RefundAmountINR, &b.RefundCredits,
		&attendance, &attNotes, &attAt, &b.PayoutEligible, &canceledBy, &b.IsTrial,
		&b.RescheduleCount, &planOptID, &batchID,
	)
	if err != nil {
		return model.Booking{}, err
	}
	if txnID.Valid {
		v := txnID.String
		b.PaymentTxnID = &v
	}
	if canceledAt.Valid {
		v := canceledAt.Time
		b.CanceledAt = &v
	}
	if reason.Valid {
		v := reason.String
		b.CancellationReason = &v
	}
	if attendance.Valid {
		v := model.Attendance(attendance.String)
		b.Attendance = &v
	}
	if attNotes.Valid {
		v := attNotes.String
		b.AttendanceNotes = &v
	}
	if attAt.Valid {
		v := attAt.Time
		b.AttendanceAt = &v
	}
	if canceledBy.Valid {
		v := canceledBy.String
		b.CanceledBy = &v
	}
	if planOptID.Valid {
		v := planOptID.String
		b.PlanOptionID = &v
	}
	if batchID.Valid {
		v := batchID.String
		b.BatchID = &v
	}
	return b, nil
}

// Create inserts a booking and, for plan bookings, its session
// membership rows, in one transaction.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.BookedAt.IsZero() {
		b.BookedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO bookings
		(id, user_id, session_id, listing_id, child_profile_name, child_profile_age, qty,
		 unit_price_inr, taxes_inr, total_inr, credits_used, payment_method, payment_txn_id,
		 booking_status, booked_at, payout_eligible, is_trial, reschedule_count, plan_option_id, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err = tx.ExecContext(ctx, q,
		b.ID, b.UserID, b.SessionID, b.ListingID, b.ChildProfileName, b.ChildProfileAge, b.Qty,
		b.UnitPriceINR, b.TaxesINR, b.TotalINR, b.CreditsUsed, string(b.PaymentMethod), b.PaymentTxnID,
		string(b.Status), b.BookedAt, b.PayoutEligible, b.IsTrial, b.RescheduleCount,
		b.PlanOptionID, b.BatchID); err != nil {
		return err
	}
	if len(b.SessionIDs) > 0 {
		query := `INSERT INTO booking_sessions (booking_id, session_id) VALUES `
		args := make([]interface{}, 0, len(b.SessionIDs)*2)
		for i, sid := range b.SessionIDs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, b.ID, sid)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches one booking with its plan session ids.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	b.SessionIDs, err = r.sessionIDs(ctx, b.ID)
	return b, err
}

func (r *BookingRepo) sessionIDs(ctx context.Context, bookingID string) ([]string, error) {
	const q = `SELECT session_id FROM booking_sessions WHERE booking_id = ? ORDER BY session_id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		out = append(out, sid)
	}
	return out, rows.Err()
}

// MarkCanceled transitions a booking to canceled and records who did it,
// why, when, and what refund was computed.  The status guard keeps a
// double cancel from rewriting refund figures.
func (r *BookingRepo) MarkCanceled(ctx context.Context, bookingID, canceledBy, reason string, refundINR float64, refundCredits int) error {
	const q = `UPDATE bookings
		SET booking_status = 'canceled', canceled_at = ?, canceled_by = ?, cancellation_reason = ?,
		    refund_amount_inr = ?, refund_credits = ?
		WHERE id = ? AND booking_status IN ('pending','confirmed')`
	res, err := r.db.ExecContext(ctx, q, time.Now().UTC(), canceledBy, reason, refundINR, refundCredits, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// MarkRefunded moves a canceled booking to refunded.  Used by the
// partner-cancel flow after credits have landed in the wallet.
func (r *BookingRepo) MarkRefunded(ctx context.Context, bookingID string) error {
	const q = `UPDATE bookings SET booking_status = 'refunded' WHERE id = ? AND booking_status = 'canceled'`
	_, err := r.db.ExecContext(ctx, q, bookingID)
	return err
}

// RecordAttendance stores the partner's attendance call for a booking
// and finalizes its status.  payoutEligible comes from the caller:
// only a session the child actually attended counts toward the partner
// payout.
func (r *BookingRepo) RecordAttendance(ctx context.Context, bookingID string, att model.Attendance, notes *string, status model.BookingStatus, payoutEligible bool) error {
	const q = `UPDATE bookings
		SET attendance = ?, attendance_notes = ?, attendance_at = ?, booking_status = ?, payout_eligible = ?
		WHERE id = ? AND booking_status = 'confirmed'`
	res, err := r.db.ExecContext(ctx, q, string(att), notes, time.Now().UTC(), string(status), payoutEligible, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Reschedule points a confirmed booking at a new session and bumps the
// reschedule counter.  The count guard enforces the once-only rule at
// the row level too, not just in the engine.
func (r *BookingRepo) Reschedule(ctx context.Context, bookingID, newSessionID string) error {
	const q = `UPDATE bookings
		SET session_id = ?, reschedule_count = reschedule_count + 1
		WHERE id = ? AND booking_status = 'confirmed' AND reschedule_count = 0`
	res, err := r.db.ExecContext(ctx, q, newSessionID, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ListByUser returns the user's bookings enriched with listing title
// and session time, newest first.  LEFT JOINs keep bookings whose
// listing or session rows have gone missing; the caller's view should
// survive partial data.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	const q = `SELECT b.id, b.user_id, b.session_id, b.listing_id, b.child_profile_name, b.child_profile_age, b.qty,
			b.unit_price_inr, b.taxes_inr, b.total_inr, b.credits_used, b.payment_method, b.payment_txn_id, b.booking_status,
			b.booked_at, b.canceled_at, b.cancellation_reason, b.refund_amount_inr, b.refund_credits,
			b.attendance, b.attendance_notes, b.attendance_at, b.payout_eligible, b.canceled_by, b.is_trial,
			b.reschedule_count, b.plan_option_id, b.batch_id,
			COALESCE(l.title, ''), s.start_at, COALESCE(s.status, '')
		FROM bookings b
		LEFT JOIN listings l ON l.id = b.listing_id
		LEFT JOIN sessions s ON s.id = b.session_id
		WHERE b.user_id = ?
		ORDER BY b.booked_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingDetail
	for rows.Next() {
		var (
			b          model.Booking
			txnID      sql.NullString
			canceledAt sql.NullTime
			reason     sql.NullString
			attendance sql.NullString
			attNotes   sql.NullString
			attAt      sql.NullTime
			canceledBy sql.NullString
			planOptID  sql.NullString
			batchID    sql.NullString
			title      string
			startAt    sql.NullTime
			sessStatus string
		)
		err := rows.Scan(
			&b.ID, &b.UserID, &b.SessionID, &b.ListingID, &b.ChildProfileName, &b.ChildProfileAge, &b.Qty,
			&b.UnitPriceINR, &b.TaxesINR, &b.TotalINR, &b.CreditsUsed, &b.PaymentMethod, &txnID, &b.Status,
			&b.BookedAt, &canceledAt, &reason, &b.RefundAmountINR, &b.RefundCredits,
			&attendance, &attNotes, &attAt, &b.PayoutEligible, &canceledBy, &b.IsTrial,
			&b.RescheduleCount, &planOptID, &batchID,
			&title, &startAt, &sessStatus,
		)
		if err != nil {
			return nil, err
		}
		if txnID.Valid {
			v := txnID.String
			b.PaymentTxnID = &v
		}
		if canceledAt.Valid {
			v := canceledAt.Time
			b.CanceledAt = &v
		}
		if reason.Valid {
			v := reason.String
			b.CancellationReason = &v
		}
		if attendance.Valid {
			v := model.Attendance(attendance.String)
			b.Attendance = &v
		}
		if attNotes.Valid {
			v := attNotes.String
			b.AttendanceNotes = &v
		}
		if attAt.Valid {
			v := attAt.Time
			b.AttendanceAt = &v
		}
		if canceledBy.Valid {
			v := canceledBy.String
			b.CanceledBy = &v
		}
		if planOptID.Valid {
			v := planOptID.String
			b.PlanOptionID = &v
		}
		if batchID.Valid {
			v := batchID.String
			b.BatchID = &v
		}
		d := model.BookingDetail{Booking: b, ListingTitle: title, SessionStatus: sessStatus}
		if startAt.Valid {
			v := startAt.Time
			d.SessionStartAt = &v
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListBySession returns active (pending or confirmed) bookings for a
// session.  Partner-cancel walks this list to refund everyone.
func (r *BookingRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
		WHERE session_id = ? AND booking_status IN ('pending','confirmed')`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// HasTrialForListing reports whether the user has ever made a trial
// booking for this listing, in any status.  Canceled trials still count
// against eligibility.
func (r *BookingRepo) HasTrialForListing(ctx context.Context, userID uint64, listingID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM bookings WHERE user_id = ? AND listing_id = ? AND is_trial = TRUE)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, userID, listingID).Scan(&exists)
	return exists, err
}

// CountTrialsSince counts trial bookings the user made on or after the
// given instant.  Used for the rolling weekly trial cap.
func (r *BookingRepo) CountTrialsSince(ctx context.Context, userID uint64, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE user_id = ? AND is_trial = TRUE AND booked_at >= ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, userID, since.UTC()).Scan(&n)
	return n, err
}

// CreateAbsenceNotice records an unable-to-attend heads-up.
func (r *BookingRepo) CreateAbsenceNotice(ctx context.Context, n *model.AbsenceNotice) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	const q = `INSERT INTO absence_notices (id, booking_id, user_id, session_id, reason, custom_note)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, n.ID, n.BookingID, n.UserID, n.SessionID, string(n.Reason), n.CustomNote)
	return err
}

// PayoutSummary aggregates a partner's delivered sessions.  A booking
// contributes once attendance has been recorded (payout_eligible) and
// the partner's cut is the pre-tax amount.
type PayoutSummary struct {
	PartnerID       uint64  `json:"partner_id"`
	EligibleCount   int     `json:"eligible_count"`
	GrossINR        float64 `json:"gross_inr"`
	TaxCollectedINR float64 `json:"tax_collected_inr"`
}

// PayoutSummaryForPartner sums payout-eligible bookings across the
// partner's listings.
func (r *BookingRepo) PayoutSummaryForPartner(ctx context.Context, partnerID uint64) (PayoutSummary, error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(b.total_inr - b.taxes_inr), 0), COALESCE(SUM(b.taxes_inr), 0)
		FROM bookings b
		JOIN listings l ON l.id = b.listing_id
		WHERE l.partner_id = ? AND b.payout_eligible = TRUE`
	s := PayoutSummary{PartnerID: partnerID}
	err := r.db.QueryRowContext(ctx, q, partnerID).Scan(&s.EligibleCount, &s.GrossINR, &s.TaxCollectedINR)
	return s, err
}
