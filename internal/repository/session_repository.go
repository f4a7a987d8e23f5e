// Package repository contains data access logic for session operations.
// A Session is one bookable occurrence of a listing: it carries its own
// seat counters, and seat accounting is done entirely with conditional
// UPDATE statements so that two concurrent bookings can never oversell
// the last seat.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/rayyhq/rayy-backend/internal/model"
)

// SessionRepo manages persistence for sessions.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *SessionRepo) DB() *sql.DB {
	return r.db
}

const sessionCols = `id, listing_id, batch_id, start_at, duration_minutes, seats_total, seats_booked,
	price_override_inr, allow_late_booking_minutes, status, is_rescheduled, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (model.Session, error) {
	var (
		s        model.Session
		batchID  sql.NullString
		override sql.NullFloat64
	)
	err := row.Scan(
		&s.ID, &s.ListingID, &batchID, &s.StartAt, &s.DurationMinutes, &s.SeatsTotal, &s.SeatsBooked,
		&override, &s.AllowLateBookingMinutes, &s.Status, &s.IsRescheduled, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return model.Session{}, err
	}
	if batchID.Valid {
		b := batchID.String
		s.BatchID = &b
	}
	if override.Valid {
		v := override.Float64
		s.PriceOverrideINR = &v
	}
	return s, nil
}

// GetByID fetches one session.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.Session{}, ErrNotFound
	}
	return s, err
}

// Reserve atomically claims count seats on a session.  The WHERE clause
// guards both capacity and status, so the statement matches zero rows
// when the session is full or no longer scheduled; RowsAffected then
// tells us whether the claim succeeded.  This is the only place seat
// counts go up.
func (r *SessionRepo) Reserve(ctx context.Context, sessionID string, count int) error {
	const q = `UPDATE sessions
		SET seats_booked = seats_booked + ?
		WHERE id = ? AND status = 'scheduled' AND seats_booked + ? <= seats_total`
	res, err := r.db.ExecContext(ctx, q, count, sessionID, count)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSeats
	}
	return nil
}

// Release returns count seats to a session.  The seats_booked >= count
// guard keeps the counter from going negative if a release is ever
// retried after a partial failure.
func (r *SessionRepo) Release(ctx context.Context, sessionID string, count int) error {
	const q = `UPDATE sessions
		SET seats_booked = seats_booked - ?
		WHERE id = ? AND seats_booked >= ?`
	_, err := r.db.ExecContext(ctx, q, count, sessionID, count)
	return err
}

// Create inserts a single session.  The ID is generated here so the
// caller gets it back on the model without a second query.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	const q = `INSERT INTO sessions
		(id, listing_id, batch_id, start_at, duration_minutes, seats_total, seats_booked,
		 price_override_inr, allow_late_booking_minutes, status, is_rescheduled)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, 'scheduled', ?)`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.ListingID, s.BatchID, s.StartAt.UTC(), s.DurationMinutes, s.SeatsTotal,
		s.PriceOverrideINR, s.AllowLateBookingMinutes, s.IsRescheduled)
	if err != nil {
		return err
	}
	const sel = `SELECT ` + sessionCols + ` FROM sessions WHERE id = ?`
	got, err := scanSession(r.db.QueryRowContext(ctx, sel, s.ID))
	if err != nil {
		return err
	}
	*s = got
	return nil
}

// CreateBulk inserts many sessions in one statement.  Used by batch
// schedule generation.  Passing an empty slice is a no-op.
func (r *SessionRepo) CreateBulk(ctx context.Context, sessions []model.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	query := `INSERT INTO sessions
		(id, listing_id, batch_id, start_at, duration_minutes, seats_total, seats_booked,
		 price_override_inr, allow_late_booking_minutes, status, is_rescheduled) VALUES `
	args := make([]interface{}, 0, len(sessions)*9)
	for i := range sessions {
		s := &sessions[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, 0, ?, ?, 'scheduled', ?)"
		args = append(args,
			s.ID, s.ListingID, s.BatchID, s.StartAt.UTC(), s.DurationMinutes, s.SeatsTotal,
			s.PriceOverrideINR, s.AllowLateBookingMinutes, s.IsRescheduled)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ListByListing returns upcoming scheduled sessions for a listing,
// soonest first.  Past sessions are excluded; callers that need history
// go through booking records instead.
func (r *SessionRepo) ListByListing(ctx context.Context, listingID string, from time.Time) ([]model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions
		WHERE listing_id = ? AND status = 'scheduled' AND start_at >= ?
		ORDER BY start_at ASC`
	rows, err := r.db.QueryContext(ctx, q, listingID, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByBatch returns upcoming scheduled sessions belonging to a batch,
// soonest first.  Plan bookings consume sessions in this order.
func (r *SessionRepo) ListByBatch(ctx context.Context, batchID string, from time.Time, limit int) ([]model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions
		WHERE batch_id = ? AND status = 'scheduled' AND start_at >= ?
		ORDER BY start_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, batchID, from.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a session to the given status.
func (r *SessionRepo) UpdateStatus(ctx context.Context, sessionID string, status model.SessionStatus) error {
	const q = `UPDATE sessions SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, string(status), sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session that has no bookings yet.  Sessions with any
// booked seats must be canceled through the partner-cancel flow so that
// customers are refunded; deleting one here returns ErrConflict.
func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM sessions WHERE id = ? AND seats_booked = 0`
	res, err := r.db.ExecContext(ctx, q, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing from still-booked for a useful error.
		var booked int
		err := r.db.QueryRowContext(ctx, `SELECT seats_booked FROM sessions WHERE id = ?`, sessionID).Scan(&booked)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// CountUpcomingByListing returns how many scheduled future sessions a
// listing has.  Used when validating plan availability.
func (r *SessionRepo) CountUpcomingByListing(ctx context.Context, listingID string, from time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM sessions
		WHERE listing_id = ? AND status = 'scheduled' AND start_at >= ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, listingID, from.UTC()).Scan(&n)
	return n, err
}

// MarkRescheduled flags a session as the product of a reschedule.
func (r *SessionRepo) MarkRescheduled(ctx context.Context, sessionID string) error {
	const q = `UPDATE sessions SET is_rescheduled = TRUE WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, sessionID)
	return err
}
