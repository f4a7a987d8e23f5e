package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/rayyhq/rayy-backend/internal/model"
)

// ListingRepo manages listings together with their owned plan options
// and batches.  Reads assemble the full aggregate; writes are targeted
// statements so concurrent edits to different sub-collections do not
// clobber each other.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// DB exposes the underlying sql.DB for cross-repository transactions.
func (r *ListingRepo) DB() *sql.DB {
	return r.db
}

const listingCols = `id, partner_id, title, description, category, base_price_inr, tax_percent,
	trial_available, trial_price_inr, session_duration_minutes, is_active, created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }) (model.Listing, error) {
	var l model.Listing
	err := row.Scan(
		&l.ID, &l.PartnerID, &l.Title, &l.Description, &l.Category, &l.BasePriceINR, &l.TaxPercent,
		&l.TrialAvailable, &l.TrialPriceINR, &l.SessionDuration, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// Create inserts a listing and its initial plan options and batches.
// Everything goes in one transaction so a half-created listing never
// becomes visible.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
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

	const q = `INSERT INTO listings
		(id, partner_id, title, description, category, base_price_inr, tax_percent,
		 trial_available, trial_price_inr, session_duration_minutes, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE)`
	if _, err = tx.ExecContext(ctx, q,
		l.ID, l.PartnerID, l.Title, l.Description, l.Category, l.BasePriceINR, l.TaxPercent,
		l.TrialAvailable, l.TrialPriceINR, l.SessionDuration); err != nil {
		return err
	}
	for i := range l.PlanOptions {
		if err = insertPlanOptionTx(ctx, tx, l.ID, &l.PlanOptions[i]); err != nil {
			return err
		}
	}
	for i := range l.Batches {
		if err = insertBatchTx(ctx, tx, l.ID, &l.Batches[i]); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func insertPlanOptionTx(ctx context.Context, tx *sql.Tx, listingID string, p *model.PlanOption) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.ListingID = listingID
	const q = `INSERT INTO listing_plan_options
		(id, listing_id, plan_type, name, price_inr, sessions_count, timing_type, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, TRUE)`
	_, err := tx.ExecContext(ctx, q,
		p.ID, listingID, string(p.PlanType), p.Name, p.PriceINR, p.SessionsCount, string(p.TimingType))
	return err
}

func insertBatchTx(ctx context.Context, tx *sql.Tx, listingID string, b *model.Batch) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.ListingID = listingID
	const q = `INSERT INTO listing_batches
		(id, listing_id, name, capacity, enrolled_count, weekdays, start_time, start_date, is_active)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, TRUE)`
	_, err := tx.ExecContext(ctx, q,
		b.ID, listingID, b.Name, b.Capacity, b.Weekdays, b.StartTime, b.StartDate)
	return err
}

// GetByID loads a listing with its plan options and batches.
func (r *ListingRepo) GetByID(ctx context.Context, id string) (model.Listing, error) {
	const q = `SELECT ` + listingCols + ` FROM listings WHERE id = ?`
	l, err := scanListing(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.Listing{}, ErrNotFound
	}
	if err != nil {
		return model.Listing{}, err
	}
	if l.PlanOptions, err = r.planOptions(ctx, l.ID); err != nil {
		return model.Listing{}, err
	}
	if l.Batches, err = r.batches(ctx, l.ID); err != nil {
		return model.Listing{}, err
	}
	return l, nil
}

func (r *ListingRepo) planOptions(ctx context.Context, listingID string) ([]model.PlanOption, error) {
	const q = `SELECT id, listing_id, plan_type, name, price_inr, sessions_count, timing_type, is_active
		FROM listing_plan_options WHERE listing_id = ? ORDER BY sessions_count ASC`
	rows, err := r.db.QueryContext(ctx, q, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PlanOption
	for rows.Next() {
		var p model.PlanOption
		if err := rows.Scan(&p.ID, &p.ListingID, &p.PlanType, &p.Name, &p.PriceINR,
			&p.SessionsCount, &p.TimingType, &p.IsActive); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ListingRepo) batches(ctx context.Context, listingID string) ([]model.Batch, error) {
	const q = `SELECT id, listing_id, name, capacity, enrolled_count, weekdays, start_time, start_date, is_active, created_at
		FROM listing_batches WHERE listing_id = ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Batch
	for rows.Next() {
		var b model.Batch
		if err := rows.Scan(&b.ID, &b.ListingID, &b.Name, &b.Capacity, &b.EnrolledCount,
			&b.Weekdays, &b.StartTime, &b.StartDate, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListActive returns active listings, optionally filtered by category.
// Sub-collections are not loaded here; browse responses only need the
// listing row.
func (r *ListingRepo) ListActive(ctx context.Context, category string) ([]model.Listing, error) {
	q := `SELECT ` + listingCols + ` FROM listings WHERE is_active = TRUE`
	args := []interface{}{}
	if category != "" {
		q += ` AND category = ?`
		args = append(args, category)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListByPartner returns all listings owned by a partner, newest first.
func (r *ListingRepo) ListByPartner(ctx context.Context, partnerID uint64) ([]model.Listing, error) {
	const q = `SELECT ` + listingCols + ` FROM listings WHERE partner_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Update rewrites the mutable listing columns after verifying ownership.
func (r *ListingRepo) Update(ctx context.Context, partnerID uint64, l *model.Listing) error {
	owner, err := r.OwnerOf(ctx, l.ID)
	if err != nil {
		return err
	}
	if owner != partnerID {
		return ErrForbidden
	}
	const q = `UPDATE listings SET title=?, description=?, category=?, base_price_inr=?, tax_percent=?,
		trial_available=?, trial_price_inr=?, session_duration_minutes=?, is_active=? WHERE id=?`
	_, err = r.db.ExecContext(ctx, q,
		l.Title, l.Description, l.Category, l.BasePriceINR, l.TaxPercent,
		l.TrialAvailable, l.TrialPriceINR, l.SessionDuration, l.IsActive, l.ID)
	return err
}

// OwnerOf returns the partner id that owns a listing.
func (r *ListingRepo) OwnerOf(ctx context.Context, listingID string) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx, `SELECT partner_id FROM listings WHERE id = ?`, listingID).Scan(&owner)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return owner, err
}

// AddPlanOption appends a plan option to an existing listing.
func (r *ListingRepo) AddPlanOption(ctx context.Context, partnerID uint64, listingID string, p *model.PlanOption) error {
	owner, err := r.OwnerOf(ctx, listingID)
	if err != nil {
		return err
	}
	if owner != partnerID {
		return ErrForbidden
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
	if err = insertPlanOptionTx(ctx, tx, listingID, p); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AddBatch appends a batch to an existing listing.
func (r *ListingRepo) AddBatch(ctx context.Context, partnerID uint64, listingID string, b *model.Batch) error {
	owner, err := r.OwnerOf(ctx, listingID)
	if err != nil {
		return err
	}
	if owner != partnerID {
		return ErrForbidden
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
	if err = insertBatchTx(ctx, tx, listingID, b); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdatePlanOption rewrites a plan option owned by the listing.
func (r *ListingRepo) UpdatePlanOption(ctx context.Context, partnerID uint64, listingID string, p *model.PlanOption) error {
	owner, err := r.OwnerOf(ctx, listingID)
	if err != nil {
		return err
	}
	if owner != partnerID {
		return ErrForbidden
	}
	const q = `UPDATE listing_plan_options
		SET plan_type=?, name=?, price_inr=?, sessions_count=?, timing_type=?, is_active=?
		WHERE id=? AND listing_id=?`
	res, err := r.db.ExecContext(ctx, q,
		p.PlanType, p.Name, p.PriceINR, p.SessionsCount, p.TimingType, p.IsActive, p.ID, listingID)
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

// DeletePlanOption removes a plan option.  Existing bookings keep
// their copied price fields, so deletion never rewrites history.
func (r *ListingRepo) DeletePlanOption(ctx context.Context, partnerID uint64, listingID, optionID string) error {
	owner, err := r.OwnerOf(ctx, listingID)
	if err != nil {
		return err
	}
	if owner != partnerID {
		return ErrForbidden
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM listing_plan_options WHERE id = ? AND listing_id = ?`, optionID, listingID)
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

// UpdateBatch rewrites a batch's schedule fields.  The enrolled_count
// counter is never touched here.
func (r *ListingRepo) UpdateBatch(ctx context.Context, partnerID uint64, listingID string, b *model.Batch) error {
	owner, err := r.OwnerOf(ctx, listingID)
	if err != nil {
		return err
	}
	if owner != partnerID {
		return ErrForbidden
	}
	const q = `UPDATE listing_batches
		SET name=?, capacity=?, weekdays=?, start_time=?, start_date=?, is_active=?
		WHERE id=? AND listing_id=?`
	res, err := r.db.ExecContext(ctx, q,
		b.Name, b.Capacity, b.Weekdays, b.StartTime, b.StartDate, b.IsActive, b.ID, listingID)
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

// DeleteBatch removes a batch that has no enrollments.  A batch with
// enrolled students returns ErrConflict and stays untouched.
func (r *ListingRepo) DeleteBatch(ctx context.Context, partnerID uint64, listingID, batchID string) error {
	owner, err := r.OwnerOf(ctx, listingID)
	if err != nil {
		return err
	}
	if owner != partnerID {
		return ErrForbidden
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM listing_batches WHERE id = ? AND listing_id = ? AND enrolled_count = 0`,
		batchID, listingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM listing_batches WHERE id = ? AND listing_id = ?)`,
			batchID, listingID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrConflict
		}
		return ErrNotFound
	}
	return nil
}

// EnrollBatch atomically claims one seat of batch capacity.  Same
// conditional-update shape as session seat reservation: zero rows
// affected means the batch is full (or inactive) and nothing changed.
func (r *ListingRepo) EnrollBatch(ctx context.Context, batchID string) error {
	const q = `UPDATE listing_batches
		SET enrolled_count = enrolled_count + 1
		WHERE id = ? AND is_active = TRUE AND enrolled_count < capacity`
	res, err := r.db.ExecContext(ctx, q, batchID)
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

// ReleaseBatchSeat returns one enrollment seat to a batch.  Guarded
// against going negative, mirroring session seat release.
func (r *ListingRepo) ReleaseBatchSeat(ctx context.Context, batchID string) error {
	const q = `UPDATE listing_batches
		SET enrolled_count = enrolled_count - 1
		WHERE id = ? AND enrolled_count > 0`
	_, err := r.db.ExecContext(ctx, q, batchID)
	return err
}

// GetBatch loads a single batch row.
func (r *ListingRepo) GetBatch(ctx context.Context, batchID string) (model.Batch, error) {
	const q = `SELECT id, listing_id, name, capacity, enrolled_count, weekdays, start_time, start_date, is_active, created_at
		FROM listing_batches WHERE id = ?`
	var b model.Batch
	err := r.db.QueryRowContext(ctx, q, batchID).Scan(&b.ID, &b.ListingID, &b.Name, &b.Capacity,
		&b.EnrolledCount, &b.Weekdays, &b.StartTime, &b.StartDate, &b.IsActive, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Batch{}, ErrNotFound
	}
	return b, err
}
