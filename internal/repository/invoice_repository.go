package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rayyhq/rayy-backend/internal/model"
)

// InvoiceRepo persists invoices.  Invoice numbers are sequential per
// calendar day (INV-YYYYMMDD-NNNN); the sequence is derived from a
// per-day COUNT inside the insert transaction.  Line items are stored
// as a JSON column since they are only ever read back whole.
type InvoiceRepo struct {
	db *sql.DB
}

// NewInvoiceRepo returns a new InvoiceRepo bound to the given database.
func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

// Create inserts an invoice, assigning the next invoice number for the
// invoice date.  The COUNT and INSERT share a transaction so two
// invoices generated at the same instant cannot take the same number
// (the unique index on invoice_number backstops the race; the loser
// retries once).
func (r *InvoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = time.Now().UTC()
	}
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if lastErr = r.createOnce(ctx, inv); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (r *InvoiceRepo) createOnce(ctx context.Context, inv *model.Invoice) error {
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

	day := inv.InvoiceDate.UTC().Format("20060102")
	var seq int
	const cnt = `SELECT COUNT(*) FROM invoices WHERE invoice_number LIKE ?`
	if err = tx.QueryRowContext(ctx, cnt, "INV-"+day+"-%").Scan(&seq); err != nil {
		return err
	}
	inv.InvoiceNumber = fmt.Sprintf("INV-%s-%04d", day, seq+1)

	items, err := json.Marshal(inv.Items)
	if err != nil {
		return err
	}
	const q = `INSERT INTO invoices
		(id, invoice_number, booking_id, customer_id, customer_name, customer_email,
		 partner_id, partner_name, listing_title, items, subtotal_inr, gst_amount_inr,
		 credits_used, total_inr, payment_method, status, invoice_date, session_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'paid', ?, ?)`
	if _, err = tx.ExecContext(ctx, q,
		inv.ID, inv.InvoiceNumber, inv.BookingID, inv.CustomerID, inv.CustomerName, inv.CustomerEmail,
		inv.PartnerID, inv.PartnerName, inv.ListingTitle, items, inv.SubtotalINR, inv.GSTAmountINR,
		inv.CreditsUsed, inv.TotalINR, string(inv.PaymentMethod), inv.InvoiceDate, inv.SessionDate); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	inv.Status = "paid"
	return nil
}

const invoiceCols = `id, invoice_number, booking_id, customer_id, customer_name, customer_email,
	partner_id, partner_name, listing_title, items, subtotal_inr, gst_amount_inr,
	credits_used, total_inr, payment_method, status, invoice_date, session_date`

func scanInvoice(row interface{ Scan(...any) error }) (model.Invoice, error) {
	var (
		inv   model.Invoice
		items []byte
	)
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.BookingID, &inv.CustomerID, &inv.CustomerName, &inv.CustomerEmail,
		&inv.PartnerID, &inv.PartnerName, &inv.ListingTitle, &items, &inv.SubtotalINR, &inv.GSTAmountINR,
		&inv.CreditsUsed, &inv.TotalINR, &inv.PaymentMethod, &inv.Status, &inv.InvoiceDate, &inv.SessionDate,
	)
	if err != nil {
		return model.Invoice{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.Items); err != nil {
			return model.Invoice{}, err
		}
	}
	return inv, nil
}

// GetByBooking fetches the invoice generated for a booking, if any.
func (r *InvoiceRepo) GetByBooking(ctx context.Context, bookingID string) (model.Invoice, error) {
	const q = `SELECT ` + invoiceCols + ` FROM invoices WHERE booking_id = ? LIMIT 1`
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, q, bookingID))
	if err == sql.ErrNoRows {
		return model.Invoice{}, ErrNotFound
	}
	return inv, err
}

// ListByCustomer returns the customer's invoices, newest first.
func (r *InvoiceRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Invoice, error) {
	const q = `SELECT ` + invoiceCols + ` FROM invoices WHERE customer_id = ? ORDER BY invoice_date DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
