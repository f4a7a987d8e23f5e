package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rayyhq/rayy-backend/internal/model"
)

// WalletRepo manages credit wallets and the append-only credit ledger.
// Every balance change writes both the counter and a ledger row in one
// transaction; the ledger is the audit trail, the counter is what
// debits are checked against.
type WalletRepo struct {
	db *sql.DB
}

// NewWalletRepo returns a new WalletRepo bound to the given database.
func NewWalletRepo(db *sql.DB) *WalletRepo { return &WalletRepo{db: db} }

// DB exposes the underlying sql.DB for cross-repository transactions.
func (r *WalletRepo) DB() *sql.DB {
	return r.db
}

const walletCols = `id, user_id, credits_balance, last_grant_at, created_at, updated_at`

func scanWallet(row interface{ Scan(...any) error }) (model.Wallet, error) {
	var (
		w       model.Wallet
		grantAt sql.NullTime
	)
	err := row.Scan(&w.ID, &w.UserID, &w.CreditsBalance, &grantAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return model.Wallet{}, err
	}
	if grantAt.Valid {
		v := grantAt.Time
		w.LastGrantAt = &v
	}
	return w, nil
}

// GetOrCreate returns the user's wallet, creating an empty one on first
// use.  A concurrent create losing the unique-index race falls back to
// re-reading the winner's row.
func (r *WalletRepo) GetOrCreate(ctx context.Context, userID uint64) (model.Wallet, error) {
	const sel = `SELECT ` + walletCols + ` FROM wallets WHERE user_id = ?`
	w, err := scanWallet(r.db.QueryRowContext(ctx, sel, userID))
	if err == nil {
		return w, nil
	}
	if err != sql.ErrNoRows {
		return model.Wallet{}, err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO wallets (user_id, credits_balance) VALUES (?, 0)`, userID)
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "1062") {
		return model.Wallet{}, err
	}
	return scanWallet(r.db.QueryRowContext(ctx, sel, userID))
}

// Debit atomically removes credits from a wallet and appends the
// matching ledger row.  The balance guard makes the UPDATE match zero
// rows when funds are short, in which case nothing is written and
// ErrInsufficientCredits is returned.
func (r *WalletRepo) Debit(ctx context.Context, userID uint64, amount int, reason model.LedgerReason, refBookingID *string, description *string) error {
	if amount <= 0 {
		return nil
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

	const q = `UPDATE wallets SET credits_balance = credits_balance - ?
		WHERE user_id = ? AND credits_balance >= ?`
	res, err := tx.ExecContext(ctx, q, amount, userID, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientCredits
	}
	if err = insertLedgerTx(ctx, tx, userID, -amount, reason, refBookingID, description); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Credit atomically adds credits to a wallet and appends the matching
// ledger row.  The wallet is created if missing so refunds to users who
// never opened their wallet still land.
func (r *WalletRepo) Credit(ctx context.Context, userID uint64, amount int, reason model.LedgerReason, refBookingID *string, description *string) error {
	if amount <= 0 {
		return nil
	}
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
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

	const q = `UPDATE wallets SET credits_balance = credits_balance + ? WHERE user_id = ?`
	if _, err = tx.ExecContext(ctx, q, amount, userID); err != nil {
		return err
	}
	if err = insertLedgerTx(ctx, tx, userID, amount, reason, refBookingID, description); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GrantWelcomeBonus credits the signup bonus exactly once per wallet.
// The last_grant_at IS NULL guard makes a duplicate grant a no-op
// rather than a double payout.
func (r *WalletRepo) GrantWelcomeBonus(ctx context.Context, userID uint64, amount int) error {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
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

	const q = `UPDATE wallets SET credits_balance = credits_balance + ?, last_grant_at = ?
		WHERE user_id = ? AND last_grant_at IS NULL`
	res, err := tx.ExecContext(ctx, q, amount, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Already granted.
		return nil
	}
	desc := "welcome bonus"
	if err = insertLedgerTx(ctx, tx, userID, amount, model.LedgerWelcomeBonus, nil, &desc); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Grant credits a subscription allotment and stamps last_grant_at, the
// anchor the next monthly grant is scheduled from.  Balance, stamp and
// ledger row all land in one transaction.
func (r *WalletRepo) Grant(ctx context.Context, userID uint64, amount int, reason model.LedgerReason, description *string) error {
	if amount <= 0 {
		return nil
	}
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
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

	const q = `UPDATE wallets SET credits_balance = credits_balance + ?, last_grant_at = ?
		WHERE user_id = ?`
	if _, err = tx.ExecContext(ctx, q, amount, time.Now().UTC(), userID); err != nil {
		return err
	}
	if err = insertLedgerTx(ctx, tx, userID, amount, reason, nil, description); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func insertLedgerTx(ctx context.Context, tx *sql.Tx, userID uint64, delta int, reason model.LedgerReason, refBookingID *string, description *string) error {
	const q = `INSERT INTO credit_ledger (id, user_id, delta, reason, ref_booking_id, description)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, uuid.NewString(), userID, delta, string(reason), refBookingID, description)
	return err
}

// Ledger returns the user's ledger entries, newest first.
func (r *WalletRepo) Ledger(ctx context.Context, userID uint64, limit int) ([]model.LedgerEntry, error) {
	const q = `SELECT id, user_id, delta, reason, ref_booking_id, description, created_at
		FROM credit_ledger WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LedgerEntry
	for rows.Next() {
		var (
			e     model.LedgerEntry
			refID sql.NullString
			desc  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &refID, &desc, &e.CreatedAt); err != nil {
			return nil, err
		}
		if refID.Valid {
			v := refID.String
			e.RefBookingID = &v
		}
		if desc.Valid {
			v := desc.String
			e.Description = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ActiveCreditPlans returns the purchasable credit subscriptions.
func (r *WalletRepo) ActiveCreditPlans(ctx context.Context) ([]model.CreditPlan, error) {
	const q = `SELECT id, name, price_inr, credits_per_month, is_active
		FROM credit_plans WHERE is_active = TRUE ORDER BY price_inr ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CreditPlan
	for rows.Next() {
		var p model.CreditPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceINR, &p.CreditsPerMonth, &p.IsActive); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
