package model

import "time"

// Wallet holds a user's credit balance.  One wallet per user, created
// lazily on first need.  Invariant: CreditsBalance >= 0; debits are
// conditional updates that fail rather than go negative.  The balance
// is a mutable counter; the ledger below is the append-only audit
// trail and is not summed to derive the balance.
type Wallet struct {
	ID             uint64     // wallets.id
	UserID         uint64     // wallets.user_id
	CreditsBalance int        // wallets.credits_balance
	LastGrantAt    *time.Time // wallets.last_grant_at (nullable)
	CreatedAt      time.Time  // wallets.created_at
	UpdatedAt      time.Time  // wallets.updated_at
}

// LedgerReason classifies a credit ledger entry.
type LedgerReason string

const (
	LedgerWelcomeBonus LedgerReason = "welcome_bonus"
	LedgerBooking      LedgerReason = "booking"
	LedgerRefund       LedgerReason = "refund"
	LedgerGoodwill     LedgerReason = "goodwill"
	LedgerPurchase     LedgerReason = "purchase"
)

// LedgerEntry is one immutable row of the credit audit trail.  Delta is
// signed: negative for debits, positive for credits.
type LedgerEntry struct {
	ID           string       // credit_ledger.id (UUID)
	UserID       uint64       // credit_ledger.user_id
	Delta        int          // credit_ledger.delta
	Reason       LedgerReason // credit_ledger.reason
	RefBookingID *string      // credit_ledger.ref_booking_id (nullable)
	Description  *string      // credit_ledger.description (nullable)
	CreatedAt    time.Time    // credit_ledger.created_at
}

// CreditPlan is a purchasable credit subscription.
type CreditPlan struct {
	ID              string  // credit_plans.id (UUID)
	Name            string  // credit_plans.name
	PriceINR        float64 // credit_plans.price_inr
	CreditsPerMonth int     // credit_plans.credits_per_month
	IsActive        bool    // credit_plans.is_active
}
