package booking

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rayyhq/rayy-backend/internal/model"
	"github.com/rayyhq/rayy-backend/internal/repository"
)

// SessionStore is the seat-reservation primitive plus session lookups.
// Reserve is a single-attempt conditional write: it either claims the
// seats or returns repository.ErrNoSeats, never partially succeeds.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (model.Session, error)
	Reserve(ctx context.Context, sessionID string, count int) error
	Release(ctx context.Context, sessionID string, count int) error
	ListByListing(ctx context.Context, listingID string, from time.Time) ([]model.Session, error)
	CountUpcomingByListing(ctx context.Context, listingID string, from time.Time) (int, error)
}

// ListingStore provides listing aggregates and the batch capacity
// counter.
type ListingStore interface {
	GetByID(ctx context.Context, id string) (model.Listing, error)
	OwnerOf(ctx context.Context, listingID string) (uint64, error)
	EnrollBatch(ctx context.Context, batchID string) error
	ReleaseBatchSeat(ctx context.Context, batchID string) error
}

// BookingStore persists bookings and their status transitions.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (model.Booking, error)
	MarkCanceled(ctx context.Context, bookingID, canceledBy, reason string, refundINR float64, refundCredits int) error
	MarkRefunded(ctx context.Context, bookingID string) error
	RecordAttendance(ctx context.Context, bookingID string, att model.Attendance, notes *string, status model.BookingStatus, payoutEligible bool) error
	Reschedule(ctx context.Context, bookingID, newSessionID string) error
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	HasTrialForListing(ctx context.Context, userID uint64, listingID string) (bool, error)
	CountTrialsSince(ctx context.Context, userID uint64, since time.Time) (int, error)
	CreateAbsenceNotice(ctx context.Context, n *model.AbsenceNotice) error
}

// WalletStore is the credit wallet: conditional debit, credit with
// ledger append.
type WalletStore interface {
	Debit(ctx context.Context, userID uint64, amount int, reason model.LedgerReason, refBookingID *string, description *string) error
	Credit(ctx context.Context, userID uint64, amount int, reason model.LedgerReason, refBookingID *string, description *string) error
}

// UserStore supplies the user snapshots stamped onto invoices.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// InvoiceStore persists invoices.
type InvoiceStore interface {
	Create(ctx context.Context, inv *model.Invoice) error
}

// Event is a domain event handed to the Notifier.  Side effects driven
// by events (emails, partner notifications) are always best-effort.
type Event struct {
	Type      string  `json:"type"`
	BookingID string  `json:"booking_id"`
	UserID    uint64  `json:"user_id"`
	ListingID string  `json:"listing_id"`
	SessionID string  `json:"session_id"`
	Message   string  `json:"message"`
	AmountINR float64 `json:"amount_inr,omitempty"`
}

// Notifier publishes domain events.  Implementations must not block
// the request path longer than a publish round-trip.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Config carries the tunable rules of the engine.
type Config struct {
	GoodwillCredits        int    // extra credits on partner-initiated cancel
	RescheduleLimitMinutes int    // minimum lead time before the original start
	TrialWeeklyLimit       int    // max trial bookings per rolling 7 days
	PaymentsMode           string // prefixes txn ids; only "mock" is wired today
}

// DefaultConfig returns the platform defaults.
func DefaultConfig() Config {
	return Config{
		GoodwillCredits:        5,
		RescheduleLimitMinutes: 30,
		TrialWeeklyLimit:       2,
		PaymentsMode:           "mock",
	}
}

// Engine orchestrates all booking flows.  It owns no storage itself;
// the stores are narrow interfaces so the whole state machine is unit
// testable with mocks.
type Engine struct {
	sessions SessionStore
	listings ListingStore
	bookings BookingStore
	wallets  WalletStore
	users    UserStore
	invoices InvoiceStore
	notifier Notifier
	cfg      Config

	now      func() time.Time
	newTxnID func() string
}

// NewEngine wires an Engine over the given stores.
func NewEngine(sessions SessionStore, listings ListingStore, bookings BookingStore,
	wallets WalletStore, users UserStore, invoices InvoiceStore, notifier Notifier, cfg Config) *Engine {
	mode := cfg.PaymentsMode
	if mode == "" {
		mode = "mock"
	}
	return &Engine{
		sessions: sessions,
		listings: listings,
		bookings: bookings,
		wallets:  wallets,
		users:    users,
		invoices: invoices,
		notifier: notifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newTxnID: func() string { return mode + "_txn_" + uuid.NewString() },
	}
}

// CreateRequest is the input of a single-session booking.
type CreateRequest struct {
	SessionID        string `json:"session_id" validate:"required"`
	ChildProfileName string `json:"child_profile_name" validate:"required"`
	ChildProfileAge  int    `json:"child_profile_age" validate:"gte=0,lte=18"`
	PaymentMethod    string `json:"payment_method" validate:"required"`
	UseCredits       bool   `json:"use_credits"`
	IsTrial          bool   `json:"is_trial"`
}

// Create books one seat on one session.  Order of effects: validate,
// reserve the seat (single conditional attempt), debit credits, persist
// the booking, then best-effort invoice and notification.  Any failure
// after the reservation unwinds everything done so far.
func (e *Engine) Create(ctx context.Context, actor model.Actor, req CreateRequest) (*model.Booking, error) {
	if !actor.Role.CanBook() {
		return nil, authorizationf("role %s cannot create bookings", actor.Role)
	}
	if strings.TrimSpace(req.ChildProfileName) == "" {
		return nil, validationf("child profile name is required")
	}
	if !model.ValidPaymentMethod(req.PaymentMethod) {
		return nil, validationf("unknown payment method %q", req.PaymentMethod)
	}
	if req.UseCredits && model.PaymentMethod(req.PaymentMethod) != model.PayCreditWallet {
		return nil, validationf("use_credits requires the credit_wallet payment method")
	}

	sess, err := e.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("session not found")
		}
		return nil, internal("load session", err)
	}
	listing, err := e.listings.GetByID(ctx, sess.ListingID)
	if err != nil {
		return nil, internal("load listing", err)
	}

	now := e.now()
	if sess.Status != model.SessionScheduled {
		return nil, statef("session is %s", sess.Status)
	}
	if !now.Before(sess.BookingCutoff()) {
		return nil, validationf("booking window closed")
	}

	if req.IsTrial {
		if err := e.checkTrialRules(ctx, actor.UserID, &listing); err != nil {
			return nil, err
		}
	}

	quote := quoteSession(&listing, &sess, req.IsTrial)

	// Single-attempt atomic claim. No retry loop: contention resolves
	// by failing fast.
	if err := e.sessions.Reserve(ctx, sess.ID, 1); err != nil {
		if errors.Is(err, repository.ErrNoSeats) {
			return nil, conflictf("no seats available")
		}
		return nil, internal("reserve seat", err)
	}
	var comp saga
	comp.add("release seat", func(ctx context.Context) error {
		return e.sessions.Release(ctx, sess.ID, 1)
	})

	b := &model.Booking{
		ID:               uuid.NewString(),
		UserID:           actor.UserID,
		SessionID:        sess.ID,
		ListingID:        listing.ID,
		ChildProfileName: strings.TrimSpace(req.ChildProfileName),
		ChildProfileAge:  req.ChildProfileAge,
		Qty:              1,
		UnitPriceINR:     quote.UnitPriceINR,
		TaxesINR:         quote.TaxesINR,
		TotalINR:         quote.TotalINR,
		PaymentMethod:    model.PaymentMethod(req.PaymentMethod),
		Status:           model.BookingConfirmed,
		BookedAt:         now,
		IsTrial:          req.IsTrial,
	}

	if req.UseCredits {
		needed := creditsFor(quote.TotalINR)
		desc := "booking " + b.ID
		if err := e.wallets.Debit(ctx, actor.UserID, needed, model.LedgerBooking, &b.ID, &desc); err != nil {
			comp.unwind(ctx)
			if errors.Is(err, repository.ErrInsufficientCredits) {
				return nil, insufficientCredits()
			}
			return nil, internal("debit wallet", err)
		}
		b.CreditsUsed = needed
		// What the credits covered is no longer owed in rupees.
		b.TotalINR = round2(quote.TotalINR - float64(needed))
		comp.add("refund credits", func(ctx context.Context) error {
			d := "booking rollback " + b.ID
			return e.wallets.Credit(ctx, actor.UserID, needed, model.LedgerRefund, &b.ID, &d)
		})
	} else {
		txn := e.newTxnID()
		b.PaymentTxnID = &txn
	}

	if err := e.bookings.Create(ctx, b); err != nil {
		comp.unwind(ctx)
		return nil, internal("persist booking", err)
	}

	e.issueInvoice(ctx, b, &listing, &sess, b.CreditsUsed, b.TotalINR)
	e.notify(ctx, Event{
		Type:      "booking.confirmed",
		BookingID: b.ID,
		UserID:    b.UserID,
		ListingID: listing.ID,
		SessionID: sess.ID,
		Message:   "booking confirmed for " + listing.Title,
		AmountINR: b.TotalINR,
	})
	return b, nil
}

func (e *Engine) checkTrialRules(ctx context.Context, userID uint64, l *model.Listing) error {
	if !l.TrialAvailable {
		return validationf("trial not available")
	}
	had, err := e.bookings.HasTrialForListing(ctx, userID, l.ID)
	if err != nil {
		return internal("check prior trial", err)
	}
	if had {
		return validationf("trial already used for this listing")
	}
	n, err := e.bookings.CountTrialsSince(ctx, userID, e.now().Add(-7*24*time.Hour))
	if err != nil {
		return internal("count recent trials", err)
	}
	if n >= e.cfg.TrialWeeklyLimit {
		return validationf("trial limit of %d per week reached", e.cfg.TrialWeeklyLimit)
	}
	return nil
}

// PlanRequest is the input of a multi-session plan booking.  SessionIDs
// must name exactly the plan's session count; for FIXED timing plans
// they must all belong to BatchID.
type PlanRequest struct {
	ListingID        string   `json:"listing_id" validate:"required"`
	PlanOptionID     string   `json:"plan_option_id" validate:"required"`
	SessionIDs       []string `json:"session_ids" validate:"required,min=1"`
	BatchID          *string  `json:"batch_id"`
	ChildProfileName string   `json:"child_profile_name" validate:"required"`
	ChildProfileAge  int      `json:"child_profile_age" validate:"gte=0,lte=18"`
	PaymentMethod    string   `json:"payment_method" validate:"required"`
	UseCredits       bool     `json:"use_credits"`
}

// PlanResult is what a successful plan purchase returns: one booking
// per session plus the aggregate charge.
type PlanResult struct {
	Bookings      []*model.Booking `json:"bookings"`
	TotalINR      float64          `json:"total_inr"`
	CreditsUsed   int              `json:"credits_used"`
	PaymentTxnID  *string          `json:"payment_txn_id,omitempty"`
	SessionsCount int              `json:"sessions_count"`
}

// CreatePlan books a whole plan in one operation.  All sessions are
// validated before the first seat is touched; reservations then run one
// by one building a compensation list, and any failure unwinds every
// seat (and batch slot, and debit) already taken.
func (e *Engine) CreatePlan(ctx context.Context, actor model.Actor, req PlanRequest) (*PlanResult, error) {
	if !actor.Role.CanBook() {
		return nil, authorizationf("role %s cannot create bookings", actor.Role)
	}
	if strings.TrimSpace(req.ChildProfileName) == "" {
		return nil, validationf("child profile name is required")
	}
	if !model.ValidPaymentMethod(req.PaymentMethod) {
		return nil, validationf("unknown payment method %q", req.PaymentMethod)
	}
	if req.UseCredits && model.PaymentMethod(req.PaymentMethod) != model.PayCreditWallet {
		return nil, validationf("use_credits requires the credit_wallet payment method")
	}

	listing, err := e.listings.GetByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("listing not found")
		}
		return nil, internal("load listing", err)
	}
	opt := listing.PlanOptionByID(req.PlanOptionID)
	if opt == nil || !opt.IsActive {
		return nil, notFoundf("plan option not found")
	}
	spec, ok := SpecFor(opt.PlanType)
	if !ok {
		return nil, validationf("unknown plan type %q", opt.PlanType)
	}
	if spec.IsTrial {
		return nil, validationf("trial bookings go through the single-session flow")
	}
	if len(req.SessionIDs) != spec.SessionsCount {
		return nil, validationf("plan %s requires exactly %d sessions, got %d", opt.PlanType, spec.SessionsCount, len(req.SessionIDs))
	}

	now := e.now()
	upcoming, err := e.sessions.CountUpcomingByListing(ctx, listing.ID, now)
	if err != nil {
		return nil, internal("count upcoming sessions", err)
	}
	if upcoming < spec.SessionsCount {
		return nil, validationf("plan %s is not available for this listing", opt.PlanType)
	}

	// Validate every session before touching any seat counter.
	seen := make(map[string]bool, len(req.SessionIDs))
	sessions := make([]model.Session, 0, len(req.SessionIDs))
	for _, sid := range req.SessionIDs {
		if seen[sid] {
			return nil, validationf("duplicate session %s in plan", sid)
		}
		seen[sid] = true
		s, err := e.sessions.GetByID(ctx, sid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFoundf("session %s not found", sid)
			}
			return nil, internal("load session", err)
		}
		if s.ListingID != listing.ID {
			return nil, validationf("session %s does not belong to the listing", sid)
		}
		if s.Status != model.SessionScheduled {
			return nil, statef("session %s is %s", sid, s.Status)
		}
		if !s.StartAt.After(now) {
			return nil, validationf("session %s has already started", sid)
		}
		sessions = append(sessions, s)
	}

	if opt.TimingType == model.TimingFixed {
		if req.BatchID == nil {
			return nil, validationf("fixed timing plans require a batch")
		}
		batch := listing.BatchByID(*req.BatchID)
		if batch == nil || !batch.IsActive {
			return nil, notFoundf("batch not found")
		}
		for _, s := range sessions {
			if s.BatchID == nil || *s.BatchID != batch.ID {
				return nil, validationf("session %s is not part of batch %s", s.ID, batch.ID)
			}
		}
	}

	perSession := planPerSessionPrice(&listing, opt, spec)
	unitQuote := quoteUnit(perSession, listing.TaxPercent)
	totalINR := round2(unitQuote.TotalINR * float64(spec.SessionsCount))

	var comp saga
	for _, s := range sessions {
		sid := s.ID
		if err := e.sessions.Reserve(ctx, sid, 1); err != nil {
			comp.unwind(ctx)
			if errors.Is(err, repository.ErrNoSeats) {
				return nil, conflictf("session %s unavailable", sid)
			}
			return nil, internal("reserve seat", err)
		}
		comp.add("release seat "+sid, func(ctx context.Context) error {
			return e.sessions.Release(ctx, sid, 1)
		})
	}

	if opt.TimingType == model.TimingFixed {
		batchID := *req.BatchID
		if err := e.listings.EnrollBatch(ctx, batchID); err != nil {
			comp.unwind(ctx)
			if errors.Is(err, repository.ErrNoSeats) {
				return nil, conflictf("batch is full")
			}
			return nil, internal("enroll batch", err)
		}
		comp.add("release batch seat", func(ctx context.Context) error {
			return e.listings.ReleaseBatchSeat(ctx, batchID)
		})
	}

	result := &PlanResult{
		TotalINR:      totalINR,
		SessionsCount: spec.SessionsCount,
	}
	planRef := uuid.NewString()
	if req.UseCredits {
		needed := creditsFor(totalINR)
		desc := "plan booking " + planRef
		if err := e.wallets.Debit(ctx, actor.UserID, needed, model.LedgerBooking, nil, &desc); err != nil {
			comp.unwind(ctx)
			if errors.Is(err, repository.ErrInsufficientCredits) {
				return nil, insufficientCredits()
			}
			return nil, internal("debit wallet", err)
		}
		result.CreditsUsed = needed
		result.TotalINR = round2(totalINR - float64(needed))
		comp.add("refund credits", func(ctx context.Context) error {
			d := "plan rollback " + planRef
			return e.wallets.Credit(ctx, actor.UserID, needed, model.LedgerRefund, nil, &d)
		})
	} else {
		txn := e.newTxnID()
		result.PaymentTxnID = &txn
	}

	// One booking per session, all sharing the full session id list so
	// any of them resolves back to the whole plan.
	creditsLeft := result.CreditsUsed
	for i, s := range sessions {
		b := &model.Booking{
			ID:               uuid.NewString(),
			UserID:           actor.UserID,
			SessionID:        s.ID,
			ListingID:        listing.ID,
			ChildProfileName: strings.TrimSpace(req.ChildProfileName),
			ChildProfileAge:  req.ChildProfileAge,
			Qty:              1,
			UnitPriceINR:     unitQuote.UnitPriceINR,
			TaxesINR:         unitQuote.TaxesINR,
			TotalINR:         unitQuote.TotalINR,
			PaymentMethod:    model.PaymentMethod(req.PaymentMethod),
			PaymentTxnID:     result.PaymentTxnID,
			Status:           model.BookingConfirmed,
			BookedAt:         now,
			PlanOptionID:     &opt.ID,
			BatchID:          req.BatchID,
			SessionIDs:       req.SessionIDs,
		}
		// Spread the debited credits across the bookings; the remainder
		// lands on the last one so the sum matches what was charged.
		if req.UseCredits {
			share := result.CreditsUsed / spec.SessionsCount
			if i == spec.SessionsCount-1 {
				share = creditsLeft
			}
			b.CreditsUsed = share
			b.TotalINR = round2(unitQuote.TotalINR - float64(share))
			creditsLeft -= share
		}
		if err := e.bookings.Create(ctx, b); err != nil {
			comp.unwind(ctx)
			return nil, internal("persist plan booking", err)
		}
		bID := b.ID
		comp.add("cancel booking "+bID, func(ctx context.Context) error {
			return e.bookings.MarkCanceled(ctx, bID, "customer", "plan rollback", 0, 0)
		})
		result.Bookings = append(result.Bookings, b)
	}

	first := result.Bookings[0]
	e.issueInvoice(ctx, first, &listing, &sessions[0], result.CreditsUsed, result.TotalINR)
	e.notify(ctx, Event{
		Type:      "booking.plan_confirmed",
		BookingID: first.ID,
		UserID:    actor.UserID,
		ListingID: listing.ID,
		SessionID: first.SessionID,
		Message:   "plan booking confirmed for " + listing.Title,
		AmountINR: result.TotalINR,
	})
	return result, nil
}

// CancelResult reports what a cancellation refunded.
type CancelResult struct {
	BookingID       string  `json:"booking_id"`
	RefundPercent   float64 `json:"refund_percent"`
	RefundAmountINR float64 `json:"refund_amount_inr"`
	RefundCredits   int     `json:"refund_credits"`
}

// Cancel is the customer-initiated cancellation.  Refund tier depends
// on lead time before the session start; trials are never cancelable.
func (e *Engine) Cancel(ctx context.Context, actor model.Actor, bookingID, reason string) (*CancelResult, error) {
	b, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("booking not found")
		}
		return nil, internal("load booking", err)
	}
	if b.UserID != actor.UserID {
		return nil, authorizationf("booking belongs to another user")
	}
	if b.IsTrial {
		return nil, validationf("trial bookings cannot be canceled")
	}
	if b.Status.Terminal() {
		return nil, statef("booking already %s", b.Status)
	}

	sess, err := e.sessions.GetByID(ctx, b.SessionID)
	if err != nil {
		return nil, internal("load session", err)
	}
	pct, ok := refundPercent(e.now(), sess.StartAt)
	if !ok {
		return nil, conflictf("cancellation window closed")
	}
	refundINR, refundCredits := refundFor(&b, pct)

	if err := e.bookings.MarkCanceled(ctx, b.ID, "customer", reason, refundINR, refundCredits); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, statef("booking is no longer cancelable")
		}
		return nil, internal("cancel booking", err)
	}
	if refundCredits > 0 {
		desc := "refund for booking " + b.ID
		bestEffort("refund credits", func() error {
			return e.wallets.Credit(ctx, b.UserID, refundCredits, model.LedgerRefund, &b.ID, &desc)
		})
	}
	bestEffort("release seat", func() error {
		return e.sessions.Release(ctx, b.SessionID, 1)
	})
	e.notify(ctx, Event{
		Type:      "booking.canceled",
		BookingID: b.ID,
		UserID:    b.UserID,
		ListingID: b.ListingID,
		SessionID: b.SessionID,
		Message:   "booking canceled",
		AmountINR: refundINR,
	})
	return &CancelResult{
		BookingID:       b.ID,
		RefundPercent:   pct * 100,
		RefundAmountINR: refundINR,
		RefundCredits:   refundCredits,
	}, nil
}

// PartnerCancel is the partner-initiated cancellation: always a full
// refund plus a goodwill bonus, and the booking lands in refunded.
func (e *Engine) PartnerCancel(ctx context.Context, actor model.Actor, bookingID, reason string) (*CancelResult, error) {
	if !actor.Role.IsPartner() {
		return nil, authorizationf("role %s cannot cancel on behalf of a partner", actor.Role)
	}
	b, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("booking not found")
		}
		return nil, internal("load booking", err)
	}
	owner, err := e.listings.OwnerOf(ctx, b.ListingID)
	if err != nil {
		return nil, internal("resolve listing owner", err)
	}
	if owner != actor.UserID {
		return nil, authorizationf("listing belongs to another partner")
	}
	if b.Status.Terminal() {
		return nil, statef("booking already %s", b.Status)
	}

	refundINR := b.TotalINR
	refundCredits := b.CreditsUsed
	if err := e.bookings.MarkCanceled(ctx, b.ID, "partner", reason, refundINR, refundCredits); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, statef("booking is no longer cancelable")
		}
		return nil, internal("cancel booking", err)
	}
	if refundCredits > 0 {
		desc := "partner cancellation refund for booking " + b.ID
		bestEffort("refund credits", func() error {
			return e.wallets.Credit(ctx, b.UserID, refundCredits, model.LedgerRefund, &b.ID, &desc)
		})
	}
	if e.cfg.GoodwillCredits > 0 {
		desc := "goodwill for partner cancellation of booking " + b.ID
		bestEffort("goodwill credits", func() error {
			return e.wallets.Credit(ctx, b.UserID, e.cfg.GoodwillCredits, model.LedgerGoodwill, &b.ID, &desc)
		})
	}
	bestEffort("release seat", func() error {
		return e.sessions.Release(ctx, b.SessionID, 1)
	})
	bestEffort("mark refunded", func() error {
		return e.bookings.MarkRefunded(ctx, b.ID)
	})
	e.notify(ctx, Event{
		Type:      "booking.partner_canceled",
		BookingID: b.ID,
		UserID:    b.UserID,
		ListingID: b.ListingID,
		SessionID: b.SessionID,
		Message:   "session canceled by the partner, full refund issued",
		AmountINR: refundINR,
	})
	return &CancelResult{
		BookingID:       b.ID,
		RefundPercent:   100,
		RefundAmountINR: refundINR,
		RefundCredits:   refundCredits + e.cfg.GoodwillCredits,
	}, nil
}

// Reschedule moves a booking to a different session of the same
// listing, at most once.  The new seat is reserved before the old one
// is released, so a failure in between can never leave the customer
// with no seat at all; a persist failure releases the new seat again.
func (e *Engine) Reschedule(ctx context.Context, actor model.Actor, bookingID, newSessionID string) (*model.Booking, error) {
	b, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("booking not found")
		}
		return nil, internal("load booking", err)
	}
	if b.UserID != actor.UserID {
		return nil, authorizationf("booking belongs to another user")
	}
	if b.Status.Terminal() {
		return nil, statef("booking already %s", b.Status)
	}
	if b.RescheduleCount >= 1 {
		return nil, statef("already rescheduled")
	}
	if newSessionID == b.SessionID {
		return nil, validationf("new session is the same as the current one")
	}

	oldSess, err := e.sessions.GetByID(ctx, b.SessionID)
	if err != nil {
		return nil, internal("load session", err)
	}
	now := e.now()
	limit := time.Duration(e.cfg.RescheduleLimitMinutes) * time.Minute
	if oldSess.StartAt.Sub(now) <= limit {
		return nil, conflictf("reschedule window closed")
	}

	newSess, err := e.sessions.GetByID(ctx, newSessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("new session not found")
		}
		return nil, internal("load session", err)
	}
	if newSess.ListingID != b.ListingID {
		return nil, validationf("new session belongs to a different listing")
	}
	if newSess.Status != model.SessionScheduled {
		return nil, statef("new session is %s", newSess.Status)
	}
	if !newSess.StartAt.After(now) {
		return nil, validationf("new session has already started")
	}

	if err := e.sessions.Reserve(ctx, newSess.ID, 1); err != nil {
		if errors.Is(err, repository.ErrNoSeats) {
			return nil, conflictf("no seats available on the new session")
		}
		return nil, internal("reserve seat", err)
	}
	if err := e.bookings.Reschedule(ctx, b.ID, newSess.ID); err != nil {
		bestEffort("release new seat", func() error {
			return e.sessions.Release(ctx, newSess.ID, 1)
		})
		if errors.Is(err, repository.ErrConflict) {
			return nil, statef("already rescheduled")
		}
		return nil, internal("persist reschedule", err)
	}
	bestEffort("release old seat", func() error {
		return e.sessions.Release(ctx, oldSess.ID, 1)
	})
	e.notify(ctx, Event{
		Type:      "booking.rescheduled",
		BookingID: b.ID,
		UserID:    b.UserID,
		ListingID: b.ListingID,
		SessionID: newSess.ID,
		Message:   "booking moved to a new session",
	})
	b.SessionID = newSess.ID
	b.RescheduleCount++
	return &b, nil
}

// UnableToAttend records an advisory absence notice.  The booking
// status does not change; the partner just gets a heads-up.
func (e *Engine) UnableToAttend(ctx context.Context, actor model.Actor, bookingID, reason string, note *string) error {
	if !model.ValidAbsenceReason(reason) {
		return validationf("unknown absence reason %q", reason)
	}
	b, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundf("booking not found")
		}
		return internal("load booking", err)
	}
	if b.UserID != actor.UserID {
		return authorizationf("booking belongs to another user")
	}
	if b.Status.Terminal() {
		return statef("booking already %s", b.Status)
	}
	n := &model.AbsenceNotice{
		BookingID:  b.ID,
		UserID:     b.UserID,
		SessionID:  &b.SessionID,
		Reason:     model.AbsenceReason(reason),
		CustomNote: note,
	}
	if err := e.bookings.CreateAbsenceNotice(ctx, n); err != nil {
		return internal("record absence notice", err)
	}
	e.notify(ctx, Event{
		Type:      "booking.unable_to_attend",
		BookingID: b.ID,
		UserID:    b.UserID,
		ListingID: b.ListingID,
		SessionID: b.SessionID,
		Message:   "customer flagged absence: " + reason,
	})
	return nil
}

// MarkAttendance is the partner-side attendance call.  present finishes
// the booking as attended and makes it payout eligible; absent and late
// finish it as no_show.
func (e *Engine) MarkAttendance(ctx context.Context, actor model.Actor, bookingID, attendance string, notes *string) error {
	if !actor.Role.IsPartner() {
		return authorizationf("role %s cannot record attendance", actor.Role)
	}
	if !model.ValidAttendance(attendance) {
		return validationf("unknown attendance value %q", attendance)
	}
	b, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundf("booking not found")
		}
		return internal("load booking", err)
	}
	owner, err := e.listings.OwnerOf(ctx, b.ListingID)
	if err != nil {
		return internal("resolve listing owner", err)
	}
	if owner != actor.UserID {
		return authorizationf("listing belongs to another partner")
	}

	att := model.Attendance(attendance)
	status := model.BookingNoShow
	if att == model.AttendancePresent {
		status = model.BookingAttended
	}
	// Only a delivered-and-attended session pays out to the partner.
	payoutEligible := att == model.AttendancePresent
	if err := e.bookings.RecordAttendance(ctx, b.ID, att, notes, status, payoutEligible); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return statef("attendance can only be recorded on confirmed bookings")
		}
		return internal("record attendance", err)
	}
	return nil
}

// TrialEligibility answers whether the user may book a trial for a
// listing, and why not if not.  Once a trial booking exists for the
// pair the answer stays false no matter how often it is asked.
type TrialEligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// CheckTrialEligibility evaluates the trial rules without booking.
func (e *Engine) CheckTrialEligibility(ctx context.Context, userID uint64, listingID string) (TrialEligibility, error) {
	listing, err := e.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TrialEligibility{}, notFoundf("listing not found")
		}
		return TrialEligibility{}, internal("load listing", err)
	}
	if err := e.checkTrialRules(ctx, userID, &listing); err != nil {
		var de *Error
		if errors.As(err, &de) && de.Kind == KindValidation {
			return TrialEligibility{Eligible: false, Reason: de.Message}, nil
		}
		return TrialEligibility{}, err
	}
	return TrialEligibility{Eligible: true}, nil
}

// BookingOptions resolves the plans a listing currently sells.
func (e *Engine) BookingOptions(ctx context.Context, listingID string) ([]PlanOffer, error) {
	listing, err := e.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("listing not found")
		}
		return nil, internal("load listing", err)
	}
	upcoming, err := e.sessions.CountUpcomingByListing(ctx, listingID, e.now())
	if err != nil {
		return nil, internal("count upcoming sessions", err)
	}
	offers := make([]PlanOffer, 0, len(listing.PlanOptions))
	for i := range listing.PlanOptions {
		if offer, ok := resolveOffer(&listing, &listing.PlanOptions[i], upcoming); ok {
			offers = append(offers, offer)
		}
	}
	return offers, nil
}

// MyBookings returns the user's bookings.  Contract: it never returns
// an error: a storage failure is logged and the caller gets an empty
// list instead.
func (e *Engine) MyBookings(ctx context.Context, userID uint64) []model.BookingDetail {
	out, err := e.bookings.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("booking: list for user %d failed: %v", userID, err)
		return []model.BookingDetail{}
	}
	if out == nil {
		out = []model.BookingDetail{}
	}
	return out
}

// issueInvoice generates the invoice for a paid booking.  Best-effort:
// a failure is logged, the booking stands.
func (e *Engine) issueInvoice(ctx context.Context, b *model.Booking, l *model.Listing, s *model.Session, creditsUsed int, totalINR float64) {
	bestEffort("invoice", func() error {
		customer, err := e.users.GetByID(ctx, b.UserID)
		if err != nil {
			return err
		}
		partner, err := e.users.GetByID(ctx, l.PartnerID)
		if err != nil {
			return err
		}
		qty := 1
		unit := b.UnitPriceINR
		if len(b.SessionIDs) > 0 {
			qty = len(b.SessionIDs)
		}
		inv := &model.Invoice{
			BookingID:     b.ID,
			CustomerID:    customer.ID,
			CustomerName:  customer.Name,
			CustomerEmail: customer.Email,
			PartnerID:     partner.ID,
			PartnerName:   partner.Name,
			ListingTitle:  l.Title,
			Items: []model.InvoiceItem{{
				Description:  l.Title,
				Quantity:     qty,
				UnitPriceINR: unit,
				TotalINR:     round2(unit * float64(qty)),
			}},
			SubtotalINR:   round2(b.UnitPriceINR * float64(qty)),
			GSTAmountINR:  round2(b.TaxesINR * float64(qty)),
			CreditsUsed:   creditsUsed,
			TotalINR:      totalINR,
			PaymentMethod: b.PaymentMethod,
			InvoiceDate:   e.now(),
			SessionDate:   s.StartAt,
		}
		return e.invoices.Create(ctx, inv)
	})
}

func (e *Engine) notify(ctx context.Context, ev Event) {
	bestEffort("notify "+ev.Type, func() error {
		return e.notifier.Notify(ctx, ev)
	})
}
