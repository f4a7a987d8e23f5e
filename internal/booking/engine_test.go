package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rayyhq/rayy-backend/internal/model"
	"github.com/rayyhq/rayy-backend/internal/repository"
)

// Mock implementations

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) GetByID(ctx context.Context, id string) (model.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockSessionStore) Reserve(ctx context.Context, sessionID string, count int) error {
	args := m.Called(ctx, sessionID, count)
	return args.Error(0)
}

func (m *MockSessionStore) Release(ctx context.Context, sessionID string, count int) error {
	args := m.Called(ctx, sessionID, count)
	return args.Error(0)
}

func (m *MockSessionStore) ListByListing(ctx context.Context, listingID string, from time.Time) ([]model.Session, error) {
	args := m.Called(ctx, listingID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *MockSessionStore) CountUpcomingByListing(ctx context.Context, listingID string, from time.Time) (int, error) {
	args := m.Called(ctx, listingID, from)
	return args.Int(0), args.Error(1)
}

type MockListingStore struct {
	mock.Mock
}

func (m *MockListingStore) GetByID(ctx context.Context, id string) (model.Listing, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Listing), args.Error(1)
}

func (m *MockListingStore) OwnerOf(ctx context.Context, listingID string) (uint64, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockListingStore) EnrollBatch(ctx context.Context, batchID string) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

func (m *MockListingStore) ReleaseBatchSeat(ctx context.Context, batchID string) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

type MockBookingStore struct {
	mock.Mock
}

func (m *MockBookingStore) Create(ctx context.Context, b *model.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingStore) GetByID(ctx context.Context, id string) (model.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *MockBookingStore) MarkCanceled(ctx context.Context, bookingID, canceledBy, reason string, refundINR float64, refundCredits int) error {
	args := m.Called(ctx, bookingID, canceledBy, reason, refundINR, refundCredits)
	return args.Error(0)
}

func (m *MockBookingStore) MarkRefunded(ctx context.Context, bookingID string) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

func (m *MockBookingStore) RecordAttendance(ctx context.Context, bookingID string, att model.Attendance, notes *string, status model.BookingStatus, payoutEligible bool) error {
	args := m.Called(ctx, bookingID, att, notes, status, payoutEligible)
	return args.Error(0)
}

func (m *MockBookingStore) Reschedule(ctx context.Context, bookingID, newSessionID string) error {
	args := m.Called(ctx, bookingID, newSessionID)
	return args.Error(0)
}

func (m *MockBookingStore) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BookingDetail), args.Error(1)
}

func (m *MockBookingStore) HasTrialForListing(ctx context.Context, userID uint64, listingID string) (bool, error) {
	args := m.Called(ctx, userID, listingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingStore) CountTrialsSince(ctx context.Context, userID uint64, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingStore) CreateAbsenceNotice(ctx context.Context, n *model.AbsenceNotice) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockWalletStore struct {
	mock.Mock
}

func (m *MockWalletStore) Debit(ctx context.Context, userID uint64, amount int, reason model.LedgerReason, refBookingID *string, description *string) error {
	args := m.Called(ctx, userID, amount, reason, refBookingID, description)
	return args.Error(0)
}

func (m *MockWalletStore) Credit(ctx context.Context, userID uint64, amount int, reason model.LedgerReason, refBookingID *string, description *string) error {
	args := m.Called(ctx, userID, amount, reason, refBookingID, description)
	return args.Error(0)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

type MockInvoiceStore struct {
	mock.Mock
}

func (m *MockInvoiceStore) Create(ctx context.Context, inv *model.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, ev Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// Test fixtures

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type engineMocks struct {
	sessions *MockSessionStore
	listings *MockListingStore
	bookings *MockBookingStore
	wallets  *MockWalletStore
	users    *MockUserStore
	invoices *MockInvoiceStore
	notifier *MockNotifier
}

func newTestEngine() (*Engine, *engineMocks) {
	m := &engineMocks{
		sessions: new(MockSessionStore),
		listings: new(MockListingStore),
		bookings: new(MockBookingStore),
		wallets:  new(MockWalletStore),
		users:    new(MockUserStore),
		invoices: new(MockInvoiceStore),
		notifier: new(MockNotifier),
	}
	e := NewEngine(m.sessions, m.listings, m.bookings, m.wallets, m.users, m.invoices, m.notifier, DefaultConfig())
	e.now = func() time.Time { return testNow }
	e.newTxnID = func() string { return "mock_txn_test" }
	return e, m
}

func testListing() model.Listing {
	return model.Listing{
		ID:             "listing-1",
		PartnerID:      42,
		Title:          "Junior Robotics",
		BasePriceINR:   1000,
		TaxPercent:     0,
		TrialAvailable: true,
		TrialPriceINR:  199,
		IsActive:       true,
	}
}

func testSession(id string, startIn time.Duration) model.Session {
	return model.Session{
		ID:          id,
		ListingID:   "listing-1",
		StartAt:     testNow.Add(startIn),
		SeatsTotal:  10,
		SeatsBooked: 0,
		Status:      model.SessionScheduled,
	}
}

func allowSideEffects(m *engineMocks) {
	m.users.On("GetByID", mock.Anything, mock.Anything).Return(model.User{ID: 1, Name: "Asha", Email: "asha@example.com"}, nil).Maybe()
	m.invoices.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
}

var customer = model.Actor{UserID: 1, Role: model.RoleCustomer}

// Tests start here

func TestCreateBooking_Confirmed(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 48*time.Hour), nil)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(testListing(), nil)
	m.sessions.On("Reserve", mock.Anything, "sess-1", 1).Return(nil)
	m.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)

	b, err := e.Create(context.Background(), customer, CreateRequest{
		SessionID:        "sess-1",
		ChildProfileName: "Kiran",
		ChildProfileAge:  8,
		PaymentMethod:    "upi",
	})

	assert.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, 1000.0, b.UnitPriceINR)
	assert.Equal(t, 1000.0, b.TotalINR)
	assert.NotNil(t, b.PaymentTxnID)
	m.sessions.AssertExpectations(t)
	m.bookings.AssertExpectations(t)
}

// Scenario: two bookings race for the last seat. The conditional
// reserve lets exactly one through; the loser gets a conflict and no
// booking is persisted for it.
func TestCreateBooking_LastSeatContention(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	sess := testSession("sess-1", 48*time.Hour)
	sess.SeatsTotal = 1
	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(sess, nil)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(testListing(), nil)
	m.sessions.On("Reserve", mock.Anything, "sess-1", 1).Return(nil).Once()
	m.sessions.On("Reserve", mock.Anything, "sess-1", 1).Return(repository.ErrNoSeats).Once()
	m.bookings.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	req := CreateRequest{SessionID: "sess-1", ChildProfileName: "Kiran", PaymentMethod: "upi"}

	first, err1 := e.Create(context.Background(), customer, req)
	second, err2 := e.Create(context.Background(), model.Actor{UserID: 2, Role: model.RoleCustomer}, req)

	assert.NoError(t, err1)
	assert.Equal(t, model.BookingConfirmed, first.Status)
	assert.Nil(t, second)
	var de *Error
	assert.ErrorAs(t, err2, &de)
	assert.Equal(t, KindConflict, de.Kind)
	assert.Contains(t, de.Message, "no seats available")
	m.bookings.AssertNumberOfCalls(t, "Create", 1)
}

func TestCreateBooking_InsufficientCreditsReleasesSeat(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 48*time.Hour), nil)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(testListing(), nil)
	m.sessions.On("Reserve", mock.Anything, "sess-1", 1).Return(nil)
	m.wallets.On("Debit", mock.Anything, uint64(1), 1000, model.LedgerBooking, mock.Anything, mock.Anything).
		Return(repository.ErrInsufficientCredits)
	m.sessions.On("Release", mock.Anything, "sess-1", 1).Return(nil)

	_, err := e.Create(context.Background(), customer, CreateRequest{
		SessionID:        "sess-1",
		ChildProfileName: "Kiran",
		PaymentMethod:    "credit_wallet",
		UseCredits:       true,
	})

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindInsufficientCredits, de.Kind)
	m.sessions.AssertCalled(t, "Release", mock.Anything, "sess-1", 1)
	m.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// Paying with credits settles the rupee amount: once the debit clears,
// nothing of the quote is still owed in money.
func TestCreateBooking_CreditsCoverTotal(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 48*time.Hour), nil)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(testListing(), nil)
	m.sessions.On("Reserve", mock.Anything, "sess-1", 1).Return(nil)
	m.wallets.On("Debit", mock.Anything, uint64(1), 1000, model.LedgerBooking, mock.Anything, mock.Anything).Return(nil)
	m.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)

	b, err := e.Create(context.Background(), customer, CreateRequest{
		SessionID:        "sess-1",
		ChildProfileName: "Kiran",
		PaymentMethod:    "credit_wallet",
		UseCredits:       true,
	})

	assert.NoError(t, err)
	assert.Equal(t, 1000, b.CreditsUsed)
	assert.Equal(t, 0.0, b.TotalINR)
	assert.Nil(t, b.PaymentTxnID)
	m.wallets.AssertExpectations(t)
}

// Txn ids carry the configured payments mode so a ledger row always
// names the gateway that produced it.
func TestCreateBooking_TxnIDCarriesPaymentsMode(t *testing.T) {
	_, m := newTestEngine()
	allowSideEffects(m)
	e := NewEngine(m.sessions, m.listings, m.bookings, m.wallets, m.users, m.invoices, m.notifier, DefaultConfig())
	e.now = func() time.Time { return testNow }

	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 48*time.Hour), nil)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(testListing(), nil)
	m.sessions.On("Reserve", mock.Anything, "sess-1", 1).Return(nil)
	m.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)

	b, err := e.Create(context.Background(), customer, CreateRequest{
		SessionID:        "sess-1",
		ChildProfileName: "Kiran",
		PaymentMethod:    "upi",
	})

	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(*b.PaymentTxnID, "mock_txn_"))
}

// Scenario: trial requested on a listing that does not offer trials.
func TestCreateBooking_TrialNotAvailable(t *testing.T) {
	e, m := newTestEngine()

	l := testListing()
	l.TrialAvailable = false
	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 48*time.Hour), nil)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(l, nil)

	_, err := e.Create(context.Background(), customer, CreateRequest{
		SessionID:        "sess-1",
		ChildProfileName: "Kiran",
		PaymentMethod:    "upi",
		IsTrial:          true,
	})

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindValidation, de.Kind)
	assert.Contains(t, de.Message, "trial not available")
	m.sessions.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_TrialAlreadyUsed(t *testing.T) {
	e, m := newTestEngine()

	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 48*time.Hour), nil)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(testListing(), nil)
	m.bookings.On("HasTrialForListing", mock.Anything, uint64(1), "listing-1").Return(true, nil)

	_, err := e.Create(context.Background(), customer, CreateRequest{
		SessionID:        "sess-1",
		ChildProfileName: "Kiran",
		PaymentMethod:    "upi",
		IsTrial:          true,
	})

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindValidation, de.Kind)
}

func TestCreateBooking_WindowClosed(t *testing.T) {
	e, m := newTestEngine()

	sess := testSession("sess-1", 10*time.Minute)
	sess.AllowLateBookingMinutes = 15
	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(sess, nil)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(testListing(), nil)

	_, err := e.Create(context.Background(), customer, CreateRequest{
		SessionID:        "sess-1",
		ChildProfileName: "Kiran",
		PaymentMethod:    "upi",
	})

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindValidation, de.Kind)
	assert.Contains(t, de.Message, "booking window closed")
}

// Scenario: booking with total 1000 and 200 credits used, canceled 4
// hours before start, falls in the 50% tier: 500 rupees and 100 credits
// back, one seat released.
func TestCancel_HalfRefundTier(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	b := model.Booking{
		ID:          "bk-1",
		UserID:      1,
		SessionID:   "sess-1",
		ListingID:   "listing-1",
		TotalINR:    1000,
		CreditsUsed: 200,
		Status:      model.BookingConfirmed,
	}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 4*time.Hour), nil)
	m.bookings.On("MarkCanceled", mock.Anything, "bk-1", "customer", "conflict", 500.0, 100).Return(nil)
	m.wallets.On("Credit", mock.Anything, uint64(1), 100, model.LedgerRefund, mock.Anything, mock.Anything).Return(nil)
	m.sessions.On("Release", mock.Anything, "sess-1", 1).Return(nil)

	res, err := e.Cancel(context.Background(), customer, "bk-1", "conflict")

	assert.NoError(t, err)
	assert.Equal(t, 50.0, res.RefundPercent)
	assert.Equal(t, 500.0, res.RefundAmountINR)
	assert.Equal(t, 100, res.RefundCredits)
	m.bookings.AssertExpectations(t)
	m.wallets.AssertExpectations(t)
	m.sessions.AssertCalled(t, "Release", mock.Anything, "sess-1", 1)
}

func TestCancel_RefundBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		lead      time.Duration
		wantPct   float64
		wantError bool
	}{
		{"exactly 6h earns full refund", 6 * time.Hour, 100, false},
		{"5h59m earns half refund", 5*time.Hour + 59*time.Minute, 50, false},
		{"1h59m is rejected", time.Hour + 59*time.Minute, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, m := newTestEngine()
			allowSideEffects(m)

			b := model.Booking{
				ID:          "bk-1",
				UserID:      1,
				SessionID:   "sess-1",
				ListingID:   "listing-1",
				TotalINR:    1000,
				CreditsUsed: 0,
				Status:      model.BookingConfirmed,
			}
			m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
			m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", tc.lead), nil)
			m.bookings.On("MarkCanceled", mock.Anything, "bk-1", "customer", "x", mock.Anything, mock.Anything).Return(nil).Maybe()
			m.sessions.On("Release", mock.Anything, "sess-1", 1).Return(nil).Maybe()

			res, err := e.Cancel(context.Background(), customer, "bk-1", "x")
			if tc.wantError {
				var de *Error
				assert.ErrorAs(t, err, &de)
				assert.Equal(t, KindConflict, de.Kind)
				assert.Contains(t, de.Message, "cancellation window closed")
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.wantPct, res.RefundPercent)
		})
	}
}

func TestCancel_TrialRejected(t *testing.T) {
	e, m := newTestEngine()

	b := model.Booking{ID: "bk-1", UserID: 1, SessionID: "sess-1", IsTrial: true, Status: model.BookingConfirmed}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)

	_, err := e.Cancel(context.Background(), customer, "bk-1", "x")

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindValidation, de.Kind)
}

func TestCancel_NotOwner(t *testing.T) {
	e, m := newTestEngine()

	b := model.Booking{ID: "bk-1", UserID: 7, SessionID: "sess-1", Status: model.BookingConfirmed}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)

	_, err := e.Cancel(context.Background(), customer, "bk-1", "x")

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindAuthorization, de.Kind)
}

func TestPartnerCancel_FullRefundPlusGoodwill(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	partner := model.Actor{UserID: 42, Role: model.RolePartnerOwner}
	b := model.Booking{
		ID:          "bk-1",
		UserID:      1,
		SessionID:   "sess-1",
		ListingID:   "listing-1",
		TotalINR:    1000,
		CreditsUsed: 200,
		Status:      model.BookingConfirmed,
	}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
	m.listings.On("OwnerOf", mock.Anything, "listing-1").Return(uint64(42), nil)
	m.bookings.On("MarkCanceled", mock.Anything, "bk-1", "partner", "rain", 1000.0, 200).Return(nil)
	m.wallets.On("Credit", mock.Anything, uint64(1), 200, model.LedgerRefund, mock.Anything, mock.Anything).Return(nil)
	m.wallets.On("Credit", mock.Anything, uint64(1), 5, model.LedgerGoodwill, mock.Anything, mock.Anything).Return(nil)
	m.sessions.On("Release", mock.Anything, "sess-1", 1).Return(nil)
	m.bookings.On("MarkRefunded", mock.Anything, "bk-1").Return(nil)

	res, err := e.PartnerCancel(context.Background(), partner, "bk-1", "rain")

	assert.NoError(t, err)
	assert.Equal(t, 100.0, res.RefundPercent)
	assert.Equal(t, 1000.0, res.RefundAmountINR)
	assert.Equal(t, 205, res.RefundCredits)
	m.wallets.AssertExpectations(t)
	m.bookings.AssertExpectations(t)
}

func TestPartnerCancel_WrongPartner(t *testing.T) {
	e, m := newTestEngine()

	partner := model.Actor{UserID: 99, Role: model.RolePartnerOwner}
	b := model.Booking{ID: "bk-1", UserID: 1, ListingID: "listing-1", Status: model.BookingConfirmed}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
	m.listings.On("OwnerOf", mock.Anything, "listing-1").Return(uint64(42), nil)

	_, err := e.PartnerCancel(context.Background(), partner, "bk-1", "x")

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindAuthorization, de.Kind)
}

// Scenario: a second reschedule attempt is rejected before any seat is
// touched.
func TestReschedule_AlreadyRescheduled(t *testing.T) {
	e, m := newTestEngine()

	b := model.Booking{
		ID:              "bk-1",
		UserID:          1,
		SessionID:       "sess-1",
		ListingID:       "listing-1",
		Status:          model.BookingConfirmed,
		RescheduleCount: 1,
	}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)

	_, err := e.Reschedule(context.Background(), customer, "bk-1", "sess-2")

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindState, de.Kind)
	assert.Contains(t, de.Message, "already rescheduled")
	m.sessions.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

// The new seat is claimed before the old one is released. If persisting
// the move fails, the new seat is given back and the old one is kept.
func TestReschedule_ReserveNewFirst(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	b := model.Booking{
		ID:        "bk-1",
		UserID:    1,
		SessionID: "sess-1",
		ListingID: "listing-1",
		Status:    model.BookingConfirmed,
	}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 24*time.Hour), nil)
	m.sessions.On("GetByID", mock.Anything, "sess-2").Return(testSession("sess-2", 48*time.Hour), nil)

	var order []string
	m.sessions.On("Reserve", mock.Anything, "sess-2", 1).Run(func(args mock.Arguments) {
		order = append(order, "reserve-new")
	}).Return(nil)
	m.bookings.On("Reschedule", mock.Anything, "bk-1", "sess-2").Run(func(args mock.Arguments) {
		order = append(order, "persist")
	}).Return(nil)
	m.sessions.On("Release", mock.Anything, "sess-1", 1).Run(func(args mock.Arguments) {
		order = append(order, "release-old")
	}).Return(nil)

	got, err := e.Reschedule(context.Background(), customer, "bk-1", "sess-2")

	assert.NoError(t, err)
	assert.Equal(t, "sess-2", got.SessionID)
	assert.Equal(t, 1, got.RescheduleCount)
	assert.Equal(t, []string{"reserve-new", "persist", "release-old"}, order)
}

func TestReschedule_PersistFailureReleasesNewSeat(t *testing.T) {
	e, m := newTestEngine()

	b := model.Booking{
		ID:        "bk-1",
		UserID:    1,
		SessionID: "sess-1",
		ListingID: "listing-1",
		Status:    model.BookingConfirmed,
	}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 24*time.Hour), nil)
	m.sessions.On("GetByID", mock.Anything, "sess-2").Return(testSession("sess-2", 48*time.Hour), nil)
	m.sessions.On("Reserve", mock.Anything, "sess-2", 1).Return(nil)
	m.bookings.On("Reschedule", mock.Anything, "bk-1", "sess-2").Return(errors.New("db down"))
	m.sessions.On("Release", mock.Anything, "sess-2", 1).Return(nil)

	_, err := e.Reschedule(context.Background(), customer, "bk-1", "sess-2")

	assert.Error(t, err)
	m.sessions.AssertCalled(t, "Release", mock.Anything, "sess-2", 1)
	m.sessions.AssertNotCalled(t, "Release", mock.Anything, "sess-1", 1)
}

func TestReschedule_WindowClosed(t *testing.T) {
	e, m := newTestEngine()

	b := model.Booking{ID: "bk-1", UserID: 1, SessionID: "sess-1", ListingID: "listing-1", Status: model.BookingConfirmed}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
	// 20 minutes out is inside the default 30 minute limit.
	m.sessions.On("GetByID", mock.Anything, "sess-1").Return(testSession("sess-1", 20*time.Minute), nil)

	_, err := e.Reschedule(context.Background(), customer, "bk-1", "sess-2")

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindConflict, de.Kind)
}

func TestMarkAttendance(t *testing.T) {
	e, m := newTestEngine()

	partner := model.Actor{UserID: 42, Role: model.RolePartnerOwner}
	b := model.Booking{ID: "bk-1", UserID: 1, ListingID: "listing-1", Status: model.BookingConfirmed}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
	m.listings.On("OwnerOf", mock.Anything, "listing-1").Return(uint64(42), nil)
	m.bookings.On("RecordAttendance", mock.Anything, "bk-1", model.AttendancePresent, (*string)(nil), model.BookingAttended, true).Return(nil)

	err := e.MarkAttendance(context.Background(), partner, "bk-1", "present", nil)

	assert.NoError(t, err)
	m.bookings.AssertExpectations(t)
}

func TestMarkAttendance_AbsentIsNoShow(t *testing.T) {
	e, m := newTestEngine()

	partner := model.Actor{UserID: 42, Role: model.RolePartnerOwner}
	b := model.Booking{ID: "bk-1", UserID: 1, ListingID: "listing-1", Status: model.BookingConfirmed}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
	m.listings.On("OwnerOf", mock.Anything, "listing-1").Return(uint64(42), nil)
	m.bookings.On("RecordAttendance", mock.Anything, "bk-1", model.AttendanceAbsent, (*string)(nil), model.BookingNoShow, false).Return(nil)

	err := e.MarkAttendance(context.Background(), partner, "bk-1", "absent", nil)

	assert.NoError(t, err)
	m.bookings.AssertExpectations(t)
}

// A no-show must never feed the partner payout: the store has to be
// told the booking is ineligible, whatever status it lands in.
func TestMarkAttendance_PayoutFollowsPresence(t *testing.T) {
	cases := []struct {
		attendance string
		att        model.Attendance
		status     model.BookingStatus
		eligible   bool
	}{
		{"present", model.AttendancePresent, model.BookingAttended, true},
		{"absent", model.AttendanceAbsent, model.BookingNoShow, false},
		{"late", model.AttendanceLate, model.BookingNoShow, false},
	}
	for _, tc := range cases {
		t.Run(tc.attendance, func(t *testing.T) {
			e, m := newTestEngine()

			partner := model.Actor{UserID: 42, Role: model.RolePartnerOwner}
			b := model.Booking{ID: "bk-1", UserID: 1, ListingID: "listing-1", Status: model.BookingConfirmed}
			m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
			m.listings.On("OwnerOf", mock.Anything, "listing-1").Return(uint64(42), nil)
			m.bookings.On("RecordAttendance", mock.Anything, "bk-1", tc.att, (*string)(nil), tc.status, tc.eligible).Return(nil)

			err := e.MarkAttendance(context.Background(), partner, "bk-1", tc.attendance, nil)

			assert.NoError(t, err)
			m.bookings.AssertExpectations(t)
		})
	}
}

func TestUnableToAttend_AdvisoryOnly(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	b := model.Booking{ID: "bk-1", UserID: 1, SessionID: "sess-1", ListingID: "listing-1", Status: model.BookingConfirmed}
	m.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)
	m.bookings.On("CreateAbsenceNotice", mock.Anything, mock.Anything).Return(nil)

	err := e.UnableToAttend(context.Background(), customer, "bk-1", "traveling", nil)

	assert.NoError(t, err)
	m.bookings.AssertNotCalled(t, "MarkCanceled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUnableToAttend_BadReason(t *testing.T) {
	e, _ := newTestEngine()

	err := e.UnableToAttend(context.Background(), customer, "bk-1", "lazy", nil)

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindValidation, de.Kind)
}

// Eligibility stays false no matter how many times it is re-queried
// once a trial exists for the pair.
func TestTrialEligibility_Idempotent(t *testing.T) {
	e, m := newTestEngine()

	m.listings.On("GetByID", mock.Anything, "listing-1").Return(testListing(), nil)
	m.bookings.On("HasTrialForListing", mock.Anything, uint64(1), "listing-1").Return(true, nil)

	for i := 0; i < 3; i++ {
		res, err := e.CheckTrialEligibility(context.Background(), 1, "listing-1")
		assert.NoError(t, err)
		assert.False(t, res.Eligible)
		assert.NotEmpty(t, res.Reason)
	}
}

func TestTrialEligibility_WeeklyLimit(t *testing.T) {
	e, m := newTestEngine()

	m.listings.On("GetByID", mock.Anything, "listing-1").Return(testListing(), nil)
	m.bookings.On("HasTrialForListing", mock.Anything, uint64(1), "listing-1").Return(false, nil)
	m.bookings.On("CountTrialsSince", mock.Anything, uint64(1), mock.Anything).Return(2, nil)

	res, err := e.CheckTrialEligibility(context.Background(), 1, "listing-1")

	assert.NoError(t, err)
	assert.False(t, res.Eligible)
}

func TestMyBookings_NeverErrors(t *testing.T) {
	e, m := newTestEngine()

	m.bookings.On("ListByUser", mock.Anything, uint64(1)).Return(nil, errors.New("db down"))

	out := e.MyBookings(context.Background(), 1)

	assert.NotNil(t, out)
	assert.Empty(t, out)
}
