package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rayyhq/rayy-backend/internal/model"
	"github.com/rayyhq/rayy-backend/internal/repository"
)

func monthlyListing() model.Listing {
	l := testListing()
	l.PlanOptions = []model.PlanOption{{
		ID:         "plan-monthly",
		ListingID:  l.ID,
		PlanType:   model.PlanMonthly,
		Name:       "Monthly",
		TimingType: model.TimingFlexible,
		IsActive:   true,
	}}
	return l
}

func planSessionIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("sess-%d", i+1)
	}
	return ids
}

// Scenario: a 12-session monthly plan on a 1000 rupee base price books
// at 750 per session, 9000 total before tax.
func TestCreatePlan_MonthlyPricing(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	sessionIDs := planSessionIDs(12)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(monthlyListing(), nil)
	m.sessions.On("CountUpcomingByListing", mock.Anything, "listing-1", mock.Anything).Return(12, nil)
	for i, sid := range sessionIDs {
		m.sessions.On("GetByID", mock.Anything, sid).Return(testSession(sid, time.Duration(i+1)*24*time.Hour), nil)
		m.sessions.On("Reserve", mock.Anything, sid, 1).Return(nil)
	}
	m.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := e.CreatePlan(context.Background(), customer, PlanRequest{
		ListingID:        "listing-1",
		PlanOptionID:     "plan-monthly",
		SessionIDs:       sessionIDs,
		ChildProfileName: "Kiran",
		PaymentMethod:    "upi",
	})

	assert.NoError(t, err)
	assert.Len(t, res.Bookings, 12)
	assert.Equal(t, 9000.0, res.TotalINR)
	for _, b := range res.Bookings {
		assert.Equal(t, 750.0, b.UnitPriceINR)
		assert.Equal(t, model.BookingConfirmed, b.Status)
		assert.Equal(t, sessionIDs, b.SessionIDs)
	}
}

// A mid-loop reservation failure unwinds every seat already taken, in
// reverse order of acquisition.
func TestCreatePlan_UnwindsLIFO(t *testing.T) {
	e, m := newTestEngine()

	l := testListing()
	l.PlanOptions = []model.PlanOption{{
		ID:         "plan-weekly",
		ListingID:  l.ID,
		PlanType:   model.PlanWeekly,
		Name:       "Weekly",
		TimingType: model.TimingFlexible,
		IsActive:   true,
	}}
	sessionIDs := planSessionIDs(4)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(l, nil)
	m.sessions.On("CountUpcomingByListing", mock.Anything, "listing-1", mock.Anything).Return(4, nil)
	for i, sid := range sessionIDs {
		m.sessions.On("GetByID", mock.Anything, sid).Return(testSession(sid, time.Duration(i+1)*24*time.Hour), nil)
	}

	var released []string
	m.sessions.On("Reserve", mock.Anything, "sess-1", 1).Return(nil)
	m.sessions.On("Reserve", mock.Anything, "sess-2", 1).Return(nil)
	m.sessions.On("Reserve", mock.Anything, "sess-3", 1).Return(repository.ErrNoSeats)
	m.sessions.On("Release", mock.Anything, mock.Anything, 1).Run(func(args mock.Arguments) {
		released = append(released, args.String(1))
	}).Return(nil)

	_, err := e.CreatePlan(context.Background(), customer, PlanRequest{
		ListingID:        "listing-1",
		PlanOptionID:     "plan-weekly",
		SessionIDs:       sessionIDs,
		ChildProfileName: "Kiran",
		PaymentMethod:    "upi",
	})

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindConflict, de.Kind)
	assert.Equal(t, []string{"sess-2", "sess-1"}, released)
	m.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// A plan is not sellable when the listing cannot deliver enough future
// sessions.
func TestCreatePlan_AvailabilityRule(t *testing.T) {
	e, m := newTestEngine()

	m.listings.On("GetByID", mock.Anything, "listing-1").Return(monthlyListing(), nil)
	m.sessions.On("CountUpcomingByListing", mock.Anything, "listing-1", mock.Anything).Return(8, nil)

	_, err := e.CreatePlan(context.Background(), customer, PlanRequest{
		ListingID:        "listing-1",
		PlanOptionID:     "plan-monthly",
		SessionIDs:       planSessionIDs(12),
		ChildProfileName: "Kiran",
		PaymentMethod:    "upi",
	})

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindValidation, de.Kind)
	assert.Contains(t, de.Message, "not available")
}

func TestCreatePlan_WrongSessionCount(t *testing.T) {
	e, m := newTestEngine()

	m.listings.On("GetByID", mock.Anything, "listing-1").Return(monthlyListing(), nil)

	_, err := e.CreatePlan(context.Background(), customer, PlanRequest{
		ListingID:        "listing-1",
		PlanOptionID:     "plan-monthly",
		SessionIDs:       planSessionIDs(5),
		ChildProfileName: "Kiran",
		PaymentMethod:    "upi",
	})

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindValidation, de.Kind)
}

// Fixed-timing plans enroll a batch seat; a full batch unwinds the
// session seats.
func TestCreatePlan_FixedTimingBatchFull(t *testing.T) {
	e, m := newTestEngine()

	l := testListing()
	l.PlanOptions = []model.PlanOption{{
		ID:         "plan-weekly",
		ListingID:  l.ID,
		PlanType:   model.PlanWeekly,
		Name:       "Weekly fixed",
		TimingType: model.TimingFixed,
		IsActive:   true,
	}}
	l.Batches = []model.Batch{{ID: "batch-1", ListingID: l.ID, Capacity: 10, IsActive: true}}
	sessionIDs := planSessionIDs(4)
	batchID := "batch-1"
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(l, nil)
	m.sessions.On("CountUpcomingByListing", mock.Anything, "listing-1", mock.Anything).Return(4, nil)
	for i, sid := range sessionIDs {
		s := testSession(sid, time.Duration(i+1)*24*time.Hour)
		s.BatchID = &batchID
		m.sessions.On("GetByID", mock.Anything, sid).Return(s, nil)
		m.sessions.On("Reserve", mock.Anything, sid, 1).Return(nil)
		m.sessions.On("Release", mock.Anything, sid, 1).Return(nil)
	}
	m.listings.On("EnrollBatch", mock.Anything, "batch-1").Return(repository.ErrNoSeats)

	_, err := e.CreatePlan(context.Background(), customer, PlanRequest{
		ListingID:        "listing-1",
		PlanOptionID:     "plan-weekly",
		SessionIDs:       sessionIDs,
		BatchID:          &batchID,
		ChildProfileName: "Kiran",
		PaymentMethod:    "upi",
	})

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindConflict, de.Kind)
	assert.Contains(t, de.Message, "batch is full")
	for _, sid := range sessionIDs {
		m.sessions.AssertCalled(t, "Release", mock.Anything, sid, 1)
	}
}

// Credits are debited once for the whole plan and spread across the
// bookings with the remainder on the last one.
func TestCreatePlan_CreditSpread(t *testing.T) {
	e, m := newTestEngine()
	allowSideEffects(m)

	l := testListing()
	l.BasePriceINR = 100
	l.PlanOptions = []model.PlanOption{{
		ID:         "plan-weekly",
		ListingID:  l.ID,
		PlanType:   model.PlanWeekly,
		Name:       "Weekly",
		TimingType: model.TimingFlexible,
		IsActive:   true,
	}}
	sessionIDs := planSessionIDs(4)
	m.listings.On("GetByID", mock.Anything, "listing-1").Return(l, nil)
	m.sessions.On("CountUpcomingByListing", mock.Anything, "listing-1", mock.Anything).Return(4, nil)
	for i, sid := range sessionIDs {
		m.sessions.On("GetByID", mock.Anything, sid).Return(testSession(sid, time.Duration(i+1)*24*time.Hour), nil)
		m.sessions.On("Reserve", mock.Anything, sid, 1).Return(nil)
	}
	// 4 sessions at 90 each = 360 credits.
	m.wallets.On("Debit", mock.Anything, uint64(1), 360, model.LedgerBooking, mock.Anything, mock.Anything).Return(nil)
	m.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := e.CreatePlan(context.Background(), customer, PlanRequest{
		ListingID:        "listing-1",
		PlanOptionID:     "plan-weekly",
		SessionIDs:       sessionIDs,
		ChildProfileName: "Kiran",
		PaymentMethod:    "credit_wallet",
		UseCredits:       true,
	})

	assert.NoError(t, err)
	assert.Equal(t, 360, res.CreditsUsed)
	// The debit covered the whole plan, so no rupees remain due.
	assert.Equal(t, 0.0, res.TotalINR)
	sum := 0
	for _, b := range res.Bookings {
		sum += b.CreditsUsed
		assert.Equal(t, 0.0, b.TotalINR)
	}
	assert.Equal(t, 360, sum)
	m.wallets.AssertExpectations(t)
}
