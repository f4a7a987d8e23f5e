package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rayyhq/rayy-backend/internal/model"
)

func TestRefundPercentBoundaries(t *testing.T) {
	start := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

	pct, ok := refundPercent(start.Add(-6*time.Hour), start)
	assert.True(t, ok)
	assert.Equal(t, 1.0, pct)

	pct, ok = refundPercent(start.Add(-5*time.Hour-59*time.Minute), start)
	assert.True(t, ok)
	assert.Equal(t, 0.5, pct)

	pct, ok = refundPercent(start.Add(-2*time.Hour), start)
	assert.True(t, ok)
	assert.Equal(t, 0.5, pct)

	_, ok = refundPercent(start.Add(-time.Hour-59*time.Minute), start)
	assert.False(t, ok)

	_, ok = refundPercent(start.Add(time.Minute), start)
	assert.False(t, ok)
}

func TestQuoteAppliesGST(t *testing.T) {
	q := quoteUnit(1000, 18)
	assert.Equal(t, 1000.0, q.UnitPriceINR)
	assert.Equal(t, 180.0, q.TaxesINR)
	assert.Equal(t, 1180.0, q.TotalINR)
}

func TestQuoteSessionPriceOverride(t *testing.T) {
	l := testListing()
	s := testSession("sess-1", time.Hour)
	override := 850.0
	s.PriceOverrideINR = &override

	q := quoteSession(&l, &s, false)
	assert.Equal(t, 850.0, q.UnitPriceINR)

	q = quoteSession(&l, &s, true)
	assert.Equal(t, 199.0, q.UnitPriceINR, "trial price wins over the override")
}

func TestPlanSpecs(t *testing.T) {
	cases := []struct {
		plan       model.PlanType
		count      int
		multiplier float64
	}{
		{model.PlanTrial, 1, 1.0},
		{model.PlanSingle, 1, 1.0},
		{model.PlanWeekly, 4, 0.9},
		{model.PlanMonthly, 12, 0.75},
		{model.PlanQuarterly, 36, 0.65},
	}
	for _, tc := range cases {
		spec, ok := SpecFor(tc.plan)
		assert.True(t, ok)
		assert.Equal(t, tc.count, spec.SessionsCount)
		assert.Equal(t, tc.multiplier, spec.Multiplier)
	}
	_, ok := SpecFor(model.PlanType("lifetime"))
	assert.False(t, ok)
}

func TestResolveOfferAvailability(t *testing.T) {
	l := monthlyListing()
	opt := &l.PlanOptions[0]

	offer, ok := resolveOffer(&l, opt, 12)
	assert.True(t, ok)
	assert.True(t, offer.Available)
	assert.Equal(t, 750.0, offer.PricePerSessionINR)
	assert.Equal(t, 9000.0, offer.TotalPriceINR)
	assert.Equal(t, 25.0, offer.DiscountPercent)

	offer, ok = resolveOffer(&l, opt, 11)
	assert.True(t, ok)
	assert.False(t, offer.Available)
}

func TestRefundForSplitsComponents(t *testing.T) {
	b := model.Booking{TotalINR: 1000, CreditsUsed: 200}
	inr, credits := refundFor(&b, 0.5)
	assert.Equal(t, 500.0, inr)
	assert.Equal(t, 100, credits)

	inr, credits = refundFor(&b, 1.0)
	assert.Equal(t, 1000.0, inr)
	assert.Equal(t, 200, credits)
}
