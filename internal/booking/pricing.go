package booking

import (
	"math"
	"time"

	"github.com/rayyhq/rayy-backend/internal/model"
)

// Quote is the priced cost of one session seat.
type Quote struct {
	UnitPriceINR float64
	TaxesINR     float64
	TotalINR     float64
}

// quoteSession prices a single-session booking: the session's price
// override wins over the listing base price, trials use the trial
// price, and GST is applied on top.
func quoteSession(l *model.Listing, s *model.Session, isTrial bool) Quote {
	var unit float64
	if isTrial {
		unit = l.EffectiveTrialPriceINR()
	} else {
		unit = s.UnitPriceINR(l.BasePriceINR)
	}
	return quoteUnit(unit, l.TaxPercent)
}

func quoteUnit(unit, taxPercent float64) Quote {
	unit = round2(unit)
	taxes := round2(unit * taxPercent / 100)
	return Quote{UnitPriceINR: unit, TaxesINR: taxes, TotalINR: round2(unit + taxes)}
}

// creditsFor converts a rupee total into the whole credits needed to
// cover it.  1 credit is worth exactly 1 rupee.
func creditsFor(totalINR float64) int {
	return int(math.Floor(totalINR))
}

// round2 rounds to two decimal places, the paise precision all INR
// amounts are stored at.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Refund tiers for customer-initiated cancellation, keyed by how long
// before the session start the cancellation lands.
const (
	fullRefundWindow = 6 * time.Hour
	halfRefundWindow = 2 * time.Hour
)

// refundPercent returns the refund fraction for a cancellation at now
// against a session starting at startAt, and whether cancellation is
// allowed at all.  The 6h boundary itself still earns a full refund and
// the 2h boundary a half refund.
func refundPercent(now, startAt time.Time) (float64, bool) {
	until := startAt.Sub(now)
	switch {
	case until >= fullRefundWindow:
		return 1.0, true
	case until >= halfRefundWindow:
		return 0.5, true
	default:
		return 0, false
	}
}

// refundFor splits a refund across the rupee and credit components of
// the original payment: refund_amount_inr is the percentage of the
// booking total, refund_credits the same percentage of the credits
// spent, floored to whole credits.
func refundFor(b *model.Booking, pct float64) (float64, int) {
	return round2(b.TotalINR * pct), int(math.Floor(float64(b.CreditsUsed) * pct))
}
