package booking

import "github.com/rayyhq/rayy-backend/internal/model"

// PlanSpec fixes the session count and discount multiplier of a plan
// tier.  Explicit plan-option prices override the derived price, but
// the session count always comes from this table.
type PlanSpec struct {
	SessionsCount int
	Multiplier    float64
	IsTrial       bool
}

var planSpecs = map[model.PlanType]PlanSpec{
	model.PlanTrial:     {SessionsCount: 1, Multiplier: 1.0, IsTrial: true},
	model.PlanSingle:    {SessionsCount: 1, Multiplier: 1.0},
	model.PlanWeekly:    {SessionsCount: 4, Multiplier: 0.9},
	model.PlanMonthly:   {SessionsCount: 12, Multiplier: 0.75},
	model.PlanQuarterly: {SessionsCount: 36, Multiplier: 0.65},
}

// SpecFor returns the plan spec for a plan type.
func SpecFor(t model.PlanType) (PlanSpec, bool) {
	s, ok := planSpecs[t]
	return s, ok
}

// PlanOffer is one bookable plan of a listing as shown to customers:
// the resolved per-session and total price plus whether the listing
// currently has enough upcoming sessions to sell it.
type PlanOffer struct {
	PlanOptionID       string           `json:"plan_option_id"`
	PlanType           model.PlanType   `json:"plan_type"`
	Name               string           `json:"name"`
	SessionsCount      int              `json:"sessions_count"`
	TimingType         model.TimingType `json:"timing_type"`
	PricePerSessionINR float64          `json:"price_per_session_inr"`
	TotalPriceINR      float64          `json:"total_price_inr"`
	DiscountPercent    float64          `json:"discount_percent"`
	Available          bool             `json:"available"`
}

// resolveOffer computes the offer for one plan option.  upcoming is the
// listing's count of future scheduled sessions; a multi-session plan is
// only available when the listing can actually deliver it.
func resolveOffer(l *model.Listing, p *model.PlanOption, upcoming int) (PlanOffer, bool) {
	spec, ok := SpecFor(p.PlanType)
	if !ok || !p.IsActive {
		return PlanOffer{}, false
	}
	perSession := planPerSessionPrice(l, p, spec)
	return PlanOffer{
		PlanOptionID:       p.ID,
		PlanType:           p.PlanType,
		Name:               p.Name,
		SessionsCount:      spec.SessionsCount,
		TimingType:         p.TimingType,
		PricePerSessionINR: perSession,
		TotalPriceINR:      round2(perSession * float64(spec.SessionsCount)),
		DiscountPercent:    round2((1 - spec.Multiplier) * 100),
		Available:          upcoming >= spec.SessionsCount,
	}, true
}

// planPerSessionPrice derives the per-session price: an explicit plan
// price is split evenly across the sessions, otherwise the listing base
// price is discounted by the tier multiplier.  Trial plans use the
// trial price.
func planPerSessionPrice(l *model.Listing, p *model.PlanOption, spec PlanSpec) float64 {
	if spec.IsTrial {
		return round2(l.EffectiveTrialPriceINR())
	}
	if p.PriceINR > 0 {
		return round2(p.PriceINR / float64(spec.SessionsCount))
	}
	return round2(l.BasePriceINR * spec.Multiplier)
}
