package model

import "time"

// PlanType enumerates the pricing tiers a listing can be booked under.
type PlanType string

const (
	PlanTrial     PlanType = "trial"
	PlanSingle    PlanType = "single"
	PlanWeekly    PlanType = "weekly"
	PlanMonthly   PlanType = "monthly"
	PlanQuarterly PlanType = "quarterly"
)

// TimingType distinguishes plans whose sessions follow a fixed batch
// schedule from plans where the customer picks arbitrary sessions.
type TimingType string

const (
	TimingFlexible TimingType = "FLEXIBLE"
	TimingFixed    TimingType = "FIXED"
)

// Listing is an activity class published by a partner.  Plan options
// and batches are owned sub-collections stored in their own tables and
// mutated via targeted add/update/delete operations keyed by id.
//
// Fields:
//  ID              – UUID primary key.
//  PartnerID       – user id of the partner owner.
//  Title           – display title.
//  Description     – optional long text.
//  Category        – free-form category label.
//  BasePriceINR    – default single-session price.
//  TaxPercent      – GST percentage applied on top of the unit price.
//  TrialAvailable  – whether trial bookings are offered.
//  TrialPriceINR   – trial price (0 falls back to BasePriceINR).
//  SessionDuration – default session length in minutes.
//  IsActive        – soft disable flag.
type Listing struct {
	ID              string       // listings.id (UUID)
	PartnerID       uint64       // listings.partner_id
	Title           string       // listings.title
	Description     string       // listings.description
	Category        string       // listings.category
	BasePriceINR    float64      // listings.base_price_inr
	TaxPercent      float64      // listings.tax_percent
	TrialAvailable  bool         // listings.trial_available
	TrialPriceINR   float64      // listings.trial_price_inr
	SessionDuration int          // listings.session_duration_minutes
	IsActive        bool         // listings.is_active
	PlanOptions     []PlanOption // owned rows of listing_plan_options
	Batches         []Batch      // owned rows of listing_batches
	CreatedAt       time.Time    // listings.created_at
	UpdatedAt       time.Time    // listings.updated_at
}

// PlanOption is a purchasable pricing tier of a listing.  When PriceINR
// is zero the price is derived from the listing base price and the
// plan's discount multiplier.
type PlanOption struct {
	ID            string     // listing_plan_options.id (UUID)
	ListingID     string     // listing_plan_options.listing_id
	PlanType      PlanType   // listing_plan_options.plan_type
	Name          string     // listing_plan_options.name
	PriceINR      float64    // listing_plan_options.price_inr (0 = derive)
	SessionsCount int        // listing_plan_options.sessions_count
	TimingType    TimingType // listing_plan_options.timing_type
	IsActive      bool       // listing_plan_options.is_active
}

// Batch is a recurring fixed-schedule group with its own capacity.
// Invariant: EnrolledCount <= Capacity, enforced by a conditional
// increment in the listing repository.
type Batch struct {
	ID            string    // listing_batches.id (UUID)
	ListingID     string    // listing_batches.listing_id
	Name          string    // listing_batches.name
	Capacity      int       // listing_batches.capacity
	EnrolledCount int       // listing_batches.enrolled_count
	Weekdays      string    // listing_batches.weekdays (comma separated Mon..Sun)
	StartTime     string    // listing_batches.start_time (HH:MM, UTC)
	StartDate     string    // listing_batches.start_date (YYYY-MM-DD)
	IsActive      bool      // listing_batches.is_active
	CreatedAt     time.Time // listing_batches.created_at
}

// PlanOptionByID returns the plan option with the given id, or nil.
func (l *Listing) PlanOptionByID(id string) *PlanOption {
	for i := range l.PlanOptions {
		if l.PlanOptions[i].ID == id {
			return &l.PlanOptions[i]
		}
	}
	return nil
}

// BatchByID returns the batch with the given id, or nil.
func (l *Listing) BatchByID(id string) *Batch {
	for i := range l.Batches {
		if l.Batches[i].ID == id {
			return &l.Batches[i]
		}
	}
	return nil
}

// EffectiveTrialPriceINR returns the trial price, falling back to the
// base price when no explicit trial price is set.
func (l *Listing) EffectiveTrialPriceINR() float64 {
	if l.TrialPriceINR > 0 {
		return l.TrialPriceINR
	}
	return l.BasePriceINR
}

// AvailableSeats returns the free capacity of the batch.
func (b *Batch) AvailableSeats() int { return b.Capacity - b.EnrolledCount }

// IsFull reports whether the batch has no free capacity left.
func (b *Batch) IsFull() bool { return b.AvailableSeats() <= 0 }
