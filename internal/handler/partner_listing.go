package handler

import (
	"context"  // request-scoped timeouts
	"errors"   // schedule validation errors
	"fmt"      // error formatting
	"net/http" // HTTP status codes
	"strings"  // input trimming
	"time"     // schedule generation

	"github.com/labstack/echo/v4" // HTTP framework

	"github.com/rayyhq/rayy-backend/internal/booking"    // plan specs
	"github.com/rayyhq/rayy-backend/internal/middleware" // actor extraction
	"github.com/rayyhq/rayy-backend/internal/model"      // domain types
	"github.com/rayyhq/rayy-backend/internal/repository" // DB repositories
)

// PartnerListingHandler is the partner's management surface: listings,
// plan options, batches and the session calendar.
type PartnerListingHandler struct {
	Listings *repository.ListingRepo
	Sessions *repository.SessionRepo
}

func NewPartnerListingHandler(l *repository.ListingRepo, s *repository.SessionRepo) *PartnerListingHandler {
	return &PartnerListingHandler{Listings: l, Sessions: s}
}

// ----- listings -----

type listingReq struct {
	Title           string  `json:"title" validate:"required"`
	Description     string  `json:"description"`
	Category        string  `json:"category" validate:"required"`
	BasePriceINR    float64 `json:"base_price_inr" validate:"gt=0"`
	TaxPercent      float64 `json:"tax_percent" validate:"gte=0,lte=28"`
	TrialAvailable  bool    `json:"trial_available"`
	TrialPriceINR   float64 `json:"trial_price_inr" validate:"gte=0"`
	SessionDuration int     `json:"session_duration_minutes" validate:"gt=0"`
	IsActive        *bool   `json:"is_active"`
}

// CreateListing handles POST /v1/partner/listings.
func (h *PartnerListingHandler) CreateListing(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	l := model.Listing{
		PartnerID:       actor.UserID,
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Category:        strings.ToLower(strings.TrimSpace(req.Category)),
		BasePriceINR:    req.BasePriceINR,
		TaxPercent:      req.TaxPercent,
		TrialAvailable:  req.TrialAvailable,
		TrialPriceINR:   req.TrialPriceINR,
		SessionDuration: req.SessionDuration,
		IsActive:        true,
	}
	if req.IsActive != nil {
		l.IsActive = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Listings.Create(ctx, &l); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create listing failed"})
	}
	return c.JSON(http.StatusCreated, l)
}

// MyListings handles GET /v1/partner/listings.
func (h *PartnerListingHandler) MyListings(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Listings.ListByPartner(ctx, actor.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list listings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": items, "count": len(items)})
}

// UpdateListing handles PUT /v1/partner/listings/:id.
func (h *PartnerListingHandler) UpdateListing(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	l := model.Listing{
		ID:              id,
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Category:        strings.ToLower(strings.TrimSpace(req.Category)),
		BasePriceINR:    req.BasePriceINR,
		TaxPercent:      req.TaxPercent,
		TrialAvailable:  req.TrialAvailable,
		TrialPriceINR:   req.TrialPriceINR,
		SessionDuration: req.SessionDuration,
		IsActive:        true,
	}
	if req.IsActive != nil {
		l.IsActive = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Listings.Update(ctx, actor.UserID, &l); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "listing belongs to another partner"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update listing failed"})
	}
	return c.JSON(http.StatusOK, l)
}

// ----- plan options and batches -----

type planOptionReq struct {
	PlanType      string  `json:"plan_type" validate:"required"` // trial|single|weekly|monthly|quarterly
	Name          string  `json:"name" validate:"required"`
	PriceINR      float64 `json:"price_inr" validate:"gte=0"`
	SessionsCount int     `json:"sessions_count" validate:"gt=0"`
	TimingType    string  `json:"timing_type"` // FLEXIBLE (default) | FIXED
}

// AddPlanOption handles POST /v1/partner/listings/:id/plan-options.
func (h *PartnerListingHandler) AddPlanOption(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := strings.TrimSpace(c.Param("id"))
	if listingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	var req planOptionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	planType := model.PlanType(strings.ToLower(strings.TrimSpace(req.PlanType)))
	spec, ok := booking.SpecFor(planType)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan type"})
	}
	if req.SessionsCount != spec.SessionsCount {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sessions_count does not match plan type"})
	}
	timing := model.TimingFlexible
	if t := strings.ToUpper(strings.TrimSpace(req.TimingType)); t != "" {
		if t != string(model.TimingFlexible) && t != string(model.TimingFixed) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown timing type"})
		}
		timing = model.TimingType(t)
	}

	p := model.PlanOption{
		ListingID:     listingID,
		PlanType:      planType,
		Name:          strings.TrimSpace(req.Name),
		PriceINR:      req.PriceINR,
		SessionsCount: req.SessionsCount,
		TimingType:    timing,
		IsActive:      true,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Listings.AddPlanOption(ctx, actor.UserID, listingID, &p); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "listing belongs to another partner"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add plan option failed"})
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdatePlanOption handles PUT /v1/partner/listings/:id/plan-options/:optionID.
func (h *PartnerListingHandler) UpdatePlanOption(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := strings.TrimSpace(c.Param("id"))
	optionID := strings.TrimSpace(c.Param("optionID"))
	if listingID == "" || optionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing and option ids required"})
	}

	var req planOptionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	planType := model.PlanType(strings.ToLower(strings.TrimSpace(req.PlanType)))
	spec, ok := booking.SpecFor(planType)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan type"})
	}
	if req.SessionsCount != spec.SessionsCount {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sessions_count does not match plan type"})
	}
	timing := model.TimingFlexible
	if t := strings.ToUpper(strings.TrimSpace(req.TimingType)); t != "" {
		if t != string(model.TimingFlexible) && t != string(model.TimingFixed) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown timing type"})
		}
		timing = model.TimingType(t)
	}

	p := model.PlanOption{
		ID:            optionID,
		ListingID:     listingID,
		PlanType:      planType,
		Name:          strings.TrimSpace(req.Name),
		PriceINR:      req.PriceINR,
		SessionsCount: req.SessionsCount,
		TimingType:    timing,
		IsActive:      true,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Listings.UpdatePlanOption(ctx, actor.UserID, listingID, &p); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "plan option not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "listing belongs to another partner"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update plan option failed"})
	}
	return c.JSON(http.StatusOK, p)
}

// DeletePlanOption handles DELETE /v1/partner/listings/:id/plan-options/:optionID.
func (h *PartnerListingHandler) DeletePlanOption(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := strings.TrimSpace(c.Param("id"))
	optionID := strings.TrimSpace(c.Param("optionID"))
	if listingID == "" || optionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing and option ids required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Listings.DeletePlanOption(ctx, actor.UserID, listingID, optionID); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "plan option not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "listing belongs to another partner"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete plan option failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type batchReq struct {
	Name      string `json:"name" validate:"required"`
	Capacity  int    `json:"capacity" validate:"gt=0"`
	Weekdays  string `json:"weekdays" validate:"required"`   // "Mon,Wed,Fri"
	StartTime string `json:"start_time" validate:"required"` // "16:00" UTC
	StartDate string `json:"start_date" validate:"required"` // "2025-04-01"
}

// AddBatch handles POST /v1/partner/listings/:id/batches.
func (h *PartnerListingHandler) AddBatch(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := strings.TrimSpace(c.Param("id"))
	if listingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	var req batchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if _, err := parseWeekdays(req.Weekdays); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(req.StartTime)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be HH:MM"})
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}

	b := model.Batch{
		ListingID: listingID,
		Name:      strings.TrimSpace(req.Name),
		Capacity:  req.Capacity,
		Weekdays:  strings.TrimSpace(req.Weekdays),
		StartTime: strings.TrimSpace(req.StartTime),
		StartDate: strings.TrimSpace(req.StartDate),
		IsActive:  true,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Listings.AddBatch(ctx, actor.UserID, listingID, &b); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "listing belongs to another partner"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add batch failed"})
	}
	return c.JSON(http.StatusCreated, b)
}

// UpdateBatch handles PUT /v1/partner/listings/:id/batches/:batchID.
func (h *PartnerListingHandler) UpdateBatch(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := strings.TrimSpace(c.Param("id"))
	batchID := strings.TrimSpace(c.Param("batchID"))
	if listingID == "" || batchID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing and batch ids required"})
	}

	var req batchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if _, err := parseWeekdays(req.Weekdays); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(req.StartTime)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be HH:MM"})
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}

	b := model.Batch{
		ID:        batchID,
		ListingID: listingID,
		Name:      strings.TrimSpace(req.Name),
		Capacity:  req.Capacity,
		Weekdays:  strings.TrimSpace(req.Weekdays),
		StartTime: strings.TrimSpace(req.StartTime),
		StartDate: strings.TrimSpace(req.StartDate),
		IsActive:  true,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Listings.UpdateBatch(ctx, actor.UserID, listingID, &b); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "batch not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "listing belongs to another partner"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update batch failed"})
	}
	return c.JSON(http.StatusOK, b)
}

// DeleteBatch handles DELETE /v1/partner/listings/:id/batches/:batchID.
// A batch with enrolled students cannot be removed.
func (h *PartnerListingHandler) DeleteBatch(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := strings.TrimSpace(c.Param("id"))
	batchID := strings.TrimSpace(c.Param("batchID"))
	if listingID == "" || batchID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing and batch ids required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Listings.DeleteBatch(ctx, actor.UserID, listingID, batchID); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "batch not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "listing belongs to another partner"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "batch has enrolled students"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete batch failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- sessions -----

type sessionReq struct {
	StartAt                 time.Time `json:"start_at" validate:"required"`
	DurationMinutes         int       `json:"duration_minutes" validate:"gt=0"`
	SeatsTotal              int       `json:"seats_total" validate:"gt=0"`
	PriceOverrideINR        *float64  `json:"price_override_inr"`
	AllowLateBookingMinutes int       `json:"allow_late_booking_minutes" validate:"gte=0"`
	BatchID                 *string   `json:"batch_id"`
}

// CreateSession handles POST /v1/partner/listings/:id/sessions.
func (h *PartnerListingHandler) CreateSession(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := strings.TrimSpace(c.Param("id"))
	if listingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if !req.StartAt.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_at must be in the future"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.requireOwner(ctx, c, actor.UserID, listingID); err != nil {
		return err
	}

	s := model.Session{
		ListingID:               listingID,
		BatchID:                 req.BatchID,
		StartAt:                 req.StartAt.UTC(),
		DurationMinutes:         req.DurationMinutes,
		SeatsTotal:              req.SeatsTotal,
		PriceOverrideINR:        req.PriceOverrideINR,
		AllowLateBookingMinutes: req.AllowLateBookingMinutes,
		Status:                  model.SessionScheduled,
	}
	if err := h.Sessions.Create(ctx, &s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusCreated, s)
}

type generateSessionsReq struct {
	BatchID                 string   `json:"batch_id" validate:"required"`
	Count                   int      `json:"count" validate:"gt=0,lte=120"`
	SeatsTotal              int      `json:"seats_total" validate:"gt=0"`
	DurationMinutes         int      `json:"duration_minutes" validate:"gt=0"`
	PriceOverrideINR        *float64 `json:"price_override_inr"`
	AllowLateBookingMinutes int      `json:"allow_late_booking_minutes" validate:"gte=0"`
}

// GenerateSessions handles POST /v1/partner/listings/:id/sessions/generate.
// It expands a batch's weekly schedule into the next Count concrete
// sessions and inserts them in one statement.
func (h *PartnerListingHandler) GenerateSessions(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := strings.TrimSpace(c.Param("id"))
	if listingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	var req generateSessionsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.requireOwner(ctx, c, actor.UserID, listingID); err != nil {
		return err
	}

	b, err := h.Listings.GetBatch(ctx, req.BatchID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "batch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load batch failed"})
	}
	if b.ListingID != listingID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "batch belongs to another listing"})
	}

	starts, err := expandBatchSchedule(b, req.Count, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	batchID := b.ID
	sessions := make([]model.Session, 0, len(starts))
	for _, at := range starts {
		sessions = append(sessions, model.Session{
			ListingID:               listingID,
			BatchID:                 &batchID,
			StartAt:                 at,
			DurationMinutes:         req.DurationMinutes,
			SeatsTotal:              req.SeatsTotal,
			PriceOverrideINR:        req.PriceOverrideINR,
			AllowLateBookingMinutes: req.AllowLateBookingMinutes,
			Status:                  model.SessionScheduled,
		})
	}
	if err := h.Sessions.CreateBulk(ctx, sessions); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create sessions failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"batch_id": batchID, "sessions": sessions, "count": len(sessions)})
}

// DeleteSession handles DELETE /v1/partner/sessions/:sessionID.  A
// session with live bookings cannot be removed.
func (h *PartnerListingHandler) DeleteSession(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID := strings.TrimSpace(c.Param("sessionID"))
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load session failed"})
	}
	if err := h.requireOwner(ctx, c, actor.UserID, s.ListingID); err != nil {
		return err
	}

	if err := h.Sessions.Delete(ctx, sessionID); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "session has bookings"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete session failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// requireOwner writes the error response itself and returns it, so the
// caller can `return err` directly.  nil means the actor owns the
// listing.
func (h *PartnerListingHandler) requireOwner(ctx context.Context, c echo.Context, userID uint64, listingID string) error {
	owner, err := h.Listings.OwnerOf(ctx, listingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve owner failed"})
	}
	if owner != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "listing belongs to another partner"})
	}
	return nil
}

// parseWeekdays turns "Mon,Wed,Fri" into time.Weekday values.
func parseWeekdays(s string) (map[time.Weekday]bool, error) {
	names := map[string]time.Weekday{
		"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
		"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
	}
	out := make(map[time.Weekday]bool)
	for _, part := range strings.Split(s, ",") {
		key := strings.ToLower(strings.TrimSpace(part))
		if len(key) > 3 {
			key = key[:3]
		}
		wd, ok := names[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		out[wd] = true
	}
	if len(out) == 0 {
		return nil, errors.New("weekdays required")
	}
	return out, nil
}

// expandBatchSchedule walks day by day from the batch start date (or
// now, whichever is later) collecting the next count occurrences of the
// batch's weekday/time pattern.
func expandBatchSchedule(b model.Batch, count int, now time.Time) ([]time.Time, error) {
	days, err := parseWeekdays(b.Weekdays)
	if err != nil {
		return nil, err
	}
	tod, err := time.Parse("15:04", b.StartTime)
	if err != nil {
		return nil, errors.New("batch start_time is malformed")
	}
	startDate, err := time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return nil, errors.New("batch start_date is malformed")
	}

	cursor := startDate
	if now.After(cursor) {
		cursor = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	out := make([]time.Time, 0, count)
	// hard ceiling of two years of scanning, in case the pattern is
	// sparse or the start date sits far in the future
	for i := 0; i < 730 && len(out) < count; i++ {
		day := cursor.AddDate(0, 0, i)
		if !days[day.Weekday()] {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, time.UTC)
		if !at.After(now) {
			continue
		}
		out = append(out, at)
	}
	if len(out) < count {
		return nil, errors.New("schedule cannot produce enough sessions")
	}
	return out, nil
}
