package handler

import (
	"context"  // request-scoped timeouts
	"errors"   // error unwrapping
	"net/http" // HTTP status codes
	"strings"  // input trimming
	"time"     // timeout duration

	"github.com/labstack/echo/v4" // HTTP framework

	"github.com/rayyhq/rayy-backend/internal/booking"    // booking engine
	"github.com/rayyhq/rayy-backend/internal/middleware" // actor extraction
)

// BookingHandler exposes the customer-facing booking operations over
// the engine.  All business rules live in the engine; the handler only
// binds, validates shape, and maps engine errors onto HTTP statuses.
type BookingHandler struct {
	Engine *booking.Engine
}

func NewBookingHandler(e *booking.Engine) *BookingHandler {
	return &BookingHandler{Engine: e}
}

// engineError translates a booking engine error into a JSON response.
func engineError(c echo.Context, err error) error {
	var be *booking.Error
	if errors.As(err, &be) {
		return c.JSON(be.HTTPStatus(), echo.Map{"error": be.Message, "kind": string(be.Kind)})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// CreateBooking handles POST /v1/bookings.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req booking.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, err := h.Engine.Create(ctx, actor, req)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// CreatePlanBooking handles POST /v1/bookings/plan.
func (h *BookingHandler) CreatePlanBooking(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req booking.PlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// plan purchases reserve many seats; give them a little more room
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.Engine.CreatePlan(ctx, actor, req)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// MyBookings handles GET /v1/bookings/my.  Always 200 with a list.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items := h.Engine.MyBookings(ctx, actor.UserID)
	return c.JSON(http.StatusOK, echo.Map{"bookings": items, "count": len(items)})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// CancelBooking handles PUT /v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := strings.TrimSpace(c.Param("id"))
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking id required"})
	}

	var req cancelReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.Cancel(ctx, actor, bookingID, strings.TrimSpace(req.Reason))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type rescheduleReq struct {
	NewSessionID string `json:"new_session_id" validate:"required"`
}

// RescheduleBooking handles PUT /v1/bookings/:id/reschedule.
func (h *BookingHandler) RescheduleBooking(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := strings.TrimSpace(c.Param("id"))
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking id required"})
	}

	var req rescheduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_session_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, err := h.Engine.Reschedule(ctx, actor, bookingID, strings.TrimSpace(req.NewSessionID))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type absenceReq struct {
	Reason string  `json:"reason" validate:"required"`
	Note   *string `json:"note"`
}

// UnableToAttend handles POST /v1/bookings/:id/unable-to-attend.  The
// notice is advisory: the booking keeps its status and its seat.
func (h *BookingHandler) UnableToAttend(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := strings.TrimSpace(c.Param("id"))
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking id required"})
	}

	var req absenceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Engine.UnableToAttend(ctx, actor, bookingID, strings.TrimSpace(req.Reason), req.Note); err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "absence notice recorded"})
}

// TrialEligibility handles GET /v1/trial-eligibility/:listingID.
func (h *BookingHandler) TrialEligibility(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := strings.TrimSpace(c.Param("listingID"))
	if listingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.CheckTrialEligibility(ctx, actor.UserID, listingID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
