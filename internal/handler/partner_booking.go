package handler

import (
	"context"  // request-scoped timeouts
	"net/http" // HTTP status codes
	"strings"  // input trimming
	"time"     // timeout duration

	"github.com/labstack/echo/v4" // HTTP framework

	"github.com/rayyhq/rayy-backend/internal/booking"    // booking engine
	"github.com/rayyhq/rayy-backend/internal/middleware" // actor extraction
	"github.com/rayyhq/rayy-backend/internal/repository" // DB repositories
)

// PartnerBookingHandler covers the partner side of a booking's life:
// attendance, partner-initiated cancellation, roster per session and
// the payout summary.
type PartnerBookingHandler struct {
	Engine   *booking.Engine
	Bookings *repository.BookingRepo
	Listings *repository.ListingRepo
	Sessions *repository.SessionRepo
}

func NewPartnerBookingHandler(e *booking.Engine, b *repository.BookingRepo, l *repository.ListingRepo, s *repository.SessionRepo) *PartnerBookingHandler {
	return &PartnerBookingHandler{Engine: e, Bookings: b, Listings: l, Sessions: s}
}

type attendanceReq struct {
	Attendance string  `json:"attendance" validate:"required"` // present | absent | late
	Notes      *string `json:"notes"`
}

// MarkAttendance handles PUT /v1/partner/bookings/:id/attendance.
func (h *PartnerBookingHandler) MarkAttendance(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := strings.TrimSpace(c.Param("id"))
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking id required"})
	}

	var req attendanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attendance required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Engine.MarkAttendance(ctx, actor, bookingID, strings.TrimSpace(req.Attendance), req.Notes); err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "attendance recorded"})
}

// CancelBooking handles PUT /v1/partner/bookings/:id/cancel.  Full
// refund plus goodwill credits regardless of lead time.
func (h *PartnerBookingHandler) CancelBooking(c echo.Context) error {
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

	res, err := h.Engine.PartnerCancel(ctx, actor, bookingID, strings.TrimSpace(req.Reason))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SessionBookings handles GET /v1/partner/sessions/:id/bookings and
// returns the active roster for one session of the caller's listing.
func (h *PartnerBookingHandler) SessionBookings(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID := strings.TrimSpace(c.Param("id"))
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
	owner, err := h.Listings.OwnerOf(ctx, s.ListingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve owner failed"})
	}
	if owner != actor.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "session belongs to another partner"})
	}

	items, err := h.Bookings.ListBySession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id": sessionID,
		"bookings":   items,
		"count":      len(items),
	})
}

// PayoutSummary handles GET /v1/partner/payouts/summary.  Only
// payout-eligible bookings (attendance recorded) count.
func (h *PartnerBookingHandler) PayoutSummary(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Bookings.PayoutSummaryForPartner(ctx, actor.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payout summary failed"})
	}
	return c.JSON(http.StatusOK, sum)
}
