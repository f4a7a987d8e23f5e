package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rayyhq/rayy-backend/internal/handler"
	"github.com/rayyhq/rayy-backend/internal/middleware"
)

// RegisterPartner registers the partner management surface under
// /v1/partner.  All routes require a valid JWT and one of the partner
// roles; ownership of the touched listing is verified inside the
// handlers, so staff accounts can hold the role without gaining access
// to other partners' listings.
func RegisterPartner(e *echo.Echo, pl *handler.PartnerListingHandler, pb *handler.PartnerBookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/partner",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("partner_owner", "partner_staff"),
	)

	// Listing catalog management.
	g.POST("/listings", pl.CreateListing)
	g.GET("/listings", pl.MyListings)
	g.PUT("/listings/:id", pl.UpdateListing)
	g.POST("/listings/:id/plan-options", pl.AddPlanOption)
	g.PUT("/listings/:id/plan-options/:optionID", pl.UpdatePlanOption)
	g.DELETE("/listings/:id/plan-options/:optionID", pl.DeletePlanOption)
	g.POST("/listings/:id/batches", pl.AddBatch)
	g.PUT("/listings/:id/batches/:batchID", pl.UpdateBatch)
	g.DELETE("/listings/:id/batches/:batchID", pl.DeleteBatch)

	// Session calendar.  Single sessions are created one at a time;
	// batch schedules expand into many sessions in one call.
	g.POST("/listings/:id/sessions", pl.CreateSession)
	g.POST("/listings/:id/sessions/generate", pl.GenerateSessions)
	g.DELETE("/sessions/:sessionID", pl.DeleteSession)

	// Booking-side operations: the roster of a session, attendance,
	// partner-initiated cancellation and the payout summary.
	g.GET("/sessions/:id/bookings", pb.SessionBookings)
	g.PUT("/bookings/:id/attendance", pb.MarkAttendance)
	g.PUT("/bookings/:id/cancel", pb.CancelBooking)
	g.GET("/payouts/summary", pb.PayoutSummary)
}
