package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rayyhq/rayy-backend/internal/handler"
	"github.com/rayyhq/rayy-backend/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT.  Customers can book single sessions and
// plans, inspect and cancel their bookings, manage their credit wallet
// and read their invoices.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, w *handler.WalletHandler, jwtSecret string) {
	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	// Booking creation is open to every role that can hold a booking:
	// partners book on behalf of walk-in families too.  The engine
	// re-checks the role, so the gate here only has to be wide enough.
	booker := v1.Group("", middleware.RequireRole("customer", "partner_owner", "partner_staff"))
	booker.POST("/bookings", b.CreateBooking)
	booker.POST("/bookings/plan", b.CreatePlanBooking)

	g := v1.Group("", middleware.RequireRole("customer"))

	// Booking lifecycle.  The cancel and reschedule endpoints enforce
	// the refund and lead-time windows inside the engine.
	g.GET("/bookings/my", b.MyBookings)
	g.PUT("/bookings/:id/cancel", b.CancelBooking)
	g.PUT("/bookings/:id/reschedule", b.RescheduleBooking)
	g.POST("/bookings/:id/unable-to-attend", b.UnableToAttend)

	// Trial eligibility is a read-only pre-check: the same rules run
	// again at booking time, so the answer is advisory but stable.
	g.GET("/bookings/trial-eligibility/:listingID", b.TrialEligibility)

	// Credit wallet and purchase history.
	g.GET("/wallet/me", w.Me)
	g.GET("/wallet/ledger", w.Ledger)
	g.POST("/wallet/activate", w.Activate)
	g.GET("/credit-plans", w.CreditPlans)
	g.POST("/credit-plans/subscribe", w.Subscribe)
	g.GET("/invoices/my", w.MyInvoices)
}
