package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/rayyhq/rayy-backend/internal/handler"    // import the handlers that implement business logic
	"github.com/rayyhq/rayy-backend/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Create a route group under the /v1/auth prefix for operations that do
	// not require an existing session (register, login, refresh).  Each of
	// these handlers is responsible for generating or exchanging tokens.
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Register a POST endpoint to refresh access tokens at /v1/auth/refresh. This rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Register a POST endpoint to issue a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Register a POST endpoint to log out using a refresh token.  The handler
	// accepts a JSON body containing a `refresh_token` and will invalidate
	// that token.  If the token is valid, a 204 response is returned;
	// otherwise 400/401/500 are possible depending on the error.
	g.POST("/logout", a.Logout)

	// Create another group for routes that require a valid access token.  All
	// handlers registered on this group will execute the JWTAuth middleware
	// before being invoked.  Protected endpoints live under /v1.
	auth := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)
	// An authenticated logout without a body revokes every session of the
	// caller; with a refresh_token in the body it revokes just that one.
	auth.POST("/logout", a.Logout)
}

// RegisterPublic registers the unauthenticated catalog endpoints.  The
// listing handler returns sanitized data for guests; when a cache
// middleware is supplied the responses sit behind it.
func RegisterPublic(e *echo.Echo, h *handler.ListingHandler, cache echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if cache != nil {
		mws = append(mws, cache)
	}
	// Browse active listings, optionally filtered with ?category=.
	e.GET("/v1/listings", h.List, mws...)
	// Full detail of one listing including plan options and batches.
	e.GET("/v1/listings/:id", h.Get, mws...)
	// Upcoming sessions of a listing with seat availability and the
	// booking cutoff, so guests can see what is bookable before signup.
	e.GET("/v1/listings/:id/sessions", h.ListSessions, mws...)
	// The plans a listing currently sells, with availability resolved.
	e.GET("/v1/listings/:id/booking-options", h.BookingOptions, mws...)
	// Free-text catalog search with category and price filters.
	e.GET("/v1/search/listings", h.Search, mws...)
}
