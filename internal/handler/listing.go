package handler

import (
	"context"  // request-scoped timeouts
	"net/http" // HTTP status codes
	"strconv"  // query param parsing
	"strings"  // input trimming
	"time"     // timeouts and cutoff checks

	"github.com/labstack/echo/v4" // HTTP framework

	"github.com/rayyhq/rayy-backend/internal/booking"    // booking engine
	"github.com/rayyhq/rayy-backend/internal/model"      // domain types
	"github.com/rayyhq/rayy-backend/internal/repository" // DB repositories
)

// ListingHandler serves the public catalog: browse listings, inspect a
// listing, see its upcoming sessions and its purchasable plans.  No
// authentication; responses sit behind the response cache.
type ListingHandler struct {
	Listings *repository.ListingRepo
	Sessions *repository.SessionRepo
	Engine   *booking.Engine
}

func NewListingHandler(l *repository.ListingRepo, s *repository.SessionRepo, e *booking.Engine) *ListingHandler {
	return &ListingHandler{Listings: l, Sessions: s, Engine: e}
}

// List handles GET /v1/listings?category=music.
func (h *ListingHandler) List(c echo.Context) error {
	category := strings.TrimSpace(c.QueryParam("category"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Listings.ListActive(ctx, category)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list listings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": items, "count": len(items)})
}

// Get handles GET /v1/listings/:id and returns the full aggregate:
// listing, plan options and batches.
func (h *ListingHandler) Get(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load listing failed"})
	}
	return c.JSON(http.StatusOK, l)
}

// sessionView is the public projection of a session: remaining seats
// and whether the booking window is still open.
type sessionView struct {
	ID              string     `json:"id"`
	BatchID         *string    `json:"batch_id,omitempty"`
	StartAt         time.Time  `json:"start_at"`
	DurationMinutes int        `json:"duration_minutes"`
	SeatsTotal      int        `json:"seats_total"`
	SeatsAvailable  int        `json:"seats_available"`
	PriceINR        float64    `json:"price_inr"`
	Status          string     `json:"status"`
	IsBookable      bool       `json:"is_bookable"`
	BookingCutoff   *time.Time `json:"booking_cutoff,omitempty"`
}

func toSessionView(s model.Session, base float64, now time.Time) sessionView {
	cutoff := s.BookingCutoff()
	v := sessionView{
		ID:              s.ID,
		BatchID:         s.BatchID,
		StartAt:         s.StartAt,
		DurationMinutes: s.DurationMinutes,
		SeatsTotal:      s.SeatsTotal,
		SeatsAvailable:  s.SeatsAvailable(),
		PriceINR:        s.UnitPriceINR(base),
		Status:          string(s.Status),
		IsBookable:      s.Status == model.SessionScheduled && s.SeatsAvailable() > 0 && now.Before(cutoff),
	}
	if s.Status == model.SessionScheduled {
		v.BookingCutoff = &cutoff
	}
	return v
}

// ListSessions handles GET /v1/listings/:id/sessions.
func (h *ListingHandler) ListSessions(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load listing failed"})
	}

	now := time.Now().UTC()
	sessions, err := h.Sessions.ListByListing(ctx, id, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sessions failed"})
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, toSessionView(s, l.BasePriceINR, now))
	}
	return c.JSON(http.StatusOK, echo.Map{"listing_id": id, "sessions": views, "count": len(views)})
}

// Search handles GET /v1/search/listings with free-text, category and
// price filters plus pagination.
func (h *ListingHandler) Search(c echo.Context) error {
	q := repository.ListingSearchQuery{
		Query:     strings.TrimSpace(c.QueryParam("q")),
		Category:  strings.TrimSpace(c.QueryParam("category")),
		TrialOnly: c.QueryParam("trial") == "true",
		Page:      1,
		PageSize:  20,
	}
	if raw := c.QueryParam("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_price must be a number"})
		}
		q.MaxPriceINR = v
	}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "page must be >= 1"})
		}
		q.Page = n
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "page_size must be 1..100"})
		}
		q.PageSize = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.Listings.Search(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"listings":  items,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

// BookingOptions handles GET /v1/listings/:id/booking-options.
func (h *ListingHandler) BookingOptions(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	offers, err := h.Engine.BookingOptions(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listing_id": id, "options": offers, "count": len(offers)})
}
