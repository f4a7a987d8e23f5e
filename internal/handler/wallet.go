package handler

import (
	"context"  // request-scoped timeouts
	"fmt"      // descriptions and txn ids
	"net/http" // HTTP status codes
	"strconv"  // query param parsing
	"time"     // timeout duration

	"github.com/google/uuid"      // mock payment txn ids
	"github.com/labstack/echo/v4" // HTTP framework

	"github.com/rayyhq/rayy-backend/internal/config"     // app configuration
	"github.com/rayyhq/rayy-backend/internal/middleware" // actor extraction
	"github.com/rayyhq/rayy-backend/internal/model"      // domain types
	"github.com/rayyhq/rayy-backend/internal/repository" // DB repositories
)

// WalletHandler serves the credit wallet: balance, ledger, activation,
// credit plan catalog and subscription, plus the customer's invoices.
type WalletHandler struct {
	Cfg      config.Config
	Wallets  *repository.WalletRepo
	Invoices *repository.InvoiceRepo
}

func NewWalletHandler(cfg config.Config, w *repository.WalletRepo, i *repository.InvoiceRepo) *WalletHandler {
	return &WalletHandler{Cfg: cfg, Wallets: w, Invoices: i}
}

// Me handles GET /v1/wallet/me.  Opens the wallet lazily on first read.
func (h *WalletHandler) Me(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	w, err := h.Wallets.GetOrCreate(ctx, actor.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load wallet failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":         w.UserID,
		"credits_balance": w.CreditsBalance,
		"welcome_granted": w.LastGrantAt != nil,
	})
}

// Ledger handles GET /v1/wallet/ledger?limit=50.
func (h *WalletHandler) Ledger(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be 1..500"})
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Wallets.Ledger(ctx, actor.UserID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ledger failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries, "count": len(entries)})
}

// Activate handles POST /v1/wallet/activate.  Grants the one-time
// welcome bonus; calling it again is a no-op with the same response.
func (h *WalletHandler) Activate(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Wallets.GrantWelcomeBonus(ctx, actor.UserID, h.Cfg.WelcomeBonusCredits); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate wallet failed"})
	}
	w, err := h.Wallets.GetOrCreate(ctx, actor.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load wallet failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":         w.UserID,
		"credits_balance": w.CreditsBalance,
		"welcome_granted": w.LastGrantAt != nil,
	})
}

// CreditPlans handles GET /v1/credit-plans.
func (h *WalletHandler) CreditPlans(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	plans, err := h.Wallets.ActiveCreditPlans(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load credit plans failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"plans": plans, "count": len(plans)})
}

type subscribeReq struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// Subscribe handles POST /v1/credit-plans/subscribe.  Payment runs in
// mock mode: the charge is assumed captured and a local txn id is
// recorded in the ledger description.
func (h *WalletHandler) Subscribe(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req subscribeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	plans, err := h.Wallets.ActiveCreditPlans(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load credit plans failed"})
	}
	var plan *model.CreditPlan
	for i := range plans {
		if plans[i].ID == req.PlanID {
			plan = &plans[i]
			break
		}
	}
	if plan == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "credit plan not found"})
	}

	txnID := h.Cfg.PaymentsMode + "_txn_" + uuid.NewString()
	desc := fmt.Sprintf("%s subscription, paid %.2f INR, txn %s", plan.Name, plan.PriceINR, txnID)
	if err := h.Wallets.Grant(ctx, actor.UserID, plan.CreditsPerMonth, model.LedgerPurchase, &desc); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "credit purchase failed"})
	}

	w, err := h.Wallets.GetOrCreate(ctx, actor.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load wallet failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"plan_id":         plan.ID,
		"credits_added":   plan.CreditsPerMonth,
		"amount_inr":      plan.PriceINR,
		"payment_txn_id":  txnID,
		"credits_balance": w.CreditsBalance,
	})
}

// MyInvoices handles GET /v1/invoices/my.
func (h *WalletHandler) MyInvoices(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Invoices.ListByCustomer(ctx, actor.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load invoices failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"invoices": items, "count": len(items)})
}
