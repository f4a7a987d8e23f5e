package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayyhq/rayy-backend/internal/booking"
	"github.com/rayyhq/rayy-backend/internal/handler"
	"github.com/rayyhq/rayy-backend/internal/utils"
)

const testSecret = "routes-test-secret"

func newCustomerTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Validator = utils.NewRequestValidator()
	eng := booking.NewEngine(nil, nil, nil, nil, nil, nil, nil, booking.Config{})
	RegisterCustomer(e, handler.NewBookingHandler(eng), &handler.WalletHandler{}, testSecret)
	return e
}

func bearerFor(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, userID, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

// Partners book walk-in families through the same endpoint as
// customers, so the route gate must let partner roles through; the
// empty body then fails shape validation, not authorization.
func TestBookingCreateRoute_AllowsBookingRoles(t *testing.T) {
	e := newCustomerTestServer(t)

	for _, role := range []string{"customer", "partner_owner", "partner_staff"} {
		t.Run(role, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader("{}"))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(echo.HeaderAuthorization, bearerFor(t, 7, role))
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPlanBookingRoute_AllowsBookingRoles(t *testing.T) {
	e := newCustomerTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/plan", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, bearerFor(t, 7, "partner_owner"))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// The rest of the customer surface stays customer-only.
func TestCustomerOnlyRoutes_RejectPartnerRoles(t *testing.T) {
	e := newCustomerTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/my", nil)
	req.Header.Set(echo.HeaderAuthorization, bearerFor(t, 7, "partner_owner"))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
