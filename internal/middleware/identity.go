package middleware

// identity.go defines helper functions shared across middleware files.
// Currently it provides a userID extraction function used by the rate
// limit and cache key builders. When no user is authenticated, "guest"
// is returned so anonymous traffic shares one bucket per IP.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID extracts the authenticated user id stored by JWTAuth. It
// returns "guest" when no user is authenticated.
func userID(c echo.Context) string {
	if id, ok := c.Get("user_id").(uint64); ok && id > 0 {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
