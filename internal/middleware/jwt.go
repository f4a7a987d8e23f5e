package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

	"github.com/rayyhq/rayy-backend/internal/model"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the authenticated actor into the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers
// behind this middleware read the caller via middleware.ActorFrom(c);
// the raw "user_id" and "role" keys are also set for code that only
// needs one of them.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret; reject any other signing
			// method.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// sub is numeric in our tokens; MapClaims decodes JSON numbers
			// as float64.
			sub, ok := claims["sub"].(float64)
			if !ok || sub <= 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
			}
			roleStr, _ := claims["role"].(string)
			role, ok := model.ParseRole(roleStr)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid role"})
			}

			actor := model.Actor{UserID: uint64(sub), Role: role}
			c.Set("actor", actor)
			c.Set("user_id", actor.UserID)
			c.Set("role", string(actor.Role))
			return next(c)
		}
	}
}

// ActorFrom returns the authenticated actor stored by JWTAuth.  The
// boolean is false on routes that skipped authentication.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get("actor").(model.Actor)
	return a, ok
}
