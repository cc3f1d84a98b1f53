package middleware // package middleware contains the HTTP middleware of the booking server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Yusuf8760/bus-booking-frontend/internal/utils"
)

// Context keys set by SessionAuth.
const (
	CtxSessionID = "session_id"
	CtxUserName  = "user_name"
)

// SessionAuth validates the Bearer session token and stores the session id
// and traveller name in the request context.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseSessionToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxSessionID, claims.Subject)
			c.Set(CtxUserName, claims.Name)
			return next(c)
		}
	}
}
