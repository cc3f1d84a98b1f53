package middleware

import "github.com/labstack/echo/v4"

// SessionID returns the session id stored by SessionAuth, or "" when the
// request is not authenticated.
func SessionID(c echo.Context) string {
	if s, ok := c.Get(CtxSessionID).(string); ok {
		return s
	}
	return ""
}

// UserName returns the traveller name stored by SessionAuth.
func UserName(c echo.Context) string {
	if s, ok := c.Get(CtxUserName).(string); ok {
		return s
	}
	return ""
}

// rateIdentity is the identity rate limit keys use: the session id, or
// "anon" for unauthenticated requests.
func rateIdentity(c echo.Context) string {
	if s := SessionID(c); s != "" {
		return s
	}
	return "anon"
}
