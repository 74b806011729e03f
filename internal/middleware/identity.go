package middleware

import "github.com/labstack/echo/v4"

// currentUserID is the authenticated subject, or "anon" before JWTAuth ran.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
