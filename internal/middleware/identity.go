package middleware

// identity.go holds the helpers other middleware use to name the caller,
// whether or not a token was presented.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user ID from the context as set
// by JWTAuth, or "anon" for unauthenticated traffic.  Rate-limit keys use
// this so logged-in users are metered per account rather than per IP.
// JWT claims decode numbers as float64, so that is the common case here.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}

// clientIP names the remote peer, falling back to "unknown" when Echo
// cannot determine it (e.g. unusual proxy setups).
func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}
