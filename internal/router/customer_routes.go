package router

import (
	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT and the CUSTOMER role.  Customers book seats
// on trips, list their own bookings and cancel them.  The rate limiter
// runs after JWT auth so buckets are keyed per user rather than per IP
// alone.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
		rl,
	)
	// Note: GET /v1/trips/:id and GET /v1/trips/:id/seats are registered on
	// the public router so that guests can browse before signing up.
	// Customer-specific endpoints begin here.
	g.POST("/trips/:id/bookings", h.CreateBooking)
	g.GET("/my-bookings", h.ListMyBookings)

	// Booking detail and cancellation by public reference.  Ownership is
	// validated in the handler, so one customer can never read or cancel
	// another's booking.
	g.GET("/bookings/:ref", h.GetBooking)
	g.DELETE("/bookings/:ref", h.CancelBooking)
}
