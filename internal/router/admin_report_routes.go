package router

// This file registers the admin oversight routes for bookings and
// reporting.  They are separate from the catalog routes to keep concerns
// isolated: catalog management changes what can be sold, these routes
// watch and intervene in what was sold.

import (
	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterAdminReports registers routes that allow admins to inspect and
// cancel bookings and to read the reporting dashboard.  All routes are
// mounted under /v1/admin and require a JWT with the ADMIN role.
func RegisterAdminReports(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	// List all bookings, optionally narrowed to one schedule or status.
	g.GET("/bookings", a.ListBookings)
	// Inspect a single booking with customer identity attached.
	g.GET("/bookings/:ref", a.GetBookingDetail)
	// Cancel a booking on the customer's behalf with a full refund.
	g.DELETE("/bookings/:ref", a.CancelBooking)
	// Headline numbers, top routes, booking trend and operator performance.
	g.GET("/stats", a.Dashboard)
}
