package router // router defines how HTTP routes are registered for the API

import (
	"github.com/iliyamo/bus-ticket-reservation/internal/handler"    // admin handlers
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware" // JWT + role middlewares
	"github.com/labstack/echo/v4"
)

// RegisterAdmin registers ADMIN-scoped catalog and schedule endpoints under
// /v1/admin.  All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	// Attach middlewares at group construction time for clarity.
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Operators ----
	g.POST("/operators", a.CreateOperator)
	g.GET("/operators", a.ListOperators)
	g.PUT("/operators/:id", a.UpdateOperator)
	g.PATCH("/operators/:id", a.UpdateOperator) // allow partial updates via PATCH as well
	g.DELETE("/operators/:id", a.DeactivateOperator)

	// ---- Routes ----
	g.POST("/routes", a.CreateRoute)
	g.GET("/routes", a.ListRoutes)
	g.PUT("/routes/:id", a.UpdateRoute)
	g.PATCH("/routes/:id", a.UpdateRoute)
	g.DELETE("/routes/:id", a.DeactivateRoute)

	// ---- Buses ----
	g.POST("/buses", a.CreateBus)
	g.GET("/buses", a.ListBuses)
	g.PUT("/buses/:id", a.UpdateBus)
	g.PATCH("/buses/:id", a.UpdateBus)
	g.DELETE("/buses/:id", a.DeactivateBus)

	// ---- Schedules ----
	g.POST("/schedules", a.CreateSchedule)
	g.GET("/schedules", a.ListSchedules)
	g.GET("/schedules/:id", a.GetSchedule)
	g.GET("/schedules/:id/seats", a.GetScheduleSeats) // manifest with passenger identity
	g.PUT("/schedules/:id", a.UpdateSchedule)
	g.PATCH("/schedules/:id", a.UpdateSchedule)
	// Cancelling refunds every booking on the trip, so it is a POST with
	// its own endpoint rather than a status value on PUT.
	g.POST("/schedules/:id/cancel", a.CancelTrip)
	// Hard delete, only for cancelled trips with no booking history.
	g.DELETE("/schedules/:id", a.DeleteSchedule)
}
