package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// AdminHandler bundles everything the admin console endpoints touch:
// fleet catalog repositories, the booking repositories for oversight
// views, the stats queries and the booking manager for trip cancellation.
type AdminHandler struct {
	Operators *repository.OperatorRepo
	Routes    *repository.RouteRepo
	Buses     *repository.BusRepo
	Schedules *repository.ScheduleRepo
	Claims    *repository.SeatClaimRepo
	Bookings  *repository.BookingRepo
	Stats     *repository.StatsRepo
	Manager   *booking.Manager
}

// NewAdminHandler constructs an AdminHandler and panics if any dependency
// is nil; wiring bugs should fail at startup, not on first request.
func NewAdminHandler(
	operators *repository.OperatorRepo,
	routes *repository.RouteRepo,
	buses *repository.BusRepo,
	schedules *repository.ScheduleRepo,
	claims *repository.SeatClaimRepo,
	bookings *repository.BookingRepo,
	stats *repository.StatsRepo,
	manager *booking.Manager,
) *AdminHandler {
	if operators == nil || routes == nil || buses == nil || schedules == nil ||
		claims == nil || bookings == nil || stats == nil || manager == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Operators: operators,
		Routes:    routes,
		Buses:     buses,
		Schedules: schedules,
		Claims:    claims,
		Bookings:  bookings,
		Stats:     stats,
		Manager:   manager,
	}
}

// getUserID extracts the user_id stored by the JWT middleware and converts
// it to uint64.  Claims decode as float64 or string depending on issuer.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the JWT middleware stored the ADMIN role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "ADMIN"
}

// parsePagination reads ?page= and ?page_size= with sane clamps.
func parsePagination(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
