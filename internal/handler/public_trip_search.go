package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// SearchTrips lists bookable departures.  Filters: origin, destination
// (case-insensitive), date (YYYY-MM-DD), bus_type, operator.
// time: "upcoming" (default) or "any" (no departure-time filter).
func (h *PublicHandler) SearchTrips(c echo.Context) error {
	origin := strings.TrimSpace(c.QueryParam("origin"))
	destination := strings.TrimSpace(c.QueryParam("destination"))
	date := strings.TrimSpace(c.QueryParam("date"))
	busType := strings.TrimSpace(c.QueryParam("bus_type"))
	operator := strings.TrimSpace(c.QueryParam("operator"))
	timeFilter := strings.ToLower(strings.TrimSpace(c.QueryParam("time")))
	if timeFilter == "" {
		timeFilter = "upcoming"
	}
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
	}

	page, ps := parsePagination(c)

	q := repository.TripSearchQuery{
		Origin:      origin,
		Destination: destination,
		Date:        date,
		BusType:     busType,
		Operator:    operator,
		TimeFilter:  timeFilter,
		Page:        page,
		PageSize:    ps,
	}

	items, total, err := h.Schedules.SearchTrips(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "database_error",
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}
