// This file defines handlers for the public browsing API.  These routes
// let unauthenticated users search trips and inspect seat availability.
// Passenger details on sold seats are never exposed here.

package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// PublicHandler aggregates repositories needed for unauthenticated
// browsing.  It produces sanitized responses suitable for public
// consumption.
type PublicHandler struct {
	Schedules *repository.ScheduleRepo
	Claims    *repository.SeatClaimRepo
}

// PublicSeat is one seat of the public seat map.
type PublicSeat struct {
	SeatNumber string `json:"seat_number"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Taken      bool   `json:"taken"`
}

// GetTrip returns one trip with route, bus and operator information.
func (h *PublicHandler) GetTrip(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	trip, err := h.Schedules.GetTripDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, trip)
}

// GetTripSeats returns the seat map of a trip: every seat of the bus in
// its 2+2 layout with a taken flag, plus the availability counter.
func (h *PublicHandler) GetTripSeats(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	sched, err := h.Schedules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	claims, err := h.Claims.ListActiveBySchedule(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	taken := make(map[string]bool, len(claims))
	for _, cl := range claims {
		taken[cl.SeatNumber] = true
	}

	seats := make([]PublicSeat, 0, sched.TotalSeats)
	for n := 1; n <= int(sched.TotalSeats); n++ {
		label := booking.FormatSeatNumber(n)
		row, col := booking.SeatPosition(n)
		seats = append(seats, PublicSeat{
			SeatNumber: label,
			Row:        row,
			Col:        col,
			Taken:      taken[label],
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"schedule_id":     sched.ID,
		"status":          sched.Status,
		"total_seats":     sched.TotalSeats,
		"available_seats": sched.AvailableSeats,
		"seats":           seats,
	})
}
