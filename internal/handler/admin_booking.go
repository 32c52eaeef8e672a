package handler

// This file defines the admin view over bookings.  Admins can list every
// booking in the system, inspect one with the customer identity attached
// and cancel one on a customer's behalf.  Admin cancellations refund in
// full and carry no time restriction, bypassing the can_cancel flag
// customers are bound by.

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/labstack/echo/v4"
)

// ListBookings handles GET /v1/admin/bookings.  Optional schedule_id and
// status query parameters narrow the page; results carry customer identity
// so support staff can answer "who is on this trip".
func (h *AdminHandler) ListBookings(c echo.Context) error {
	var scheduleID uint64
	if raw := c.QueryParam("schedule_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule_id"})
		}
		scheduleID = id
	}
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	switch status {
	case "", model.BookingConfirmed, model.BookingCancelled, model.BookingCompleted:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	page, pageSize := parsePagination(c)
	details, total, err := h.Bookings.ListAllFiltered(c.Request().Context(), scheduleID, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      details,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetBookingDetail handles GET /v1/admin/bookings/:ref and returns one
// booking with trip, seat and customer information.
func (h *AdminHandler) GetBookingDetail(c echo.Context) error {
	ref := c.Param("ref")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	detail, err := h.Bookings.GetAdminDetailByRef(c.Request().Context(), ref)
	if err != nil {
		if errors.Is(err, repository.ErrBookingRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": detail})
}

// CancelBooking handles DELETE /v1/admin/bookings/:ref.  The booking is
// cancelled with a full refund regardless of who owns it or how close
// (or past) the departure is.
func (h *AdminHandler) CancelBooking(c echo.Context) error {
	ref := c.Param("ref")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	b, err := h.Manager.Release(c.Request().Context(), ref, 0, true)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, booking.ErrBookingAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
		case errors.Is(err, booking.ErrCancellationNotAllowed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking can no longer be cancelled"})
		case errors.Is(err, booking.ErrTripNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		case errors.Is(err, booking.ErrTxConflict):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "trip is busy, please retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}

	resp := echo.Map{
		"booking_ref": b.BookingRef,
		"status":      b.Status,
	}
	if b.RefundCents != nil {
		resp["refund_cents"] = *b.RefundCents
	}
	if b.CancelledAt != nil {
		resp["cancelled_at"] = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}
