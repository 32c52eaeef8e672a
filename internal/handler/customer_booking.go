package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/labstack/echo/v4"
)

// BookingHandler serves the customer booking endpoints: creating a
// booking on a trip, listing and inspecting the caller's bookings and
// cancelling one.  All methods assume JWT authentication and role
// validation have already run in middleware; the concurrency-sensitive
// work itself lives in booking.Manager, so this layer only binds
// requests and translates domain errors to HTTP responses.
type BookingHandler struct {
	Manager  *booking.Manager        // reservation core (transactions, seat claims)
	Bookings *repository.BookingRepo // read access for listings and details
}

// NewBookingHandler constructs a BookingHandler.  All dependencies must
// be non-nil; wiring bugs should fail at startup, not on first request.
func NewBookingHandler(manager *booking.Manager, bookings *repository.BookingRepo) *BookingHandler {
	if manager == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Manager: manager, Bookings: bookings}
}

// bookingSeatReq is one requested seat with its passenger, as sent by
// the client when creating a booking.
type bookingSeatReq struct {
	SeatNumber      string `json:"seat_number"`
	PassengerName   string `json:"passenger_name"`
	PassengerAge    uint8  `json:"passenger_age"`
	PassengerGender string `json:"passenger_gender"`
}

// CreateBooking handles POST /v1/trips/:id/bookings.  The body carries a
// "seats" array naming each seat and its passenger.  On success it
// returns 201 with the new booking and its claimed seats.  When any
// requested seat is already taken (or the trip is out of capacity) it
// returns 409 with the list of unavailable seat numbers so the client
// can re-render the seat map in one round trip.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	scheduleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || scheduleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	var body struct {
		Seats []bookingSeatReq `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}
	reqs := make([]booking.SeatRequest, 0, len(body.Seats))
	for _, s := range body.Seats {
		reqs = append(reqs, booking.SeatRequest{
			SeatNumber:      s.SeatNumber,
			PassengerName:   s.PassengerName,
			PassengerAge:    s.PassengerAge,
			PassengerGender: s.PassengerGender,
		})
	}

	ctx := c.Request().Context()
	b, claims, err := h.Manager.Reserve(ctx, userID, scheduleID, reqs)
	if err != nil {
		var unavailable *booking.SeatUnavailableError
		switch {
		case errors.As(err, &unavailable):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":       "some seats are unavailable",
				"unavailable": unavailable.Seats,
			})
		case errors.Is(err, booking.ErrTripNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		case errors.Is(err, booking.ErrInvalidRequest):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, booking.ErrPastDeparture):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "trip has already departed"})
		case errors.Is(err, booking.ErrTripCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip has been cancelled"})
		case errors.Is(err, booking.ErrTripNotBookable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip is not open for booking"})
		case errors.Is(err, booking.ErrTxConflict):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "trip is busy, please retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}

	seats := make([]repository.BookingSeat, 0, len(claims))
	for _, cl := range claims {
		seats = append(seats, repository.BookingSeat{
			SeatNumber:      cl.SeatNumber,
			PassengerName:   cl.PassengerName,
			PassengerAge:    cl.PassengerAge,
			PassengerGender: cl.PassengerGender,
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_ref":    b.BookingRef,
		"schedule_id":    b.ScheduleID,
		"status":         b.Status,
		"seat_count":     b.SeatCount,
		"total_cents":    b.TotalCents,
		"payment_status": b.PaymentStatus,
		"can_cancel":     b.CanCancel,
		"created_at":     b.CreatedAt.UTC().Format(time.RFC3339),
		"seats":          seats,
	})
}

// ListMyBookings handles GET /v1/my-bookings.  It returns a page of the
// caller's bookings, newest first, each with trip information and the
// seats claimed under it.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, pageSize := parsePagination(c)
	ctx := c.Request().Context()
	details, total, err := h.Bookings.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
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

// GetBooking handles GET /v1/bookings/:ref.  It returns one booking of
// the authenticated user by its public reference.  404 when no such
// booking exists, 403 when it belongs to a different user.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ref := c.Param("ref")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	ctx := c.Request().Context()
	detail, err := h.Bookings.GetDetailByRefForUser(ctx, ref, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": detail})
}

// CancelBooking handles DELETE /v1/bookings/:ref.  It cancels the
// caller's booking, frees the seats back to the trip and reports the
// refund.  Whether a customer may cancel was decided when the booking
// was made (can_cancel); state conflicts (already cancelled, booking
// not cancellable) come back as 409.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ref := c.Param("ref")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	ctx := c.Request().Context()
	b, err := h.Manager.Release(ctx, ref, userID, isAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, booking.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, booking.ErrBookingAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
		case errors.Is(err, booking.ErrCancellationNotAllowed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "cancellation window has closed"})
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
