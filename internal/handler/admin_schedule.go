package handler // handler package contains admin schedule handlers

import (
	"database/sql"
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

// CreateSchedule handles POST /v1/admin/schedules and puts a bus on a route
// for one concrete departure.  The bus and route must be active and belong
// to the same operator, the departure must lie in the future, and the bus
// must not be double-booked into an overlapping window.  Capacity is copied
// from the bus so later vehicle edits cannot skew the trip.
func (h *AdminHandler) CreateSchedule(c echo.Context) error {
	var body struct {
		RouteID     uint64 `json:"route_id"`     // route being served, required
		BusID       uint64 `json:"bus_id"`       // vehicle driving the trip, required
		ServiceDate string `json:"service_date"` // calendar day YYYY-MM-DD; derived from departure_at when empty
		DepartureAt string `json:"departure_at"` // RFC3339 departure time, required
		ArrivalAt   string `json:"arrival_at"`   // RFC3339 arrival time, required
		PriceCents  uint32 `json:"price_cents"`  // per-seat price, required
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.RouteID == 0 || body.BusID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "route_id and bus_id are required"})
	}
	if body.PriceCents == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "price_cents must be positive"})
	}
	departureRaw := strings.TrimSpace(body.DepartureAt)
	arrivalRaw := strings.TrimSpace(body.ArrivalAt)
	if departureRaw == "" || arrivalRaw == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "departure_at and arrival_at are required"})
	}
	departure, err := time.Parse(time.RFC3339, departureRaw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid departure_at format"})
	}
	arrival, err := time.Parse(time.RFC3339, arrivalRaw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid arrival_at format"})
	}
	departure = departure.UTC()
	arrival = arrival.UTC()
	if !arrival.After(departure) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "arrival_at must be after departure_at"})
	}
	if !departure.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "departure_at must be in the future"})
	}
	serviceDate := departure.Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(body.ServiceDate); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid service_date format, want YYYY-MM-DD"})
		}
		serviceDate = d
	}

	ctx := c.Request().Context()
	route, err := h.Routes.GetActiveByID(ctx, body.RouteID)
	if err != nil {
		if errors.Is(err, repository.ErrRouteNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "route not found or inactive"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to verify route"})
	}
	bus, err := h.Buses.GetActiveByID(ctx, body.BusID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "bus not found or inactive"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to verify bus"})
	}
	if bus.OperatorID != route.OperatorID {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bus and route belong to different operators"})
	}
	// Refuse to double-book the vehicle into an overlapping window.
	overlaps, err := h.Schedules.FindOverlappingForBus(ctx, body.BusID, departure, arrival)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to check existing schedules"})
	}
	if len(overlaps) > 0 {
		return c.JSON(http.StatusConflict, map[string]any{
			"error":    "bus is already scheduled in this window",
			"overlaps": overlaps,
		})
	}

	s := &model.Schedule{
		BusID:       body.BusID,
		RouteID:     body.RouteID,
		ServiceDate: serviceDate,
		DepartureAt: departure,
		ArrivalAt:   arrival,
		PriceCents:  body.PriceCents,
		TotalSeats:  bus.TotalSeats,
	}
	if err := h.Schedules.Create(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create schedule"})
	}
	return c.JSON(http.StatusCreated, s)
}

// ListSchedules handles GET /v1/admin/schedules with optional route_id,
// date and status filters plus pagination.
func (h *AdminHandler) ListSchedules(c echo.Context) error {
	var routeID uint64
	if raw := c.QueryParam("route_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid route_id"})
		}
		routeID = id
	}
	var serviceDate *time.Time
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date format, want YYYY-MM-DD"})
		}
		serviceDate = &d
	}
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	switch status {
	case "", model.TripScheduled, model.TripRunning, model.TripCompleted, model.TripCancelled:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
	}
	page, pageSize := parsePagination(c)
	items, total, err := h.Schedules.ListFiltered(c.Request().Context(), routeID, serviceDate, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetSchedule handles GET /v1/admin/schedules/:id and returns the raw
// schedule row including the live availability counter.
func (h *AdminHandler) GetSchedule(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	s, err := h.Schedules.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"item": s})
}

// GetScheduleSeats handles GET /v1/admin/schedules/:id/seats and returns
// the trip manifest: every occupied seat with the passenger riding in it
// and the booking that claimed it.  The public seat map hides passenger
// identity; this view is the admin counterpart that shows it.
func (h *AdminHandler) GetScheduleSeats(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	s, err := h.Schedules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	claims, err := h.Claims.ListActiveBySchedule(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}

	type manifestSeat struct {
		SeatNumber      string `json:"seat_number"`
		Row             int    `json:"row"`
		Col             int    `json:"col"`
		BookingID       uint64 `json:"booking_id"`
		PassengerName   string `json:"passenger_name"`
		PassengerAge    uint8  `json:"passenger_age"`
		PassengerGender string `json:"passenger_gender"`
	}
	manifest := make([]manifestSeat, 0, len(claims))
	for _, cl := range claims {
		n, err := booking.ParseSeatNumber(cl.SeatNumber)
		if err != nil {
			continue // ledger rows always carry valid labels
		}
		row, col := booking.SeatPosition(n)
		manifest = append(manifest, manifestSeat{
			SeatNumber:      cl.SeatNumber,
			Row:             row,
			Col:             col,
			BookingID:       cl.BookingID,
			PassengerName:   cl.PassengerName,
			PassengerAge:    cl.PassengerAge,
			PassengerGender: cl.PassengerGender,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"schedule_id":     s.ID,
		"status":          s.Status,
		"total_seats":     s.TotalSeats,
		"available_seats": s.AvailableSeats,
		"occupied":        len(manifest),
		"seats":           manifest,
	})
}

// UpdateSchedule handles PUT /v1/admin/schedules/:id.  Times, price and
// status can change; the route and bus bindings cannot.  Status may move
// between SCHEDULED, RUNNING and COMPLETED here, but never to CANCELLED:
// cancelling a trip refunds its bookings and must go through the cancel
// endpoint.
func (h *AdminHandler) UpdateSchedule(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body struct {
		ServiceDate *string `json:"service_date"`
		DepartureAt *string `json:"departure_at"`
		ArrivalAt   *string `json:"arrival_at"`
		PriceCents  *uint32 `json:"price_cents"`
		Status      *string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	cur, err := h.Schedules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	if cur.Status == model.TripCancelled {
		return c.JSON(http.StatusConflict, map[string]string{"error": "trip is cancelled"})
	}

	upd := *cur
	timesChanged := false
	if body.DepartureAt != nil && strings.TrimSpace(*body.DepartureAt) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*body.DepartureAt))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid departure_at format"})
		}
		upd.DepartureAt = t.UTC()
		timesChanged = true
	}
	if body.ArrivalAt != nil && strings.TrimSpace(*body.ArrivalAt) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*body.ArrivalAt))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid arrival_at format"})
		}
		upd.ArrivalAt = t.UTC()
		timesChanged = true
	}
	if body.ServiceDate != nil && strings.TrimSpace(*body.ServiceDate) != "" {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(*body.ServiceDate))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid service_date format, want YYYY-MM-DD"})
		}
		upd.ServiceDate = d
	}
	if body.PriceCents != nil {
		if *body.PriceCents == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "price_cents must be positive"})
		}
		upd.PriceCents = *body.PriceCents
	}
	if body.Status != nil {
		s := strings.ToUpper(strings.TrimSpace(*body.Status))
		switch s {
		case model.TripScheduled, model.TripRunning, model.TripCompleted:
			upd.Status = s
		case model.TripCancelled:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "use the cancel endpoint to cancel a trip"})
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
		}
	}
	if timesChanged {
		if !upd.ArrivalAt.After(upd.DepartureAt) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "arrival_at must be after departure_at"})
		}
		overlaps, err := h.Schedules.FindOverlappingForBus(ctx, cur.BusID, upd.DepartureAt, upd.ArrivalAt)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to check existing schedules"})
		}
		// The schedule being edited always overlaps itself.
		conflicting := overlaps[:0]
		for _, o := range overlaps {
			if o.ID != cur.ID {
				conflicting = append(conflicting, o)
			}
		}
		if len(conflicting) > 0 {
			return c.JSON(http.StatusConflict, map[string]any{
				"error":    "bus is already scheduled in this window",
				"overlaps": conflicting,
			})
		}
	}

	if err := h.Schedules.UpdateByID(ctx, &upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoChange):
			return c.JSON(http.StatusConflict, map[string]string{"error": "schedule already has these parameters"})
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}
	fresh, err := h.Schedules.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, fresh)
}

// CancelTrip handles POST /v1/admin/schedules/:id/cancel.  Every confirmed
// booking on the trip is cancelled with a full refund, all seats are
// released and the trip is frozen at zero availability.  Cancelling an
// already cancelled trip is a no-op and still answers 200, so the endpoint
// can be retried safely.
func (h *AdminHandler) CancelTrip(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	res, err := h.Manager.CancelTrip(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrTripNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "schedule not found"})
		case errors.Is(err, booking.ErrTxConflict):
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "trip is busy, please retry"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to cancel trip"})
	}
	return c.JSON(http.StatusOK, res)
}

// DeleteSchedule handles DELETE /v1/admin/schedules/:id.  Hard deletion is
// reserved for cancelled trips with no booking history; anything else is a
// conflict so no booking ever points at a missing trip.
func (h *AdminHandler) DeleteSchedule(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	err = h.Schedules.DeleteByID(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrScheduleNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "schedule not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, map[string]string{"error": "only a cancelled trip with no booking history can be deleted"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
