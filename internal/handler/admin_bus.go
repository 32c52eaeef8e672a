package handler // handler package contains admin catalog handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/labstack/echo/v4"
)

// maxBusSeats bounds vehicle capacity.  Seat labels are two digits
// ("01".."99"), so the label space is the hard ceiling.
const maxBusSeats = 99

// normalizeBusType uppercases and validates the bus type, defaulting an
// empty value to STANDARD.  The boolean reports whether the input was
// acceptable.
func normalizeBusType(raw string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return model.BusTypeStandard, true
	}
	switch t {
	case model.BusTypeStandard, model.BusTypeAC, model.BusTypeSleeper:
		return t, true
	}
	return "", false
}

// CreateBus handles POST /v1/admin/buses and registers a vehicle under an
// operator.  Capacity is fixed here; schedules copy it at creation, so
// later edits never shrink a trip that is already selling.
func (h *AdminHandler) CreateBus(c echo.Context) error {
	var body struct {
		OperatorID     uint64 `json:"operator_id"`     // owning carrier, required
		RegistrationNo string `json:"registration_no"` // unique plate number, required
		BusType        string `json:"bus_type"`        // STANDARD, AC or SLEEPER; defaults to STANDARD
		TotalSeats     uint32 `json:"total_seats"`     // passenger seats, 1..99
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.OperatorID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "operator_id is required"})
	}
	registration := strings.ToUpper(strings.TrimSpace(body.RegistrationNo)) // plates are stored uppercase
	if registration == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "registration_no is required"})
	}
	busType, ok := normalizeBusType(body.BusType)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bus_type must be STANDARD, AC or SLEEPER"})
	}
	if body.TotalSeats == 0 || body.TotalSeats > maxBusSeats {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "total_seats must be between 1 and 99"})
	}
	// Verify the operator exists and has not been deactivated.
	if _, err := h.Operators.GetActiveByID(c.Request().Context(), body.OperatorID); err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "operator not found or inactive"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to verify operator"})
	}
	b := &model.Bus{
		OperatorID:     body.OperatorID,
		RegistrationNo: registration,
		BusType:        busType,
		TotalSeats:     body.TotalSeats,
	}
	if err := h.Buses.Create(c.Request().Context(), b); err != nil {
		if errors.Is(err, repository.ErrRegistrationExists) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "registration number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create bus"})
	}
	return c.JSON(http.StatusCreated, b)
}

// ListBuses handles GET /v1/admin/buses with an optional operator_id query
// parameter.
func (h *AdminHandler) ListBuses(c echo.Context) error {
	var operatorID uint64
	if raw := c.QueryParam("operator_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid operator_id"})
		}
		operatorID = id
	}
	items, err := h.Buses.ListByOperator(c.Request().Context(), operatorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// UpdateBus handles PUT /v1/admin/buses/:id.  Capacity edits only reach
// schedules created afterwards; live trips keep the seat count they copied.
func (h *AdminHandler) UpdateBus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body struct {
		RegistrationNo *string `json:"registration_no"`
		BusType        *string `json:"bus_type"`
		TotalSeats     *uint32 `json:"total_seats"`
		IsActive       *bool   `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	cur, err := h.Buses.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	upd := *cur
	if body.RegistrationNo != nil {
		registration := strings.ToUpper(strings.TrimSpace(*body.RegistrationNo))
		if registration == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "registration_no cannot be empty"})
		}
		upd.RegistrationNo = registration
	}
	if body.BusType != nil {
		busType, ok := normalizeBusType(*body.BusType)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bus_type must be STANDARD, AC or SLEEPER"})
		}
		upd.BusType = busType
	}
	if body.TotalSeats != nil {
		if *body.TotalSeats == 0 || *body.TotalSeats > maxBusSeats {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "total_seats must be between 1 and 99"})
		}
		upd.TotalSeats = *body.TotalSeats
	}
	if body.IsActive != nil {
		upd.IsActive = *body.IsActive
	}
	if err := h.Buses.Update(c.Request().Context(), &upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoChange):
			return c.JSON(http.StatusConflict, map[string]string{"error": "bus already has these parameters"})
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "bus not found"})
		case errors.Is(err, repository.ErrRegistrationExists):
			return c.JSON(http.StatusConflict, map[string]string{"error": "registration number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}
	fresh, err := h.Buses.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, fresh)
}

// DeactivateBus handles DELETE /v1/admin/buses/:id.  Soft delete; trips
// already scheduled on the vehicle continue, it just cannot be scheduled
// again.
func (h *AdminHandler) DeactivateBus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.Buses.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "bus not found or already inactive"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
