package handler // handler package contains admin catalog handlers

import (
	"database/sql" // sql is imported for sentinel errors like sql.ErrNoRows
	"errors"       // errors.Is comparisons against repository sentinels
	"net/http"     // http provides status code constants
	"strconv"      // strconv parses string identifiers to numeric types
	"strings"      // strings offers trimming utilities

	"github.com/iliyamo/bus-ticket-reservation/internal/model"      // model holds the persisted types
	"github.com/iliyamo/bus-ticket-reservation/internal/repository" // repository holds database access
	"github.com/labstack/echo/v4"                                   // echo is the web framework used for handlers
)

// CreateOperator handles POST /v1/admin/operators and registers a new bus
// company.  Role middleware has already ensured the caller is an admin.
func (h *AdminHandler) CreateOperator(c echo.Context) error {
	var body struct { // anonymous struct to bind incoming JSON
		Name         string `json:"name"`          // unique company name, required
		ContactEmail string `json:"contact_email"` // optional support email
		ContactPhone string `json:"contact_phone"` // optional support phone
	}
	if err := c.Bind(&body); err != nil { // attempt to bind the request body
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name) // trim spaces around the operator name
	if name == "" {                      // ensure the name is not empty after trimming
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}
	op := &model.Operator{ // instantiate the new operator
		Name:         name,
		ContactEmail: strings.TrimSpace(body.ContactEmail),
		ContactPhone: strings.TrimSpace(body.ContactPhone),
	}
	if err := h.Operators.Create(c.Request().Context(), op); err != nil {
		if strings.Contains(err.Error(), "1062") { // duplicate key means the name is taken
			return c.JSON(http.StatusConflict, map[string]string{"error": "operator name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create operator"})
	}
	return c.JSON(http.StatusCreated, op) // return 201 and the created operator on success
}

// ListOperators handles GET /v1/admin/operators and returns every operator,
// inactive ones included so they can be reactivated.
func (h *AdminHandler) ListOperators(c echo.Context) error {
	items, err := h.Operators.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// UpdateOperator handles PUT /v1/admin/operators/:id.  Fields left out of
// the body keep their stored values; is_active may be flipped back to true
// to reactivate a soft-deleted operator.
func (h *AdminHandler) UpdateOperator(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64) // parse the operator ID from the URL
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body struct { // pointer fields distinguish "absent" from "empty"
		Name         *string `json:"name"`
		ContactEmail *string `json:"contact_email"`
		ContactPhone *string `json:"contact_phone"`
		IsActive     *bool   `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	cur, err := h.Operators.GetByID(c.Request().Context(), id) // load current values to merge into
	if err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "operator not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	upd := *cur
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name cannot be empty"})
		}
		upd.Name = name
	}
	if body.ContactEmail != nil {
		upd.ContactEmail = strings.TrimSpace(*body.ContactEmail)
	}
	if body.ContactPhone != nil {
		upd.ContactPhone = strings.TrimSpace(*body.ContactPhone)
	}
	if body.IsActive != nil {
		upd.IsActive = *body.IsActive
	}
	if err := h.Operators.Update(c.Request().Context(), &upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoChange):
			return c.JSON(http.StatusConflict, map[string]string{"error": "operator already has these parameters"})
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "operator not found"})
		case strings.Contains(err.Error(), "1062"):
			return c.JSON(http.StatusConflict, map[string]string{"error": "operator name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}
	fresh, err := h.Operators.GetByID(c.Request().Context(), id) // fetch the updated record
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, fresh)
}

// DeactivateOperator handles DELETE /v1/admin/operators/:id.  Operators are
// never hard-deleted because historic bookings reference them; this flips
// is_active off so the operator disappears from search and refuses new
// schedules.
func (h *AdminHandler) DeactivateOperator(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.Operators.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "operator not found or already inactive"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
