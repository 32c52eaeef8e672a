package handler // handler package contains admin catalog handlers

import (
	"database/sql" // sentinel errors such as sql.ErrNoRows
	"errors"       // errors.Is comparisons
	"net/http"     // status code constants
	"strconv"      // string-to-integer conversion
	"strings"      // trimming utilities

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/labstack/echo/v4"
)

// CreateRoute handles POST /v1/admin/routes and attaches a new
// origin/destination pair to an operator.  The operator must exist and be
// active; inactive carriers refuse new routes.
func (h *AdminHandler) CreateRoute(c echo.Context) error {
	var body struct {
		OperatorID  uint64 `json:"operator_id"`  // carrier serving the route, required
		Origin      string `json:"origin"`       // departure city, required
		Destination string `json:"destination"`  // arrival city, required
		DistanceKM  uint32 `json:"distance_km"`  // driving distance in kilometres
		DurationMin uint32 `json:"duration_min"` // nominal travel time in minutes
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.OperatorID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "operator_id is required"})
	}
	origin := strings.TrimSpace(body.Origin)           // trim the origin city
	destination := strings.TrimSpace(body.Destination) // trim the destination city
	if origin == "" || destination == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "origin and destination are required"})
	}
	if strings.EqualFold(origin, destination) { // a route must actually go somewhere
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "origin and destination must differ"})
	}
	if body.DurationMin == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "duration_min must be positive"})
	}
	// Verify the operator exists and has not been deactivated.
	if _, err := h.Operators.GetActiveByID(c.Request().Context(), body.OperatorID); err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "operator not found or inactive"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to verify operator"})
	}
	rt := &model.Route{
		OperatorID:  body.OperatorID,
		Origin:      origin,
		Destination: destination,
		DistanceKM:  body.DistanceKM,
		DurationMin: body.DurationMin,
	}
	if err := h.Routes.Create(c.Request().Context(), rt); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create route"})
	}
	return c.JSON(http.StatusCreated, rt)
}

// ListRoutes handles GET /v1/admin/routes.  An optional operator_id query
// parameter narrows the list to one carrier.
func (h *AdminHandler) ListRoutes(c echo.Context) error {
	var operatorID uint64
	if raw := c.QueryParam("operator_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid operator_id"})
		}
		operatorID = id
	}
	items, err := h.Routes.ListByOperator(c.Request().Context(), operatorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// UpdateRoute handles PUT /v1/admin/routes/:id.  The operator binding is
// immutable; everything else can change, including reactivation via
// is_active.
func (h *AdminHandler) UpdateRoute(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body struct {
		Origin      *string `json:"origin"`
		Destination *string `json:"destination"`
		DistanceKM  *uint32 `json:"distance_km"`
		DurationMin *uint32 `json:"duration_min"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	cur, err := h.Routes.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRouteNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "route not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	upd := *cur
	if body.Origin != nil {
		origin := strings.TrimSpace(*body.Origin)
		if origin == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "origin cannot be empty"})
		}
		upd.Origin = origin
	}
	if body.Destination != nil {
		destination := strings.TrimSpace(*body.Destination)
		if destination == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "destination cannot be empty"})
		}
		upd.Destination = destination
	}
	if strings.EqualFold(upd.Origin, upd.Destination) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "origin and destination must differ"})
	}
	if body.DistanceKM != nil {
		upd.DistanceKM = *body.DistanceKM
	}
	if body.DurationMin != nil {
		if *body.DurationMin == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "duration_min must be positive"})
		}
		upd.DurationMin = *body.DurationMin
	}
	if body.IsActive != nil {
		upd.IsActive = *body.IsActive
	}
	if err := h.Routes.Update(c.Request().Context(), &upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoChange):
			return c.JSON(http.StatusConflict, map[string]string{"error": "route already has these parameters"})
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "route not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}
	fresh, err := h.Routes.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, fresh)
}

// DeactivateRoute handles DELETE /v1/admin/routes/:id.  Soft delete only;
// schedules already created on the route keep running, the route just
// stops accepting new ones and drops out of search.
func (h *AdminHandler) DeactivateRoute(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.Routes.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "route not found or already inactive"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
