package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Dashboard handles GET /v1/admin/stats and assembles the reporting
// dashboard in one response: headline counters, the five best-selling
// routes, a seven-day booking trend and per-operator performance.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	overview, err := h.Stats.Overview(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load overview"})
	}
	topRoutes, err := h.Stats.TopRoutes(ctx, 5)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load top routes"})
	}
	trend, err := h.Stats.DailyTrend(ctx, 7)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking trend"})
	}
	operators, err := h.Stats.OperatorPerformance(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load operator performance"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"overview":    overview,
		"top_routes":  topRoutes,
		"daily_trend": trend,
		"operators":   operators,
	})
}
