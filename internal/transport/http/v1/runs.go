package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetRun retrieves a run by ID.
// GET /v1/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	runID := c.Param("run_id")

	run, err := h.service.Store().GetRun(c.Request().Context(), runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, run)
}

// GetRunEvents retrieves events for a run.
// GET /v1/runs/:run_id/events
func (h *Handler) GetRunEvents(c echo.Context) error {
	runID := c.Param("run_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if typ := c.QueryParam("type"); typ != "" {
		types = append(types, typ)
	}

	events, err := h.service.Store().GetEvents(c.Request().Context(), runID, afterTs, types, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
	})
}
