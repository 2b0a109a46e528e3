package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListAgents lists all registered agents.
// GET /v1/agents
func (h *Handler) ListAgents(c echo.Context) error {
	ids := h.service.Agents().IDs()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": ids,
		"count":  len(ids),
	})
}

// GetAgent gets a specific agent by ID.
// GET /v1/agents/:agent_id
func (h *Handler) GetAgent(c echo.Context) error {
	agentID := c.Param("agent_id")

	a := h.service.Agents().Get(agentID)
	if a == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "agent not found"})
	}
	return c.JSON(http.StatusOK, a.Info())
}
