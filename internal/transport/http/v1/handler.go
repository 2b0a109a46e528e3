// Package v1 provides the gateway's public HTTP handlers.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corvid-labs/agentgw/internal/hub"
	"github.com/corvid-labs/agentgw/internal/service"
	"github.com/corvid-labs/agentgw/internal/workflow"
)

// Handler handles HTTP requests.
type Handler struct {
	service     *service.Service
	checkpoints *workflow.CheckpointManager
	defs        *workflow.Defs
	hub         *hub.Hub
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, ckpt *workflow.CheckpointManager, defs *workflow.Defs, h *hub.Hub) *Handler {
	return &Handler{
		service:     svc,
		checkpoints: ckpt,
		defs:        defs,
		hub:         h,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat streaming API
	e.POST("/v1/chat/stream", h.ChatStream)

	// Agent registry API
	e.GET("/v1/agents", h.ListAgents)
	e.GET("/v1/agents/:agent_id", h.GetAgent)

	// Workflow API
	e.GET("/v1/workflows", h.ListWorkflows)
	e.GET("/v1/threads/:thread_id/workflow", h.GetThreadWorkflow)
	e.POST("/v1/threads/:thread_id/workflow/steps/:step_id/run", h.RunWorkflowStep)
	e.POST("/v1/threads/:thread_id/workflow/steps/:step_id/skip", h.SkipWorkflowStep)
	e.POST("/v1/threads/:thread_id/workflow/run", h.RunWorkflow)

	// Thread API
	e.GET("/v1/threads/:thread_id/messages", h.GetThreadMessages)
	e.POST("/v1/threads/:thread_id/restore", h.RestoreCheckpoint)
	e.GET("/v1/threads/:thread_id/ws", h.ThreadWS)

	// Run API
	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/events", h.GetRunEvents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
