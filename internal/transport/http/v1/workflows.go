package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corvid-labs/agentgw/internal/workflow"
)

// ListWorkflows lists the available workflow definitions.
// GET /v1/workflows
func (h *Handler) ListWorkflows(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workflows": h.defs.List(),
	})
}

// GetThreadWorkflow returns the workflow state for a thread.
// GET /v1/threads/:thread_id/workflow
func (h *Handler) GetThreadWorkflow(c echo.Context) error {
	o, errResp := h.orchestratorFor(c)
	if errResp != nil {
		return errResp
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workflow_id": o.WorkflowID(),
		"status":      o.Status(),
		"steps":       o.Steps(),
		"progress":    o.Progress(),
	})
}

// RunWorkflowStep starts one workflow step in the background.
// POST /v1/threads/:thread_id/workflow/steps/:step_id/run
func (h *Handler) RunWorkflowStep(c echo.Context) error {
	o, errResp := h.orchestratorFor(c)
	if errResp != nil {
		return errResp
	}

	stepID := c.Param("step_id")
	if err := o.StartStep(stepID); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"step_id": stepID,
		"status":  "running",
	})
}

// SkipWorkflowStep marks a pending step as skipped.
// POST /v1/threads/:thread_id/workflow/steps/:step_id/skip
func (h *Handler) SkipWorkflowStep(c echo.Context) error {
	o, errResp := h.orchestratorFor(c)
	if errResp != nil {
		return errResp
	}

	stepID := c.Param("step_id")
	if err := o.SkipStep(stepID); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"step_id": stepID,
		"status":  "skipped",
	})
}

// RunWorkflow runs every pending step in order, halting at the first error.
// POST /v1/threads/:thread_id/workflow/run
func (h *Handler) RunWorkflow(c echo.Context) error {
	o, errResp := h.orchestratorFor(c)
	if errResp != nil {
		return errResp
	}

	if err := o.RunAll(c.Request().Context()); err != nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": o.Status(),
			"steps":  o.Steps(),
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": o.Status(),
		"steps":  o.Steps(),
	})
}

// orchestratorFor fetches the orchestrator bound to the request's thread,
// creating one lazily from the default workflow definition.
func (h *Handler) orchestratorFor(c echo.Context) (*workflow.Orchestrator, error) {
	threadID := c.Param("thread_id")
	if o := h.checkpoints.Orchestrator(threadID); o != nil {
		return o, nil
	}

	defs := h.defs.List()
	if len(defs) == 0 {
		return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "no workflows configured"})
	}
	o := workflow.NewOrchestrator(defs[0], threadID, h.service, h.hub)
	h.checkpoints.Bind(threadID, o)
	return o, nil
}
