package v1

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corvid-labs/agentgw/internal/agent"
	"github.com/corvid-labs/agentgw/internal/domain"
	"github.com/corvid-labs/agentgw/internal/stream"
)

// ChatStream executes one chat turn and streams parts back as server-sent
// events. Resolution failures are returned as JSON errors before the stream
// opens; anything later surfaces in-stream.
// POST /v1/chat/stream
func (h *Handler) ChatStream(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	// The SSE writer is created lazily on first part so resolution errors can
	// still produce a proper HTTP status.
	var writer *stream.SSEWriter
	sink := func(p domain.Part) error {
		if writer == nil {
			writer = stream.NewSSEWriter(c.Response())
		}
		return writer.WritePart(p)
	}

	_, err := h.service.StreamTurn(c.Request().Context(), req, sink)
	if err != nil && writer == nil {
		var invalidAgent *agent.InvalidAgentError
		switch {
		case errors.Is(err, agent.ErrMissingMessages):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.As(err, &invalidAgent):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	if err != nil {
		// Stream already started; the error part was delivered in-band.
		log.Printf("WARN: chat stream ended with error: %v", err)
	}
	return nil
}
