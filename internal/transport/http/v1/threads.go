package v1

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GetThreadMessages retrieves messages for a thread.
// GET /v1/threads/:thread_id/messages
func (h *Handler) GetThreadMessages(c echo.Context) error {
	threadID := c.Param("thread_id")
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	ctx := c.Request().Context()

	thread, err := h.service.Store().GetThread(ctx, threadID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if thread == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "thread not found"})
	}

	messages, err := h.service.Store().GetMessages(ctx, threadID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"thread_id": threadID,
		"messages":  messages,
	})
}

// RestoreRequest is the body of a checkpoint restore.
type RestoreRequest struct {
	Index int `json:"index"`
}

// RestoreCheckpoint truncates a thread's history so the message at index is
// the last one kept, cancelling any in-flight turns first.
// POST /v1/threads/:thread_id/restore
func (h *Handler) RestoreCheckpoint(c echo.Context) error {
	threadID := c.Param("thread_id")

	var req RestoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	deleted, err := h.checkpoints.Restore(c.Request().Context(), threadID, req.Index)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"thread_id": threadID,
		"index":     req.Index,
		"deleted":   deleted,
	})
}

// ThreadWS upgrades to a WebSocket delivering run updates and workflow
// progress for a thread.
// GET /v1/threads/:thread_id/ws
func (h *Handler) ThreadWS(c echo.Context) error {
	threadID := c.Param("thread_id")

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	conn := h.hub.NewConnection(ws, threadID)
	h.hub.Register(conn)

	// Writer pump
	go func() {
		defer func() {
			h.hub.Unregister(conn)
			conn.Close()
		}()
		for data := range conn.Send {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("WARN: websocket write failed for %s: %v", conn.ID, err)
				return
			}
		}
	}()

	// Reader pump: discard inbound frames, detect close.
	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
