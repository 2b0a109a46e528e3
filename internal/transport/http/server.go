// Package http provides the HTTP server implementation for the gateway.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/corvid-labs/agentgw/internal/hub"
	"github.com/corvid-labs/agentgw/internal/service"
	v1 "github.com/corvid-labs/agentgw/internal/transport/http/v1"
	"github.com/corvid-labs/agentgw/internal/workflow"
)

// NewServer creates and configures the gateway's HTTP server.
func NewServer(svc *service.Service, ckpt *workflow.CheckpointManager, defs *workflow.Defs, h *hub.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, ckpt, defs, h)
	v1Handler.RegisterRoutes(e)

	return e
}
