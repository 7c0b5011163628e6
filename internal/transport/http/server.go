// Package http provides the HTTP server implementation for the orchestrator.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/unfiltered/internal/metrics"
	"github.com/xiaot623/unfiltered/internal/service"
	v1 "github.com/xiaot623/unfiltered/internal/transport/http/v1"
	"github.com/xiaot623/unfiltered/internal/transport/ws"
)

// NewServer creates and configures the public HTTP server.
// This server handles the assistant API, the run journal, metrics and the
// thread stream. stream and recorder may be nil.
func NewServer(svc *service.Service, stream *ws.Server, recorder *metrics.Recorder) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	if stream != nil {
		stream.RegisterRoutes(e)
	}
	if recorder != nil {
		e.GET("/metrics", echo.WrapHandler(recorder.Handler()))
	}

	return e
}
