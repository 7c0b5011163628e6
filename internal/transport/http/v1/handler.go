// Package v1 provides the public HTTP handlers of the orchestrator.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers public routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Assistant API
	e.POST("/v1/assistants", h.CreateAssistant)
	e.POST("/v1/threads", h.CreateThread)
	e.POST("/v1/threads/:thread_id/messages", h.AddMessage)
	e.POST("/v1/threads/:thread_id/runs", h.RunAssistant)

	// Run journal
	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/events", h.GetRunEvents)

	// Caller records
	e.GET("/v1/callers/:caller_id/records/:key", h.GetRecord)
	e.PUT("/v1/callers/:caller_id/records/:key", h.PutRecord)

	e.POST("/v1/labels", h.Label)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrToolBlocked):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownTool):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrGatewayRequest),
		errors.Is(err, domain.ErrMalformedToolOutput),
		errors.Is(err, domain.ErrNoToolOutput):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrRunTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(statusFor(err), domain.ErrorResponse{
		Error: domain.ErrorDetail{
			Code:    domain.ErrorCode(err),
			Message: err.Error(),
		},
	})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, domain.ErrorResponse{
		Error: domain.ErrorDetail{Code: "invalid_argument", Message: message},
	})
}
