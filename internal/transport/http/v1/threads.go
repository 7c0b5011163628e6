package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// CreateAssistant registers the coaching assistant on the gateway.
// POST /v1/assistants
func (h *Handler) CreateAssistant(c echo.Context) error {
	var req domain.CreateAssistantRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	id, err := h.service.CreateAssistant(c.Request().Context(), req.Name)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, domain.CreateAssistantResponse{AssistantID: id})
}

// CreateThread opens a conversation thread.
// POST /v1/threads
func (h *Handler) CreateThread(c echo.Context) error {
	id, err := h.service.CreateThread(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, domain.CreateThreadResponse{ThreadID: id})
}

// AddMessage appends a user message to a thread.
// POST /v1/threads/:thread_id/messages
func (h *Handler) AddMessage(c echo.Context) error {
	var req domain.AddMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.service.AddMessage(c.Request().Context(), c.Param("thread_id"), req.Content); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RunAssistant runs the assistant on a thread and waits for the result.
// POST /v1/threads/:thread_id/runs
func (h *Handler) RunAssistant(c echo.Context) error {
	var req domain.RunAssistantRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.ThreadID = c.Param("thread_id")

	result, err := h.service.RunAssistant(c.Request().Context(), req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
