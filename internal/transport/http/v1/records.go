package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/normalize"
)

// GetRecord reads a caller record.
// GET /v1/callers/:caller_id/records/:key
func (h *Handler) GetRecord(c echo.Context) error {
	record, err := h.service.GetRecord(c.Request().Context(), c.Param("caller_id"), c.Param("key"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// PutRecord replaces a caller record with the JSON array in the body.
// PUT /v1/callers/:caller_id/records/:key
func (h *Handler) PutRecord(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return badRequest(c, "failed to read request body")
	}

	callerID, key := c.Param("caller_id"), c.Param("key")
	value := json.RawMessage(body)
	if err := h.service.PutRecord(c.Request().Context(), callerID, key, value); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, domain.RecordResponse{CallerID: callerID, Key: key, Value: value})
}

// Label returns the display form of a machine value.
// POST /v1/labels
func (h *Handler) Label(c echo.Context) error {
	var req domain.LabelRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	return c.JSON(http.StatusOK, domain.LabelResponse{Label: normalize.DisplayLabel(req.Text)})
}
