package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// GetRun retrieves a journaled run with its tool calls.
// GET /v1/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.service.GetRun(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// GetRunEvents retrieves events for a run.
// GET /v1/runs/:run_id/events?after=&after_ts=&types=a,b&limit=
func (h *Handler) GetRunEvents(c echo.Context) error {
	runID := c.Param("run_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = val
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		val, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return badRequest(c, "after_ts must be an integer")
		}
		afterTs = val
	}
	var types []string
	if raw := c.QueryParam("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	events, err := h.service.GetRunEvents(c.Request().Context(), runID, domain.EventQuery{
		After:   c.QueryParam("after"),
		AfterTs: afterTs,
		Types:   types,
		Limit:   limit,
	})
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, events)
}
