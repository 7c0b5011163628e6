package domain

import (
	"context"
	"errors"
)

// Errors surfaced by the orchestrator. Callers match them with errors.Is;
// the concrete cause is wrapped alongside.
var (
	ErrConfiguration       = errors.New("configuration error")
	ErrGatewayRequest      = errors.New("gateway request failed")
	ErrMalformedToolOutput = errors.New("malformed tool output")
	ErrNoToolOutput        = errors.New("no tool output")
	ErrUnknownTool         = errors.New("unknown tool")
	ErrRunTimeout          = errors.New("run timed out")
	ErrToolBlocked         = errors.New("tool blocked by policy")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
)

// ErrorCode returns the stable machine code for err, used in journal
// payloads, metrics labels and API error bodies.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnknownTool):
		return "unknown_tool"
	case errors.Is(err, ErrToolBlocked):
		return "tool_blocked"
	case errors.Is(err, ErrMalformedToolOutput):
		return "malformed_tool_output"
	case errors.Is(err, ErrNoToolOutput):
		return "no_tool_output"
	case errors.Is(err, ErrRunTimeout):
		return "run_timeout"
	case errors.Is(err, ErrGatewayRequest):
		return "gateway_error"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "internal_error"
}
