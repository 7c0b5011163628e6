package domain

import (
	"encoding/json"
	"time"
)

// AssistantRun is one execution of an assistant against a thread.
type AssistantRun struct {
	RunID             string          `json:"run_id"`
	ThreadID          string          `json:"thread_id"`
	AssistantID       string          `json:"assistant_id"`
	CallerID          string          `json:"caller_id,omitempty"`
	ForcedTool        string          `json:"forced_tool,omitempty"`
	Status            RunStatus       `json:"status"`
	RequiredToolCalls []ToolCall      `json:"required_tool_calls,omitempty"`
	StartedAt         time.Time       `json:"started_at"`
	EndedAt           *time.Time      `json:"ended_at,omitempty"`
	Output            json.RawMessage `json:"output,omitempty"`
	Error             json.RawMessage `json:"error,omitempty"`
}

// Event represents a run journal entry.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RunResult is what RunAssistant hands back to the caller.
type RunResult struct {
	RunID    string          `json:"run_id"`
	ThreadID string          `json:"thread_id"`
	Status   RunStatus       `json:"status"`
	ToolName string          `json:"tool_name,omitempty"`
	Output   json.RawMessage `json:"output"`
	Data     map[string]any  `json:"-"`
}

// Decode unmarshals the run output into v.
func (r *RunResult) Decode(v any) error {
	return json.Unmarshal(r.Output, v)
}

// RunUpdate is pushed to stream subscribers of a thread.
type RunUpdate struct {
	Type     string    `json:"type"`
	Ts       int64     `json:"ts"`
	RunID    string    `json:"run_id"`
	ThreadID string    `json:"thread_id"`
	Status   RunStatus `json:"status,omitempty"`
	ToolName string    `json:"tool_name,omitempty"`
	Error    string    `json:"error,omitempty"`
}
