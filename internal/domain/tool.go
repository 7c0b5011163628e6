package domain

import (
	"encoding/json"
	"time"
)

// ToolCall is a gateway request to execute a named local capability.
type ToolCall struct {
	ID        string          `json:"id"`
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolOutput is the client-supplied result of one tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// DailyInsightsResult is produced by generate_daily_insights.
type DailyInsightsResult struct {
	Insights []string `json:"insights"`
	Focus    string   `json:"focus"`
	Blocker  string   `json:"blocker"`
	BoldMove string   `json:"bold_move"`
}

// DecisionResult is produced by analyze_decision.
type DecisionResult struct {
	Recommendation string     `json:"recommendation"`
	Reasoning      []string   `json:"reasoning"`
	Confidence     Confidence `json:"confidence"`
}

// ProgressAssessmentResult is produced by assess_progress_and_suggest.
type ProgressAssessmentResult struct {
	Assessment      string   `json:"assessment"`
	Achievements    []string `json:"achievements"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

// ToolCallStatus is the local dispatch state of a tool call.
type ToolCallStatus string

const (
	ToolCallStatusDispatched ToolCallStatus = "dispatched"
	ToolCallStatusSucceeded  ToolCallStatus = "succeeded"
	ToolCallStatusFailed     ToolCallStatus = "failed"
	ToolCallStatusBlocked    ToolCallStatus = "blocked"
)

// ToolCallRecord is the journaled form of a dispatched tool call.
type ToolCallRecord struct {
	ToolCallID  string          `json:"tool_call_id"`
	RunID       string          `json:"run_id"`
	ToolName    string          `json:"tool_name"`
	Status      ToolCallStatus  `json:"status"`
	Args        json.RawMessage `json:"args,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       json.RawMessage `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
