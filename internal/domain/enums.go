// Package domain defines the core domain models for the assistant orchestrator.
package domain

// RunStatus is the gateway-reported status of an assistant run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// IsActive reports whether the run is still being worked on by the gateway
// and must be polled again.
func (s RunStatus) IsActive() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction, RunStatusCancelling:
		return true
	}
	return false
}

// EventType represents the type of a run journal event.
type EventType string

const (
	EventTypeRunStarted       EventType = "run_started"
	EventTypeRunStatusChanged EventType = "run_status_changed"
	EventTypeRunDone          EventType = "run_done"
	EventTypeRunFailed        EventType = "run_failed"

	// Tool events
	EventTypeToolDispatched       EventType = "tool_dispatched"
	EventTypePolicyDecision       EventType = "policy_decision"
	EventTypeToolOutputsSubmitted EventType = "tool_outputs_submitted"
)

// Confidence is the confidence level attached to a decision recommendation.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Record keys read by the progress assessment tool.
const (
	RecordCalendarEvents  = "calendarEvents"
	RecordDecisionHistory = "decisionHistory"
	RecordPriorities      = "priorities"
)

// Tool names registered with the assistant.
const (
	ToolGenerateDailyInsights    = "generate_daily_insights"
	ToolAnalyzeDecision          = "analyze_decision"
	ToolAssessProgressAndSuggest = "assess_progress_and_suggest"
)
