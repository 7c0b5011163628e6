package domain

// RunStartedPayload is the payload for run_started events.
type RunStartedPayload struct {
	ThreadID    string `json:"thread_id"`
	AssistantID string `json:"assistant_id"`
	CallerID    string `json:"caller_id,omitempty"`
	ToolChoice  string `json:"tool_choice"`
}

// RunStatusChangedPayload is the payload for run_status_changed events.
type RunStatusChangedPayload struct {
	From    RunStatus `json:"from"`
	To      RunStatus `json:"to"`
	Attempt int       `json:"attempt"`
}

// ToolDispatchedPayload is the payload for tool_dispatched events.
type ToolDispatchedPayload struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
}

// PolicyDecisionPayload is the payload for policy_decision events.
type PolicyDecisionPayload struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Decision   string `json:"decision"`
	Reason     string `json:"reason,omitempty"`
}

// ToolOutputsSubmittedPayload is the payload for tool_outputs_submitted events.
type ToolOutputsSubmittedPayload struct {
	ToolCallIDs []string `json:"tool_call_ids"`
}

// RunDonePayload is the payload for run_done events.
type RunDonePayload struct {
	Status   RunStatus `json:"status"`
	ToolName string    `json:"tool_name,omitempty"`
	Attempts int       `json:"attempts"`
}

// RunFailedPayload is the payload for run_failed events.
type RunFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
