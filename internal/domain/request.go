package domain

import "encoding/json"

// RunAssistantRequest starts an assistant run on an existing thread.
type RunAssistantRequest struct {
	AssistantID string `json:"assistant_id"`
	ThreadID    string `json:"thread_id"`
	CallerID    string `json:"caller_id"`
	Tool        string `json:"tool,omitempty"`
}

// CreateAssistantRequest creates a coaching assistant on the gateway.
type CreateAssistantRequest struct {
	Name string `json:"name"`
}

// CreateAssistantResponse carries the new assistant id.
type CreateAssistantResponse struct {
	AssistantID string `json:"assistant_id"`
}

// CreateThreadResponse carries the new thread id.
type CreateThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

// AddMessageRequest appends a user message to a thread.
type AddMessageRequest struct {
	Content string `json:"content"`
}

// RecordResponse is returned when reading a caller record.
type RecordResponse struct {
	CallerID string          `json:"caller_id"`
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
}

// LabelRequest asks for the display form of a machine value.
type LabelRequest struct {
	Text string `json:"text"`
}

// LabelResponse carries the display label.
type LabelResponse struct {
	Label string `json:"label"`
}

// EventQuery selects journal events of a run. After is the event_id of the
// last event already seen; events are returned strictly after it in journal
// order. AfterTs drops events at or before a Unix millisecond timestamp.
type EventQuery struct {
	After   string
	AfterTs int64
	Types   []string
	Limit   int
}

// EventsResponse is the response for listing run events. NextCursor is the
// value to pass as after for the next page when HasMore is set.
type EventsResponse struct {
	RunID      string  `json:"run_id"`
	Events     []Event `json:"events"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// ErrorResponse is the JSON error body of the HTTP API.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunResponse is the response for reading a journaled run.
type RunResponse struct {
	Run       *AssistantRun    `json:"run"`
	ToolCalls []ToolCallRecord `json:"tool_calls"`
}
