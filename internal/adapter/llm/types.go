package llm

import "github.com/xiaot623/unfiltered/internal/domain"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest represents a direct chat completion request.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatCompletionResponse carries the text of the first choice.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FunctionTool describes a function the assistant may call.
type FunctionTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// CreateAssistantRequest represents an assistant creation request.
type CreateAssistantRequest struct {
	Name         string         `json:"name"`
	Model        string         `json:"model"`
	Instructions string         `json:"instructions"`
	Tools        []FunctionTool `json:"tools"`
}

// CreateRunRequest starts a run. An empty ForcedTool lets the gateway pick
// the tool itself.
type CreateRunRequest struct {
	ThreadID    string `json:"thread_id"`
	AssistantID string `json:"assistant_id"`
	ForcedTool  string `json:"forced_tool,omitempty"`
}

// Run is the gateway view of an assistant run.
type Run struct {
	ID          string            `json:"id"`
	ThreadID    string            `json:"thread_id"`
	AssistantID string            `json:"assistant_id"`
	Status      domain.RunStatus  `json:"status"`
	ToolCalls   []domain.ToolCall `json:"tool_calls,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
}
