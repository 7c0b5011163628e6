// Package llm provides an abstraction over the remote assistant gateway.
package llm

import (
	"context"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// Gateway defines the remote assistant and chat-completion operations the
// orchestrator depends on. Implementations wrap transport failures with
// domain.ErrGatewayRequest.
type Gateway interface {
	// CreateAssistant registers an assistant with the given tools and
	// returns its id.
	CreateAssistant(ctx context.Context, req *CreateAssistantRequest) (string, error)

	CreateThread(ctx context.Context) (string, error)

	// AddMessage appends a user message to a thread.
	AddMessage(ctx context.Context, threadID, content string) error

	CreateRun(ctx context.Context, req *CreateRunRequest) (*Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error)

	// SubmitToolOutputs resolves the pending tool calls of a run in one batch.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*Run, error)

	CancelRun(ctx context.Context, threadID, runID string) error

	// CreateChatCompletion sends a direct, non-streaming completion request.
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// Ensure Client implements Gateway interface.
var _ Gateway = (*Client)(nil)
