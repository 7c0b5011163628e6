package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Client is the OpenAI assistants gateway client.
type Client struct {
	api *openai.Client
}

// NewClient creates a new gateway client. An empty apiKey is a
// configuration error.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gateway API key is not configured", domain.ErrConfiguration)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{
		Timeout: timeout,
	}
	return &Client{api: openai.NewClientWithConfig(cfg)}, nil
}

// CreateAssistant registers an assistant with function tools.
func (c *Client) CreateAssistant(ctx context.Context, req *CreateAssistantRequest) (string, error) {
	tools := make([]openai.AssistantTool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	name := req.Name
	instructions := req.Instructions
	assistant, err := c.api.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        req.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        tools,
	})
	if err != nil {
		return "", gatewayError("create assistant", err)
	}
	return assistant.ID, nil
}

// CreateThread creates an empty conversation thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", gatewayError("create thread", err)
	}
	return thread.ID, nil
}

// AddMessage appends a user message to a thread.
func (c *Client) AddMessage(ctx context.Context, threadID, content string) error {
	_, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return gatewayError("add message", err)
	}
	return nil
}

// CreateRun starts a run. The tool choice is forced when req.ForcedTool is set.
func (c *Client) CreateRun(ctx context.Context, req *CreateRunRequest) (*Run, error) {
	runReq := openai.RunRequest{
		AssistantID: req.AssistantID,
		ToolChoice:  "auto",
	}
	if req.ForcedTool != "" {
		runReq.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.ForcedTool},
		}
	}
	run, err := c.api.CreateRun(ctx, req.ThreadID, runReq)
	if err != nil {
		return nil, gatewayError("create run", err)
	}
	return convertRun(run), nil
}

// RetrieveRun fetches the current state of a run.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run, err := c.api.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return nil, gatewayError("retrieve run", err)
	}
	return convertRun(run), nil
}

// SubmitToolOutputs resolves pending tool calls.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*Run, error) {
	toolOutputs := make([]openai.ToolOutput, 0, len(outputs))
	for _, o := range outputs {
		toolOutputs = append(toolOutputs, openai.ToolOutput{
			ToolCallID: o.ToolCallID,
			Output:     o.Output,
		})
	}
	run, err := c.api.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: toolOutputs,
	})
	if err != nil {
		return nil, gatewayError("submit tool outputs", err)
	}
	return convertRun(run), nil
}

// CancelRun asks the gateway to stop a run.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := c.api.CancelRun(ctx, threadID, runID); err != nil {
		return gatewayError("cancel run", err)
	}
	return nil
}

// CreateChatCompletion sends a chat completion request (non-streaming).
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	})
	if err != nil {
		return nil, gatewayError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat completion: response has no choices", domain.ErrGatewayRequest)
	}
	return &ChatCompletionResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func convertRun(run openai.Run) *Run {
	out := &Run{
		ID:          run.ID,
		ThreadID:    run.ThreadID,
		AssistantID: run.AssistantID,
		Status:      domain.RunStatus(run.Status),
	}
	if run.LastError != nil {
		out.LastError = run.LastError.Message
	}
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			call := domain.ToolCall{
				ID:       tc.ID,
				ToolName: tc.Function.Name,
			}
			if args := strings.TrimSpace(tc.Function.Arguments); args != "" {
				call.Arguments = json.RawMessage(args)
			}
			out.ToolCalls = append(out.ToolCalls, call)
		}
	}
	return out
}

func gatewayError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: LLM API error [%d]: %s (type: %s)", domain.ErrGatewayRequest, op, apiErr.HTTPStatusCode, apiErr.Message, apiErr.Type)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrGatewayRequest, op, err)
}
