package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// MockClient is an in-memory Gateway used for offline runs and tests. Runs
// move queued -> requires_action -> completed, choosing a tool from the
// forced tool or from the last user message.
type MockClient struct {
	mu      sync.Mutex
	threads map[string][]string
	runs    map[string]*mockRun
}

type mockRun struct {
	run       Run
	call      *domain.ToolCall
	submitted bool
}

// NewMockClient creates a new mock gateway.
func NewMockClient() *MockClient {
	return &MockClient{
		threads: make(map[string][]string),
		runs:    make(map[string]*mockRun),
	}
}

// Ensure MockClient implements Gateway interface.
var _ Gateway = (*MockClient)(nil)

// CreateAssistant returns a mock assistant id.
func (m *MockClient) CreateAssistant(ctx context.Context, req *CreateAssistantRequest) (string, error) {
	if len(req.Tools) == 0 {
		return "", fmt.Errorf("%w: create assistant: at least one tool is required", domain.ErrGatewayRequest)
	}
	return "asst_mock_" + uuid.New().String()[:8], nil
}

// CreateThread creates an empty in-memory thread.
func (m *MockClient) CreateThread(ctx context.Context) (string, error) {
	id := "thread_mock_" + uuid.New().String()[:8]
	m.mu.Lock()
	m.threads[id] = nil
	m.mu.Unlock()
	return id, nil
}

// AddMessage stores the message on the thread.
func (m *MockClient) AddMessage(ctx context.Context, threadID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs, ok := m.threads[threadID]
	if !ok {
		return fmt.Errorf("%w: add message: thread %s not found", domain.ErrGatewayRequest, threadID)
	}
	m.threads[threadID] = append(msgs, content)
	return nil
}

// CreateRun queues a run on the thread.
func (m *MockClient) CreateRun(ctx context.Context, req *CreateRunRequest) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs, ok := m.threads[req.ThreadID]
	if !ok {
		return nil, fmt.Errorf("%w: create run: thread %s not found", domain.ErrGatewayRequest, req.ThreadID)
	}
	var last string
	if len(msgs) > 0 {
		last = msgs[len(msgs)-1]
	}

	r := &mockRun{run: Run{
		ID:          "run_mock_" + uuid.New().String()[:8],
		ThreadID:    req.ThreadID,
		AssistantID: req.AssistantID,
		Status:      domain.RunStatusQueued,
	}}
	toolName := req.ForcedTool
	if toolName == "" {
		toolName = pickTool(last)
	}
	if toolName != "" {
		r.call = &domain.ToolCall{
			ID:        "call_mock_" + uuid.New().String()[:8],
			ToolName:  toolName,
			Arguments: mockArguments(toolName, last),
		}
	}
	m.runs[r.run.ID] = r
	run := r.run
	return &run, nil
}

// RetrieveRun advances the run one step and returns it.
func (m *MockClient) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	if !ok || r.run.ThreadID != threadID {
		return nil, fmt.Errorf("%w: retrieve run: run %s not found", domain.ErrGatewayRequest, runID)
	}
	switch {
	case r.run.Status == domain.RunStatusQueued && r.call == nil:
		r.run.Status = domain.RunStatusCompleted
	case r.run.Status == domain.RunStatusQueued:
		r.run.Status = domain.RunStatusRequiresAction
		r.run.ToolCalls = []domain.ToolCall{*r.call}
	case r.run.Status == domain.RunStatusInProgress && r.submitted:
		r.run.Status = domain.RunStatusCompleted
	}
	run := r.run
	return &run, nil
}

// SubmitToolOutputs accepts outputs for the pending call.
func (m *MockClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	if !ok || r.run.Status != domain.RunStatusRequiresAction {
		return nil, fmt.Errorf("%w: submit tool outputs: run %s is not waiting for outputs", domain.ErrGatewayRequest, runID)
	}
	if len(outputs) != len(r.run.ToolCalls) {
		return nil, fmt.Errorf("%w: submit tool outputs: expected %d outputs, got %d", domain.ErrGatewayRequest, len(r.run.ToolCalls), len(outputs))
	}
	r.submitted = true
	r.run.ToolCalls = nil
	r.run.Status = domain.RunStatusInProgress
	run := r.run
	return &run, nil
}

// CancelRun marks the run cancelled.
func (m *MockClient) CancelRun(ctx context.Context, threadID, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[runID]; ok {
		r.run.Status = domain.RunStatusCancelled
	}
	return nil
}

// CreateChatCompletion returns a canned response shaped after the prompt.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	content := m.generateMockResponse(req)
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Model:   req.Model,
		Content: content,
		Usage: Usage{
			PromptTokens:     estimateTokens(req),
			CompletionTokens: len(content) / 4,
			TotalTokens:      estimateTokens(req) + len(content)/4,
		},
	}, nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			prompt = req.Messages[i].Content
			break
		}
	}

	switch {
	case strings.Contains(prompt, `"achievements"`):
		return "```json\n" + `{"assessment":"[MOCK] Steady month.","achievements":["Kept a daily plan"],"improvements":["Protect focus time"],"recommendations":["Review priorities weekly"]}` + "\n```"
	case strings.Contains(prompt, "recommendation"):
		return `{"recommendation":"[MOCK] Take the smaller step first","reasoning":["Lower risk","Faster feedback"],"confidence":"medium"}`
	default:
		return "[MOCK] Start with the hardest task before noon.\n[MOCK] Time-box the blocker to thirty minutes.\n"
	}
}

func pickTool(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, domain.ToolAssessProgressAndSuggest), strings.Contains(lower, "progress"):
		return domain.ToolAssessProgressAndSuggest
	case strings.Contains(lower, "bold move"), strings.Contains(lower, "main task"):
		return domain.ToolGenerateDailyInsights
	case strings.Contains(lower, "decision"), strings.Contains(lower, "dilemma"):
		return domain.ToolAnalyzeDecision
	}
	return ""
}

func mockArguments(toolName, message string) json.RawMessage {
	var args any
	switch toolName {
	case domain.ToolGenerateDailyInsights:
		fields := map[string]string{"focus": "", "blocker": "", "bold_move": ""}
		for _, line := range strings.Split(message, "\n") {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "main task", "focus":
				fields["focus"] = strings.TrimSpace(value)
			case "blocker":
				fields["blocker"] = strings.TrimSpace(value)
			case "bold move":
				fields["bold_move"] = strings.TrimSpace(value)
			}
		}
		args = fields
	case domain.ToolAnalyzeDecision:
		args = map[string]string{"dilemma": strings.TrimSpace(message)}
	default:
		args = map[string]any{}
	}
	data, _ := json.Marshal(args)
	return data
}

func estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}
