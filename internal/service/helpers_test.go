package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xiaot623/unfiltered/internal/adapter/llm"
	"github.com/xiaot623/unfiltered/internal/config"
	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/repository"
	"github.com/xiaot623/unfiltered/internal/tools"
	"github.com/xiaot623/unfiltered/policy"
	"github.com/xiaot623/unfiltered/tests/helpers"
)

// fakeClock advances only when a delay is requested.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	delays []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.delays = append(c.delays, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// fakeGateway replays scripted run states, one per RetrieveRun. The last
// state repeats once the script is exhausted.
type fakeGateway struct {
	mu          sync.Mutex
	script      []llm.Run
	retrieves   int
	createReqs  []*llm.CreateRunRequest
	submissions [][]domain.ToolOutput
	messages    []string
	assistants  []*llm.CreateAssistantRequest
	cancelled   bool
	completion  string
	retrieveErr error
	submitErr   error
}

func (g *fakeGateway) CreateAssistant(ctx context.Context, req *llm.CreateAssistantRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.assistants = append(g.assistants, req)
	return "asst_1", nil
}

func (g *fakeGateway) CreateThread(ctx context.Context) (string, error) {
	return "thread_1", nil
}

func (g *fakeGateway) AddMessage(ctx context.Context, threadID, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = append(g.messages, content)
	return nil
}

func (g *fakeGateway) CreateRun(ctx context.Context, req *llm.CreateRunRequest) (*llm.Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createReqs = append(g.createReqs, req)
	return &llm.Run{ID: "run_1", ThreadID: req.ThreadID, AssistantID: req.AssistantID, Status: domain.RunStatusQueued}, nil
}

func (g *fakeGateway) RetrieveRun(ctx context.Context, threadID, runID string) (*llm.Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	i := g.retrieves
	if i >= len(g.script) {
		i = len(g.script) - 1
	}
	g.retrieves++
	run := g.script[i]
	run.ID = runID
	run.ThreadID = threadID
	return &run, nil
}

func (g *fakeGateway) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*llm.Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submissions = append(g.submissions, outputs)
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	return &llm.Run{ID: runID, ThreadID: threadID, Status: domain.RunStatusInProgress}, nil
}

func (g *fakeGateway) CancelRun(ctx context.Context, threadID, runID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = true
	return nil
}

func (g *fakeGateway) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return &llm.ChatCompletionResponse{ID: "c1", Model: req.Model, Content: g.completion}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []domain.RunUpdate
}

func (n *recordingNotifier) Publish(threadID string, update domain.RunUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
}

func requiresAction(calls ...domain.ToolCall) llm.Run {
	return llm.Run{Status: domain.RunStatusRequiresAction, ToolCalls: calls}
}

func status(s domain.RunStatus) llm.Run {
	return llm.Run{Status: s}
}

func call(id, tool, args string) domain.ToolCall {
	c := domain.ToolCall{ID: id, ToolName: tool}
	if args != "" {
		c.Arguments = json.RawMessage(args)
	}
	return c
}

type testEnv struct {
	svc      *Service
	gateway  *fakeGateway
	clock    *fakeClock
	store    *repository.SQLiteStore
	cfg      *config.Config
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, gateway *fakeGateway, registry *tools.Registry) *testEnv {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	if registry == nil {
		registry = tools.NewDefaultRegistry(tools.Deps{Completer: gateway, Records: store, Model: "gpt-4o"})
	}
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	cfg := config.Default()
	cfg.Mode = config.ModeMock
	cfg.MaxPollAttempts = 10
	cfg.RunTimeout = time.Minute
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	svc := New(store, gateway, registry, engine, cfg,
		WithClock(clock),
		WithNotifier(notifier),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return &testEnv{svc: svc, gateway: gateway, clock: clock, store: store, cfg: cfg, notifier: notifier}
}
