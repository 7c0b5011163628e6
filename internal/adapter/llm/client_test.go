package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/unfiltered/internal/domain"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/v1", "sk-test", time.Second)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestClientCreateThreadAndMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/threads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"thread_1","object":"thread","created_at":1}`)
	})
	mux.HandleFunc("POST /v1/threads/thread_1/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user", body["role"])
		assert.Equal(t, "hello", body["content"])
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","object":"thread.message","thread_id":"thread_1","role":"user","content":[]}`)
	})
	client := newTestClient(t, mux)

	threadID, err := client.CreateThread(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "thread_1", threadID)
	require.NoError(t, client.AddMessage(context.Background(), threadID, "hello"))
}

func TestClientCreateRunToolChoice(t *testing.T) {
	var choices []any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/threads/thread_1/runs", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "asst_1", body["assistant_id"])
		choices = append(choices, body["tool_choice"])
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"run_1","object":"thread.run","thread_id":"thread_1","assistant_id":"asst_1","status":"queued"}`)
	})
	client := newTestClient(t, mux)

	run, err := client.CreateRun(context.Background(), &CreateRunRequest{ThreadID: "thread_1", AssistantID: "asst_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusQueued, run.Status)

	_, err = client.CreateRun(context.Background(), &CreateRunRequest{ThreadID: "thread_1", AssistantID: "asst_1", ForcedTool: "analyze_decision"})
	require.NoError(t, err)

	require.Len(t, choices, 2)
	assert.Equal(t, "auto", choices[0])
	forced, ok := choices[1].(map[string]any)
	require.True(t, ok, "forced tool_choice must be an object, got %T", choices[1])
	assert.Equal(t, "function", forced["type"])
	assert.Equal(t, map[string]any{"name": "analyze_decision"}, forced["function"])
}

func TestClientRetrieveRunToolCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/threads/thread_1/runs/run_1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"run_1","object":"thread.run","thread_id":"thread_1","assistant_id":"asst_1","status":"requires_action",
			"required_action":{"type":"submit_tool_outputs","submit_tool_outputs":{"tool_calls":[
				{"id":"call_a","type":"function","function":{"name":"analyze_decision","arguments":"{\"dilemma\":\"move?\"}"}},
				{"id":"call_b","type":"function","function":{"name":"assess_progress_and_suggest","arguments":""}}]}}}`)
	})
	client := newTestClient(t, mux)

	run, err := client.RetrieveRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRequiresAction, run.Status)
	require.Len(t, run.ToolCalls, 2)
	assert.Equal(t, "call_a", run.ToolCalls[0].ID)
	assert.Equal(t, "analyze_decision", run.ToolCalls[0].ToolName)
	assert.JSONEq(t, `{"dilemma":"move?"}`, string(run.ToolCalls[0].Arguments))
	assert.Nil(t, run.ToolCalls[1].Arguments)
}

func TestClientSubmitToolOutputs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/threads/thread_1/runs/run_1/submit_tool_outputs", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body struct {
			ToolOutputs []struct {
				ToolCallID string `json:"tool_call_id"`
				Output     string `json:"output"`
			} `json:"tool_outputs"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Len(t, body.ToolOutputs, 1)
		assert.Equal(t, "call_a", body.ToolOutputs[0].ToolCallID)
		assert.Equal(t, `{"ok":true}`, body.ToolOutputs[0].Output)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"run_1","object":"thread.run","thread_id":"thread_1","status":"in_progress"}`)
	})
	client := newTestClient(t, mux)

	run, err := client.SubmitToolOutputs(context.Background(), "thread_1", "run_1", []domain.ToolOutput{
		{ToolCallID: "call_a", Output: `{"ok":true}`},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusInProgress, run.Status)
}

func TestClientCreateChatCompletion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"Insight A\nInsight B\n"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)
	})
	client := newTestClient(t, mux)

	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Insight A\nInsight B\n", resp.Content)
	assert.Equal(t, 3, resp.Usage.TotalTokens)
}

func TestClientAPIErrorIsGatewayError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/threads", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit_error"}}`)
	})
	client := newTestClient(t, mux)

	_, err := client.CreateThread(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGatewayRequest))
	assert.Contains(t, err.Error(), "429")
}

func TestNewGateway(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	gw, err := NewGateway(true, "", "", time.Second, 0, 0, logger)
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, gw)

	gw, err = NewGateway(false, "http://127.0.0.1:1/v1", "sk-test", time.Second, 5, 1, logger)
	require.NoError(t, err)
	assert.IsType(t, &RateLimitedGateway{}, gw)

	_, err = NewGateway(false, "", "", time.Second, 0, 0, logger)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
