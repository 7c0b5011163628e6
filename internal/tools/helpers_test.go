package tools

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/xiaot623/unfiltered/internal/adapter/llm"
)

type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []*llm.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatCompletionResponse{ID: "c1", Model: req.Model, Content: f.reply}, nil
}

func (f *fakeCompleter) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	msgs := f.requests[len(f.requests)-1].Messages
	return msgs[len(msgs)-1].Content
}

type fakeRecords map[string]string

func (f fakeRecords) GetRecord(ctx context.Context, callerID, key string) (json.RawMessage, error) {
	v, ok := f[callerID+"/"+key]
	if !ok {
		return nil, nil
	}
	return json.RawMessage(v), nil
}
