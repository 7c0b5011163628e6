// Package tools holds the assistant's function tools and their handlers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xiaot623/unfiltered/internal/adapter/llm"
	"github.com/xiaot623/unfiltered/internal/domain"
)

// Invocation is a single tool call handed to a handler.
type Invocation struct {
	CallID    string
	CallerID  string
	Arguments json.RawMessage
}

// HandlerFunc executes a tool call and returns its JSON output.
type HandlerFunc func(ctx context.Context, inv Invocation) (json.RawMessage, error)

// Tool couples a function definition with its handler.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     HandlerFunc
}

// Registry stores tools keyed by name. Registration order is kept so the
// assistant definition is stable.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a new tool.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("handler is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = &tool
	r.order = append(r.order, tool.Name)
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Has reports whether a tool with the exact name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Execute runs the handler registered for name. Names are matched exactly;
// an unregistered name fails with domain.ErrUnknownTool.
func (r *Registry) Execute(ctx context.Context, name string, inv Invocation) (json.RawMessage, error) {
	r.mu.RLock()
	tool := r.tools[name]
	r.mu.RUnlock()
	if tool == nil {
		return nil, fmt.Errorf("%w: %q (tool call %s)", domain.ErrUnknownTool, name, inv.CallID)
	}
	return tool.Handler(ctx, inv)
}

// Definitions returns the function definitions advertised to the assistant.
func (r *Registry) Definitions() []llm.FunctionTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.FunctionTool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.FunctionTool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return defs
}
