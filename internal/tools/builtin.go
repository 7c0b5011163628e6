package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xiaot623/unfiltered/internal/adapter/llm"
	"github.com/xiaot623/unfiltered/internal/domain"
)

// AssistantInstructions is the system instruction set of the coaching assistant.
const AssistantInstructions = `You are the assistant of a long-term personal coaching app.
Every answer must be a function call through tool_calls; never reply with plain text and never imitate a function.
Use generate_daily_insights when the user shares the focus, blocker and bold move of their day.
Use analyze_decision when the user describes a dilemma or a hard choice.
Use assess_progress_and_suggest when the user asks for a review of their progress.
If the request fits none of these tools, return an empty tool_calls array.`

// Completer issues direct chat completions.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error)
}

// RecordReader reads a caller's locally stored JSON collections.
type RecordReader interface {
	GetRecord(ctx context.Context, callerID, key string) (json.RawMessage, error)
}

// Deps are the collaborators shared by the built-in handlers.
type Deps struct {
	Completer Completer
	Records   RecordReader
	Model     string
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := d.Completer.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model: d.Model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// NewDefaultRegistry returns a registry holding the three coaching tools.
func NewDefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()
	r.MustRegister(Tool{
		Name:        domain.ToolGenerateDailyInsights,
		Description: "Generate concise, actionable insights for the day from the user's focus, blocker and bold move. Return only JSON.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"focus":     map[string]any{"type": "string"},
				"blocker":   map[string]any{"type": "string"},
				"bold_move": map[string]any{"type": "string"},
			},
			"required": []string{"focus", "blocker", "bold_move"},
		},
		Handler: dailyInsightsHandler(deps),
	})
	r.MustRegister(Tool{
		Name:        domain.ToolAnalyzeDecision,
		Description: "Break down a decision and give strategic clarity. Return only JSON.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dilemma": map[string]any{"type": "string"},
			},
			"required": []string{"dilemma"},
		},
		Handler: analyzeDecisionHandler(deps),
	})
	r.MustRegister(Tool{
		Name:        domain.ToolAssessProgressAndSuggest,
		Description: "Assess this month's progress from calendar events, decisions and priorities. Return only JSON.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"calendarEvents": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
				"decisions":      map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
				"priorities":     map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
			},
		},
		Handler: assessProgressHandler(deps),
	})
	return r
}

// decodeArguments unmarshals tool call arguments; absent arguments leave v untouched.
func decodeArguments(inv Invocation, v any) error {
	if len(inv.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(inv.Arguments, v); err != nil {
		return fmt.Errorf("%w: tool call %s arguments: %w", domain.ErrInvalidArgument, inv.CallID, err)
	}
	return nil
}
