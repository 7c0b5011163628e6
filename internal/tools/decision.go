package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/normalize"
)

const (
	decisionSystemPrompt = "You are a senior decision strategist. You give clear, confident and structured decisions."

	defaultRecommendation = "No clear recommendation."
	defaultReasoning      = "No reasoning provided."
)

type analyzeDecisionArgs struct {
	Dilemma string `json:"dilemma"`
}

func analyzeDecisionHandler(d Deps) HandlerFunc {
	return func(ctx context.Context, inv Invocation) (json.RawMessage, error) {
		var args analyzeDecisionArgs
		if err := decodeArguments(inv, &args); err != nil {
			return nil, err
		}
		if strings.TrimSpace(args.Dilemma) == "" {
			return nil, fmt.Errorf("%w: tool call %s: dilemma is required", domain.ErrInvalidArgument, inv.CallID)
		}

		text, err := d.complete(ctx, decisionSystemPrompt, buildDecisionPrompt(args.Dilemma))
		if err != nil {
			return nil, err
		}

		result, err := parseDecision(text)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}
}

func buildDecisionPrompt(dilemma string) string {
	return fmt.Sprintf(`I need help making a decision:
%s

Analyze the dilemma in detail, weigh pros and cons, and give a clear recommendation with a confidence level (high, medium, low).
Respond ONLY with raw JSON, without markdown, code fences or explanation.
Return an object with: recommendation, reasoning (an array of strings) and confidence.`, dilemma)
}

// parseDecision strictly parses the completion and fills defaults for
// missing fields.
func parseDecision(text string) (*domain.DecisionResult, error) {
	var obj map[string]any
	if err := normalize.DecodeStrict(text, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: decision output is not a JSON object", domain.ErrMalformedToolOutput)
	}

	result := &domain.DecisionResult{
		Recommendation: defaultRecommendation,
		Reasoning:      stringList(obj["reasoning"]),
		Confidence:     parseConfidence(obj["confidence"]),
	}
	if rec, ok := obj["recommendation"].(string); ok && strings.TrimSpace(rec) != "" {
		result.Recommendation = strings.TrimSpace(rec)
	}
	if len(result.Reasoning) == 0 {
		result.Reasoning = []string{defaultReasoning}
	}
	return result, nil
}

func parseConfidence(v any) domain.Confidence {
	s, _ := v.(string)
	switch c := domain.Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow:
		return c
	}
	return domain.ConfidenceMedium
}

// stringList accepts a JSON array or a single string and returns the
// non-blank entries. Anything else yields an empty list.
func stringList(v any) []string {
	out := make([]string, 0)
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range val {
			var s string
			switch it := item.(type) {
			case string:
				s = it
			case nil:
				continue
			default:
				s = fmt.Sprint(it)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
