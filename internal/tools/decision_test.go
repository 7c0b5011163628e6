package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/unfiltered/internal/domain"
)

func runDecision(t *testing.T, reply string) (*domain.DecisionResult, error) {
	t.Helper()
	r := NewDefaultRegistry(Deps{Completer: &fakeCompleter{reply: reply}})
	out, err := r.Execute(context.Background(), domain.ToolAnalyzeDecision, Invocation{
		CallID:    "call_1",
		Arguments: json.RawMessage(`{"dilemma":"Should I move cities?"}`),
	})
	if err != nil {
		return nil, err
	}
	var got domain.DecisionResult
	require.NoError(t, json.Unmarshal(out, &got))
	return &got, nil
}

func TestAnalyzeDecisionStripsFences(t *testing.T) {
	got, err := runDecision(t, "```json\n{\"recommendation\":\"Stay\",\"reasoning\":[\"Cheaper\",\"Family\"],\"confidence\":\"high\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Stay", got.Recommendation)
	assert.Equal(t, []string{"Cheaper", "Family"}, got.Reasoning)
	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
}

func TestAnalyzeDecisionDefaults(t *testing.T) {
	got, err := runDecision(t, `{}`)
	require.NoError(t, err)
	assert.Equal(t, "No clear recommendation.", got.Recommendation)
	assert.Equal(t, []string{"No reasoning provided."}, got.Reasoning)
	assert.Equal(t, domain.ConfidenceMedium, got.Confidence)

	got, err = runDecision(t, `{"recommendation":"Go","reasoning":"One reason","confidence":"certain"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"One reason"}, got.Reasoning)
	assert.Equal(t, domain.ConfidenceMedium, got.Confidence)
}

func TestAnalyzeDecisionMalformed(t *testing.T) {
	for _, reply := range []string{"I think you should stay.", "null", "```json\n{\"recommendation\":\n```"} {
		_, err := runDecision(t, reply)
		assert.ErrorIs(t, err, domain.ErrMalformedToolOutput, "reply %q", reply)
	}
}

func TestAnalyzeDecisionRequiresDilemma(t *testing.T) {
	completer := &fakeCompleter{reply: `{}`}
	r := NewDefaultRegistry(Deps{Completer: completer})
	_, err := r.Execute(context.Background(), domain.ToolAnalyzeDecision, Invocation{
		CallID:    "call_1",
		Arguments: json.RawMessage(`{"dilemma":"  "}`),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Empty(t, completer.requests)
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "1"}, stringList([]any{" a ", nil, "", float64(1)}))
	assert.Equal(t, []string{}, stringList(map[string]any{}))
	assert.Equal(t, []string{}, stringList(nil))
}
