package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	require.NoError(t, err)
	return engine
}

func TestDefaultPolicy(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    Input
		decision string
		reason   string
	}{
		{
			name:     "allowed",
			input:    Input{ToolName: "analyze_decision", CallerID: "u1"},
			decision: DecisionAllow,
		},
		{
			name:     "disabled tool",
			input:    Input{ToolName: "analyze_decision", DisabledTools: []string{"generate_daily_insights", "analyze_decision"}},
			decision: DecisionBlock,
			reason:   "tool disabled by configuration",
		},
		{
			name:     "progress without caller",
			input:    Input{ToolName: "assess_progress_and_suggest"},
			decision: DecisionBlock,
			reason:   "caller_id is required to read local records",
		},
		{
			name:     "progress with caller",
			input:    Input{ToolName: "assess_progress_and_suggest", CallerID: "u1"},
			decision: DecisionAllow,
		},
		{
			name:     "disabled wins over missing caller",
			input:    Input{ToolName: "assess_progress_and_suggest", DisabledTools: []string{"assess_progress_and_suggest"}},
			decision: DecisionBlock,
			reason:   "tool disabled by configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, reason, err := engine.Evaluate(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.decision, decision)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package tool_policy\nresult = {")
	assert.Error(t, err)
}

func TestEvaluateStringResult(t *testing.T) {
	engine, err := NewEngine(context.Background(), `
package tool_policy

default result = "allow"
`)
	require.NoError(t, err)

	decision, reason, err := engine.Evaluate(context.Background(), Input{ToolName: "x"})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
	assert.Empty(t, reason)
}
