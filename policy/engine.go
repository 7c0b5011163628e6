// Package policy gates tool dispatch with an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the tool policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is the document the policy is evaluated against.
type Input struct {
	ToolName      string
	CallerID      string
	DisabledTools []string
}

func (in Input) document() map[string]interface{} {
	disabled := make([]interface{}, 0, len(in.DisabledTools))
	for _, name := range in.DisabledTools {
		disabled = append(disabled, name)
	}
	return map[string]interface{}{
		"tool_name":      in.ToolName,
		"caller_id":      in.CallerID,
		"disabled_tools": disabled,
	}
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// module must define data.tool_policy.result as {"decision", "reason"}.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.result"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the tool policy.
// Returns: decision (allow, block), reason (optional), error
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input.document()))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]interface{}:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			return "", "", fmt.Errorf("policy result has no decision")
		}
		return decision, reason, nil
	}

	return "", "", fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package tool_policy

default decision = "allow"

default reason = ""

# Tools switched off by configuration
disabled {
	input.tool_name == input.disabled_tools[_]
}

# Progress assessment reads the caller's records
missing_caller {
	input.tool_name == "assess_progress_and_suggest"
	input.caller_id == ""
}

decision = "block" {
	disabled
}

decision = "block" {
	missing_caller
}

reason = "tool disabled by configuration" {
	disabled
}

reason = "caller_id is required to read local records" {
	not disabled
	missing_caller
}

result = {"decision": decision, "reason": reason}
`
