package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine gating tool execution inside agents.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.agent_policy.decision"),
		rego.Module("agent_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the tool policy before an agent executes a tool.
// Input is a map with keys: tool_name, args, agent_id.
// Returns: decision (allow, require_approval, block), reason (optional), error
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy is expected to define a default decision.
		return "allow", "default", nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, "", nil
	}

	return "allow", "unexpected return type", nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package agent_policy

default decision = "allow"

# Block shell-level execution outright
decision = "block" {
	input.tool_name == "system.exec"
}

# Itinerary writes above the free tier need a human in the loop
decision = "require_approval" {
	input.tool_name == "itinerary.save"
	input.args.paid == true
}
`
