// Package agent defines the agent capability interface, the registry, and
// the request resolver.
package agent

import (
	"context"
	"encoding/json"

	"github.com/corvid-labs/agentgw/internal/domain"
)

// Agent is a conversational backend that can execute one turn and stream
// provider-native chunks back. Implementations close the returned channel
// when the invocation ends.
type Agent interface {
	ID() string
	Info() domain.AgentInfo
	Invoke(ctx context.Context, turn domain.Turn) (<-chan domain.Chunk, error)
}

// ToolBinding exposes one tool to a local agent. When Agent is set the tool
// is another registered agent: its chunks are relayed inline with the nested
// agent's id prepended to the provenance chain, and its final text becomes
// the tool result. Otherwise execution goes through the tool registry.
type ToolBinding struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Agent       Agent
}

// AgentTool wraps a registered agent as a tool of another agent.
func AgentTool(a Agent) ToolBinding {
	info := a.Info()
	return ToolBinding{
		Name:        a.ID(),
		Description: "Delegate a question to the " + info.Name + " agent",
		Schema:      json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
		Agent:       a,
	}
}

// send delivers a chunk unless the context is cancelled first.
func send(ctx context.Context, out chan<- domain.Chunk, c domain.Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
