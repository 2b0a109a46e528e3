package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/corvid-labs/agentgw/internal/adapter/llm"
	"github.com/corvid-labs/agentgw/internal/domain"
	"github.com/corvid-labs/agentgw/internal/tools"
)

func newEchoRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	err := reg.Register("echo.tool", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"echoed":true}`), nil
	})
	if err != nil {
		t.Fatalf("failed to register tool: %v", err)
	}
	return reg
}

func drain(t *testing.T, ch <-chan domain.Chunk) []domain.Chunk {
	t.Helper()
	var out []domain.Chunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestLocalAgentToolLoop(t *testing.T) {
	a := NewLocalAgent(LocalAgentConfig{
		ID:    "testAgent",
		Model: "gpt-4o-mini",
		LLM:   llm.NewMockClient(),
		Tools: newEchoRegistry(t),
		Bindings: []ToolBinding{
			{Name: "echo.tool", Description: "echo", Schema: json.RawMessage(`{"type":"object"}`)},
		},
	})

	chunks, err := a.Invoke(context.Background(), domain.Turn{
		AgentID:  "testAgent",
		Messages: []domain.ChatMessage{{Role: "user", Content: "run the tool"}},
		MaxSteps: 5,
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	got := drain(t, chunks)

	var types []domain.ChunkType
	for _, c := range got {
		types = append(types, c.Type)
	}

	// Mock requests a tool call first, then answers in text once the tool
	// result is in the conversation.
	if len(got) < 4 {
		t.Fatalf("expected call, result, text and finish, got %v", types)
	}
	if got[0].Type != domain.ChunkToolCallStart || got[0].ToolName != "echo.tool" {
		t.Errorf("first chunk should start the tool call, got %+v", got[0])
	}
	if got[1].Type != domain.ChunkToolCallResult || string(got[1].Result) != `{"echoed":true}` {
		t.Errorf("second chunk should carry the result, got %+v", got[1])
	}

	var text strings.Builder
	for _, c := range got {
		if c.Type == domain.ChunkTextDelta {
			text.WriteString(c.Text)
		}
	}
	if !strings.Contains(text.String(), "[MOCK]") {
		t.Errorf("expected mock text answer, got %q", text.String())
	}
	if got[len(got)-1].Type != domain.ChunkFinish {
		t.Errorf("stream should end with finish, got %+v", got[len(got)-1])
	}
}

func TestLocalAgentUnknownToolSurfacesError(t *testing.T) {
	// The mock always requests the first declared tool; binding a name the
	// executor registry does not know forces the failure path.
	a := NewLocalAgent(LocalAgentConfig{
		ID:    "testAgent",
		Model: "gpt-4o-mini",
		LLM:   llm.NewMockClient(),
		Tools: tools.NewRegistry(),
		Bindings: []ToolBinding{
			{Name: "missing.tool", Schema: json.RawMessage(`{"type":"object"}`)},
		},
	})

	chunks, err := a.Invoke(context.Background(), domain.Turn{
		AgentID:  "testAgent",
		Messages: []domain.ChatMessage{{Role: "user", Content: "go"}},
		MaxSteps: 5,
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	got := drain(t, chunks)

	var result domain.Chunk
	for _, c := range got {
		if c.Type == domain.ChunkToolCallResult {
			result = c
		}
	}
	if result.Type == "" {
		t.Fatal("expected a tool result chunk")
	}
	var payload map[string]string
	if err := json.Unmarshal(result.Result, &payload); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if payload["error"] == "" {
		t.Errorf("tool failure should surface as an error result, got %v", payload)
	}
	if got[len(got)-1].Type != domain.ChunkFinish {
		t.Errorf("stream should still finish, got %+v", got[len(got)-1])
	}
}

func TestLocalAgentNestedAgentChain(t *testing.T) {
	client := llm.NewMockClient()
	reg := newEchoRegistry(t)

	inner := NewLocalAgent(LocalAgentConfig{
		ID:    "innerAgent",
		Model: "gpt-4o-mini",
		LLM:   client,
	})
	outer := NewLocalAgent(LocalAgentConfig{
		ID:       "outerAgent",
		Model:    "gpt-4o",
		LLM:      client,
		Tools:    reg,
		Bindings: []ToolBinding{AgentTool(inner)},
	})

	chunks, err := outer.Invoke(context.Background(), domain.Turn{
		AgentID:  "outerAgent",
		Messages: []domain.ChatMessage{{Role: "user", Content: "ask the inner agent"}},
		MaxSteps: 5,
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	got := drain(t, chunks)

	var nested, outerResult *domain.Chunk
	for i := range got {
		c := &got[i]
		if c.Type == domain.ChunkTextDelta && len(c.Agents) > 0 {
			nested = c
		}
		if c.Type == domain.ChunkToolCallResult && len(c.Agents) == 0 {
			outerResult = c
		}
	}

	if nested == nil {
		t.Fatal("nested agent text should relay through the outer stream")
	}
	if nested.Agents[0] != "innerAgent" {
		t.Errorf("nested chunk should carry the inner agent's id, got %v", nested.Agents)
	}

	if outerResult == nil {
		t.Fatal("outer stream should carry the tool result")
	}
	var payload map[string]string
	if err := json.Unmarshal(outerResult.Result, &payload); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if !strings.Contains(payload["text"], "[MOCK]") {
		t.Errorf("outer result should hold the inner agent's text, got %v", payload)
	}
}
