package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/corvid-labs/agentgw/internal/adapter/llm"
	"github.com/corvid-labs/agentgw/internal/agent"
	"github.com/corvid-labs/agentgw/internal/config"
	"github.com/corvid-labs/agentgw/internal/domain"
	"github.com/corvid-labs/agentgw/internal/tools"
	"github.com/corvid-labs/agentgw/tests/helpers"
)

type slowAgent struct {
	id      string
	started chan struct{}
}

func (a *slowAgent) ID() string             { return a.id }
func (a *slowAgent) Info() domain.AgentInfo { return domain.AgentInfo{AgentID: a.id} }
func (a *slowAgent) Invoke(ctx context.Context, turn domain.Turn) (<-chan domain.Chunk, error) {
	out := make(chan domain.Chunk)
	go func() {
		defer close(out)
		select {
		case out <- domain.Chunk{Type: domain.ChunkTextDelta, Text: "partial"}:
		case <-ctx.Done():
			return
		}
		close(a.started)
		// Never finishes on its own; only the context ends it.
		<-ctx.Done()
	}()
	return out, nil
}

type dataAgent struct {
	id string
}

func (a *dataAgent) ID() string             { return a.id }
func (a *dataAgent) Info() domain.AgentInfo { return domain.AgentInfo{AgentID: a.id} }
func (a *dataAgent) Invoke(ctx context.Context, turn domain.Turn) (<-chan domain.Chunk, error) {
	out := make(chan domain.Chunk, 3)
	out <- domain.Chunk{Type: domain.ChunkTextDelta, Text: "charting"}
	out <- domain.Chunk{Type: domain.ChunkData, DataTag: "chart", Data: json.RawMessage(`{"x":1}`)}
	out <- domain.Chunk{Type: domain.ChunkFinish}
	close(out)
	return out, nil
}

func newTestService(t *testing.T, agents ...agent.Agent) *Service {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	registry := agent.NewRegistry()
	for _, a := range agents {
		if err := registry.Register(a); err != nil {
			t.Fatalf("failed to register agent: %v", err)
		}
	}
	return NewService(db, registry, nil, &config.Config{})
}

func mockAgent(id string) agent.Agent {
	return agent.NewLocalAgent(agent.LocalAgentConfig{
		ID:    id,
		Name:  id,
		Model: "gpt-4o-mini",
		LLM:   llm.NewMockClient(),
		Tools: tools.NewRegistry(),
	})
}

func TestStreamTurnCompletes(t *testing.T) {
	svc := newTestService(t, mockAgent("mockAgent"))

	var parts []domain.Part
	run, err := svc.StreamTurn(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: "user", Content: "hello"}},
		ThreadID: "th_1",
	}, func(p domain.Part) error {
		parts = append(parts, p)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}
	if run.Status != domain.RunStatusDone {
		t.Errorf("expected done, got %s", run.Status)
	}
	if len(parts) == 0 || parts[len(parts)-1].Type != domain.PartTypeFinish {
		t.Errorf("stream should end with finish, got %v", parts)
	}

	msgs, err := svc.Store().GetMessages(context.Background(), "th_1", 0)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Role != "assistant" {
		t.Errorf("turn should persist user and assistant messages, got %v", msgs)
	}
}

func TestStreamTurnResolverErrors(t *testing.T) {
	svc := newTestService(t, mockAgent("mockAgent"))

	_, err := svc.StreamTurn(context.Background(), domain.ChatRequest{}, func(domain.Part) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "messages required") {
		t.Errorf("expected missing-messages error, got %v", err)
	}

	_, err = svc.StreamTurn(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: "user", Content: "hi"}},
		AgentID:  "ghost",
	}, func(domain.Part) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "Invalid or missing agentId") {
		t.Errorf("expected invalid-agent error, got %v", err)
	}
}

func TestCancelThreadInterruptsStream(t *testing.T) {
	slow := &slowAgent{id: "slowAgent", started: make(chan struct{})}
	svc := newTestService(t, slow)

	go func() {
		<-slow.started
		svc.CancelThread("th_1")
	}()

	var parts []domain.Part
	run, err := svc.StreamTurn(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: "user", Content: "hang"}},
		ThreadID: "th_1",
	}, func(p domain.Part) error {
		parts = append(parts, p)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}
	if run.Status != domain.RunStatusCancelled {
		t.Errorf("expected cancelled, got %s", run.Status)
	}

	last := parts[len(parts)-1]
	if last.Type != domain.PartTypeFinish || last.Reason != domain.FinishReasonCancelled {
		t.Errorf("cancelled stream should finish with reason cancelled, got %+v", last)
	}
}

func TestRunAgentReportsText(t *testing.T) {
	svc := newTestService(t, mockAgent("mockAgent"))

	var text strings.Builder
	err := svc.RunAgent(context.Background(), "th_wf", "mockAgent", "do the step", func(p domain.Part) {
		text.WriteString(p.Text)
	})
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}
	if !strings.Contains(text.String(), "[MOCK]") {
		t.Errorf("expected streamed text, got %q", text.String())
	}
}

func TestRunAgentForwardsDataParts(t *testing.T) {
	svc := newTestService(t, &dataAgent{id: "dataAgent"})

	var parts []domain.Part
	err := svc.RunAgent(context.Background(), "th_wf", "dataAgent", "do the step", func(p domain.Part) {
		parts = append(parts, p)
	})
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}

	var sawText, sawData bool
	for _, p := range parts {
		switch p.Type {
		case domain.PartTypeText:
			sawText = true
		case domain.DataPartType("chart"):
			sawData = true
			if !strings.Contains(string(p.Data), `"x":1`) {
				t.Errorf("unexpected data payload: %s", p.Data)
			}
		case domain.PartTypeFinish:
			t.Errorf("finish parts should not reach the progress callback")
		}
	}
	if !sawText || !sawData {
		t.Errorf("expected text and data parts, got %v", parts)
	}
}

func TestStreamTurnTimesOut(t *testing.T) {
	slow := &slowAgent{id: "slowAgent", started: make(chan struct{})}
	db := helpers.NewTestSQLiteStore(t)
	registry := agent.NewRegistry()
	if err := registry.Register(slow); err != nil {
		t.Fatalf("failed to register agent: %v", err)
	}
	svc := NewService(db, registry, nil, &config.Config{AgentTimeout: 50 * time.Millisecond})

	run, err := svc.StreamTurn(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: "user", Content: "hang"}},
		ThreadID: "th_1",
	}, func(domain.Part) error { return nil })
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}
	if run.Status != domain.RunStatusCancelled {
		t.Errorf("timeout should cancel the run, got %s", run.Status)
	}
}
