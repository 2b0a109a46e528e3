package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corvid-labs/agentgw/internal/domain"
)

func sseAgentServer(t *testing.T, events []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invoke" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprint(w, ev)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteAgentStreamsEvents(t *testing.T) {
	srv := sseAgentServer(t, []string{
		"event: delta\ndata: {\"text\":\"Hel\"}\n\n",
		"event: delta\ndata: {\"text\":\"lo\"}\n\n",
		"event: tool_call\ndata: {\"tool_call_id\":\"c1\",\"tool_name\":\"web.search\",\"args\":{\"query\":\"x\"}}\n\n",
		"event: tool_result\ndata: {\"tool_call_id\":\"c1\",\"result\":{\"hits\":[]}}\n\n",
		"event: done\ndata: {}\n\n",
	})

	a := NewRemoteAgent("remoteAgent", "Remote", "", srv.URL)
	chunks, err := a.Invoke(context.Background(), domain.Turn{
		ThreadID: "th_1",
		Input:    "hi",
		Messages: []domain.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	got := drain(t, chunks)

	if len(got) != 5 {
		t.Fatalf("expected 5 chunks, got %d: %+v", len(got), got)
	}
	if got[0].Type != domain.ChunkTextDelta || got[0].Text != "Hel" {
		t.Errorf("unexpected first chunk: %+v", got[0])
	}
	if got[2].Type != domain.ChunkToolCallStart || got[2].ToolCallID != "c1" {
		t.Errorf("unexpected tool call chunk: %+v", got[2])
	}
	if got[3].Type != domain.ChunkToolCallResult {
		t.Errorf("unexpected tool result chunk: %+v", got[3])
	}
	if got[4].Type != domain.ChunkFinish {
		t.Errorf("stream should end with finish, got %+v", got[4])
	}
}

func TestRemoteAgentErrorEvent(t *testing.T) {
	srv := sseAgentServer(t, []string{
		"event: error\ndata: {\"code\":\"upstream_error\",\"message\":\"model unavailable\"}\n\n",
	})

	a := NewRemoteAgent("remoteAgent", "Remote", "", srv.URL)
	chunks, err := a.Invoke(context.Background(), domain.Turn{Input: "hi"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	got := drain(t, chunks)

	if len(got) != 1 || got[0].Type != domain.ChunkError {
		t.Fatalf("expected a single error chunk, got %+v", got)
	}
	if got[0].ErrorCode != "upstream_error" || got[0].ErrorMessage != "model unavailable" {
		t.Errorf("unexpected error chunk: %+v", got[0])
	}
}

func TestRemoteAgentSkipsMalformedAndUnknownEvents(t *testing.T) {
	srv := sseAgentServer(t, []string{
		"event: delta\ndata: not-json\n\n",
		"event: heartbeat\ndata: {}\n\n",
		"event: delta\ndata: {\"text\":\"ok\"}\n\n",
		"event: done\ndata: {}\n\n",
	})

	a := NewRemoteAgent("remoteAgent", "Remote", "", srv.URL)
	chunks, err := a.Invoke(context.Background(), domain.Turn{Input: "hi"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	got := drain(t, chunks)

	if len(got) != 2 {
		t.Fatalf("malformed and unknown events should be skipped, got %+v", got)
	}
	if got[0].Text != "ok" || got[1].Type != domain.ChunkFinish {
		t.Errorf("unexpected chunks: %+v", got)
	}
}

func TestRemoteAgentHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	a := NewRemoteAgent("remoteAgent", "Remote", "", srv.URL)
	if _, err := a.Invoke(context.Background(), domain.Turn{Input: "hi"}); err == nil {
		t.Fatal("non-200 response should fail the invoke")
	}
}
