package stream

import (
	"encoding/json"
	"testing"

	"github.com/corvid-labs/agentgw/internal/domain"
)

func collect(parts *[]domain.Part) Sink {
	return func(p domain.Part) error {
		*parts = append(*parts, p)
		return nil
	}
}

func TestTranscoderTextSegments(t *testing.T) {
	var parts []domain.Part
	tr := NewTranscoder("", collect(&parts))

	feed := []domain.Chunk{
		{Type: domain.ChunkTextDelta, Text: "Hel"},
		{Type: domain.ChunkTextDelta, Text: "lo"},
		{Type: domain.ChunkToolCallStart, ToolCallID: "c1", ToolName: "web.search", Args: json.RawMessage(`{"query":"x"}`)},
		{Type: domain.ChunkToolCallResult, ToolCallID: "c1", Result: json.RawMessage(`{"hits":[]}`)},
		{Type: domain.ChunkTextDelta, Text: "done"},
		{Type: domain.ChunkFinish},
	}
	for _, c := range feed {
		if err := tr.Feed(c); err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}

	if len(parts) != 6 {
		t.Fatalf("expected 6 parts, got %d", len(parts))
	}
	if parts[0].ID != "txt_1" || parts[1].ID != "txt_1" {
		t.Errorf("first segment ids: %q, %q", parts[0].ID, parts[1].ID)
	}
	if parts[2].Type != "tool-web.search" || parts[2].State != domain.ToolStateCall {
		t.Errorf("unexpected tool call part: %+v", parts[2])
	}
	if parts[3].State != domain.ToolStateResult {
		t.Errorf("unexpected tool result part: %+v", parts[3])
	}
	if parts[4].ID != "txt_2" {
		t.Errorf("text after tool call should start a new segment, got %q", parts[4].ID)
	}
	if parts[5].Type != domain.PartTypeFinish || parts[5].Reason != domain.FinishReasonStop {
		t.Errorf("unexpected finish part: %+v", parts[5])
	}
	if !tr.Finished() {
		t.Error("transcoder should be finished")
	}
}

func TestTranscoderOrphanResult(t *testing.T) {
	var parts []domain.Part
	tr := NewTranscoder("", collect(&parts))

	if err := tr.Feed(domain.Chunk{Type: domain.ChunkToolCallResult, ToolCallID: "ghost"}); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if err := tr.Feed(domain.Chunk{Type: domain.ChunkTextDelta, Text: "still going"}); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if err := tr.Feed(domain.Chunk{Type: domain.ChunkFinish}); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if parts[0].Type != domain.PartTypeError {
		t.Errorf("orphan result should produce an error part, got %+v", parts[0])
	}
	if parts[1].Type != domain.PartTypeText {
		t.Errorf("stream should continue after orphan result, got %+v", parts[1])
	}
	if parts[2].Reason != domain.FinishReasonStop {
		t.Errorf("expected normal finish, got %+v", parts[2])
	}
}

func TestTranscoderErrorChunkClosesStream(t *testing.T) {
	var parts []domain.Part
	tr := NewTranscoder("", collect(&parts))

	tr.Feed(domain.Chunk{Type: domain.ChunkTextDelta, Text: "partial"})
	tr.Feed(domain.Chunk{Type: domain.ChunkError, ErrorCode: "upstream_error", ErrorMessage: "gateway timeout"})

	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if parts[1].Type != domain.PartTypeError || parts[1].Error != "gateway timeout" {
		t.Errorf("unexpected error part: %+v", parts[1])
	}
	if parts[2].Type != domain.PartTypeFinish || parts[2].Reason != domain.FinishReasonError {
		t.Errorf("error should end with finish reason error, got %+v", parts[2])
	}

	// Chunks after the terminal part are dropped.
	tr.Feed(domain.Chunk{Type: domain.ChunkTextDelta, Text: "late"})
	if len(parts) != 3 {
		t.Errorf("post-finish chunk should be dropped, got %d parts", len(parts))
	}
}

func TestTranscoderInterruptClosesOpenCalls(t *testing.T) {
	var parts []domain.Part
	tr := NewTranscoder("", collect(&parts))

	tr.Feed(domain.Chunk{Type: domain.ChunkToolCallStart, ToolCallID: "c1", ToolName: "weather.query"})
	if err := tr.Interrupt(); err != nil {
		t.Fatalf("Interrupt failed: %v", err)
	}

	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if parts[1].State != domain.ToolStateInterrupted || parts[1].ToolCallID != "c1" {
		t.Errorf("open call should be interrupted, got %+v", parts[1])
	}
	if parts[2].Reason != domain.FinishReasonCancelled {
		t.Errorf("interrupt should finish with cancelled, got %+v", parts[2])
	}

	// Interrupting a finished stream is a no-op.
	if err := tr.Interrupt(); err != nil {
		t.Fatalf("second Interrupt failed: %v", err)
	}
	if len(parts) != 3 {
		t.Errorf("second interrupt emitted parts: %d", len(parts))
	}
}

func TestTranscoderDataChunk(t *testing.T) {
	var parts []domain.Part
	tr := NewTranscoder("", collect(&parts))

	payload := json.RawMessage(`{"city":"Paris"}`)
	tr.Feed(domain.Chunk{Type: domain.ChunkData, DataTag: "itinerary", Data: payload})

	if len(parts) != 1 || parts[0].Type != "data-itinerary" {
		t.Fatalf("unexpected parts: %+v", parts)
	}
	if string(parts[0].Data) != string(payload) {
		t.Errorf("data payload mismatch: %s", parts[0].Data)
	}
}
