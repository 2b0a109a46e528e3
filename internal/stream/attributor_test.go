package stream

import (
	"encoding/json"
	"testing"

	"github.com/corvid-labs/agentgw/internal/domain"
)

func TestAttributorPrimaryScope(t *testing.T) {
	var parts []domain.Part
	a := NewAttributor(collect(&parts))

	a.Feed(domain.Chunk{Type: domain.ChunkTextDelta, Text: "hi"})
	a.Feed(domain.Chunk{Type: domain.ChunkFinish})

	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].Type != domain.PartTypeText {
		t.Errorf("primary text should pass through unwrapped, got %+v", parts[0])
	}
	if !a.Finished() {
		t.Error("attributor should report finished")
	}
}

func TestAttributorWrapsNestedScope(t *testing.T) {
	var parts []domain.Part
	a := NewAttributor(collect(&parts))

	a.Feed(domain.Chunk{Type: domain.ChunkTextDelta, Text: "Sunny", Agents: []string{"weatherAgent"}})

	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	outer := parts[0]
	if outer.Type != domain.PartTypeDataToolAgent || outer.ID != "weatherAgent" {
		t.Fatalf("unexpected wrapper: %+v", outer)
	}
	var inner domain.Part
	if err := json.Unmarshal(outer.Data, &inner); err != nil {
		t.Fatalf("failed to unmarshal wrapped part: %v", err)
	}
	if inner.Type != domain.PartTypeText || inner.Text != "Sunny" {
		t.Errorf("unexpected inner part: %+v", inner)
	}
}

func TestAttributorDepthTwoChaining(t *testing.T) {
	var parts []domain.Part
	a := NewAttributor(collect(&parts))

	a.Feed(domain.Chunk{
		Type:   domain.ChunkTextDelta,
		Text:   "25C",
		Agents: []string{"researchAgent", "weatherAgent"},
	})

	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	outer := parts[0]
	if outer.ID != "researchAgent" {
		t.Fatalf("outermost wrapper should be the first chain entry, got %q", outer.ID)
	}
	var mid domain.Part
	if err := json.Unmarshal(outer.Data, &mid); err != nil {
		t.Fatalf("failed to unmarshal middle part: %v", err)
	}
	if mid.Type != domain.PartTypeDataToolAgent || mid.ID != "weatherAgent" {
		t.Fatalf("unexpected middle wrapper: %+v", mid)
	}
	var inner domain.Part
	if err := json.Unmarshal(mid.Data, &inner); err != nil {
		t.Fatalf("failed to unmarshal inner part: %v", err)
	}
	if inner.Type != domain.PartTypeText || inner.Text != "25C" {
		t.Errorf("unexpected innermost part: %+v", inner)
	}
}

func TestAttributorScopesOrderIndependently(t *testing.T) {
	var parts []domain.Part
	a := NewAttributor(collect(&parts))

	// Nested scope finishes; primary keeps streaming afterwards.
	a.Feed(domain.Chunk{Type: domain.ChunkTextDelta, Text: "a", Agents: []string{"weatherAgent"}})
	a.Feed(domain.Chunk{Type: domain.ChunkFinish, Agents: []string{"weatherAgent"}})
	a.Feed(domain.Chunk{Type: domain.ChunkTextDelta, Text: "b"})
	a.Feed(domain.Chunk{Type: domain.ChunkFinish})

	if len(parts) != 4 {
		t.Fatalf("expected 4 parts, got %d", len(parts))
	}
	if parts[2].Type != domain.PartTypeText || parts[2].Text != "b" {
		t.Errorf("primary text should follow nested finish, got %+v", parts[2])
	}
	if parts[3].Type != domain.PartTypeFinish {
		t.Errorf("expected primary finish last, got %+v", parts[3])
	}
}

func TestAttributorInterruptClosesNestedFirst(t *testing.T) {
	var parts []domain.Part
	a := NewAttributor(collect(&parts))

	a.Feed(domain.Chunk{Type: domain.ChunkTextDelta, Text: "outer"})
	a.Feed(domain.Chunk{Type: domain.ChunkTextDelta, Text: "inner", Agents: []string{"weatherAgent"}})

	if err := a.Interrupt(); err != nil {
		t.Fatalf("Interrupt failed: %v", err)
	}

	if len(parts) != 4 {
		t.Fatalf("expected 4 parts, got %d", len(parts))
	}
	// Nested scope's finish arrives wrapped, before the primary finish.
	if parts[2].Type != domain.PartTypeDataToolAgent {
		t.Errorf("nested finish should close first, got %+v", parts[2])
	}
	var nested domain.Part
	if err := json.Unmarshal(parts[2].Data, &nested); err != nil {
		t.Fatalf("failed to unmarshal nested part: %v", err)
	}
	if nested.Type != domain.PartTypeFinish || nested.Reason != domain.FinishReasonCancelled {
		t.Errorf("unexpected nested finish: %+v", nested)
	}
	if parts[3].Type != domain.PartTypeFinish || parts[3].Reason != domain.FinishReasonCancelled {
		t.Errorf("primary finish should close last, got %+v", parts[3])
	}
}
