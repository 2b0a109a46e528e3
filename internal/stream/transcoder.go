// Package stream transcodes provider-native chunk streams into the part
// protocol delivered to clients.
package stream

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/corvid-labs/agentgw/internal/domain"
)

// Sink receives parts in emission order. A sink error stops the stream.
type Sink func(domain.Part) error

// Transcoder converts one scope's chunks into parts. Part emission order
// exactly mirrors chunk arrival order within the scope; chunks are consumed
// one at a time and never batched ahead.
type Transcoder struct {
	scope string // for log attribution only
	sink  Sink

	textSeq   int
	textOpen  bool
	openCalls map[string]string // call id -> tool name
	openOrder []string
	finished  bool
}

// NewTranscoder creates a transcoder for one scope. scope is a label used in
// anomaly logs ("" for the primary scope).
func NewTranscoder(scope string, sink Sink) *Transcoder {
	return &Transcoder{
		scope:     scope,
		sink:      sink,
		openCalls: make(map[string]string),
	}
}

// Finished reports whether the scope emitted its terminal part.
func (t *Transcoder) Finished() bool { return t.finished }

// Feed consumes one chunk and emits zero or more parts.
func (t *Transcoder) Feed(c domain.Chunk) error {
	if t.finished {
		// Late chunks for a closed scope are an anomaly, not a failure.
		log.Printf("WARN: dropping %s chunk for closed scope %q", c.Type, t.scope)
		return nil
	}

	switch c.Type {
	case domain.ChunkTextDelta:
		if !t.textOpen {
			t.textSeq++
			t.textOpen = true
		}
		return t.sink(domain.Part{
			Type: domain.PartTypeText,
			ID:   fmt.Sprintf("txt_%d", t.textSeq),
			Text: c.Text,
		})

	case domain.ChunkToolCallStart:
		t.textOpen = false
		t.openCalls[c.ToolCallID] = c.ToolName
		t.openOrder = append(t.openOrder, c.ToolCallID)
		return t.sink(domain.Part{
			Type:       domain.ToolPartType(c.ToolName),
			ToolCallID: c.ToolCallID,
			State:      domain.ToolStateCall,
			Args:       c.Args,
		})

	case domain.ChunkToolCallResult:
		t.textOpen = false
		name, ok := t.openCalls[c.ToolCallID]
		if !ok {
			// Orphan result: surfaced in-stream, stream continues.
			log.Printf("WARN: orphan tool result %q in scope %q", c.ToolCallID, t.scope)
			return t.sink(domain.Part{
				Type:       domain.PartTypeError,
				ToolCallID: c.ToolCallID,
				Error:      fmt.Sprintf("orphan tool result: no open call %q", c.ToolCallID),
			})
		}
		delete(t.openCalls, c.ToolCallID)
		t.openOrder = removeID(t.openOrder, c.ToolCallID)
		return t.sink(domain.Part{
			Type:       domain.ToolPartType(name),
			ToolCallID: c.ToolCallID,
			State:      domain.ToolStateResult,
			Result:     c.Result,
		})

	case domain.ChunkData:
		t.textOpen = false
		return t.sink(domain.Part{
			Type: domain.DataPartType(c.DataTag),
			Data: c.Data,
		})

	case domain.ChunkFinish:
		return t.close(domain.FinishReasonStop)

	case domain.ChunkError:
		errPayload, _ := json.Marshal(map[string]string{
			"code":    c.ErrorCode,
			"message": c.ErrorMessage,
		})
		if err := t.sink(domain.Part{
			Type:  domain.PartTypeError,
			Error: c.ErrorMessage,
			Data:  errPayload,
		}); err != nil {
			return err
		}
		return t.close(domain.FinishReasonError)

	default:
		log.Printf("WARN: unknown chunk type %q in scope %q", c.Type, t.scope)
		return nil
	}
}

// Interrupt force-closes the scope on cancellation. Open tool parts are
// closed with an interrupted state so no part is left dangling.
func (t *Transcoder) Interrupt() error {
	if t.finished {
		return nil
	}
	return t.close(domain.FinishReasonCancelled)
}

func (t *Transcoder) close(reason string) error {
	for _, id := range t.openOrder {
		name := t.openCalls[id]
		if err := t.sink(domain.Part{
			Type:       domain.ToolPartType(name),
			ToolCallID: id,
			State:      domain.ToolStateInterrupted,
		}); err != nil {
			return err
		}
		if reason == domain.FinishReasonStop {
			log.Printf("WARN: tool call %q (%s) still open at finish in scope %q", id, name, t.scope)
		}
	}
	t.openCalls = make(map[string]string)
	t.openOrder = nil
	t.textOpen = false
	t.finished = true
	return t.sink(domain.Part{Type: domain.PartTypeFinish, Reason: reason})
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
