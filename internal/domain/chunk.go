package domain

import "encoding/json"

// ChunkType represents the kind of a provider-native execution event.
type ChunkType string

const (
	ChunkTextDelta      ChunkType = "text_delta"
	ChunkToolCallStart  ChunkType = "tool_call_start"
	ChunkToolCallResult ChunkType = "tool_call_result"
	ChunkData           ChunkType = "data"
	ChunkFinish         ChunkType = "finish"
	ChunkError          ChunkType = "error"
)

// Chunk is one provider-native execution event from an agent invocation.
//
// Agents is the provenance chain for events produced by nested agent
// invocations: empty for the primary scope, otherwise the chain of nested
// agent ids from outermost to innermost. Chunks within one chain are strictly
// ordered; across chains only "no earlier than the spawning tool call" holds.
type Chunk struct {
	Type   ChunkType `json:"type"`
	Agents []string  `json:"agents,omitempty"`

	// text_delta
	Text string `json:"text,omitempty"`

	// tool_call_start / tool_call_result
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`

	// data
	DataTag string          `json:"data_tag,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	// error
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
