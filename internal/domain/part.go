package domain

import "encoding/json"

// Part type discriminators. Tool and data parts use dynamic types built with
// ToolPartType / DataPartType.
const (
	PartTypeText          = "text"
	PartTypeError         = "error"
	PartTypeFinish        = "finish"
	PartTypeDataToolAgent = "data-tool-agent"
)

// Tool part states.
const (
	ToolStateCall        = "call"
	ToolStateResult      = "result"
	ToolStateInterrupted = "interrupted"
)

// Finish reasons.
const (
	FinishReasonStop      = "stop"
	FinishReasonError     = "error"
	FinishReasonCancelled = "cancelled"
)

// Part is one protocol-level unit delivered to clients.
//
// For text parts, ID groups consecutive deltas of one text segment; a new id
// means a new segment began. For data-tool-agent parts, ID is the nested
// agent's identifier and Data carries that agent's own part.
type Part struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	Text string `json:"text,omitempty"`

	ToolCallID string          `json:"toolCallId,omitempty"`
	State      string          `json:"state,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`

	Data json.RawMessage `json:"data,omitempty"`

	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ToolPartType returns the part type for a tool call/result pair.
func ToolPartType(toolName string) string {
	return "tool-" + toolName
}

// DataPartType returns the part type for an arbitrary named data payload.
func DataPartType(tag string) string {
	return "data-" + tag
}

// MarshalPart marshals a part for embedding into a data-tool-agent wrapper.
func MarshalPart(p Part) json.RawMessage {
	b, err := json.Marshal(p)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
