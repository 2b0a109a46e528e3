package domain

import "encoding/json"

// DefaultMaxSteps bounds agent-internal tool-call iterations per turn.
const DefaultMaxSteps = 50

// ChatMessage represents one prior conversation message. Older clients send
// the body under "text" instead of "content"; both shapes are accepted.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Body returns the message body regardless of which field carried it.
func (m ChatMessage) Body() string {
	if m.Content != "" {
		return m.Content
	}
	return m.Text
}

// LegacyData is the nested request shape kept for backward compatibility.
type LegacyData struct {
	AgentID    string          `json:"agentId,omitempty"`
	ThreadID   string          `json:"threadId,omitempty"`
	ResourceID string          `json:"resourceId,omitempty"`
	Memory     json.RawMessage `json:"memory,omitempty"`
	Input      string          `json:"input,omitempty"`
}

// ChatRequest is one conversation turn sent to the pipeline. Each field
// resolves independently with top-level taking precedence over the legacy
// nested data object; a request may mix shapes.
type ChatRequest struct {
	Messages   []ChatMessage   `json:"messages"`
	AgentID    string          `json:"agentId,omitempty"`
	ThreadID   string          `json:"threadId,omitempty"`
	ResourceID string          `json:"resourceId,omitempty"`
	Memory     json.RawMessage `json:"memory,omitempty"`
	MaxSteps   int             `json:"maxSteps,omitempty"`
	Data       *LegacyData     `json:"data,omitempty"`
}

// Turn is a fully resolved invocation request. It is transient: created per
// call and discarded after the stream ends.
type Turn struct {
	AgentID    string
	ThreadID   string
	ResourceID string
	Memory     json.RawMessage
	Input      string
	Messages   []ChatMessage
	MaxSteps   int
}

// AgentInfo is the descriptive metadata for a registered agent.
type AgentInfo struct {
	AgentID     string   `json:"agent_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Endpoint    string   `json:"endpoint,omitempty"`
	Tools       []string `json:"tools,omitempty"`
}
