package domain

import (
	"encoding/json"
	"time"
)

// Thread represents one conversation with its owning resource.
type Thread struct {
	ThreadID   string          `json:"thread_id"`
	ResourceID string          `json:"resource_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Message represents one stored conversation turn.
type Message struct {
	MessageID string          `json:"message_id"`
	ThreadID  string          `json:"thread_id"`
	RunID     string          `json:"run_id,omitempty"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Run represents a single streamed execution of an agent turn.
type Run struct {
	RunID       string          `json:"run_id"`
	ThreadID    string          `json:"thread_id"`
	AgentID     string          `json:"agent_id"`
	ParentRunID string          `json:"parent_run_id,omitempty"`
	Status      RunStatus       `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
	Error       json.RawMessage `json:"error,omitempty"`
}

// Event represents a trace event recorded during a run.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
