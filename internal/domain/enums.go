// Package domain defines the core domain models for the gateway.
package domain

// RunStatus represents the status of a turn run.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "CREATED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusDone      RunStatus = "DONE"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// EventType represents the type of a recorded run event.
type EventType string

const (
	EventTypeRunStarted         EventType = "run_started"
	EventTypeUserInput          EventType = "user_input"
	EventTypeAgentInvokeStarted EventType = "agent_invoke_started"
	EventTypeToolCall           EventType = "tool_call"
	EventTypeToolResult         EventType = "tool_result"
	EventTypeStreamError        EventType = "stream_error"
	EventTypeRunDone            EventType = "run_done"
	EventTypeRunFailed          EventType = "run_failed"
	EventTypeRunCancelled       EventType = "run_cancelled"
	EventTypeCheckpointRestored EventType = "checkpoint_restored"
)

// StepStatus represents the lifecycle status of a workflow step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusError     StepStatus = "error"
	StepStatusSkipped   StepStatus = "skipped"
)

// WorkflowStatus represents the overall status of a workflow run.
type WorkflowStatus string

const (
	WorkflowStatusIdle      WorkflowStatus = "idle"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusError     WorkflowStatus = "error"
)
