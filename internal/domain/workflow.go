package domain

import "encoding/json"

// WorkflowStepDef is the static configuration of one workflow step.
type WorkflowStepDef struct {
	StepID      string `json:"step_id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	AgentID     string `json:"agent_id"`
	Prompt      string `json:"prompt"`
}

// WorkflowDef is the static configuration of a workflow.
type WorkflowDef struct {
	WorkflowID  string            `json:"workflow_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Steps       []WorkflowStepDef `json:"steps"`
}

// WorkflowStep is the live state of one step within a workflow run.
type WorkflowStep struct {
	StepID      string     `json:"step_id"`
	Ordinal     int        `json:"ordinal"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	AgentID     string     `json:"agent_id"`
	Status      StepStatus `json:"status"`
}

// ProgressEvent is one progress fragment for the step currently running.
// Events accumulate only while the step status is running and are discarded
// on any exit transition; the exit itself is announced with a Done event.
// Text carries text fragments, Data carries serialized data parts such as
// nested-agent output.
type ProgressEvent struct {
	StepID string          `json:"step_id"`
	Text   string          `json:"text,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Done   bool            `json:"done"`
	Ts     int64           `json:"ts"` // Unix milliseconds
}
