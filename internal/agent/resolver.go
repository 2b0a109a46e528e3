package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/corvid-labs/agentgw/internal/domain"
)

// ErrMissingMessages rejects a request whose message list is empty or absent.
var ErrMissingMessages = errors.New("messages required")

// InvalidAgentError rejects a request whose resolved agent id is not in the
// registry. The message enumerates the available agent ids.
type InvalidAgentError struct {
	AgentID   string
	Available []string
}

func (e *InvalidAgentError) Error() string {
	return fmt.Sprintf("Invalid or missing agentId. Available: %s", strings.Join(e.Available, ", "))
}

// Resolve maps a chat request onto a fully resolved turn.
//
// The agent id resolves by precedence: explicit top-level agentId, then the
// legacy nested data.agentId, then the first registered agent. Thread,
// resource, memory and input resolve independently with the same two-shape
// precedence, so a request may mix shapes. Resolution is side-effect-free
// and safe to retry.
func Resolve(reg *Registry, req domain.ChatRequest) (domain.Turn, error) {
	if len(req.Messages) == 0 {
		return domain.Turn{}, ErrMissingMessages
	}

	agentID := req.AgentID
	if agentID == "" && req.Data != nil {
		agentID = req.Data.AgentID
	}
	if agentID == "" {
		agentID = reg.First()
	}
	if agentID == "" || reg.Get(agentID) == nil {
		return domain.Turn{}, &InvalidAgentError{AgentID: agentID, Available: reg.IDs()}
	}

	turn := domain.Turn{
		AgentID:    agentID,
		ThreadID:   req.ThreadID,
		ResourceID: req.ResourceID,
		Memory:     req.Memory,
		Messages:   req.Messages,
		MaxSteps:   req.MaxSteps,
	}
	if req.Data != nil {
		if turn.ThreadID == "" {
			turn.ThreadID = req.Data.ThreadID
		}
		if turn.ResourceID == "" {
			turn.ResourceID = req.Data.ResourceID
		}
		if len(turn.Memory) == 0 {
			turn.Memory = req.Data.Memory
		}
		turn.Input = req.Data.Input
	}
	if turn.Input == "" {
		turn.Input = lastUserBody(req.Messages)
	}
	if turn.MaxSteps <= 0 {
		turn.MaxSteps = domain.DefaultMaxSteps
	}
	return turn, nil
}

func lastUserBody(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Body()
		}
	}
	return ""
}

// decodeArgs decodes tool arguments for policy input; malformed arguments
// evaluate against an empty object rather than failing the call.
func decodeArgs(args json.RawMessage) map[string]interface{} {
	out := map[string]interface{}{}
	if len(args) > 0 {
		_ = json.Unmarshal(args, &out)
	}
	return out
}
