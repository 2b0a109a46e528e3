package agent

import (
	"fmt"
	"sync"

	"github.com/corvid-labs/agentgw/internal/domain"
)

// Registry is an insertion-ordered collection of agents keyed by id. It is
// populated at startup and read-only at request time.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	agents map[string]Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent. Duplicate ids are rejected.
func (r *Registry) Register(a Agent) error {
	if a == nil || a.ID() == "" {
		return fmt.Errorf("agent id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.ID()]; exists {
		return fmt.Errorf("agent already registered: %s", a.ID())
	}
	r.agents[a.ID()] = a
	r.order = append(r.order, a.ID())
	return nil
}

// Get returns the agent for an id, or nil.
func (r *Registry) Get(id string) Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[id]
}

// First returns the first registered agent id, or "".
func (r *Registry) First() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// IDs returns the agent ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// List returns descriptive metadata for all agents in registration order.
func (r *Registry) List() []domain.AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]domain.AgentInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.agents[id].Info())
	}
	return infos
}
