package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/corvid-labs/agentgw/internal/domain"
	store "github.com/corvid-labs/agentgw/internal/repository"
)

// Canceller aborts any in-flight streamed turns on a thread before its
// history is rewritten.
type Canceller interface {
	CancelThread(threadID string)
}

// CheckpointManager restores a thread's history to an earlier message. A
// workflow bound to the thread is reset when it was running or errored,
// since those step outcomes no longer match the conversation.
type CheckpointManager struct {
	store     store.Store
	canceller Canceller

	mu            sync.RWMutex
	orchestrators map[string]*Orchestrator
}

// NewCheckpointManager creates a checkpoint manager.
func NewCheckpointManager(s store.Store, c Canceller) *CheckpointManager {
	return &CheckpointManager{
		store:         s,
		canceller:     c,
		orchestrators: make(map[string]*Orchestrator),
	}
}

// Bind associates a thread's orchestrator so restores can reset it.
func (m *CheckpointManager) Bind(threadID string, o *Orchestrator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orchestrators[threadID] = o
}

// Orchestrator returns the orchestrator bound to a thread, if any.
func (m *CheckpointManager) Orchestrator(threadID string) *Orchestrator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orchestrators[threadID]
}

// Restore truncates the thread's history so the message at index is the last
// one kept, and returns how many messages were deleted. Restoring at or past
// the end of history deletes nothing.
func (m *CheckpointManager) Restore(ctx context.Context, threadID string, index int) (int, error) {
	if index < 0 {
		return 0, fmt.Errorf("checkpoint index must be non-negative, got %d", index)
	}

	thread, err := m.store.GetThread(ctx, threadID)
	if err != nil {
		return 0, err
	}
	if thread == nil {
		return 0, fmt.Errorf("thread %s not found", threadID)
	}

	count, err := m.store.CountMessages(ctx, threadID)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	if index+1 >= count {
		// Nothing beyond the checkpoint; leave in-flight turns and
		// workflow state untouched.
		return 0, nil
	}

	if m.canceller != nil {
		m.canceller.CancelThread(threadID)
	}

	deleted, err := m.store.DeleteMessagesAfter(ctx, threadID, index+1)
	if err != nil {
		return 0, fmt.Errorf("failed to truncate history: %w", err)
	}

	if o := m.Orchestrator(threadID); o != nil {
		switch o.Status() {
		case domain.WorkflowStatusRunning, domain.WorkflowStatusError:
			o.Reset()
		}
	}

	log.Printf("INFO: restored thread %s to checkpoint %d (%d messages deleted)", threadID, index, deleted)
	return deleted, nil
}
