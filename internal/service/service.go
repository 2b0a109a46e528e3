// Package service implements the gateway's turn execution pipeline.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corvid-labs/agentgw/internal/agent"
	"github.com/corvid-labs/agentgw/internal/config"
	"github.com/corvid-labs/agentgw/internal/domain"
	"github.com/corvid-labs/agentgw/internal/hub"
	store "github.com/corvid-labs/agentgw/internal/repository"
	"github.com/corvid-labs/agentgw/internal/stream"
)

// Service executes chat turns: it resolves the target agent, persists thread
// state, relays the agent's chunk stream through the part pipeline, and
// records run events along the way.
type Service struct {
	store  store.Store
	agents *agent.Registry
	hub    *hub.Hub
	cfg    *config.Config

	mu       sync.Mutex
	seq      int
	inflight map[string]map[int]context.CancelFunc
}

// NewService creates a service.
func NewService(s store.Store, agents *agent.Registry, h *hub.Hub, cfg *config.Config) *Service {
	return &Service{
		store:    s,
		agents:   agents,
		hub:      h,
		cfg:      cfg,
		inflight: make(map[string]map[int]context.CancelFunc),
	}
}

// Agents returns the agent registry.
func (s *Service) Agents() *agent.Registry { return s.agents }

// Store returns the persistence layer.
func (s *Service) Store() store.Store { return s.store }

// StreamTurn resolves and executes one chat turn, emitting parts to sink as
// they are produced. Resolution errors are returned before any part is
// written; errors after streaming starts surface in-stream instead. The
// returned run reflects the terminal status.
func (s *Service) StreamTurn(ctx context.Context, req domain.ChatRequest, sink stream.Sink) (*domain.Run, error) {
	turn, err := agent.Resolve(s.agents, req)
	if err != nil {
		return nil, err
	}

	ag := s.agents.Get(turn.AgentID)
	if ag == nil {
		return nil, &agent.InvalidAgentError{AgentID: turn.AgentID, Available: s.agents.IDs()}
	}

	threadID := turn.ThreadID
	if threadID == "" {
		threadID = "th_" + uuid.New().String()[:8]
		turn.ThreadID = threadID
	}
	if _, err := s.store.GetOrCreateThread(ctx, threadID, turn.ResourceID); err != nil {
		return nil, fmt.Errorf("failed to prepare thread: %w", err)
	}

	run := &domain.Run{
		RunID:     "run_" + uuid.New().String()[:8],
		ThreadID:  threadID,
		AgentID:   turn.AgentID,
		Status:    domain.RunStatusCreated,
		StartedAt: time.Now(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	s.recordEvent(run.RunID, domain.EventTypeRunStarted, map[string]interface{}{
		"agent_id":  turn.AgentID,
		"thread_id": threadID,
	})

	if turn.Input != "" {
		s.persistMessage(threadID, run.RunID, "user", turn.Input)
		s.recordEvent(run.RunID, domain.EventTypeUserInput, map[string]interface{}{"input": turn.Input})
	}

	var runCtx context.Context
	var cancel context.CancelFunc
	if s.cfg != nil && s.cfg.AgentTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.AgentTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	untrack := s.track(threadID, cancel)
	defer untrack()
	defer cancel()

	chunks, err := ag.Invoke(runCtx, turn)
	if err != nil {
		errData, _ := json.Marshal(map[string]string{"error": err.Error()})
		_ = s.store.UpdateRunCompleted(context.Background(), run.RunID, domain.RunStatusFailed, errData)
		run.Status = domain.RunStatusFailed
		return run, fmt.Errorf("agent invoke failed: %w", err)
	}

	_ = s.store.UpdateRunStatus(ctx, run.RunID, domain.RunStatusRunning)
	run.Status = domain.RunStatusRunning
	s.recordEvent(run.RunID, domain.EventTypeAgentInvokeStarted, map[string]interface{}{"agent_id": turn.AgentID})

	status, errData := s.relay(runCtx, run, threadID, chunks, sink)

	_ = s.store.UpdateRunCompleted(context.Background(), run.RunID, status, errData)
	run.Status = status
	s.notifyRun(threadID, run)
	return run, nil
}

// relay pumps the chunk stream through the attributor, persisting the
// assistant's primary text and recording trace events as it goes.
func (s *Service) relay(ctx context.Context, run *domain.Run, threadID string, chunks <-chan domain.Chunk, sink stream.Sink) (domain.RunStatus, []byte) {
	attr := stream.NewAttributor(sink)
	var text strings.Builder
	var streamErr string

	for c := range chunks {
		if len(c.Agents) == 0 {
			switch c.Type {
			case domain.ChunkTextDelta:
				text.WriteString(c.Text)
			case domain.ChunkToolCallStart:
				s.recordEvent(run.RunID, domain.EventTypeToolCall, map[string]interface{}{
					"tool_call_id": c.ToolCallID,
					"tool_name":    c.ToolName,
					"args":         json.RawMessage(orEmptyObject(c.Args)),
				})
			case domain.ChunkToolCallResult:
				s.recordEvent(run.RunID, domain.EventTypeToolResult, map[string]interface{}{
					"tool_call_id": c.ToolCallID,
					"result":       json.RawMessage(orEmptyObject(c.Result)),
				})
			case domain.ChunkError:
				streamErr = c.ErrorMessage
				s.recordEvent(run.RunID, domain.EventTypeStreamError, map[string]interface{}{
					"code":    c.ErrorCode,
					"message": c.ErrorMessage,
				})
			}
		}
		if err := attr.Feed(c); err != nil {
			// Client went away. Stop the agent and drain its channel so the
			// producing goroutine can exit.
			log.Printf("INFO: sink closed for run %s: %v", run.RunID, err)
			s.CancelThread(threadID)
			for range chunks {
			}
			break
		}
	}

	if !attr.Finished() {
		if err := attr.Interrupt(); err != nil {
			log.Printf("WARN: failed to interrupt stream for run %s: %v", run.RunID, err)
		}
	}

	if text.Len() > 0 {
		s.persistMessage(threadID, run.RunID, "assistant", text.String())
	}

	switch {
	case ctx.Err() != nil:
		s.recordEvent(run.RunID, domain.EventTypeRunCancelled, nil)
		return domain.RunStatusCancelled, nil
	case streamErr != "":
		s.recordEvent(run.RunID, domain.EventTypeRunFailed, map[string]interface{}{"error": streamErr})
		errData, _ := json.Marshal(map[string]string{"error": streamErr})
		return domain.RunStatusFailed, errData
	default:
		s.recordEvent(run.RunID, domain.EventTypeRunDone, nil)
		return domain.RunStatusDone, nil
	}
}

// RunAgent executes one agent turn on a thread with a fixed prompt,
// reporting text and data parts through onPart. Used by workflow steps.
func (s *Service) RunAgent(ctx context.Context, threadID, agentID, prompt string, onPart func(domain.Part)) error {
	sink := func(p domain.Part) error {
		if onPart != nil && (p.Type == domain.PartTypeText || strings.HasPrefix(p.Type, "data-")) {
			onPart(p)
		}
		return nil
	}

	run, err := s.StreamTurn(ctx, domain.ChatRequest{
		AgentID:  agentID,
		ThreadID: threadID,
		Messages: []domain.ChatMessage{{Role: "user", Content: prompt}},
	}, sink)
	if err != nil {
		return err
	}

	switch run.Status {
	case domain.RunStatusDone:
		return nil
	case domain.RunStatusCancelled:
		return fmt.Errorf("run %s cancelled", run.RunID)
	default:
		return fmt.Errorf("run %s ended with status %s", run.RunID, run.Status)
	}
}

// CancelThread aborts every in-flight turn on a thread.
func (s *Service) CancelThread(threadID string) {
	s.mu.Lock()
	cancels := s.inflight[threadID]
	delete(s.inflight, threadID)
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// track registers an in-flight turn and returns its unregister func.
func (s *Service) track(threadID string, cancel context.CancelFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := s.seq
	if s.inflight[threadID] == nil {
		s.inflight[threadID] = make(map[int]context.CancelFunc)
	}
	s.inflight[threadID][id] = cancel

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.inflight[threadID], id)
		if len(s.inflight[threadID]) == 0 {
			delete(s.inflight, threadID)
		}
	}
}

func (s *Service) persistMessage(threadID, runID, role, content string) {
	err := s.store.CreateMessage(context.Background(), &domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		ThreadID:  threadID,
		RunID:     runID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("ERROR: failed to persist %s message for thread %s: %v", role, threadID, err)
	}
}

func (s *Service) recordEvent(runID string, typ domain.EventType, payload map[string]interface{}) {
	var data json.RawMessage
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	err := s.store.CreateEvent(context.Background(), &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		RunID:   runID,
		Ts:      time.Now().UnixMilli(),
		Type:    typ,
		Payload: data,
	})
	if err != nil {
		log.Printf("ERROR: failed to record %s event for run %s: %v", typ, runID, err)
	}
}

func (s *Service) notifyRun(threadID string, run *domain.Run) {
	if s.hub == nil {
		return
	}
	_ = s.hub.BroadcastJSON(threadID, map[string]interface{}{
		"type": "run_update",
		"run":  run,
	})
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
