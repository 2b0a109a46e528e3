package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/corvid-labs/agentgw/internal/domain"
)

// sseEvent represents a parsed SSE event from a remote agent.
type sseEvent struct {
	Event string
	Data  string
}

// RemoteAgent invokes an agent process over HTTP and maps its SSE events to
// chunks. The remote protocol uses events delta / tool_call / tool_result /
// data / done / error.
type RemoteAgent struct {
	id          string
	name        string
	description string
	endpoint    string
	httpClient  *http.Client
}

// NewRemoteAgent creates an agent backed by a remote /invoke endpoint.
func NewRemoteAgent(id, name, description, endpoint string) *RemoteAgent {
	return &RemoteAgent{
		id:          id,
		name:        name,
		description: description,
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for streaming
		},
	}
}

func (a *RemoteAgent) ID() string { return a.id }

func (a *RemoteAgent) Info() domain.AgentInfo {
	return domain.AgentInfo{
		AgentID:     a.id,
		Name:        a.name,
		Description: a.description,
		Endpoint:    a.endpoint,
	}
}

type remoteInvokeRequest struct {
	AgentID  string               `json:"agent_id"`
	ThreadID string               `json:"thread_id,omitempty"`
	Input    string               `json:"input"`
	Messages []domain.ChatMessage `json:"messages,omitempty"`
	MaxSteps int                  `json:"max_steps,omitempty"`
}

// Invoke calls the remote agent's /invoke endpoint and streams chunks.
func (a *RemoteAgent) Invoke(ctx context.Context, turn domain.Turn) (<-chan domain.Chunk, error) {
	body, err := json.Marshal(remoteInvokeRequest{
		AgentID:  a.id,
		ThreadID: turn.ThreadID,
		Input:    turn.Input,
		Messages: turn.Messages,
		MaxSteps: turn.MaxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/invoke", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Thread-ID", turn.ThreadID)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke agent: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, string(respBody))
	}

	out := make(chan domain.Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		if err := a.parseSSE(ctx, resp.Body, out); err != nil {
			if ctx.Err() != nil {
				return
			}
			send(ctx, out, domain.Chunk{
				Type:         domain.ChunkError,
				ErrorCode:    "agent_error",
				ErrorMessage: err.Error(),
			})
		}
	}()
	return out, nil
}

// parseSSE parses an SSE stream and forwards one chunk per event.
func (a *RemoteAgent) parseSSE(ctx context.Context, reader io.Reader, out chan<- domain.Chunk) error {
	scanner := bufio.NewScanner(reader)
	var event sseEvent

	flush := func() bool {
		if event.Event == "" && event.Data == "" {
			return true
		}
		ok := a.emit(ctx, event, out)
		event = sseEvent{}
		return ok
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if !flush() {
				return ctx.Err()
			}
			continue
		}

		if strings.HasPrefix(line, "event:") {
			event.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if event.Data != "" {
				event.Data += "\n" + data
			} else {
				event.Data = data
			}
		}
		// Ignore comments (lines starting with :) and other fields
	}

	if !flush() {
		return ctx.Err()
	}
	return scanner.Err()
}

func (a *RemoteAgent) emit(ctx context.Context, event sseEvent, out chan<- domain.Chunk) bool {
	var payload struct {
		Text       string          `json:"text"`
		ToolCallID string          `json:"tool_call_id"`
		ToolName   string          `json:"tool_name"`
		Args       json.RawMessage `json:"args"`
		Result     json.RawMessage `json:"result"`
		Tag        string          `json:"tag"`
		Data       json.RawMessage `json:"data"`
		Code       string          `json:"code"`
		Message    string          `json:"message"`
	}
	if event.Data != "" {
		if err := json.Unmarshal([]byte(event.Data), &payload); err != nil {
			log.Printf("WARN: remote agent %s sent malformed %s event: %v", a.id, event.Event, err)
			return true
		}
	}

	switch event.Event {
	case "delta":
		return send(ctx, out, domain.Chunk{Type: domain.ChunkTextDelta, Text: payload.Text})
	case "tool_call":
		return send(ctx, out, domain.Chunk{
			Type:       domain.ChunkToolCallStart,
			ToolCallID: payload.ToolCallID,
			ToolName:   payload.ToolName,
			Args:       payload.Args,
		})
	case "tool_result":
		return send(ctx, out, domain.Chunk{
			Type:       domain.ChunkToolCallResult,
			ToolCallID: payload.ToolCallID,
			ToolName:   payload.ToolName,
			Result:     payload.Result,
		})
	case "data":
		return send(ctx, out, domain.Chunk{Type: domain.ChunkData, DataTag: payload.Tag, Data: payload.Data})
	case "done":
		return send(ctx, out, domain.Chunk{Type: domain.ChunkFinish})
	case "error":
		return send(ctx, out, domain.Chunk{
			Type:         domain.ChunkError,
			ErrorCode:    payload.Code,
			ErrorMessage: payload.Message,
		})
	default:
		log.Printf("INFO: remote agent %s sent unknown event %q", a.id, event.Event)
		return true
	}
}
