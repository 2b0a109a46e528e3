package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/corvid-labs/agentgw/internal/adapter/llm"
	"github.com/corvid-labs/agentgw/internal/domain"
	"github.com/corvid-labs/agentgw/internal/tools"
	"github.com/corvid-labs/agentgw/policy"
)

// LocalAgentConfig configures a gateway-hosted agent backed by the LLM
// gateway and the tool registry.
type LocalAgentConfig struct {
	ID           string
	Name         string
	Description  string
	Instructions string
	Model        string
	LLM          llm.LLMClient
	Tools        *tools.Registry
	Policy       *policy.Engine
	Bindings     []ToolBinding
}

// LocalAgent executes turns with a model loop: stream a completion, run any
// requested tool calls, feed results back, repeat up to the turn's maxSteps.
type LocalAgent struct {
	cfg LocalAgentConfig
}

// NewLocalAgent creates a local agent from its configuration.
func NewLocalAgent(cfg LocalAgentConfig) *LocalAgent {
	return &LocalAgent{cfg: cfg}
}

func (a *LocalAgent) ID() string { return a.cfg.ID }

func (a *LocalAgent) Info() domain.AgentInfo {
	names := make([]string, 0, len(a.cfg.Bindings))
	for _, b := range a.cfg.Bindings {
		names = append(names, b.Name)
	}
	return domain.AgentInfo{
		AgentID:     a.cfg.ID,
		Name:        a.cfg.Name,
		Description: a.cfg.Description,
		Tools:       names,
	}
}

// Invoke starts the model loop in a goroutine and returns the chunk stream.
// The channel is unbuffered so consumption paces production.
func (a *LocalAgent) Invoke(ctx context.Context, turn domain.Turn) (<-chan domain.Chunk, error) {
	out := make(chan domain.Chunk)
	go a.run(ctx, turn, out)
	return out, nil
}

func (a *LocalAgent) run(ctx context.Context, turn domain.Turn, out chan<- domain.Chunk) {
	defer close(out)

	msgs := a.seedMessages(turn)
	maxSteps := turn.MaxSteps
	if maxSteps <= 0 {
		maxSteps = domain.DefaultMaxSteps
	}

	for step := 0; step < maxSteps; step++ {
		req := &llm.ChatCompletionRequest{
			Model:    a.cfg.Model,
			Messages: msgs,
			Tools:    a.toolDecls(),
		}

		acc := newToolCallAccumulator()
		var text strings.Builder

		_, err := a.cfg.LLM.CreateChatCompletionStream(ctx, req, func(chunk *llm.StreamChunk) error {
			for _, choice := range chunk.Choices {
				if choice.Delta == nil {
					continue
				}
				if choice.Delta.Content != "" {
					text.WriteString(choice.Delta.Content)
					if !send(ctx, out, domain.Chunk{Type: domain.ChunkTextDelta, Text: choice.Delta.Content}) {
						return ctx.Err()
					}
				}
				for _, tc := range choice.Delta.ToolCalls {
					acc.add(tc)
				}
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			send(ctx, out, domain.Chunk{
				Type:         domain.ChunkError,
				ErrorCode:    "upstream_error",
				ErrorMessage: err.Error(),
			})
			return
		}

		calls := acc.calls()
		if len(calls) == 0 {
			break
		}

		msgs = append(msgs, llm.ChatMessage{Role: "assistant", Content: text.String(), ToolCalls: calls})

		for _, call := range calls {
			result, ok := a.invokeTool(ctx, call, out)
			if !ok {
				return
			}
			msgs = append(msgs, llm.ChatMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    string(result),
			})
		}
	}

	send(ctx, out, domain.Chunk{Type: domain.ChunkFinish})
}

// invokeTool emits the tool chunk pair around execution. The second return
// is false only when the context was cancelled mid-call.
func (a *LocalAgent) invokeTool(ctx context.Context, call llm.ToolCall, out chan<- domain.Chunk) (json.RawMessage, bool) {
	callID := call.ID
	if callID == "" {
		callID = "call_" + uuid.New().String()[:8]
	}
	name := call.Function.Name
	args := json.RawMessage(call.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	if !send(ctx, out, domain.Chunk{
		Type:       domain.ChunkToolCallStart,
		ToolCallID: callID,
		ToolName:   name,
		Args:       args,
	}) {
		return nil, false
	}

	result, execErr := a.executeTool(ctx, name, args, out)
	if ctx.Err() != nil {
		return nil, false
	}
	if execErr != nil {
		log.Printf("WARN: tool %s failed for agent %s: %v", name, a.cfg.ID, execErr)
		result, _ = json.Marshal(map[string]string{"error": execErr.Error()})
	}

	if !send(ctx, out, domain.Chunk{
		Type:       domain.ChunkToolCallResult,
		ToolCallID: callID,
		ToolName:   name,
		Result:     result,
	}) {
		return nil, false
	}
	return result, true
}

func (a *LocalAgent) executeTool(ctx context.Context, name string, args json.RawMessage, out chan<- domain.Chunk) (json.RawMessage, error) {
	binding := a.binding(name)
	if binding == nil {
		return nil, fmt.Errorf("unknown tool %s", name)
	}

	if binding.Agent != nil {
		return a.invokeSubagent(ctx, binding.Agent, args, out)
	}

	if a.cfg.Policy != nil {
		decision, reason, err := a.cfg.Policy.Evaluate(ctx, map[string]interface{}{
			"tool_name": name,
			"args":      decodeArgs(args),
			"agent_id":  a.cfg.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("policy evaluation failed: %w", err)
		}
		switch decision {
		case "block":
			if reason == "" {
				reason = "policy"
			}
			return nil, fmt.Errorf("blocked by policy: %s", reason)
		case "require_approval":
			// No approval queue in this deployment; treat as a block.
			return nil, fmt.Errorf("blocked by policy: approval required")
		}
	}

	return a.cfg.Tools.Execute(ctx, name, args)
}

// invokeSubagent relays a nested agent's chunks inline, prepending the
// nested agent's id to each chunk's provenance chain. The nested agent's
// primary text becomes the outer tool result.
func (a *LocalAgent) invokeSubagent(ctx context.Context, sub Agent, args json.RawMessage, out chan<- domain.Chunk) (json.RawMessage, error) {
	var in struct {
		Query string `json:"query"`
		Input string `json:"input"`
	}
	_ = json.Unmarshal(args, &in)
	input := in.Query
	if input == "" {
		input = in.Input
	}
	if input == "" {
		input = string(args)
	}

	chunks, err := sub.Invoke(ctx, domain.Turn{
		AgentID:  sub.ID(),
		Messages: []domain.ChatMessage{{Role: "user", Content: input}},
		MaxSteps: domain.DefaultMaxSteps,
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	var failure string
	for c := range chunks {
		if len(c.Agents) == 0 {
			switch c.Type {
			case domain.ChunkTextDelta:
				text.WriteString(c.Text)
			case domain.ChunkError:
				failure = c.ErrorMessage
			}
		}
		c.Agents = append([]string{sub.ID()}, c.Agents...)
		if !send(ctx, out, c) {
			return nil, ctx.Err()
		}
	}
	if failure != "" {
		return nil, fmt.Errorf("nested agent %s failed: %s", sub.ID(), failure)
	}

	result, _ := json.Marshal(map[string]string{"text": text.String()})
	return result, nil
}

func (a *LocalAgent) binding(name string) *ToolBinding {
	for i := range a.cfg.Bindings {
		if a.cfg.Bindings[i].Name == name {
			return &a.cfg.Bindings[i]
		}
	}
	return nil
}

func (a *LocalAgent) toolDecls() []llm.Tool {
	decls := make([]llm.Tool, 0, len(a.cfg.Bindings))
	for _, b := range a.cfg.Bindings {
		decls = append(decls, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        b.Name,
				Description: b.Description,
				Parameters:  b.Schema,
			},
		})
	}
	return decls
}

func (a *LocalAgent) seedMessages(turn domain.Turn) []llm.ChatMessage {
	msgs := make([]llm.ChatMessage, 0, len(turn.Messages)+1)
	if a.cfg.Instructions != "" {
		msgs = append(msgs, llm.ChatMessage{Role: "system", Content: a.cfg.Instructions})
	}
	for _, m := range turn.Messages {
		msgs = append(msgs, llm.ChatMessage{Role: m.Role, Content: m.Body()})
	}
	return msgs
}

// toolCallAccumulator assembles streamed tool call fragments by index.
type toolCallAccumulator struct {
	byIndex map[int]*llm.ToolCall
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: make(map[int]*llm.ToolCall)}
}

func (acc *toolCallAccumulator) add(delta llm.ToolCallDelta) {
	call := acc.byIndex[delta.Index]
	if call == nil {
		call = &llm.ToolCall{Type: "function"}
		acc.byIndex[delta.Index] = call
	}
	if delta.ID != "" {
		call.ID = delta.ID
	}
	if delta.Function.Name != "" {
		call.Function.Name = delta.Function.Name
	}
	call.Function.Arguments += delta.Function.Arguments
}

func (acc *toolCallAccumulator) calls() []llm.ToolCall {
	if len(acc.byIndex) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(acc.byIndex))
	for i := range acc.byIndex {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	calls := make([]llm.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		calls = append(calls, *acc.byIndex[i])
	}
	return calls
}
