package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MockClient is a mock implementation of LLMClient for testing and for
// running the gateway without a model backend.
//
// When the request exposes tools and the conversation does not yet contain a
// tool result, the mock requests a call to the first tool; otherwise it
// streams a plain text answer. This makes the full tool loop exercisable
// without a live gateway.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	resp := &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
	}

	if call, ok := m.pendingToolCall(req); ok {
		resp.Choices = []Choice{{
			Index:        0,
			Message:      &ChatMessage{Role: "assistant", ToolCalls: []ToolCall{call}},
			FinishReason: "tool_calls",
		}}
		return resp, nil
	}

	content := m.generateMockResponse(req)
	resp.Choices = []Choice{{
		Index:        0,
		Message:      &ChatMessage{Role: "assistant", Content: content},
		FinishReason: "stop",
	}}
	resp.Usage = m.usage(req, content)
	return resp, nil
}

// CreateChatCompletionStream simulates a streaming response.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()

	if call, ok := m.pendingToolCall(req); ok {
		chunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{{
				Index: 0,
				Delta: &StreamDelta{
					Role: "assistant",
					ToolCalls: []ToolCallDelta{{
						Index:    0,
						ID:       call.ID,
						Type:     "function",
						Function: call.Function,
					}},
				},
				FinishReason: "tool_calls",
			}},
		}
		if err := callback(chunk); err != nil {
			return nil, err
		}
		return nil, nil
	}

	content := m.generateMockResponse(req)
	chunks := m.splitIntoChunks(content, 10)

	for i, part := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		finishReason := ""
		if i == len(chunks)-1 {
			finishReason = "stop"
		}

		chunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{{
				Index:        0,
				Delta:        &StreamDelta{Role: "assistant", Content: part},
				FinishReason: finishReason,
			}},
		}

		if err := callback(chunk); err != nil {
			return nil, err
		}
	}

	return m.usage(req, content), nil
}

// pendingToolCall decides whether the mock should request a tool call.
func (m *MockClient) pendingToolCall(req *ChatCompletionRequest) (ToolCall, bool) {
	if len(req.Tools) == 0 {
		return ToolCall{}, false
	}
	for _, msg := range req.Messages {
		if msg.Role == "tool" {
			return ToolCall{}, false
		}
	}
	args, _ := json.Marshal(map[string]string{"query": m.lastUserMessage(req)})
	return ToolCall{
		ID:   fmt.Sprintf("mock-call-%d", time.Now().UnixNano()),
		Type: "function",
		Function: ToolCallFunction{
			Name:      req.Tools[0].Function.Name,
			Arguments: string(args),
		},
	}, true
}

func (m *MockClient) lastUserMessage(req *ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	last := m.lastUserMessage(req)
	if last == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(last, 100))
}

func (m *MockClient) usage(req *ChatCompletionRequest, content string) *Usage {
	prompt := 0
	for _, msg := range req.Messages {
		prompt += len(msg.Content) / 4
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: len(content) / 4,
		TotalTokens:      prompt + len(content)/4,
	}
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func (m *MockClient) splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	var chunks []string
	for i := 0; i < len(s); i += chunkSize {
		end := i + chunkSize
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
