package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "AGENTGW_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient creates an LLM client based on the AGENTGW_MODE environment
// variable. If AGENTGW_MODE=MOCK, returns a MockClient; otherwise returns a
// real Client.
func NewLLMClient(baseURL, apiKey string, timeout time.Duration) LLMClient {
	if os.Getenv(EnvMode) == ModeMock {
		log.Println("AGENTGW_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
