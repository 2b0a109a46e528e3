package agent

import (
	"encoding/json"

	"github.com/corvid-labs/agentgw/internal/adapter/llm"
	"github.com/corvid-labs/agentgw/internal/tools"
	"github.com/corvid-labs/agentgw/policy"
)

// BuiltinAgents constructs the gateway's stock agents. weatherAgent is also
// exposed to researchAgent as a nested agent tool.
func BuiltinAgents(client llm.LLMClient, reg *tools.Registry, pol *policy.Engine) []Agent {
	weather := NewLocalAgent(LocalAgentConfig{
		ID:           "weatherAgent",
		Name:         "Weather Agent",
		Description:  "Answers questions about current weather conditions",
		Instructions: "You are a weather assistant. Use the weather.query tool to look up conditions before answering.",
		Model:        "gpt-4o-mini",
		LLM:          client,
		Tools:        reg,
		Policy:       pol,
		Bindings: []ToolBinding{
			{
				Name:        "weather.query",
				Description: "Look up current weather for a city",
				Schema:      json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
			},
		},
	})

	research := NewLocalAgent(LocalAgentConfig{
		ID:           "researchAgent",
		Name:         "Research Agent",
		Description:  "Researches a topic and drafts itineraries, delegating weather lookups",
		Instructions: "You are a research assistant. Search the web for facts, delegate weather questions to the weatherAgent tool, and save itineraries when asked.",
		Model:        "gpt-4o",
		LLM:          client,
		Tools:        reg,
		Policy:       pol,
		Bindings: []ToolBinding{
			{
				Name:        "web.search",
				Description: "Search the web",
				Schema:      json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
			},
			{
				Name:        "itinerary.save",
				Description: "Persist a drafted itinerary",
				Schema:      json.RawMessage(`{"type":"object","properties":{"title":{"type":"string"},"paid":{"type":"boolean"}}}`),
			},
			AgentTool(weather),
		},
	})

	return []Agent{weather, research}
}
