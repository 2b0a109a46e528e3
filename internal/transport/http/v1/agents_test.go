package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestListAgents(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListAgents(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Agents []string `json:"agents"`
		Count  int      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Count != 2 || len(resp.Agents) != 2 {
		t.Fatalf("expected both built-in agents, got %+v", resp)
	}
	if resp.Agents[0] != "weatherAgent" || resp.Agents[1] != "researchAgent" {
		t.Fatalf("agents should list in registration order, got %v", resp.Agents)
	}
}

func TestGetAgentNotFound(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/agents/ghost", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("agent_id")
	c.SetParamValues("ghost")

	if err := h.GetAgent(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetAgentSuccess(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/agents/weatherAgent", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("agent_id")
	c.SetParamValues("weatherAgent")

	if err := h.GetAgent(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var info struct {
		AgentID string   `json:"agent_id"`
		Tools   []string `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if info.AgentID != "weatherAgent" {
		t.Fatalf("unexpected agent: %+v", info)
	}
	if len(info.Tools) == 0 || info.Tools[0] != "weather.query" {
		t.Fatalf("agent tools should be listed, got %v", info.Tools)
	}
}
