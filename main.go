package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/corvid-labs/agentgw/internal/adapter/llm"
	"github.com/corvid-labs/agentgw/internal/agent"
	"github.com/corvid-labs/agentgw/internal/config"
	"github.com/corvid-labs/agentgw/internal/hub"
	store "github.com/corvid-labs/agentgw/internal/repository"
	"github.com/corvid-labs/agentgw/internal/service"
	"github.com/corvid-labs/agentgw/internal/tools"
	handler "github.com/corvid-labs/agentgw/internal/transport/http"
	"github.com/corvid-labs/agentgw/internal/workflow"
	"github.com/corvid-labs/agentgw/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting gateway...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("LLM URL: %s", cfg.LLMBaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize LLM client
	llmClient := llm.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Register the built-in agents
	registry := agent.NewRegistry()
	for _, a := range agent.BuiltinAgents(llmClient, tools.DefaultRegistry, policyEngine) {
		if err := registry.Register(a); err != nil {
			log.Fatalf("Failed to register agent %s: %v", a.ID(), err)
		}
	}

	// Register remote agents from configuration (id=endpoint pairs)
	for _, pair := range strings.Split(cfg.RemoteAgents, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, endpoint, ok := strings.Cut(pair, "=")
		if !ok {
			log.Printf("WARN: skipping malformed remote agent entry %q", pair)
			continue
		}
		a := agent.NewRemoteAgent(id, id, "Remote agent at "+endpoint, endpoint)
		if err := registry.Register(a); err != nil {
			log.Fatalf("Failed to register remote agent %s: %v", id, err)
		}
	}

	// Initialize the WebSocket hub
	h := hub.NewHub()
	go h.Run()

	// Initialize service and workflow plumbing
	svc := service.NewService(db, registry, h, cfg)
	defs := workflow.DefaultDefs()
	ckpt := workflow.NewCheckpointManager(db, svc)

	// Create and start the HTTP server
	server := handler.NewServer(svc, ckpt, defs, h)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Gateway started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gateway...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Gateway stopped")
}
