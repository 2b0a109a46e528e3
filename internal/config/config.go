// Package config provides configuration for the gateway.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the gateway configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// LLM gateway settings
	LLMBaseURL string
	LLMAPIKey  string
	LLMTimeout time.Duration

	// Timeouts
	AgentTimeout time.Duration

	// Remote agents as comma-separated id=endpoint pairs
	RemoteAgents string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:     getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:  getEnv("DATABASE_URL", "file:agentgw.db?cache=shared&mode=rwc"),
		LLMBaseURL:   getEnv("LLM_BASE_URL", "http://localhost:4000"),
		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMTimeout:   time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		AgentTimeout: time.Duration(getEnvInt("AGENT_TIMEOUT_MS", 300000)) * time.Millisecond,
		RemoteAgents: getEnv("REMOTE_AGENTS", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
