// Package config loads application configuration from the environment,
// optionally seeded from a .env file in the data directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// AI backend identifiers.
const (
	BackendGemini = "gemini"
	BackendOllama = "ollama"
)

// Config holds all runtime configuration for the daemon, the CLI, and the
// MCP server.
type Config struct {
	// DataDir is where the ledger database, per-agent config files, and the
	// VIP contact store live. Defaults to ~/.inboxpilot.
	DataDir string

	// APIAddr is the listen address of the JSON API (serve command).
	APIAddr string

	// LogFormat is "json" or "text"; LogLevel is debug/info/warn/error.
	LogFormat string
	LogLevel  string

	// AIBackend selects the completion service: "gemini" or "ollama".
	AIBackend   string
	GeminiKey   string
	GeminiModel string
	OllamaURL   string
	OllamaModel string

	// Gmail OAuth files, relative to DataDir unless absolute.
	GmailCredentialsFile string
	GmailTokenFile       string

	// MaxMessagesCap is the hard upper bound on any single mailbox fetch,
	// applied regardless of agent configuration.
	MaxMessagesCap int

	// BodyPreviewChars bounds the plain-text body preview extracted per
	// message.
	BodyPreviewChars int
}

// Load builds a Config from the environment. A .env file in the data
// directory (or the working directory) is loaded first if present; existing
// environment variables win over .env entries.
func Load() (*Config, error) {
	dataDir := os.Getenv("INBOXPILOT_DATA")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("determine home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".inboxpilot")
	}

	for _, envPath := range []string{filepath.Join(dataDir, ".env"), ".env"} {
		if _, err := os.Stat(envPath); err == nil {
			// godotenv.Load never overwrites variables already set.
			_ = godotenv.Load(envPath)
		}
	}

	cfg := &Config{
		DataDir:              dataDir,
		APIAddr:              getEnvOrDefault("INBOXPILOT_API_ADDR", "127.0.0.1:8484"),
		LogFormat:            getEnvOrDefault("INBOXPILOT_LOG_FORMAT", "json"),
		LogLevel:             getEnvOrDefault("INBOXPILOT_LOG_LEVEL", "info"),
		AIBackend:            getEnvOrDefault("AI_BACKEND", BackendOllama),
		GeminiKey:            os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		OllamaURL:            getEnvOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:          getEnvOrDefault("OLLAMA_MODEL", "mistral"),
		GmailCredentialsFile: getEnvOrDefault("GMAIL_CREDENTIALS_FILE", "credentials.json"),
		GmailTokenFile:       getEnvOrDefault("GMAIL_TOKEN_FILE", "token.json"),
		MaxMessagesCap:       getEnvIntOrDefault("INBOXPILOT_MAX_MESSAGES", 200),
		BodyPreviewChars:     getEnvIntOrDefault("INBOXPILOT_BODY_PREVIEW_CHARS", 500),
	}

	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	switch c.AIBackend {
	case BackendGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("AI_BACKEND=gemini requires GEMINI_API_KEY")
		}
	case BackendOllama:
		if c.OllamaURL == "" {
			return fmt.Errorf("AI_BACKEND=ollama requires OLLAMA_URL")
		}
	default:
		return fmt.Errorf("unknown AI backend %q, must be one of: gemini, ollama", c.AIBackend)
	}
	if c.MaxMessagesCap <= 0 {
		return fmt.Errorf("max messages cap must be positive, got %d", c.MaxMessagesCap)
	}
	return nil
}

// LedgerPath returns the path of the SQLite ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "agents.db")
}

// AgentConfigDir returns the directory holding one JSON file per agent.
func (c *Config) AgentConfigDir() string {
	return filepath.Join(c.DataDir, "agents")
}

// VIPPath returns the path of the VIP contact store.
func (c *Config) VIPPath() string {
	return filepath.Join(c.DataDir, "vips.json")
}

// CredentialsPath resolves the Gmail OAuth client secrets file.
func (c *Config) CredentialsPath() string {
	return c.resolve(c.GmailCredentialsFile)
}

// TokenPath resolves the Gmail OAuth token file.
func (c *Config) TokenPath() string {
	return c.resolve(c.GmailTokenFile)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
