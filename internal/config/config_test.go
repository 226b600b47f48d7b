package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INBOXPILOT_DATA", t.TempDir())
	t.Setenv("AI_BACKEND", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AIBackend != BackendOllama {
		t.Errorf("default AI backend = %q, want %q", cfg.AIBackend, BackendOllama)
	}
	if cfg.MaxMessagesCap != 200 {
		t.Errorf("default max messages cap = %d, want 200", cfg.MaxMessagesCap)
	}
	if filepath.Base(cfg.LedgerPath()) != "agents.db" {
		t.Errorf("ledger path = %q, want agents.db under data dir", cfg.LedgerPath())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ollama ok", func(c *Config) {}, false},
		{"gemini requires key", func(c *Config) {
			c.AIBackend = BackendGemini
			c.GeminiKey = ""
		}, true},
		{"gemini with key", func(c *Config) {
			c.AIBackend = BackendGemini
			c.GeminiKey = "k"
		}, false},
		{"unknown backend", func(c *Config) { c.AIBackend = "hal9000" }, true},
		{"non-positive cap", func(c *Config) { c.MaxMessagesCap = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				AIBackend:      BackendOllama,
				OllamaURL:      "http://localhost:11434",
				MaxMessagesCap: 200,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPathResolution(t *testing.T) {
	cfg := &Config{
		DataDir:              "/data",
		GmailCredentialsFile: "credentials.json",
		GmailTokenFile:       "/etc/secrets/token.json",
	}
	if got := cfg.CredentialsPath(); got != filepath.Join("/data", "credentials.json") {
		t.Errorf("CredentialsPath() = %q", got)
	}
	if got := cfg.TokenPath(); got != "/etc/secrets/token.json" {
		t.Errorf("TokenPath() should keep absolute paths, got %q", got)
	}
}
