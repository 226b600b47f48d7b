package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	ollamaTimeout     = 120 * time.Second
	rateLimitAttempts = 4
	rateLimitMaxWait  = 15 * time.Second
)

// OllamaGenerator produces text via a local Ollama server's /api/generate
// endpoint.
type OllamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
	log     *slog.Logger
}

// NewOllamaGenerator creates an Ollama backend.
func NewOllamaGenerator(baseURL, model string, logger *slog.Logger) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "mistral"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: ollamaTimeout},
		log:     logger,
	}
}

// Name identifies the backend in logs.
func (o *OllamaGenerator) Name() string { return "ollama" }

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Generate sends one prompt and returns the response text. Rate-limit
// responses are retried with capped exponential backoff before failing.
func (o *OllamaGenerator) Generate(ctx context.Context, prompt, system string) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:   o.model,
		Prompt:  prompt,
		System:  system,
		Stream:  false,
		Options: map[string]any{"temperature": defaultTemperature, "num_predict": 2000},
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	var lastStatus int
	for attempt := 0; attempt < rateLimitAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("build ollama request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("ollama request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("read ollama response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastStatus = resp.StatusCode
			wait := min(time.Duration(1<<attempt)*time.Second, rateLimitMaxWait)
			o.log.Warn("ollama rate limited", slog.Duration("wait", wait), slog.Int("attempt", attempt+1))
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var out ollamaResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("decode ollama response: %w", err)
		}
		return out.Response, nil
	}
	return "", fmt.Errorf("ollama rate limited after %d attempts (status %d)", rateLimitAttempts, lastStatus)
}
