package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/inboxpilot/internal/ai"
)

// VoiceAgent answers conversational questions about the inbox. It is
// event-driven: a scheduled run is a no-op, real work happens through
// HandleMessage.
type VoiceAgent struct {
	ai ai.Service
}

// NewVoiceAgent creates the voice strategy.
func NewVoiceAgent(svc ai.Service) *VoiceAgent {
	return &VoiceAgent{ai: svc}
}

func (a *VoiceAgent) ID() string          { return "voice" }
func (a *VoiceAgent) DisplayName() string { return "Voice Agent" }

// Execute is a no-op for scheduled runs.
func (a *VoiceAgent) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	return OK(map[string]any{"message": "Voice agent is event-driven, no scheduled action"}).
		WithActions("noop"), nil
}

// ChatMessage is one turn of a voice conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HandleMessage answers one voice exchange using the agent's configured
// prompt as system instruction.
func (a *VoiceAgent) HandleMessage(ctx context.Context, cfg *Config, messages []ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages")
	}

	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("assistant:")

	system := cfg.SystemPrompt
	if system == "" {
		system = "You answer spoken questions about the user's inbox in one or two short sentences."
	}

	text, err := a.ai.Generate(ctx, b.String(), system)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(text)
	if reply == "" {
		reply = "I didn't catch that."
	}
	return reply, nil
}
