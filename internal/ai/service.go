// Package ai wraps the completion backends (Gemini or a local Ollama
// server) behind the Service interface the agents use. Every backend
// response is treated as untrusted text and parsed defensively.
package ai

import (
	"context"

	"github.com/teemow/inboxpilot/internal/mailbox"
)

// Classification is one entry of a batch classification response. Label
// carries the task-specific category (priority level or action).
type Classification struct {
	ID     string `json:"id"`
	Label  string `json:"-"`
	Reason string `json:"reason"`
}

// Task kinds for Classify.
const (
	TaskPriority  = "priority"
	TaskJunk      = "junk"
	TaskInboxZero = "inbox_zero"
)

// Briefing is the structured morning-briefing summary.
type Briefing struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
	FYI         []string `json:"fyi"`
	Highlights  []string `json:"highlights"`
}

// EvolutionProposal is the backend's verdict on whether an agent's config
// should change, and if so how.
type EvolutionProposal struct {
	Approve        bool           `json:"approve"`
	ModifiedChange map[string]any `json:"modified_change"`
	Reasoning      string         `json:"reasoning"`
}

// Service is the completion surface the agents and the learning loop use.
type Service interface {
	// Generate sends a single prompt with a system instruction and returns
	// raw response text.
	Generate(ctx context.Context, prompt, system string) (string, error)
	// Classify labels each email for the given task kind. Results whose IDs
	// are not in the input batch are discarded.
	Classify(ctx context.Context, emails []mailbox.Message, task string) ([]Classification, error)
	// Summarize builds a morning briefing from a batch of emails.
	Summarize(ctx context.Context, emails []mailbox.Message) (*Briefing, error)
	// DigestNarrative turns weekly statistics into a short narrative.
	DigestNarrative(ctx context.Context, stats map[string]any) (string, error)
	// DraftReply writes a reply for one email, or "" when none is needed.
	DraftReply(ctx context.Context, email mailbox.Message) (string, error)
	// EvaluateConfigChange asks whether an agent's config should evolve
	// given its recent performance and feedback.
	EvaluateConfigChange(ctx context.Context, agentID string, currentConfig, evalContext map[string]any) (*EvolutionProposal, error)
}

// Generator is a raw text-generation backend. Client layers prompt
// construction and response parsing on top of one.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
	Name() string
}
