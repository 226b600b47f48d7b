package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/inboxpilot/internal/mailbox"
)

// noReplyMarker is the exact token the draft-reply prompt asks for when an
// email does not warrant a reply.
const noReplyMarker = "NO_REPLY_NEEDED"

// Client implements Service on top of any Generator backend.
type Client struct {
	gen Generator
	log *slog.Logger
}

// NewClient wraps a generator.
func NewClient(gen Generator, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{gen: gen, log: logger.With(slog.String("backend", gen.Name()))}
}

// Generate passes through to the backend.
func (c *Client) Generate(ctx context.Context, prompt, system string) (string, error) {
	return c.gen.Generate(ctx, prompt, system)
}

// Classify labels each email for the given task. Entries referencing IDs not
// present in the input batch are discarded before being returned.
func (c *Client) Classify(ctx context.Context, emails []mailbox.Message, task string) ([]Classification, error) {
	var prompt, labelKey string
	switch task {
	case TaskPriority:
		prompt, labelKey = classifyPriorityPrompt(emails), "priority"
	case TaskJunk:
		prompt, labelKey = classifyJunkPrompt(emails), "action"
	case TaskInboxZero:
		prompt, labelKey = classifyInboxPrompt(emails), "action"
	default:
		return nil, fmt.Errorf("unknown classification task %q", task)
	}

	text, err := c.gen.Generate(ctx, prompt, jsonOnlySystem)
	if err != nil {
		return nil, err
	}

	valid := make(map[string]bool, len(emails))
	for _, e := range emails {
		valid[e.ID] = true
	}

	raw := ExtractList(text, nil)
	out := make([]Classification, 0, len(raw))
	for _, entry := range raw {
		id, _ := entry["id"].(string)
		if !valid[id] {
			continue
		}
		label, _ := entry[labelKey].(string)
		reason, _ := entry["reason"].(string)
		out = append(out, Classification{ID: id, Label: label, Reason: reason})
	}
	return out, nil
}

// Summarize builds a morning briefing.
func (c *Client) Summarize(ctx context.Context, emails []mailbox.Message) (*Briefing, error) {
	text, err := c.gen.Generate(ctx, summarizePrompt(emails), jsonOnlySystem)
	if err != nil {
		return nil, err
	}
	obj := ExtractObject(text, map[string]any{
		"summary": "No emails to summarize.",
	})
	return &Briefing{
		Summary:     asString(obj["summary"]),
		ActionItems: asStrings(obj["action_items"]),
		FYI:         asStrings(obj["fyi"]),
		Highlights:  asStrings(obj["highlights"]),
	}, nil
}

// DigestNarrative renders weekly stats into prose.
func (c *Client) DigestNarrative(ctx context.Context, stats map[string]any) (string, error) {
	text, err := c.gen.Generate(ctx, digestPrompt(stats),
		"You are a friendly email assistant. Be concise and conversational.")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// DraftReply writes a reply body, or "" when the email needs none.
func (c *Client) DraftReply(ctx context.Context, email mailbox.Message) (string, error) {
	text, err := c.gen.Generate(ctx, draftReplyPrompt(email),
		"You are drafting email replies on behalf of the user. Be professional, concise, and match the sender's tone.")
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(text)
	if reply == noReplyMarker {
		return "", nil
	}
	return reply, nil
}

// EvaluateConfigChange asks the backend whether an agent's config should
// evolve. A response that cannot be parsed counts as "no change".
func (c *Client) EvaluateConfigChange(ctx context.Context, agentID string, currentConfig, evalContext map[string]any) (*EvolutionProposal, error) {
	text, err := c.gen.Generate(ctx, evaluateChangePrompt(agentID, currentConfig, evalContext), jsonOnlySystem)
	if err != nil {
		return nil, err
	}

	obj := ExtractObject(text, map[string]any{"approve": false})
	proposal := &EvolutionProposal{Reasoning: asString(obj["reasoning"])}
	proposal.Approve, _ = obj["approve"].(bool)
	if change, ok := obj["modified_change"].(map[string]any); ok {
		proposal.ModifiedChange = change
	}
	return proposal, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
