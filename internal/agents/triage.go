package agents

import (
	"context"
	"fmt"

	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// TriageAgent classifies unread inbox mail by priority.
type TriageAgent struct {
	mail mailbox.Service
	ai   ai.Service
}

// NewTriageAgent creates the triage strategy.
func NewTriageAgent(mail mailbox.Service, svc ai.Service) *TriageAgent {
	return &TriageAgent{mail: mail, ai: svc}
}

func (a *TriageAgent) ID() string          { return "triage" }
func (a *TriageAgent) DisplayName() string { return "Triage Agent" }

type triageItem struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// Execute classifies up to max_emails unread messages into high/medium/low.
func (a *TriageAgent) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	maxEmails := int(cfg.Threshold("max_emails", 50))

	emails, err := a.mail.List(ctx, mailbox.ListOptions{
		Query:      mailbox.QueryUnreadInbox(),
		MaxResults: maxEmails,
		WithBody:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch unread inbox: %w", err)
	}
	if len(emails) == 0 {
		return OK(map[string]any{"message": "No unread emails"}).
			WithActions("checked_inbox"), nil
	}

	classifications, err := a.ai.Classify(ctx, emails, ai.TaskPriority)
	if err != nil {
		return nil, fmt.Errorf("classify priority: %w", err)
	}

	byID := make(map[string]mailbox.Message, len(emails))
	for _, e := range emails {
		byID[e.ID] = e
	}

	var high, medium, low []triageItem
	for _, c := range classifications {
		item := triageItem{
			ID:      c.ID,
			From:    byID[c.ID].From,
			Subject: byID[c.ID].Subject,
			Reason:  c.Reason,
		}
		switch c.Label {
		case "high":
			high = append(high, item)
		case "medium":
			medium = append(medium, item)
		case "low":
			low = append(low, item)
		}
	}

	topHigh := high
	if len(topHigh) > 10 {
		topHigh = topHigh[:10]
	}

	return OK(map[string]any{
		"total":      len(emails),
		"high":       len(high),
		"medium":     len(medium),
		"low":        len(low),
		"high_items": topHigh,
	}).WithEmails(len(emails)).WithActions("classified_priority"), nil
}
