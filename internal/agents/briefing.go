package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// BriefingAgent summarizes recent inbox activity into a morning briefing.
type BriefingAgent struct {
	mail mailbox.Service
	ai   ai.Service
}

// NewBriefingAgent creates the briefing strategy.
func NewBriefingAgent(mail mailbox.Service, svc ai.Service) *BriefingAgent {
	return &BriefingAgent{mail: mail, ai: svc}
}

func (a *BriefingAgent) ID() string          { return "briefing" }
func (a *BriefingAgent) DisplayName() string { return "Briefing Agent" }

// Execute fetches inbox mail from the lookback window and summarizes it.
func (a *BriefingAgent) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	hoursBack := int(cfg.Threshold("hours_back", 12))
	cutoff := time.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)

	emails, err := a.mail.List(ctx, mailbox.ListOptions{
		Query:      mailbox.QueryInboxAfter(cutoff),
		MaxResults: 100,
		WithBody:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch recent inbox: %w", err)
	}
	if len(emails) == 0 {
		return OK(map[string]any{
			"message": fmt.Sprintf("No emails in the last %d hours", hoursBack),
		}).WithActions("checked_inbox"), nil
	}

	briefing, err := a.ai.Summarize(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("summarize emails: %w", err)
	}

	return OK(map[string]any{
		"email_count":  len(emails),
		"summary":      briefing.Summary,
		"action_items": briefing.ActionItems,
		"fyi":          briefing.FYI,
		"highlights":   briefing.Highlights,
	}).WithEmails(len(emails)).WithActions("generated_briefing"), nil
}
