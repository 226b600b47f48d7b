package agents

import (
	"context"
	"fmt"

	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// CleanupAgent archives or deletes newsletters and promotions. The auto
// flags gate the destructive half: with both off it only reports what it
// would do.
type CleanupAgent struct {
	mail mailbox.Service
	ai   ai.Service
}

// NewCleanupAgent creates the cleanup strategy.
func NewCleanupAgent(mail mailbox.Service, svc ai.Service) *CleanupAgent {
	return &CleanupAgent{mail: mail, ai: svc}
}

func (a *CleanupAgent) ID() string          { return "cleanup" }
func (a *CleanupAgent) DisplayName() string { return "Cleanup Agent" }

// Execute classifies promotional mail and acts on it per the auto flags.
func (a *CleanupAgent) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	autoArchive := cfg.Flag("auto_archive", true)
	autoDelete := cfg.Flag("auto_delete", false)
	maxEmails := int(cfg.Threshold("max_emails", 50))

	emails, err := a.mail.List(ctx, mailbox.ListOptions{
		Query:      mailbox.QueryPromotions(),
		MaxResults: maxEmails,
		WithBody:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch promotions: %w", err)
	}
	if len(emails) == 0 {
		return OK(map[string]any{"message": "No newsletters or promotions to clean up"}).
			WithActions("checked_promotions"), nil
	}

	classifications, err := a.ai.Classify(ctx, emails, ai.TaskJunk)
	if err != nil {
		return nil, fmt.Errorf("classify junk: %w", err)
	}

	var toArchive, toDelete []string
	for _, c := range classifications {
		switch c.Label {
		case "archive":
			toArchive = append(toArchive, c.ID)
		case "delete":
			toDelete = append(toDelete, c.ID)
		}
	}

	result := OK(nil).WithEmails(len(emails)).WithActions("classified_junk")

	archived, deleted := 0, 0
	if autoArchive && len(toArchive) > 0 {
		if err := a.mail.Archive(ctx, toArchive); err != nil {
			return nil, fmt.Errorf("archive messages: %w", err)
		}
		archived = len(toArchive)
		result.WithActions(fmt.Sprintf("archived_%d", archived))
	}
	if autoDelete && len(toDelete) > 0 {
		if err := a.mail.Trash(ctx, toDelete); err != nil {
			return nil, fmt.Errorf("trash messages: %w", err)
		}
		deleted = len(toDelete)
		result.WithActions(fmt.Sprintf("deleted_%d", deleted))
	}

	result.Data = map[string]any{
		"scanned":       len(emails),
		"archived":      archived,
		"deleted":       deleted,
		"would_archive": len(toArchive),
		"would_delete":  len(toDelete),
	}
	return result, nil
}
