package agents

import (
	"context"
	"fmt"

	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// InboxZeroAgent works the unread inbox down in small batches, archiving
// what is safe to archive and trashing junk.
type InboxZeroAgent struct {
	mail mailbox.Service
	ai   ai.Service
}

// NewInboxZeroAgent creates the inbox-zero strategy.
func NewInboxZeroAgent(mail mailbox.Service, svc ai.Service) *InboxZeroAgent {
	return &InboxZeroAgent{mail: mail, ai: svc}
}

func (a *InboxZeroAgent) ID() string          { return "inbox_zero" }
func (a *InboxZeroAgent) DisplayName() string { return "Inbox Zero Agent" }

// Execute processes one batch of unread mail.
func (a *InboxZeroAgent) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	batchSize := int(cfg.Threshold("batch_size", 10))

	emails, err := a.mail.List(ctx, mailbox.ListOptions{
		Query:      mailbox.QueryUnreadInbox(),
		MaxResults: batchSize,
		WithBody:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch unread inbox: %w", err)
	}
	if len(emails) == 0 {
		return OK(map[string]any{"message": "Inbox zero achieved!", "inbox_zero": true}).
			WithActions("checked_inbox"), nil
	}

	classifications, err := a.ai.Classify(ctx, emails, ai.TaskInboxZero)
	if err != nil {
		return nil, fmt.Errorf("classify inbox: %w", err)
	}

	var readArchive, junk []string
	kept := 0
	for _, c := range classifications {
		switch c.Label {
		case "read_archive":
			readArchive = append(readArchive, c.ID)
		case "junk":
			junk = append(junk, c.ID)
		case "action_needed":
			kept++
		}
	}

	result := OK(nil).WithEmails(len(emails)).WithActions("classified_inbox")

	if len(readArchive) > 0 {
		if err := a.mail.Archive(ctx, readArchive); err != nil {
			return nil, fmt.Errorf("archive messages: %w", err)
		}
		if err := a.mail.MarkRead(ctx, readArchive); err != nil {
			return nil, fmt.Errorf("mark messages read: %w", err)
		}
		result.WithActions(fmt.Sprintf("archived_%d", len(readArchive)))
	}
	if len(junk) > 0 {
		if err := a.mail.Trash(ctx, junk); err != nil {
			return nil, fmt.Errorf("trash messages: %w", err)
		}
		result.WithActions(fmt.Sprintf("trashed_%d", len(junk)))
	}

	remaining, err := a.mail.UnreadCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	result.Data = map[string]any{
		"processed":  len(emails),
		"archived":   len(readArchive),
		"trashed":    len(junk),
		"kept":       kept,
		"remaining":  remaining,
		"inbox_zero": remaining == 0,
	}
	return result, nil
}
