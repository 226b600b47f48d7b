package agents

import (
	"context"
	"fmt"

	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/vip"
)

// VIPMonitorAgent watches for unread mail from designated VIP contacts and
// domains and raises an alert flag when the count crosses the threshold.
type VIPMonitorAgent struct {
	mail mailbox.Service
	vips *vip.Store
}

// NewVIPMonitorAgent creates the VIP monitor strategy.
func NewVIPMonitorAgent(mail mailbox.Service, vips *vip.Store) *VIPMonitorAgent {
	return &VIPMonitorAgent{mail: mail, vips: vips}
}

func (a *VIPMonitorAgent) ID() string          { return "vip_monitor" }
func (a *VIPMonitorAgent) DisplayName() string { return "VIP Monitor" }

type vipItem struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
}

// Execute scans for unread VIP mail.
func (a *VIPMonitorAgent) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	contacts, domains, err := a.vips.Load()
	if err != nil {
		return nil, fmt.Errorf("load vip list: %w", err)
	}

	query := mailbox.QueryFromAny(vip.Addresses(contacts), vip.DomainNames(domains))
	if query == "" {
		return OK(map[string]any{"message": "No VIP contacts configured"}).
			WithActions("checked_vip_config"), nil
	}

	emails, err := a.mail.List(ctx, mailbox.ListOptions{
		Query:      query,
		MaxResults: 50,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch vip mail: %w", err)
	}

	alertOn := int(cfg.Threshold("alert_on_count", 1))
	items := make([]vipItem, 0, len(emails))
	for _, e := range emails {
		items = append(items, vipItem{ID: e.ID, From: e.From, Subject: e.Subject})
	}
	if len(items) > 20 {
		items = items[:20]
	}

	return OK(map[string]any{
		"count":  len(emails),
		"emails": items,
		"alert":  len(emails) >= alertOn,
	}).WithEmails(len(emails)).WithActions("scanned_vip_emails"), nil
}
