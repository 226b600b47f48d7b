package agents

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// DigestAgent aggregates a week of inbox statistics and has the completion
// service turn them into a short narrative.
type DigestAgent struct {
	mail mailbox.Service
	ai   ai.Service
}

// NewDigestAgent creates the digest strategy.
func NewDigestAgent(mail mailbox.Service, svc ai.Service) *DigestAgent {
	return &DigestAgent{mail: mail, ai: svc}
}

func (a *DigestAgent) ID() string          { return "digest" }
func (a *DigestAgent) DisplayName() string { return "Digest Agent" }

// Execute computes weekly stats over received and sent mail.
func (a *DigestAgent) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	weekAgo := time.Now().UTC().AddDate(0, 0, -7)

	received, err := a.mail.List(ctx, mailbox.ListOptions{
		Query:      mailbox.QueryInboxAfter(weekAgo),
		MaxResults: 200,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch received mail: %w", err)
	}
	sent, err := a.mail.List(ctx, mailbox.ListOptions{
		Query:      mailbox.QuerySentAfter(weekAgo),
		MaxResults: 200,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch sent mail: %w", err)
	}
	unread, err := a.mail.UnreadCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	dayCounts := map[string]int{}
	senderCounts := map[string]int{}
	for _, msg := range received {
		if t, err := mail.ParseDate(msg.Date); err == nil {
			dayCounts[t.Weekday().String()]++
		}
		senderCounts[mailbox.SenderName(msg.From)]++
	}

	stats := map[string]any{
		"received":    len(received),
		"sent":        len(sent),
		"busiest_day": busiestDay(dayCounts),
		"top_senders": topSenders(senderCounts, 5),
		"unread":      unread,
	}

	narrative, err := a.ai.DigestNarrative(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("generate digest narrative: %w", err)
	}
	stats["narrative"] = narrative

	return OK(stats).
		WithEmails(len(received) + len(sent)).
		WithActions("generated_digest"), nil
}

func busiestDay(counts map[string]int) string {
	best, bestN := "N/A", 0
	for day, n := range counts {
		if n > bestN || (n == bestN && bestN > 0 && day < best) {
			best, bestN = day, n
		}
	}
	return best
}

func topSenders(counts map[string]int, n int) []string {
	type pair struct {
		name  string
		count int
	}
	pairs := make([]pair, 0, len(counts))
	for name, count := range counts {
		pairs = append(pairs, pair{name, count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].name < pairs[j].name
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.name
	}
	return out
}
