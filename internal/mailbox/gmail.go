package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxpilot/internal/google"
)

// GmailService implements Service against the Gmail API.
type GmailService struct {
	svc *gmail.UsersService

	// MaxResultsCap bounds any single list, regardless of what the caller
	// asked for.
	maxResultsCap    int
	bodyPreviewChars int
}

// GmailOptions configures a GmailService.
type GmailOptions struct {
	CredentialsFile  string
	TokenFile        string
	MaxResultsCap    int
	BodyPreviewChars int
}

// NewGmailService creates an authenticated Gmail mailbox. It fails when no
// cached OAuth token exists; run the auth flow first.
func NewGmailService(ctx context.Context, opts GmailOptions) (*GmailService, error) {
	client, err := google.HTTPClient(ctx, opts.CredentialsFile, opts.TokenFile)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	if opts.MaxResultsCap <= 0 {
		opts.MaxResultsCap = 200
	}
	if opts.BodyPreviewChars <= 0 {
		opts.BodyPreviewChars = 500
	}
	return &GmailService{
		svc:              svc.Users,
		maxResultsCap:    opts.MaxResultsCap,
		bodyPreviewChars: opts.BodyPreviewChars,
	}, nil
}

// List fetches messages matching the query, newest first.
func (g *GmailService) List(ctx context.Context, opts ListOptions) ([]Message, error) {
	max := opts.MaxResults
	if max <= 0 || max > g.maxResultsCap {
		max = g.maxResultsCap
	}

	res, err := g.svc.Messages.List("me").Q(opts.Query).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(res.Messages) == 0 {
		return nil, nil
	}

	format := "metadata"
	if opts.WithBody {
		format = "full"
	}

	messages := make([]Message, 0, len(res.Messages))
	for _, ref := range res.Messages {
		msg, err := g.svc.Messages.Get("me", ref.Id).Format(format).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", ref.Id, err)
		}
		messages = append(messages, g.parse(msg, opts.WithBody))
	}
	return messages, nil
}

// Get fetches one message with its body preview.
func (g *GmailService) Get(ctx context.Context, id string) (*Message, error) {
	msg, err := g.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	m := g.parse(msg, true)
	return &m, nil
}

// UnreadCount returns the unread message count of the inbox label.
func (g *GmailService) UnreadCount(ctx context.Context) (int, error) {
	label, err := g.svc.Labels.Get("me", "INBOX").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get inbox label: %w", err)
	}
	return int(label.MessagesUnread), nil
}

// EstimateCount returns Gmail's result size estimate for the query, a fast
// count that never fetches message bodies.
func (g *GmailService) EstimateCount(ctx context.Context, query string) (int, error) {
	res, err := g.svc.Messages.List("me").Q(query).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("estimate count: %w", err)
	}
	return int(res.ResultSizeEstimate), nil
}

// Archive removes the INBOX label from the given messages.
func (g *GmailService) Archive(ctx context.Context, ids []string) error {
	return g.batchModify(ctx, ids, nil, []string{"INBOX"})
}

// Trash moves the given messages to the trash.
func (g *GmailService) Trash(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := g.svc.Messages.Trash("me", id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("trash message %s: %w", id, err)
		}
	}
	return nil
}

// MarkRead removes the UNREAD label from the given messages.
func (g *GmailService) MarkRead(ctx context.Context, ids []string) error {
	return g.batchModify(ctx, ids, nil, []string{"UNREAD"})
}

func (g *GmailService) batchModify(ctx context.Context, ids, add, remove []string) error {
	if len(ids) == 0 {
		return nil
	}
	req := &gmail.BatchModifyMessagesRequest{
		Ids:            ids,
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}
	if err := g.svc.Messages.BatchModify("me", req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch modify %d messages: %w", len(ids), err)
	}
	return nil
}

// SendReply sends a plain-text reply, threaded when reply.ThreadID and
// reply.InReplyTo are set.
func (g *GmailService) SendReply(ctx context.Context, reply Reply) error {
	subject := reply.Subject
	if subject != "" && !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", reply.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if reply.InReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", reply.InReplyTo)
		fmt.Fprintf(&b, "References: %s\r\n", reply.InReplyTo)
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(reply.Body)

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(b.String())),
		ThreadId: reply.ThreadID,
	}
	if _, err := g.svc.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (g *GmailService) parse(msg *gmail.Message, withBody bool) Message {
	headers := map[string]string{}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers[strings.ToLower(h.Name)] = h.Value
		}
	}

	m := Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  headers["subject"],
		From:     headers["from"],
		To:       headers["to"],
		Date:     headers["date"],
		Snippet:  msg.Snippet,
		Labels:   msg.LabelIds,
	}
	if m.Subject == "" {
		m.Subject = "(no subject)"
	}
	if withBody && msg.Payload != nil {
		m.BodyPreview = truncate(extractText(msg.Payload), g.bodyPreviewChars)
	}
	return m
}

// extractText finds the first text/plain part in a MIME tree and decodes it.
func extractText(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	mediaType := part.MimeType
	if mt, _, err := mime.ParseMediaType(part.MimeType); err == nil {
		mediaType = mt
	}
	if mediaType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
		return string(data)
	}
	for _, p := range part.Parts {
		if text := extractText(p); text != "" {
			return text
		}
	}
	return ""
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
