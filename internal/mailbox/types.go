// Package mailbox provides the mail access layer: a Service interface the
// agents program against and a Gmail implementation.
package mailbox

import "context"

// Message is a parsed email message with a bounded body preview.
type Message struct {
	ID          string   `json:"id"`
	ThreadID    string   `json:"thread_id"`
	Subject     string   `json:"subject"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Date        string   `json:"date"`
	Snippet     string   `json:"snippet"`
	Labels      []string `json:"labels"`
	BodyPreview string   `json:"body_preview"`
}

// ListOptions controls a message listing.
type ListOptions struct {
	Query      string
	MaxResults int
	// WithBody includes a body preview; metadata-only fetches are cheaper
	// and sufficient for counting and statistics.
	WithBody bool
}

// Service is the mailbox operations surface the agents use. Implementations
// must be safe for concurrent use.
type Service interface {
	List(ctx context.Context, opts ListOptions) ([]Message, error)
	Get(ctx context.Context, id string) (*Message, error)
	UnreadCount(ctx context.Context) (int, error)
	// EstimateCount approximates how many messages match the query without
	// fetching any of them.
	EstimateCount(ctx context.Context, query string) (int, error)
	Archive(ctx context.Context, ids []string) error
	Trash(ctx context.Context, ids []string) error
	MarkRead(ctx context.Context, ids []string) error
	SendReply(ctx context.Context, reply Reply) error
}

// Reply is an outgoing reply threaded onto an existing conversation when
// ThreadID/InReplyTo are set.
type Reply struct {
	To        string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string
}
