package mailbox

import (
	"fmt"
	"strings"
	"time"
)

// Gmail search query builders shared by the agents.

// QueryUnreadInbox matches unread messages still in the inbox.
func QueryUnreadInbox() string { return "is:unread in:inbox" }

// QueryInboxAfter matches inbox messages received after t.
func QueryInboxAfter(t time.Time) string {
	return fmt.Sprintf("after:%d in:inbox", t.Unix())
}

// QuerySentAfter matches sent messages after t.
func QuerySentAfter(t time.Time) string {
	return fmt.Sprintf("after:%d in:sent", t.Unix())
}

// QueryPromotions matches inbox mail in the promotional and update
// categories, the cleanup agent's hunting ground.
func QueryPromotions() string {
	return "in:inbox category:promotions OR category:updates"
}

// QueryFromAny matches unread inbox mail from any of the given addresses or
// domains. Domains must be passed bare ("example.com"). Returns "" when both
// lists are empty.
func QueryFromAny(addresses, domains []string) string {
	parts := make([]string, 0, len(addresses)+len(domains))
	for _, a := range addresses {
		if a != "" {
			parts = append(parts, "from:"+a)
		}
	}
	for _, d := range domains {
		if d != "" {
			parts = append(parts, "from:@"+d)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("is:unread in:inbox (%s)", strings.Join(parts, " OR "))
}

// SenderAddress extracts the bare address from a From header, falling back
// to the raw value when there are no angle brackets.
func SenderAddress(from string) string {
	if i := strings.Index(from, "<"); i >= 0 {
		if j := strings.Index(from[i:], ">"); j > 0 {
			return strings.TrimSpace(from[i+1 : i+j])
		}
	}
	return strings.TrimSpace(from)
}

// SenderName extracts the display name from a From header, falling back to
// the raw value when there is no name part.
func SenderName(from string) string {
	if i := strings.Index(from, "<"); i >= 0 {
		name := strings.TrimSpace(from[:i])
		name = strings.Trim(name, `"`)
		if name != "" {
			return name
		}
	}
	return strings.TrimSpace(from)
}
