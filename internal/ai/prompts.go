package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teemow/inboxpilot/internal/mailbox"
)

const jsonOnlySystem = "You are an email assistant. Respond ONLY with valid JSON. No markdown fences. No explanation."

// formatEmails renders a batch into a compact prompt block, one stanza per
// message, previews capped so a large batch stays within prompt limits.
func formatEmails(emails []mailbox.Message) string {
	var b strings.Builder
	for i, e := range emails {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Email %d (id: %s) ---\n", i+1, e.ID)
		fmt.Fprintf(&b, "From: %s\n", e.From)
		fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
		fmt.Fprintf(&b, "Date: %s", e.Date)
		preview := e.BodyPreview
		if preview == "" {
			preview = e.Snippet
		}
		if preview != "" {
			if len(preview) > 300 {
				preview = preview[:300]
			}
			fmt.Fprintf(&b, "\nPreview: %s", preview)
		}
	}
	return b.String()
}

func summarizePrompt(emails []mailbox.Message) string {
	return fmt.Sprintf(`Analyze these emails and provide a morning briefing summary.

%s

Respond in this exact JSON format (no extra text, no markdown fences):
{"summary": "Brief 1-2 sentence overview of the inbox state", "action_items": ["List of emails that need a response or action, with sender and subject"], "fyi": ["List of informational emails worth knowing about"], "highlights": ["Any notable or interesting items"]}

Be concise. Only include genuinely important items in action_items.`, formatEmails(emails))
}

func classifyPriorityPrompt(emails []mailbox.Message) string {
	return fmt.Sprintf(`Classify each email by priority level.

%s

Respond with a JSON array. For each email:
{"id": "<email id>", "priority": "high" | "medium" | "low", "reason": "Brief reason for classification"}

Classification guidelines:
- HIGH: Direct request requiring your action, time-sensitive, from a person (not automated), mentions deadlines or urgent language
- MEDIUM: Informational but relevant to your work, may need action eventually
- LOW: Newsletters, automated notifications, marketing, social media alerts

Be conservative. Most emails are medium or low; only mark high if it truly requires prompt attention.
Respond ONLY with a JSON array. No other text.`, formatEmails(emails))
}

func classifyJunkPrompt(emails []mailbox.Message) string {
	return fmt.Sprintf(`Classify each email for cleanup. These are from promotional/update categories.

%s

Respond with a JSON array. For each email:
{"id": "<email id>", "action": "archive" | "delete" | "keep", "reason": "Brief reason"}

Guidelines:
- ARCHIVE: Newsletters you might want later, order confirmations, routine notifications
- DELETE: Pure spam, expired promotions, duplicate notifications
- KEEP: Anything that might need action or contains important information

Respond ONLY with a JSON array. No other text.`, formatEmails(emails))
}

func classifyInboxPrompt(emails []mailbox.Message) string {
	return fmt.Sprintf(`Help me reach inbox zero. Classify each email.

%s

Respond with a JSON array. For each email:
{"id": "<email id>", "action": "action_needed" | "read_archive" | "junk", "reason": "Brief reason"}

Guidelines:
- ACTION_NEEDED: Requires a reply, decision, or task from the user. Keep in inbox.
- READ_ARCHIVE: Informational, already read, or FYI only. Safe to archive.
- JUNK: Spam, expired promos, irrelevant notifications. Safe to trash.

Respond ONLY with a JSON array. No other text.`, formatEmails(emails))
}

func digestPrompt(stats map[string]any) string {
	encoded, _ := json.MarshalIndent(stats, "", "  ")
	return fmt.Sprintf(`Write a brief, friendly weekly email digest narrative based on these stats:

%s

Keep it to 3-4 sentences. Mention notable patterns, busiest day, and any suggestions. Be conversational.`, encoded)
}

func draftReplyPrompt(email mailbox.Message) string {
	preview := email.BodyPreview
	if preview == "" {
		preview = email.Snippet
	}
	return fmt.Sprintf(`Draft a professional reply to this email.

From: %s
Subject: %s
Date: %s
Body: %s

Write a concise, professional reply. Match the tone of the original email.
If the email is a notification/newsletter/automated message that doesn't need a reply, respond with exactly: NO_REPLY_NEEDED
Otherwise, write just the reply body text. Keep it brief and actionable.`, email.From, email.Subject, email.Date, preview)
}

func evaluateChangePrompt(agentID string, currentConfig, evalContext map[string]any) string {
	cfg, _ := json.MarshalIndent(currentConfig, "", "  ")
	ctxJSON, _ := json.MarshalIndent(evalContext, "", "  ")
	return fmt.Sprintf(`An email agent's configuration may need tuning based on user feedback and performance.

Agent: %s

Current configuration:
%s

Performance and feedback context:
%s

Decide whether any configuration change would improve this agent. Valid change fields: "thresholds" (numeric map, merged key by key), "weights" (numeric map, merged key by key), "system_prompt" (string, replaced), "schedule" (object, replaced).

Respond with a JSON object:
{"approve": true | false, "modified_change": {"<field>": <value>}, "reasoning": "Brief reason"}

Only approve changes that the feedback clearly supports. When in doubt, respond with {"approve": false}.
Respond ONLY with JSON.`, agentID, cfg, ctxJSON)
}
