// Package guardrails enforces hard-coded safety bounds on agent
// configuration changes.
//
// The bounds in this file are compile-time constants on purpose: no code
// path, the director and the learning manager included, can widen them at
// runtime. Every component that writes agent configuration must validate
// through this package first.
package guardrails

import (
	"fmt"
	"regexp"
	"strings"
)

// Bound is an inclusive numeric range for a named threshold.
type Bound struct {
	Lo float64
	Hi float64
}

// thresholdBounds lists every threshold an agent may tune, with the range a
// proposed value must fall into.
var thresholdBounds = map[string]Bound{
	"max_emails_per_scan": {5, 200},
	"max_emails":          {5, 200},
	"batch_size":          {1, 50},
	"hours_back":          {1, 168},
	"confidence":          {0.5, 1.0},
	"alert_on_count":      {1, 100},
}

// ScheduleMinIntervalMinutes is the floor for interval schedules.
const ScheduleMinIntervalMinutes = 5

// PromptMaxLength caps the system prompt size in characters.
const PromptMaxLength = 5000

// injectionPatterns must never appear in an agent prompt. A proposed prompt
// matching any of them is rejected outright.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|above|prior)`),
	regexp.MustCompile(`(?i)new\s+system\s+prompt`),
	regexp.MustCompile(`(?i)override\s+(safety|security|guardrail)`),
}

// identityRewrite catches prompts that reassign the assistant's identity.
// RE2 has no lookahead, so the captured name is compared in code: only the
// assistant's own name may follow "you are now".
var identityRewrite = regexp.MustCompile(`(?i)you\s+are\s+now\s+(\S+)`)

// assistantName is the one identity a prompt is allowed to assign.
const assistantName = "inboxpilot"

// immutableAgents cannot be reconfigured through any proposal path. The
// director reviews every other agent, so letting anything rewrite the
// director would remove the last line of oversight.
var immutableAgents = map[string]bool{
	"director": true,
}

// ThresholdBound reports the bound for a threshold name, if one exists.
func ThresholdBound(field string) (Bound, bool) {
	b, ok := thresholdBounds[field]
	return b, ok
}

// IsImmutable reports whether an agent's configuration is closed to any
// proposed change.
func IsImmutable(agentID string) bool {
	return immutableAgents[agentID]
}

// ValidateChange checks a single proposed configuration change.
// Rules are applied in order and the first failure wins. The returned reason
// is suitable for surfacing to whoever proposed the change.
func ValidateChange(agentID, field string, oldValue, newValue any) (bool, string) {
	if immutableAgents[agentID] {
		return false, fmt.Sprintf("agent %q config is immutable to self-modification", agentID)
	}

	if bound, ok := thresholdBounds[field]; ok {
		if v, numeric := asFloat(newValue); numeric {
			if v < bound.Lo || v > bound.Hi {
				return false, fmt.Sprintf("%s must be between %v and %v, got %v", field, bound.Lo, bound.Hi, newValue)
			}
		}
	}

	if field == "system_prompt" {
		prompt, ok := newValue.(string)
		if !ok {
			return false, "system_prompt must be a string"
		}
		if len(prompt) > PromptMaxLength {
			return false, fmt.Sprintf("system_prompt exceeds %d chars", PromptMaxLength)
		}
		for _, pattern := range injectionPatterns {
			if pattern.MatchString(prompt) {
				return false, "system_prompt contains forbidden pattern"
			}
		}
		for _, m := range identityRewrite.FindAllStringSubmatch(prompt, -1) {
			name := strings.Trim(m[1], `.,:;!?"'`)
			if !strings.EqualFold(name, assistantName) {
				return false, "system_prompt contains forbidden pattern"
			}
		}
	}

	if field == "schedule" {
		if sched, ok := newValue.(map[string]any); ok {
			typ, _ := sched["type"].(string)
			minutes := 0
			if v, numeric := asFloat(sched["minutes"]); numeric {
				minutes = int(v)
			}
			if ok, reason := ValidateSchedule(typ, minutes); !ok {
				return false, reason
			}
		}
	}

	return true, "ok"
}

// ValidateSchedule checks the structural constraints of a schedule spec.
// Interval schedules must fire no more often than every
// ScheduleMinIntervalMinutes; cron, manual, and event specs always pass.
func ValidateSchedule(scheduleType string, minutes int) (bool, string) {
	switch scheduleType {
	case "interval":
		if minutes < ScheduleMinIntervalMinutes {
			return false, fmt.Sprintf("interval must be >= %d minutes", ScheduleMinIntervalMinutes)
		}
	case "cron", "manual", "event":
	default:
		return false, fmt.Sprintf("unknown schedule type: %s", scheduleType)
	}
	return true, "ok"
}

// ValidateFullConfig runs every check across a whole configuration in one
// pass, collecting all failures instead of short-circuiting. The config is
// passed as a generic map so this package stays dependency-free.
func ValidateFullConfig(agentID string, cfg map[string]any) (bool, []string) {
	var errors []string

	if thresholds, ok := cfg["thresholds"].(map[string]any); ok {
		for key, value := range thresholds {
			if ok, reason := ValidateChange(agentID, key, nil, value); !ok {
				errors = append(errors, reason)
			}
		}
	}

	if prompt, ok := cfg["system_prompt"].(string); ok && prompt != "" {
		if ok, reason := ValidateChange(agentID, "system_prompt", nil, prompt); !ok {
			errors = append(errors, reason)
		}
	}

	if schedule, ok := cfg["schedule"].(map[string]any); ok && len(schedule) > 0 {
		if ok, reason := ValidateChange(agentID, "schedule", nil, schedule); !ok {
			errors = append(errors, reason)
		}
	}

	return len(errors) == 0, errors
}

// asFloat widens any numeric JSON or Go value to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
