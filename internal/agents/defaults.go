package agents

// DefaultConfigs returns the factory configuration for every agent, keyed by
// agent ID. These are the version-1 configs installed on first run; after
// that the persisted files win.
func DefaultConfigs() map[string]*Config {
	return map[string]*Config{
		"briefing": {
			AgentID:     "briefing",
			Version:     1,
			Enabled:     true,
			DisplayName: "Briefing Agent",
			SystemPrompt: "You summarize recent inbox activity into a short morning briefing. " +
				"Lead with anything urgent, then group the rest by topic.",
			Thresholds: map[string]float64{"hours_back": 12},
			Weights:    map[string]float64{},
			Schedule:   Schedule{Type: ScheduleCron, Hour: "7", Minute: "0", DayOfWeek: "*"},
			Metadata:   map[string]any{},
		},
		"triage": {
			AgentID:     "triage",
			Version:     1,
			Enabled:     true,
			DisplayName: "Triage Agent",
			SystemPrompt: "You classify unread emails by priority. " +
				"high means the user must act today, medium this week, low is informational.",
			Thresholds: map[string]float64{"max_emails": 50},
			Weights:    map[string]float64{},
			Schedule:   Schedule{Type: ScheduleInterval, Minutes: 30},
			Metadata:   map[string]any{},
		},
		"vip_monitor": {
			AgentID:      "vip_monitor",
			Version:      1,
			Enabled:      true,
			DisplayName:  "VIP Monitor",
			SystemPrompt: "You watch for unread email from designated VIP contacts and domains.",
			Thresholds:   map[string]float64{"alert_on_count": 1},
			Weights:      map[string]float64{},
			Schedule:     Schedule{Type: ScheduleInterval, Minutes: 15},
			Metadata:     map[string]any{},
		},
		"cleanup": {
			AgentID:     "cleanup",
			Version:     1,
			Enabled:     true,
			DisplayName: "Cleanup Agent",
			SystemPrompt: "You identify newsletters and promotions that can be archived or deleted. " +
				"Only mark delete for clear junk; when unsure, archive.",
			Thresholds: map[string]float64{"max_emails": 50},
			Weights:    map[string]float64{},
			Schedule:   Schedule{Type: ScheduleCron, Hour: "8", Minute: "0", DayOfWeek: "*"},
			Metadata:   map[string]any{"auto_archive": true, "auto_delete": false},
		},
		"inbox_zero": {
			AgentID:     "inbox_zero",
			Version:     1,
			Enabled:     true,
			DisplayName: "Inbox Zero Agent",
			SystemPrompt: "You process unread inbox email in small batches, deciding per message: " +
				"read_archive, junk, or action_needed.",
			Thresholds: map[string]float64{"batch_size": 10},
			Weights:    map[string]float64{},
			Schedule:   Schedule{Type: ScheduleInterval, Minutes: 60},
			Metadata:   map[string]any{},
		},
		"digest": {
			AgentID:      "digest",
			Version:      1,
			Enabled:      true,
			DisplayName:  "Digest Agent",
			SystemPrompt: "You turn weekly inbox statistics into a brief, friendly narrative digest.",
			Thresholds:   map[string]float64{},
			Weights:      map[string]float64{},
			Schedule:     Schedule{Type: ScheduleCron, Hour: "17", Minute: "0", DayOfWeek: "0"},
			Metadata:     map[string]any{},
		},
		"voice": {
			AgentID:      "voice",
			Version:      1,
			Enabled:      true,
			DisplayName:  "Voice Agent",
			SystemPrompt: "You answer spoken questions about the user's inbox in one or two short sentences.",
			Thresholds:   map[string]float64{},
			Weights:      map[string]float64{},
			Schedule:     Schedule{Type: ScheduleEvent},
			Metadata:     map[string]any{},
		},
		"director": {
			AgentID:     "director",
			Version:     1,
			Enabled:     true,
			DisplayName: "Director",
			SystemPrompt: "You are the director of an email agent department. " +
				"Review agent performance reports and suggest schedule adjustments only when clearly beneficial.",
			Thresholds: map[string]float64{},
			Weights:    map[string]float64{},
			Schedule:   Schedule{Type: ScheduleManual},
			Metadata:   map[string]any{},
		},
	}
}

// DefaultConfig returns the factory config for one agent. Unknown IDs get a
// minimal manual-schedule config so a caller never receives nil.
func DefaultConfig(agentID string) *Config {
	if cfg, ok := DefaultConfigs()[agentID]; ok {
		return cfg
	}
	return &Config{
		AgentID:    agentID,
		Version:    1,
		Enabled:    false,
		Thresholds: map[string]float64{},
		Weights:    map[string]float64{},
		Schedule:   Schedule{Type: ScheduleManual},
		Metadata:   map[string]any{},
	}
}
