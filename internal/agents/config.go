// Package agents implements the agent framework: versioned per-agent
// configuration, the execution envelope, the registry, and the concrete
// email agents.
package agents

import (
	"time"
)

// Schedule types. Manual and event schedules are never auto-fired by the
// scheduler.
const (
	ScheduleInterval = "interval"
	ScheduleCron     = "cron"
	ScheduleManual   = "manual"
	ScheduleEvent    = "event"
)

// Schedule is a discriminated schedule spec. Interval schedules carry a
// positive minute count; cron schedules carry hour/minute/day-of-week fields
// where an empty field means "any".
type Schedule struct {
	Type      string `json:"type"`
	Minutes   int    `json:"minutes,omitempty"`
	Hour      string `json:"hour,omitempty"`
	Minute    string `json:"minute,omitempty"`
	DayOfWeek string `json:"day_of_week,omitempty"`
}

// AutoSchedulable reports whether the scheduler should create a job for
// this spec.
func (s Schedule) AutoSchedulable() bool {
	return s.Type == ScheduleInterval || s.Type == ScheduleCron
}

// Interval returns the firing period for interval schedules.
func (s Schedule) Interval() time.Duration {
	return time.Duration(s.Minutes) * time.Minute
}

// ToMap converts the schedule to the generic form the guardrail validator
// and the completion service operate on.
func (s Schedule) ToMap() map[string]any {
	m := map[string]any{"type": s.Type}
	if s.Type == ScheduleInterval {
		m["minutes"] = float64(s.Minutes)
	}
	if s.Type == ScheduleCron {
		m["hour"] = s.Hour
		m["minute"] = s.Minute
		m["day_of_week"] = s.DayOfWeek
	}
	return m
}

// ScheduleFromMap parses the generic form back into a spec. Unknown keys are
// ignored; missing cron fields default to "any".
func ScheduleFromMap(m map[string]any) Schedule {
	s := Schedule{}
	s.Type, _ = m["type"].(string)
	switch v := m["minutes"].(type) {
	case float64:
		s.Minutes = int(v)
	case int:
		s.Minutes = v
	}
	s.Hour, _ = m["hour"].(string)
	s.Minute, _ = m["minute"].(string)
	s.DayOfWeek, _ = m["day_of_week"].(string)
	return s
}

// Config is the versioned, self-modifiable configuration of one agent.
//
// Every successful save increments Version by exactly one; the version is
// the sole ordering signal for the audit trail. Configs are created from
// defaults on first run, loaded from disk afterwards, and mutated only
// through ConfigStore.Save.
type Config struct {
	AgentID      string             `json:"agent_id"`
	Version      int                `json:"version"`
	Enabled      bool               `json:"enabled"`
	DisplayName  string             `json:"display_name"`
	SystemPrompt string             `json:"system_prompt"`
	Thresholds   map[string]float64 `json:"thresholds"`
	Weights      map[string]float64 `json:"weights"`
	Schedule     Schedule           `json:"schedule"`
	Metadata     map[string]any     `json:"metadata"`
}

// Threshold returns a named threshold, falling back to def when unset.
func (c *Config) Threshold(name string, def float64) float64 {
	if v, ok := c.Thresholds[name]; ok {
		return v
	}
	return def
}

// Flag returns a named boolean from metadata, falling back to def.
func (c *Config) Flag(name string, def bool) bool {
	if v, ok := c.Metadata[name].(bool); ok {
		return v
	}
	return def
}

// Clone returns a deep copy so callers can read or mutate without racing
// concurrent saves.
func (c *Config) Clone() *Config {
	out := *c
	out.Thresholds = make(map[string]float64, len(c.Thresholds))
	for k, v := range c.Thresholds {
		out.Thresholds[k] = v
	}
	out.Weights = make(map[string]float64, len(c.Weights))
	for k, v := range c.Weights {
		out.Weights[k] = v
	}
	out.Metadata = make(map[string]any, len(c.Metadata))
	for k, v := range c.Metadata {
		out.Metadata[k] = v
	}
	return &out
}

// ToMap converts the config to the generic form used by the guardrail
// validator and the completion-service prompts.
func (c *Config) ToMap() map[string]any {
	thresholds := make(map[string]any, len(c.Thresholds))
	for k, v := range c.Thresholds {
		thresholds[k] = v
	}
	weights := make(map[string]any, len(c.Weights))
	for k, v := range c.Weights {
		weights[k] = v
	}
	return map[string]any{
		"agent_id":      c.AgentID,
		"version":       c.Version,
		"enabled":       c.Enabled,
		"display_name":  c.DisplayName,
		"system_prompt": c.SystemPrompt,
		"thresholds":    thresholds,
		"weights":       weights,
		"schedule":      c.Schedule.ToMap(),
		"metadata":      c.Metadata,
	}
}
