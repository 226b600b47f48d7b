// Package learning closes the feedback loop: it records executions and
// user feedback in the ledger, and once enough feedback accumulates it asks
// the completion service for a config evolution, validates it against the
// guardrails, and applies it.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/inboxpilot/internal/agents"
	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/guardrails"
	"github.com/teemow/inboxpilot/internal/ledger"
	"github.com/teemow/inboxpilot/internal/logging"
)

// MinFeedbackForEvolution is how many unprocessed feedback entries an agent
// needs before an evolution proposal is even attempted.
const MinFeedbackForEvolution = 5

// Manager wires the registry, the ledger, and the completion service.
type Manager struct {
	store    *ledger.Store
	registry *agents.Registry
	ai       ai.Service
	log      *slog.Logger
}

// NewManager creates a learning manager.
func NewManager(store *ledger.Store, registry *agents.Registry, svc ai.Service, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, registry: registry, ai: svc, log: logger}
}

// RecordExecution logs one agent run and folds it into the daily metrics.
// Returns the execution ID for feedback references.
func (m *Manager) RecordExecution(ctx context.Context, agentID string, result *agents.Result, configVersion int) (int64, error) {
	in := ledger.ExecutionInput{
		AgentID:         agentID,
		ConfigVersion:   configVersion,
		Success:         result.Success,
		ExecutionTimeMS: result.ExecutionTimeMS,
		EmailsProcessed: result.EmailsProcessed,
		ActionsTaken:    result.ActionsTaken,
		ResultData:      result.Data,
		Error:           result.Error,
	}
	id, err := m.store.RecordExecution(ctx, in)
	if err != nil {
		return 0, err
	}
	if err := m.store.UpdateDailyMetrics(ctx, in); err != nil {
		return 0, err
	}
	return id, nil
}

// RecordFeedback stores user feedback for later evolution runs.
func (m *Manager) RecordFeedback(ctx context.Context, agentID string, executionID *int64, feedbackType string, data map[string]any) error {
	if err := m.store.RecordFeedback(ctx, agentID, executionID, feedbackType, data); err != nil {
		return err
	}
	m.log.Info("feedback recorded",
		logging.Agent(agentID), slog.String("feedback_type", feedbackType))
	return nil
}

// ProposeEvolution checks whether an agent has accumulated enough feedback
// and, if so, asks the completion service for a config change. All consumed
// feedback is marked processed whether or not a change comes back; the
// proposal is returned only when every field passes the guardrails.
func (m *Manager) ProposeEvolution(ctx context.Context, agentID string) (map[string]any, error) {
	feedback, err := m.store.UnprocessedFeedback(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if len(feedback) < MinFeedbackForEvolution {
		return nil, nil
	}

	unit, ok := m.registry.Get(agentID)
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", agentID)
	}

	evalContext, err := m.buildContext(ctx, agentID, unit, feedback)
	if err != nil {
		return nil, err
	}

	proposal, aiErr := m.ai.EvaluateConfigChange(ctx, agentID, unit.Config().ToMap(), evalContext)

	// The feedback batch is consumed either way; re-proposing on the same
	// stale batch would loop forever.
	ids := make([]int64, len(feedback))
	for i, f := range feedback {
		ids[i] = f.ID
	}
	if err := m.store.MarkFeedbackProcessed(ctx, ids); err != nil {
		return nil, err
	}

	if aiErr != nil {
		m.log.Warn("evolution proposal failed", logging.Agent(agentID), logging.Err(aiErr))
		return nil, nil
	}
	if proposal == nil || !proposal.Approve || len(proposal.ModifiedChange) == 0 {
		return nil, nil
	}

	// All-or-nothing: one rejected field vetoes the whole change.
	for field, value := range proposal.ModifiedChange {
		if ok, reason := validateField(agentID, field, value); !ok {
			m.log.Warn("evolution rejected by guardrails",
				logging.Agent(agentID), slog.String("field", field), slog.String("reason", reason))
			return nil, nil
		}
	}
	return proposal.ModifiedChange, nil
}

// EvolveIfReady is the post-execution evolution step: propose, then apply
// when a validated change comes back. Reports whether the config changed.
func (m *Manager) EvolveIfReady(ctx context.Context, agentID string) (bool, error) {
	change, err := m.ProposeEvolution(ctx, agentID)
	if err != nil {
		return false, err
	}
	if len(change) == 0 {
		return false, nil
	}
	if err := m.ApplyEvolution(ctx, agentID, change, "accumulated user feedback"); err != nil {
		return false, err
	}
	m.log.Info("agent config evolved", logging.Agent(agentID))
	return true, nil
}

// validateField runs a proposed change field through the guardrails.
// Threshold and weight maps are validated entry by entry so a bad value
// cannot hide inside a nested map.
func validateField(agentID, field string, value any) (bool, string) {
	switch field {
	case "thresholds", "weights":
		vals, ok := value.(map[string]any)
		if !ok {
			return false, fmt.Sprintf("%s must be a map", field)
		}
		for key, v := range vals {
			if ok, reason := guardrails.ValidateChange(agentID, key, nil, v); !ok {
				return false, reason
			}
		}
		return true, "ok"
	default:
		return guardrails.ValidateChange(agentID, field, nil, value)
	}
}

func (m *Manager) buildContext(ctx context.Context, agentID string, unit *agents.Unit, feedback []ledger.FeedbackRecord) (map[string]any, error) {
	executions, err := m.store.Executions(ctx, agentID, 10)
	if err != nil {
		return nil, err
	}
	metrics, err := m.store.Metrics(ctx, agentID, 7)
	if err != nil {
		return nil, err
	}

	positive, negative := 0, 0
	for _, f := range feedback {
		switch f.FeedbackType {
		case "thumbs_up":
			positive++
		case "thumbs_down":
			negative++
		}
	}

	succeeded := 0
	for _, e := range executions {
		if e.Success {
			succeeded++
		}
	}
	successRate := 1.0
	if len(executions) > 0 {
		successRate = float64(succeeded) / float64(len(executions))
	}

	return map[string]any{
		"agent_id":       agentID,
		"current_config": unit.Config().ToMap(),
		"feedback_summary": map[string]any{
			"total":    len(feedback),
			"positive": positive,
			"negative": negative,
		},
		"recent_performance": map[string]any{
			"executions":   len(executions),
			"success_rate": successRate,
		},
		"weekly_metrics": metrics,
	}, nil
}

// ApplyEvolution merges a validated change into the agent's config, saves
// it, and writes the audit record. Map-valued fields merge key by key;
// scalar fields replace.
func (m *Manager) ApplyEvolution(ctx context.Context, agentID string, change map[string]any, reason string) error {
	unit, ok := m.registry.Get(agentID)
	if !ok {
		return fmt.Errorf("unknown agent %q", agentID)
	}

	before := unit.Config()
	fields := make([]string, 0, len(change))
	cfg, err := unit.SaveConfig(func(c *agents.Config) {
		for field, value := range change {
			fields = append(fields, field)
			switch field {
			case "thresholds":
				if vals, ok := value.(map[string]any); ok {
					for k, v := range vals {
						if f, ok := asFloat(v); ok {
							c.Thresholds[k] = f
						}
					}
				}
			case "weights":
				if vals, ok := value.(map[string]any); ok {
					for k, v := range vals {
						if f, ok := asFloat(v); ok {
							c.Weights[k] = f
						}
					}
				}
			case "system_prompt":
				if s, ok := value.(string); ok {
					c.SystemPrompt = s
				}
			case "schedule":
				if sched, ok := value.(map[string]any); ok {
					c.Schedule = agents.ScheduleFromMap(sched)
				}
			}
		}
	})
	if err != nil {
		return err
	}

	return m.store.RecordConfigChange(ctx, ledger.ConfigChangeInput{
		AgentID:       agentID,
		VersionBefore: before.Version,
		VersionAfter:  cfg.Version,
		FieldChanged:  strings.Join(fields, ","),
		OldValue:      "(see previous version)",
		NewValue:      change,
		Reason:        reason,
		ProposedBy:    "learning_manager",
		Approved:      true,
		Reasoning:     fmt.Sprintf("Automatic evolution after %d+ feedback points", MinFeedbackForEvolution),
	})
}

// EvolutionHistory returns the audit entries written by automatic evolution
// for one agent, newest first.
func (m *Manager) EvolutionHistory(ctx context.Context, agentID string, limit int) ([]ledger.ConfigChangeRecord, error) {
	changes, err := m.store.AuditLog(ctx, agentID, limit)
	if err != nil {
		return nil, err
	}
	history := make([]ledger.ConfigChangeRecord, 0, len(changes))
	for _, c := range changes {
		if c.ProposedBy == "learning_manager" {
			history = append(history, c)
		}
	}
	return history, nil
}

// AuditLog returns all config changes, newest first, filtered to one agent
// when agentID is non-empty.
func (m *Manager) AuditLog(ctx context.Context, agentID string, limit int) ([]ledger.ConfigChangeRecord, error) {
	return m.store.AuditLog(ctx, agentID, limit)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
