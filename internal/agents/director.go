package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/guardrails"
	"github.com/teemow/inboxpilot/internal/ledger"
	"github.com/teemow/inboxpilot/internal/logging"
)

// DirectorAgent is the meta-agent: it reviews every other agent's recent
// executions and metrics and applies schedule or enablement adjustments,
// each gated by the guardrail validator. It never modifies itself.
type DirectorAgent struct {
	ai       ai.Service
	registry *Registry
	store    *ledger.Store
	log      *slog.Logger
}

// NewDirectorAgent creates the director strategy.
func NewDirectorAgent(svc ai.Service, registry *Registry, store *ledger.Store, logger *slog.Logger) *DirectorAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectorAgent{ai: svc, registry: registry, store: store, log: logger}
}

func (a *DirectorAgent) ID() string          { return "director" }
func (a *DirectorAgent) DisplayName() string { return "Director" }

type agentReport struct {
	AgentID           string               `json:"agent_id"`
	Enabled           bool                 `json:"enabled"`
	Schedule          map[string]any       `json:"schedule"`
	RecentExecutions  int                  `json:"recent_executions"`
	RecentSuccessRate float64              `json:"recent_success_rate"`
	WeeklyMetrics     []ledger.DailyMetric `json:"weekly_metrics"`
}

type adjustment struct {
	AgentID     string         `json:"agent_id"`
	Action      string         `json:"action"`
	NewSchedule map[string]any `json:"new_schedule"`
	Reason      string         `json:"reason"`
}

type directorVerdict struct {
	Adjustments []adjustment `json:"adjustments"`
	Summary     string       `json:"summary"`
}

// Execute reviews the department and applies approved adjustments.
func (a *DirectorAgent) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	reports, err := a.collectReports(ctx)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return OK(map[string]any{"message": "No agents to review"}).
			WithActions("reviewed_department"), nil
	}

	verdict, err := a.review(ctx, cfg, reports)
	if err != nil {
		return nil, fmt.Errorf("department review: %w", err)
	}

	applied := a.apply(ctx, verdict)

	return OK(map[string]any{
		"summary":              verdict.Summary,
		"adjustments_proposed": len(verdict.Adjustments),
		"adjustments_applied":  len(applied),
		"applied":              applied,
	}).WithActions("reviewed_department", fmt.Sprintf("applied_%d_changes", len(applied))), nil
}

func (a *DirectorAgent) collectReports(ctx context.Context) ([]agentReport, error) {
	var reports []agentReport
	for _, unit := range a.registry.All() {
		if unit.ID() == a.ID() {
			continue
		}
		executions, err := a.store.Executions(ctx, unit.ID(), 10)
		if err != nil {
			return nil, fmt.Errorf("load executions for %s: %w", unit.ID(), err)
		}
		metrics, err := a.store.Metrics(ctx, unit.ID(), 7)
		if err != nil {
			return nil, fmt.Errorf("load metrics for %s: %w", unit.ID(), err)
		}

		succeeded := 0
		for _, e := range executions {
			if e.Success {
				succeeded++
			}
		}
		rate := 1.0
		if len(executions) > 0 {
			rate = float64(succeeded) / float64(len(executions))
		}

		unitCfg := unit.Config()
		reports = append(reports, agentReport{
			AgentID:           unit.ID(),
			Enabled:           unitCfg.Enabled,
			Schedule:          unitCfg.Schedule.ToMap(),
			RecentExecutions:  len(executions),
			RecentSuccessRate: rate,
			WeeklyMetrics:     metrics,
		})
	}
	return reports, nil
}

func (a *DirectorAgent) review(ctx context.Context, cfg *Config, reports []agentReport) (*directorVerdict, error) {
	encoded, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal reports: %w", err)
	}

	prompt := fmt.Sprintf(`Review these email agent performance reports and suggest schedule adjustments.

%s

Respond with a JSON object:
{"adjustments": [{"agent_id": "...", "action": "reschedule|enable|disable", "new_schedule": {...}, "reason": "..."}], "summary": "Brief overview of department health"}

Only suggest changes if clearly beneficial. Respond ONLY with JSON.`, encoded)

	system := cfg.SystemPrompt
	if system == "" {
		system = "You are the director of an email agent department. Respond ONLY with valid JSON."
	}

	text, err := a.ai.Generate(ctx, prompt, system)
	if err != nil {
		return nil, err
	}

	obj := ai.ExtractObject(text, map[string]any{"adjustments": []any{}, "summary": "No changes needed"})
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("remarshal verdict: %w", err)
	}
	var verdict directorVerdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return &directorVerdict{Summary: "No changes needed"}, nil
	}
	if verdict.Summary == "" {
		verdict.Summary = "No changes needed"
	}
	return &verdict, nil
}

// apply walks the proposed adjustments. Rejections are logged and skipped;
// they never fail the director run.
func (a *DirectorAgent) apply(ctx context.Context, verdict *directorVerdict) []map[string]string {
	var applied []map[string]string
	for _, adj := range verdict.Adjustments {
		// The director cannot modify itself; the guardrails would reject
		// it anyway, this just skips the ledger noise.
		if adj.AgentID == a.ID() {
			continue
		}
		unit, ok := a.registry.Get(adj.AgentID)
		if !ok {
			a.log.Warn("director adjustment for unknown agent", logging.Agent(adj.AgentID))
			continue
		}

		switch adj.Action {
		case "reschedule":
			if a.reschedule(ctx, unit, adj, verdict.Summary) {
				applied = append(applied, map[string]string{"agent_id": adj.AgentID, "action": "rescheduled"})
			}
		case "enable", "disable":
			if a.setEnabled(ctx, unit, adj, adj.Action == "enable") {
				applied = append(applied, map[string]string{"agent_id": adj.AgentID, "action": adj.Action + "d"})
			}
		default:
			a.log.Warn("director proposed unknown action",
				logging.Agent(adj.AgentID), slog.String("action", adj.Action))
		}
	}
	return applied
}

func (a *DirectorAgent) reschedule(ctx context.Context, unit *Unit, adj adjustment, reasoning string) bool {
	if adj.NewSchedule == nil {
		return false
	}
	oldSchedule := unit.Config().Schedule.ToMap()
	ok, reason := guardrails.ValidateChange(adj.AgentID, "schedule", oldSchedule, adj.NewSchedule)
	if !ok {
		a.log.Warn("director schedule change rejected",
			logging.Agent(adj.AgentID), slog.String("reason", reason))
		return false
	}

	before := unit.Config().Version
	cfg, err := unit.SaveConfig(func(c *Config) {
		c.Schedule = ScheduleFromMap(adj.NewSchedule)
	})
	if err != nil {
		a.log.Error("director reschedule save failed", logging.Agent(adj.AgentID), logging.Err(err))
		return false
	}

	if err := a.store.RecordConfigChange(ctx, ledger.ConfigChangeInput{
		AgentID:       adj.AgentID,
		VersionBefore: before,
		VersionAfter:  cfg.Version,
		FieldChanged:  "schedule",
		OldValue:      oldSchedule,
		NewValue:      adj.NewSchedule,
		Reason:        adj.Reason,
		ProposedBy:    "director",
		Approved:      true,
		Reasoning:     reasoning,
	}); err != nil {
		a.log.Error("director audit write failed", logging.Agent(adj.AgentID), logging.Err(err))
	}
	return true
}

func (a *DirectorAgent) setEnabled(ctx context.Context, unit *Unit, adj adjustment, enabled bool) bool {
	before := unit.Config()
	if before.Enabled == enabled {
		return false
	}
	cfg, err := unit.SaveConfig(func(c *Config) {
		c.Enabled = enabled
	})
	if err != nil {
		a.log.Error("director enablement save failed", logging.Agent(adj.AgentID), logging.Err(err))
		return false
	}

	if err := a.store.RecordConfigChange(ctx, ledger.ConfigChangeInput{
		AgentID:       adj.AgentID,
		VersionBefore: before.Version,
		VersionAfter:  cfg.Version,
		FieldChanged:  "enabled",
		OldValue:      before.Enabled,
		NewValue:      enabled,
		Reason:        adj.Reason,
		ProposedBy:    "director",
		Approved:      true,
	}); err != nil {
		a.log.Error("director audit write failed", logging.Agent(adj.AgentID), logging.Err(err))
	}
	return true
}
