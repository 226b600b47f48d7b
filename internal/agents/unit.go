package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/inboxpilot/internal/logging"
)

// Strategy is the behavior of a single agent. Implementations receive a
// snapshot of the agent's config on every run and must not retain it.
type Strategy interface {
	// ID returns the stable agent identifier, e.g. "triage".
	ID() string
	// DisplayName returns a human-readable name for status output.
	DisplayName() string
	// Execute performs one run. Returning an error marks the run failed;
	// the unit converts it into a failed Result rather than propagating.
	Execute(ctx context.Context, cfg *Config) (*Result, error)
}

// Unit wraps a Strategy with config persistence and run containment. A
// failing or panicking strategy never takes the process down; the failure
// is captured as a Result so callers can record it.
type Unit struct {
	strategy Strategy
	store    *ConfigStore
	log      *slog.Logger

	mu         sync.Mutex
	cfg        *Config
	lastRun    time.Time
	lastResult *Result
}

// Status is a point-in-time snapshot of a unit for status endpoints.
type Status struct {
	AgentID       string         `json:"agent_id"`
	DisplayName   string         `json:"display_name"`
	Enabled       bool           `json:"enabled"`
	ConfigVersion int            `json:"config_version"`
	Schedule      map[string]any `json:"schedule"`
	LastRun       *time.Time     `json:"last_run,omitempty"`
	LastResult    *Result        `json:"last_result,omitempty"`
}

// NewUnit builds a unit, loading persisted config on top of defaults.
func NewUnit(strategy Strategy, store *ConfigStore, defaults *Config, logger *slog.Logger) *Unit {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := store.Load(defaults)
	return &Unit{
		strategy: strategy,
		store:    store,
		log:      logging.WithAgent(logger, strategy.ID()),
		cfg:      cfg,
	}
}

// ID returns the wrapped strategy's identifier.
func (u *Unit) ID() string { return u.strategy.ID() }

// DisplayName returns the wrapped strategy's display name.
func (u *Unit) DisplayName() string { return u.strategy.DisplayName() }

// Config returns a deep copy of the current config. Mutating the copy has
// no effect until it is passed back through SaveConfig.
func (u *Unit) Config() *Config {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cfg.Clone()
}

// Enabled reports whether the agent is currently enabled.
func (u *Unit) Enabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cfg.Enabled
}

// SaveConfig applies mutate to a copy of the current config, persists it
// (bumping the version), and installs it as the live config.
func (u *Unit) SaveConfig(mutate func(cfg *Config)) (*Config, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	next := u.cfg.Clone()
	if mutate != nil {
		mutate(next)
	}
	if err := u.store.Save(next); err != nil {
		return nil, err
	}
	u.cfg = next
	return next.Clone(), nil
}

// ReplaceConfig persists cfg as the new live config. Used when a fully
// formed config has already been validated elsewhere.
func (u *Unit) ReplaceConfig(cfg *Config) (*Config, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	next := cfg.Clone()
	next.AgentID = u.strategy.ID()
	if err := u.store.Save(next); err != nil {
		return nil, err
	}
	u.cfg = next
	return next.Clone(), nil
}

// Run executes the strategy once with full containment. Strategy errors and
// panics are converted into a failed Result; Run itself never returns an
// error to the caller.
func (u *Unit) Run(ctx context.Context) *Result {
	cfg := u.Config()
	start := time.Now()

	result := u.execute(ctx, cfg)

	result.ExecutionTimeMS = time.Since(start).Milliseconds()

	u.mu.Lock()
	u.lastRun = start
	u.lastResult = result
	u.mu.Unlock()

	status := logging.StatusSuccess
	if !result.Success {
		status = logging.StatusError
	}
	u.log.Info("agent run finished",
		logging.Status(status),
		logging.DurationMS(result.ExecutionTimeMS),
		slog.Int("emails_processed", result.EmailsProcessed),
	)
	return result
}

func (u *Unit) execute(ctx context.Context, cfg *Config) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			u.log.Error("agent panicked", slog.Any("panic", r))
			result = Failed(fmt.Errorf("agent panicked: %v", r))
		}
	}()

	res, err := u.strategy.Execute(ctx, cfg)
	if err != nil {
		return Failed(err)
	}
	if res == nil {
		return Failed(fmt.Errorf("agent %s returned no result", u.strategy.ID()))
	}
	return res
}

// Status returns a snapshot of the unit's config and last run.
func (u *Unit) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := Status{
		AgentID:       u.cfg.AgentID,
		DisplayName:   u.strategy.DisplayName(),
		Enabled:       u.cfg.Enabled,
		ConfigVersion: u.cfg.Version,
		Schedule:      u.cfg.Schedule.ToMap(),
		LastResult:    u.lastResult,
	}
	if !u.lastRun.IsZero() {
		t := u.lastRun
		st.LastRun = &t
	}
	return st
}
