// Package scheduler drives the agents: it turns each enabled agent's
// schedule spec into a cron job, funnels every run (scheduled or manual)
// through a single entry point, and fires the director after every tenth
// agent execution so the department gets reviewed continuously.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teemow/inboxpilot/internal/agents"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/learning"
	"github.com/teemow/inboxpilot/internal/logging"
)

// DirectorRunEveryN is how many agent executions pass between director
// reviews. Director runs themselves do not advance the counter.
const DirectorRunEveryN = 10

// DirectorAgentID is the registry ID of the meta-agent that reviews the
// others. It is never given a cron job of its own.
const DirectorAgentID = "director"

// JobInfo describes one scheduled job for status endpoints.
type JobInfo struct {
	AgentID string    `json:"agent_id"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
}

// Option configures optional scheduler collaborators.
type Option func(*Scheduler)

// WithMetrics attaches a metrics recorder to the execution path.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler owns the cron runner and the execution counter.
type Scheduler struct {
	registry *agents.Registry
	learning *learning.Manager
	metrics  *instrumentation.Metrics
	log      *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
	specs   map[string]string
	runMu   map[string]*sync.Mutex

	counter int64
}

// New creates a scheduler. Start must be called before any jobs fire.
func New(registry *agents.Registry, manager *learning.Manager, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		registry: registry,
		learning: manager,
		log:      logger,
		entries:  make(map[string]cron.EntryID),
		specs:    make(map[string]string),
		runMu:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates one cron job per enabled, auto-schedulable agent and begins
// firing them. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New()

	for _, unit := range s.registry.Enabled() {
		if err := s.addJobLocked(unit); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.log.Info("scheduler started", slog.Int("jobs", len(s.entries)))
	return nil
}

// Stop halts the cron runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.entries = make(map[string]cron.EntryID)
	s.specs = make(map[string]string)
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		s.log.Info("scheduler stopped")
	}
}

// TriggerAgent runs an agent immediately through the same path scheduled
// jobs use, so manual runs are recorded and counted identically. Disabled
// agents do not run, not even manually.
func (s *Scheduler) TriggerAgent(ctx context.Context, agentID string) (*agents.Result, error) {
	unit, ok := s.registry.Get(agentID)
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", agentID)
	}
	if !unit.Enabled() {
		return nil, fmt.Errorf("agent %q is disabled", agentID)
	}
	return s.runAgent(ctx, unit), nil
}

// Reschedule rebuilds the cron job for one agent from its current config.
// Called after any config change that may have touched the schedule or the
// enabled flag.
func (s *Scheduler) Reschedule(agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	unit, ok := s.registry.Get(agentID)
	if !ok {
		return fmt.Errorf("unknown agent %q", agentID)
	}
	s.removeJobLocked(agentID)
	return s.addJobLocked(unit)
}

// Jobs lists the currently scheduled jobs.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobInfo, 0, len(s.entries))
	if s.cron == nil {
		return jobs
	}
	for agentID, id := range s.entries {
		entry := s.cron.Entry(id)
		jobs = append(jobs, JobInfo{AgentID: agentID, Spec: s.specs[agentID], NextRun: entry.Next})
	}
	return jobs
}

// ExecutionCount returns how many non-director runs have completed.
func (s *Scheduler) ExecutionCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Running reports whether the cron loop has been started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// addJobLocked registers a cron job for the unit if its schedule calls for
// one. The director never gets a job; it runs on the execution counter.
func (s *Scheduler) addJobLocked(unit *agents.Unit) error {
	agentID := unit.ID()
	if agentID == DirectorAgentID {
		return nil
	}
	cfg := unit.Config()
	if !cfg.Enabled || !cfg.Schedule.AutoSchedulable() {
		return nil
	}

	spec, err := cronSpec(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("agent %s: %w", agentID, err)
	}
	id, err := s.cron.AddFunc(spec, func() {
		s.runAgent(s.ctx, unit)
	})
	if err != nil {
		return fmt.Errorf("agent %s: schedule %q: %w", agentID, spec, err)
	}
	s.entries[agentID] = id
	s.specs[agentID] = spec
	s.log.Info("job scheduled", logging.Agent(agentID), slog.String("spec", spec))
	return nil
}

func (s *Scheduler) removeJobLocked(agentID string) {
	if id, ok := s.entries[agentID]; ok {
		s.cron.Remove(id)
		delete(s.entries, agentID)
		delete(s.specs, agentID)
	}
}

// runAgent is the single execution path. A per-agent mutex serializes
// overlapping runs of the same agent; different agents run concurrently.
func (s *Scheduler) runAgent(ctx context.Context, unit *agents.Unit) *agents.Result {
	agentID := unit.ID()
	lock := s.runLock(agentID)
	lock.Lock()
	defer lock.Unlock()

	configVersion := unit.Config().Version
	ctx, span := instrumentation.StartAgentSpan(ctx, agentID,
		instrumentation.NewSpanAttributeBuilder().WithConfigVersion(configVersion).Build()...)
	defer span.End()

	result := unit.Run(ctx)
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithEmailCount(result.EmailsProcessed).Build()...)
	if result.Success {
		instrumentation.SetSpanSuccess(span)
	} else {
		instrumentation.SetSpanError(span, errors.New(result.Error))
	}

	if _, err := s.learning.RecordExecution(ctx, agentID, result, configVersion); err != nil {
		s.log.Error("failed to record execution", logging.Agent(agentID), logging.Err(err))
	}
	if s.metrics != nil {
		status := instrumentation.StatusSuccess
		if !result.Success {
			status = instrumentation.StatusError
		}
		s.metrics.RecordAgentExecution(ctx, agentID, status, result.EmailsProcessed,
			time.Duration(result.ExecutionTimeMS)*time.Millisecond)
	}

	if agentID == DirectorAgentID {
		return result
	}

	// Every execution ends with the evolution check; a config change only
	// comes back once enough feedback has accumulated and survived the
	// guardrails. An evolved schedule needs its cron job rebuilt.
	evolved, err := s.learning.EvolveIfReady(ctx, agentID)
	if err != nil {
		s.log.Error("evolution check failed", logging.Agent(agentID), logging.Err(err))
	} else if evolved {
		if err := s.Reschedule(agentID); err != nil {
			s.log.Error("reschedule after evolution failed", logging.Agent(agentID), logging.Err(err))
		}
	}

	s.mu.Lock()
	s.counter++
	due := s.counter%DirectorRunEveryN == 0
	s.mu.Unlock()

	if due {
		s.runDirector(ctx)
	}
	return result
}

// runDirector executes the director and then reconciles the cron jobs,
// since the director may have rescheduled or disabled agents.
func (s *Scheduler) runDirector(ctx context.Context) {
	unit, ok := s.registry.Get(DirectorAgentID)
	if !ok || !unit.Enabled() {
		return
	}
	lock := s.runLock(DirectorAgentID)
	lock.Lock()
	ctx, span := instrumentation.StartAgentSpan(ctx, DirectorAgentID,
		instrumentation.NewSpanAttributeBuilder().WithConfigVersion(unit.Config().Version).Build()...)
	result := unit.Run(ctx)
	if result.Success {
		instrumentation.SetSpanSuccess(span)
	} else {
		instrumentation.SetSpanError(span, errors.New(result.Error))
	}
	span.End()
	if _, err := s.learning.RecordExecution(ctx, DirectorAgentID, result, unit.Config().Version); err != nil {
		s.log.Error("failed to record execution", logging.Agent(DirectorAgentID), logging.Err(err))
	}
	if s.metrics != nil {
		status := instrumentation.StatusSuccess
		if !result.Success {
			status = instrumentation.StatusError
		}
		s.metrics.RecordAgentExecution(ctx, DirectorAgentID, status, result.EmailsProcessed,
			time.Duration(result.ExecutionTimeMS)*time.Millisecond)
	}
	lock.Unlock()

	s.reconcile()
}

// reconcile realigns the cron jobs with the current state of every agent
// config. Jobs whose spec no longer matches are rebuilt; jobs for disabled
// or non-schedulable agents are removed.
func (s *Scheduler) reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}

	for _, unit := range s.registry.All() {
		agentID := unit.ID()
		if agentID == DirectorAgentID {
			continue
		}
		cfg := unit.Config()

		wantJob := cfg.Enabled && cfg.Schedule.AutoSchedulable()
		if !wantJob {
			s.removeJobLocked(agentID)
			continue
		}
		spec, err := cronSpec(cfg.Schedule)
		if err != nil {
			s.log.Error("invalid schedule after reconcile", logging.Agent(agentID), logging.Err(err))
			s.removeJobLocked(agentID)
			continue
		}
		if s.specs[agentID] == spec {
			continue
		}
		s.removeJobLocked(agentID)
		if err := s.addJobLocked(unit); err != nil {
			s.log.Error("failed to reschedule agent", logging.Agent(agentID), logging.Err(err))
		}
	}
}

func (s *Scheduler) runLock(agentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.runMu[agentID]
	if !ok {
		lock = &sync.Mutex{}
		s.runMu[agentID] = lock
	}
	return lock
}

// cronSpec converts a schedule spec into a cron expression. Interval
// schedules use the @every descriptor; cron schedules map onto the standard
// five-field form with empty fields meaning "any".
func cronSpec(sched agents.Schedule) (string, error) {
	switch sched.Type {
	case agents.ScheduleInterval:
		if sched.Minutes <= 0 {
			return "", fmt.Errorf("interval schedule needs a positive minute count")
		}
		return fmt.Sprintf("@every %dm", sched.Minutes), nil
	case agents.ScheduleCron:
		minute := orAny(sched.Minute)
		hour := orAny(sched.Hour)
		dow := orAny(sched.DayOfWeek)
		return fmt.Sprintf("%s %s * * %s", minute, hour, dow), nil
	default:
		return "", fmt.Errorf("schedule type %q is not auto-schedulable", sched.Type)
	}
}

func orAny(field string) string {
	if field == "" {
		return "*"
	}
	return field
}
