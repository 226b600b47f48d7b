package server

import (
	"context"
	"sync"

	"github.com/teemow/inboxpilot/internal/agents"
	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/learning"
	"github.com/teemow/inboxpilot/internal/ledger"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/scheduler"
	"github.com/teemow/inboxpilot/internal/vip"
)

// AppContext bundles the long-lived collaborators the HTTP API and the MCP
// tools operate on. There are no globals; everything is passed explicitly.
type AppContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	registry  *agents.Registry
	scheduler *scheduler.Scheduler
	learning  *learning.Manager
	ledger    *ledger.Store
	vips      *vip.Store
	mail      mailbox.Service
	ai        ai.Service
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// AppContextConfig lists the collaborators an AppContext needs.
type AppContextConfig struct {
	Registry  *agents.Registry
	Scheduler *scheduler.Scheduler
	Learning  *learning.Manager
	Ledger    *ledger.Store
	VIPs      *vip.Store
	Mailbox   mailbox.Service
	AI        ai.Service
	Metrics   *instrumentation.Metrics
	Audit     *instrumentation.AuditLogger
}

// NewAppContext creates the application context.
func NewAppContext(ctx context.Context, cfg AppContextConfig) *AppContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &AppContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		registry:  cfg.Registry,
		scheduler: cfg.Scheduler,
		learning:  cfg.Learning,
		ledger:    cfg.Ledger,
		vips:      cfg.VIPs,
		mail:      cfg.Mailbox,
		ai:        cfg.AI,
		metrics:   cfg.Metrics,
		audit:     cfg.Audit,
	}
}

// Context returns the application-scoped context. It is cancelled on
// Shutdown.
func (ac *AppContext) Context() context.Context { return ac.ctx }

// Registry returns the agent registry.
func (ac *AppContext) Registry() *agents.Registry { return ac.registry }

// Scheduler returns the agent scheduler.
func (ac *AppContext) Scheduler() *scheduler.Scheduler { return ac.scheduler }

// Learning returns the learning manager.
func (ac *AppContext) Learning() *learning.Manager { return ac.learning }

// Ledger returns the execution ledger.
func (ac *AppContext) Ledger() *ledger.Store { return ac.ledger }

// VIPs returns the VIP contact store.
func (ac *AppContext) VIPs() *vip.Store { return ac.vips }

// Mailbox returns the mailbox service.
func (ac *AppContext) Mailbox() mailbox.Service { return ac.mail }

// AI returns the completion service.
func (ac *AppContext) AI() ai.Service { return ac.ai }

// Metrics returns the metrics recorder, nil when instrumentation is off.
func (ac *AppContext) Metrics() *instrumentation.Metrics { return ac.metrics }

// AuditLogger returns the audit logger, nil when audit logging is off.
func (ac *AppContext) AuditLogger() *instrumentation.AuditLogger { return ac.audit }

// IsShutdown reports whether the application is shutting down.
func (ac *AppContext) IsShutdown() bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.shutdown
}

// Shutdown stops the scheduler, closes the ledger, and cancels the
// application context. Safe to call more than once.
func (ac *AppContext) Shutdown() error {
	ac.mu.Lock()
	if ac.shutdown {
		ac.mu.Unlock()
		return nil
	}
	ac.shutdown = true
	ac.mu.Unlock()

	if ac.scheduler != nil {
		ac.scheduler.Stop()
	}
	ac.cancel()
	if ac.ledger != nil {
		return ac.ledger.Close()
	}
	return nil
}
