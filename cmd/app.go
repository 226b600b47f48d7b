package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/teemow/inboxpilot/internal/agents"
	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/learning"
	"github.com/teemow/inboxpilot/internal/ledger"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/scheduler"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/vip"
)

// appOptions tunes which collaborators the bootstrap wires up.
type appOptions struct {
	// withInstrumentation creates an OTel provider and attaches metrics and
	// audit logging to everything that can carry them.
	withInstrumentation bool
}

// application bundles everything a command needs after bootstrap.
type application struct {
	cfg      *config.Config
	log      *slog.Logger
	app      *server.AppContext
	provider *instrumentation.Provider
}

// close releases resources in reverse construction order.
func (a *application) close(ctx context.Context) {
	if err := a.app.Shutdown(); err != nil {
		a.log.Warn("shutdown", logging.Err(err))
	}
	if a.provider != nil {
		if err := a.provider.Shutdown(ctx); err != nil {
			a.log.Warn("instrumentation shutdown", logging.Err(err))
		}
	}
}

// newApplication builds the full runtime: config, logging, ledger, mailbox,
// completion service, agent registry, learning manager, and scheduler.
func newApplication(ctx context.Context, opts appOptions) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// Logs go to stderr so the MCP stdio transport keeps stdout clean.
	logger := logging.Setup(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	var provider *instrumentation.Provider
	var metrics *instrumentation.Metrics
	var audit *instrumentation.AuditLogger
	if opts.withInstrumentation {
		instrConfig := instrumentation.DefaultConfig()
		instrConfig.ServiceVersion = version
		provider, err = instrumentation.NewProvider(ctx, instrConfig)
		if err != nil {
			return nil, fmt.Errorf("create instrumentation provider: %w", err)
		}
		if provider.Enabled() {
			metrics = provider.Metrics()
			audit = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
		}
	}

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return nil, err
	}

	mail, err := mailbox.NewGmailService(ctx, mailbox.GmailOptions{
		CredentialsFile:  cfg.CredentialsPath(),
		TokenFile:        cfg.TokenPath(),
		MaxResultsCap:    cfg.MaxMessagesCap,
		BodyPreviewChars: cfg.BodyPreviewChars,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("gmail unavailable (run 'inboxpilot auth' first): %w", err)
	}

	svc, err := buildAIService(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	vips := vip.NewStore(cfg.VIPPath())

	cfgStore, err := agents.NewConfigStore(cfg.AgentConfigDir(), logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry := agents.NewRegistry()
	strategies := []agents.Strategy{
		agents.NewBriefingAgent(mail, svc),
		agents.NewTriageAgent(mail, svc),
		agents.NewVIPMonitorAgent(mail, vips),
		agents.NewCleanupAgent(mail, svc),
		agents.NewInboxZeroAgent(mail, svc),
		agents.NewDigestAgent(mail, svc),
		agents.NewVoiceAgent(svc),
		agents.NewDirectorAgent(svc, registry, store, logger),
	}
	for _, strategy := range strategies {
		unit := agents.NewUnit(strategy, cfgStore, agents.DefaultConfig(strategy.ID()), logger)
		if err := registry.Register(unit); err != nil {
			store.Close()
			return nil, err
		}
	}

	manager := learning.NewManager(store, registry, svc, logger)

	schedOpts := []scheduler.Option{}
	if metrics != nil {
		schedOpts = append(schedOpts, scheduler.WithMetrics(metrics))
	}
	sched := scheduler.New(registry, manager, logger, schedOpts...)

	app := server.NewAppContext(ctx, server.AppContextConfig{
		Registry:  registry,
		Scheduler: sched,
		Learning:  manager,
		Ledger:    store,
		VIPs:      vips,
		Mailbox:   mail,
		AI:        svc,
		Metrics:   metrics,
		Audit:     audit,
	})

	return &application{cfg: cfg, log: logger, app: app, provider: provider}, nil
}

// buildAIService selects the completion backend from configuration.
func buildAIService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ai.Service, error) {
	switch cfg.AIBackend {
	case config.BackendGemini:
		gen, err := ai.NewGeminiGenerator(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return ai.NewClient(gen, logger), nil
	case config.BackendOllama:
		gen := ai.NewOllamaGenerator(cfg.OllamaURL, cfg.OllamaModel, logger)
		return ai.NewClient(gen, logger), nil
	default:
		return nil, fmt.Errorf("unknown AI backend %q", cfg.AIBackend)
	}
}
