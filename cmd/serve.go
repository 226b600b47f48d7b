package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/server"
)

func newServeCmd() *cobra.Command {
	var apiAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent scheduler and REST API",
		Long: `Starts the full agent department: loads every agent's persisted
configuration, schedules them with the cron runner, and serves the
management REST API. The director meta-agent reviews the other agents
periodically and proposes threshold changes within guardrail bounds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), apiAddr)
		},
	}

	cmd.Flags().StringVar(&apiAddr, "api-addr", "", "REST API listen address (overrides INBOXPILOT_API_ADDR)")

	return cmd
}

func runServe(parent context.Context, apiAddr string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApplication(ctx, appOptions{withInstrumentation: true})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if apiAddr == "" {
		apiAddr = a.cfg.APIAddr
	}

	if a.provider != nil && a.provider.Enabled() {
		ms, err := server.NewMetricsServer("", a.provider, a.log)
		if err != nil {
			return fmt.Errorf("create metrics server: %w", err)
		}
		go func() {
			if err := ms.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ms.Shutdown(shutdownCtx); err != nil {
				a.log.Warn("metrics shutdown", logging.Err(err))
			}
		}()
	}

	if err := a.app.Scheduler().Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	var apiOpts []server.APIOption
	if m := a.app.Metrics(); m != nil {
		apiOpts = append(apiOpts, server.WithAPIMetrics(m))
	}
	api := server.NewAPI(a.app, a.log, apiOpts...)
	srv := server.NewServer(apiAddr, api, a.app, a.log)
	srv.Health().SetReady(true)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	a.log.Info("inboxpilot serving",
		slog.String("addr", apiAddr),
		slog.Int("agents", len(a.app.Registry().Statuses())),
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("api shutdown", logging.Err(err))
	}
	return nil
}
