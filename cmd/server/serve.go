package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"safeharbour/internal/platform/httpserver"
	"safeharbour/internal/platform/postgres"
	"safeharbour/internal/platform/telemetry"
)

func serveCommand() *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. The alert worker runs in the same process when
--worker is set or when no database is configured. The audit relay runs
whenever Kafka brokers and a database are configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd.Context())
			return run(cmd.Context(), func(ctx context.Context, a *app, g *errgroup.Group) error {
				srv := httpserver.New(cfg.Server.Addr, a.router())
				g.Go(func() error {
					return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, a.logger.With("dev_mode", cfg.DevMode()))
				})
				if withWorker || cfg.DevMode() {
					return startWorker(ctx, a, g)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withWorker, "worker", false, "run the alert worker in-process")
	return cmd
}

func workerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the alert worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), func(ctx context.Context, a *app, g *errgroup.Group) error {
				if a.cfg.DevMode() && a.redis == nil {
					a.logger.WarnContext(ctx, "standalone worker with in-memory stores and queue sees no jobs from other processes")
				}
				return startWorker(ctx, a, g)
			})
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd.Context())
			if cfg.DevMode() {
				return errors.New("database.url is not configured")
			}
			db, err := postgres.Open(cmd.Context(), cfg.Database.URL, 1)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			newLogger(cfg).InfoContext(cmd.Context(), "migrations applied")
			return nil
		},
	}
}

func startWorker(ctx context.Context, a *app, g *errgroup.Group) error {
	w, err := a.worker()
	if err != nil {
		return err
	}
	g.Go(func() error { return w.Run(ctx) })
	return nil
}

// run owns the process lifecycle shared by serve and worker: signal
// handling, tracing, app wiring, the optional audit relay and shutdown.
func run(parent context.Context, start func(ctx context.Context, a *app, g *errgroup.Group) error) error {
	cfg := configFrom(parent)
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(cfg.Tracing.ServiceName, cfg.Tracing.Enabled, os.Stdout)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)
	relay, closeRelay, err := a.relay(ctx)
	if err != nil {
		return err
	}
	defer closeRelay()
	if relay != nil {
		g.Go(func() error { return relay.Run(ctx) })
	}
	if err := start(ctx, a, g); err != nil {
		stop()
		_ = g.Wait()
		return err
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("shutdown complete")
	return err
}
