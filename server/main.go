// Command workflowd serves the workflow editor API over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/badgerstore"
	"github.com/meikuraledutech/workflow/config"
	"github.com/meikuraledutech/workflow/engine"
	"github.com/meikuraledutech/workflow/memstore"
	"github.com/meikuraledutech/workflow/postgres"
	"github.com/meikuraledutech/workflow/repository"
	"github.com/meikuraledutech/workflow/simulator"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "workflowd",
		Short:         "Workflow editor and run simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	cmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML)")
	cmd.Flags().String("listen", "", "Address to listen on (overrides config)")
	cmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", "", "Log format (text, json)")
	cmd.Flags().String("store", "", "Store driver (memory, badger, postgres)")

	return cmd
}

// loadConfig reads the config file and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"listen":     &cfg.Server.Listen,
		"log-level":  &cfg.Logging.Level,
		"log-format": &cfg.Logging.Format,
		"store":      &cfg.Store.Driver,
	}
	for name, dst := range overrides {
		if !cmd.Flags().Changed(name) {
			continue
		}
		val, err := cmd.Flags().GetString(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = val
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured store. The returned func releases it.
func openStore(ctx context.Context, cfg config.StoreConfig) (workflow.Store, func(), error) {
	switch cfg.Driver {
	case config.StoreBadger:
		s, err := badgerstore.Open(cfg.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		s := postgres.New(pool)
		if err := s.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("schema: %w", err)
		}
		return s, pool.Close, nil

	default:
		return memstore.New(), func() {}, nil
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	repo, err := repository.Open(ctx, store,
		repository.WithKey(cfg.Store.Key),
		repository.WithLogger(logger))
	if err != nil {
		return err
	}

	metrics := simulator.NewMetrics()
	sim := simulator.New(cfg.Simulator,
		simulator.WithLogger(logger),
		simulator.WithMetrics(metrics))

	eng, err := engine.New(repo, sim, logger)
	if err != nil {
		return err
	}

	app := newApp(ctx, eng, metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Server.Listen, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	logger.Info("workflowd started",
		slog.String("listen", cfg.Server.Listen),
		slog.String("store", cfg.Store.Driver),
		slog.String("active", eng.Active().ID))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	eng.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
