package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPair/internal/config"
	"liquidityPair/internal/metrics"
	"liquidityPair/internal/scenario"
	"liquidityPair/internal/storage"
	"liquidityPair/internal/storage/postgres"
)

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sc, err := loadScenario(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, cfg, sc, nil, logger)
}

func loadScenario(cfg config.Config) (scenario.Scenario, error) {
	if cfg.Scenario == "" {
		return scenario.Scenario{}, fmt.Errorf("scenario path is required")
	}
	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return scenario.Scenario{}, err
	}
	if cfg.FeeTo != "" {
		sc.FeeTo = cfg.FeeTo
	}
	return sc, nil
}

// execute runs sc on env, or on a fresh pair when env is nil.
func execute(ctx context.Context, cfg config.Config, sc scenario.Scenario, env *scenario.Env, logger *zap.Logger) error {
	sinks := storage.Multi{storage.NewJsonlStorage(cfg.EventsOut)}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		var err error
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	runner := scenario.NewRunner(scenario.RunConfig{
		CheckpointPath:    cfg.Snapshot,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, sc, env, sinks, logger)
	if store != nil {
		runner.SetSnapshotStore(store)
	}

	m := metrics.New()
	runner.SetMetrics(m)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("scenario start",
		zap.String("scenario", sc.Name),
		zap.Int("steps", len(sc.Steps)),
		zap.String("events_out", cfg.EventsOut),
		zap.Bool("postgres", store != nil),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Snapshot),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	return runner.Run(ctx)
}

func serveMetrics(addr string, m *metrics.PairMetrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}
