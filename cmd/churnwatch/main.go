package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/churnwatch/churnwatch/api"
	"github.com/churnwatch/churnwatch/internal/drift"
	"github.com/churnwatch/churnwatch/internal/events"
	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/internal/monitor"
	"github.com/churnwatch/churnwatch/internal/orchestrator"
	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/internal/retrain"
	"github.com/churnwatch/churnwatch/internal/store"
	"github.com/churnwatch/churnwatch/pkg/config"
	"github.com/churnwatch/churnwatch/pkg/database"
	"github.com/churnwatch/churnwatch/pkg/database/queries"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var db *database.DB
	if cfg.Store.Type == "postgres" {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		logger.Info("Database connection established")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if *migrate {
		if db == nil {
			return fmt.Errorf("migrations require store.type=postgres")
		}
		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	// Storage layer: Postgres repositories or in-memory fallbacks.
	var (
		predStore store.Store
		regRepo   registry.Repository
		reports   monitor.ReportStore
		runs      retrain.RunStore
	)
	if db != nil {
		predStore = store.NewPostgresStore(
			queries.NewPredictionRepository(db.DB),
			store.PostgresConfig{WindowLimit: cfg.Store.WindowLimit},
		)
		regRepo = registry.NewPostgresRepository(db)
		reports = queries.NewDriftReportRepository(db.DB)
		runs = queries.NewRetrainRunRepository(db.DB)
	} else {
		predStore = store.NewMemoryStore(store.MemoryConfig{})
		regRepo = registry.NewMemoryRepository()
		reports = monitor.NewMemoryReports()
		runs = retrain.NewMemoryRuns()
	}

	pruneCtx, pruneCancel := context.WithCancel(context.Background())
	defer pruneCancel()
	if pg, ok := predStore.(*store.PostgresStore); ok && cfg.Store.RetentionDays > 0 {
		retention := time.Duration(cfg.Store.RetentionDays) * 24 * time.Hour
		go runRetention(pruneCtx, pg, retention)
	}

	reg := registry.New(regRepo)
	if err := reg.Load(ctx); err != nil {
		return fmt.Errorf("failed to load active model: %w", err)
	}
	if active := reg.Active(); active != nil {
		logger.Infof("Serving model %s", active.Version)
	} else {
		logger.Warn("No active model; monitoring is idle until one is promoted")
	}

	bus := events.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()
	publisher := events.NewPublisher(bus)

	eventLogger := events.NewEventLogger(db, bus.SubscribeAll())
	eventLogger.Start()
	defer eventLogger.Stop()

	detector := drift.New(drift.Config{
		DistanceThreshold: cfg.Drift.DistanceThreshold,
		StabilityWarning:  cfg.Drift.StabilityWarning,
		StabilityCritical: cfg.Drift.StabilityCritical,
	})

	mon := monitor.New(monitor.Config{
		MinSamples:        cfg.Monitor.MinSamples,
		BaseRateTolerance: cfg.Monitor.BaseRateTolerance,
		VolumeTolerance:   cfg.Monitor.VolumeTolerance,
		BaselineHistory:   cfg.Monitor.BaselineHistory,
	}, predStore, detector, reg, reports, publisher)

	trainer, err := buildTrainer(cfg)
	if err != nil {
		return err
	}
	defer trainer.Close()

	pipeline := retrain.NewPipeline(retrain.PipelineConfig{
		DecisionMetric:       cfg.Retrain.DecisionMetric,
		ImprovementThreshold: cfg.Retrain.ImprovementThreshold,
		Timeout:              cfg.Retrain.Timeout,
	}, trainer, reg, runs, publisher)

	orch := orchestrator.New(orchestrator.Config{
		EvaluateInterval: cfg.Monitor.EvaluateInterval,
		EvaluateWindow:   cfg.Monitor.EvaluateWindow,
		AutoRetrain:      cfg.Retrain.AutoRetrain,
		ScheduleInterval: cfg.Retrain.ScheduleInterval,
	}, mon, pipeline, publisher)
	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	server := api.NewServer(cfg.API, cfg.WebSocket, db, api.Dependencies{
		Store:    predStore,
		Registry: reg,
		Monitor:  mon,
		Pipeline: pipeline,
		Bus:      bus,
	})

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownTimeout := cfg.App.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// runRetention deletes predictions past the retention window every few hours.
func runRetention(ctx context.Context, pg *store.PostgresStore, retention time.Duration) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := pg.Prune(ctx, retention)
			if err != nil {
				logger.Errorf("Prediction retention prune failed: %v", err)
				continue
			}
			if deleted > 0 {
				logger.Infof("Pruned %d predictions older than %s", deleted, retention)
			}
		}
	}
}

func buildTrainer(cfg *config.Config) (retrain.Trainer, error) {
	switch cfg.Retrain.TrainerType {
	case "mock":
		mock := retrain.NewMockTrainer()
		mock.Bins = cfg.Drift.HistogramBins
		return mock, nil
	case "http", "":
		if cfg.Retrain.TrainerEndpoint == "" {
			return nil, fmt.Errorf("retrain.trainer_endpoint is required for the http trainer")
		}
		httpTrainer := retrain.NewHTTPTrainer(retrain.HTTPTrainerConfig{
			Endpoint: cfg.Retrain.TrainerEndpoint,
			Timeout:  cfg.Retrain.Timeout,
		})
		return retrain.NewResilientTrainer(retrain.ResilientTrainerConfig{
			Trainer:       httpTrainer,
			MaxFailures:   cfg.Retrain.CircuitBreaker.MaxFailures,
			Timeout:       cfg.Retrain.CircuitBreaker.Timeout,
			RetryAttempts: cfg.Retrain.RetryAttempts,
		}), nil
	default:
		return nil, fmt.Errorf("unknown trainer type %q", cfg.Retrain.TrainerType)
	}
}
