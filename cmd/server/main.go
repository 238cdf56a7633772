package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/backup"
	"github.com/stavrou/ballast/internal/clients/mlapi"
	"github.com/stavrou/ballast/internal/config"
	"github.com/stavrou/ballast/internal/database"
	"github.com/stavrou/ballast/internal/events"
	"github.com/stavrou/ballast/internal/modules/allocation"
	"github.com/stavrou/ballast/internal/modules/forecast"
	"github.com/stavrou/ballast/internal/modules/metrics"
	"github.com/stavrou/ballast/internal/modules/optimization"
	"github.com/stavrou/ballast/internal/modules/rebalancing"
	"github.com/stavrou/ballast/internal/modules/settings"
	"github.com/stavrou/ballast/internal/scheduler"
	"github.com/stavrou/ballast/internal/server"
	"github.com/stavrou/ballast/internal/workers"
	"github.com/stavrou/ballast/pkg/logger"
)

func main() {
	// Load configuration first so the log level is honored from the start
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Ballast")

	// Databases: the audit trail, mutable configuration, and the forecast
	// snapshot cache each get their own file and pragma profile
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	configDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "config.db"),
		Profile: database.ProfileStandard,
		Name:    "config",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open config database")
	}
	defer configDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	databases := []*database.DB{portfolioDB, configDB, cacheDB}
	for _, db := range databases {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to run migrations")
		}
	}

	// Event bus
	bus := events.NewBus(log)

	// Forecasts
	mlClient := mlapi.NewClient(cfg.ForecastServiceURL, log)
	forecastRepo := forecast.NewRepository(cacheDB.Conn(), log)
	forecastService := forecast.NewService(mlClient, forecastRepo, bus, forecast.ServiceConfig{
		TTL:             time.Duration(cfg.ForecastMaxAge) * time.Second,
		HistoryFallback: true,
	}, log)

	// Optimization
	calc := metrics.NewCalculator(metrics.NewScalarCorrelation(cfg.DefaultCorrelation))
	optimizationService := optimization.NewService(
		calc,
		optimization.NewSampler(cfg.LongOnly),
		workers.NewWorkerPool(cfg.OptimizerWorkers),
		optimization.NewRepository(portfolioDB.Conn(), log),
		forecastService,
		bus,
		optimization.Defaults{
			RiskFreeRate:    cfg.RiskFreeRate,
			Iterations:      cfg.OptimizerIters,
			FrontierPoints:  cfg.FrontierPoints,
			FrontierSamples: cfg.FrontierSamples,
		},
		log,
	)

	// Allocation targets and rebalancing
	allocationRepo := allocation.NewRepository(configDB.Conn(), log)
	rebalancingService := rebalancing.NewService(
		rebalancing.NewRepository(portfolioDB.Conn(), log),
		optimization.NewRepository(portfolioDB.Conn(), log),
		allocationRepo,
		bus,
		log,
	)

	// Scheduler
	settingsRepo := settings.NewRepository(configDB.Conn(), log)
	sched := scheduler.New(bus, settingsRepo, log)

	if err := registerJobs(sched, cfg, forecastService, optimizationService, databases, bus, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		RiskFreeRate: cfg.RiskFreeRate,
		Forecasts:    forecastService,
		Optimization: optimizationService,
		Rebalancing:  rebalancingService,
		Allocation:   allocationRepo,
		Databases:    databases,
		Scheduler:    sched,
		Bus:          bus,
		Log:          log,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// registerJobs wires the background jobs onto their cron schedules.
func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	forecasts *forecast.Service,
	optimizer *optimization.Service,
	databases []*database.DB,
	bus *events.Bus,
	log zerolog.Logger,
) error {
	refreshJob := scheduler.NewRefreshForecastsJob(forecasts, cfg.Watchlist, log)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		return err
	}

	optimizeJob := scheduler.NewNightlyOptimizationJob(optimizer, cfg.Watchlist, log)
	if err := sched.AddJob(cfg.OptimizeSchedule, optimizeJob); err != nil {
		return err
	}

	cleanupJob := scheduler.NewCacheCleanupJob(forecasts, log)
	if err := sched.AddJob("@every 15m", cleanupJob); err != nil {
		return err
	}

	if cfg.Backup != nil && cfg.Backup.Enabled {
		storage, err := backup.NewClient(context.Background(), backup.ClientConfig{
			Endpoint:  cfg.Backup.Endpoint,
			Region:    cfg.Backup.Region,
			Bucket:    cfg.Backup.Bucket,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		}, log)
		if err != nil {
			return err
		}

		backupService := backup.NewService(storage, databases, backup.ServiceConfig{
			DataDir: cfg.DataDir,
			Prefix:  cfg.Backup.Prefix,
			Keep:    cfg.Backup.Keep,
		}, bus, log)

		backupJob := scheduler.NewBackupJob(backupService, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			return err
		}
	}

	return nil
}
