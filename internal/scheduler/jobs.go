package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/backup"
	"github.com/stavrou/ballast/internal/modules/forecast"
	"github.com/stavrou/ballast/internal/modules/optimization"
)

// ForecastRefresher is the slice of the forecast service the jobs need.
type ForecastRefresher interface {
	Refresh(req forecast.RefreshRequest) (*forecast.RefreshResult, error)
	CachedSymbols() ([]string, error)
	EvictExpired() (int64, error)
}

// OptimizationRunner runs optimizer passes over cached forecasts.
type OptimizationRunner interface {
	Run(req optimization.RunRequest) (*optimization.OptimizationResult, error)
}

// BackupRunner archives the databases to object storage.
type BackupRunner interface {
	Run(ctx context.Context) (*backup.Result, error)
}

// RefreshForecastsJob re-fetches forecasts for the watchlist. When no
// watchlist is configured it falls back to every symbol already cached,
// keeping existing snapshots from going stale.
type RefreshForecastsJob struct {
	forecasts ForecastRefresher
	watchlist []string
	log       zerolog.Logger
}

// NewRefreshForecastsJob creates a new forecast refresh job
func NewRefreshForecastsJob(forecasts ForecastRefresher, watchlist []string, log zerolog.Logger) *RefreshForecastsJob {
	return &RefreshForecastsJob{
		forecasts: forecasts,
		watchlist: watchlist,
		log:       log.With().Str("job", "refresh_forecasts").Logger(),
	}
}

// Name returns the job name
func (j *RefreshForecastsJob) Name() string {
	return "refresh_forecasts"
}

// Run executes the forecast refresh
func (j *RefreshForecastsJob) Run() error {
	symbols := j.watchlist
	if len(symbols) == 0 {
		cached, err := j.forecasts.CachedSymbols()
		if err != nil {
			return fmt.Errorf("failed to list cached symbols: %w", err)
		}
		symbols = cached
	}

	if len(symbols) == 0 {
		j.log.Info().Msg("No symbols to refresh")
		return nil
	}

	result, err := j.forecasts.Refresh(forecast.RefreshRequest{Symbols: symbols})
	if err != nil {
		return fmt.Errorf("forecast refresh failed: %w", err)
	}

	j.log.Info().
		Int("requested", result.Summary.Total).
		Int("successful", result.Summary.Successful).
		Int("failed", result.Summary.Failed).
		Msg("Forecast refresh complete")

	return nil
}

// NightlyOptimizationJob runs a full optimizer pass over the cached
// forecast universe and persists the audit record.
type NightlyOptimizationJob struct {
	optimizer OptimizationRunner
	watchlist []string
	log       zerolog.Logger
}

// NewNightlyOptimizationJob creates a new nightly optimization job
func NewNightlyOptimizationJob(optimizer OptimizationRunner, watchlist []string, log zerolog.Logger) *NightlyOptimizationJob {
	return &NightlyOptimizationJob{
		optimizer: optimizer,
		watchlist: watchlist,
		log:       log.With().Str("job", "nightly_optimization").Logger(),
	}
}

// Name returns the job name
func (j *NightlyOptimizationJob) Name() string {
	return "nightly_optimization"
}

// Run executes the optimization pass
func (j *NightlyOptimizationJob) Run() error {
	result, err := j.optimizer.Run(optimization.RunRequest{
		Symbols: j.watchlist,
		Source:  optimization.SourceScheduled,
	})
	if err != nil {
		return fmt.Errorf("scheduled optimization failed: %w", err)
	}

	if len(result.Weights) == 0 {
		j.log.Warn().Msg("Scheduled optimization had no forecasts to work with")
		return nil
	}

	j.log.Info().
		Str("portfolio_id", result.PortfolioID).
		Float64("sharpe", result.SharpeRatio).
		Int("assets", len(result.Weights)).
		Msg("Scheduled optimization complete")

	return nil
}

// CacheCleanupJob evicts expired forecast snapshots.
type CacheCleanupJob struct {
	forecasts ForecastRefresher
	log       zerolog.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(forecasts ForecastRefresher, log zerolog.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		forecasts: forecasts,
		log:       log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Run evicts expired snapshots
func (j *CacheCleanupJob) Run() error {
	removed, err := j.forecasts.EvictExpired()
	if err != nil {
		return fmt.Errorf("cache cleanup failed: %w", err)
	}
	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Evicted expired forecast snapshots")
	}
	return nil
}

// BackupJob archives all databases to object storage.
type BackupJob struct {
	backups BackupRunner
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(backups BackupRunner, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run executes the backup
func (j *BackupJob) Run() error {
	result, err := j.backups.Run(context.Background())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	j.log.Info().
		Str("key", result.Key).
		Int64("bytes", result.Bytes).
		Msg("Backup uploaded")

	return nil
}
