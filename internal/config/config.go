// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/stavrou/ballast/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir            string // Base directory for all databases (always absolute)
	ForecastServiceURL string // External LSTM/GARCH forecasting service
	LogLevel           string
	Port               int
	DevMode            bool

	// Engine defaults, overridable per request
	RiskFreeRate       float64 // Annualized risk-free rate used for Sharpe ratios
	DefaultCorrelation float64 // Average pairwise correlation for the scalar risk model
	OptimizerIters     int     // Random search iterations per optimization run
	FrontierSamples    int     // Random samples drawn per frontier trace
	FrontierPoints     int     // Maximum frontier points returned
	OptimizerWorkers   int     // Sampling workers; 0 = NumCPU
	LongOnly           bool    // Disallow negative weights in sampled allocations

	// Scheduled jobs
	Watchlist       []string // Symbols refreshed and optimized on schedule
	ForecastMaxAge  int      // Forecast snapshot TTL in seconds
	RefreshSchedule string   // Cron spec for the forecast refresh job
	OptimizeSchedule string  // Cron spec for the nightly optimization job

	Backup *BackupConfig
}

// BackupConfig holds cloud backup configuration
type BackupConfig struct {
	Enabled   bool
	Endpoint  string // S3-compatible endpoint URL; empty = AWS default
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string // Key prefix inside the bucket
	Keep      int    // Number of snapshots retained per database
	Schedule  string // Cron spec for the backup job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("BALLAST_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("PORT", 8080),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		ForecastServiceURL: getEnv("FORECAST_SERVICE_URL", "http://localhost:8000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		RiskFreeRate:       getEnvAsFloat("RISK_FREE_RATE", 0.05),
		DefaultCorrelation: getEnvAsFloat("DEFAULT_CORRELATION", 0.3),
		OptimizerIters:     getEnvAsInt("OPTIMIZER_ITERATIONS", 10000),
		FrontierSamples:    getEnvAsInt("FRONTIER_SAMPLES", 5000),
		FrontierPoints:     getEnvAsInt("FRONTIER_POINTS", 50),
		OptimizerWorkers:   getEnvAsInt("OPTIMIZER_WORKERS", 0),
		LongOnly:           getEnvAsBool("LONG_ONLY", true),

		Watchlist:        getEnvAsList("WATCHLIST", nil),
		ForecastMaxAge:   getEnvAsInt("FORECAST_MAX_AGE_SECONDS", 3600),
		RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "0 0 * * * *"),
		OptimizeSchedule: getEnv("OPTIMIZE_SCHEDULE", "0 30 1 * * *"),

		Backup: loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.DefaultCorrelation < -1 || c.DefaultCorrelation > 1 {
		return fmt.Errorf("default correlation must be in [-1, 1], got %v", c.DefaultCorrelation)
	}
	if c.OptimizerIters < 0 || c.FrontierSamples < 0 || c.FrontierPoints < 0 {
		return fmt.Errorf("iteration counts must not be negative")
	}
	if c.Backup != nil && c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("backup enabled but BACKUP_S3_BUCKET not set")
		}
		if c.Backup.AccessKey == "" || c.Backup.SecretKey == "" {
			return fmt.Errorf("backup enabled but S3 credentials not set")
		}
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if result := utils.ParseCSV(os.Getenv(key)); result != nil {
		return result
	}
	return defaultValue
}

// loadBackupConfig loads cloud backup configuration
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:   getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:    getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:    getEnv("BACKUP_S3_BUCKET", ""),
		AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
		Prefix:    getEnv("BACKUP_S3_PREFIX", "ballast"),
		Keep:      getEnvAsInt("BACKUP_KEEP", 7),
		Schedule:  getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
	}
}
