// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for databases and backups (always absolute)
	Port      int
	LogLevel  string
	DevMode   bool
	Simulator SimulatorConfig
	Backup    *BackupConfig
}

// SimulatorConfig holds limits and defaults for spectral simulations.
// Limits protect the service against requests that would pin the CPU for
// minutes (dense eigendecomposition scales cubically with basis size).
type SimulatorConfig struct {
	DefaultTruncation int // Charge/phase basis size used when a request doesn't specify one
	MaxTruncation     int // Hard cap on basis size per mode
	MaxSweepPoints    int // Hard cap on flux samples per sweep
	MaxLevels         int // Hard cap on requested eigenvalues
	SweepWorkers      int // Worker count for parallel sweeps (0 = sequential only)
	RetentionDays     int // Stored sweep results older than this are pruned daily
}

// BackupConfig holds S3-compatible object storage settings for results backups.
// Nil when backups are disabled.
type BackupConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	MaxBackups      int // Oldest remote backups beyond this count are deleted
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FLUXLAB_DATA_DIR", "./data")

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
		DataDir:  absDataDir,
		Port:     getEnvAsInt("FLUXLAB_PORT", 8010),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Simulator: SimulatorConfig{
			DefaultTruncation: getEnvAsInt("SIM_DEFAULT_TRUNCATION", 50),
			MaxTruncation:     getEnvAsInt("SIM_MAX_TRUNCATION", 200),
			MaxSweepPoints:    getEnvAsInt("SIM_MAX_SWEEP_POINTS", 1000),
			MaxLevels:         getEnvAsInt("SIM_MAX_LEVELS", 50),
			SweepWorkers:      getEnvAsInt("SIM_SWEEP_WORKERS", 4),
			RetentionDays:     getEnvAsInt("SIM_RETENTION_DAYS", 30),
		},
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
	if c.Simulator.DefaultTruncation < 2 {
		return fmt.Errorf("default truncation must be at least 2, got %d", c.Simulator.DefaultTruncation)
	}
	if c.Simulator.MaxTruncation < c.Simulator.DefaultTruncation {
		return fmt.Errorf("max truncation %d is below default truncation %d",
			c.Simulator.MaxTruncation, c.Simulator.DefaultTruncation)
	}
	if c.Backup != nil {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("backup enabled but BACKUP_BUCKET is empty")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup enabled but access credentials are missing")
		}
	}
	return nil
}

// loadBackupConfig loads backup settings; returns nil when backups are disabled.
func loadBackupConfig() *BackupConfig {
	if !getEnvAsBool("BACKUP_ENABLED", false) {
		return nil
	}
	return &BackupConfig{
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		MaxBackups:      getEnvAsInt("BACKUP_MAX_COUNT", 14),
	}
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
