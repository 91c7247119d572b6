// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends accepted in LOTOFACIL_STORAGE
var storageOptions = []string{"excel", "csv", "database", "sqlite"}

// Config holds application configuration
type Config struct {
	DataDir  string // always absolute
	Storage  string
	Workbook string

	FeedURL     string
	FeedTimeout time.Duration
	SkipWeekday string

	MaxNumber       int
	DrawSize        int
	PoolSize        int
	FixedCount      int
	PredictionCount int
	SampleSize      int
	ProbeCount      int
	MaxAttempts     int
	Seed            int64 // 0 seeds from the clock

	Cron string
	Port int

	LogLevel  string
	LogPretty bool
	LogFile   string

	Backup BackupConfig
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Bucket        string
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Prefix        string
	Cron          string
	RetentionDays int
}

// Enabled reports whether backups are configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Load reads configuration from a .env file (if present) and the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("LOTOFACIL_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Storage:  strings.ToLower(getEnv("LOTOFACIL_STORAGE", "excel")),
		Workbook: getEnv("LOTOFACIL_WORKBOOK", "resultados_lotofacil.xlsx"),

		FeedURL:     getEnv("LOTOFACIL_FEED_URL", "https://loteriascaixa-api.herokuapp.com/api/lotofacil/"),
		FeedTimeout: time.Duration(getEnvAsInt("LOTOFACIL_FEED_TIMEOUT", 10)) * time.Second,
		SkipWeekday: getEnv("LOTOFACIL_SKIP_WEEKDAY", "sunday"),

		MaxNumber:       getEnvAsInt("LOTOFACIL_MAX_NUMBER", 25),
		DrawSize:        getEnvAsInt("LOTOFACIL_DRAW_SIZE", 15),
		PoolSize:        getEnvAsInt("LOTOFACIL_POOL_SIZE", 14),
		FixedCount:      getEnvAsInt("LOTOFACIL_FIXED_COUNT", 11),
		PredictionCount: getEnvAsInt("LOTOFACIL_PREDICTION_COUNT", 11),
		SampleSize:      getEnvAsInt("LOTOFACIL_SAMPLE_SIZE", 100),
		ProbeCount:      getEnvAsInt("LOTOFACIL_PROBE_COUNT", 100),
		MaxAttempts:     getEnvAsInt("LOTOFACIL_MAX_ATTEMPTS", 1000),
		Seed:            int64(getEnvAsInt("LOTOFACIL_SEED", 0)),

		Cron: getEnv("LOTOFACIL_CRON", "0 30 21 * * MON-SAT"),
		Port: getEnvAsInt("LOTOFACIL_PORT", 8080),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
		LogFile:   getEnv("LOG_FILE", ""),

		Backup: BackupConfig{
			Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:        getEnv("BACKUP_S3_REGION", "auto"),
			AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
			Prefix:        getEnv("BACKUP_S3_PREFIX", ""),
			Cron:          getEnv("BACKUP_CRON", "0 0 3 * * *"),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects inconsistent numeric settings and unknown backends
func (c *Config) Validate() error {
	positive := map[string]int{
		"LOTOFACIL_MAX_NUMBER":       c.MaxNumber,
		"LOTOFACIL_DRAW_SIZE":        c.DrawSize,
		"LOTOFACIL_POOL_SIZE":        c.PoolSize,
		"LOTOFACIL_FIXED_COUNT":      c.FixedCount,
		"LOTOFACIL_PREDICTION_COUNT": c.PredictionCount,
		"LOTOFACIL_SAMPLE_SIZE":      c.SampleSize,
		"LOTOFACIL_PROBE_COUNT":      c.ProbeCount,
		"LOTOFACIL_MAX_ATTEMPTS":     c.MaxAttempts,
	}
	for key, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, v)
		}
	}

	if c.FixedCount >= c.MaxNumber {
		return fmt.Errorf("fixed count %d must be below max number %d", c.FixedCount, c.MaxNumber)
	}
	if c.PoolSize < c.FixedCount {
		return fmt.Errorf("pool size %d must be at least fixed count %d", c.PoolSize, c.FixedCount)
	}
	if c.PoolSize > c.MaxNumber {
		return fmt.Errorf("pool size %d exceeds max number %d", c.PoolSize, c.MaxNumber)
	}
	if c.DrawSize > c.MaxNumber {
		return fmt.Errorf("draw size %d exceeds max number %d", c.DrawSize, c.MaxNumber)
	}

	if !ValidStorage(c.Storage) {
		return fmt.Errorf("invalid storage option %q, use one of %v", c.Storage, storageOptions)
	}
	return nil
}

// ValidStorage reports whether name is an accepted backend
func ValidStorage(name string) bool {
	for _, s := range storageOptions {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
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
