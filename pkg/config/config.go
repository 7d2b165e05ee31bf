package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Paths   PathsConfig
	Limits  LimitsConfig
	Batch   BatchConfig
	OCR     OCRConfig
	Metrics MetricsConfig
	Log     LogConfig
}

type PathsConfig struct {
	InputDir  string
	OutputDir string
	RulesFile string
	Formats   string
}

type LimitsConfig struct {
	MaxFileMB int
	MaxPages  int
}

type BatchConfig struct {
	Workers       int
	Schedule      string
	RetentionDays int
}

type OCRConfig struct {
	Enabled bool
	Lang    string
	DPI     int
}

type MetricsConfig struct {
	File string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Paths: PathsConfig{
			InputDir:  getEnv("KRM_INPUT_DIR", "."),
			OutputDir: getEnv("KRM_OUTPUT_DIR", "rapor"),
			RulesFile: getEnv("KRM_RULES_FILE", ""),
			Formats:   getEnv("KRM_FORMATS", "xlsx,csv,json"),
		},
		Limits: LimitsConfig{
			MaxFileMB: getEnvAsInt("KRM_MAX_FILE_MB", 50),
			MaxPages:  getEnvAsInt("KRM_MAX_PAGES", 200),
		},
		Batch: BatchConfig{
			Workers:       getEnvAsInt("KRM_WORKERS", 1),
			Schedule:      getEnv("KRM_SCHEDULE", ""),
			RetentionDays: getEnvAsInt("KRM_RETENTION_DAYS", 0),
		},
		OCR: OCRConfig{
			Enabled: getEnvAsBool("KRM_OCR_ENABLED", true),
			Lang:    getEnv("KRM_OCR_LANG", "tur"),
			DPI:     getEnvAsInt("KRM_OCR_DPI", 300),
		},
		Metrics: MetricsConfig{
			File: getEnv("KRM_METRICS_FILE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that flags may have overridden as well.
func (c *Config) Validate() error {
	if c.Batch.Workers < 1 {
		return errors.New("KRM_WORKERS must be at least 1")
	}
	if c.Limits.MaxFileMB < 0 || c.Limits.MaxPages < 0 {
		return errors.New("KRM_MAX_FILE_MB and KRM_MAX_PAGES must not be negative")
	}
	if c.Batch.RetentionDays < 0 {
		return errors.New("KRM_RETENTION_DAYS must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format)
	}
	return nil
}

// MaxFileBytes is the file size limit in bytes, 0 when unlimited.
func (c *LimitsConfig) MaxFileBytes() int64 {
	return int64(c.MaxFileMB) << 20
}

// NewLogger builds the slog logger described by the log section.
func (c *LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("unknown LOG_LEVEL %q", s)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
