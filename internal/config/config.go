package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"cattlevalue/internal/log"
)

// Dataset sources
const (
	SourceFile   = "file"
	SourceHTTP   = "http"
	SourceSheets = "sheets"
)

// Herd backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Reference dataset
	DatasetSource  string
	DatasetPath    string
	DatasetURL     string
	DatasetTimeout time.Duration

	// Google Sheets dataset source
	GoogleSpreadsheetID      string
	DatasetSheetRange        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Herd persistence
	HerdBackend  string
	HerdSeedFile string
	SQLiteDBPath string

	// AMQP herd change events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SnapshotSchedule string

	// Charts
	DistributionBins int
	ChartCacheSize   int
	ChartCacheTTL    time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DatasetSource:  getEnv("DATASET_SOURCE", SourceFile),
		DatasetPath:    getEnv("DATASET_PATH", "./data/farming_data.json"),
		DatasetURL:     getEnv("DATASET_URL", ""),
		DatasetTimeout: getEnvDuration("DATASET_TIMEOUT", 10*time.Second),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		DatasetSheetRange:        getEnv("DATASET_SHEET_RANGE", "Prices!A:C"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		HerdBackend:  getEnv("HERD_BACKEND", BackendMemory),
		HerdSeedFile: getEnv("HERD_SEED_FILE", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cattle.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cattle"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "herd_changes"),

		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "0 6 * * *"),

		DistributionBins: getEnvInt("DISTRIBUTION_BINS", 10),
		ChartCacheSize:   getEnvInt("CHART_CACHE_SIZE", 128),
		ChartCacheTTL:    getEnvDuration("CHART_CACHE_TTL", 5*time.Minute),
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be one of [text json]", c.LogFormat))
	}

	errs = append(errs, c.validateDataset()...)

	backends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(backends, c.HerdBackend) {
		errs = append(errs, fmt.Sprintf("invalid herd backend '%s': must be one of %v", c.HerdBackend, backends))
	}
	if c.HerdBackend == BackendSQLite && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SnapshotSchedule != "" {
		if _, err := cron.ParseStandard(c.SnapshotSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("invalid snapshot schedule '%s': %v", c.SnapshotSchedule, err))
		}
	}

	if c.DistributionBins < 1 || c.DistributionBins > 100 {
		errs = append(errs, fmt.Sprintf("invalid distribution bins %d: must be between 1 and 100", c.DistributionBins))
	}
	if c.ChartCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid chart cache size %d: must be at least 1", c.ChartCacheSize))
	}
	if c.ChartCacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid chart cache ttl %v: must be at least 1 second", c.ChartCacheTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) validateDataset() []string {
	var errs []string
	switch c.DatasetSource {
	case SourceFile:
		if c.DatasetPath == "" {
			errs = append(errs, "dataset path cannot be empty when using file source")
		}
	case SourceHTTP:
		if u, err := url.Parse(c.DatasetURL); err != nil || c.DatasetURL == "" {
			errs = append(errs, fmt.Sprintf("invalid dataset URL '%s': required for http source", c.DatasetURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("invalid dataset URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.DatasetSheetRange == "" {
			errs = append(errs, "dataset sheet range is required when using sheets source")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets source")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid dataset source '%s': must be one of [file http sheets]", c.DatasetSource))
	}
	if c.DatasetSource != SourceFile && c.DatasetTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid dataset timeout %v: must be positive", c.DatasetTimeout))
	}
	return errs
}

// LoggerConfig returns the log settings. Validate has already checked the level.
func (c *Config) LoggerConfig() log.Config {
	level, _ := log.ParseLevel(c.LogLevel)
	cfg := log.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.LogFormat
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
