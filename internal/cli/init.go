// Package cli holds the start-up steps shared by the server and the worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cattlevalue/internal/amqp"
	"cattlevalue/internal/backend"
	"cattlevalue/internal/config"
	"cattlevalue/internal/dataset"
	"cattlevalue/internal/herd"
	"cattlevalue/internal/log"
)

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// BootstrapLogger is used until configuration has been read.
func BootstrapLogger() *log.Logger {
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and exits the process when it
// is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the configured logger and makes it the default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(cfg.LoggerConfig())
	log.SetDefault(logger)
	return logger
}

// NewDatasetLoader picks the reference dataset source from configuration.
func NewDatasetLoader(ctx context.Context, cfg *config.Config) (dataset.Loader, error) {
	switch cfg.DatasetSource {
	case config.SourceHTTP:
		return dataset.NewHTTPLoader(cfg.DatasetURL, cfg.DatasetTimeout), nil
	case config.SourceSheets:
		l, err := dataset.NewSheetsLoader(ctx, dataset.SheetsConfig{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			Range:              cfg.DatasetSheetRange,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("sheets dataset source: %w", err)
		}
		return l, nil
	case config.SourceFile, "":
		return dataset.FileLoader{Path: cfg.DatasetPath}, nil
	}
	return nil, fmt.Errorf("unknown dataset source %q", cfg.DatasetSource)
}

// LoadDataset fetches the dataset once, degrading to an empty one on any
// failure. A timeout bounds remote sources.
func LoadDataset(ctx context.Context, cfg *config.Config, logger *log.Logger) *dataset.Dataset {
	logger = logger.WithComponent(log.ComponentDataset)
	loader, err := NewDatasetLoader(ctx, cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create dataset loader, using empty dataset",
			log.FieldDatasetSource, cfg.DatasetSource, log.FieldError, err)
		return dataset.Empty()
	}
	if cfg.DatasetTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DatasetTimeout)
		defer cancel()
	}
	d := dataset.LoadOrEmpty(ctx, loader, logger.Slog())
	log.NewStructuredLogger(logger).LogDatasetLoaded(ctx, cfg.DatasetSource, d.Len())
	return d
}

// OpenRepositories opens the configured herd backend.
func OpenRepositories(cfg *config.Config, logger *log.Logger) (*backend.Result, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).Create(bc)
}

// ConnectPublisher dials AMQP when configured. A failed dial is logged and
// publishing is disabled; the returned interface is nil in that case.
func ConnectPublisher(cfg *config.Config, logger *log.Logger) herd.ChangePublisher {
	logger = logger.WithComponent(log.ComponentAMQP)
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to connect to AMQP, herd change events disabled",
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		return nil
	}
	logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}

// ShutdownTimeout bounds graceful shutdown of servers and workers.
const ShutdownTimeout = 30 * time.Second
