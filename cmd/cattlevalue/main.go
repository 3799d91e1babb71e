package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cattlevalue/internal/cli"
	apphttp "cattlevalue/internal/http"
	"cattlevalue/internal/log"
	"cattlevalue/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.BootstrapLogger())
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentApp)

	repos, err := cli.OpenRepositories(cfg, logger)
	if err != nil {
		logger.Error("Failed to open herd storage", log.FieldError, err, "backend", cfg.HerdBackend)
		os.Exit(1)
	}
	publisher := cli.ConnectPublisher(cfg, logger)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	herdSvc, err := services.NewHerdService(ctx, repos.Herd, publisher, logger)
	if err != nil {
		logger.Error("Failed to load herd", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := herdSvc.Close(); err != nil {
			logger.Error("Failed to close herd service", log.FieldError, err)
		}
	}()

	// The page is usable before the dataset arrives; /readyz reports when
	// the load attempt finished.
	go func() {
		herdSvc.SetDataset(cli.LoadDataset(ctx, cfg, logger))
	}()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:        ":" + cfg.Port,
		Herd:        herdSvc,
		Snapshots:   repos.Snapshots(),
		Logger:      logger,
		DefaultBins: cfg.DistributionBins,
		CacheSize:   cfg.ChartCacheSize,
		CacheTTL:    cfg.ChartCacheTTL,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting cattlevalue server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"herd_backend", cfg.HerdBackend,
			log.FieldDatasetSource, cfg.DatasetSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
