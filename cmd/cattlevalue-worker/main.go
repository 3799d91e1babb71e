package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cattlevalue/internal/amqp"
	"cattlevalue/internal/cli"
	"cattlevalue/internal/config"
	"cattlevalue/internal/log"
	"cattlevalue/internal/scheduler"
	"cattlevalue/internal/worker"
)

const snapshotJobTimeout = time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.BootstrapLogger())
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	logger.Info("Starting cattlevalue-worker", log.FieldOperation, log.OpStartup)

	if cfg.HerdBackend != config.BackendSQLite {
		logger.Error("The worker records snapshots in SQLite; set HERD_BACKEND=sqlite",
			"herd_backend", cfg.HerdBackend)
		os.Exit(1)
	}

	repos, err := cli.OpenRepositories(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			logger.Error("Failed to close SQLite repository", log.FieldError, err)
		}
	}()

	snapshots := worker.NewSnapshotWorker(repos.Herd, repos.SQLite)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	if snap, err := snapshots.Snapshot(ctx, worker.ReasonStartup); err != nil {
		logger.Error("Startup snapshot failed", log.FieldError, err)
	} else {
		logger.Info("Startup snapshot recorded",
			log.FieldHerdSize, snap.HerdSize,
			"latest_date", snap.LatestDate,
			"latest_value", snap.LatestValue)
	}

	sched := scheduler.New(logger, snapshotJobTimeout)
	if err := sched.Add("valuation-snapshot", cfg.SnapshotSchedule, snapshots.ScheduledSnapshot); err != nil {
		logger.Error("Invalid snapshot schedule", log.FieldError, err, "schedule", cfg.SnapshotSchedule)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeHerdChanged(gctx, snapshots.HandleHerdChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - only scheduled snapshots will be recorded")
	}

	g.Go(func() error {
		sched.Start()
		if next, ok := sched.Next("valuation-snapshot"); ok {
			logger.Info("Snapshot schedule active", "schedule", cfg.SnapshotSchedule, "next_run", next)
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		sched.Stop(stopCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
