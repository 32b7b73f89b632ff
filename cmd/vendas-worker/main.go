package main

import (
	"context"
	"errors"
	"os"
	"time"

	"vendas/internal/amqp"
	"vendas/internal/cli"
	"vendas/internal/log"
	"vendas/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting vendas-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.ArchiveEnabled() || !cfg.EventsEnabled() {
		logger.Error("vendas-worker needs SQLITE_DB_PATH and AMQP_URL")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	retention := worker.NewRetentionWorker(repo, cfg.SnapshotRetention)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Performing startup retention check...")
	if err := retention.StartupCheck(ctx); err != nil {
		// Keep consuming; the next message retries.
		logger.Error("Startup retention check failed", log.FieldError, err)
	}

	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()
	go func() {
		if err := amqpClient.ConsumeRefresh(consumeCtx, retention.HandleRefreshMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	ticker := time.NewTicker(cfg.PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Worker shutdown complete")
			return
		case <-ticker.C:
			if err := retention.Prune(ctx); err != nil {
				logger.Error("Periodic prune failed", log.FieldError, err)
			}
		}
	}
}
