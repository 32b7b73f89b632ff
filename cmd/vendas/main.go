package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"vendas/internal/backend"
	"vendas/internal/cli"
	"vendas/internal/dataset"
	apphttp "vendas/internal/http"
	"vendas/internal/log"
	"vendas/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger).CreateSource(startCtx, backendConfig)
	startCancel()
	if err != nil {
		logger.Error("Failed to initialize sales source", log.FieldError, err, log.FieldSource, cfg.SalesSource)
		os.Exit(1)
	}

	opts := []dataset.Option{
		dataset.WithTTL(cfg.CacheTTL),
		dataset.WithLogger(logger),
	}
	if res.Refresh != nil {
		opts = append(opts, dataset.WithRefreshHandler(res.Refresh))
	}
	loader := dataset.New(res.Reader, opts...)

	var prefetcher *services.Prefetcher
	if cfg.PrefetchInterval > 0 {
		prefetcher = services.NewPrefetcher(loader, cfg.PrefetchInterval)
		if err := prefetcher.Start(context.Background()); err != nil {
			logger.Error("Failed to start prefetcher", log.FieldError, err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, loader, apphttp.Options{
		RateLimit:      cfg.RateLimit,
		TrustedProxies: cfg.TrustedProxies,
		ChartTTL:       cfg.CacheTTL,
		Logger:         logger.WithComponent(log.ComponentHTTP),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if prefetcher != nil {
			if err := prefetcher.Stop(shutdownCtx); err != nil {
				logger.Warn("Prefetcher stop error", log.FieldError, err)
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Source cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting vendas server",
		"port", cfg.Port,
		log.FieldSource, loader.Source(),
		"cache_ttl", cfg.CacheTTL,
		"archive", cfg.ArchiveEnabled(),
		"events", cfg.EventsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
