package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetplan/internal/backend"
	"budgetplan/internal/cli"
	apphttp "budgetplan/internal/http"
	applog "budgetplan/internal/log"
	"budgetplan/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	sentryEnabled, flushSentry := cli.InitSentry(cfg, logger, "budgetplan")
	defer flushSentry()

	beCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend)).CreateBackend(context.Background(), beCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := []services.Option{
		services.WithBalances(be.Storage),
		services.WithLedgerCache(cfg.LedgerCacheSize, cfg.LedgerCacheTTL),
		services.WithAutosave(cfg.AutosaveWindow, nil),
	}
	if be.Events != nil {
		opts = append(opts, services.WithEvents(be.Events))
	}
	svc := services.NewBudgetService(be.Storage, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		UserHeader:         cfg.UserHeader,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		Ready:              be.Ping,
		Sentry:             sentryEnabled,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		// pending debounced plans are written before storage closes
		if err := svc.Close(ctx); err != nil {
			logger.Error("Failed to flush pending plans", "error", err)
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	})

	logger.Info("Starting budgetplan server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events_enabled", be.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
