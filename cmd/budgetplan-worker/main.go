package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"budgetplan/internal/amqp"
	"budgetplan/internal/backend"
	"budgetplan/internal/cli"
	"budgetplan/internal/config"
	applog "budgetplan/internal/log"
	"budgetplan/internal/sheets"
	gsheet "budgetplan/internal/sheets/google"
	"budgetplan/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting budgetplan-worker")

	sentryEnabled, flushSentry := cli.InitSentry(cfg, logger, "budgetplan-worker")
	defer flushSentry()

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Worker running on memory backend, it shares no data with the server")
	}

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

	var mirror sheets.ReportMirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	syncWorker := worker.NewSyncWorker(be.Storage, be.Storage, be.Storage, mirror)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	})

	handle := syncWorker.HandleBudgetEvent
	if sentryEnabled {
		handle = reportFailures(syncWorker.HandleBudgetEvent)
	}

	if be.Events != nil {
		go func() {
			if err := be.Events.ConsumeBudgetEvents(ctx, handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP client available")
	}

	// reconcile covers events missed while the worker was down
	go syncWorker.Run(ctx, cfg.SyncInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

// reportFailures sends handler errors to Sentry before the delivery is
// requeued.
func reportFailures(next func(context.Context, *amqp.BudgetEvent) error) func(context.Context, *amqp.BudgetEvent) error {
	return func(ctx context.Context, event *amqp.BudgetEvent) error {
		err := next(ctx, event)
		if err != nil {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("event_type", string(event.Type))
				scope.SetUser(sentry.User{ID: event.UserID})
				sentry.CaptureException(err)
			})
		}
		return err
	}
}
