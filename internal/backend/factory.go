package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetplan/internal/amqp"
	"budgetplan/internal/storage"
	"budgetplan/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the configured storage and, when an AMQP URL is set,
// the event client. An unreachable broker is not fatal.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLBackend(ctx, storage.DialectSQLite, config.SQLiteDBPath)
	case PostgresBackend:
		result, err = f.createSQLBackend(ctx, storage.DialectPostgres, config.DatabaseURL)
	case MemoryBackend:
		result = f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Events = client
			storageCleanup := result.Cleanup
			result.Cleanup = func() error {
				var errs []error
				if err := client.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close amqp client: %w", err))
				}
				if storageCleanup != nil {
					if err := storageCleanup(); err != nil {
						errs = append(errs, err)
					}
				}
				return errors.Join(errs...)
			}
		}
	}

	return result, nil
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, dialect storage.Dialect, dsn string) (*BackendResult, error) {
	var (
		repo *storage.SQLRepository
		err  error
	)
	if dialect == storage.DialectPostgres {
		repo, err = storage.NewPostgresRepository(dsn)
	} else {
		repo, err = storage.NewSQLiteRepository(dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", dialect, err)
	}

	attrs := []any{"dialect", dialect}
	if dialect == storage.DialectSQLite {
		attrs = append(attrs, "db_path", dsn)
	}
	f.logger.InfoContext(ctx, "Initialized SQL backend", attrs...)

	return &BackendResult{
		Storage: repo,
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) *BackendResult {
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return &BackendResult{
		Storage: memory.New(),
	}
}
