package backend

import (
	"context"
	"fmt"

	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/storage"
	"github.com/LiftThanakorn/income-expense-tracker/internal/storage/memory"
	"github.com/LiftThanakorn/income-expense-tracker/internal/store"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

type sqliteBackend struct{ *storage.SQLiteRepository }

func (b sqliteBackend) Remotes() store.Remotes {
	return store.Remotes{
		Transactions: b.Transactions(),
		Categories:   b.Categories(),
		Budgets:      b.Budgets(),
		Goals:        b.Goals(),
	}
}

type postgresBackend struct{ *storage.PostgresRepository }

func (b postgresBackend) Remotes() store.Remotes {
	return store.Remotes{
		Transactions: b.Transactions(),
		Categories:   b.Categories(),
		Budgets:      b.Budgets(),
		Goals:        b.Goals(),
	}
}

type memoryBackend struct{ *memory.Repository }

func (b memoryBackend) Remotes() store.Remotes {
	return store.Remotes{
		Transactions: b.Transactions(),
		Categories:   b.Categories(),
		Budgets:      b.Budgets(),
		Goals:        b.Goals(),
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: sqliteBackend{repo},
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{
		Backend: postgresBackend{repo},
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Warn("Initialized memory backend, data is lost on restart")

	return &BackendResult{
		Backend: memoryBackend{memory.New()},
		Cleanup: nil,
	}, nil
}
