package backend

import (
	"context"
	"fmt"
	"log/slog"

	"invoicer/internal/storage"
	"invoicer/internal/storage/postgres"
	"invoicer/internal/storage/supabase"
	"invoicer/internal/store/memory"
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

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(config)
	case SupabaseBackend:
		return f.createSupabaseBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Repository: repo,
		SQLite:     repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(config Config) (*BackendResult, error) {
	attempts := config.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	repo, err := postgres.Open(config.PostgresDSN, attempts, config.ConnectRetryWait)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{
		Repository: repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createSupabaseBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo := supabase.New(supabase.Config{
		URL:    config.SupabaseURL,
		Key:    config.SupabaseKey,
		UserID: config.SupabaseUser,
	})
	if err := repo.Ping(ctx); err != nil {
		f.logger.Warn("Supabase not reachable at startup, continuing", "error", err)
	}

	f.logger.Info("Initialized Supabase backend", "url", config.SupabaseURL)

	return &BackendResult{
		Repository: repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()
	if config.Seed {
		store = memory.NewSeeded()
	}

	f.logger.Info("Initialized memory backend", "seeded", config.Seed)

	return &BackendResult{
		Repository: store,
		Cleanup:    nil, // No cleanup needed for memory backend
	}, nil
}
