package backend

import (
	"context"
	"time"

	"invoicer/internal/storage"
	"invoicer/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the repository and optional cleanup function
type BackendResult struct {
	Repository store.Repository
	// SQLite is set for the sqlite backend, the only one tracking
	// spreadsheet sync state.
	SQLite  *storage.SQLiteRepository
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a repository based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresDSN      string
	ConnectAttempts  int
	ConnectRetryWait time.Duration

	// Supabase specific
	SupabaseURL  string
	SupabaseKey  string
	SupabaseUser string

	// Memory backend specific
	Seed bool
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SupabaseBackend BackendType = "supabase"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend:
		return true
	default:
		return false
	}
}
