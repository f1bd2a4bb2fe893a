package backend

import (
	"context"

	"github.com/LiftThanakorn/income-expense-tracker/internal/auth"
	"github.com/LiftThanakorn/income-expense-tracker/internal/services"
	"github.com/LiftThanakorn/income-expense-tracker/internal/store"
)

// Backend is one persistence implementation: the four entity collections,
// accounts and spending reports.
type Backend interface {
	auth.UserRepository
	services.ReportRepository

	Remotes() store.Remotes
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
