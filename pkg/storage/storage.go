// Package storage provides the persistence backends behind api.Storage:
// an in-process memory store, PostgreSQL, and SQLite.
package storage

import (
	"fmt"
	"time"

	"github.com/ironhack/taskithub/pkg/api"
	"github.com/ironhack/taskithub/pkg/storage/postgres"
	"github.com/ironhack/taskithub/pkg/storage/sqlite"
)

// Config for the storage backend
type Config struct {
	Type string // "memory", "postgres", "sqlite"

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresTimeout  time.Duration

	// SQLite config
	SQLitePath string
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             "memory",
		PostgresMaxConns: 20,
		PostgresTimeout:  10 * time.Second,
		SQLitePath:       "taskithub.db",
	}
}

// New creates the storage backend selected by cfg.Type
func New(cfg Config) (api.Storage, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStorage(), nil
	case "postgres":
		return postgres.NewStorage(postgres.Config{
			URL:      cfg.PostgresURL,
			MaxConns: cfg.PostgresMaxConns,
			Timeout:  cfg.PostgresTimeout,
		})
	case "sqlite":
		return sqlite.NewStorage(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("invalid storage type: %s (must be memory, postgres, or sqlite)", cfg.Type)
	}
}
