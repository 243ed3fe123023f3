package database

import (
	"context"
	"database/sql"
)

// Service manages the lifecycle of the local SQLite database.
type Service interface {
	Connect(ctx context.Context, config *Config) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error
	DB() *sql.DB
	GetMigrationVersion(ctx context.Context) (int64, error)
}

// MigrationManager handles schema migration operations.
type MigrationManager interface {
	RunMigrations(ctx context.Context) error
	GetCurrentVersion(ctx context.Context) (int64, error)
	ValidateMigrations() error
}
