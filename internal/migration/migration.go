package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	apperr "gotrack/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createTrackingRunsTable(ctx, db); err != nil {
		return apperr.DatabaseError("creating tracking_runs table", err)
	}
	if err := r.createIndexes(ctx, db); err != nil {
		return apperr.DatabaseError("creating indexes", err)
	}
	return nil
}

func (r *MigrationRunner) createTrackingRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tracking_runs (
			id TEXT PRIMARY KEY,
			project_name TEXT NOT NULL,
			generated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			fingerprint TEXT NOT NULL,
			n_metrics INTEGER NOT NULL DEFAULT 0,
			n_waves INTEGER NOT NULL DEFAULT 0,
			metadata JSONB NOT NULL,
			report_rows JSONB NOT NULL,
			warnings JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_tracking_runs_generated_at
			ON tracking_runs (generated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_tracking_runs_project
			ON tracking_runs (project_name, generated_at DESC)
	`)
	return err
}
