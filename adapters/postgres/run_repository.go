package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"gotrack/domain/core"
	apperr "gotrack/internal/errors"
	"gotrack/ports"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL. The full
// metadata and report rows are stored as JSONB so the API can serve a
// run without recomputing anything.
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

type runRecord struct {
	ID          string         `db:"id"`
	ProjectName string         `db:"project_name"`
	GeneratedAt time.Time      `db:"generated_at"`
	Fingerprint string         `db:"fingerprint"`
	NMetrics    int            `db:"n_metrics"`
	NWaves      int            `db:"n_waves"`
	Metadata    types.JSONText `db:"metadata"`
	ReportRows  types.JSONText `db:"report_rows"`
	Warnings    types.JSONText `db:"warnings"`
}

// SaveRun upserts a finished run keyed by its run ID.
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, run *ports.StoredRun) error {
	metadata, err := json.Marshal(run.Metadata)
	if err != nil {
		return apperr.DatabaseError("serializing run metadata", err)
	}
	rows, err := json.Marshal(run.Rows)
	if err != nil {
		return apperr.DatabaseError("serializing report rows", err)
	}
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return apperr.DatabaseError("serializing run warnings", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tracking_runs (id, project_name, generated_at, fingerprint, n_metrics, n_waves, metadata, report_rows, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			project_name = EXCLUDED.project_name,
			generated_at = EXCLUDED.generated_at,
			fingerprint = EXCLUDED.fingerprint,
			n_metrics = EXCLUDED.n_metrics,
			n_waves = EXCLUDED.n_waves,
			metadata = EXCLUDED.metadata,
			report_rows = EXCLUDED.report_rows,
			warnings = EXCLUDED.warnings
	`, run.Metadata.RunID.String(), run.Metadata.ProjectName, run.Metadata.GeneratedAt.Time(),
		run.Metadata.Fingerprint.String(), run.Metadata.NMetrics, run.Metadata.NWaves,
		types.JSONText(metadata), types.JSONText(rows), types.JSONText(warnings))
	if err != nil {
		return apperr.DatabaseError("saving tracking run", err)
	}
	return nil
}

// GetRun retrieves one run by ID, (nil, nil) when absent.
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*ports.StoredRun, error) {
	var rec runRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, project_name, generated_at, fingerprint, n_metrics, n_waves, metadata, report_rows, warnings
		FROM tracking_runs
		WHERE id = $1
	`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.DatabaseError("loading tracking run", err)
	}
	return rec.toStored()
}

// LatestRun retrieves the most recently generated run, (nil, nil) when
// the store is empty.
func (r *RunRepositoryImpl) LatestRun(ctx context.Context) (*ports.StoredRun, error) {
	var rec runRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, project_name, generated_at, fingerprint, n_metrics, n_waves, metadata, report_rows, warnings
		FROM tracking_runs
		ORDER BY generated_at DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.DatabaseError("loading latest tracking run", err)
	}
	return rec.toStored()
}

// ListRuns returns run summaries newest first, optionally limited.
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	query := `
		SELECT id, project_name, generated_at, fingerprint, n_metrics, n_waves
		FROM tracking_runs
		ORDER BY generated_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.DatabaseError("listing tracking runs", err)
	}
	defer rows.Close()

	var summaries []ports.RunSummary
	for rows.Next() {
		var (
			id, project, fingerprint string
			generatedAt              time.Time
			nMetrics, nWaves         int
		)
		if err := rows.Scan(&id, &project, &generatedAt, &fingerprint, &nMetrics, &nWaves); err != nil {
			return nil, apperr.DatabaseError("scanning tracking run row", err)
		}
		summaries = append(summaries, ports.RunSummary{
			RunID:       core.RunID(id),
			ProjectName: project,
			GeneratedAt: core.NewTimestamp(generatedAt),
			NMetrics:    nMetrics,
			NWaves:      nWaves,
			Fingerprint: core.Fingerprint(fingerprint),
		})
	}
	return summaries, rows.Err()
}

func (rec runRecord) toStored() (*ports.StoredRun, error) {
	var run ports.StoredRun
	if err := json.Unmarshal(rec.Metadata, &run.Metadata); err != nil {
		return nil, apperr.DatabaseError("decoding run metadata", err)
	}
	if err := json.Unmarshal(rec.ReportRows, &run.Rows); err != nil {
		return nil, apperr.DatabaseError("decoding report rows", err)
	}
	if len(rec.Warnings) > 0 {
		if err := json.Unmarshal(rec.Warnings, &run.Warnings); err != nil {
			return nil, apperr.DatabaseError("decoding run warnings", err)
		}
	}
	return &run, nil
}
