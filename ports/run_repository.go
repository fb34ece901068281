package ports

import (
	"context"

	"gotrack/domain/core"
	"gotrack/domain/metrics"
)

// StoredRun is one persisted tracking run: everything needed to re-render
// the report or serve it over the API.
type StoredRun struct {
	Metadata metrics.RunMetadata `json:"metadata"`
	Rows     []metrics.MetricRow `json:"rows"`
	Warnings []string            `json:"warnings,omitempty"`
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	RunID       core.RunID       `json:"run_id"`
	ProjectName string           `json:"project_name"`
	GeneratedAt core.Timestamp   `json:"generated_at"`
	NMetrics    int              `json:"n_metrics"`
	NWaves      int              `json:"n_waves"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
}

// RunRepository stores finished tracking runs. Lookups that find nothing
// return (nil, nil), not an error.
type RunRepository interface {
	SaveRun(ctx context.Context, run *StoredRun) error
	GetRun(ctx context.Context, id core.RunID) (*StoredRun, error)
	LatestRun(ctx context.Context) (*StoredRun, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}
