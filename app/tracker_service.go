package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"gotrack/domain/core"
	"gotrack/domain/metrics"
	"gotrack/domain/survey"
	"gotrack/domain/track"
	"gotrack/internal/crosstab"
	apperr "gotrack/internal/errors"
	"gotrack/internal/trend"
	"gotrack/internal/waveprep"
)

// TrackerService runs one full tracking analysis: load and prepare every
// wave file, compute per-question trends with significance against the
// previous wave, and reshape the results into report rows.
type TrackerService struct {
	preparer *waveprep.Preparer
}

// RunRequest defines the inputs for one tracking run.
type RunRequest struct {
	Config      *track.Config
	RunID       core.RunID // optional, will be generated if empty
	MaxParallel int        // wave-load concurrency, 0 means one worker per CPU
}

// RunResult is the complete output of a tracking run.
type RunResult struct {
	RunID       core.RunID              `json:"run_id"`
	Rows        []metrics.MetricRow     `json:"rows"`
	Trends      []metrics.QuestionTrend `json:"trends,omitempty"`
	Metadata    metrics.RunMetadata     `json:"metadata"`
	Warnings    []string                `json:"warnings,omitempty"`
	Fingerprint core.Fingerprint        `json:"fingerprint"`
	RuntimeMs   int64                   `json:"runtime_ms"`
}

// NewTrackerService creates a tracker service.
func NewTrackerService() *TrackerService {
	return &TrackerService{preparer: waveprep.NewPreparer()}
}

// Run executes the full pipeline for one configuration.
func (s *TrackerService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	startTime := time.Now()

	cfg := req.Config
	if cfg == nil {
		return nil, apperr.ConfigInvalid("no configuration provided", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperr.ConfigInvalid(err.Error(), err)
	}

	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}

	log.Info().
		Str("run_id", runID.String()).
		Str("project", cfg.Settings.ProjectName).
		Int("waves", len(cfg.Waves)).
		Int("tracked", len(cfg.Tracked)).
		Msg("tracking run started")

	waves, err := s.preparer.PrepareAll(ctx, buildWaveSpecs(cfg), req.MaxParallel)
	if err != nil {
		return nil, err
	}

	trends := trend.NewComputer(cfg).Compute(waves)
	rows := crosstab.New(cfg).Build(trends)

	var warnings []string
	diagnostics := make([]metrics.WaveDiagnostics, 0, len(waves))
	for _, pw := range waves {
		warnings = append(warnings, pw.Warnings...)
		diagnostics = append(diagnostics, pw.Diagnostics)
	}

	fingerprint, err := fingerprintRows(rows)
	if err != nil {
		return nil, apperr.Internal("serializing rows for fingerprint", err)
	}

	segments := cfg.SegmentNames()
	result := &RunResult{
		RunID:  runID,
		Rows:   rows,
		Trends: trends,
		Metadata: metrics.RunMetadata{
			RunID:           runID,
			ProjectName:     cfg.Settings.ProjectName,
			GeneratedAt:     core.Now(),
			ConfidenceLevel: 1 - cfg.Settings.Alpha,
			BaselineWave:    cfg.Baseline(),
			WaveOrder:       cfg.WaveIDs(),
			SegmentOrder:    segments,
			NMetrics:        len(rows),
			NWaves:          len(waves),
			NSegments:       len(segments),
			Sections:        crosstab.Sections(rows),
			Diagnostics:     diagnostics,
			Fingerprint:     fingerprint,
		},
		Warnings:    warnings,
		Fingerprint: fingerprint,
		RuntimeMs:   time.Since(startTime).Milliseconds(),
	}

	log.Info().
		Str("run_id", runID.String()).
		Int("rows", len(rows)).
		Int("warnings", len(warnings)).
		Int64("runtime_ms", result.RuntimeMs).
		Str("fingerprint", fingerprint.String()).
		Msg("tracking run complete")
	return result, nil
}

// buildWaveSpecs translates the project configuration into per-wave
// preparation instructions. Banner break variables and categorical
// question columns stay text; single-choice columns resolve through the
// options table when one is loaded for the question; everything else a
// tracked question references becomes a numeric-coercion candidate.
func buildWaveSpecs(cfg *track.Config) []waveprep.Spec {
	decimalComma := cfg.Settings.DecimalSeparator == ","

	specs := make([]waveprep.Spec, 0, len(cfg.Waves))
	for _, wave := range cfg.Waves {
		spec := waveprep.Spec{
			Wave:            wave.ID,
			Path:            wave.DataFile,
			WeightVar:       cfg.WeightVarFor(wave.ID),
			DecimalComma:    decimalComma,
			QuestionColumns: make(map[string]bool),
			KeepText:        make(map[string]bool),
			Resolve:         make(map[string]core.QuestionCode),
			Structure:       cfg.Structure,
		}

		for _, b := range cfg.Banner {
			spec.KeepText[b.Column] = true
		}

		for _, q := range cfg.Questions {
			column := q.ColumnFor(wave.ID)
			if column == "" {
				continue
			}
			switch {
			case q.Type == survey.SingleChoice:
				if len(cfg.Structure.OptionsFor(q.Code)) > 0 {
					spec.Resolve[column] = q.Code
				} else {
					spec.KeepText[column] = true
				}
			case q.Type == survey.MultiMention, q.Type == survey.OpenEnd:
				// Mention indicators and verbatims are analyzed as text.
				spec.KeepText[column] = true
			case q.Type == survey.Composite:
				// Composites read their sources, which are questions of
				// their own; the composite code maps to no file column.
			default:
				spec.QuestionColumns[column] = true
			}
		}

		specs = append(specs, spec)
	}
	return specs
}

// fingerprintRows hashes the serialized report rows. Row order is the
// deterministic report order and encoding/json emits map keys sorted, so
// identical inputs hash identically across runs.
func fingerprintRows(rows []metrics.MetricRow) (core.Fingerprint, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return core.NewFingerprint(data), nil
}
