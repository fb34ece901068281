package metrics

import (
	"gotrack/domain/core"
)

// SegmentCells is one metric row's cell block for one banner segment:
// per-wave values, bases, deltas, and significance flags. Nil entries are
// rendered blank; a nil significance pointer means "never tested", which
// is distinct from a false one ("tested, not significant").
type SegmentCells struct {
	Values           map[core.WaveID]*float64 `json:"values"`
	N                map[core.WaveID]*float64 `json:"n"`
	ChangeVsPrevious map[core.WaveID]*float64 `json:"change_vs_previous"`
	ChangeVsBaseline map[core.WaveID]*float64 `json:"change_vs_baseline"`
	SigVsPrevious    map[core.WaveID]*bool    `json:"sig_vs_previous"`
	SigVsBaseline    map[core.WaveID]*bool    `json:"sig_vs_baseline"`
}

// NewSegmentCells allocates the cell maps.
func NewSegmentCells() SegmentCells {
	return SegmentCells{
		Values:           make(map[core.WaveID]*float64),
		N:                make(map[core.WaveID]*float64),
		ChangeVsPrevious: make(map[core.WaveID]*float64),
		ChangeVsBaseline: make(map[core.WaveID]*float64),
		SigVsPrevious:    make(map[core.WaveID]*bool),
		SigVsBaseline:    make(map[core.WaveID]*bool),
	}
}

// MetricRow is one reportable line: one (question, metric) pair spanning
// all waves and segments. Built once by the crosstab engine and read-only
// afterwards.
type MetricRow struct {
	Question  core.QuestionCode                 `json:"question_code"`
	MetricKey string                            `json:"metric_key"`
	Label     string                            `json:"label"`
	Section   string                            `json:"section,omitempty"`
	SortKey   float64                           `json:"sort_key"`
	Segments  map[core.SegmentName]SegmentCells `json:"segments"`
}

// WaveDiagnostics summarizes one wave's weighting quality for the run
// metadata: flagged waves deserve a weighting review before trends are
// trusted.
type WaveDiagnostics struct {
	Wave          core.WaveID `json:"wave"`
	NRespondents  int         `json:"n_respondents"`
	NValidWeights int         `json:"n_valid_weights"`
	SumWeights    float64     `json:"sum_weights"`
	MinWeight     float64     `json:"min_weight"`
	MaxWeight     float64     `json:"max_weight"`
	MedianWeight  float64     `json:"median_weight"`
	DesignEffect  float64     `json:"design_effect"`
	EffectiveN    float64     `json:"effective_n"`
	Flag          string      `json:"flag,omitempty"`
}

// RunMetadata accompanies the metric rows to the report writer and any
// other consumer.
type RunMetadata struct {
	RunID           core.RunID         `json:"run_id"`
	ProjectName     string             `json:"project_name"`
	GeneratedAt     core.Timestamp     `json:"generated_at"`
	ConfidenceLevel float64            `json:"confidence_level"`
	BaselineWave    core.WaveID        `json:"baseline_wave"`
	WaveOrder       []core.WaveID      `json:"wave_order"`
	SegmentOrder    []core.SegmentName `json:"segment_order"`
	NMetrics        int                `json:"n_metrics"`
	NWaves          int                `json:"n_waves"`
	NSegments       int                `json:"n_segments"`
	Sections        []string           `json:"sections"`
	Diagnostics     []WaveDiagnostics  `json:"diagnostics,omitempty"`
	Fingerprint     core.Fingerprint   `json:"fingerprint,omitempty"`
}
