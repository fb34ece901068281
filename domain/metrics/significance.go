package metrics

import (
	"fmt"

	"gotrack/domain/core"
)

// SigReason explains why a wave pair was not tested. An empty reason means
// a test actually ran; consumers must keep "tested, not significant"
// distinct from "never tested".
type SigReason string

const (
	// ReasonInsufficientBase covers an unavailable wave or an effective
	// base below the configured minimum on either side.
	ReasonInsufficientBase SigReason = "insufficient_base_or_unavailable"
	// ReasonCodeNotFound covers proportion tests where the compared
	// response code is absent from one wave's share map.
	ReasonCodeNotFound SigReason = "response_code_not_found"
)

// SignificanceResult is the outcome of one between-wave test. When Reason
// is set no statistic was computed and the numeric fields are nil.
type SignificanceResult struct {
	Statistic   *float64  `json:"statistic"`
	DF          *float64  `json:"df,omitempty"`
	PValue      *float64  `json:"p_value"`
	Significant bool      `json:"significant"`
	Reason      SigReason `json:"reason,omitempty"`
}

// Tested reports whether a statistic was actually computed.
func (r SignificanceResult) Tested() bool { return r.Reason == "" }

// NotTested builds the untested result state for a reason.
func NotTested(reason SigReason) SignificanceResult {
	return SignificanceResult{Significant: false, Reason: reason}
}

// PairKey names a wave comparison the way significance maps are keyed.
func PairKey(from, to core.WaveID) string {
	return fmt.Sprintf("%s_vs_%s", from, to)
}

// SegmentSignificance holds one segment's significance results: per-metric
// sub-maps consulted first, then the flat map. Keys of the inner maps are
// PairKey strings.
type SegmentSignificance struct {
	ByMetric map[string]map[string]SignificanceResult `json:"by_metric,omitempty"`
	Flat     map[string]SignificanceResult            `json:"flat,omitempty"`
}

// Lookup resolves a pair's result for a metric: the metric's sub-map wins,
// the flat map backs it up, absence returns false. Absence is not "not
// significant" - callers surface it as null.
func (s SegmentSignificance) Lookup(metricKey, pairKey string) (SignificanceResult, bool) {
	if sub, ok := s.ByMetric[metricKey]; ok {
		if res, ok := sub[pairKey]; ok {
			return res, true
		}
	}
	if res, ok := s.Flat[pairKey]; ok {
		return res, true
	}
	return SignificanceResult{}, false
}

// QuestionTrend is one tracked question's full computed trend: per
// segment, per wave results, plus the significance maps the crosstab
// engine consumes. A missing wave entry means the question was not asked
// (or the wave failed to produce a result) - cells render null.
type QuestionTrend struct {
	Code         core.QuestionCode                                  `json:"code"`
	Text         string                                             `json:"text"`
	Kind         MetricKind                                         `json:"kind"`
	Waves        map[core.SegmentName]map[core.WaveID]WaveResult    `json:"waves"`
	Significance map[core.SegmentName]SegmentSignificance           `json:"significance,omitempty"`
}

// ResultFor returns the wave result for a segment, false when absent.
func (qt QuestionTrend) ResultFor(segment core.SegmentName, wave core.WaveID) (WaveResult, bool) {
	res, ok := qt.Waves[segment][wave]
	return res, ok
}
