package metrics

import (
	"strconv"
	"strings"
)

// MetricKind tags which variant a WaveResult carries. The set is closed;
// dispatch switches over it exhaustively.
type MetricKind string

const (
	KindMean        MetricKind = "mean"
	KindNPS         MetricKind = "nps"
	KindProportions MetricKind = "proportions"
	KindRating      MetricKind = "rating_enhanced"
	KindComposite   MetricKind = "composite_enhanced"
	KindMulti       MetricKind = "multi_mention"
)

// MeanResult is one weighted-mean computation. SD and the interval are nil
// below 2 valid observations; Mean is nil at 0.
type MeanResult struct {
	Mean        *float64 `json:"mean"`
	SD          *float64 `json:"sd"`
	CILower     *float64 `json:"ci_lower"`
	CIUpper     *float64 `json:"ci_upper"`
	NUnweighted int      `json:"n_unweighted"`
	NWeighted   float64  `json:"n_weighted"`
}

// NPSResult is one NPS computation. Percentage fields are nil when no
// valid rows exist; the category counts are unweighted.
type NPSResult struct {
	NPS           *float64 `json:"nps"`
	PromotersPct  *float64 `json:"promoters_pct"`
	PassivesPct   *float64 `json:"passives_pct"`
	DetractorsPct *float64 `json:"detractors_pct"`
	NUnweighted   int      `json:"n_unweighted"`
	NWeighted     float64  `json:"n_weighted"`
	NPromoters    int      `json:"n_promoters"`
	NPassives     int      `json:"n_passives"`
	NDetractors   int      `json:"n_detractors"`
}

// Share is one response code's weighted share of the valid base.
type Share struct {
	Proportion  float64 `json:"proportion"`
	NUnweighted int     `json:"n_unweighted"`
	NWeighted   float64 `json:"n_weighted"`
}

// ProportionsResult maps canonical code keys (CodeKey/TextKey) to shares.
type ProportionsResult struct {
	Shares map[string]Share `json:"shares"`
}

// DistributionBin is one distinct value's weighted count and share,
// reported in ascending value order.
type DistributionBin struct {
	Value         float64 `json:"value"`
	WeightedCount float64 `json:"weighted_count"`
	Proportion    float64 `json:"proportion"`
}

// BoxResult is a top-box, bottom-box, or custom-range share. Proportion is
// nil when the box spec was malformed or no valid rows exist.
type BoxResult struct {
	Proportion    *float64  `json:"proportion"`
	BoxValues     []float64 `json:"box_values"`
	ScaleDetected string    `json:"scale_detected,omitempty"`
	NUnweighted   int       `json:"n_unweighted"`
	NWeighted     float64   `json:"n_weighted"`
}

// EnhancedResult carries a rating or composite question's full metric set:
// the mean with its interval, plus every requested derived metric keyed by
// its normalized name ("mean", "top2_box", "range_9_10", "box_agree", ...).
type EnhancedResult struct {
	Mean    MeanResult          `json:"mean_detail"`
	Metrics map[string]*float64 `json:"metrics"`
}

// MultiMentionResult carries a select-all question's per-option mention
// shares (keyed by option label), derived metrics ("any", "count_mean"),
// and per-code shares for option-level significance testing.
type MultiMentionResult struct {
	Mentions map[string]float64  `json:"mentions"`
	Metrics  map[string]*float64 `json:"metrics"`
	Shares   map[string]Share    `json:"shares"`
}

// WaveResult is one question's computed result for one wave and segment.
// Exactly one variant pointer is set, selected by Kind. Available is false
// when no valid observations exist for the wave and segment; small bases
// stay available and are gated separately at significance testing, so a
// report can still show their values and sample sizes.
type WaveResult struct {
	Kind         MetricKind `json:"kind"`
	Available    bool       `json:"available"`
	NUnweighted  int        `json:"n_unweighted"`
	NWeighted    float64    `json:"n_weighted"`
	EffectiveN   float64    `json:"effective_n"`
	DesignEffect float64    `json:"design_effect"`

	Mean        *MeanResult         `json:"mean,omitempty"`
	NPS         *NPSResult          `json:"nps,omitempty"`
	Proportions *ProportionsResult  `json:"proportions,omitempty"`
	Rating      *EnhancedResult     `json:"rating,omitempty"`
	Composite   *EnhancedResult     `json:"composite,omitempty"`
	Multi       *MultiMentionResult `json:"multi,omitempty"`
}

// BaseN returns the sample size significance testing should use: the
// effective N when known, otherwise the unweighted count.
func (r WaveResult) BaseN() float64 {
	if r.EffectiveN > 0 {
		return r.EffectiveN
	}
	return float64(r.NUnweighted)
}

// Enhanced returns the enhanced variant for rating and composite results,
// nil otherwise.
func (r WaveResult) Enhanced() *EnhancedResult {
	switch r.Kind {
	case KindRating:
		return r.Rating
	case KindComposite:
		return r.Composite
	default:
		return nil
	}
}

// CodeKey renders a numeric response code as its canonical map key:
// integral values without a decimal part ("5"), others with the shortest
// round-trip form ("4.5").
func CodeKey(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TextKey renders a text response as its canonical map key.
func TextKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
