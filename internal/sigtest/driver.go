package sigtest

import (
	"gotrack/domain/core"
	"gotrack/domain/metrics"
)

// PairTest runs one point test over two waves' results. The driver has
// already verified availability and base size; a PairTest may still
// report ReasonCodeNotFound when the compared response code is missing
// from one side.
type PairTest func(from, to metrics.WaveResult) metrics.SignificanceResult

// Tester drives between-wave comparisons with the shared gating rule:
// both sides available, both effective bases at or above the minimum.
// The same iteration serves means, NPS, box shares, and option shares -
// only the point test differs.
type Tester struct {
	Alpha       float64
	MinimumBase float64
}

// New returns a Tester for the given decision threshold and minimum base.
func New(alpha, minimumBase float64) *Tester {
	return &Tester{Alpha: alpha, MinimumBase: minimumBase}
}

// testable applies the gate. Effective N falls back to the unweighted
// count inside BaseN when the weighting stage produced none.
func (t *Tester) testable(res metrics.WaveResult, ok bool) bool {
	return ok && res.Available && res.BaseN() >= t.MinimumBase
}

// ConsecutivePairs compares each temporally adjacent wave pair, keyed by
// PairKey ("W1_vs_W2", ...). Pairs failing the gate record the untested
// state instead of a statistic; pairs where either wave is entirely
// absent (question not asked) do the same.
func (t *Tester) ConsecutivePairs(
	order []core.WaveID,
	results map[core.WaveID]metrics.WaveResult,
	test PairTest,
) map[string]metrics.SignificanceResult {
	out := make(map[string]metrics.SignificanceResult)
	for i := 1; i < len(order); i++ {
		fromID, toID := order[i-1], order[i]
		key := metrics.PairKey(fromID, toID)

		from, okFrom := results[fromID]
		to, okTo := results[toID]
		if !t.testable(from, okFrom) || !t.testable(to, okTo) {
			out[key] = metrics.NotTested(metrics.ReasonInsufficientBase)
			continue
		}
		out[key] = test(from, to)
	}
	return out
}

// MeanTest builds the PairTest for mean metrics: a pooled t-test over the
// two means using effective Ns.
func (t *Tester) MeanTest() PairTest {
	return func(from, to metrics.WaveResult) metrics.SignificanceResult {
		m1, ok1 := meanDetail(from)
		m2, ok2 := meanDetail(to)
		if !ok1 || !ok2 {
			return metrics.NotTested(metrics.ReasonInsufficientBase)
		}
		return TTestMeans(*m1.Mean, *m1.SD, from.BaseN(), *m2.Mean, *m2.SD, to.BaseN(), t.Alpha)
	}
}

// NPSTest builds the PairTest for NPS movement.
func (t *Tester) NPSTest() PairTest {
	return func(from, to metrics.WaveResult) metrics.SignificanceResult {
		if from.NPS == nil || to.NPS == nil || from.NPS.NPS == nil || to.NPS.NPS == nil {
			return metrics.NotTested(metrics.ReasonInsufficientBase)
		}
		return NPSSignificance(*from.NPS.NPS, from.BaseN(), *to.NPS.NPS, to.BaseN(), t.Alpha)
	}
}

// ShareTest builds the PairTest for one response code's share: a pooled
// z-test over the code's proportion in both waves. The code must exist on
// both sides.
func (t *Tester) ShareTest(codeKey string) PairTest {
	return func(from, to metrics.WaveResult) metrics.SignificanceResult {
		s1, ok1 := shareFor(from, codeKey)
		s2, ok2 := shareFor(to, codeKey)
		if !ok1 || !ok2 {
			return metrics.NotTested(metrics.ReasonCodeNotFound)
		}
		return ZTestProportions(s1.Proportion/100, from.BaseN(), s2.Proportion/100, to.BaseN(), t.Alpha)
	}
}

// MetricTest builds the PairTest for a named metric of an enhanced
// (rating or composite) result. The "mean" key runs the t-test with the
// stored spread; every other key is a percentage metric and runs the
// z-test on its share.
func (t *Tester) MetricTest(metricKey string) PairTest {
	if metricKey == "mean" {
		return t.MeanTest()
	}
	return func(from, to metrics.WaveResult) metrics.SignificanceResult {
		v1, ok1 := enhancedValue(from, metricKey)
		v2, ok2 := enhancedValue(to, metricKey)
		if !ok1 || !ok2 {
			return metrics.NotTested(metrics.ReasonCodeNotFound)
		}
		return ZTestProportions(v1/100, from.BaseN(), v2/100, to.BaseN(), t.Alpha)
	}
}

func meanDetail(res metrics.WaveResult) (metrics.MeanResult, bool) {
	var m *metrics.MeanResult
	if enh := res.Enhanced(); enh != nil {
		m = &enh.Mean
	} else if res.Mean != nil {
		m = res.Mean
	}
	if m == nil || m.Mean == nil || m.SD == nil {
		return metrics.MeanResult{}, false
	}
	return *m, true
}

func shareFor(res metrics.WaveResult, codeKey string) (metrics.Share, bool) {
	var shares map[string]metrics.Share
	switch {
	case res.Proportions != nil:
		shares = res.Proportions.Shares
	case res.Multi != nil:
		shares = res.Multi.Shares
	}
	s, ok := shares[codeKey]
	return s, ok
}

func enhancedValue(res metrics.WaveResult, metricKey string) (float64, bool) {
	enh := res.Enhanced()
	if enh == nil {
		return 0, false
	}
	v, ok := enh.Metrics[metricKey]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}
