// Package sigtest decides whether between-wave movement is statistically
// real. Point tests take summary statistics (never raw respondent rows)
// and the effective sample sizes produced by the weighting stage; the
// driver in this package handles base-size gating so the point tests can
// assume their inputs are testable.
package sigtest

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gotrack/domain/metrics"
)

func ptr(v float64) *float64 { return &v }

// TTestMeans runs the pooled-variance two-sample t-test.
func TTestMeans(mean1, sd1, n1, mean2, sd2, n2, alpha float64) metrics.SignificanceResult {
	df := n1 + n2 - 2
	if n1 <= 0 || n2 <= 0 || df <= 0 {
		return metrics.NotTested(metrics.ReasonInsufficientBase)
	}

	pooledVar := ((n1-1)*sd1*sd1 + (n2-1)*sd2*sd2) / df
	se := math.Sqrt(pooledVar) * math.Sqrt(1/n1+1/n2)
	if se == 0 {
		// Zero spread on both sides: nothing to test against.
		return metrics.SignificanceResult{Significant: false}
	}

	t := (mean2 - mean1) / se
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * tDist.CDF(-math.Abs(t))

	return metrics.SignificanceResult{
		Statistic:   ptr(t),
		DF:          ptr(df),
		PValue:      ptr(p),
		Significant: p < alpha,
	}
}

// ZTestProportions runs the pooled two-sample z-test. Proportions are
// fractions in [0,1], not percentages.
func ZTestProportions(p1, n1, p2, n2, alpha float64) metrics.SignificanceResult {
	if n1 <= 0 || n2 <= 0 {
		return metrics.NotTested(metrics.ReasonInsufficientBase)
	}

	pooled := (p1*n1 + p2*n2) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		// Both shares are 0% or both 100%; the pooled variance collapses.
		return metrics.SignificanceResult{Significant: false}
	}

	z := (p2 - p1) / se
	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))

	return metrics.SignificanceResult{
		Statistic:   ptr(z),
		PValue:      ptr(p),
		Significant: p < alpha,
	}
}

// NPSSignificance tests an NPS change with the conservative worst-case
// variance bound: each respondent contributes at most 100 points of
// spread, so SE = sqrt(10000/n1 + 10000/n2) can only overstate the true
// error. A movement it calls significant survives any exact test.
func NPSSignificance(nps1, n1, nps2, n2, alpha float64) metrics.SignificanceResult {
	if n1 <= 0 || n2 <= 0 {
		return metrics.NotTested(metrics.ReasonInsufficientBase)
	}

	se := math.Sqrt(10000/n1 + 10000/n2)
	z := math.Abs(nps2-nps1) / se
	critical := distuv.UnitNormal.Quantile(1 - alpha/2)
	p := 2 * (1 - distuv.UnitNormal.CDF(z))

	return metrics.SignificanceResult{
		Statistic:   ptr(z),
		PValue:      ptr(p),
		Significant: z > critical,
	}
}
