package weighting

import (
	"math"

	"github.com/montanaflynn/stats"

	"gotrack/domain/metrics"
)

// ReviewThreshold is the design effect above which a wave's weighting
// deserves a manual review before its trends are trusted.
const ReviewThreshold = 2.0

// ReviewFlag is the diagnostic label attached above ReviewThreshold.
const ReviewFlag = "review weighting"

// DesignEffect is Kish's approximation (n * sum(w^2)) / (sum(w))^2 over
// the valid (positive, non-missing) weights. Equal weights give exactly 1;
// any spread gives more. No valid weights gives 1 by convention.
func DesignEffect(weights []float64) float64 {
	valid := validWeights(weights)
	if len(valid) == 0 {
		return 1
	}

	var sum, sumSq float64
	for _, w := range valid {
		sum += w
		sumSq += w * w
	}
	if sum == 0 {
		return 1
	}
	return float64(len(valid)) * sumSq / (sum * sum)
}

// EffectiveN is the sample size after discounting for unequal weights:
// n / DesignEffect. Never exceeds the valid count.
func EffectiveN(weights []float64) float64 {
	valid := validWeights(weights)
	if len(valid) == 0 {
		return 0
	}
	return float64(len(valid)) / DesignEffect(weights)
}

// Diagnose summarizes a wave's weight vector for the run metadata. The
// Wave field is left for the caller to fill.
func Diagnose(weights []float64) metrics.WaveDiagnostics {
	valid := validWeights(weights)
	diag := metrics.WaveDiagnostics{
		NRespondents:  len(weights),
		NValidWeights: len(valid),
	}
	if len(valid) == 0 {
		diag.DesignEffect = 1
		return diag
	}

	for _, w := range valid {
		diag.SumWeights += w
	}
	diag.MinWeight, _ = stats.Min(valid)
	diag.MaxWeight, _ = stats.Max(valid)
	diag.MedianWeight, _ = stats.Median(valid)
	diag.DesignEffect = DesignEffect(weights)
	diag.EffectiveN = EffectiveN(weights)
	if diag.DesignEffect > ReviewThreshold {
		diag.Flag = ReviewFlag
	}
	return diag
}

func validWeights(weights []float64) []float64 {
	valid := make([]float64, 0, len(weights))
	for _, w := range weights {
		if math.IsNaN(w) || w <= 0 {
			continue
		}
		valid = append(valid, w)
	}
	return valid
}
