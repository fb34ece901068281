package trend

import (
	"math"

	"gotrack/domain/survey"
)

// compositeSeries derives a composite question's per-respondent values
// from its source columns. sources holds one full-length numeric column
// per configured source question, in configuration order; a nil entry
// means that source was not fielded this wave. A respondent with every
// source missing is missing; otherwise the calculation runs over the
// values present.
func compositeSeries(q survey.Question, sources [][]float64, nRows int) []float64 {
	out := make([]float64, nRows)
	for i := 0; i < nRows; i++ {
		var sum, weightSum float64
		var present int
		for j, col := range sources {
			if col == nil || i >= len(col) || math.IsNaN(col[i]) {
				continue
			}
			v := col[i]
			if q.Calc == survey.CompositeWeightedMean {
				w := q.SourceWeights[j]
				sum += w * v
				weightSum += w
			} else {
				sum += v
			}
			present++
		}

		if present == 0 {
			out[i] = math.NaN()
			continue
		}
		switch q.Calc {
		case survey.CompositeSum:
			out[i] = sum
		case survey.CompositeWeightedMean:
			if weightSum == 0 {
				out[i] = math.NaN()
			} else {
				out[i] = sum / weightSum
			}
		default:
			out[i] = sum / float64(present)
		}
	}
	return out
}
