// Package weighting implements the weighted descriptive statistics the
// tracking engine runs per question, wave, and segment. Every function is
// pure: identical inputs produce identical outputs, and invalid rows
// (missing value, missing weight, weight <= 0) are dropped pairwise, never
// coerced. Missing numeric values are represented as NaN.
package weighting

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"gotrack/domain/metrics"
)

// ciZ is the fixed 95% interval multiplier the report contract uses. The
// interval is not alpha-dependent; significance testing is.
const ciZ = 1.96

type pair struct {
	value  float64
	weight float64
}

// validPairs drops observations with a missing value, missing weight, or
// non-positive weight. Returns an error only on a length mismatch, which
// is a programming defect rather than a data condition.
func validPairs(values, weights []float64) ([]pair, error) {
	if len(values) != len(weights) {
		return nil, fmt.Errorf("values and weights differ in length: %d vs %d", len(values), len(weights))
	}
	pairs := make([]pair, 0, len(values))
	for i := range values {
		if math.IsNaN(values[i]) || math.IsNaN(weights[i]) || weights[i] <= 0 {
			continue
		}
		pairs = append(pairs, pair{value: values[i], weight: weights[i]})
	}
	return pairs, nil
}

func sumWeights(pairs []pair) float64 {
	var total float64
	for _, p := range pairs {
		total += p.weight
	}
	return total
}

// PairWeights returns the weights of the valid (value, weight) pairs in
// order, so cell-level design effects run over exactly the weights a
// statistic used.
func PairWeights(values, weights []float64) []float64 {
	pairs, err := validPairs(values, weights)
	if err != nil {
		return nil
	}
	out := make([]float64, len(pairs))
	for i, p := range pairs {
		out[i] = p.weight
	}
	return out
}

func ptr(v float64) *float64 { return &v }

// WeightedMean computes the weighted mean with its weighted SD and a 95%
// interval. The standard error divides by the square root of the
// unweighted count; downstream confidence intervals are validated against
// that convention, so it is deliberate.
func WeightedMean(values, weights []float64) (metrics.MeanResult, error) {
	pairs, err := validPairs(values, weights)
	if err != nil {
		return metrics.MeanResult{}, err
	}

	res := metrics.MeanResult{NUnweighted: len(pairs), NWeighted: sumWeights(pairs)}
	if len(pairs) == 0 {
		return res, nil
	}

	var weightedSum float64
	for _, p := range pairs {
		weightedSum += p.weight * p.value
	}
	mean := weightedSum / res.NWeighted
	res.Mean = ptr(mean)

	if len(pairs) < 2 {
		return res, nil
	}

	var sqDev float64
	for _, p := range pairs {
		d := p.value - mean
		sqDev += p.weight * d * d
	}
	sd := math.Sqrt(sqDev / res.NWeighted)
	se := sd / math.Sqrt(float64(len(pairs)))
	res.SD = ptr(sd)
	res.CILower = ptr(mean - ciZ*se)
	res.CIUpper = ptr(mean + ciZ*se)
	return res, nil
}

// NPSScore buckets 0-10 responses into detractors (<=6), passives (7-8),
// and promoters (>=9) and returns the weighted percentage of each plus
// their difference. No valid rows leaves every percentage nil.
func NPSScore(values, weights []float64) (metrics.NPSResult, error) {
	pairs, err := validPairs(values, weights)
	if err != nil {
		return metrics.NPSResult{}, err
	}

	res := metrics.NPSResult{NUnweighted: len(pairs), NWeighted: sumWeights(pairs)}
	if len(pairs) == 0 {
		return res, nil
	}

	var wProm, wPass, wDetr float64
	for _, p := range pairs {
		switch {
		case p.value >= 9:
			wProm += p.weight
			res.NPromoters++
		case p.value >= 7:
			wPass += p.weight
			res.NPassives++
		default:
			wDetr += p.weight
			res.NDetractors++
		}
	}

	prom := 100 * wProm / res.NWeighted
	pass := 100 * wPass / res.NWeighted
	detr := 100 * wDetr / res.NWeighted
	res.PromotersPct = ptr(prom)
	res.PassivesPct = ptr(pass)
	res.DetractorsPct = ptr(detr)
	res.NPS = ptr(prom - detr)
	return res, nil
}

// Proportions computes each code's weighted share of the valid base.
// A nil codes slice means "every distinct observed value". Codes supplied
// explicitly but never observed report a zero share.
func Proportions(values, weights []float64, codes []float64) (metrics.ProportionsResult, error) {
	pairs, err := validPairs(values, weights)
	if err != nil {
		return metrics.ProportionsResult{}, err
	}

	total := sumWeights(pairs)
	weightByCode := make(map[float64]float64)
	countByCode := make(map[float64]int)
	for _, p := range pairs {
		weightByCode[p.value] += p.weight
		countByCode[p.value]++
	}

	if codes == nil {
		codes = make([]float64, 0, len(weightByCode))
		for code := range weightByCode {
			codes = append(codes, code)
		}
		sort.Float64s(codes)
	}

	shares := make(map[string]metrics.Share, len(codes))
	for _, code := range codes {
		share := metrics.Share{
			NUnweighted: countByCode[code],
			NWeighted:   weightByCode[code],
		}
		if total > 0 {
			share.Proportion = 100 * weightByCode[code] / total
		}
		shares[metrics.CodeKey(code)] = share
	}
	return metrics.ProportionsResult{Shares: shares}, nil
}

// TextProportions is the categorical counterpart of Proportions for
// columns that stay text. Blank values are missing.
func TextProportions(values []string, weights []float64) (metrics.ProportionsResult, error) {
	if len(values) != len(weights) {
		return metrics.ProportionsResult{}, fmt.Errorf("values and weights differ in length: %d vs %d", len(values), len(weights))
	}

	var total float64
	weightByKey := make(map[string]float64)
	countByKey := make(map[string]int)
	for i, raw := range values {
		key := metrics.TextKey(raw)
		if key == "" || math.IsNaN(weights[i]) || weights[i] <= 0 {
			continue
		}
		total += weights[i]
		weightByKey[key] += weights[i]
		countByKey[key]++
	}

	shares := make(map[string]metrics.Share, len(weightByKey))
	for key, w := range weightByKey {
		share := metrics.Share{NUnweighted: countByKey[key], NWeighted: w}
		if total > 0 {
			share.Proportion = 100 * w / total
		}
		shares[key] = share
	}
	return metrics.ProportionsResult{Shares: shares}, nil
}

// Distribution returns every distinct value's weighted count and share in
// ascending value order.
func Distribution(values, weights []float64) ([]metrics.DistributionBin, error) {
	pairs, err := validPairs(values, weights)
	if err != nil {
		return nil, err
	}

	total := sumWeights(pairs)
	weightByValue := make(map[float64]float64)
	for _, p := range pairs {
		weightByValue[p.value] += p.weight
	}

	distinct := make([]float64, 0, len(weightByValue))
	for v := range weightByValue {
		distinct = append(distinct, v)
	}
	sort.Float64s(distinct)

	bins := make([]metrics.DistributionBin, 0, len(distinct))
	for _, v := range distinct {
		bin := metrics.DistributionBin{Value: v, WeightedCount: weightByValue[v]}
		if total > 0 {
			bin.Proportion = 100 * weightByValue[v] / total
		}
		bins = append(bins, bin)
	}
	return bins, nil
}

// TopBox reports the weighted share of the nBoxes highest distinct scale
// values actually observed. The detected scale is reported as "1-{max}"
// regardless of the observed minimum, matching the tracking reports this
// feeds.
func TopBox(values, weights []float64, nBoxes int) (metrics.BoxResult, error) {
	return box(values, weights, nBoxes, true)
}

// BottomBox is TopBox's mirror over the lowest distinct values.
func BottomBox(values, weights []float64, nBoxes int) (metrics.BoxResult, error) {
	return box(values, weights, nBoxes, false)
}

func box(values, weights []float64, nBoxes int, top bool) (metrics.BoxResult, error) {
	pairs, err := validPairs(values, weights)
	if err != nil {
		return metrics.BoxResult{}, err
	}
	if nBoxes < 1 {
		return metrics.BoxResult{}, fmt.Errorf("box size must be >= 1, got %d", nBoxes)
	}

	res := metrics.BoxResult{NUnweighted: len(pairs), NWeighted: sumWeights(pairs)}
	if len(pairs) == 0 {
		return res, nil
	}

	distinct := distinctValues(pairs)
	if nBoxes > len(distinct) {
		nBoxes = len(distinct)
	}

	var boxValues []float64
	if top {
		boxValues = distinct[len(distinct)-nBoxes:]
	} else {
		boxValues = distinct[:nBoxes]
	}

	res.BoxValues = append([]float64(nil), boxValues...)
	res.ScaleDetected = fmt.Sprintf("1-%s", metrics.CodeKey(distinct[len(distinct)-1]))
	res.Proportion = ptr(shareOf(pairs, res.NWeighted, func(v float64) bool {
		for _, b := range boxValues {
			if v == b {
				return true
			}
		}
		return false
	}))
	return res, nil
}

// CustomRange reports the weighted share of values inside the inclusive
// "A-B" range. A malformed spec degrades to a nil proportion with a
// warning so one bad spec cannot abort the run's remaining metrics.
func CustomRange(values, weights []float64, spec string) (metrics.BoxResult, error) {
	pairs, err := validPairs(values, weights)
	if err != nil {
		return metrics.BoxResult{}, err
	}

	res := metrics.BoxResult{NUnweighted: len(pairs), NWeighted: sumWeights(pairs)}

	low, high, ok := parseRange(spec)
	if !ok {
		log.Warn().Str("spec", spec).Msg("malformed range spec, reporting null")
		return res, nil
	}
	res.BoxValues = []float64{low, high}

	if len(pairs) == 0 {
		return res, nil
	}
	res.Proportion = ptr(shareOf(pairs, res.NWeighted, func(v float64) bool {
		return v >= low && v <= high
	}))
	return res, nil
}

// parseRange splits "A-B" into its inclusive numeric bounds. Bounds given
// in reverse order are swapped rather than rejected.
func parseRange(spec string) (low, high float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(spec), "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	low, errLow := parseBound(parts[0])
	high, errHigh := parseBound(parts[1])
	if errLow != nil || errHigh != nil {
		return 0, 0, false
	}
	if low > high {
		low, high = high, low
	}
	return low, high, true
}

func parseBound(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func shareOf(pairs []pair, total float64, match func(float64) bool) float64 {
	if total <= 0 {
		return 0
	}
	var matched float64
	for _, p := range pairs {
		if match(p.value) {
			matched += p.weight
		}
	}
	return 100 * matched / total
}

func distinctValues(pairs []pair) []float64 {
	seen := make(map[float64]bool, len(pairs))
	for _, p := range pairs {
		seen[p.value] = true
	}
	distinct := make([]float64, 0, len(seen))
	for v := range seen {
		distinct = append(distinct, v)
	}
	sort.Float64s(distinct)
	return distinct
}
