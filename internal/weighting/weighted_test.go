package weighting

import (
	"math"
	"testing"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestWeightedMeanEqualWeights(t *testing.T) {
	// Equal weights must reduce to the arithmetic mean.
	values := []float64{5, 4, 3}
	weights := []float64{1, 1, 1}

	res, err := WeightedMean(values, weights)
	if err != nil {
		t.Fatalf("WeightedMean returned error: %v", err)
	}
	if res.Mean == nil || !almostEqual(*res.Mean, 4.0) {
		t.Errorf("mean = %v, want 4.0", res.Mean)
	}
	if res.NUnweighted != 3 {
		t.Errorf("n_unweighted = %d, want 3", res.NUnweighted)
	}
	if !almostEqual(res.NWeighted, 3) {
		t.Errorf("n_weighted = %v, want 3", res.NWeighted)
	}
}

func TestWeightedMeanUsesWeights(t *testing.T) {
	values := []float64{1, 5}
	weights := []float64{3, 1}

	res, err := WeightedMean(values, weights)
	if err != nil {
		t.Fatalf("WeightedMean returned error: %v", err)
	}
	// (3*1 + 1*5) / 4 = 2
	if res.Mean == nil || !almostEqual(*res.Mean, 2.0) {
		t.Errorf("mean = %v, want 2.0", res.Mean)
	}
}

func TestWeightedMeanStandardErrorUsesUnweightedN(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	weights := []float64{2, 2, 2, 2}

	res, err := WeightedMean(values, weights)
	if err != nil {
		t.Fatalf("WeightedMean returned error: %v", err)
	}
	if res.Mean == nil || res.SD == nil || res.CILower == nil || res.CIUpper == nil {
		t.Fatal("expected full result for 4 observations")
	}

	// sd of {1,2,3,4} around 2.5 with equal weights: sqrt(1.25)
	wantSD := math.Sqrt(1.25)
	if !almostEqual(*res.SD, wantSD) {
		t.Errorf("sd = %v, want %v", *res.SD, wantSD)
	}
	// SE divides by sqrt(n_unweighted)=2, not by the weighted base 8.
	wantHalfWidth := 1.96 * wantSD / 2
	if !almostEqual(*res.CIUpper-*res.Mean, wantHalfWidth) {
		t.Errorf("ci half-width = %v, want %v", *res.CIUpper-*res.Mean, wantHalfWidth)
	}
}

func TestWeightedMeanDegenerateCases(t *testing.T) {
	// Single valid observation: mean is that value, spread undefined.
	res, err := WeightedMean([]float64{7, math.NaN()}, []float64{1, 1})
	if err != nil {
		t.Fatalf("WeightedMean returned error: %v", err)
	}
	if res.Mean == nil || *res.Mean != 7 {
		t.Errorf("mean = %v, want 7", res.Mean)
	}
	if res.SD != nil || res.CILower != nil || res.CIUpper != nil {
		t.Error("sd/ci must be nil with a single observation")
	}

	// No valid observations at all.
	res, err = WeightedMean([]float64{1, 2}, []float64{0, -1})
	if err != nil {
		t.Fatalf("WeightedMean returned error: %v", err)
	}
	if res.Mean != nil || res.NUnweighted != 0 {
		t.Errorf("expected empty result, got mean=%v n=%d", res.Mean, res.NUnweighted)
	}
}

func TestWeightedMeanLengthMismatch(t *testing.T) {
	if _, err := WeightedMean([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("length mismatch must error")
	}
}

func TestNPSScoreScenario(t *testing.T) {
	values := []float64{9, 9, 7, 3, 5}
	weights := []float64{1, 1, 1, 1, 1}

	res, err := NPSScore(values, weights)
	if err != nil {
		t.Fatalf("NPSScore returned error: %v", err)
	}
	if res.PromotersPct == nil || !almostEqual(*res.PromotersPct, 40) {
		t.Errorf("promoters_pct = %v, want 40", res.PromotersPct)
	}
	if res.PassivesPct == nil || !almostEqual(*res.PassivesPct, 20) {
		t.Errorf("passives_pct = %v, want 20", res.PassivesPct)
	}
	if res.DetractorsPct == nil || !almostEqual(*res.DetractorsPct, 40) {
		t.Errorf("detractors_pct = %v, want 40", res.DetractorsPct)
	}
	if res.NPS == nil || !almostEqual(*res.NPS, 0) {
		t.Errorf("nps = %v, want 0", res.NPS)
	}
	if res.NPromoters != 2 || res.NPassives != 1 || res.NDetractors != 2 {
		t.Errorf("category counts = %d/%d/%d, want 2/1/2",
			res.NPromoters, res.NPassives, res.NDetractors)
	}
}

func TestNPSPercentagesSumTo100(t *testing.T) {
	values := []float64{0, 2, 6, 7, 8, 9, 10, 10, 5, 7}
	weights := []float64{1, 2, 1, 0.5, 1.5, 2, 1, 1, 3, 0.25}

	res, err := NPSScore(values, weights)
	if err != nil {
		t.Fatalf("NPSScore returned error: %v", err)
	}
	sum := *res.PromotersPct + *res.PassivesPct + *res.DetractorsPct
	if !almostEqual(sum, 100) {
		t.Errorf("percentages sum to %v, want 100", sum)
	}
	if !almostEqual(*res.NPS, *res.PromotersPct-*res.DetractorsPct) {
		t.Errorf("nps %v != promoters-detractors %v", *res.NPS, *res.PromotersPct-*res.DetractorsPct)
	}
}

func TestNPSScoreEmpty(t *testing.T) {
	res, err := NPSScore(nil, nil)
	if err != nil {
		t.Fatalf("NPSScore returned error: %v", err)
	}
	if res.NPS != nil || res.PromotersPct != nil {
		t.Error("empty input must leave percentage fields nil")
	}
	if res.NPromoters != 0 || res.NUnweighted != 0 {
		t.Error("empty input must report zero counts")
	}
}

func TestProportionsObservedCodes(t *testing.T) {
	values := []float64{1, 1, 2, 3}
	weights := []float64{1, 1, 1, 1}

	res, err := Proportions(values, weights, nil)
	if err != nil {
		t.Fatalf("Proportions returned error: %v", err)
	}
	if len(res.Shares) != 3 {
		t.Fatalf("expected 3 codes, got %d", len(res.Shares))
	}
	if !almostEqual(res.Shares["1"].Proportion, 50) {
		t.Errorf("share of 1 = %v, want 50", res.Shares["1"].Proportion)
	}
	if res.Shares["1"].NUnweighted != 2 {
		t.Errorf("n of code 1 = %d, want 2", res.Shares["1"].NUnweighted)
	}
}

func TestProportionsExplicitCodes(t *testing.T) {
	values := []float64{1, 2}
	weights := []float64{1, 3}

	res, err := Proportions(values, weights, []float64{1, 2, 9})
	if err != nil {
		t.Fatalf("Proportions returned error: %v", err)
	}
	if !almostEqual(res.Shares["1"].Proportion, 25) {
		t.Errorf("share of 1 = %v, want 25", res.Shares["1"].Proportion)
	}
	if !almostEqual(res.Shares["2"].Proportion, 75) {
		t.Errorf("share of 2 = %v, want 75", res.Shares["2"].Proportion)
	}
	unseen, ok := res.Shares["9"]
	if !ok || unseen.Proportion != 0 || unseen.NUnweighted != 0 {
		t.Errorf("unobserved code should report a zero share, got %+v (present=%v)", unseen, ok)
	}
}

func TestTextProportions(t *testing.T) {
	values := []string{"Yes", "yes", " NO ", "", "No"}
	weights := []float64{1, 1, 1, 1, 1}

	res, err := TextProportions(values, weights)
	if err != nil {
		t.Fatalf("TextProportions returned error: %v", err)
	}
	if !almostEqual(res.Shares["yes"].Proportion, 50) {
		t.Errorf("yes share = %v, want 50", res.Shares["yes"].Proportion)
	}
	if !almostEqual(res.Shares["no"].Proportion, 50) {
		t.Errorf("no share = %v, want 50", res.Shares["no"].Proportion)
	}
}

func TestTopBoxScenario(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 5, 4}
	weights := []float64{1, 1, 1, 1, 1, 1, 1}

	res, err := TopBox(values, weights, 2)
	if err != nil {
		t.Fatalf("TopBox returned error: %v", err)
	}
	if len(res.BoxValues) != 2 || res.BoxValues[0] != 4 || res.BoxValues[1] != 5 {
		t.Errorf("box values = %v, want [4 5]", res.BoxValues)
	}
	if res.Proportion == nil || !almostEqual(*res.Proportion, 400.0/7.0) {
		t.Errorf("proportion = %v, want %v", res.Proportion, 400.0/7.0)
	}
	if res.ScaleDetected != "1-5" {
		t.Errorf("scale_detected = %q, want 1-5", res.ScaleDetected)
	}
}

func TestBottomBox(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	weights := []float64{1, 1, 1, 1, 1}

	res, err := BottomBox(values, weights, 2)
	if err != nil {
		t.Fatalf("BottomBox returned error: %v", err)
	}
	if len(res.BoxValues) != 2 || res.BoxValues[0] != 1 || res.BoxValues[1] != 2 {
		t.Errorf("box values = %v, want [1 2]", res.BoxValues)
	}
	if res.Proportion == nil || !almostEqual(*res.Proportion, 40) {
		t.Errorf("proportion = %v, want 40", res.Proportion)
	}
}

func TestTopBoxMoreBoxesThanValues(t *testing.T) {
	res, err := TopBox([]float64{3, 3, 3}, []float64{1, 1, 1}, 5)
	if err != nil {
		t.Fatalf("TopBox returned error: %v", err)
	}
	if res.Proportion == nil || !almostEqual(*res.Proportion, 100) {
		t.Errorf("proportion = %v, want 100", res.Proportion)
	}
}

func TestCustomRange(t *testing.T) {
	values := []float64{1, 5, 9, 10, 10}
	weights := []float64{1, 1, 1, 1, 1}

	res, err := CustomRange(values, weights, "9-10")
	if err != nil {
		t.Fatalf("CustomRange returned error: %v", err)
	}
	if res.Proportion == nil || !almostEqual(*res.Proportion, 60) {
		t.Errorf("proportion = %v, want 60", res.Proportion)
	}
	if len(res.BoxValues) != 2 || res.BoxValues[0] != 9 || res.BoxValues[1] != 10 {
		t.Errorf("range bounds = %v, want [9 10]", res.BoxValues)
	}
}

func TestCustomRangeMalformedSpecDegrades(t *testing.T) {
	for _, spec := range []string{"abc", "1-2-3", "", "1:5", "x-9"} {
		res, err := CustomRange([]float64{1, 2}, []float64{1, 1}, spec)
		if err != nil {
			t.Fatalf("malformed spec %q must not error, got %v", spec, err)
		}
		if res.Proportion != nil {
			t.Errorf("malformed spec %q must yield nil proportion", spec)
		}
		if res.NUnweighted != 2 {
			t.Errorf("malformed spec %q must still report the base", spec)
		}
	}
}

func TestDistributionSortedAndComplete(t *testing.T) {
	values := []float64{3, 1, 2, 2, math.NaN()}
	weights := []float64{1, 1, 2, 1, 1}

	bins, err := Distribution(values, weights)
	if err != nil {
		t.Fatalf("Distribution returned error: %v", err)
	}
	if len(bins) != 3 {
		t.Fatalf("expected 3 bins, got %d", len(bins))
	}
	for i := 1; i < len(bins); i++ {
		if bins[i].Value <= bins[i-1].Value {
			t.Errorf("bins not sorted ascending: %v", bins)
		}
	}
	if !almostEqual(bins[1].WeightedCount, 3) {
		t.Errorf("weighted count of 2 = %v, want 3", bins[1].WeightedCount)
	}
	var totalPct float64
	for _, b := range bins {
		totalPct += b.Proportion
	}
	if !almostEqual(totalPct, 100) {
		t.Errorf("bin proportions sum to %v, want 100", totalPct)
	}
}

func TestDeterminism(t *testing.T) {
	values := []float64{1, 2, 2, 3, 5, 5, 4, 3}
	weights := []float64{0.5, 1.5, 2, 1, 0.25, 1, 1, 3}

	first, err := WeightedMean(values, weights)
	if err != nil {
		t.Fatalf("WeightedMean returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := WeightedMean(values, weights)
		if err != nil {
			t.Fatalf("WeightedMean returned error: %v", err)
		}
		if *again.Mean != *first.Mean || *again.SD != *first.SD {
			t.Fatal("repeated runs must be bit-identical")
		}
	}
}
