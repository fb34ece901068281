package weighting

import (
	"math"
	"testing"
)

func TestDesignEffectEqualWeights(t *testing.T) {
	for _, w := range []float64{0.25, 1, 3.7} {
		weights := []float64{w, w, w, w, w}
		if deff := DesignEffect(weights); !almostEqual(deff, 1) {
			t.Errorf("equal weights %v: DEFF = %v, want 1", w, deff)
		}
		if effN := EffectiveN(weights); !almostEqual(effN, 5) {
			t.Errorf("equal weights %v: effective n = %v, want 5", w, effN)
		}
	}
}

func TestDesignEffectUnequalWeightsExceedsOne(t *testing.T) {
	cases := [][]float64{
		{1, 2},
		{0.5, 1, 1.5, 2},
		{1, 1, 1, 10},
	}
	for _, weights := range cases {
		deff := DesignEffect(weights)
		if deff <= 1 {
			t.Errorf("weights %v: DEFF = %v, want > 1", weights, deff)
		}
		effN := EffectiveN(weights)
		if effN > float64(len(weights))+eps {
			t.Errorf("weights %v: effective n %v exceeds n %d", weights, effN, len(weights))
		}
	}
}

func TestDesignEffectKnownValue(t *testing.T) {
	// n=2, sum=3, sumsq=5: deff = 2*5/9
	deff := DesignEffect([]float64{1, 2})
	if !almostEqual(deff, 10.0/9.0) {
		t.Errorf("DEFF = %v, want %v", deff, 10.0/9.0)
	}
}

func TestDesignEffectIgnoresInvalidWeights(t *testing.T) {
	clean := DesignEffect([]float64{1, 2, 3})
	dirty := DesignEffect([]float64{1, 2, 3, 0, -4, math.NaN()})
	if !almostEqual(clean, dirty) {
		t.Errorf("invalid weights changed DEFF: %v vs %v", clean, dirty)
	}
}

func TestEffectiveNEmpty(t *testing.T) {
	if effN := EffectiveN(nil); effN != 0 {
		t.Errorf("effective n of empty vector = %v, want 0", effN)
	}
	if deff := DesignEffect(nil); deff != 1 {
		t.Errorf("DEFF of empty vector = %v, want 1", deff)
	}
}

func TestDiagnoseFlagsHighDesignEffect(t *testing.T) {
	// Extreme spread pushes DEFF past the review threshold.
	weights := []float64{0.1, 0.1, 0.1, 0.1, 10}
	diag := Diagnose(weights)
	if diag.DesignEffect <= ReviewThreshold {
		t.Fatalf("expected DEFF > %v, got %v", ReviewThreshold, diag.DesignEffect)
	}
	if diag.Flag != ReviewFlag {
		t.Errorf("flag = %q, want %q", diag.Flag, ReviewFlag)
	}
}

func TestDiagnoseSummary(t *testing.T) {
	weights := []float64{0.5, 1, 1.5, 0, math.NaN()}
	diag := Diagnose(weights)

	if diag.NRespondents != 5 || diag.NValidWeights != 3 {
		t.Errorf("counts = %d/%d, want 5/3", diag.NRespondents, diag.NValidWeights)
	}
	if !almostEqual(diag.SumWeights, 3) {
		t.Errorf("sum = %v, want 3", diag.SumWeights)
	}
	if !almostEqual(diag.MinWeight, 0.5) || !almostEqual(diag.MaxWeight, 1.5) {
		t.Errorf("min/max = %v/%v, want 0.5/1.5", diag.MinWeight, diag.MaxWeight)
	}
	if !almostEqual(diag.MedianWeight, 1) {
		t.Errorf("median = %v, want 1", diag.MedianWeight)
	}
	if diag.Flag != "" {
		t.Errorf("mild weights should not be flagged, got %q", diag.Flag)
	}
}
