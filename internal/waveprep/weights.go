package waveprep

import (
	"math"

	"github.com/rs/zerolog/log"

	"gotrack/domain/core"
)

// WeightReport describes how a wave's weight vector was obtained.
type WeightReport struct {
	Column      string // resolved column name, "" when unweighted
	Defaulted   bool   // named column absent, every weight set to 1
	NExcluded   int    // weights missing, zero, or negative
	NValid      int
	SumOfValid  float64
}

// resolveWeights builds the per-respondent weight vector for a wave.
// An empty column name means the wave runs unweighted by configuration.
// A configured name that is absent from the file falls back to unit
// weights with a warning rather than failing the run. Non-positive and
// unparseable weights become NaN so every downstream kernel drops the
// respondent.
func resolveWeights(wave core.WaveID, headers []string, column func(string) ([]string, bool), name string, decimalComma bool, nRows int) ([]float64, WeightReport) {
	report := WeightReport{Column: name}

	unit := func() []float64 {
		w := make([]float64, nRows)
		for i := range w {
			w[i] = 1
		}
		report.NValid = nRows
		report.SumOfValid = float64(nRows)
		return w
	}

	if name == "" {
		return unit(), report
	}

	raw, ok := column(name)
	if !ok {
		report.Defaulted = true
		log.Warn().
			Str("wave", string(wave)).
			Str("weight_var", name).
			Msg("weight column not found, defaulting all weights to 1")
		return unit(), report
	}

	weights := make([]float64, nRows)
	for i := 0; i < nRows; i++ {
		cell := ""
		if i < len(raw) {
			cell = raw[i]
		}
		v, missing, _ := parseNumeric(cell, decimalComma)
		if missing || v <= 0 {
			weights[i] = math.NaN()
			report.NExcluded++
			continue
		}
		weights[i] = v
		report.NValid++
		report.SumOfValid += v
	}

	if report.NExcluded > 0 {
		log.Warn().
			Str("wave", string(wave)).
			Str("weight_var", name).
			Int("excluded", report.NExcluded).
			Msg("respondents with missing or non-positive weights excluded")
	}
	return weights, report
}
