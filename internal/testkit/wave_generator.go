// Package testkit generates synthetic tracking studies: multi-wave
// respondent files with planted trends, plus a ready-to-run project
// configuration pointing at them. Planted movements are strong enough
// that the significance stage must find them; everything else floats on
// seeded noise.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gotrack/domain/core"
	"gotrack/domain/survey"
	"gotrack/domain/track"
)

// WaveGeneratorConfig configures the synthetic study generator.
type WaveGeneratorConfig struct {
	WaveCount          int     `json:"wave_count"`
	RespondentsPerWave int     `json:"respondents_per_wave"`
	SatisfactionBase   float64 `json:"satisfaction_base"`
	SatisfactionDrift  float64 `json:"satisfaction_drift"` // per-wave shift of the mean
	NPSBase            float64 `json:"nps_base"`
	NPSDrift           float64 `json:"nps_drift"`
	BrandAlphaShare    float64 `json:"brand_alpha_share"`
	BrandAlphaDrift    float64 `json:"brand_alpha_drift"` // per-wave share shift toward Brand Alpha
	AwarenessBase      float64 `json:"awareness_base"`
	AwarenessDrift     float64 `json:"awareness_drift"`
	WeightSpread       float64 `json:"weight_spread"` // 0 = every weight exactly 1
	Seed               int64   `json:"seed"`
}

// DefaultWaveConfig returns a three-wave study with clearly planted
// upward movement on satisfaction, NPS, and Brand Alpha.
func DefaultWaveConfig() WaveGeneratorConfig {
	return WaveGeneratorConfig{
		WaveCount:          3,
		RespondentsPerWave: 600,
		SatisfactionBase:   3.4,
		SatisfactionDrift:  0.25,
		NPSBase:            7.0,
		NPSDrift:           0.4,
		BrandAlphaShare:    0.38,
		BrandAlphaDrift:    0.06,
		AwarenessBase:      0.55,
		AwarenessDrift:     0.08,
		WeightSpread:       0.25,
		Seed:               42,
	}
}

// WaveGenerator produces deterministic synthetic wave files.
type WaveGenerator struct {
	config WaveGeneratorConfig
	rng    *rand.Rand
}

// NewWaveGenerator creates a generator seeded from the config.
func NewWaveGenerator(config WaveGeneratorConfig) *WaveGenerator {
	return &WaveGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

var brandNames = []string{"Brand Alpha", "Brand Beta", "Brand Gamma"}

var regions = []string{"North", "South", "East", "West"}

// GenerateStudy writes one CSV per wave into dir and returns a project
// configuration wired to the generated files. The same seed always
// produces byte-identical files.
func (g *WaveGenerator) GenerateStudy(dir string) (*track.Config, error) {
	waves := make([]track.WaveConfig, 0, g.config.WaveCount)
	for i := 0; i < g.config.WaveCount; i++ {
		id := core.WaveID(fmt.Sprintf("W%d", i+1))
		path := filepath.Join(dir, fmt.Sprintf("wave_%02d.csv", i+1))
		if err := g.writeWave(path, i); err != nil {
			return nil, fmt.Errorf("writing wave %s: %w", id, err)
		}
		waves = append(waves, track.WaveConfig{
			ID:       id,
			Name:     fmt.Sprintf("Wave %d", i+1),
			DataFile: path,
		})
	}
	return g.studyConfig(waves), nil
}

// writeWave renders one wave's respondent table. waveIndex drives the
// planted drifts.
func (g *WaveGenerator) writeWave(path string, waveIndex int) error {
	var sb strings.Builder
	sb.WriteString("resp,weight,REGION,SAT,NPS,BRAND,AWARE_1,AWARE_2,AWARE_3\n")

	satMean := g.config.SatisfactionBase + g.config.SatisfactionDrift*float64(waveIndex)
	npsMean := g.config.NPSBase + g.config.NPSDrift*float64(waveIndex)
	alphaShare := g.config.BrandAlphaShare + g.config.BrandAlphaDrift*float64(waveIndex)
	awareAlpha := g.config.AwarenessBase + g.config.AwarenessDrift*float64(waveIndex)

	for r := 0; r < g.config.RespondentsPerWave; r++ {
		fields := []string{
			fmt.Sprintf("%d", r+1),
			fmt.Sprintf("%.4f", g.randomWeight()),
			regions[g.rng.Intn(len(regions))],
			fmt.Sprintf("%d", g.clampedScale(satMean, 0.9, 1, 5)),
			fmt.Sprintf("%d", g.clampedScale(npsMean, 2.0, 0, 10)),
			g.randomBrand(alphaShare),
		}
		fields = append(fields, g.mentions(awareAlpha)...)
		sb.WriteString(strings.Join(fields, ","))
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// randomWeight draws a positive weight around 1. Spread 0 keeps the
// sample self-weighted.
func (g *WaveGenerator) randomWeight() float64 {
	if g.config.WeightSpread <= 0 {
		return 1
	}
	w := math.Exp(g.rng.NormFloat64() * g.config.WeightSpread)
	if w < 0.2 {
		w = 0.2
	}
	if w > 5 {
		w = 5
	}
	return w
}

// clampedScale draws a rounded normal observation clamped to the scale.
func (g *WaveGenerator) clampedScale(mean, sd float64, lo, hi int) int {
	v := int(math.Round(mean + g.rng.NormFloat64()*sd))
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}

// randomBrand picks the most-used brand: Alpha gets alphaShare, the
// remainder splits 60/40 between Beta and Gamma.
func (g *WaveGenerator) randomBrand(alphaShare float64) string {
	r := g.rng.Float64()
	switch {
	case r < alphaShare:
		return brandNames[0]
	case r < alphaShare+(1-alphaShare)*0.6:
		return brandNames[1]
	default:
		return brandNames[2]
	}
}

// mentions renders the aided-awareness indicator columns as mention
// text, blank when the brand was not mentioned. Alpha's probability
// drifts; Beta and Gamma stay flat.
func (g *WaveGenerator) mentions(awareAlpha float64) []string {
	probs := []float64{awareAlpha, 0.5, 0.3}
	out := make([]string, len(brandNames))
	for i, name := range brandNames {
		if g.rng.Float64() < probs[i] {
			out[i] = name
		}
	}
	return out
}

// studyConfig assembles the tracker configuration for the generated
// files: satisfaction mean and top-2, NPS, brand shares, and aided
// awareness, with a North/South banner.
func (g *WaveGenerator) studyConfig(waves []track.WaveConfig) *track.Config {
	settings := track.DefaultSettings()
	settings.ProjectName = "Synthetic Tracker"
	settings.DefaultWeightVar = "weight"
	settings.MinimumBase = 30

	waveColumns := func(column string) map[core.WaveID]string {
		m := make(map[core.WaveID]string, len(waves))
		for _, w := range waves {
			m[w.ID] = column
		}
		return m
	}

	return &track.Config{
		Waves: waves,
		Tracked: []track.TrackedQuestion{
			{Code: "SAT", Specs: "mean,top2_box", Section: "Satisfaction"},
			{Code: "NPS", Section: "Loyalty"},
			{Code: "BRAND", Specs: "all", Section: "Usage"},
			{Code: "AWARE", Section: "Awareness"},
		},
		Banner: []track.BannerSegment{
			{Name: "North", Column: "REGION", Values: []string{"North"}},
			{Name: "South", Column: "REGION", Values: []string{"South"}},
		},
		Settings: settings,
		Questions: map[core.QuestionCode]survey.Question{
			"SAT": {
				Code: "SAT", Text: "Overall satisfaction", Type: survey.Rating,
				WaveColumns: waveColumns("SAT"),
			},
			"NPS": {
				Code: "NPS", Text: "Likelihood to recommend", Type: survey.NPS,
				WaveColumns: waveColumns("NPS"),
			},
			"BRAND": {
				Code: "BRAND", Text: "Brand used most often", Type: survey.SingleChoice,
				WaveColumns: waveColumns("BRAND"),
			},
			"AWARE": {
				Code: "AWARE", Text: "Brands aware of", Type: survey.MultiMention,
				WaveColumns: waveColumns("AWARE"),
			},
		},
		Structure: survey.NewStructure([]survey.Option{
			{Question: "BRAND", Text: "Brand Alpha", DisplayText: "Brand Alpha", IndexWeight: optionCode(1)},
			{Question: "BRAND", Text: "Brand Beta", DisplayText: "Brand Beta", IndexWeight: optionCode(2)},
			{Question: "BRAND", Text: "Brand Gamma", DisplayText: "Brand Gamma", IndexWeight: optionCode(3)},
		}),
	}
}

func optionCode(v float64) *float64 { return &v }
