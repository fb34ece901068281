package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotrack/domain/core"
	"gotrack/domain/survey"
	"gotrack/domain/track"
	apperr "gotrack/internal/errors"
)

func writeWaveCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fp(v float64) *float64 { return &v }

func trackerFixture(t *testing.T) *track.Config {
	t.Helper()
	dir := t.TempDir()
	w1 := writeWaveCSV(t, dir, "w1.csv", ""+
		"resp,weight,Q1,NPS0,REGION,BRAND\n"+
		"1,1,5,9,North,Brand A\n"+
		"2,1,4,8,South,Brand B\n"+
		"3,1,3,6,North,Brand A\n"+
		"4,1,4,10,South,Brand B\n")
	w2 := writeWaveCSV(t, dir, "w2.csv", ""+
		"resp,weight,Q1,NPS0,REGION,BRAND\n"+
		"1,1,5,9,North,Brand A\n"+
		"2,1,5,7,South,Brand A\n"+
		"3,1,4,10,North,Brand B\n"+
		"4,1,4,3,South,Brand A\n")

	settings := track.DefaultSettings()
	settings.ProjectName = "Brand Tracker"
	settings.MinimumBase = 2
	settings.DefaultWeightVar = "weight"

	return &track.Config{
		Waves: []track.WaveConfig{
			{ID: "W1", Name: "Wave 1", DataFile: w1},
			{ID: "W2", Name: "Wave 2", DataFile: w2},
		},
		Tracked: []track.TrackedQuestion{
			{Code: "Q1", Specs: "mean,top2_box", Section: "Satisfaction"},
			{Code: "NPS0", Section: "Loyalty"},
			{Code: "BRAND", Specs: "all", Section: "Usage"},
		},
		Banner: []track.BannerSegment{
			{Name: "North", Column: "REGION", Values: []string{"North"}},
		},
		Settings: settings,
		Questions: map[core.QuestionCode]survey.Question{
			"Q1": {
				Code: "Q1", Text: "Overall satisfaction", Type: survey.Rating,
				WaveColumns: map[core.WaveID]string{"W1": "Q1", "W2": "Q1"},
			},
			"NPS0": {
				Code: "NPS0", Text: "Likelihood to recommend", Type: survey.NPS,
				WaveColumns: map[core.WaveID]string{"W1": "NPS0", "W2": "NPS0"},
			},
			"BRAND": {
				Code: "BRAND", Text: "Brand used most often", Type: survey.SingleChoice,
				WaveColumns: map[core.WaveID]string{"W1": "BRAND", "W2": "BRAND"},
			},
		},
		Structure: survey.NewStructure([]survey.Option{
			{Question: "BRAND", Text: "Brand A", DisplayText: "Brand A", IndexWeight: fp(1)},
			{Question: "BRAND", Text: "Brand B", DisplayText: "Brand B", IndexWeight: fp(2)},
		}),
	}
}

func TestRunFullPipeline(t *testing.T) {
	cfg := trackerFixture(t)

	result, err := NewTrackerService().Run(context.Background(), RunRequest{Config: cfg})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.NotEmpty(t, result.Fingerprint)
	assert.Equal(t, result.Fingerprint, result.Metadata.Fingerprint)

	// mean + top2_box + nps_score + two expanded brand options.
	require.Len(t, result.Rows, 5)
	assert.Equal(t, 5, result.Metadata.NMetrics)
	assert.Equal(t, 2, result.Metadata.NWaves)
	assert.Equal(t, []core.WaveID{"W1", "W2"}, result.Metadata.WaveOrder)
	assert.Equal(t, core.WaveID("W1"), result.Metadata.BaselineWave)
	assert.Equal(t, []core.SegmentName{core.TotalSegment, "North"}, result.Metadata.SegmentOrder)
	assert.InDelta(t, 0.95, result.Metadata.ConfidenceLevel, 1e-9)
	assert.Equal(t, []string{"Loyalty", "Satisfaction", "Usage"}, result.Metadata.Sections)
	require.Len(t, result.Metadata.Diagnostics, 2)
	assert.Equal(t, core.WaveID("W1"), result.Metadata.Diagnostics[0].Wave)
	assert.Equal(t, 4, result.Metadata.Diagnostics[0].NValidWeights)

	byKey := make(map[string]int)
	for i, row := range result.Rows {
		byKey[string(row.Question)+"/"+row.MetricKey] = i
	}

	mean := result.Rows[byKey["Q1/mean"]]
	total := mean.Segments[core.TotalSegment]
	require.NotNil(t, total.Values["W1"])
	assert.InDelta(t, 4.0, *total.Values["W1"], 1e-9)
	require.NotNil(t, total.Values["W2"])
	assert.InDelta(t, 4.5, *total.Values["W2"], 1e-9)
	require.NotNil(t, total.ChangeVsPrevious["W2"])
	assert.InDelta(t, 0.5, *total.ChangeVsPrevious["W2"], 1e-9)
	require.NotNil(t, total.N["W1"])
	assert.Equal(t, 4.0, *total.N["W1"])

	north := mean.Segments["North"]
	require.NotNil(t, north.Values["W1"])
	assert.InDelta(t, 4.0, *north.Values["W1"], 1e-9)
	require.NotNil(t, north.N["W1"])
	assert.Equal(t, 2.0, *north.N["W1"])

	top2 := result.Rows[byKey["Q1/top2_box"]]
	require.NotNil(t, top2.Segments[core.TotalSegment].Values["W1"])
	assert.InDelta(t, 75.0, *top2.Segments[core.TotalSegment].Values["W1"], 1e-9)

	nps := result.Rows[byKey["NPS0/nps_score"]]
	require.NotNil(t, nps.Segments[core.TotalSegment].Values["W1"])
	assert.InDelta(t, 25.0, *nps.Segments[core.TotalSegment].Values["W1"], 1e-9)

	brandA := result.Rows[byKey["BRAND/category_1"]]
	assert.Contains(t, brandA.Label, "Brand A")
	require.NotNil(t, brandA.Segments[core.TotalSegment].Values["W1"])
	assert.InDelta(t, 50.0, *brandA.Segments[core.TotalSegment].Values["W1"], 1e-9)
	require.NotNil(t, brandA.Segments[core.TotalSegment].Values["W2"])
	assert.InDelta(t, 75.0, *brandA.Segments[core.TotalSegment].Values["W2"], 1e-9)

	require.Len(t, result.Trends, 3)
}

func TestRunFingerprintDeterministic(t *testing.T) {
	cfg := trackerFixture(t)
	svc := NewTrackerService()

	first, err := svc.Run(context.Background(), RunRequest{Config: cfg})
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), RunRequest{Config: cfg})
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestRunKeepsProvidedRunID(t *testing.T) {
	cfg := trackerFixture(t)

	result, err := NewTrackerService().Run(context.Background(), RunRequest{
		Config: cfg,
		RunID:  core.RunID("run-fixed"),
	})
	require.NoError(t, err)
	assert.Equal(t, core.RunID("run-fixed"), result.RunID)
	assert.Equal(t, core.RunID("run-fixed"), result.Metadata.RunID)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	svc := NewTrackerService()

	_, err := svc.Run(context.Background(), RunRequest{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfigInvalid, apperr.GetCode(err))

	_, err = svc.Run(context.Background(), RunRequest{Config: &track.Config{}})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfigInvalid, apperr.GetCode(err))
}

func TestRunReportsMissingWaveFile(t *testing.T) {
	cfg := trackerFixture(t)
	cfg.Waves[1].DataFile = filepath.Join(t.TempDir(), "nope.csv")

	_, err := NewTrackerService().Run(context.Background(), RunRequest{Config: cfg})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeWaveFileMissing, apperr.GetCode(err))
}
