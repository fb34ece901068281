package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotrack/domain/core"
	"gotrack/domain/metrics"
	"gotrack/internal/testkit"
)

// The planted drifts are sized so their baseline comparisons sit far past
// the decision threshold at n=600; seeded noise cannot flip them.
func TestRunSyntheticStudy(t *testing.T) {
	config := testkit.DefaultWaveConfig()
	config.SatisfactionDrift = 0.4
	config.BrandAlphaDrift = 0.08

	cfg, err := testkit.NewWaveGenerator(config).GenerateStudy(t.TempDir())
	require.NoError(t, err)

	result, err := NewTrackerService().Run(context.Background(), RunRequest{Config: cfg})
	require.NoError(t, err)

	// SAT mean + top2, NPS score, three brands, three awareness mentions.
	require.Len(t, result.Rows, 9)
	assert.Equal(t, []string{"Awareness", "Loyalty", "Satisfaction", "Usage"}, result.Metadata.Sections)
	assert.Equal(t, 3, result.Metadata.NWaves)

	require.Len(t, result.Metadata.Diagnostics, 3)
	for _, diag := range result.Metadata.Diagnostics {
		assert.Equal(t, 600, diag.NRespondents)
		assert.Equal(t, 600, diag.NValidWeights)
		assert.Greater(t, diag.DesignEffect, 1.0)
		assert.Less(t, diag.EffectiveN, 600.0)
	}

	rows := make(map[string]metrics.MetricRow)
	for _, row := range result.Rows {
		rows[string(row.Question)+"/"+row.MetricKey] = row
	}

	sat := rows["SAT/mean"].Segments[core.TotalSegment]
	require.NotNil(t, sat.Values["W1"])
	require.NotNil(t, sat.Values["W3"])
	assert.Greater(t, *sat.Values["W3"], *sat.Values["W1"]+0.3, "planted satisfaction drift missing")
	require.NotNil(t, sat.SigVsBaseline["W3"])
	assert.True(t, *sat.SigVsBaseline["W3"])
	require.NotNil(t, sat.SigVsPrevious["W3"])
	assert.True(t, *sat.SigVsPrevious["W3"])
	require.NotNil(t, sat.N["W1"])
	assert.Equal(t, 600.0, *sat.N["W1"], "every generated respondent answers the scale")

	nps := rows["NPS/nps_score"].Segments[core.TotalSegment]
	require.NotNil(t, nps.ChangeVsBaseline["W3"])
	assert.Greater(t, *nps.ChangeVsBaseline["W3"], 10.0)
	require.NotNil(t, nps.SigVsBaseline["W3"])
	assert.True(t, *nps.SigVsBaseline["W3"])

	alpha, ok := rows["BRAND/category_1"]
	require.True(t, ok, "Brand Alpha row missing; have %v", keysOf(rows))
	assert.Equal(t, "Brand Alpha", alpha.Label)
	alphaTotal := alpha.Segments[core.TotalSegment]
	require.NotNil(t, alphaTotal.SigVsBaseline["W3"])
	assert.True(t, *alphaTotal.SigVsBaseline["W3"])

	aware, ok := rows["AWARE/option_1"]
	require.True(t, ok, "awareness mention row missing; have %v", keysOf(rows))
	awareTotal := aware.Segments[core.TotalSegment]
	require.NotNil(t, awareTotal.Values["W1"])
	require.NotNil(t, awareTotal.Values["W3"])
	assert.Greater(t, *awareTotal.Values["W3"], *awareTotal.Values["W1"])
	require.NotNil(t, awareTotal.SigVsBaseline["W3"])
	assert.True(t, *awareTotal.SigVsBaseline["W3"])

	// Banner cuts carry roughly a quarter of the sample each.
	north := rows["SAT/mean"].Segments["North"]
	require.NotNil(t, north.N["W1"])
	assert.Greater(t, *north.N["W1"], 80.0)
}

func keysOf(rows map[string]metrics.MetricRow) []string {
	out := make([]string, 0, len(rows))
	for k := range rows {
		out = append(out, k)
	}
	return out
}
