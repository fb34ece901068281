package trackconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gotrack/domain/core"
	"gotrack/domain/survey"
	apperr "gotrack/internal/errors"
)

func writeWorkbook(t *testing.T, path string, sheets map[string][][]string) {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for r, row := range rows {
			for c, value := range row {
				axis, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, axis, value))
			}
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))
	require.NoError(t, f.SaveAs(path))
}

func touchDataFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("resp\n1\n"), 0o644))
	}
}

func TestLoadWorkbookFull(t *testing.T) {
	dir := t.TempDir()
	touchDataFiles(t, dir, "w1.csv", "w2.csv")

	writeWorkbook(t, filepath.Join(dir, "structure.xlsx"), map[string][][]string{
		"Options": {
			{"Question", "Text", "Display_Text", "Index_Weight", "Box_Category"},
			{"BRAND", "Brand A", "Brand A", "1", ""},
			{"BRAND", "Brand B", "Brand B", "2", ""},
			{"Q1", "Agree strongly", "Agree (strong)", "5", "Agree"},
			{"Q1", "Agree somewhat", "", "4", "Agree"},
		},
		"QuestionMap": {
			{"Question", "W1", "W2"},
			{"Q1", "Q1", "Q1_new"},
			{"BRAND", "BRAND", ""},
		},
	})

	writeWorkbook(t, filepath.Join(dir, "tracker.xlsx"), map[string][][]string{
		"Waves": {
			{"Wave", "Name", "Data_File", "Weight_Var", "Fieldwork_Start"},
			{"W1", "Wave 1", "w1.csv", "", "2026-01-10"},
			{"W2", "Wave 2", "w2.csv", "wt_final", ""},
		},
		"Questions": {
			{"Question", "Text", "Type", "Specs", "Label", "Section", "Sort_Key", "Tracked", "Sources", "Calc"},
			{"Q1", "Overall satisfaction", "rating", "mean,top2_box", "", "KPIs", "1", "", "", ""},
			{"BRAND", "Brand used most", "single", "all", "", "Usage", "2", "", "", ""},
			{"HIDDEN", "Helper rating", "rating", "", "", "", "", "no", "", ""},
			{"IDX", "Satisfaction index", "composite", "mean", "Index", "KPIs", "1.5", "", "Q1, HIDDEN", "mean"},
		},
		"Banner": {
			{"Segment", "Column", "Values"},
			{"North", "REGION", "North"},
			{"Young", "AGEGRP", "18-24|25-34"},
		},
		"Settings": {
			{"Key", "Value"},
			{"project_name", "Brand Tracker"},
			{"minimum_base", "50"},
			{"confidence_level", "0.9"},
			{"show_significance", "yes"},
			{"default_weight_var", "weight"},
			{"structure_file", "structure.xlsx"},
			{"some_future_knob", "whatever"},
		},
	})

	cfg, err := LoadWorkbook(filepath.Join(dir, "tracker.xlsx"))
	require.NoError(t, err)

	require.Len(t, cfg.Waves, 2)
	assert.Equal(t, core.WaveID("W1"), cfg.Waves[0].ID)
	assert.Equal(t, filepath.Join(dir, "w1.csv"), cfg.Waves[0].DataFile)
	assert.Equal(t, "wt_final", cfg.Waves[1].WeightVar)
	assert.False(t, cfg.Waves[0].Fieldwork.Start.IsZero())
	assert.True(t, cfg.Waves[1].Fieldwork.Start.IsZero())

	assert.Equal(t, "Brand Tracker", cfg.Settings.ProjectName)
	assert.Equal(t, 50.0, cfg.Settings.MinimumBase)
	assert.InDelta(t, 0.1, cfg.Settings.Alpha, 1e-9)
	assert.True(t, cfg.Settings.ShowSignificance)
	assert.Equal(t, "weight", cfg.Settings.DefaultWeightVar)

	require.Len(t, cfg.Tracked, 3, "untracked helper question must not become a report row")
	codes := []core.QuestionCode{cfg.Tracked[0].Code, cfg.Tracked[1].Code, cfg.Tracked[2].Code}
	assert.Equal(t, []core.QuestionCode{"Q1", "BRAND", "IDX"}, codes)
	require.NotNil(t, cfg.Tracked[2].SortKey)
	assert.Equal(t, 1.5, *cfg.Tracked[2].SortKey)

	require.Contains(t, cfg.Questions, core.QuestionCode("HIDDEN"))
	idx := cfg.Questions["IDX"]
	assert.Equal(t, survey.Composite, idx.Type)
	assert.Equal(t, []core.QuestionCode{"Q1", "HIDDEN"}, idx.SourceQuestions)
	assert.Equal(t, survey.CompositeMean, idx.Calc)

	// Question map overlay: renamed in W2, BRAND not asked in W2.
	q1 := cfg.Questions["Q1"]
	assert.Equal(t, "Q1_new", q1.ColumnFor("W2"))
	brand := cfg.Questions["BRAND"]
	assert.Equal(t, "BRAND", brand.ColumnFor("W1"))
	assert.False(t, brand.AskedIn("W2"))
	// No map row: helper keeps the identity mapping.
	assert.Equal(t, "HIDDEN", cfg.Questions["HIDDEN"].ColumnFor("W2"))

	require.Len(t, cfg.Banner, 2)
	assert.Equal(t, []string{"18-24", "25-34"}, cfg.Banner[1].Values)

	require.NotNil(t, cfg.Structure)
	code, ok := cfg.Structure.ResolveText("BRAND", "brand b")
	require.True(t, ok)
	assert.Equal(t, 2.0, code)
	boxes, err := cfg.Structure.BoxCodes("Q1", "Agree")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, boxes)
}

func TestLoadWorkbookMissingFile(t *testing.T) {
	_, err := LoadWorkbook(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfigMissing, apperr.GetCode(err))
}

func TestLoadWorkbookRequiresWavesSheet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.xlsx")
	writeWorkbook(t, path, map[string][][]string{
		"Questions": {{"Question"}, {"Q1"}},
	})

	_, err := LoadWorkbook(path)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfigInvalid, apperr.GetCode(err))
}

func TestLoadStructureRejectsMissingColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "structure.xlsx")
	writeWorkbook(t, path, map[string][][]string{
		"Options": {
			{"Text", "Index_Weight"},
			{"Brand A", "1"},
		},
	})

	_, _, err := LoadStructure(path, []core.WaveID{"W1"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStructureColumn, apperr.GetCode(err))
}

func TestLoadProjectYAML(t *testing.T) {
	dir := t.TempDir()
	touchDataFiles(t, dir, "w1.csv", "w2.csv")
	path := filepath.Join(dir, "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project: Brand Tracker
waves:
  - id: W1
    name: Wave 1
    file: w1.csv
  - id: W2
    name: Wave 2
    file: w2.csv
    weight_var: wt2
questions:
  - question: Q1
    text: Overall satisfaction
    type: rating
    specs: mean
    section: KPIs
    columns:
      W1: Q1
      W2: Q1_v2
  - question: NPS0
    text: Likelihood to recommend
    type: nps
  - question: HELPER
    type: rating
    tracked: false
  - question: IDX
    text: Index
    type: composite
    calc: weighted_mean
    sources: [Q1, HELPER]
    source_weights: [2, 1]
banner:
  - segment: North
    column: REGION
    values: [North, Northeast]
settings:
  minimum_base: 40
  show_significance: no
  default_weight_var: weight
options:
  - question: Q1
    text: Very satisfied
    index_weight: 5
    box_category: Top2
`), 0o644))

	cfg, err := LoadProject(path)
	require.NoError(t, err)

	assert.Equal(t, "Brand Tracker", cfg.Settings.ProjectName)
	assert.Equal(t, 40.0, cfg.Settings.MinimumBase)
	assert.False(t, cfg.Settings.ShowSignificance)
	assert.Equal(t, filepath.Join(dir, "w2.csv"), cfg.Waves[1].DataFile)

	require.Len(t, cfg.Tracked, 3)
	assert.Equal(t, "Q1_v2", cfg.Questions["Q1"].ColumnFor("W2"))
	assert.Equal(t, "NPS0", cfg.Questions["NPS0"].ColumnFor("W1"), "no columns block means identity mapping")

	idx := cfg.Questions["IDX"]
	assert.Equal(t, survey.CompositeWeightedMean, idx.Calc)
	assert.Equal(t, []float64{2, 1}, idx.SourceWeights)

	code, ok := cfg.Structure.ResolveText("Q1", "VERY SATISFIED")
	require.True(t, ok)
	assert.Equal(t, 5.0, code)
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	_, err := Load("tracker.txt")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfigInvalid, apperr.GetCode(err))

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfigMissing, apperr.GetCode(err))
}
