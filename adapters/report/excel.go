// Package report renders a finished tracking run as the analyst-facing
// Excel workbook: the crosstab grid with significance marks, the bases
// grid, per-wave weighting diagnostics, and the run parameters.
package report

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"gotrack/domain/core"
	"gotrack/domain/metrics"
	apperr "gotrack/internal/errors"
)

const (
	sheetTracking    = "Tracking"
	sheetBases       = "Bases"
	sheetDiagnostics = "Diagnostics"
	sheetRunInfo     = "RunInfo"

	// First data column of the crosstab grid; A and B hold section and
	// label.
	firstDataCol = 3
	// First data row; rows 1-2 are the title block, 3-4 the banner.
	firstDataRow = 5
)

// WriteXLSX writes the report workbook. Cells for unavailable waves stay
// blank; significant movement vs the previous wave is marked by cell
// color (up green, down red).
func WriteXLSX(path string, rows []metrics.MetricRow, meta metrics.RunMetadata) error {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetTracking); err != nil {
		return apperr.ReportWriteFailed(path, err)
	}

	st, err := newStyles(f)
	if err != nil {
		return apperr.ReportWriteFailed(path, err)
	}

	if err := writeTrackingSheet(f, st, rows, meta); err != nil {
		return apperr.ReportWriteFailed(path, err)
	}
	if err := writeBasesSheet(f, st, rows, meta); err != nil {
		return apperr.ReportWriteFailed(path, err)
	}
	if err := writeDiagnosticsSheet(f, st, meta); err != nil {
		return apperr.ReportWriteFailed(path, err)
	}
	if err := writeRunInfoSheet(f, st, meta); err != nil {
		return apperr.ReportWriteFailed(path, err)
	}

	if err := f.SaveAs(path); err != nil {
		return apperr.ReportWriteFailed(path, err)
	}
	log.Info().Str("path", path).Int("rows", len(rows)).Msg("report workbook written")
	return nil
}

type styles struct {
	header  int
	label   int
	value   int
	sigUp   int
	sigDown int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	numFmt := "0.0"
	if st.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, err
	}
	if st.label, err = f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Vertical: "top", WrapText: true}}); err != nil {
		return st, err
	}
	if st.value, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt}); err != nil {
		return st, err
	}
	if st.sigUp, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt,
		Font:         &excelize.Font{Bold: true, Color: "006100"},
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	}); err != nil {
		return st, err
	}
	if st.sigDown, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt,
		Font:         &excelize.Font{Bold: true, Color: "9C0006"},
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	}); err != nil {
		return st, err
	}
	return st, nil
}

func writeTrackingSheet(f *excelize.File, st styles, rows []metrics.MetricRow, meta metrics.RunMetadata) error {
	sheet := sheetTracking

	setCell(f, sheet, 1, 1, meta.ProjectName+" tracking report")
	setCell(f, sheet, 1, 2, fmt.Sprintf("Generated %s | %.0f%% confidence | baseline %s",
		meta.GeneratedAt.String(), meta.ConfidenceLevel*100, meta.BaselineWave))
	styleCell(f, sheet, 1, 1, st.header)

	if err := writeBannerRows(f, st, sheet, meta); err != nil {
		return err
	}
	setCell(f, sheet, 1, 4, "Section")
	setCell(f, sheet, 2, 4, "Metric")
	styleCell(f, sheet, 1, 4, st.header)
	styleCell(f, sheet, 2, 4, st.header)

	r := firstDataRow
	for _, row := range rows {
		setCell(f, sheet, 1, r, row.Section)
		setCell(f, sheet, 2, r, row.Label)
		styleCell(f, sheet, 2, r, st.label)

		c := firstDataCol
		for _, segment := range meta.SegmentOrder {
			cells := row.Segments[segment]
			for _, wave := range meta.WaveOrder {
				if v := cells.Values[wave]; v != nil {
					setCell(f, sheet, c, r, *v)
					styleCell(f, sheet, c, r, valueStyle(st, cells, wave))
				}
				c++
			}
		}
		r++
	}

	if err := f.SetColWidth(sheet, "A", "A", 16); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 46); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, XSplit: 2, YSplit: firstDataRow - 1,
		TopLeftCell: "C5", ActivePane: "bottomRight",
	})
}

// writeBannerRows emits the two header rows of a grid sheet: merged
// segment names over their wave columns, wave IDs below.
func writeBannerRows(f *excelize.File, st styles, sheet string, meta metrics.RunMetadata) error {
	c := firstDataCol
	for _, segment := range meta.SegmentOrder {
		start := c
		for _, wave := range meta.WaveOrder {
			setCell(f, sheet, c, 4, string(wave))
			styleCell(f, sheet, c, 4, st.header)
			c++
		}
		from, _ := excelize.CoordinatesToCellName(start, 3)
		to, _ := excelize.CoordinatesToCellName(c-1, 3)
		if err := f.MergeCell(sheet, from, to); err != nil {
			return err
		}
		setCell(f, sheet, start, 3, string(segment))
		styleCell(f, sheet, start, 3, st.header)
	}
	return nil
}

// valueStyle picks the cell style: plain, or the significance mark when
// the wave tested significant against the previous one.
func valueStyle(st styles, cells metrics.SegmentCells, wave core.WaveID) int {
	sig := cells.SigVsPrevious[wave]
	if sig == nil || !*sig {
		return st.value
	}
	if change := cells.ChangeVsPrevious[wave]; change != nil && *change < 0 {
		return st.sigDown
	}
	return st.sigUp
}

// writeBasesSheet mirrors the grid with unweighted bases, one row per
// question (every metric row of a question shares its bases).
func writeBasesSheet(f *excelize.File, st styles, rows []metrics.MetricRow, meta metrics.RunMetadata) error {
	sheet := sheetBases
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	setCell(f, sheet, 1, 1, "Unweighted bases")
	styleCell(f, sheet, 1, 1, st.header)
	if err := writeBannerRows(f, st, sheet, meta); err != nil {
		return err
	}
	setCell(f, sheet, 1, 4, "Section")
	setCell(f, sheet, 2, 4, "Question")

	r := firstDataRow
	seen := make(map[core.QuestionCode]bool)
	for _, row := range rows {
		if seen[row.Question] {
			continue
		}
		seen[row.Question] = true

		setCell(f, sheet, 1, r, row.Section)
		setCell(f, sheet, 2, r, string(row.Question))

		c := firstDataCol
		for _, segment := range meta.SegmentOrder {
			cells := row.Segments[segment]
			for _, wave := range meta.WaveOrder {
				if n := cells.N[wave]; n != nil {
					setCell(f, sheet, c, r, math.Round(*n))
				}
				c++
			}
		}
		r++
	}
	return f.SetColWidth(sheet, "B", "B", 24)
}

func writeDiagnosticsSheet(f *excelize.File, st styles, meta metrics.RunMetadata) error {
	sheet := sheetDiagnostics
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Wave", "Respondents", "Valid weights", "Sum of weights",
		"Min weight", "Max weight", "Median weight", "Design effect", "Effective n", "Flag"}
	for i, h := range headers {
		setCell(f, sheet, i+1, 1, h)
		styleCell(f, sheet, i+1, 1, st.header)
	}

	for i, d := range meta.Diagnostics {
		r := i + 2
		setCell(f, sheet, 1, r, string(d.Wave))
		setCell(f, sheet, 2, r, d.NRespondents)
		setCell(f, sheet, 3, r, d.NValidWeights)
		setCell(f, sheet, 4, r, round2(d.SumWeights))
		setCell(f, sheet, 5, r, round2(d.MinWeight))
		setCell(f, sheet, 6, r, round2(d.MaxWeight))
		setCell(f, sheet, 7, r, round2(d.MedianWeight))
		setCell(f, sheet, 8, r, round2(d.DesignEffect))
		setCell(f, sheet, 9, r, round2(d.EffectiveN))
		setCell(f, sheet, 10, r, d.Flag)
	}
	return nil
}

func writeRunInfoSheet(f *excelize.File, st styles, meta metrics.RunMetadata) error {
	sheet := sheetRunInfo
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	pairs := [][2]string{
		{"Run ID", meta.RunID.String()},
		{"Project", meta.ProjectName},
		{"Generated at", meta.GeneratedAt.String()},
		{"Confidence level", fmt.Sprintf("%.3f", meta.ConfidenceLevel)},
		{"Baseline wave", string(meta.BaselineWave)},
		{"Waves", fmt.Sprintf("%d", meta.NWaves)},
		{"Segments", fmt.Sprintf("%d", meta.NSegments)},
		{"Metric rows", fmt.Sprintf("%d", meta.NMetrics)},
		{"Fingerprint", meta.Fingerprint.String()},
	}
	for i, pair := range pairs {
		setCell(f, sheet, 1, i+1, pair[0])
		styleCell(f, sheet, 1, i+1, st.header)
		setCell(f, sheet, 2, i+1, pair[1])
	}
	return f.SetColWidth(sheet, "A", "B", 32)
}

func setCell(f *excelize.File, sheet string, col, row int, value any) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	// SetCellValue only fails on an invalid axis, checked above.
	_ = f.SetCellValue(sheet, axis, value)
}

func styleCell(f *excelize.File, sheet string, col, row, style int) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	_ = f.SetCellStyle(sheet, axis, axis, style)
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
