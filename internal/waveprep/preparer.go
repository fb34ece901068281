package waveprep

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"gotrack/adapters/tabular"
	"gotrack/domain/core"
	"gotrack/domain/metrics"
	"gotrack/domain/survey"
	apperr "gotrack/internal/errors"
	"gotrack/internal/weighting"
)

// maxUnmappedSamples bounds how many distinct unmapped option texts a
// single warning names.
const maxUnmappedSamples = 5

// Column is one prepared variable. Text always holds the trimmed raw
// cells; Numeric is non-nil once the column has been coerced or resolved.
type Column struct {
	Name    string
	Numeric []float64
	Text    []string
}

// IsNumeric reports whether the column carries an analyzable numeric view.
func (c Column) IsNumeric() bool { return c.Numeric != nil }

// Spec tells the preparer how to treat one wave's file. The caller
// derives it from the tracker configuration: which columns belong to
// tracked questions, which stay text for banner filtering, and which
// single-choice columns resolve through the options table.
type Spec struct {
	Wave            core.WaveID
	Path            string
	WeightVar       string
	DecimalComma    bool
	QuestionColumns map[string]bool            // per-wave column names of tracked questions
	KeepText        map[string]bool            // banner variables and declared-categorical columns
	Resolve         map[string]core.QuestionCode // column -> question whose options map text to codes
	Structure       *survey.Structure
}

// PreparedWave is one wave ready for analysis: cleaned columns, a weight
// vector aligned to rows (NaN marks an excluded respondent), and the
// weighting diagnostics for the run report.
type PreparedWave struct {
	Wave        core.WaveID
	Headers     []string
	Columns     map[string]Column
	Weights     []float64
	NRows       int
	WeightInfo  WeightReport
	Diagnostics metrics.WaveDiagnostics
	Warnings    []string
}

// NumericColumn returns the numeric view of a column, if it has one.
func (pw *PreparedWave) NumericColumn(name string) ([]float64, bool) {
	col, ok := pw.Columns[name]
	if !ok || !col.IsNumeric() {
		return nil, false
	}
	return col.Numeric, true
}

// TextColumn returns the trimmed raw cells of a column.
func (pw *PreparedWave) TextColumn(name string) ([]string, bool) {
	col, ok := pw.Columns[name]
	if !ok {
		return nil, false
	}
	return col.Text, true
}

// HasColumn reports whether the wave file carried the named column.
func (pw *PreparedWave) HasColumn(name string) bool {
	_, ok := pw.Columns[name]
	return ok
}

// MentionColumns lists this wave's {base}_{n} sub-columns in mention order.
func (pw *PreparedWave) MentionColumns(base string) []string {
	return MentionColumns(pw.Headers, base)
}

// Preparer loads and cleans wave files.
type Preparer struct{}

func NewPreparer() *Preparer { return &Preparer{} }

// Prepare runs the full pipeline for one wave: read, classify, coerce,
// resolve option text, standardize weights, and attach diagnostics.
func (p *Preparer) Prepare(spec Spec) (*PreparedWave, error) {
	table, err := p.readTable(spec)
	if err != nil {
		return nil, err
	}

	pw := &PreparedWave{
		Wave:    spec.Wave,
		Headers: table.Headers,
		Columns: make(map[string]Column, len(table.Headers)),
		NRows:   len(table.Rows),
	}

	for _, h := range table.Headers {
		text, _ := table.Column(h)
		pw.Columns[h] = Column{Name: h, Text: text}
	}

	p.coerceCandidates(spec, pw)
	p.resolveOptions(spec, pw)

	weights, report := resolveWeights(spec.Wave, table.Headers, table.Column, spec.WeightVar, spec.DecimalComma, pw.NRows)
	pw.Weights = weights
	pw.WeightInfo = report
	if report.Defaulted {
		pw.warnf("weight column %q not found in wave %s, all weights set to 1", spec.WeightVar, spec.Wave)
	}
	if report.NExcluded > 0 {
		pw.warnf("wave %s: %d respondents excluded for missing or non-positive weights", spec.Wave, report.NExcluded)
	}

	pw.Diagnostics = weighting.Diagnose(weights)
	pw.Diagnostics.Wave = spec.Wave

	log.Debug().
		Str("wave", string(spec.Wave)).
		Int("rows", pw.NRows).
		Int("columns", len(pw.Headers)).
		Float64("effective_n", pw.Diagnostics.EffectiveN).
		Msg("wave prepared")
	return pw, nil
}

// readTable loads the raw file and translates reader failures into the
// structured errors the CLI reports.
func (p *Preparer) readTable(spec Spec) (*tabular.Table, error) {
	reader, err := tabular.NewReader(spec.Path)
	if err != nil {
		return nil, apperr.UnsupportedFormat(spec.Path)
	}
	table, err := reader.Read()
	switch {
	case err == nil:
		return table, nil
	case os.IsNotExist(err):
		return nil, apperr.WaveFileMissing(string(spec.Wave), spec.Path)
	case errors.Is(err, tabular.ErrEmpty):
		return nil, apperr.WaveFileEmpty(string(spec.Wave), spec.Path)
	case errors.Is(err, tabular.ErrUnsupported):
		return nil, apperr.UnsupportedFormat(spec.Path)
	default:
		return nil, apperr.WaveFileUnreadable(string(spec.Wave), spec.Path, err)
	}
}

// coerceCandidates converts question columns to numeric. A column is a
// candidate when it is a tracked question's column for this wave, or a
// {base}_{n} mention sub-column of one, and is not pinned to text by the
// banner or a categorical declaration.
func (p *Preparer) coerceCandidates(spec Spec, pw *PreparedWave) {
	for _, h := range pw.Headers {
		if !p.isCandidate(spec, h) {
			continue
		}
		col := pw.Columns[h]
		res := CleanNumericColumn(col.Text, spec.DecimalComma)
		if !res.Converted {
			log.Debug().
				Str("wave", string(spec.Wave)).
				Str("column", h).
				Msg("column retained as text, no cell parsed as numeric")
			continue
		}
		if res.NFailed > 0 {
			log.Warn().
				Str("wave", string(spec.Wave)).
				Str("column", h).
				Int("made_missing", res.NFailed).
				Msg("unparseable cells set to missing during numeric conversion")
			pw.warnf("wave %s: column %s had %d unparseable cells set to missing", spec.Wave, h, res.NFailed)
		}
		col.Numeric = res.Values
		pw.Columns[h] = col
	}
}

func (p *Preparer) isCandidate(spec Spec, header string) bool {
	if spec.KeepText[header] || header == spec.WeightVar {
		return false
	}
	if _, resolved := spec.Resolve[header]; resolved {
		return false
	}
	if spec.QuestionColumns[header] {
		return true
	}
	base, _, ok := SplitMention(header)
	return ok && spec.QuestionColumns[base]
}

// resolveOptions maps single-choice response text to numeric codes via
// the options table. Unmapped values fall back to a direct numeric
// parse; whatever still fails becomes missing and is reported once per
// column with a bounded sample of the offending texts.
func (p *Preparer) resolveOptions(spec Spec, pw *PreparedWave) {
	if spec.Structure == nil || len(spec.Resolve) == 0 {
		return
	}
	for column, question := range spec.Resolve {
		col, ok := pw.Columns[column]
		if !ok {
			continue
		}
		values := make([]float64, len(col.Text))
		unmapped := map[string]int{}
		for i, cell := range col.Text {
			trimmed := strings.TrimSpace(cell)
			if trimmed == "" || isNonResponse(trimmed) {
				values[i] = math.NaN()
				continue
			}
			if code, found := spec.Structure.ResolveText(question, trimmed); found {
				values[i] = code
				continue
			}
			if v, missing, _ := parseNumeric(trimmed, spec.DecimalComma); !missing {
				values[i] = v
				continue
			}
			values[i] = math.NaN()
			unmapped[trimmed]++
		}
		if len(unmapped) > 0 {
			samples := sampleKeys(unmapped, maxUnmappedSamples)
			log.Warn().
				Str("wave", string(spec.Wave)).
				Str("column", column).
				Str("question", string(question)).
				Int("distinct_unmapped", len(unmapped)).
				Strs("examples", samples).
				Msg("response texts not found in options, set to missing")
			pw.warnf("wave %s: column %s has %d distinct unmapped response texts (e.g. %s)",
				spec.Wave, column, len(unmapped), strings.Join(samples, "; "))
		}
		col.Numeric = values
		pw.Columns[column] = col
	}
}

func (pw *PreparedWave) warnf(format string, args ...any) {
	pw.Warnings = append(pw.Warnings, fmt.Sprintf(format, args...))
}

func sampleKeys(m map[string]int, n int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
