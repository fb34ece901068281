package crosstab

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"gotrack/domain/core"
	"gotrack/domain/metrics"
	"gotrack/domain/survey"
	"gotrack/domain/track"
)

// Engine reshapes question trends into the flat tracking crosstab.
type Engine struct {
	cfg *track.Config
}

func New(cfg *track.Config) *Engine { return &Engine{cfg: cfg} }

// Build emits one MetricRow per resolved (question, metric) pair, in
// final report order: sections alphabetically with unsectioned rows
// last, then sort key.
func (e *Engine) Build(trends []metrics.QuestionTrend) []metrics.MetricRow {
	byCode := make(map[core.QuestionCode]metrics.QuestionTrend, len(trends))
	for _, trend := range trends {
		byCode[trend.Code] = trend
	}

	var rows []metrics.MetricRow
	for qi, tq := range e.cfg.Tracked {
		trend, ok := byCode[tq.Code]
		if !ok {
			continue
		}
		q := e.cfg.Questions[tq.Code]

		specs := track.ParseSpecs(tq.Specs, q.Type)
		rowSpecs := e.expand(q, trend, specs)
		singleSpec := len(rowSpecs) == 1

		for si, rs := range rowSpecs {
			row := metrics.MetricRow{
				Question:  tq.Code,
				MetricKey: rs.key,
				Label:     rowLabel(tq, q, singleSpec, rs),
				Section:   tq.Section,
				SortKey:   sortKey(tq, qi, si, len(rowSpecs)),
				Segments:  make(map[core.SegmentName]metrics.SegmentCells),
			}
			for _, segment := range e.cfg.SegmentNames() {
				row.Segments[segment] = e.cells(trend, segment, rs)
			}
			rows = append(rows, row)
		}
	}

	sortRows(rows)
	log.Debug().Int("rows", len(rows)).Msg("crosstab built")
	return rows
}

// cells fills one segment's cell block for a row: per-wave values and
// bases, deltas against the previous wave and the baseline, and the
// significance flags. Nil cells mean the wave is absent, unavailable,
// or untested; never a fabricated zero.
func (e *Engine) cells(trend metrics.QuestionTrend, segment core.SegmentName, rs rowSpec) metrics.SegmentCells {
	cells := metrics.NewSegmentCells()
	waveResults := trend.Waves[segment]
	sig := trend.Significance[segment]
	order := e.cfg.WaveIDs()
	baseline := e.cfg.Baseline()

	for _, waveID := range order {
		res, ok := waveResults[waveID]
		if !ok || !res.Available {
			continue
		}
		n := float64(res.NUnweighted)
		cells.N[waveID] = &n
		if v, found := extractValue(res, rs.keys); found {
			value := v
			cells.Values[waveID] = &value
		}
	}

	for i, waveID := range order {
		if i > 0 {
			if d, ok := diff(cells.Values[order[i-1]], cells.Values[waveID]); ok {
				cells.ChangeVsPrevious[waveID] = d
			}
			if res, found := lookupSig(sig, rs.keys, metrics.PairKey(order[i-1], waveID)); found && res.Tested() {
				flag := res.Significant
				cells.SigVsPrevious[waveID] = &flag
			}
		}
		if waveID != baseline {
			if d, ok := diff(cells.Values[baseline], cells.Values[waveID]); ok {
				cells.ChangeVsBaseline[waveID] = d
			}
			if res, found := lookupSig(sig, rs.keys, metrics.PairKey(baseline, waveID)); found && res.Tested() {
				flag := res.Significant
				cells.SigVsBaseline[waveID] = &flag
			}
		}
	}
	return cells
}

// diff subtracts two nullable values; null on either side propagates.
func diff(from, to *float64) (*float64, bool) {
	if from == nil || to == nil {
		return nil, false
	}
	d := *to - *from
	return &d, true
}

// rowLabel builds the display label: the per-question override when the
// question resolves to a single row, otherwise the question text with
// the metric description in parentheses.
func rowLabel(tq track.TrackedQuestion, q survey.Question, singleSpec bool, rs rowSpec) string {
	if singleSpec && tq.Label != "" {
		return tq.Label
	}

	base := q.Text
	if base == "" {
		base = string(tq.Code)
	}
	if rs.desc == "" {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, rs.desc)
}

// sortKey orders rows: the explicit per-question key (or the question's
// tracked position), fractionally offset per spec so one question's rows
// stay adjacent and in spec order.
func sortKey(tq track.TrackedQuestion, questionIndex, specIndex, specCount int) float64 {
	base := float64(questionIndex)
	if tq.SortKey != nil {
		base = *tq.SortKey
	}
	return base + float64(specIndex)/float64(specCount+1)
}

// sortRows is the final stable ordering: section alphabetical with
// unsectioned rows after all named sections, then numeric sort key.
func sortRows(rows []metrics.MetricRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		si, sj := rows[i].Section, rows[j].Section
		if si != sj {
			if si == "" {
				return false
			}
			if sj == "" {
				return true
			}
			return si < sj
		}
		return rows[i].SortKey < rows[j].SortKey
	})
}

// Sections lists the distinct named sections in final order.
func Sections(rows []metrics.MetricRow) []string {
	seen := make(map[string]bool)
	var sections []string
	for _, row := range rows {
		if row.Section == "" || seen[row.Section] {
			continue
		}
		seen[row.Section] = true
		sections = append(sections, row.Section)
	}
	return sections
}
