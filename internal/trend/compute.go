// Package trend runs the tracked questions over every wave and banner
// segment, producing per-cell results plus the between-wave significance
// maps. It is a pure transform: prepared waves in, question trends out,
// deterministic for identical inputs.
package trend

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"gotrack/domain/core"
	"gotrack/domain/metrics"
	"gotrack/domain/survey"
	"gotrack/domain/track"
	"gotrack/internal/sigtest"
	"gotrack/internal/waveprep"
	"gotrack/internal/weighting"
)

// Computer evaluates tracked questions against prepared waves.
type Computer struct {
	cfg    *track.Config
	tester *sigtest.Tester
}

func NewComputer(cfg *track.Config) *Computer {
	return &Computer{
		cfg:    cfg,
		tester: sigtest.New(cfg.Settings.Alpha, cfg.Settings.MinimumBase),
	}
}

// Compute produces one QuestionTrend per tracked question, in tracked
// order. Questions without a definition are skipped with a warning so a
// stale tracking list cannot abort the run.
func (c *Computer) Compute(waves []*waveprep.PreparedWave) []metrics.QuestionTrend {
	trends := make([]metrics.QuestionTrend, 0, len(c.cfg.Tracked))
	for _, tq := range c.cfg.Tracked {
		q, ok := c.cfg.Questions[tq.Code]
		if !ok {
			log.Warn().
				Str("question", string(tq.Code)).
				Msg("tracked question has no definition, skipped")
			continue
		}
		trends = append(trends, c.computeQuestion(tq, q, waves))
	}
	return trends
}

func (c *Computer) computeQuestion(tq track.TrackedQuestion, q survey.Question, waves []*waveprep.PreparedWave) metrics.QuestionTrend {
	specs := track.ParseSpecs(tq.Specs, q.Type)
	trend := metrics.QuestionTrend{
		Code:         q.Code,
		Text:         q.Text,
		Kind:         kindFor(q.Type),
		Waves:        make(map[core.SegmentName]map[core.WaveID]metrics.WaveResult),
		Significance: make(map[core.SegmentName]metrics.SegmentSignificance),
	}

	order := make([]core.WaveID, 0, len(waves))
	for _, pw := range waves {
		order = append(order, pw.Wave)
	}

	for _, name := range c.cfg.SegmentNames() {
		results := make(map[core.WaveID]metrics.WaveResult)
		for _, pw := range waves {
			res, asked := c.cell(q, specs, pw, name)
			if !asked {
				continue // entry stays absent: not asked this wave
			}
			results[pw.Wave] = res
		}
		trend.Waves[name] = results
		trend.Significance[name] = c.significance(trend.Kind, order, results)
	}
	return trend
}

// kindFor maps a question type onto its result variant.
func kindFor(t survey.QuestionType) metrics.MetricKind {
	switch t {
	case survey.Rating:
		return metrics.KindRating
	case survey.NPS:
		return metrics.KindNPS
	case survey.SingleChoice, survey.OpenEnd:
		return metrics.KindProportions
	case survey.MultiMention:
		return metrics.KindMulti
	case survey.Composite:
		return metrics.KindComposite
	default:
		return metrics.KindMean
	}
}

// cell computes one (question, wave, segment) result. The second return
// is false when the question was not fielded in the wave, which keeps
// the wave absent from the trend rather than present-but-empty.
func (c *Computer) cell(q survey.Question, specs []track.MetricSpec, pw *waveprep.PreparedWave, segment core.SegmentName) (metrics.WaveResult, bool) {
	mask := c.segmentMask(pw, segment)

	if q.Type == survey.Composite {
		return c.compositeCell(q, specs, pw, mask)
	}

	column := q.ColumnFor(pw.Wave)
	if column == "" {
		return metrics.WaveResult{}, false
	}

	switch q.Type {
	case survey.Rating:
		values, ok := pw.NumericColumn(column)
		if !ok {
			return c.missingColumn(q, pw, column), true
		}
		return c.enhancedCell(metrics.KindRating, q, specs, applyMask(values, mask), applyMask(pw.Weights, mask)), true

	case survey.NPS:
		values, ok := pw.NumericColumn(column)
		if !ok {
			return c.missingColumn(q, pw, column), true
		}
		return c.npsCell(applyMask(values, mask), applyMask(pw.Weights, mask)), true

	case survey.SingleChoice, survey.OpenEnd:
		return c.choiceCell(q, pw, column, mask)

	case survey.MultiMention:
		return c.multiCell(q, pw, column, mask)

	default: // Numeric
		values, ok := pw.NumericColumn(column)
		if !ok {
			return c.missingColumn(q, pw, column), true
		}
		return c.meanCell(applyMask(values, mask), applyMask(pw.Weights, mask)), true
	}
}

// segmentMask selects the rows belonging to a banner segment. The Total
// segment has no definition and selects every row (nil mask). A segment
// whose break variable is missing from the wave selects nothing, so the
// cell reports a zero base instead of silently becoming the total.
func (c *Computer) segmentMask(pw *waveprep.PreparedWave, segment core.SegmentName) []bool {
	seg, ok := c.cfg.SegmentByName(segment)
	if !ok {
		return nil
	}

	mask := make([]bool, pw.NRows)
	cells, ok := pw.TextColumn(seg.Column)
	if !ok {
		log.Warn().
			Str("wave", string(pw.Wave)).
			Str("segment", string(segment)).
			Str("column", seg.Column).
			Msg("banner break variable missing from wave")
		return mask
	}
	for i, cell := range cells {
		mask[i] = seg.Matches(cell)
	}
	return mask
}

func applyMask(values []float64, mask []bool) []float64 {
	if mask == nil {
		return values
	}
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if i < len(mask) && mask[i] {
			out = append(out, v)
		}
	}
	return out
}

func applyMaskText(values []string, mask []bool) []string {
	if mask == nil {
		return values
	}
	out := make([]string, 0, len(values))
	for i, v := range values {
		if i < len(mask) && mask[i] {
			out = append(out, v)
		}
	}
	return out
}

// missingColumn covers a configured column the wave file does not carry:
// the question counts as asked, but the cell is empty.
func (c *Computer) missingColumn(q survey.Question, pw *waveprep.PreparedWave, column string) metrics.WaveResult {
	log.Warn().
		Str("wave", string(pw.Wave)).
		Str("question", string(q.Code)).
		Str("column", column).
		Msg("configured column not found in wave data")
	return metrics.WaveResult{Kind: kindFor(q.Type)}
}

func (c *Computer) base(res *metrics.WaveResult, pairWeights []float64) {
	res.NUnweighted = len(pairWeights)
	for _, w := range pairWeights {
		res.NWeighted += w
	}
	res.DesignEffect = weighting.DesignEffect(pairWeights)
	res.EffectiveN = weighting.EffectiveN(pairWeights)
	res.Available = res.NUnweighted > 0
}

func (c *Computer) meanCell(values, weights []float64) metrics.WaveResult {
	mean, err := weighting.WeightedMean(values, weights)
	if err != nil {
		log.Error().Err(err).Msg("mean computation failed")
		return metrics.WaveResult{Kind: metrics.KindMean}
	}
	res := metrics.WaveResult{Kind: metrics.KindMean, Mean: &mean}
	c.base(&res, weighting.PairWeights(values, weights))
	return res
}

func (c *Computer) npsCell(values, weights []float64) metrics.WaveResult {
	nps, err := weighting.NPSScore(values, weights)
	if err != nil {
		log.Error().Err(err).Msg("nps computation failed")
		return metrics.WaveResult{Kind: metrics.KindNPS}
	}
	res := metrics.WaveResult{Kind: metrics.KindNPS, NPS: &nps}
	c.base(&res, weighting.PairWeights(values, weights))
	return res
}

// enhancedCell computes a rating or composite cell: the mean detail, the
// standard box set, and whatever ranges and box categories the specs
// request.
func (c *Computer) enhancedCell(kind metrics.MetricKind, q survey.Question, specs []track.MetricSpec, values, weights []float64) metrics.WaveResult {
	mean, err := weighting.WeightedMean(values, weights)
	if err != nil {
		log.Error().Err(err).Msg("mean computation failed")
		return metrics.WaveResult{Kind: kind}
	}

	enh := metrics.EnhancedResult{Mean: mean, Metrics: make(map[string]*float64)}
	enh.Metrics[track.TokenMean] = mean.Mean

	boxes := []struct {
		key string
		n   int
		top bool
	}{
		{track.TokenTopBox, 1, true},
		{track.TokenTop2Box, 2, true},
		{track.TokenTop3Box, 3, true},
		{track.TokenBottomBox, 1, false},
		{track.TokenBottom2Box, 2, false},
	}
	for _, b := range boxes {
		var boxRes metrics.BoxResult
		if b.top {
			boxRes, err = weighting.TopBox(values, weights, b.n)
		} else {
			boxRes, err = weighting.BottomBox(values, weights, b.n)
		}
		if err != nil {
			log.Error().Err(err).Str("metric", b.key).Msg("box computation failed")
			continue
		}
		enh.Metrics[b.key] = boxRes.Proportion
	}

	for _, spec := range specs {
		switch spec.Token {
		case track.TokenRange:
			rangeRes, rerr := weighting.CustomRange(values, weights, spec.Arg)
			if rerr != nil {
				log.Error().Err(rerr).Str("metric", spec.Key()).Msg("range computation failed")
				continue
			}
			enh.Metrics[spec.Key()] = rangeRes.Proportion
		case track.TokenBox:
			enh.Metrics[spec.Key()] = c.boxCategoryShare(q, spec.Arg, values, weights)
		}
	}

	res := metrics.WaveResult{Kind: kind}
	if kind == metrics.KindComposite {
		res.Composite = &enh
	} else {
		res.Rating = &enh
	}
	c.base(&res, weighting.PairWeights(values, weights))
	return res
}

// boxCategoryShare resolves a named box group through the options table
// and returns the weighted share of responses falling in it. Lookup
// failures null the metric and are reported; they do not abort the run.
func (c *Computer) boxCategoryShare(q survey.Question, category string, values, weights []float64) *float64 {
	codes, err := c.cfg.Structure.BoxCodes(q.Code, category)
	if err != nil {
		log.Error().Err(err).
			Str("question", string(q.Code)).
			Str("box", category).
			Msg("box category lookup failed, metric is null")
		return nil
	}

	prop, err := weighting.Proportions(values, weights, codes)
	if err != nil {
		log.Error().Err(err).Msg("box share computation failed")
		return nil
	}
	var total float64
	for _, code := range codes {
		total += prop.Shares[metrics.CodeKey(code)].Proportion
	}
	return &total
}

// choiceCell computes a single-choice (or open-end) cell. Columns the
// preparation stage resolved to codes use numeric shares; columns that
// stayed text use text shares keyed by normalized response text.
func (c *Computer) choiceCell(q survey.Question, pw *waveprep.PreparedWave, column string, mask []bool) (metrics.WaveResult, bool) {
	res := metrics.WaveResult{Kind: metrics.KindProportions}

	if values, ok := pw.NumericColumn(column); ok {
		vals := applyMask(values, mask)
		wts := applyMask(pw.Weights, mask)
		prop, err := weighting.Proportions(vals, wts, nil)
		if err != nil {
			log.Error().Err(err).Msg("proportions computation failed")
			return res, true
		}
		res.Proportions = &prop
		c.base(&res, weighting.PairWeights(vals, wts))
		return res, true
	}

	text, ok := pw.TextColumn(column)
	if !ok {
		return c.missingColumn(q, pw, column), true
	}
	vals := applyMaskText(text, mask)
	wts := applyMask(pw.Weights, mask)
	prop, err := weighting.TextProportions(vals, wts)
	if err != nil {
		log.Error().Err(err).Msg("proportions computation failed")
		return res, true
	}
	res.Proportions = &prop
	c.base(&res, textPairWeights(vals, wts))
	return res, true
}

// textPairWeights mirrors weighting.PairWeights for text columns: the
// weights of rows with substantive text and a usable weight.
func textPairWeights(values []string, weights []float64) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if i >= len(weights) {
			break
		}
		if metrics.TextKey(v) == "" || math.IsNaN(weights[i]) || weights[i] <= 0 {
			continue
		}
		out = append(out, weights[i])
	}
	return out
}

// mentionFlags reads one indicator column in either of its fielded
// forms. Numeric columns distinguish answered (non-missing) from
// selected (non-zero). Text columns cannot mark non-response per
// option, so every row counts as answered and a mention is any
// substantive cell other than "0".
func mentionFlags(pw *waveprep.PreparedWave, name string, mask []bool) (selected, answered []bool, ok bool) {
	if values, isNum := pw.NumericColumn(name); isNum {
		vals := applyMask(values, mask)
		selected = make([]bool, len(vals))
		answered = make([]bool, len(vals))
		for i, v := range vals {
			answered[i] = !math.IsNaN(v)
			selected[i] = answered[i] && v != 0
		}
		return selected, answered, true
	}

	text, isText := pw.TextColumn(name)
	if !isText {
		return nil, nil, false
	}
	cells := applyMaskText(text, mask)
	selected = make([]bool, len(cells))
	answered = make([]bool, len(cells))
	for i, cell := range cells {
		answered[i] = true
		trimmed := metrics.TextKey(cell)
		selected[i] = trimmed != "" && trimmed != "0"
	}
	return selected, answered, true
}

// multiCell computes a select-all-that-apply cell from the question's
// {base}_{n} indicator columns. The base is every respondent in the
// segment with a usable weight and at least one answered indicator.
func (c *Computer) multiCell(q survey.Question, pw *waveprep.PreparedWave, column string, mask []bool) (metrics.WaveResult, bool) {
	columns := pw.MentionColumns(column)
	if len(columns) == 0 {
		// Single indicator column fielded without suffixes.
		if pw.HasColumn(column) {
			columns = []string{column}
		} else {
			return metrics.WaveResult{}, false
		}
	}

	type mentionCol struct {
		name     string
		suffix   int
		selected []bool
		answered []bool
	}
	cols := make([]mentionCol, 0, len(columns))
	for _, name := range columns {
		selected, answered, ok := mentionFlags(pw, name, mask)
		if !ok {
			continue
		}
		_, suffix, _ := waveprep.SplitMention(name)
		cols = append(cols, mentionCol{name: name, suffix: suffix, selected: selected, answered: answered})
	}
	if len(cols) == 0 {
		return c.missingColumn(q, pw, column), true
	}

	weights := applyMask(pw.Weights, mask)

	// Base membership and per-respondent mention counts.
	var baseWeights []float64
	var counts []float64
	var anyWeight, baseWeight float64
	nRows := len(weights)
	for i := 0; i < nRows; i++ {
		w := weights[i]
		if math.IsNaN(w) || w <= 0 {
			continue
		}
		answered := false
		mentions := 0.0
		for _, col := range cols {
			if i >= len(col.answered) || !col.answered[i] {
				continue
			}
			answered = true
			if col.selected[i] {
				mentions++
			}
		}
		if !answered {
			continue
		}
		baseWeights = append(baseWeights, w)
		counts = append(counts, mentions)
		baseWeight += w
		if mentions > 0 {
			anyWeight += w
		}
	}

	multi := metrics.MultiMentionResult{
		Mentions: make(map[string]float64, len(cols)),
		Metrics:  make(map[string]*float64),
		Shares:   make(map[string]metrics.Share, len(cols)),
	}

	for _, col := range cols {
		var selWeight float64
		var selCount int
		for i := 0; i < nRows; i++ {
			w := weights[i]
			if math.IsNaN(w) || w <= 0 || i >= len(col.selected) || !col.selected[i] {
				continue
			}
			selWeight += w
			selCount++
		}
		share := metrics.Share{NUnweighted: selCount, NWeighted: selWeight}
		if baseWeight > 0 {
			share.Proportion = 100 * selWeight / baseWeight
		}
		multi.Shares[metrics.CodeKey(float64(col.suffix))] = share
		multi.Mentions[metrics.TextKey(col.name)] = share.Proportion
	}

	if baseWeight > 0 {
		any := 100 * anyWeight / baseWeight
		multi.Metrics[track.TokenAny] = &any
	}
	if countMean, err := weighting.WeightedMean(counts, baseWeights); err == nil && countMean.Mean != nil {
		multi.Metrics[track.TokenCountMean] = countMean.Mean
	}

	res := metrics.WaveResult{Kind: metrics.KindMulti, Multi: &multi}
	c.base(&res, baseWeights)
	return res, true
}

// compositeCell derives the composite series for a wave and then scores
// it like a rating. The question counts as asked when at least one
// source question was fielded.
func (c *Computer) compositeCell(q survey.Question, specs []track.MetricSpec, pw *waveprep.PreparedWave, mask []bool) (metrics.WaveResult, bool) {
	sources := make([][]float64, len(q.SourceQuestions))
	asked := false
	for i, code := range q.SourceQuestions {
		src, ok := c.cfg.Questions[code]
		if !ok {
			log.Warn().
				Str("composite", string(q.Code)).
				Str("source", string(code)).
				Msg("composite source question has no definition")
			continue
		}
		column := src.ColumnFor(pw.Wave)
		if column == "" {
			continue
		}
		asked = true
		if values, ok := pw.NumericColumn(column); ok {
			sources[i] = values
		}
	}
	if !asked {
		return metrics.WaveResult{}, false
	}

	series := compositeSeries(q, sources, pw.NRows)
	return c.enhancedCell(metrics.KindComposite, q, specs, applyMask(series, mask), applyMask(pw.Weights, mask)), true
}

// significance builds the per-segment significance maps for consecutive
// wave pairs. Simple kinds fill the flat map; enhanced and share-based
// kinds fill per-metric sub-maps.
func (c *Computer) significance(kind metrics.MetricKind, order []core.WaveID, results map[core.WaveID]metrics.WaveResult) metrics.SegmentSignificance {
	sig := metrics.SegmentSignificance{
		ByMetric: make(map[string]map[string]metrics.SignificanceResult),
		Flat:     make(map[string]metrics.SignificanceResult),
	}
	if len(order) < 2 {
		return sig
	}

	switch kind {
	case metrics.KindMean:
		sig.Flat = c.tester.ConsecutivePairs(order, results, c.tester.MeanTest())

	case metrics.KindNPS:
		sig.Flat = c.tester.ConsecutivePairs(order, results, c.tester.NPSTest())

	case metrics.KindRating, metrics.KindComposite:
		for _, key := range enhancedMetricKeys(results) {
			sig.ByMetric[key] = c.tester.ConsecutivePairs(order, results, c.tester.MetricTest(key))
		}

	case metrics.KindProportions:
		for _, key := range shareKeys(results) {
			sig.ByMetric[key] = c.tester.ConsecutivePairs(order, results, c.tester.ShareTest(key))
		}

	case metrics.KindMulti:
		for _, key := range shareKeys(results) {
			sig.ByMetric[key] = c.tester.ConsecutivePairs(order, results, c.tester.ShareTest(key))
		}
		sig.ByMetric[track.TokenAny] = c.tester.ConsecutivePairs(order, results, c.multiMetricTest(track.TokenAny))
	}
	return sig
}

// multiMetricTest z-tests a derived multi-mention percentage ("any").
func (c *Computer) multiMetricTest(key string) sigtest.PairTest {
	return func(from, to metrics.WaveResult) metrics.SignificanceResult {
		v1, ok1 := multiMetric(from, key)
		v2, ok2 := multiMetric(to, key)
		if !ok1 || !ok2 {
			return metrics.NotTested(metrics.ReasonCodeNotFound)
		}
		return sigtest.ZTestProportions(v1/100, from.BaseN(), v2/100, to.BaseN(), c.tester.Alpha)
	}
}

func multiMetric(res metrics.WaveResult, key string) (float64, bool) {
	if res.Multi == nil {
		return 0, false
	}
	v, ok := res.Multi.Metrics[key]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// enhancedMetricKeys is the sorted union of metric keys across waves.
func enhancedMetricKeys(results map[core.WaveID]metrics.WaveResult) []string {
	seen := make(map[string]bool)
	for _, res := range results {
		if enh := res.Enhanced(); enh != nil {
			for key := range enh.Metrics {
				seen[key] = true
			}
		}
	}
	return sortedKeys(seen)
}

// shareKeys is the sorted union of share keys across waves.
func shareKeys(results map[core.WaveID]metrics.WaveResult) []string {
	seen := make(map[string]bool)
	for _, res := range results {
		switch {
		case res.Proportions != nil:
			for key := range res.Proportions.Shares {
				seen[key] = true
			}
		case res.Multi != nil:
			for key := range res.Multi.Shares {
				seen[key] = true
			}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
