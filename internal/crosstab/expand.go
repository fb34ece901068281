package crosstab

import (
	"sort"
	"strconv"

	"gotrack/domain/core"
	"gotrack/domain/metrics"
	"gotrack/domain/survey"
	"gotrack/domain/track"
)

// rowSpec is one resolved metric row: the row's metric key, the lookup
// keys tried against result and significance maps, and the description
// used in the generated label.
type rowSpec struct {
	key  string
	keys []string
	desc string
}

// expand resolves a question's parsed specs into row specs: distribution
// tokens are dropped, expanding tokens ("all", "auto", "top3") become one
// row per response option, and parameterized tokens get their lookup
// chains. Order is deterministic: spec order, options sorted by code.
func (e *Engine) expand(q survey.Question, trend metrics.QuestionTrend, specs []track.MetricSpec) []rowSpec {
	var rows []rowSpec
	for _, spec := range specs {
		if spec.IsDistribution() {
			continue
		}
		switch {
		case spec.Expands():
			rows = append(rows, e.expandOptions(q, trend, spec)...)
		case spec.Token == track.TokenCategory:
			rows = append(rows, e.categoryRow(q, spec))
		case spec.Token == track.TokenOption:
			rows = append(rows, e.optionRow(q, spec))
		default:
			rows = append(rows, rowSpec{
				key:  spec.Key(),
				keys: []string{spec.Key()},
				desc: spec.Description(),
			})
		}
	}
	return rows
}

// expandOptions turns "all", "auto", or "top3" into per-option rows
// from the options actually observed in the Total segment.
func (e *Engine) expandOptions(q survey.Question, trend metrics.QuestionTrend, spec track.MetricSpec) []rowSpec {
	switch trend.Kind {
	case metrics.KindProportions, metrics.KindMulti:
	case metrics.KindNPS:
		// "all"/"auto" on an NPS question reduces to its score.
		s := track.MetricSpec{Token: track.TokenNPSScore, Label: spec.Label}
		return []rowSpec{{key: s.Key(), keys: []string{s.Key()}, desc: s.Description()}}
	default:
		// Enhanced kinds have no options; "top3" means the top-3 box.
		token := track.TokenMean
		if spec.Token == track.TokenTop3 {
			token = track.TokenTop3Box
		}
		s := track.MetricSpec{Token: token, Label: spec.Label}
		return []rowSpec{{key: s.Key(), keys: []string{s.Key()}, desc: s.Description()}}
	}

	keys := observedOptionKeys(trend)
	if spec.Token == track.TokenTop3 {
		keys = e.topOptionKeys(trend, keys, 3)
	}

	prefix := track.TokenCategory
	if trend.Kind == metrics.KindMulti {
		prefix = track.TokenOption
	}

	rows := make([]rowSpec, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, rowSpec{
			key:  prefix + "_" + key,
			keys: []string{key},
			desc: e.optionLabel(q, key),
		})
	}
	return rows
}

// categoryRow resolves a "category:Name" spec: the normalized key, the
// bare name, and, when the options table can map the name to a code,
// that code's key as a final fallback.
func (e *Engine) categoryRow(q survey.Question, spec track.MetricSpec) rowSpec {
	bare := metrics.TextKey(spec.Arg)
	keys := []string{spec.Key(), bare}
	if code, ok := e.cfg.Structure.ResolveText(q.Code, spec.Arg); ok {
		keys = append(keys, metrics.CodeKey(code))
	}
	return rowSpec{key: spec.Key(), keys: keys, desc: spec.Description()}
}

// optionRow resolves an "option:Column" spec for multi-mention rows:
// the full column key plus its numeric suffix for share lookups.
func (e *Engine) optionRow(q survey.Question, spec track.MetricSpec) rowSpec {
	bare := metrics.TextKey(spec.Arg)
	keys := []string{spec.Key(), bare}
	if suffix, ok := mentionSuffix(bare); ok {
		keys = append(keys, suffix)
	}
	return rowSpec{key: spec.Key(), keys: keys, desc: spec.Description()}
}

// observedOptionKeys is the sorted union of option keys across the Total
// segment's waves: numeric codes in numeric order, then text keys
// alphabetically.
func observedOptionKeys(trend metrics.QuestionTrend) []string {
	seen := make(map[string]bool)
	for _, res := range trend.Waves[core.TotalSegment] {
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

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		vi, erri := strconv.ParseFloat(keys[i], 64)
		vj, errj := strconv.ParseFloat(keys[j], 64)
		switch {
		case erri == nil && errj == nil:
			return vi < vj
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// topOptionKeys ranks options by their value in the latest wave that
// carries any data and keeps the first n.
func (e *Engine) topOptionKeys(trend metrics.QuestionTrend, keys []string, n int) []string {
	total := trend.Waves[core.TotalSegment]
	order := e.cfg.WaveIDs()

	value := func(key string) (float64, bool) {
		for i := len(order) - 1; i >= 0; i-- {
			res, ok := total[order[i]]
			if !ok {
				continue
			}
			if v, ok := extractValue(res, []string{key}); ok {
				return v, true
			}
		}
		return 0, false
	}

	ranked := append([]string(nil), keys...)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, oki := value(ranked[i])
		vj, okj := value(ranked[j])
		if oki != okj {
			return oki
		}
		return vi > vj
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// optionLabel maps an option key back to its display text through the
// options table; the key itself is the fallback.
func (e *Engine) optionLabel(q survey.Question, key string) string {
	for _, opt := range e.cfg.Structure.OptionsFor(q.Code) {
		match := false
		if opt.IndexWeight != nil && metrics.CodeKey(*opt.IndexWeight) == key {
			match = true
		}
		if metrics.TextKey(opt.Text) == key || metrics.TextKey(opt.DisplayText) == key {
			match = true
		}
		if !match {
			continue
		}
		if opt.DisplayText != "" {
			return opt.DisplayText
		}
		return opt.Text
	}
	return key
}
