// Package crosstab reshapes computed question trends into flat metric
// rows: one row per (question, metric), cells spanning every wave and
// banner segment, with deltas and significance flags attached. It owns
// no statistics; everything here is lookup, labeling, and ordering.
package crosstab

import (
	"strings"

	"gotrack/domain/metrics"
)

// extractValue pulls one metric out of a wave result, trying each
// candidate key in order. The dispatch is by result kind: enhanced kinds
// read their metrics map, NPS reads its top-level fields, single-choice
// reads the proportions map, and multi-mention checks mentions, then
// derived metrics, then per-option shares.
func extractValue(res metrics.WaveResult, keys []string) (float64, bool) {
	switch res.Kind {
	case metrics.KindMean:
		if res.Mean == nil || res.Mean.Mean == nil {
			return 0, false
		}
		for _, key := range keys {
			if key == "mean" {
				return *res.Mean.Mean, true
			}
		}
		return 0, false

	case metrics.KindNPS:
		return npsField(res, keys)

	case metrics.KindRating, metrics.KindComposite:
		enh := res.Enhanced()
		if enh == nil {
			return 0, false
		}
		for _, key := range keys {
			if v, ok := enh.Metrics[key]; ok && v != nil {
				return *v, true
			}
		}
		return 0, false

	case metrics.KindProportions:
		if res.Proportions == nil {
			return 0, false
		}
		for _, key := range keys {
			if share, ok := res.Proportions.Shares[key]; ok {
				return share.Proportion, true
			}
		}
		return 0, false

	case metrics.KindMulti:
		if res.Multi == nil {
			return 0, false
		}
		for _, key := range keys {
			if v, ok := res.Multi.Mentions[key]; ok {
				return v, true
			}
		}
		for _, key := range keys {
			if v, ok := res.Multi.Metrics[key]; ok && v != nil {
				return *v, true
			}
		}
		for _, key := range keys {
			if share, ok := res.Multi.Shares[key]; ok {
				return share.Proportion, true
			}
		}
		return 0, false
	}
	return 0, false
}

func npsField(res metrics.WaveResult, keys []string) (float64, bool) {
	if res.NPS == nil {
		return 0, false
	}
	for _, key := range keys {
		var v *float64
		switch key {
		case "nps_score", "nps":
			v = res.NPS.NPS
		case "promoters_pct", "promoters":
			v = res.NPS.PromotersPct
		case "passives_pct", "passives":
			v = res.NPS.PassivesPct
		case "detractors_pct", "detractors":
			v = res.NPS.DetractorsPct
		}
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

// lookupSig resolves a significance result for one wave pair: the
// per-metric sub-map first (under each candidate key), the flat map
// second. Absence is reported as not-found, never as "not significant".
func lookupSig(sig metrics.SegmentSignificance, keys []string, pairKey string) (metrics.SignificanceResult, bool) {
	for _, key := range keys {
		if pairs, ok := sig.ByMetric[key]; ok {
			if res, ok := pairs[pairKey]; ok {
				return res, true
			}
		}
	}
	if res, ok := sig.Flat[pairKey]; ok {
		return res, true
	}
	return metrics.SignificanceResult{}, false
}

// mentionSuffix extracts the numeric tail of a mention column key
// ("q5_3" -> "3") so option rows can reach suffix-keyed share maps.
func mentionSuffix(key string) (string, bool) {
	i := strings.LastIndexByte(key, '_')
	if i < 0 || i == len(key)-1 {
		return "", false
	}
	tail := key[i+1:]
	for _, r := range tail {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return tail, true
}
