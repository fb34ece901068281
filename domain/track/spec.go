package track

import (
	"fmt"
	"strings"

	"gotrack/domain/survey"
)

// Metric-spec tokens. A tracked question carries a comma-separated spec
// string whose tokens name the metrics to report: plain tokens like
// "mean" or "top2_box", parameterized ones like "range:9-10" or
// "box:Agree", and expanding ones like "all" (every response option) or
// "auto" (type-appropriate set). Any token may carry a display label
// via an "=Label" suffix.
const (
	TokenMean       = "mean"
	TokenNPSScore   = "nps_score"
	TokenTopBox     = "top_box"
	TokenTop2Box    = "top2_box"
	TokenTop3Box    = "top3_box"
	TokenBottomBox  = "bottom_box"
	TokenBottom2Box = "bottom2_box"
	TokenRange      = "range"
	TokenBox        = "box"
	TokenCategory   = "category"
	TokenOption     = "option"
	TokenAny        = "any"
	TokenCountMean  = "count_mean"
	TokenCountDist  = "count_distribution"
	TokenDist       = "distribution"
	TokenAll        = "all"
	TokenTop3       = "top3"
	TokenAuto       = "auto"
)

// MetricSpec is one parsed token of a tracking-spec string.
type MetricSpec struct {
	Token string // lower-cased head: "mean", "range", "box", ...
	Arg   string // text after ":", original case ("9-10", "Agree")
	Label string // custom display label from an "=Label" suffix
}

// ParseSpec parses a single token. "top2_box=Satisfied" yields
// {Token: "top2_box", Label: "Satisfied"}; "box:Agree" yields
// {Token: "box", Arg: "Agree"}.
func ParseSpec(token string) MetricSpec {
	s := strings.TrimSpace(token)

	var label string
	if i := strings.Index(s, "="); i >= 0 {
		label = strings.TrimSpace(s[i+1:])
		s = strings.TrimSpace(s[:i])
	}

	var arg string
	if i := strings.Index(s, ":"); i >= 0 {
		arg = strings.TrimSpace(s[i+1:])
		s = strings.TrimSpace(s[:i])
	}

	return MetricSpec{Token: strings.ToLower(s), Arg: arg, Label: label}
}

// ParseSpecs splits a spec string on commas and parses each token,
// falling back to the question type's default when the string is blank.
func ParseSpecs(specString string, qtype survey.QuestionType) []MetricSpec {
	trimmed := strings.TrimSpace(specString)
	if trimmed == "" {
		trimmed = DefaultSpec(qtype)
	}

	var specs []MetricSpec
	for _, token := range strings.Split(trimmed, ",") {
		if strings.TrimSpace(token) == "" {
			continue
		}
		specs = append(specs, ParseSpec(token))
	}
	return specs
}

// DefaultSpec returns the spec string used when a tracked question
// configures none.
func DefaultSpec(qtype survey.QuestionType) string {
	switch qtype {
	case survey.NPS:
		return TokenNPSScore
	case survey.SingleChoice, survey.OpenEnd:
		return TokenAll
	case survey.MultiMention:
		return TokenAuto
	default:
		return TokenMean
	}
}

// Key returns the normalized metric key the spec addresses in result
// maps: "range:9-10" becomes "range_9_10", "box:Agree" becomes
// "box_agree", plain tokens pass through lower-cased.
func (s MetricSpec) Key() string {
	if s.Arg == "" {
		return s.Token
	}
	return normalizeKey(s.Token + "_" + s.Arg)
}

func normalizeKey(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', ' ', '.':
			return '_'
		}
		return r
	}, lowered)
}

// IsDistribution reports whether the token is a distribution spec,
// which the flat crosstab cannot display.
func (s MetricSpec) IsDistribution() bool {
	return s.Token == TokenDist || s.Token == TokenCountDist
}

// Expands reports whether the token stands for a set of per-option
// metrics rather than a single one.
func (s MetricSpec) Expands() bool {
	return s.Token == TokenAll || s.Token == TokenAuto || s.Token == TokenTop3
}

var specDescriptions = map[string]string{
	TokenMean:       "Mean",
	TokenNPSScore:   "NPS",
	TokenTopBox:     "Top Box %",
	TokenTop2Box:    "Top 2 Box %",
	TokenTop3Box:    "Top 3 Box %",
	TokenBottomBox:  "Bottom Box %",
	TokenBottom2Box: "Bottom 2 Box %",
	TokenAny:        "Any Mention %",
	TokenCountMean:  "Average Mentions",
}

// Description is the built-in metric description used in row labels
// when no custom label is given.
func (s MetricSpec) Description() string {
	if s.Label != "" {
		return s.Label
	}
	if d, ok := specDescriptions[s.Token]; ok {
		return d
	}
	switch s.Token {
	case TokenRange, TokenBox:
		return s.Arg + " %"
	case TokenCategory, TokenOption:
		return s.Arg
	}
	if s.Arg != "" {
		return fmt.Sprintf("%s %s", s.Token, s.Arg)
	}
	return s.Token
}
