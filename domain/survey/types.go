package survey

import (
	"fmt"
	"strings"

	"gotrack/domain/core"
)

// QuestionType classifies how a tracked question's responses are analyzed.
type QuestionType string

const (
	// Rating is a numeric scale question (1-5, 1-7, 0-10, ...).
	Rating QuestionType = "rating"
	// NPS is a 0-10 likelihood-to-recommend question.
	NPS QuestionType = "nps"
	// SingleChoice is a categorical question with one answer per respondent.
	SingleChoice QuestionType = "single_choice"
	// MultiMention is a select-all-that-apply question stored as
	// {code}_{n} indicator columns.
	MultiMention QuestionType = "multi_mention"
	// Numeric is an unconstrained numeric response.
	Numeric QuestionType = "numeric"
	// OpenEnd is free text; never coerced to numbers.
	OpenEnd QuestionType = "open_end"
	// Composite is derived per respondent from other rating questions.
	Composite QuestionType = "composite"
)

// ParseQuestionType maps configuration spellings onto a QuestionType.
func ParseQuestionType(s string) (QuestionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rating", "scale":
		return Rating, nil
	case "nps":
		return NPS, nil
	case "single", "singlechoice", "single_choice":
		return SingleChoice, nil
	case "multiple", "multimention", "multi_mention", "multi":
		return MultiMention, nil
	case "numeric", "number":
		return Numeric, nil
	case "text", "open", "openend", "open_end":
		return OpenEnd, nil
	case "composite":
		return Composite, nil
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

// IsCategorical reports whether responses stay text during preparation.
func (t QuestionType) IsCategorical() bool {
	return t == SingleChoice || t == MultiMention || t == OpenEnd
}

// CompositeCalc selects how a composite combines its source values.
type CompositeCalc string

const (
	CompositeMean         CompositeCalc = "mean"
	CompositeSum          CompositeCalc = "sum"
	CompositeWeightedMean CompositeCalc = "weighted_mean"
)

// ParseCompositeCalc maps configuration spellings onto a CompositeCalc.
func ParseCompositeCalc(s string) (CompositeCalc, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mean":
		return CompositeMean, nil
	case "sum":
		return CompositeSum, nil
	case "weightedmean", "weighted_mean":
		return CompositeWeightedMean, nil
	default:
		return "", fmt.Errorf("unknown composite calculation %q", s)
	}
}

// Question is the cross-wave metadata of one survey question. WaveColumns
// maps a wave to the column name that wave fielded the question under; a
// missing entry means the question was not asked that wave.
type Question struct {
	Code        core.QuestionCode
	Text        string
	Type        QuestionType
	ScaleMin    *float64
	ScaleMax    *float64
	WaveColumns map[core.WaveID]string

	// Composite-only fields.
	SourceQuestions []core.QuestionCode
	Calc            CompositeCalc
	SourceWeights   []float64
}

// ColumnFor returns the wave-specific column name, or "" when the question
// was not asked in that wave.
func (q Question) ColumnFor(wave core.WaveID) string {
	return q.WaveColumns[wave]
}

// AskedIn reports whether the question was fielded in the given wave.
func (q Question) AskedIn(wave core.WaveID) bool {
	return strings.TrimSpace(q.WaveColumns[wave]) != ""
}

// Validate checks the invariants configuration can violate.
func (q Question) Validate() error {
	if strings.TrimSpace(string(q.Code)) == "" {
		return fmt.Errorf("question has no code")
	}
	if q.Type == Composite {
		if len(q.SourceQuestions) == 0 {
			return fmt.Errorf("composite %s names no source questions", q.Code)
		}
		if q.Calc == CompositeWeightedMean && len(q.SourceWeights) != len(q.SourceQuestions) {
			return fmt.Errorf("composite %s has %d weights for %d sources",
				q.Code, len(q.SourceWeights), len(q.SourceQuestions))
		}
	}
	return nil
}
