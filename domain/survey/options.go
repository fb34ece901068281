package survey

import (
	"fmt"
	"sort"
	"strings"

	"gotrack/domain/core"
)

// Option is one row of the survey-structure options table: the text a
// respondent file carries for an answer, the numeric code it analyzes as,
// and the box grouping it belongs to (if any).
type Option struct {
	Question    core.QuestionCode
	Text        string
	DisplayText string
	IndexWeight *float64
	BoxCategory string
}

// Structure is the loaded options table, indexed for the two lookups the
// preparation stage needs: text-to-code resolution and box-category
// expansion. Lookups are case-insensitive on trimmed text.
type Structure struct {
	options []Option
	byText  map[core.QuestionCode]map[string]Option
}

// NewStructure indexes the given options. Later duplicates of the same
// (question, text) pair win, matching last-row-wins workbook semantics.
func NewStructure(options []Option) *Structure {
	s := &Structure{
		options: options,
		byText:  make(map[core.QuestionCode]map[string]Option),
	}
	for _, opt := range options {
		key := normalizeText(opt.Text)
		if key == "" {
			continue
		}
		m := s.byText[opt.Question]
		if m == nil {
			m = make(map[string]Option)
			s.byText[opt.Question] = m
		}
		m[key] = opt
	}
	return s
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Len returns the number of option rows loaded.
func (s *Structure) Len() int {
	if s == nil {
		return 0
	}
	return len(s.options)
}

// ResolveText looks up the numeric code for a question's response text.
// The second return is false when the text is unknown for the question or
// the matching option carries no Index_Weight.
func (s *Structure) ResolveText(question core.QuestionCode, text string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	opt, ok := s.byText[question][normalizeText(text)]
	if !ok || opt.IndexWeight == nil {
		return 0, false
	}
	return *opt.IndexWeight, true
}

// OptionsFor returns the option rows for a question in load order.
func (s *Structure) OptionsFor(question core.QuestionCode) []Option {
	if s == nil {
		return nil
	}
	var out []Option
	for _, opt := range s.options {
		if opt.Question == question {
			out = append(out, opt)
		}
	}
	return out
}

// BoxCodes expands a named box category ("Top2", "Bottom3", ...) into the
// sorted numeric codes it covers for one question. The three failure modes
// stay distinct so callers can report each precisely:
// core.ErrNoStructure when no table is loaded, core.ErrBoxCategoryNotFound
// when the name never appears for the question, core.ErrBoxCodesEmpty when
// it appears but no matching option carries an Index_Weight.
func (s *Structure) BoxCodes(question core.QuestionCode, category string) ([]float64, error) {
	if s == nil || len(s.options) == 0 {
		return nil, fmt.Errorf("%w: cannot resolve box %q for %s",
			core.ErrNoStructure, category, question)
	}

	want := normalizeText(category)
	found := false
	var codes []float64
	for _, opt := range s.options {
		if opt.Question != question || normalizeText(opt.BoxCategory) != want {
			continue
		}
		found = true
		if opt.IndexWeight != nil {
			codes = append(codes, *opt.IndexWeight)
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: %q for question %s",
			core.ErrBoxCategoryNotFound, category, question)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: %q for question %s",
			core.ErrBoxCodesEmpty, category, question)
	}

	sort.Float64s(codes)
	return codes, nil
}
