// Package waveprep turns one wave's raw respondent file into analyzable
// columns: locale and non-response artifacts removed, numeric candidates
// coerced, option text resolved to codes, weights standardized, and the
// effective sample size attached. Nothing here computes a statistic; the
// output feeds the weighting stage unchanged.
package waveprep

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// nonResponseTokens are treated as missing before numeric conversion.
// Matching is case-insensitive on trimmed text.
var nonResponseTokens = map[string]bool{
	"dk":                true,
	"d/k":               true,
	"don't know":        true,
	"dont know":         true,
	"refused":           true,
	"ref":               true,
	"n/a":               true,
	"na":                true,
	"no answer":         true,
	"not applicable":    true,
	"none":              true,
	"prefer not to say": true,
	"-":                 true,
}

// isNonResponse reports whether a raw cell is a known non-response token.
func isNonResponse(raw string) bool {
	return nonResponseTokens[strings.ToLower(strings.TrimSpace(raw))]
}

var decimalCommaPattern = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})*(,\d+)?$|^-?\d+,\d+$`)

// normalizeDecimal rewrites a raw cell into strconv-parseable form.
// With decimalComma set the file declares comma as its decimal separator,
// so dots are thousands separators and commas become decimal points.
// Without it, a cell that only makes sense as a decimal-comma number
// ("3,5") is still rewritten; mixed exports are common enough that a
// declared separator cannot be fully trusted.
func normalizeDecimal(raw string, decimalComma bool) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "") // non-breaking thousands spaces
	if decimalComma {
		s = strings.ReplaceAll(s, " ", "")
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	}
	if strings.Contains(s, ",") && decimalCommaPattern.MatchString(strings.ReplaceAll(s, " ", "")) {
		s = strings.ReplaceAll(s, " ", "")
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	}
	return s
}

// parseNumeric converts one cleaned cell. Blank and non-response cells
// are missing without counting as failures.
func parseNumeric(raw string, decimalComma bool) (value float64, missing bool, failed bool) {
	s := strings.TrimSpace(raw)
	if s == "" || isNonResponse(s) {
		return math.NaN(), true, false
	}
	v, err := strconv.ParseFloat(normalizeDecimal(s, decimalComma), 64)
	if err != nil {
		return math.NaN(), true, true
	}
	return v, false, false
}

// CleanResult reports one column's numeric conversion.
type CleanResult struct {
	Values      []float64 // NaN where missing; nil when the column stayed text
	Converted   bool      // false: all non-missing cells failed, column stays text
	NMissing    int       // cells missing after conversion (blank, token, or failed)
	NFailed     int       // non-missing cells that failed to parse
	NNonMissing int       // cells that were neither blank nor a non-response token
}

// CleanNumericColumn attempts numeric conversion of a candidate column.
// A column whose every substantive cell fails to parse is an open-end
// that happened to match the question-code pattern; it is reported as
// unconverted rather than as an error.
func CleanNumericColumn(raw []string, decimalComma bool) CleanResult {
	res := CleanResult{}
	values := make([]float64, len(raw))
	for i, cell := range raw {
		v, missing, failed := parseNumeric(cell, decimalComma)
		values[i] = v
		if missing {
			res.NMissing++
		}
		if failed {
			res.NFailed++
		}
		if strings.TrimSpace(cell) != "" && !isNonResponse(cell) {
			res.NNonMissing++
		}
	}

	if res.NNonMissing > 0 && res.NFailed == res.NNonMissing {
		return res // nothing substantive parsed: leave the column as text
	}
	res.Converted = true
	res.Values = values
	return res
}
