package waveprep

import (
	"regexp"
	"sort"
	"strconv"
)

var mentionSuffix = regexp.MustCompile(`^(.+)_(\d+)$`)

// SplitMention decomposes a column name of the form {base}_{digits}.
// "Q5_10" yields ("Q5", 10, true); names without a numeric suffix
// report ok=false.
func SplitMention(column string) (base string, index int, ok bool) {
	m := mentionSuffix.FindStringSubmatch(column)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// MentionColumns selects the sub-columns of a multi-mention question
// from a wave's header set, ordered by numeric suffix so that Q5_10
// follows Q5_9 rather than Q5_1.
func MentionColumns(headers []string, base string) []string {
	type mention struct {
		name  string
		index int
	}
	var found []mention
	for _, h := range headers {
		b, idx, ok := SplitMention(h)
		if ok && b == base {
			found = append(found, mention{name: h, index: idx})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].index < found[j].index })

	names := make([]string, len(found))
	for i, m := range found {
		names[i] = m.name
	}
	return names
}
