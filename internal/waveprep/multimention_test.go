package waveprep

import (
	"reflect"
	"testing"
)

func TestSplitMention(t *testing.T) {
	base, idx, ok := SplitMention("Q5_10")
	if !ok || base != "Q5" || idx != 10 {
		t.Fatalf("SplitMention(Q5_10) = %q, %d, %v", base, idx, ok)
	}

	base, idx, ok = SplitMention("BRAND_USE_3")
	if !ok || base != "BRAND_USE" || idx != 3 {
		t.Fatalf("SplitMention(BRAND_USE_3) = %q, %d, %v", base, idx, ok)
	}

	for _, name := range []string{"Q5", "Q5_", "_1", "Q5_x", ""} {
		if _, _, ok := SplitMention(name); ok {
			t.Fatalf("SplitMention(%q) should not match", name)
		}
	}
}

func TestMentionColumnsNumericOrder(t *testing.T) {
	headers := []string{"resp_id", "Q5_10", "Q5_2", "Q5_1", "Q6_1", "Q5_9", "region"}

	got := MentionColumns(headers, "Q5")
	want := []string{"Q5_1", "Q5_2", "Q5_9", "Q5_10"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MentionColumns = %v, want %v", got, want)
	}

	if got := MentionColumns(headers, "Q7"); len(got) != 0 {
		t.Fatalf("unknown base returned %v", got)
	}
}
