package track

import (
	"reflect"
	"testing"

	"gotrack/domain/survey"
)

func TestParseSpecTokens(t *testing.T) {
	tests := []struct {
		raw   string
		token string
		arg   string
		label string
		key   string
	}{
		{raw: "mean", token: "mean", key: "mean"},
		{raw: " TOP2_BOX ", token: "top2_box", key: "top2_box"},
		{raw: "top2_box=Satisfied", token: "top2_box", label: "Satisfied", key: "top2_box"},
		{raw: "range:9-10", token: "range", arg: "9-10", key: "range_9_10"},
		{raw: "box:Agree", token: "box", arg: "Agree", key: "box_agree"},
		{raw: "box:Very Satisfied", token: "box", arg: "Very Satisfied", key: "box_very_satisfied"},
		{raw: "category:Yes", token: "category", arg: "Yes", key: "category_yes"},
		{raw: "option:Q5_3", token: "option", arg: "Q5_3", key: "option_q5_3"},
		{raw: "range:9-10=Promoter zone", token: "range", arg: "9-10", label: "Promoter zone", key: "range_9_10"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseSpec(tt.raw)
			if got.Token != tt.token || got.Arg != tt.arg || got.Label != tt.label {
				t.Fatalf("ParseSpec(%q) = %+v", tt.raw, got)
			}
			if got.Key() != tt.key {
				t.Fatalf("Key() = %q, want %q", got.Key(), tt.key)
			}
		})
	}
}

func TestParseSpecsSplitsAndDefaults(t *testing.T) {
	specs := ParseSpecs("mean, top2_box=Satisfied ,range:9-10", survey.Rating)
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3", len(specs))
	}
	if specs[1].Label != "Satisfied" {
		t.Fatalf("label = %q", specs[1].Label)
	}

	defaults := []struct {
		qtype survey.QuestionType
		want  string
	}{
		{survey.Rating, TokenMean},
		{survey.Composite, TokenMean},
		{survey.Numeric, TokenMean},
		{survey.NPS, TokenNPSScore},
		{survey.SingleChoice, TokenAll},
		{survey.OpenEnd, TokenAll},
		{survey.MultiMention, TokenAuto},
	}
	for _, tt := range defaults {
		got := ParseSpecs("", tt.qtype)
		if len(got) != 1 || got[0].Token != tt.want {
			t.Fatalf("default for %s = %+v, want %s", tt.qtype, got, tt.want)
		}
	}
}

func TestSpecClassification(t *testing.T) {
	if !ParseSpec("distribution").IsDistribution() || !ParseSpec("count_distribution").IsDistribution() {
		t.Fatal("distribution tokens should be flagged")
	}
	if ParseSpec("mean").IsDistribution() {
		t.Fatal("mean is not a distribution")
	}
	for _, raw := range []string{"all", "auto", "top3"} {
		if !ParseSpec(raw).Expands() {
			t.Fatalf("%s should expand", raw)
		}
	}
	if ParseSpec("top_box").Expands() {
		t.Fatal("top_box is a single metric")
	}
}

func TestSpecDescriptionRoundTrip(t *testing.T) {
	spec := ParseSpec("box:Agree")
	if spec.Key() != "box_agree" {
		t.Fatalf("Key() = %q", spec.Key())
	}
	if spec.Description() != "Agree %" {
		t.Fatalf("Description() = %q, should reference the box name", spec.Description())
	}

	if d := ParseSpec("top2_box=Satisfied").Description(); d != "Satisfied" {
		t.Fatalf("custom label should win, got %q", d)
	}
	if d := ParseSpec("mean").Description(); d != "Mean" {
		t.Fatalf("Description(mean) = %q", d)
	}
}

func TestParseSpecsSkipsEmptyTokens(t *testing.T) {
	specs := ParseSpecs("mean,,top_box,", survey.Rating)
	want := []string{"mean", "top_box"}
	var got []string
	for _, s := range specs {
		got = append(got, s.Token)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}
