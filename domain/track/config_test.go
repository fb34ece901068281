package track

import (
	"strings"
	"testing"

	"gotrack/domain/core"
)

func validConfig() *Config {
	return &Config{
		Waves: []WaveConfig{
			{ID: "W1", Name: "Wave 1", DataFile: "data/wave1.csv"},
			{ID: "W2", Name: "Wave 2", DataFile: "data/wave2.csv", WeightVar: "wt_2"},
		},
		Tracked: []TrackedQuestion{{Code: "Q_SAT", Specs: "mean,top2_box"}},
		Banner: []BannerSegment{
			{Name: "Male", Column: "Gender", Values: []string{"Male", "M"}},
		},
		Settings: func() Settings {
			s := DefaultSettings()
			s.DefaultWeightVar = "weight"
			return s
		}(),
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"no waves", func(c *Config) { c.Waves = nil }, "no waves"},
		{"duplicate wave", func(c *Config) { c.Waves[1].ID = "W1" }, "duplicate wave"},
		{"missing data file", func(c *Config) { c.Waves[0].DataFile = " " }, "no data file"},
		{"unknown baseline", func(c *Config) { c.Settings.BaselineWave = "W9" }, "baseline wave"},
		{"bad alpha", func(c *Config) { c.Settings.Alpha = 1.5 }, "alpha"},
		{"segment without values", func(c *Config) { c.Banner[0].Values = nil }, "matches no values"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestBaselineDefaultsToFirstWave(t *testing.T) {
	c := validConfig()
	if got := c.Baseline(); got != "W1" {
		t.Errorf("Baseline() = %s, want W1", got)
	}
	c.Settings.BaselineWave = "W2"
	if got := c.Baseline(); got != "W2" {
		t.Errorf("Baseline() = %s, want W2", got)
	}
}

func TestWeightVarResolution(t *testing.T) {
	c := validConfig()
	if got := c.WeightVarFor("W1"); got != "weight" {
		t.Errorf("W1 weight var = %q, want project default", got)
	}
	if got := c.WeightVarFor("W2"); got != "wt_2" {
		t.Errorf("W2 weight var = %q, want per-wave override", got)
	}
}

func TestSegmentMatching(t *testing.T) {
	seg := BannerSegment{Name: "Male", Column: "Gender", Values: []string{"Male", "M"}}
	for _, v := range []string{"Male", "male", " MALE ", "m"} {
		if !seg.Matches(v) {
			t.Errorf("expected %q to match segment", v)
		}
	}
	if seg.Matches("Female") {
		t.Error("Female should not match the Male segment")
	}
}

func TestSegmentNamesIncludeTotalFirst(t *testing.T) {
	names := validConfig().SegmentNames()
	if len(names) != 2 || names[0] != core.TotalSegment || names[1] != "Male" {
		t.Errorf("SegmentNames() = %v, want [Total Male]", names)
	}
}
