package track

import (
	"fmt"
	"strings"

	"gotrack/domain/core"
	"gotrack/domain/survey"
)

// WaveConfig describes one configured wave: where its respondent file
// lives and which column carries the sampling weight. WeightVar empty
// means "use the project default".
type WaveConfig struct {
	ID        core.WaveID
	Name      string
	DataFile  string
	Fieldwork core.FieldworkPeriod
	WeightVar string
}

// TrackedQuestion selects a question for the tracking report and carries
// its report presentation: the tracking-spec string (the metric
// mini-language), an optional label override, a report section, and an
// optional explicit sort key.
type TrackedQuestion struct {
	Code    core.QuestionCode
	Specs   string
	Label   string
	Section string
	SortKey *float64
}

// BannerSegment is one report column group: respondents whose value in
// Column matches any of Values. Matching is case-insensitive on trimmed
// text.
type BannerSegment struct {
	Name   core.SegmentName
	Column string
	Values []string
}

// Matches reports whether a respondent's raw value falls in the segment.
func (b BannerSegment) Matches(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, want := range b.Values {
		if v == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// Settings are the project-wide analysis knobs.
type Settings struct {
	ProjectName      string
	BaselineWave     core.WaveID
	Alpha            float64
	MinimumBase      float64
	DecimalSeparator string
	ShowSignificance bool
	OutputFile       string
	// DefaultWeightVar applies to waves with no per-wave WeightVar.
	DefaultWeightVar string
}

// DefaultSettings returns the documented defaults. Every knob a loader
// leaves unset gets exactly these values.
func DefaultSettings() Settings {
	return Settings{
		Alpha:            0.05,
		MinimumBase:      30,
		DecimalSeparator: ".",
		ShowSignificance: true,
		OutputFile:       "tracking_report.xlsx",
	}
}

// Config is the full analysis configuration for one tracking project.
type Config struct {
	Waves     []WaveConfig
	Tracked   []TrackedQuestion
	Banner    []BannerSegment
	Settings  Settings
	Questions map[core.QuestionCode]survey.Question
	Structure *survey.Structure
}

// WaveIDs returns wave identifiers in configured (temporal) order.
func (c *Config) WaveIDs() []core.WaveID {
	ids := make([]core.WaveID, len(c.Waves))
	for i, w := range c.Waves {
		ids[i] = w.ID
	}
	return ids
}

// WaveByID returns the wave configuration, or false when unknown.
func (c *Config) WaveByID(id core.WaveID) (WaveConfig, bool) {
	for _, w := range c.Waves {
		if w.ID == id {
			return w, true
		}
	}
	return WaveConfig{}, false
}

// Baseline returns the configured baseline wave, defaulting to the first
// configured wave.
func (c *Config) Baseline() core.WaveID {
	if c.Settings.BaselineWave != "" {
		return c.Settings.BaselineWave
	}
	if len(c.Waves) > 0 {
		return c.Waves[0].ID
	}
	return ""
}

// WeightVarFor resolves the weight-variable name for a wave: per-wave
// override first, project default second, "" when neither is set.
func (c *Config) WeightVarFor(id core.WaveID) string {
	if w, ok := c.WaveByID(id); ok && strings.TrimSpace(w.WeightVar) != "" {
		return strings.TrimSpace(w.WeightVar)
	}
	return strings.TrimSpace(c.Settings.DefaultWeightVar)
}

// SegmentNames returns the banner segment names prefixed by the implicit
// Total segment.
func (c *Config) SegmentNames() []core.SegmentName {
	names := make([]core.SegmentName, 0, len(c.Banner)+1)
	names = append(names, core.TotalSegment)
	for _, b := range c.Banner {
		if b.Name == core.TotalSegment {
			continue
		}
		names = append(names, b.Name)
	}
	return names
}

// SegmentByName returns the banner definition for a name; the Total
// segment has no definition and returns false.
func (c *Config) SegmentByName(name core.SegmentName) (BannerSegment, bool) {
	for _, b := range c.Banner {
		if b.Name == name {
			return b, true
		}
	}
	return BannerSegment{}, false
}

// Validate checks cross-field invariants a loader cannot catch row by row.
func (c *Config) Validate() error {
	if len(c.Waves) == 0 {
		return fmt.Errorf("configuration defines no waves")
	}
	seen := make(map[core.WaveID]bool, len(c.Waves))
	for _, w := range c.Waves {
		if strings.TrimSpace(string(w.ID)) == "" {
			return fmt.Errorf("wave with empty ID")
		}
		if seen[w.ID] {
			return fmt.Errorf("duplicate wave ID %s", w.ID)
		}
		seen[w.ID] = true
		if strings.TrimSpace(w.DataFile) == "" {
			return fmt.Errorf("wave %s has no data file", w.ID)
		}
	}
	if c.Settings.BaselineWave != "" && !seen[c.Settings.BaselineWave] {
		return fmt.Errorf("baseline wave %s is not a configured wave", c.Settings.BaselineWave)
	}
	if c.Settings.Alpha <= 0 || c.Settings.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0,1), got %v", c.Settings.Alpha)
	}
	if c.Settings.MinimumBase < 0 {
		return fmt.Errorf("minimum base must be >= 0, got %v", c.Settings.MinimumBase)
	}
	for _, tq := range c.Tracked {
		if strings.TrimSpace(string(tq.Code)) == "" {
			return fmt.Errorf("tracked question with empty code")
		}
	}
	for _, b := range c.Banner {
		if strings.TrimSpace(string(b.Name)) == "" {
			return fmt.Errorf("banner segment with empty name")
		}
		if strings.TrimSpace(b.Column) == "" {
			return fmt.Errorf("banner segment %s has no break variable", b.Name)
		}
		if len(b.Values) == 0 {
			return fmt.Errorf("banner segment %s matches no values", b.Name)
		}
	}
	for code, q := range c.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %s: %w", code, err)
		}
	}
	return nil
}
