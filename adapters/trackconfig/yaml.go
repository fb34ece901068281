package trackconfig

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"gotrack/domain/core"
	"gotrack/domain/survey"
	"gotrack/domain/track"
	apperr "gotrack/internal/errors"
)

// projectFile is the YAML shape of a tracker project. It carries the same
// information as the configuration workbook; teams that keep their
// tracker setup in version control use this form.
type projectFile struct {
	Project   string          `yaml:"project"`
	Waves     []waveEntry     `yaml:"waves"`
	Questions []questionEntry `yaml:"questions"`
	Banner    []bannerEntry   `yaml:"banner"`
	Settings  map[string]any  `yaml:"settings"`
	Options   []optionEntry   `yaml:"options"`
}

type waveEntry struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	File      string `yaml:"file"`
	WeightVar string `yaml:"weight_var"`
	Start     string `yaml:"fieldwork_start"`
	End       string `yaml:"fieldwork_end"`
}

type questionEntry struct {
	Code          string            `yaml:"question"`
	Text          string            `yaml:"text"`
	Type          string            `yaml:"type"`
	Specs         string            `yaml:"specs"`
	Label         string            `yaml:"label"`
	Section       string            `yaml:"section"`
	SortKey       *float64          `yaml:"sort_key"`
	ScaleMin      *float64          `yaml:"scale_min"`
	ScaleMax      *float64          `yaml:"scale_max"`
	Columns       map[string]string `yaml:"columns"`
	Sources       []string          `yaml:"sources"`
	Calc          string            `yaml:"calc"`
	SourceWeights []float64         `yaml:"source_weights"`
	Tracked       *bool             `yaml:"tracked"`
}

type bannerEntry struct {
	Segment string   `yaml:"segment"`
	Column  string   `yaml:"column"`
	Values  []string `yaml:"values"`
}

type optionEntry struct {
	Question    string   `yaml:"question"`
	Text        string   `yaml:"text"`
	DisplayText string   `yaml:"display_text"`
	IndexWeight *float64 `yaml:"index_weight"`
	BoxCategory string   `yaml:"box_category"`
}

// LoadProject reads a YAML tracker project file. Relative paths resolve
// against the project file's directory. Options may be declared inline
// or via a structure_file setting pointing at a structure workbook.
func LoadProject(path string) (*track.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ConfigMissing(path, err)
		}
		return nil, apperr.ConfigInvalid("could not read project file "+path, err)
	}

	var project projectFile
	if err := yaml.Unmarshal(data, &project); err != nil {
		return nil, apperr.ConfigInvalid("project file "+path+" is not valid YAML", err)
	}

	dir := filepath.Dir(path)
	cfg := &track.Config{
		Settings:  track.DefaultSettings(),
		Questions: make(map[core.QuestionCode]survey.Question),
	}
	cfg.Settings.ProjectName = project.Project

	for _, w := range project.Waves {
		cfg.Waves = append(cfg.Waves, track.WaveConfig{
			ID:        core.WaveID(strings.TrimSpace(w.ID)),
			Name:      w.Name,
			DataFile:  resolvePath(dir, w.File),
			WeightVar: w.WeightVar,
			Fieldwork: core.FieldworkPeriod{
				Start: parseDate(strings.TrimSpace(w.Start)),
				End:   parseDate(strings.TrimSpace(w.End)),
			},
		})
	}

	for _, entry := range project.Questions {
		if err := addQuestionEntry(cfg, entry); err != nil {
			return nil, err
		}
	}

	for _, b := range project.Banner {
		cfg.Banner = append(cfg.Banner, track.BannerSegment{
			Name:   core.SegmentName(strings.TrimSpace(b.Segment)),
			Column: b.Column,
			Values: b.Values,
		})
	}

	// A project_name settings key wins over the top-level shorthand.
	structureFile, err := applySettings(&cfg.Settings, project.Settings)
	if err != nil {
		return nil, apperr.ConfigInvalid("settings block could not be decoded", err)
	}

	if len(project.Options) > 0 {
		options := make([]survey.Option, 0, len(project.Options))
		for _, o := range project.Options {
			options = append(options, survey.Option{
				Question:    core.QuestionCode(o.Question),
				Text:        o.Text,
				DisplayText: o.DisplayText,
				IndexWeight: o.IndexWeight,
				BoxCategory: o.BoxCategory,
			})
		}
		cfg.Structure = survey.NewStructure(options)
		if structureFile != "" {
			log.Warn().Msg("inline options override the structure_file setting")
			structureFile = ""
		}
	}
	if structureFile != "" {
		if err := attachStructure(cfg, resolvePath(dir, structureFile)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperr.ConfigInvalid(err.Error(), err)
	}

	log.Debug().
		Str("path", path).
		Int("waves", len(cfg.Waves)).
		Int("tracked", len(cfg.Tracked)).
		Msg("project file loaded")
	return cfg, nil
}

func addQuestionEntry(cfg *track.Config, entry questionEntry) error {
	code := core.QuestionCode(strings.TrimSpace(entry.Code))
	if code == "" {
		return apperr.ConfigInvalid("question entry with no question code", nil)
	}

	qtype := survey.Rating
	if entry.Type != "" {
		parsed, err := survey.ParseQuestionType(entry.Type)
		if err != nil {
			return apperr.ConfigInvalid("question "+string(code)+": "+err.Error(), err)
		}
		qtype = parsed
	}

	q := survey.Question{
		Code:     code,
		Text:     entry.Text,
		Type:     qtype,
		ScaleMin: entry.ScaleMin,
		ScaleMax: entry.ScaleMax,
	}

	switch {
	case qtype == survey.Composite:
		for _, src := range entry.Sources {
			q.SourceQuestions = append(q.SourceQuestions, core.QuestionCode(strings.TrimSpace(src)))
		}
		calc, err := survey.ParseCompositeCalc(entry.Calc)
		if err != nil {
			return apperr.ConfigInvalid("question "+string(code)+": "+err.Error(), err)
		}
		q.Calc = calc
		q.SourceWeights = entry.SourceWeights
	case len(entry.Columns) > 0:
		q.WaveColumns = make(map[core.WaveID]string, len(entry.Columns))
		for wave, column := range entry.Columns {
			if strings.TrimSpace(column) != "" {
				q.WaveColumns[core.WaveID(strings.TrimSpace(wave))] = strings.TrimSpace(column)
			}
		}
	default:
		q.WaveColumns = identityColumns(code, cfg.Waves)
	}
	cfg.Questions[code] = q

	if entry.Tracked != nil && !*entry.Tracked {
		return nil
	}
	cfg.Tracked = append(cfg.Tracked, track.TrackedQuestion{
		Code:    code,
		Specs:   entry.Specs,
		Label:   entry.Label,
		Section: entry.Section,
		SortKey: entry.SortKey,
	})
	return nil
}
