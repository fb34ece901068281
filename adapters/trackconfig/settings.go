package trackconfig

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"

	"gotrack/domain/core"
	"gotrack/domain/track"
)

// settingsValues mirrors the recognized Settings keys. Every field is a
// pointer so an absent key keeps the documented default. ConfidenceLevel
// is the analyst-facing alternative to alpha; when both appear, alpha
// wins.
type settingsValues struct {
	ProjectName      *string  `mapstructure:"project_name"`
	BaselineWave     *string  `mapstructure:"baseline_wave"`
	Alpha            *float64 `mapstructure:"alpha"`
	ConfidenceLevel  *float64 `mapstructure:"confidence_level"`
	MinimumBase      *float64 `mapstructure:"minimum_base"`
	DecimalSeparator *string  `mapstructure:"decimal_separator"`
	ShowSignificance *bool    `mapstructure:"show_significance"`
	OutputFile       *string  `mapstructure:"output_file"`
	DefaultWeightVar *string  `mapstructure:"default_weight_var"`
	StructureFile    *string  `mapstructure:"structure_file"`
}

// applySettings overlays raw key/value settings onto the defaults. Values
// arrive as strings from workbook cells or as typed YAML scalars; weak
// decoding accepts both. Unknown keys are logged and skipped rather than
// failing the load, so an older binary tolerates a newer workbook.
func applySettings(settings *track.Settings, raw map[string]any) (structureFile string, err error) {
	if len(raw) == 0 {
		return "", nil
	}

	normalized := make(map[string]any, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		key = strings.ReplaceAll(key, " ", "_")
		if s, ok := v.(string); ok {
			// Workbook cells spell booleans the survey way.
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "yes":
				v = "true"
			case "no":
				v = "false"
			default:
				v = strings.TrimSpace(s)
			}
		}
		normalized[key] = v
	}

	var values settingsValues
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &values,
		WeaklyTypedInput: true,
		Metadata:         &md,
	})
	if err != nil {
		return "", err
	}
	if err := dec.Decode(normalized); err != nil {
		return "", fmt.Errorf("settings: %w", err)
	}
	if len(md.Unused) > 0 {
		log.Warn().Strs("keys", md.Unused).Msg("unrecognized settings keys ignored")
	}

	if values.ProjectName != nil {
		settings.ProjectName = *values.ProjectName
	}
	if values.BaselineWave != nil {
		settings.BaselineWave = core.WaveID(strings.TrimSpace(*values.BaselineWave))
	}
	if values.ConfidenceLevel != nil {
		settings.Alpha = 1 - *values.ConfidenceLevel
	}
	if values.Alpha != nil {
		if values.ConfidenceLevel != nil {
			log.Warn().Msg("both alpha and confidence_level set, using alpha")
		}
		settings.Alpha = *values.Alpha
	}
	if values.MinimumBase != nil {
		settings.MinimumBase = *values.MinimumBase
	}
	if values.DecimalSeparator != nil {
		settings.DecimalSeparator = *values.DecimalSeparator
	}
	if values.ShowSignificance != nil {
		settings.ShowSignificance = *values.ShowSignificance
	}
	if values.OutputFile != nil {
		settings.OutputFile = *values.OutputFile
	}
	if values.DefaultWeightVar != nil {
		settings.DefaultWeightVar = *values.DefaultWeightVar
	}
	if values.StructureFile != nil {
		structureFile = strings.TrimSpace(*values.StructureFile)
	}
	return structureFile, nil
}
