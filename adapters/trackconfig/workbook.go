package trackconfig

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"gotrack/domain/core"
	"gotrack/domain/survey"
	"gotrack/domain/track"
	apperr "gotrack/internal/errors"
)

// Sheet names of the tracker configuration workbook. Lookup is
// case-insensitive; these are the canonical spellings.
const (
	sheetWaves     = "Waves"
	sheetQuestions = "Questions"
	sheetBanner    = "Banner"
	sheetSettings  = "Settings"
)

// LoadWorkbook reads a tracker configuration workbook: the Waves,
// Questions, Banner, and Settings sheets, plus the survey-structure
// workbook the Settings sheet may point at. Relative file paths resolve
// against the workbook's directory.
func LoadWorkbook(path string) (*track.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperr.ConfigMissing(path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperr.ConfigInvalid("could not open configuration workbook "+path, err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	settings := track.DefaultSettings()
	cfg := &track.Config{
		Settings:  settings,
		Questions: make(map[core.QuestionCode]survey.Question),
	}

	waves, ok := readSheet(f, sheetWaves)
	if !ok {
		return nil, apperr.ConfigInvalid("workbook has no Waves sheet", nil)
	}
	if cfg.Waves, err = parseWaves(waves, dir); err != nil {
		return nil, err
	}

	questions, ok := readSheet(f, sheetQuestions)
	if !ok {
		return nil, apperr.ConfigInvalid("workbook has no Questions sheet", nil)
	}
	if err := parseQuestions(questions, cfg); err != nil {
		return nil, err
	}

	if banner, ok := readSheet(f, sheetBanner); ok {
		cfg.Banner = parseBanner(banner)
	}

	if settingsSheet, ok := readSheet(f, sheetSettings); ok {
		raw := make(map[string]any)
		keyIdx, valIdx := settingsSheet.col("key", "setting"), settingsSheet.col("value")
		for _, row := range settingsSheet.rows {
			key := cell(row, keyIdx)
			if key == "" {
				continue
			}
			raw[key] = cell(row, valIdx)
		}
		structureFile, err := applySettings(&cfg.Settings, raw)
		if err != nil {
			return nil, apperr.ConfigInvalid("Settings sheet could not be decoded", err)
		}
		if structureFile != "" {
			if err := attachStructure(cfg, resolvePath(dir, structureFile)); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperr.ConfigInvalid(err.Error(), err)
	}

	log.Debug().
		Str("path", path).
		Int("waves", len(cfg.Waves)).
		Int("questions", len(cfg.Questions)).
		Int("tracked", len(cfg.Tracked)).
		Msg("configuration workbook loaded")
	return cfg, nil
}

func parseWaves(t *sheetTable, dir string) ([]track.WaveConfig, error) {
	idIdx := t.col("wave", "wave_id", "id")
	if idIdx < 0 {
		return nil, apperr.ConfigInvalid("Waves sheet has no wave column", nil)
	}
	nameIdx := t.col("name")
	fileIdx := t.col("data_file", "file")
	weightIdx := t.col("weight_var", "weight")
	startIdx := t.col("fieldwork_start", "start")
	endIdx := t.col("fieldwork_end", "end")

	var waves []track.WaveConfig
	for _, row := range t.rows {
		id := cell(row, idIdx)
		if id == "" {
			continue
		}
		waves = append(waves, track.WaveConfig{
			ID:        core.WaveID(id),
			Name:      cell(row, nameIdx),
			DataFile:  resolvePath(dir, cell(row, fileIdx)),
			WeightVar: cell(row, weightIdx),
			Fieldwork: core.FieldworkPeriod{
				Start: parseDate(cell(row, startIdx)),
				End:   parseDate(cell(row, endIdx)),
			},
		})
	}
	return waves, nil
}

// parseQuestions fills both halves of the configuration from one sheet:
// the survey metadata every question needs and the tracking presentation
// of the rows marked tracked (the default). Untracked rows exist to
// declare composite sources and banner-only variables.
func parseQuestions(t *sheetTable, cfg *track.Config) error {
	codeIdx := t.col("question", "code")
	if codeIdx < 0 {
		return apperr.ConfigInvalid("Questions sheet has no question column", nil)
	}
	textIdx := t.col("text", "question_text")
	typeIdx := t.col("type")
	specsIdx := t.col("specs", "metrics")
	labelIdx := t.col("label")
	sectionIdx := t.col("section")
	sortIdx := t.col("sort_key", "sort")
	minIdx := t.col("scale_min")
	maxIdx := t.col("scale_max")
	sourcesIdx := t.col("sources", "source_questions")
	calcIdx := t.col("calc", "calculation")
	weightsIdx := t.col("source_weights")
	trackedIdx := t.col("tracked", "track")

	for _, row := range t.rows {
		code := core.QuestionCode(cell(row, codeIdx))
		if code == "" {
			continue
		}

		qtype := survey.Rating
		if raw := cell(row, typeIdx); raw != "" {
			parsed, err := survey.ParseQuestionType(raw)
			if err != nil {
				return apperr.ConfigInvalid("question "+string(code)+": "+err.Error(), err)
			}
			qtype = parsed
		}

		q := survey.Question{
			Code:     code,
			Text:     cell(row, textIdx),
			Type:     qtype,
			ScaleMin: parseFloatCell(cell(row, minIdx)),
			ScaleMax: parseFloatCell(cell(row, maxIdx)),
		}

		if qtype == survey.Composite {
			q.SourceQuestions = splitCodes(cell(row, sourcesIdx))
			calc, err := survey.ParseCompositeCalc(cell(row, calcIdx))
			if err != nil {
				return apperr.ConfigInvalid("question "+string(code)+": "+err.Error(), err)
			}
			q.Calc = calc
			q.SourceWeights = splitFloats(cell(row, weightsIdx))
		} else {
			// Until the structure workbook overrides it, every wave
			// fields the question under its own code.
			q.WaveColumns = identityColumns(code, cfg.Waves)
		}
		cfg.Questions[code] = q

		if tracked := cell(row, trackedIdx); tracked != "" && !parseBool(tracked) {
			continue
		}
		cfg.Tracked = append(cfg.Tracked, track.TrackedQuestion{
			Code:    code,
			Specs:   cell(row, specsIdx),
			Label:   cell(row, labelIdx),
			Section: cell(row, sectionIdx),
			SortKey: parseFloatCell(cell(row, sortIdx)),
		})
	}
	return nil
}

func parseBanner(t *sheetTable) []track.BannerSegment {
	nameIdx := t.col("segment", "name")
	columnIdx := t.col("column", "variable")
	valuesIdx := t.col("values", "value")

	var banner []track.BannerSegment
	for _, row := range t.rows {
		name := cell(row, nameIdx)
		if name == "" {
			continue
		}
		banner = append(banner, track.BannerSegment{
			Name:   core.SegmentName(name),
			Column: cell(row, columnIdx),
			Values: splitValues(cell(row, valuesIdx)),
		})
	}
	return banner
}

// attachStructure loads the structure workbook and overlays its
// question-map columns onto the configured questions.
func attachStructure(cfg *track.Config, path string) error {
	structure, waveColumns, err := LoadStructure(path, cfg.WaveIDs())
	if err != nil {
		return err
	}
	cfg.Structure = structure
	for code, columns := range waveColumns {
		q, ok := cfg.Questions[code]
		if !ok {
			log.Warn().Str("question", string(code)).Msg("question map row for undeclared question ignored")
			continue
		}
		q.WaveColumns = columns
		cfg.Questions[code] = q
	}
	return nil
}

func identityColumns(code core.QuestionCode, waves []track.WaveConfig) map[core.WaveID]string {
	columns := make(map[core.WaveID]string, len(waves))
	for _, w := range waves {
		columns[w.ID] = string(code)
	}
	return columns
}

// sheetTable is one worksheet with its header row indexed for
// alias-tolerant column lookup.
type sheetTable struct {
	columns map[string]int
	rows    [][]string
}

// readSheet fetches a worksheet by case-insensitive name. The second
// return is false when the workbook has no such sheet or it is empty.
func readSheet(f *excelize.File, name string) (*sheetTable, bool) {
	actual := ""
	for _, s := range f.GetSheetList() {
		if strings.EqualFold(s, name) {
			actual = s
			break
		}
	}
	if actual == "" {
		return nil, false
	}
	rows, err := f.GetRows(actual)
	if err != nil || len(rows) == 0 {
		return nil, false
	}

	t := &sheetTable{columns: make(map[string]int, len(rows[0]))}
	for i, h := range rows[0] {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := t.columns[key]; !dup {
			t.columns[key] = i
		}
	}
	t.rows = rows[1:]
	return t, true
}

func (t *sheetTable) col(names ...string) int {
	for _, n := range names {
		if idx, ok := t.columns[n]; ok {
			return idx
		}
	}
	return -1
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func parseFloatCell(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		log.Warn().Str("value", s).Msg("numeric configuration cell ignored")
		return nil
	}
	return &v
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no", "false", "0", "n":
		return false
	}
	return true
}

// splitValues splits a banner value list. Pipe is the primary separator
// so values may contain commas; comma works for the simple case.
func splitValues(s string) []string {
	sep := ","
	if strings.Contains(s, "|") {
		sep = "|"
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitCodes(s string) []core.QuestionCode {
	var out []core.QuestionCode
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, core.QuestionCode(trimmed))
		}
	}
	return out
}

func splitFloats(s string) []float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			log.Warn().Str("value", trimmed).Msg("source weight ignored, not numeric")
			continue
		}
		out = append(out, v)
	}
	return out
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "01-02-06", "1/2/2006", "1/2/06"}

func parseDate(s string) core.Timestamp {
	if s == "" {
		return core.Timestamp{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewTimestamp(t)
		}
	}
	log.Warn().Str("value", s).Msg("fieldwork date not recognized, left unset")
	return core.Timestamp{}
}
