package trackconfig

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"gotrack/domain/core"
	"gotrack/domain/survey"
	apperr "gotrack/internal/errors"
)

// Structure workbook sheet names.
const (
	sheetOptions     = "Options"
	sheetQuestionMap = "QuestionMap"
)

// LoadStructure reads the survey-structure workbook: the Options sheet
// that maps response text to numeric codes and box categories, and the
// QuestionMap sheet that records which column each wave fielded a
// question under (a blank cell means not asked that wave). Either sheet
// may be absent; a workbook with neither is an error.
func LoadStructure(path string, waves []core.WaveID) (*survey.Structure, map[core.QuestionCode]map[core.WaveID]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, apperr.ConfigMissing(path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, apperr.ConfigInvalid("could not open structure workbook "+path, err)
	}
	defer f.Close()

	var structure *survey.Structure
	options, hasOptions := readSheet(f, sheetOptions)
	if hasOptions {
		parsed, err := parseOptions(options)
		if err != nil {
			return nil, nil, err
		}
		structure = survey.NewStructure(parsed)
	}

	var waveColumns map[core.QuestionCode]map[core.WaveID]string
	questionMap, hasMap := readSheet(f, sheetQuestionMap)
	if hasMap {
		if waveColumns, err = parseQuestionMap(questionMap, waves); err != nil {
			return nil, nil, err
		}
	}

	if !hasOptions && !hasMap {
		return nil, nil, apperr.ConfigInvalid("structure workbook "+path+" has neither an Options nor a QuestionMap sheet", nil)
	}

	log.Debug().
		Str("path", path).
		Int("options", structure.Len()).
		Int("mapped_questions", len(waveColumns)).
		Msg("structure workbook loaded")
	return structure, waveColumns, nil
}

func parseOptions(t *sheetTable) ([]survey.Option, error) {
	questionIdx := t.col("question", "code")
	if questionIdx < 0 {
		return nil, apperr.StructureColumn(sheetOptions, "question")
	}
	textIdx := t.col("text", "response_text")
	if textIdx < 0 {
		return nil, apperr.StructureColumn(sheetOptions, "text")
	}
	displayIdx := t.col("display_text", "display")
	weightIdx := t.col("index_weight", "code_value", "weight")
	boxIdx := t.col("box_category", "box")

	var options []survey.Option
	for _, row := range t.rows {
		question := cell(row, questionIdx)
		text := cell(row, textIdx)
		if question == "" || text == "" {
			continue
		}
		options = append(options, survey.Option{
			Question:    core.QuestionCode(question),
			Text:        text,
			DisplayText: cell(row, displayIdx),
			IndexWeight: parseFloatCell(cell(row, weightIdx)),
			BoxCategory: cell(row, boxIdx),
		})
	}
	return options, nil
}

// parseQuestionMap reads the per-wave column names. Any header that
// matches a configured wave ID (case-insensitive) is a wave column;
// other headers are annotation and ignored.
func parseQuestionMap(t *sheetTable, waves []core.WaveID) (map[core.QuestionCode]map[core.WaveID]string, error) {
	questionIdx := t.col("question", "code")
	if questionIdx < 0 {
		return nil, apperr.StructureColumn(sheetQuestionMap, "question")
	}

	waveIdx := make(map[core.WaveID]int, len(waves))
	for _, id := range waves {
		if idx, ok := t.columns[normalizeHeader(string(id))]; ok {
			waveIdx[id] = idx
		}
	}
	if len(waveIdx) == 0 {
		log.Warn().Msg("question map has no columns matching configured wave IDs")
	}

	out := make(map[core.QuestionCode]map[core.WaveID]string)
	for _, row := range t.rows {
		question := core.QuestionCode(cell(row, questionIdx))
		if question == "" {
			continue
		}
		columns := make(map[core.WaveID]string, len(waveIdx))
		for id, idx := range waveIdx {
			if column := cell(row, idx); column != "" {
				columns[id] = column
			}
		}
		out[question] = columns
	}
	return out, nil
}
