// Package trackconfig loads tracker project configuration from an Excel
// workbook or a YAML project file and produces the validated track.Config
// the analysis pipeline runs from.
package trackconfig

import (
	"path/filepath"
	"strings"

	"gotrack/domain/track"
	apperr "gotrack/internal/errors"
)

// Load reads a tracker configuration, dispatching on the file extension.
func Load(path string) (*track.Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadWorkbook(path)
	case ".yaml", ".yml":
		return LoadProject(path)
	default:
		return nil, apperr.ConfigInvalid("configuration must be .xlsx or .yaml, got "+filepath.Ext(path), nil)
	}
}
