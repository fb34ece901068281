package errors

import (
	"fmt"
	"strings"
)

// AppError is a structured fatal error. Beyond the machine code and the
// problem statement it carries why the condition matters for a tracking
// run and what the user can do about it, so the CLI never surfaces a bare
// stack of wrapped strings.
type AppError struct {
	Code        string
	Problem     string
	Why         string
	Remediation string
	Cause       error
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Problem))
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	if e.Why != "" {
		b.WriteString("\n  why this matters: " + e.Why)
	}
	if e.Remediation != "" {
		b.WriteString("\n  what to do: " + e.Remediation)
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, problem, why, remediation string) *AppError {
	return &AppError{
		Code:        code,
		Problem:     problem,
		Why:         why,
		Remediation: remediation,
	}
}

// Wrap attaches a cause to an AppError built by New.
func (e *AppError) Wrap(cause error) *AppError {
	out := *e
	out.Cause = cause
	return &out
}

// Wrapf wraps an arbitrary error with a formatted problem statement,
// keeping an existing AppError's code when there is one.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	code := CodeInternalError
	if appErr, ok := err.(*AppError); ok {
		code = appErr.Code
	}
	return &AppError{
		Code:    code,
		Problem: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeWaveFileMissing    = "WAVE_FILE_MISSING"
	CodeWaveFileUnreadable = "WAVE_FILE_UNREADABLE"
	CodeWaveFileEmpty      = "WAVE_FILE_EMPTY"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeConfigMissing      = "CONFIG_MISSING"
	CodeStructureMissing   = "STRUCTURE_MISSING"
	CodeStructureColumn    = "STRUCTURE_COLUMN_MISSING"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeReportWrite        = "REPORT_WRITE_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Common error constructors

// WaveFileMissing reports a configured wave file that does not exist.
func WaveFileMissing(wave, path string) *AppError {
	return &AppError{
		Code:        CodeWaveFileMissing,
		Problem:     fmt.Sprintf("data file for wave %s not found: %s", wave, path),
		Why:         "trend analysis needs every configured wave; a missing wave would silently break all change-vs-previous comparisons",
		Remediation: "check the DataFile path on the Waves sheet, or remove the wave from the configuration",
	}
}

// WaveFileUnreadable reports a wave file that exists but cannot be parsed.
func WaveFileUnreadable(wave, path string, cause error) *AppError {
	return (&AppError{
		Code:        CodeWaveFileUnreadable,
		Problem:     fmt.Sprintf("data file for wave %s could not be read: %s", wave, path),
		Why:         "a partially read wave would understate bases and distort every statistic computed from it",
		Remediation: "confirm the file is a valid CSV or XLSX export and is not open in another program",
	}).Wrap(cause)
}

// WaveFileEmpty reports a wave file with a header but no respondent rows.
func WaveFileEmpty(wave, path string) *AppError {
	return &AppError{
		Code:        CodeWaveFileEmpty,
		Problem:     fmt.Sprintf("data file for wave %s has no respondent rows: %s", wave, path),
		Why:         "an empty wave cannot contribute any base, so every comparison involving it would be meaningless",
		Remediation: "export the wave's responses again, or drop the wave from the Waves sheet until fieldwork closes",
	}
}

// UnsupportedFormat reports a wave file extension the reader cannot handle.
func UnsupportedFormat(path string) *AppError {
	return &AppError{
		Code:        CodeUnsupportedFormat,
		Problem:     fmt.Sprintf("unsupported data file format: %s", path),
		Why:         "only tabular files can be mapped onto respondents x questions",
		Remediation: "supply the wave as .csv or .xlsx",
	}
}

// ConfigInvalid reports a configuration that parsed but fails validation.
func ConfigInvalid(problem string, cause error) *AppError {
	return (&AppError{
		Code:        CodeConfigInvalid,
		Problem:     problem,
		Why:         "an inconsistent configuration would produce a report that looks plausible but compares the wrong things",
		Remediation: "fix the named sheet or key in the tracker configuration and rerun",
	}).Wrap(cause)
}

// ConfigMissing reports an absent configuration file.
func ConfigMissing(path string, cause error) *AppError {
	return (&AppError{
		Code:        CodeConfigMissing,
		Problem:     fmt.Sprintf("configuration not found: %s", path),
		Why:         "the run is entirely driven by the tracker configuration; nothing can be computed without it",
		Remediation: "point --config at a tracker workbook (.xlsx) or project file (.yaml)",
	}).Wrap(cause)
}

// StructureMissing reports a box/category spec that needs an options table
// no one loaded.
func StructureMissing(question string) *AppError {
	return &AppError{
		Code:        CodeStructureMissing,
		Problem:     fmt.Sprintf("question %s uses a box: or category: spec but no survey structure is loaded", question),
		Why:         "named boxes are defined by the structure workbook's BoxCategory column, so the spec cannot be resolved without it",
		Remediation: "add the survey structure workbook to the configuration, or replace the spec with an explicit range:A-B",
	}
}

// StructureColumn reports a structure workbook sheet missing a column the
// loader depends on.
func StructureColumn(sheet, column string) *AppError {
	return &AppError{
		Code:        CodeStructureColumn,
		Problem:     fmt.Sprintf("structure sheet %s has no %s column", sheet, column),
		Why:         "option resolution and box expansion key off this column; without it every dependent metric would be silently empty",
		Remediation: fmt.Sprintf("add the %s column to the %s sheet of the structure workbook", column, sheet),
	}
}

// DatabaseError reports a run-store failure.
func DatabaseError(problem string, cause error) *AppError {
	return (&AppError{
		Code:        CodeDatabaseError,
		Problem:     problem,
		Why:         "run history feeds the dashboard and API; losing it breaks those surfaces but not the report itself",
		Remediation: "check DATABASE_URL and that the schema migration has run",
	}).Wrap(cause)
}

// ReportWriteFailed reports an output workbook that could not be written.
func ReportWriteFailed(path string, cause error) *AppError {
	return (&AppError{
		Code:        CodeReportWrite,
		Problem:     fmt.Sprintf("could not write report workbook: %s", path),
		Why:         "the computed crosstab only reaches analysts through this file",
		Remediation: "close the workbook if it is open and confirm the output directory is writable",
	}).Wrap(cause)
}

// Internal reports a defect-class failure.
func Internal(problem string, cause error) *AppError {
	return (&AppError{
		Code:    CodeInternalError,
		Problem: problem,
	}).Wrap(cause)
}
