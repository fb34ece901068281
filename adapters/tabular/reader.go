// Package tabular reads respondent and configuration tables from CSV and
// XLSX files into one neutral shape: named columns over string cells.
// Interpretation (numeric coercion, missing-value tokens, weights) happens
// downstream; this package only gets bytes into rows.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmpty marks a file with a header but no data rows (or nothing at all).
	ErrEmpty = errors.New("table has no data rows")
	// ErrUnsupported marks a file extension the reader cannot handle.
	ErrUnsupported = errors.New("unsupported file format")
)

// Row is one record keyed by trimmed header name.
type Row map[string]string

// Table is a fully loaded tabular file.
type Table struct {
	Headers []string
	Rows    []Row
}

// HasColumn reports whether the header row contains the exact name.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Column returns the named column's cells in row order, false when the
// column does not exist.
func (t *Table) Column(name string) ([]string, bool) {
	if !t.HasColumn(name) {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[name]
	}
	return out, true
}

// Reader loads one file, dispatching on its extension.
type Reader struct {
	filePath string
	fileType string
}

// NewReader creates a reader for the given path. The format is inferred
// from the extension; unsupported extensions surface on Read.
func NewReader(filePath string) *Reader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := ""
	switch ext {
	case ".csv":
		fileType = "csv"
	case ".xlsx", ".xlsm":
		fileType = "xlsx"
	}
	return &Reader{filePath: filePath, fileType: fileType}
}

// Read loads the file's primary table: the whole file for CSV, the first
// sheet for XLSX.
func (r *Reader) Read() (*Table, error) {
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, err
	}

	switch r.fileType {
	case "csv":
		return r.readCSV()
	case "xlsx":
		return r.readSheet("")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, r.filePath)
	}
}

// ReadSheet loads one named sheet of an XLSX workbook.
func (r *Reader) ReadSheet(sheet string) (*Table, error) {
	if r.fileType != "xlsx" {
		return nil, fmt.Errorf("%w: named sheets need an xlsx file, got %s", ErrUnsupported, r.filePath)
	}
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, err
	}
	return r.readSheet(sheet)
}

// Sheets lists an XLSX workbook's sheet names in file order.
func (r *Reader) Sheets() ([]string, error) {
	if r.fileType != "xlsx" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, r.filePath)
	}
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func (r *Reader) readCSV() (*Table, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("opening CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged exports happen; pad instead of failing
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV data: %w", err)
	}

	return processRows(records)
}

func (r *Reader) readSheet(sheet string) (*Table, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, ErrEmpty
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return processRows(rows)
}

// processRows turns raw cells into a Table: headers and cells trimmed,
// short rows padded with blanks, fully blank rows dropped. At least one
// data row must survive.
func processRows(records [][]string) (*Table, error) {
	if len(records) < 2 {
		return nil, ErrEmpty
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	table := &Table{Headers: headers}
	for _, record := range records[1:] {
		row := make(Row, len(headers))
		blank := true
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			if value != "" {
				blank = false
			}
			row[header] = value
		}
		if blank {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, ErrEmpty
	}
	return table, nil
}
