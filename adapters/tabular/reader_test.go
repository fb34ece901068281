package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wave.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeTempCSV(t, "resp_id, Q1 ,weight\n1,5,1.2\n2,4\n,,\n3,3,0.8\n")

	table, err := NewReader(path).Read()
	require.NoError(t, err)

	assert.Equal(t, []string{"resp_id", "Q1", "weight"}, table.Headers)
	// The fully blank row is dropped; the ragged row is padded.
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "4", table.Rows[1]["Q1"])
	assert.Equal(t, "", table.Rows[1]["weight"])
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "absent.csv")).Read()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestReadCSVHeaderOnly(t *testing.T) {
	path := writeTempCSV(t, "resp_id,Q1,weight\n")
	_, err := NewReader(path).Read()
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.sav")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := NewReader(path).Read()
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func writeTempWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Data"))
	rows := [][]interface{}{
		{"resp_id", "Q1", "weight"},
		{1, 5, 1.1},
		{2, 4, 0.9},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Data", cell, &row))
	}
	_, err := f.NewSheet("Extras")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Extras", "A1", &[]interface{}{"key", "value"}))
	require.NoError(t, f.SetSheetRow("Extras", "A2", &[]interface{}{"alpha", "0.1"}))

	path := filepath.Join(t.TempDir(), "wave.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadXLSXFirstSheet(t *testing.T) {
	path := writeTempWorkbook(t)

	table, err := NewReader(path).Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"resp_id", "Q1", "weight"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "5", table.Rows[0]["Q1"])
}

func TestReadXLSXNamedSheet(t *testing.T) {
	path := writeTempWorkbook(t)

	table, err := NewReader(path).ReadSheet("Extras")
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "alpha", table.Rows[0]["key"])

	sheets, err := NewReader(path).Sheets()
	require.NoError(t, err)
	assert.Contains(t, sheets, "Data")
	assert.Contains(t, sheets, "Extras")
}

func TestReadSheetOnCSVFails(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n")
	_, err := NewReader(path).ReadSheet("Data")
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestColumnLookup(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n3,4\n")
	table, err := NewReader(path).Read()
	require.NoError(t, err)

	col, ok := table.Column("b")
	require.True(t, ok)
	assert.Equal(t, []string{"2", "4"}, col)

	_, ok = table.Column("missing")
	assert.False(t, ok)
}
