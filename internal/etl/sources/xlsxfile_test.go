package sources_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"marketnav/internal/etl"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "lpi.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXFile_FirstSheet(t *testing.T) {
	path := writeWorkbook(t, "2023", [][]any{
		{"Economy", "Year", "LPI Score"},
		{"Germany", 2023, 4.1},
		{},
		{"Chad"},
	})

	tbl, err := readSource(t, "xlsx_file", etl.SourceConfig{"filePath": path})
	require.NoError(t, err)
	assert.Equal(t, []string{"Economy", "Year", "LPI Score"}, tbl.Schema.FieldNames())
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "4.1", tbl.Records[0].Data["LPI Score"])
	assert.Nil(t, tbl.Records[1].Data["Year"])
}

func TestXLSXFile_HeaderRowAndSheet(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"International LPI"},
		{"Economy", "Score"},
		{"Japan", 3.9},
	})

	tbl, err := readSource(t, "xlsx_file", etl.SourceConfig{"filePath": path, "sheet": "Sheet1", "headerRow": "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Economy", "Score"}, tbl.Schema.FieldNames())
	assert.Equal(t, 1, tbl.Len())

	_, err = readSource(t, "xlsx_file", etl.SourceConfig{"filePath": path, "sheet": "missing"})
	assert.Error(t, err)

	_, err = readSource(t, "xlsx_file", etl.SourceConfig{"filePath": path, "headerRow": "0"})
	assert.ErrorContains(t, err, "invalid headerRow")
}
