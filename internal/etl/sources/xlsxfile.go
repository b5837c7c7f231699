package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"marketnav/internal/etl"
)

// ── XLSX File Source ────────────────────────────────────────
// Reads one worksheet of a spreadsheet. The header row names the columns.

type xlsxFileSource struct{}

func init() { etl.RegisterSource(&xlsxFileSource{}) }

func (s *xlsxFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "xlsx_file",
		Label: "Excel Workbook",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the .xlsx file"},
			{Key: "sheet", Label: "Sheet", Type: "string", Help: "Worksheet name (default: first sheet)"},
			{Key: "headerRow", Label: "Header Row", Type: "string", Default: "1", Help: "1-based row holding column names"},
		},
	}
}

func (s *xlsxFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Table, error) {
	filePath := cfg.String("filePath", "")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}
	headerRow, err := strconv.Atoi(cfg.String("headerRow", "1"))
	if err != nil || headerRow < 1 {
		return nil, fmt.Errorf("invalid headerRow %q", cfg.String("headerRow", ""))
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sheet := cfg.String("sheet", "")
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet %q has no header row %d", sheet, headerRow)
	}

	header := normalizeHeader(rows[headerRow-1])
	t := etl.NewTable(filePath, header...)
	for i, row := range rows[headerRow:] {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if isBlankRow(row) {
			continue
		}
		values := make([]any, len(header))
		for j := 0; j < len(header) && j < len(row); j++ {
			if cell := strings.TrimSpace(row[j]); cell != "" {
				values[j] = cell
			}
		}
		t.Append(values...)
	}
	return t, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
