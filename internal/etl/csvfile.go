package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// ── CSV File Destination ───────────────────────────────────
// Writes the flat-file backup of a table.

// CSVFileWriter implements Destination for a local CSV file.
// The target is the file path; it is always fully overwritten.
type CSVFileWriter struct{}

func (w *CSVFileWriter) Write(ctx context.Context, path string, t *Table, mode SyncMode) (int, error) {
	if mode == SyncAppend {
		return 0, fmt.Errorf("csv %s: %w", path, ErrAppendUnsupported)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	names := t.Schema.FieldNames()
	if err := cw.Write(names); err != nil {
		return 0, fmt.Errorf("csv: write header: %w", err)
	}

	written := 0
	row := make([]string, len(names))
	for i, rec := range t.Records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return written, err
			}
		}
		for j, name := range names {
			row[j] = FormatValue(rec.Data[name])
		}
		if err := cw.Write(row); err != nil {
			return written, fmt.Errorf("csv: write row %d: %w", i, err)
		}
		written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, fmt.Errorf("csv: flush: %w", err)
	}
	return written, f.Close()
}

// ReadCSVTable reads a file written by CSVFileWriter back into a table.
// Every column comes back as text; empty cells read as null.
func ReadCSVTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty csv file")
	}

	t := NewTable(filepath.Base(path), rows[0]...)
	for _, row := range rows[1:] {
		values := make([]any, len(row))
		for i, cell := range row {
			if cell != "" {
				values[i] = cell
			}
		}
		t.Append(values...)
	}
	return t, nil
}
