package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"marketnav/internal/etl"
)

// ── CSV File Source ─────────────────────────────────────────
// Reads a delimited text file. Cells stay text; empty cells are null.

type csvFileSource struct{}

func init() { etl.RegisterSource(&csvFileSource{}) }

func (s *csvFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "csv_file",
		Label: "CSV File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the CSV file"},
			{Key: "delimiter", Label: "Delimiter", Type: "string", Default: ",", Help: "Column delimiter (default: comma)"},
			{Key: "encoding", Label: "Encoding", Type: "select", Options: []string{"utf-8", "latin1", "windows-1252"}, Default: "utf-8"},
			{Key: "skipBadRows", Label: "Skip Bad Rows", Type: "select", Options: []string{"true", "false"}, Default: "false", Help: "Drop and count rows that fail to parse instead of failing"},
		},
	}
}

func (s *csvFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Table, error) {
	filePath := cfg.String("filePath", "")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}

	enc, err := lookupEncoding(cfg.String("encoding", "utf-8"))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(transform.NewReader(f, enc.NewDecoder()))
	if delim := cfg.String("delimiter", ","); len(delim) > 0 {
		reader.Comma = []rune(delim)[0]
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	return readCSV(ctx, reader, filePath, cfg.Bool("skipBadRows", false))
}

func readCSV(ctx context.Context, reader *csv.Reader, name string, skipBad bool) (*etl.Table, error) {
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty csv file")
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv header: %w", err)
	}

	t := etl.NewTable(name, normalizeHeader(header)...)
	width := len(header)

	for line := 2; ; line++ {
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil && len(row) > width {
			err = fmt.Errorf("line %d: expected %d fields, saw %d", line, width, len(row))
		}
		if err != nil {
			if skipBad {
				t.Skipped++
				continue
			}
			return nil, fmt.Errorf("parse csv: %w", err)
		}

		values := make([]any, width)
		for i, cell := range row {
			if cell = strings.TrimSpace(cell); cell != "" {
				values[i] = cell
			}
		}
		t.Append(values...)
	}
	return t, nil
}

// normalizeHeader names blank columns "Unnamed: i" and suffixes repeated
// names with ".1", ".2" so every column is addressable. A generated name
// never collides with a header that is already taken.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			next[h]++
			name = fmt.Sprintf("%s.%d", h, next[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// lookupEncoding resolves an encoding label. UTF-8 input has any BOM removed.
func lookupEncoding(label string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc, nil
}
