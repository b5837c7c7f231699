package sources

import (
	"context"
	"fmt"
	"os"

	"marketnav/internal/etl"
)

// ── JSON File Source ────────────────────────────────────────
// Reads a saved indicator API response from disk, for offline runs.

type jsonFileSource struct{}

func init() { etl.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "json_file",
		Label: "Indicator API Snapshot",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to a saved [metadata, records] JSON response"},
		},
	}
}

func (s *jsonFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Table, error) {
	filePath := cfg.String("filePath", "")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !looksLikeJSONArray(data) {
		return nil, fmt.Errorf("%s: not a JSON array", filePath)
	}
	return parseIndicatorPayload(filePath, data)
}
