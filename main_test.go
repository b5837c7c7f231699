package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketnav/internal/etl"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		configPath = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func brokenConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketnav.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: oracle\n"), 0644))
	return path
}

func TestSourcesIgnoresPipelineConfig(t *testing.T) {
	out, err := execute(t, "sources", "--config", brokenConfig(t))
	require.NoError(t, err)

	var specs []etl.SourceSpec
	require.NoError(t, json.Unmarshal([]byte(out), &specs))
	types := make([]string, len(specs))
	for i, s := range specs {
		types[i] = s.Type
	}
	assert.Equal(t, []string{"csv_file", "http", "json_file", "xlsx_file"}, types)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", brokenConfig(t))
	assert.ErrorContains(t, err, "invalid config")
}
