package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketnav/internal/etl"
	"marketnav/internal/metrics"
)

func TestRecorder_WriteFile(t *testing.T) {
	rec := metrics.New()
	rec.Observe(&etl.RunResult{
		Status:         etl.StatusSuccess,
		StartedAt:      time.Unix(1700000000, 0),
		Duration:       1500 * time.Millisecond,
		RowsIntegrated: 2,
		RowsWritten:    map[string]int{"store": 2},
		Datasets: []etl.DatasetStats{
			{Name: "fdi", Degraded: true},
			{Name: "ntm", Rows: 10, Skipped: 3},
		},
	})

	path := filepath.Join(t.TempDir(), "textfile", "marketnav.prom")
	require.NoError(t, rec.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	for _, want := range []string{
		`marketnav_dataset_degraded{dataset="fdi"} 1`,
		`marketnav_dataset_skipped_rows{dataset="ntm"} 3`,
		`marketnav_rows_written{target="store"} 2`,
		"marketnav_run_duration_seconds 1.5",
		"marketnav_run_success 1",
		"marketnav_run_timestamp_seconds 1.7e+09",
	} {
		assert.Contains(t, out, want)
	}

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 8)
}

func TestRecorder_FailedRun(t *testing.T) {
	rec := metrics.New()
	rec.Observe(&etl.RunResult{Status: etl.StatusError})

	path := filepath.Join(t.TempDir(), "m.prom")
	require.NoError(t, rec.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "marketnav_run_success 0")
}
