// Package metrics exposes run statistics in the Prometheus text format so a
// node-exporter textfile collector can scrape batch runs.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"marketnav/internal/etl"
)

const namespace = "marketnav"

// Recorder holds the gauges describing the most recent run.
type Recorder struct {
	reg *prometheus.Registry

	datasetRows     *prometheus.GaugeVec
	datasetSkipped  *prometheus.GaugeVec
	datasetDegraded *prometheus.GaugeVec
	rowsWritten     *prometheus.GaugeVec
	rowsIntegrated  prometheus.Gauge
	duration        prometheus.Gauge
	success         prometheus.Gauge
	lastRun         prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		datasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dataset_rows",
			Help: "Rows extracted per dataset in the last run.",
		}, []string{"dataset"}),
		datasetSkipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dataset_skipped_rows",
			Help: "Malformed input rows dropped per dataset in the last run.",
		}, []string{"dataset"}),
		datasetDegraded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dataset_degraded",
			Help: "1 when the dataset was replaced by an empty table.",
		}, []string{"dataset"}),
		rowsWritten: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "rows_written",
			Help: "Rows written per output target in the last run.",
		}, []string{"target"}),
		rowsIntegrated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "rows_integrated",
			Help: "Rows in the integrated table of the last run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_success",
			Help: "1 when the last run succeeded.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_timestamp_seconds",
			Help: "Start time of the last run.",
		}),
	}
	r.reg.MustRegister(
		r.datasetRows, r.datasetSkipped, r.datasetDegraded, r.rowsWritten,
		r.rowsIntegrated, r.duration, r.success, r.lastRun,
	)
	return r
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Observe records a run result.
func (r *Recorder) Observe(res *etl.RunResult) {
	for _, d := range res.Datasets {
		r.datasetRows.WithLabelValues(d.Name).Set(float64(d.Rows))
		r.datasetSkipped.WithLabelValues(d.Name).Set(float64(d.Skipped))
		degraded := 0.0
		if d.Degraded {
			degraded = 1
		}
		r.datasetDegraded.WithLabelValues(d.Name).Set(degraded)
	}
	for target, n := range res.RowsWritten {
		r.rowsWritten.WithLabelValues(target).Set(float64(n))
	}
	r.rowsIntegrated.Set(float64(res.RowsIntegrated))
	r.duration.Set(res.Duration.Seconds())
	r.lastRun.Set(float64(res.StartedAt.Unix()))
	if res.Status == etl.StatusSuccess {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
}

// WriteFile writes the registry in text format. The write is atomic.
func (r *Recorder) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
