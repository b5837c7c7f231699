package etl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ── Plan ───────────────────────────────────────────────────
// Orchestrates: every source.Read → one transform → each destination.Write.
//
// Pattern: Airbyte sync / Singer tap→target pipeline.

// Binding ties a dataset name to a registered source and its config.
type Binding struct {
	Name       string       `json:"name"`
	SourceType string       `json:"sourceType"`
	Config     SourceConfig `json:"config"`
	// Optional bindings degrade to an empty table when the read fails.
	Optional bool `json:"optional"`
}

// Target is one output of the load stage.
type Target struct {
	Name   string      `json:"name"`
	Dest   Destination `json:"-"`
	Target string      `json:"target"` // table name, file path, collection
}

// Datasets holds the extracted tables keyed by binding name.
type Datasets map[string]*Table

// TransformFunc turns the extracted datasets into the integrated table.
type TransformFunc func(ctx context.Context, ds Datasets) (*Table, error)

// Plan is a complete pipeline definition.
type Plan struct {
	Bindings  []Binding
	Transform TransformFunc
	Targets   []Target
}

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DatasetStats describes one extracted dataset.
type DatasetStats struct {
	Name     string `json:"name"`
	Rows     int    `json:"rows"`
	Skipped  int    `json:"skipped"`
	Degraded bool   `json:"degraded"`
	Error    string `json:"error,omitempty"`
}

// RunResult is the outcome of running a plan.
type RunResult struct {
	Status         string         `json:"status"` // "success" | "error"
	Stage          string         `json:"stage"`  // last stage reached
	Datasets       []DatasetStats `json:"datasets"`
	RowsIntegrated int            `json:"rowsIntegrated"`
	RowsWritten    map[string]int `json:"rowsWritten"`
	StartedAt      time.Time      `json:"startedAt"`
	Duration       time.Duration  `json:"duration"`
	Error          string         `json:"error,omitempty"`
}

// Dataset returns the stats for the named dataset.
func (r *RunResult) Dataset(name string) (DatasetStats, bool) {
	for _, d := range r.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return DatasetStats{}, false
}

// Pipeline stages, also used as event names by callers.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
)

// ── Engine ─────────────────────────────────────────────────

// StageHook is notified when a stage finishes.
type StageHook func(stage string, result *RunResult)

// Engine runs plans sequentially: no stage starts before the previous ends.
type Engine struct {
	Logger  *zap.Logger
	OnStage StageHook
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) stageDone(stage string, result *RunResult) {
	result.Stage = stage
	if e.OnStage != nil {
		e.OnStage(stage, result)
	}
}

// Run executes a plan end-to-end. On failure the partially filled result is
// returned alongside the error.
func (e *Engine) Run(ctx context.Context, plan *Plan) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{StartedAt: start, RowsWritten: map[string]int{}}
	fail := func(err error) (*RunResult, error) {
		result.Status = StatusError
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result, err
	}

	// 1. Extract every dataset in isolation.
	datasets, err := e.Extract(ctx, plan.Bindings, result)
	if err != nil {
		return fail(fmt.Errorf("extract: %w", err))
	}
	e.stageDone(StageExtract, result)

	// 2. Transform into the integrated table.
	if plan.Transform == nil {
		return fail(fmt.Errorf("transform: plan has no transform"))
	}
	integrated, err := plan.Transform(ctx, datasets)
	if err != nil {
		return fail(fmt.Errorf("transform: %w", err))
	}
	result.RowsIntegrated = integrated.Len()
	e.logger().Info("[etl] integrated table ready",
		zap.String("table", integrated.Name),
		zap.Int("rows", integrated.Len()),
		zap.Int("columns", len(integrated.Schema.Fields)))
	e.stageDone(StageTransform, result)

	// 3. Load: each target in order; the first failure stops the run.
	for _, tgt := range plan.Targets {
		written, err := tgt.Dest.Write(ctx, tgt.Target, integrated, SyncReplace)
		if err != nil {
			return fail(fmt.Errorf("load %s: %w", tgt.Name, err))
		}
		result.RowsWritten[tgt.Name] = written
		e.logger().Info("[etl] target written",
			zap.String("target", tgt.Name),
			zap.String("location", tgt.Target),
			zap.Int("rows", written))
	}
	e.stageDone(StageLoad, result)

	result.Status = StatusSuccess
	result.Duration = time.Since(start)
	return result, nil
}

// Extract reads every binding. A failing Optional binding is replaced by an
// empty table and marked degraded; any other failure aborts.
func (e *Engine) Extract(ctx context.Context, bindings []Binding, result *RunResult) (Datasets, error) {
	log := e.logger()
	datasets := make(Datasets, len(bindings))

	for _, b := range bindings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats := DatasetStats{Name: b.Name}

		t, err := readBinding(ctx, b)
		if err != nil {
			if !b.Optional {
				stats.Error = err.Error()
				result.Datasets = append(result.Datasets, stats)
				return nil, fmt.Errorf("%s: %w", b.Name, err)
			}
			log.Warn("[etl] optional source failed, continuing with empty table",
				zap.String("dataset", b.Name), zap.Error(err))
			t = &Table{Name: b.Name}
			stats.Degraded = true
			stats.Error = err.Error()
		}
		t.Name = b.Name
		datasets[b.Name] = t

		stats.Rows = t.Len()
		stats.Skipped = t.Skipped
		if t.Skipped > 0 {
			log.Warn("[etl] rows skipped while reading",
				zap.String("dataset", b.Name), zap.Int("skipped", t.Skipped))
		}
		log.Info("[etl] dataset extracted",
			zap.String("dataset", b.Name),
			zap.String("source", b.SourceType),
			zap.Int("rows", stats.Rows),
			zap.Int("columns", len(t.Schema.Fields)))
		result.Datasets = append(result.Datasets, stats)
	}
	return datasets, nil
}

func readBinding(ctx context.Context, b Binding) (*Table, error) {
	source, err := GetSource(b.SourceType)
	if err != nil {
		return nil, err
	}
	if err := CheckRequired(source.Spec(), b.Config); err != nil {
		return nil, err
	}
	return source.Read(ctx, b.Config)
}
