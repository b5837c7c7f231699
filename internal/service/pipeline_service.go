package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"marketnav/internal/config"
	"marketnav/internal/etl"
	_ "marketnav/internal/etl/sources"
	"marketnav/internal/market"
	"marketnav/internal/metrics"
	"marketnav/internal/storage"
)

// ErrAlreadyRunning is returned when a run for the same table is in flight.
var ErrAlreadyRunning = errors.New("pipeline already running")

// PipelineName labels run logs.
const PipelineName = "market_data"

// ─────────────────────────────────────────────────────────────
// Pipeline Service: one extract → transform → load run
// ─────────────────────────────────────────────────────────────

// PipelineService runs the market pipeline and keeps its history.
// runs and recorder may be nil.
type PipelineService struct {
	cfg      *config.Config
	runs     *storage.RunLogStore
	emitter  EventEmitter
	recorder *metrics.Recorder
	logger   *zap.Logger
	running  runningGuard
}

// NewPipelineService creates a PipelineService ready for use.
func NewPipelineService(
	cfg *config.Config,
	runs *storage.RunLogStore,
	emitter EventEmitter,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *PipelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = &LogEmitter{Logger: logger}
	}
	return &PipelineService{
		cfg:      cfg,
		runs:     runs,
		emitter:  emitter,
		recorder: recorder,
		logger:   logger,
	}
}

// Run executes the pipeline once. The result is returned even when the run
// fails, describing how far it got.
func (s *PipelineService) Run(ctx context.Context) (*etl.RunResult, error) {
	key := s.cfg.Store.Table
	if !s.running.TryLock(key) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, key)
	}
	defer s.running.Unlock(key)

	log := s.logger.With(zap.String("component", "pipeline"))
	engine := &etl.Engine{
		Logger: log,
		OnStage: func(stage string, r *etl.RunResult) {
			s.emitter.Emit(ctx, EventStage, map[string]any{
				"stage":    stage,
				"datasets": len(r.Datasets),
			})
		},
	}

	log.Info("[pipeline] run started",
		zap.String("store", s.cfg.Store.Driver),
		zap.String("table", s.cfg.Store.Table),
		zap.String("fillPolicy", s.cfg.FillPolicy))

	result, runErr := engine.Run(ctx, market.NewPlan(s.cfg, log))

	s.record(ctx, result)
	s.emitter.Emit(ctx, EventFinished, result)

	if runErr != nil {
		log.Error("[pipeline] run failed",
			zap.String("stage", result.Stage),
			zap.Duration("duration", result.Duration),
			zap.Error(runErr))
		return result, runErr
	}
	log.Info("[pipeline] run finished",
		zap.Int("rows", result.RowsIntegrated),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// record persists the run log and metrics. Failures here are logged and do
// not change the outcome of the run.
func (s *PipelineService) record(ctx context.Context, result *etl.RunResult) {
	if s.runs != nil {
		entry := storage.NewRunLog(PipelineName, s.cfg.FillPolicy, result)
		if err := s.runs.CreateRunLog(ctx, entry); err != nil {
			s.logger.Warn("[pipeline] could not save run log", zap.Error(err))
		}
	}
	if s.recorder != nil {
		s.recorder.Observe(result)
		if path := s.cfg.Output.MetricsFile; path != "" {
			if err := s.recorder.WriteFile(path); err != nil {
				s.logger.Warn("[pipeline] could not write metrics", zap.Error(err))
			}
		}
	}
}

// ListRuns returns the latest run logs, newest first.
func (s *PipelineService) ListRuns(ctx context.Context, limit int) ([]storage.RunLog, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("run history is disabled")
	}
	return s.runs.ListRunLogs(ctx, limit)
}

// WaitRunning blocks until in-flight runs finish or ctx is done.
func (s *PipelineService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}
