package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketnav/internal/config"
	"marketnav/internal/dbclient"
	"marketnav/internal/domain"
	"marketnav/internal/etl"
	"marketnav/internal/etl/sources"
	"marketnav/internal/metrics"
	"marketnav/internal/service"
	"marketnav/internal/storage"
)

// App wires configuration, stores and services for one process.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	db       *storage.DB
	pipeline *service.PipelineService
}

// New creates a new App. Call Startup before using it.
func New(cfg *config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger}
}

// Startup opens the run history (when configured) and builds the services.
func (a *App) Startup(ctx context.Context) error {
	sources.SetLogger(a.logger)

	var runs *storage.RunLogStore
	if path := a.cfg.Output.RunLogPath; path != "" {
		db, err := storage.New(path)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		a.db = db
		runs = storage.NewRunLogStore(db)
	}

	a.pipeline = service.NewPipelineService(
		a.cfg,
		runs,
		&service.LogEmitter{Logger: a.logger},
		metrics.New(),
		a.logger,
	)
	return nil
}

// Shutdown waits briefly for in-flight runs and closes the run history.
func (a *App) Shutdown(ctx context.Context) {
	if a.pipeline != nil {
		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		a.pipeline.WaitRunning(waitCtx)
		cancel()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// RunPipeline runs the pipeline once.
func (a *App) RunPipeline(ctx context.Context) (*etl.RunResult, error) {
	return a.pipeline.Run(ctx)
}

// ListRuns returns recent run logs.
func (a *App) ListRuns(ctx context.Context, limit int) ([]storage.RunLog, error) {
	return a.pipeline.ListRuns(ctx, limit)
}

// TableSummary describes a stored copy of the integrated table.
type TableSummary struct {
	Target  string                `json:"target"`
	Table   string                `json:"table"`
	Rows    int64                 `json:"rows"`
	Columns []dbclient.ColumnInfo `json:"columns"`
}

// ErrMirrorDisabled is returned when the mirror is inspected but no URI is
// configured.
var ErrMirrorDisabled = errors.New("mirror is not configured")

// InspectStore describes the integrated table held by the store.
func (a *App) InspectStore(ctx context.Context) (*TableSummary, error) {
	return inspect(ctx, "store", a.cfg.Store.Connection(), a.cfg.Store.Password, a.cfg.Store.Table)
}

// InspectMirror describes the mirrored collection.
func (a *App) InspectMirror(ctx context.Context) (*TableSummary, error) {
	m := a.cfg.Mirror
	if !m.Enabled() {
		return nil, ErrMirrorDisabled
	}
	return inspect(ctx, "mirror", m.Connection(), m.Password, m.Collection)
}

func inspect(ctx context.Context, target string, conn domain.DatabaseConnection, password, table string) (*TableSummary, error) {
	c, err := dbclient.NewConnector(&conn, password)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	cols, err := c.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%s: table %q not found", target, table)
	}
	rows, err := c.CountRows(ctx, table)
	if err != nil {
		return nil, err
	}
	return &TableSummary{Target: target, Table: table, Rows: rows, Columns: cols}, nil
}
