package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketnav/internal/etl"
)

// RunLog records the outcome of one pipeline run.
type RunLog struct {
	ID             string             `json:"id"`
	Pipeline       string             `json:"pipeline"`
	StartedAt      time.Time          `json:"startedAt"`
	FinishedAt     time.Time          `json:"finishedAt"`
	Status         string             `json:"status"`
	Stage          string             `json:"stage"`
	FillPolicy     string             `json:"fillPolicy"`
	RowsIntegrated int                `json:"rowsIntegrated"`
	RowsWritten    map[string]int     `json:"rowsWritten"`
	Datasets       []etl.DatasetStats `json:"datasets"`
	Error          string             `json:"error,omitempty"`
}

// NewRunLog summarizes an engine result.
func NewRunLog(pipeline, fillPolicy string, r *etl.RunResult) *RunLog {
	return &RunLog{
		Pipeline:       pipeline,
		StartedAt:      r.StartedAt.UTC(),
		FinishedAt:     r.StartedAt.Add(r.Duration).UTC(),
		Status:         r.Status,
		Stage:          r.Stage,
		FillPolicy:     fillPolicy,
		RowsIntegrated: r.RowsIntegrated,
		RowsWritten:    r.RowsWritten,
		Datasets:       r.Datasets,
		Error:          r.Error,
	}
}

// RunLogStore persists run history.
type RunLogStore struct {
	db *DB
}

// NewRunLogStore creates a new RunLogStore.
func NewRunLogStore(db *DB) *RunLogStore {
	return &RunLogStore{db: db}
}

// ── Run Logs ───────────────────────────────────────────────

func (s *RunLogStore) CreateRunLog(ctx context.Context, log *RunLog) error {
	log.ID = uuid.New().String()
	written, err := json.Marshal(log.RowsWritten)
	if err != nil {
		return fmt.Errorf("encode rows written: %w", err)
	}
	datasets, err := json.Marshal(log.Datasets)
	if err != nil {
		return fmt.Errorf("encode datasets: %w", err)
	}

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO etl_run_logs (id, pipeline, started_at, finished_at, status, stage,
		 fill_policy, rows_integrated, rows_written_json, datasets_json, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Pipeline, log.StartedAt, log.FinishedAt, log.Status, log.Stage,
		log.FillPolicy, log.RowsIntegrated, string(written), string(datasets), log.Error,
	)
	return err
}

// ListRunLogs returns the most recent runs first.
func (s *RunLogStore) ListRunLogs(ctx context.Context, limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, pipeline, started_at, finished_at, status, stage, fill_policy,
		 rows_integrated, rows_written_json, datasets_json, error
		 FROM etl_run_logs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []RunLog
	for rows.Next() {
		var l RunLog
		var written, datasets string
		if err := rows.Scan(
			&l.ID, &l.Pipeline, &l.StartedAt, &l.FinishedAt, &l.Status, &l.Stage, &l.FillPolicy,
			&l.RowsIntegrated, &written, &datasets, &l.Error,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(written), &l.RowsWritten); err != nil {
			return nil, fmt.Errorf("decode rows written for %s: %w", l.ID, err)
		}
		if err := json.Unmarshal([]byte(datasets), &l.Datasets); err != nil {
			return nil, fmt.Errorf("decode datasets for %s: %w", l.ID, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
