package etl_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketnav/internal/etl"
)

// ── Test fixtures ──────────────────────────────────────────

// fixtureSource serves tables registered under cfg["key"].
type fixtureSource struct{}

var (
	fixturesMu sync.Mutex
	fixtures   = map[string]*etl.Table{}
	failures   = map[string]error{}
)

func init() { etl.RegisterSource(&fixtureSource{}) }

func (s *fixtureSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:         "test_fixture",
		Label:        "Fixture",
		ConfigFields: []etl.ConfigField{{Key: "key", Required: true}},
	}
}

func (s *fixtureSource) Read(_ context.Context, cfg etl.SourceConfig) (*etl.Table, error) {
	fixturesMu.Lock()
	defer fixturesMu.Unlock()
	key := cfg.String("key", "")
	if err := failures[key]; err != nil {
		return nil, err
	}
	return fixtures[key].Clone(), nil
}

func setFixture(t *testing.T, key string, tbl *etl.Table, err error) {
	t.Helper()
	fixturesMu.Lock()
	defer fixturesMu.Unlock()
	fixtures[key] = tbl
	failures[key] = err
	t.Cleanup(func() {
		fixturesMu.Lock()
		defer fixturesMu.Unlock()
		delete(fixtures, key)
		delete(failures, key)
	})
}

type memoryDest struct {
	tables map[string]*etl.Table
	err    error
}

func (d *memoryDest) Write(_ context.Context, target string, t *etl.Table, _ etl.SyncMode) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	if d.tables == nil {
		d.tables = map[string]*etl.Table{}
	}
	d.tables[target] = t.Clone()
	return t.Len(), nil
}

func joinTransform(ctx context.Context, ds etl.Datasets) (*etl.Table, error) {
	return etl.LeftJoin(ds["left"], ds["right"], "k")
}

// ── Engine ─────────────────────────────────────────────────

func TestEngine_Run(t *testing.T) {
	left := etl.NewTable("", "k", "a")
	left.Append("1", "x")
	left.Append("2", "y")
	left.Skipped = 3
	right := etl.NewTable("", "k", "b")
	right.Append("1", "hit")
	setFixture(t, "run-left", left, nil)
	setFixture(t, "run-right", right, nil)

	dest := &memoryDest{}
	var stages []string
	engine := &etl.Engine{OnStage: func(stage string, _ *etl.RunResult) { stages = append(stages, stage) }}

	result, err := engine.Run(context.Background(), &etl.Plan{
		Bindings: []etl.Binding{
			{Name: "left", SourceType: "test_fixture", Config: etl.SourceConfig{"key": "run-left"}},
			{Name: "right", SourceType: "test_fixture", Config: etl.SourceConfig{"key": "run-right"}},
		},
		Transform: joinTransform,
		Targets:   []etl.Target{{Name: "mem", Dest: dest, Target: "out"}},
	})
	require.NoError(t, err)

	assert.Equal(t, etl.StatusSuccess, result.Status)
	assert.Equal(t, []string{etl.StageExtract, etl.StageTransform, etl.StageLoad}, stages)
	assert.Equal(t, 2, result.RowsIntegrated)
	assert.Equal(t, map[string]int{"mem": 2}, result.RowsWritten)

	stats, ok := result.Dataset("left")
	require.True(t, ok)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, []any{"hit", nil}, dest.tables["out"].Column("b"))
}

func TestEngine_OptionalSourceDegrades(t *testing.T) {
	left := etl.NewTable("", "k")
	left.Append("1")
	setFixture(t, "opt-left", left, nil)
	setFixture(t, "opt-right", nil, errors.New("http 500"))

	var seen etl.Datasets
	result, err := (&etl.Engine{}).Run(context.Background(), &etl.Plan{
		Bindings: []etl.Binding{
			{Name: "left", SourceType: "test_fixture", Config: etl.SourceConfig{"key": "opt-left"}},
			{Name: "right", SourceType: "test_fixture", Config: etl.SourceConfig{"key": "opt-right"}, Optional: true},
		},
		Transform: func(_ context.Context, ds etl.Datasets) (*etl.Table, error) {
			seen = ds
			return ds["left"], nil
		},
	})
	require.NoError(t, err)

	stats, _ := result.Dataset("right")
	assert.True(t, stats.Degraded)
	assert.Equal(t, "http 500", stats.Error)
	require.Contains(t, seen, "right")
	assert.Equal(t, 0, seen["right"].Len())
}

func TestEngine_RequiredSourceAborts(t *testing.T) {
	boom := errors.New("file missing")
	setFixture(t, "req", nil, boom)

	result, err := (&etl.Engine{}).Run(context.Background(), &etl.Plan{
		Bindings:  []etl.Binding{{Name: "left", SourceType: "test_fixture", Config: etl.SourceConfig{"key": "req"}}},
		Transform: joinTransform,
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, etl.StatusError, result.Status)
	assert.Empty(t, result.Stage)
	stats, _ := result.Dataset("left")
	assert.Equal(t, "file missing", stats.Error)
}

func TestEngine_UnknownSourceAndMissingConfig(t *testing.T) {
	_, err := (&etl.Engine{}).Run(context.Background(), &etl.Plan{
		Bindings: []etl.Binding{{Name: "x", SourceType: "nope"}},
	})
	assert.ErrorIs(t, err, etl.ErrUnknownSource)

	_, err = (&etl.Engine{}).Run(context.Background(), &etl.Plan{
		Bindings: []etl.Binding{{Name: "x", SourceType: "test_fixture"}},
	})
	assert.ErrorContains(t, err, "missing config key")
}

func TestEngine_LoadFailureStopsRun(t *testing.T) {
	left := etl.NewTable("", "k")
	left.Append("1")
	setFixture(t, "load-left", left, nil)

	first := &memoryDest{}
	second := &memoryDest{err: errors.New("disk full")}
	third := &memoryDest{}

	result, err := (&etl.Engine{}).Run(context.Background(), &etl.Plan{
		Bindings:  []etl.Binding{{Name: "left", SourceType: "test_fixture", Config: etl.SourceConfig{"key": "load-left"}}},
		Transform: func(_ context.Context, ds etl.Datasets) (*etl.Table, error) { return ds["left"], nil },
		Targets: []etl.Target{
			{Name: "first", Dest: first, Target: "a"},
			{Name: "second", Dest: second, Target: "b"},
			{Name: "third", Dest: third, Target: "c"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, etl.StageTransform, result.Stage)
	assert.Equal(t, map[string]int{"first": 1}, result.RowsWritten)
	assert.Nil(t, third.tables)
}

func TestListSources_Sorted(t *testing.T) {
	specs := etl.ListSources()
	for i := 1; i < len(specs); i++ {
		assert.Less(t, specs[i-1].Type, specs[i].Type)
	}
}
