package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketnav.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

// chdir moves into an empty directory so no stray .env is picked up.
func chdir(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	// unprefixed variables never leak in
	t.Setenv("HOST", "elsewhere")
	t.Setenv("TABLE", "other")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultIndicatorsPath, cfg.Inputs.Indicators.Path)
	assert.Equal(t, "utf-8", cfg.Inputs.Indicators.Encoding)
	assert.False(t, cfg.Inputs.Indicators.SkipBadRows)
	assert.Equal(t, "latin1", cfg.Inputs.NTM.Encoding)
	assert.True(t, cfg.Inputs.NTM.SkipBadRows)
	assert.Equal(t, DefaultFDIURL, cfg.FDI.URL)
	assert.Equal(t, 30*time.Second, cfg.FDI.Timeout)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "sme_market_entry_navigator.db", cfg.Store.Host)
	assert.Equal(t, "market_data", cfg.Store.Table)
	assert.Equal(t, "uniform", cfg.FillPolicy)
	assert.Equal(t, ".marketnav/runs.db", cfg.Output.RunLogPath)
	assert.False(t, cfg.Mirror.Enabled())
}

func TestLoad_YAMLWithEnvSubstitution(t *testing.T) {
	chdir(t)
	t.Setenv("TEST_DATA_DIR", "/srv/data")

	path := writeTempFile(t, `
inputs:
  indicators:
    path: ${TEST_DATA_DIR}/indicators.csv
fdi:
  timeout: 5s
fill_policy: semantic
store:
  table: markets
mirror:
  uri: mongodb://localhost:27017
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/data/indicators.csv", cfg.Inputs.Indicators.Path)
	assert.Equal(t, 5*time.Second, cfg.FDI.Timeout)
	assert.Equal(t, "semantic", cfg.FillPolicy)
	// keys absent from the file keep their defaults
	assert.Equal(t, DefaultLPIPath, cfg.Inputs.LPI.Path)
	assert.Equal(t, "markets", cfg.Mirror.Collection)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	chdir(t)
	t.Setenv("MARKETNAV_STORE_TABLE", "from_env")
	t.Setenv("MARKETNAV_FDI_TIMEOUT", "0s")
	t.Setenv("MARKETNAV_INPUTS_GOODS_SKIP_BAD_ROWS", "false")

	path := writeTempFile(t, "store:\n  table: from_file\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Store.Table)
	assert.Equal(t, time.Duration(0), cfg.FDI.Timeout)
	assert.False(t, cfg.Inputs.Goods.SkipBadRows)
}

func TestLoad_DotEnv(t *testing.T) {
	chdir(t)
	require.NoError(t, os.WriteFile(".env", []byte("MARKETNAV_OUTPUT_CSV_PATH=out/backup.csv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("MARKETNAV_OUTPUT_CSV_PATH") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "out/backup.csv", cfg.Output.CSVPath)
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t)

	cases := map[string]string{
		"fill policy": "fill_policy: zero\n",
		"driver":      "store:\n  driver: oracle\n",
		"header row":  "inputs:\n  lpi:\n    header_row: 0\n",
		"no fdi":      "fdi:\n  url: \"\"\n",
		"bad url":     "fdi:\n  url: not a url\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeTempFile(t, body))
			assert.ErrorContains(t, err, "invalid config")
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreConnection(t *testing.T) {
	s := StoreConfig{Driver: "postgres", Host: "db", Port: 5433, Database: "m", Username: "u", SSLMode: "require"}
	conn := s.Connection()
	assert.Equal(t, "postgres", string(conn.Driver))
	assert.Equal(t, 5433, conn.Port)
	assert.Equal(t, "require", conn.SSLMode)
}
