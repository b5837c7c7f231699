package etl_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketnav/internal/etl"
)

func integratedTable() *etl.Table {
	t := etl.NewTable("integrated", "country_code", "year", "fdi_value_usd", "country_name")
	t.Schema.Fields[1].Type = etl.TypeNumber
	t.Schema.Fields[2].Type = etl.TypeNumber
	t.Append("USA", 2020.0, 12345.0, "United States")
	t.Append("FRA", 2020.0, 0.0, "unknown")
	return t
}

func TestCSVFileWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "integrated.csv")
	w := &etl.CSVFileWriter{}

	n, err := w.Write(context.Background(), path, integratedTable(), etl.SyncReplace)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	back, err := etl.ReadCSVTable(path)
	require.NoError(t, err)
	assert.Equal(t, integratedTable().Schema.FieldNames(), back.Schema.FieldNames())
	assert.Equal(t, 2, back.Len())
	assert.Equal(t, "12345", back.Records[0].Data["fdi_value_usd"])

	// numeric-as-text columns widen back to numbers
	etl.InferTypes(back)
	assert.Equal(t, []any{12345.0, 0.0}, back.Column("fdi_value_usd"))
}

func TestCSVFileWriter_ByteIdenticalOnRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "integrated.csv")
	w := &etl.CSVFileWriter{}

	_, err := w.Write(context.Background(), path, integratedTable(), etl.SyncReplace)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = w.Write(context.Background(), path, integratedTable(), etl.SyncReplace)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "country_code,year,fdi_value_usd,country_name\nUSA,2020,12345,United States\nFRA,2020,0,unknown\n", string(first))
}

func TestCSVFileWriter_RejectsAppend(t *testing.T) {
	_, err := (&etl.CSVFileWriter{}).Write(context.Background(), filepath.Join(t.TempDir(), "x.csv"), integratedTable(), etl.SyncAppend)
	assert.ErrorIs(t, err, etl.ErrAppendUnsupported)
}

func TestReadCSVTable_Missing(t *testing.T) {
	_, err := etl.ReadCSVTable(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
