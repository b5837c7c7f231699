package etl_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketnav/internal/etl"
)

func indicatorTable() *etl.Table {
	t := etl.NewTable("indicators", "country_code", "year", "gdp")
	t.Schema.Fields[1].Type = etl.TypeNumber
	t.Append("USA", 2020.0, "21000")
	t.Append("FRA", 2020.0, "2600")
	t.Append(nil, 2020.0, "1")
	return t
}

func fdiTable() *etl.Table {
	t := etl.NewTable("fdi", "country_code", "year", "fdi_value_usd", "gdp")
	t.Schema.Fields[1].Type = etl.TypeNumber
	t.Schema.Fields[2].Type = etl.TypeNumber
	t.Append("USA", 2020.0, 12345.0, "x")
	t.Append("USA", 2020.0, 99.0, "dup")
	t.Append("DEU", 2020.0, 7.0, "y")
	return t
}

func TestLeftJoin_PreservesLeftCardinality(t *testing.T) {
	out, err := etl.LeftJoin(indicatorTable(), fdiTable(), "country_code", "year")
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())

	assert.Equal(t, []string{"country_code", "year", "gdp_x", "fdi_value_usd", "gdp_y"}, out.Schema.FieldNames())

	// first right match wins
	assert.Equal(t, 12345.0, out.Records[0].Data["fdi_value_usd"])
	assert.Equal(t, "x", out.Records[0].Data["gdp_y"])
	assert.Nil(t, out.Records[1].Data["fdi_value_usd"])
	// null key never matches
	assert.Nil(t, out.Records[2].Data["fdi_value_usd"])
}

func TestLeftJoin_NumberAndTextKeysDoNotMatch(t *testing.T) {
	left := etl.NewTable("l", "k")
	left.Append("2020")
	right := etl.NewTable("r", "k", "v")
	right.Append(2020.0, "hit")

	out, err := etl.LeftJoin(left, right, "k")
	require.NoError(t, err)
	assert.Nil(t, out.Records[0].Data["v"])
}

func TestLeftJoin_MissingKey(t *testing.T) {
	_, err := etl.LeftJoin(indicatorTable(), etl.NewTable("r", "year"), "country_code", "year")
	assert.ErrorContains(t, err, `key "country_code" missing from r`)

	_, err = etl.LeftJoin(indicatorTable(), fdiTable())
	assert.Error(t, err)
}

func TestInferTypes(t *testing.T) {
	tbl := etl.NewTable("t", "num", "mixed", "empty", "flag")
	tbl.Append(" 1.5", "1", nil, true)
	tbl.Append("2", "abc", nil, false)
	tbl.Append(nil, "3", nil, nil)

	etl.InferTypes(tbl)

	types := map[string]string{}
	for _, f := range tbl.Schema.Fields {
		types[f.Name] = f.Type
	}
	want := map[string]string{
		"num":   etl.TypeNumber,
		"mixed": etl.TypeText,
		"empty": etl.TypeText,
		"flag":  etl.TypeText,
	}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []any{1.5, 2.0, nil}, tbl.Column("num"))
	assert.Equal(t, []any{"1", "abc", "3"}, tbl.Column("mixed"))
}

func TestFillMissing(t *testing.T) {
	build := func() *etl.Table {
		tbl := etl.NewTable("t", "name", "value")
		tbl.Schema.Fields[1].Type = etl.TypeNumber
		tbl.Append(nil, nil)
		tbl.Append("a", 1.0)
		return tbl
	}

	t.Run("uniform", func(t *testing.T) {
		tbl := build()
		assert.Equal(t, 2, etl.FillMissing(tbl, etl.FillUniform))
		assert.Equal(t, 0.0, tbl.Records[0].Data["name"])
		assert.Equal(t, 0.0, tbl.Records[0].Data["value"])
	})

	t.Run("semantic", func(t *testing.T) {
		tbl := build()
		assert.Equal(t, 2, etl.FillMissing(tbl, etl.FillSemantic))
		assert.Equal(t, etl.UnknownMarker, tbl.Records[0].Data["name"])
		assert.Equal(t, 0.0, tbl.Records[0].Data["value"])
		assert.Equal(t, "a", tbl.Records[1].Data["name"])
	})
}
