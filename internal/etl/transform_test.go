package etl_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketnav/internal/etl"
)

func TestApplyToTable_RenameDropCast(t *testing.T) {
	tbl := etl.NewTable("t", "Country", "Year", "unit")
	tbl.Append("USA", "2020", "USD")
	tbl.Append("FRA", "n/a", "USD")

	etl.ApplyToTable(tbl,
		&etl.DropTransform{Fields: []string{"unit", "absent"}},
		&etl.RenameTransform{Mapping: map[string]string{"Country": "country_code", "Year": "year", "nope": "x"}},
		&etl.TypeCastTransform{Field: "year", CastType: etl.TypeNumber},
	)

	assert.Equal(t, []string{"country_code", "year"}, tbl.Schema.FieldNames())
	assert.Equal(t, etl.TypeNumber, tbl.Schema.Fields[1].Type)
	assert.Equal(t, []any{2020.0, nil}, tbl.Column("year"))
	assert.Equal(t, []any{"USA", "FRA"}, tbl.Column("country_code"))
	_, hasUnit := tbl.Records[0].Data["unit"]
	assert.False(t, hasUnit)
}

func TestRenameTransform_SameName(t *testing.T) {
	tbl := etl.NewTable("t", "year")
	tbl.Append("2020")
	etl.ApplyToTable(tbl, &etl.RenameTransform{Mapping: map[string]string{"year": "year"}})
	assert.Equal(t, []any{"2020"}, tbl.Column("year"))
}

func TestRenameTransform_ReplacesExistingTarget(t *testing.T) {
	tbl := etl.NewTable("t", "date", "year")
	tbl.Append("2020", "old")
	etl.ApplyToTable(tbl, &etl.RenameTransform{Mapping: map[string]string{"date": "year"}})
	assert.Equal(t, []string{"year"}, tbl.Schema.FieldNames())
	assert.Equal(t, []any{"2020"}, tbl.Column("year"))
}

func TestToNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"12345", 12345, true},
		{" 1.5 ", 1.5, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{math.Inf(1), 0, false},
		{int64(3), 3, true},
		{true, 1, true},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := etl.ToNumber(c.in)
		assert.Equal(t, c.ok, ok, "ToNumber(%v)", c.in)
		assert.Equal(t, c.want, got, "ToNumber(%v)", c.in)
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "2020", etl.FormatValue(2020.0))
	assert.Equal(t, "12345.5", etl.FormatValue(12345.5))
	assert.Equal(t, "", etl.FormatValue(nil))
	assert.Equal(t, "true", etl.FormatValue(true))
	assert.Equal(t, "unknown", etl.FormatValue("unknown"))
}
