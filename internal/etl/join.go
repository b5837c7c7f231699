package etl

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ── Table operations ───────────────────────────────────────
// Batch operations that need the whole table rather than one record.

// Suffixes applied to non-key columns present on both sides of a join.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// LeftJoin keeps every row of left, in order, and attaches the columns of
// the first right row with equal key values. Rows with a null key never
// match. The result always has exactly left.Len() rows.
func LeftJoin(left, right *Table, keys ...string) (*Table, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("left join: no key columns")
	}
	for _, k := range keys {
		if !left.Schema.Has(k) {
			return nil, fmt.Errorf("left join: key %q missing from %s", k, left.Name)
		}
		if !right.Schema.Has(k) {
			return nil, fmt.Errorf("left join: key %q missing from %s", k, right.Name)
		}
	}

	leftNames := left.Schema.FieldNames()
	rightExtra := lo.Filter(right.Schema.Fields, func(f Field, _ int) bool {
		return !lo.Contains(keys, f.Name)
	})

	// Output column names, with suffixes where both sides share a name.
	leftOut := make(map[string]string, len(leftNames))
	rightOut := make(map[string]string, len(rightExtra))
	out := &Table{Name: left.Name, Skipped: left.Skipped}
	for _, f := range left.Schema.Fields {
		name := f.Name
		if !lo.Contains(keys, name) && right.Schema.Has(name) {
			name += LeftSuffix
		}
		leftOut[f.Name] = name
		out.Schema.Fields = append(out.Schema.Fields, Field{Name: name, Type: f.Type})
	}
	for _, f := range rightExtra {
		name := f.Name
		if left.Schema.Has(name) {
			name += RightSuffix
		}
		rightOut[f.Name] = name
		out.Schema.Fields = append(out.Schema.Fields, Field{Name: name, Type: f.Type})
	}

	index := make(map[string]Record, right.Len())
	for _, r := range right.Records {
		k, ok := joinKey(r, keys)
		if !ok {
			continue
		}
		if _, dup := index[k]; !dup {
			index[k] = r
		}
	}

	out.Records = make([]Record, 0, left.Len())
	for _, l := range left.Records {
		data := make(map[string]any, len(out.Schema.Fields))
		for _, name := range leftNames {
			data[leftOut[name]] = l.Data[name]
		}
		match, found := Record{}, false
		if k, ok := joinKey(l, keys); ok {
			match, found = index[k]
		}
		for _, f := range rightExtra {
			if found {
				data[rightOut[f.Name]] = match.Data[f.Name]
			} else {
				data[rightOut[f.Name]] = nil
			}
		}
		out.Records = append(out.Records, Record{Data: data})
	}
	return out, nil
}

// joinKey builds a comparable key. Numbers and text never compare equal.
func joinKey(r Record, keys []string) (string, bool) {
	var b strings.Builder
	for i, k := range keys {
		v := r.Data[k]
		if v == nil {
			return "", false
		}
		if i > 0 {
			b.WriteByte(0x1f)
		}
		if f, ok := v.(float64); ok {
			b.WriteString("n:")
			b.WriteString(FormatValue(f))
		} else {
			b.WriteString("s:")
			b.WriteString(FormatValue(v))
		}
	}
	return b.String(), true
}

// InferTypes tightens column types: a text column whose non-null values all
// parse as numbers becomes a number column. All-null columns are left alone.
// Best effort; never fails.
func InferTypes(t *Table) {
	for i, f := range t.Schema.Fields {
		if f.Type == TypeNumber {
			continue
		}
		seen := 0
		numeric := true
		for _, r := range t.Records {
			v := r.Data[f.Name]
			if v == nil {
				continue
			}
			seen++
			if _, ok := v.(bool); ok {
				numeric = false
				break
			}
			if _, ok := ToNumber(v); !ok {
				numeric = false
				break
			}
		}
		if !numeric || seen == 0 {
			continue
		}
		for _, r := range t.Records {
			if v := r.Data[f.Name]; v != nil {
				n, _ := ToNumber(v)
				r.Data[f.Name] = n
			}
		}
		t.Schema.Fields[i].Type = TypeNumber
	}
}

// FillPolicy selects how FillMissing replaces nulls.
type FillPolicy string

const (
	// FillUniform writes a literal zero into every null cell, whatever the
	// column type.
	FillUniform FillPolicy = "uniform"
	// FillSemantic writes zero into number columns and UnknownMarker into
	// text and boolean columns.
	FillSemantic FillPolicy = "semantic"
)

// UnknownMarker fills categorical gaps under FillSemantic.
const UnknownMarker = "unknown"

// FillMissing replaces every null cell according to policy and returns the
// number of cells filled.
func FillMissing(t *Table, policy FillPolicy) int {
	filled := 0
	for _, f := range t.Schema.Fields {
		var fill any = float64(0)
		if policy == FillSemantic && f.Type != TypeNumber {
			fill = UnknownMarker
		}
		for _, r := range t.Records {
			if r.Data[f.Name] == nil {
				r.Data[f.Name] = fill
				filled++
			}
		}
	}
	return filled
}
