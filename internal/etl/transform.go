package etl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ── Transformer ────────────────────────────────────────────
// Transformers modify records in-flight between extract and load.
// They are composable: each takes a record, returns a (possibly modified)
// record and a boolean indicating whether to keep it.
//
// Pattern: Benthos processor chain.

// Transformer processes a single record.
// Returns (transformed record, keep). If keep is false, the record is dropped.
type Transformer interface {
	Transform(Record) (Record, bool)
}

// SchemaTransformer is implemented by transformers that change the column set
// or column types, so ApplyToTable can keep the table schema in step.
type SchemaTransformer interface {
	TransformSchema(Schema) Schema
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(Record) (Record, bool)

func (f TransformerFunc) Transform(r Record) (Record, bool) { return f(r) }

// ── Built-in Transforms ────────────────────────────────────

// RenameTransform renames fields in a record.
// Absent source fields are ignored.
type RenameTransform struct {
	Mapping map[string]string // oldName → newName
}

func (t *RenameTransform) Transform(r Record) (Record, bool) {
	for old, new_ := range t.Mapping {
		if old == new_ {
			continue
		}
		if v, ok := r.Data[old]; ok {
			r.Data[new_] = v
			delete(r.Data, old)
		}
	}
	return r, true
}

func (t *RenameTransform) TransformSchema(s Schema) Schema {
	renamed := make(map[string]bool, len(t.Mapping))
	for old, new_ := range t.Mapping {
		if s.Has(old) {
			renamed[new_] = true
		}
	}
	out := Schema{Fields: make([]Field, 0, len(s.Fields))}
	for _, f := range s.Fields {
		if new_, ok := t.Mapping[f.Name]; ok {
			out.Fields = append(out.Fields, Field{Name: new_, Type: f.Type})
			continue
		}
		// An existing column with a target name is replaced by the renamed one.
		if renamed[f.Name] {
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	return out
}

// DropTransform removes the given fields. Missing fields are ignored.
type DropTransform struct {
	Fields []string
}

func (t *DropTransform) Transform(r Record) (Record, bool) {
	for _, f := range t.Fields {
		delete(r.Data, f)
	}
	return r, true
}

func (t *DropTransform) TransformSchema(s Schema) Schema {
	drop := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		drop[f] = true
	}
	out := Schema{Fields: make([]Field, 0, len(s.Fields))}
	for _, f := range s.Fields {
		if !drop[f.Name] {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

// TypeCastTransform converts a field's value to a target type.
// A "number" cast never fails: unparseable values become null.
type TypeCastTransform struct {
	Field    string
	CastType string // "number" | "text" | "boolean"
}

func (t *TypeCastTransform) Transform(r Record) (Record, bool) {
	v, ok := r.Data[t.Field]
	if !ok || v == nil {
		return r, true
	}
	switch t.CastType {
	case TypeNumber:
		if f, ok := ToNumber(v); ok {
			r.Data[t.Field] = f
		} else {
			r.Data[t.Field] = nil
		}
	case TypeText:
		r.Data[t.Field] = FormatValue(v)
	case TypeBoolean:
		r.Data[t.Field] = toBool(v)
	}
	return r, true
}

func (t *TypeCastTransform) TransformSchema(s Schema) Schema {
	out := Schema{Fields: append([]Field(nil), s.Fields...)}
	if i := out.Index(t.Field); i >= 0 {
		out.Fields[i].Type = t.CastType
	}
	return out
}

// ── Helpers ────────────────────────────────────────────────

// ApplyTransformers runs a chain of transformers on a record.
func ApplyTransformers(r Record, ts []Transformer) (Record, bool) {
	for _, t := range ts {
		var keep bool
		r, keep = t.Transform(r)
		if !keep {
			return r, false
		}
	}
	return r, true
}

// ApplyToTable runs the chain over every row of t in place and updates the
// schema for transformers that implement SchemaTransformer.
func ApplyToTable(t *Table, ts ...Transformer) {
	kept := t.Records[:0]
	for _, rec := range t.Records {
		if out, keep := ApplyTransformers(rec, ts); keep {
			kept = append(kept, out)
		}
	}
	t.Records = kept
	for _, tr := range ts {
		if st, ok := tr.(SchemaTransformer); ok {
			t.Schema = st.TransformSchema(t.Schema)
		}
	}
}

// ToNumber converts v to float64. Strings are trimmed and parsed; NaN and
// infinities are rejected since they carry no value downstream.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatValue renders a cell as text. Numbers use the shortest exact
// representation ("2020", "12345.5"); null renders as "".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		lower := strings.ToLower(strings.TrimSpace(b))
		return lower == "true" || lower == "yes" || lower == "1"
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}
