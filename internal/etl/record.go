package etl

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// All sources emit Tables of Records, all destinations consume them.
// A nil value in Record.Data is the null marker; numbers are float64.

// Field types.
const (
	TypeText    = "text"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "boolean"
}

// Schema describes the ordered shape of records in a table.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named field, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the schema contains the named field.
func (s *Schema) Has(name string) bool { return s.Index(name) >= 0 }

// Record is a single row of data flowing through the pipeline.
type Record struct {
	Data map[string]any `json:"data"`
}

// ── Table ──────────────────────────────────────────────────

// Table is an in-memory dataset: ordered columns plus ordered rows.
// Skipped counts input rows dropped while reading, so data loss stays visible.
type Table struct {
	Name    string   `json:"name"`
	Schema  Schema   `json:"schema"`
	Records []Record `json:"records"`
	Skipped int      `json:"skipped"`
}

// NewTable creates an empty table with text columns for the given names.
func NewTable(name string, columns ...string) *Table {
	t := &Table{Name: name}
	for _, c := range columns {
		t.Schema.Fields = append(t.Schema.Fields, Field{Name: c, Type: TypeText})
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Records) }

// AddField appends a column to the schema if it is not already present.
// Existing rows are left untouched; a missing key reads as null.
func (t *Table) AddField(f Field) {
	if t.Schema.Has(f.Name) {
		return
	}
	t.Schema.Fields = append(t.Schema.Fields, f)
}

// Append adds a row built from positional values matching the schema.
func (t *Table) Append(values ...any) {
	data := make(map[string]any, len(t.Schema.Fields))
	for i, f := range t.Schema.Fields {
		if i < len(values) {
			data[f.Name] = values[i]
		} else {
			data[f.Name] = nil
		}
	}
	t.Records = append(t.Records, Record{Data: data})
}

// Column returns the values of a column in row order.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Records))
	for i, r := range t.Records {
		out[i] = r.Data[name]
	}
	return out
}

// Clone returns a deep copy of the table's schema and row maps.
func (t *Table) Clone() *Table {
	c := &Table{
		Name:    t.Name,
		Skipped: t.Skipped,
		Schema:  Schema{Fields: append([]Field(nil), t.Schema.Fields...)},
		Records: make([]Record, len(t.Records)),
	}
	for i, r := range t.Records {
		data := make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			data[k] = v
		}
		c.Records[i] = Record{Data: data}
	}
	return c
}
