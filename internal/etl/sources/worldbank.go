package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marketnav/internal/etl"
)

// ── World Bank payload ─────────────────────────────────────
// The indicator API answers with a two-element array:
//   [ {page, pages, per_page, total, ...}, [ {record}, ... ] ]
// A single-element array carries an error message instead of data.

var logger = zap.NewNop()

// SetLogger is called by the app at startup.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l.With(zap.String("component", "sources"))
	}
}

// parseIndicatorPayload flattens the records element of a World Bank
// response into a table. Nested objects become dotted columns
// ("indicator.id", "country.value") in document order.
func parseIndicatorPayload(name string, data []byte) (*etl.Table, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	if len(payload) < 2 {
		if len(payload) == 1 {
			logger.Warn("[worldbank] payload carries no records", zap.ByteString("message", payload[0]))
		}
		return &etl.Table{Name: name}, nil
	}

	var meta map[string]any
	if err := json.Unmarshal(payload[0], &meta); err == nil {
		logger.Debug("[worldbank] page metadata",
			zap.Any("page", meta["page"]),
			zap.Any("pages", meta["pages"]),
			zap.Any("per_page", meta["per_page"]),
			zap.Any("total", meta["total"]))
	}

	var records []json.RawMessage
	if err := json.Unmarshal(payload[1], &records); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}

	t := &etl.Table{Name: name}
	for i, raw := range records {
		var keys []string
		row := make(map[string]any)
		if err := flattenRaw(raw, "", &keys, row); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		for _, k := range keys {
			t.AddField(etl.Field{Name: k, Type: inferType(row[k])})
		}
		t.Records = append(t.Records, etl.Record{Data: row})
	}
	return t, nil
}

// flattenRaw walks a JSON object keeping key order. Arrays are kept as
// compact JSON strings; scalars keep their JSON type.
func flattenRaw(raw json.RawMessage, prefix string, keys *[]string, out map[string]any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := prefix + tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		trimmed := bytes.TrimSpace(value)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '{':
			if err := flattenRaw(trimmed, key+".", keys, out); err != nil {
				return err
			}
			continue
		case len(trimmed) > 0 && trimmed[0] == '[':
			var buf bytes.Buffer
			if err := json.Compact(&buf, trimmed); err != nil {
				return err
			}
			out[key] = buf.String()
		default:
			var scalar any
			if err := json.Unmarshal(trimmed, &scalar); err != nil {
				return err
			}
			out[key] = scalar
		}
		*keys = append(*keys, key)
	}
	return nil
}

func inferType(v any) string {
	switch v.(type) {
	case float64:
		return etl.TypeNumber
	case bool:
		return etl.TypeBoolean
	default:
		return etl.TypeText
	}
}

// looksLikeJSONArray reports whether data starts with '['.
func looksLikeJSONArray(data []byte) bool {
	return strings.HasPrefix(strings.TrimSpace(string(data)), "[")
}
