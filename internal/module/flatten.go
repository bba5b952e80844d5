package module

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Flatten serialises v to JSON and returns one string per top-level field.
//
// v must encode to a JSON object. String fields are unquoted, null fields
// map to "", and every other value keeps its compact JSON text
// (30, true, {"a":1}).
func Flatten(v any) (map[string]string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlatten, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %T does not encode to an object: %w", ErrFlatten, v, err)
	}

	out := make(map[string]string, len(fields))
	for key, raw := range fields {
		out[key] = rawText(raw)
	}
	return out, nil
}

// rawText returns the textual form of a single JSON value.
func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return ""
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}
