package certgen

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Recipient holds the data of one student. Values are strings for plain
// fields and lists of mappings for tables used by \optional blocks.
type Recipient map[string]any

// GlobalProperties is the batch-wide substitution namespace.
type GlobalProperties map[string]any

// Artifact is an expanded document that has not been compiled yet.
// Name carries no extension.
type Artifact struct {
	Name    string
	Content string
}

// BaseName returns Name with any extension removed.
func (a Artifact) BaseName() string {
	return strings.TrimSuffix(a.Name, filepath.Ext(a.Name))
}

// String returns a field value when it holds a string.
func (r Recipient) String(field string) (string, bool) {
	return stringField(r, field)
}

// String returns a property value when it holds a string.
func (g GlobalProperties) String(field string) (string, bool) {
	return stringField(g, field)
}

func stringField(m map[string]any, field string) (string, bool) {
	v, ok := m[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// nameComponent returns a field appended to generated names. Absent and
// null fields are skipped; other non-string values are rejected.
func nameComponent(m map[string]any, field string) (string, bool, error) {
	v, ok := m[field]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("property %q must be a string, got %T", field, v)
	}
	return s, true, nil
}

// tableRows returns the rows of a tabular field. Decoders produce []any of
// map[string]any; values built in Go may use the concrete slice types.
func tableRows(v any) ([]map[string]any, bool) {
	switch rows := v.(type) {
	case []map[string]any:
		return rows, true
	case []Recipient:
		out := make([]map[string]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, true
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			switch m := row.(type) {
			case map[string]any:
				out = append(out, m)
			case Recipient:
				out = append(out, m)
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}
