package instrument

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Masked is the placeholder written instead of a sensitive value.
const Masked = "***"

// Masker replaces values of sensitive keys (case-insensitive) in log attributes and JSON payloads.
type Masker struct {
	keys map[string]struct{}
}

// NewMasker builds a Masker for the given field names. Blank names are ignored.
func NewMasker(fields []string) *Masker {
	keys := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(strings.ToLower(field)); field != "" {
			keys[field] = struct{}{}
		}
	}
	return &Masker{keys: keys}
}

// Empty reports whether no key is masked.
func (m *Masker) Empty() bool {
	return m == nil || len(m.keys) == 0
}

// Sensitive reports whether key must be masked.
func (m *Masker) Sensitive(key string) bool {
	if m.Empty() {
		return false
	}
	_, found := m.keys[strings.ToLower(key)]
	return found
}

// Data masks decoded JSON values (maps and slices) recursively.
func (m *Masker) Data(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.Sensitive(k) {
				out[k] = Masked
				continue
			}
			out[k] = m.Data(v2)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.Sensitive(k) {
				out[k] = Masked
				continue
			}
			out[k] = v2
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v2 := range val {
			out[i] = m.Data(v2)
		}
		return out
	default:
		return v
	}
}

// JSON masks a JSON document and reports whether payload was valid JSON.
func (m *Masker) JSON(payload []byte) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}

	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", false
	}

	out, err := json.Marshal(m.Data(body))
	if err != nil {
		return "", false
	}
	return string(out), true
}

// Attr masks a single slog attribute, descending into groups and JSON strings.
func (m *Masker) Attr(attr slog.Attr) slog.Attr {
	if m.Sensitive(attr.Key) {
		return slog.String(attr.Key, Masked)
	}

	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		masked := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			masked = append(masked, m.Attr(ga))
		}
		attr.Value = slog.GroupValue(masked...)
	case slog.KindString:
		if out, ok := m.JSON([]byte(attr.Value.String())); ok {
			attr.Value = slog.StringValue(out)
		}
	case slog.KindAny:
		switch val := attr.Value.Any().(type) {
		case map[string]any, map[string]string, []any:
			attr.Value = slog.AnyValue(m.Data(val))
		case []byte:
			if out, ok := m.JSON(val); ok {
				attr.Value = slog.StringValue(out)
			}
		}
	}

	return attr
}
