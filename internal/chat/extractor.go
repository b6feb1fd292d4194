package chat

import "strings"

// FieldPath is a dotted lookup path into a chunk delta, tagged with the
// provider known to emit it.
type FieldPath struct {
	Provider string `toml:"provider" yaml:"provider" json:"provider"`
	Path     string `toml:"path" yaml:"path" json:"path"`
}

// Extract walks paths in order against delta and returns the first value
// that resolves to a non-empty string. Earlier paths win when several are
// populated.
func Extract(delta map[string]any, paths []FieldPath) (string, bool) {
	if delta == nil {
		return "", false
	}
	for _, p := range paths {
		v, ok := lookup(delta, p.Path)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// lookup resolves a dotted path where every segment is a key lookup into a
// record. Any non-record intermediate resolves to none.
func lookup(record map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var current any = record
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok || seg == "" {
			return nil, false
		}
		current, ok = m[seg]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}
