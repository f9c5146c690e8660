package formline

import (
	json "github.com/goccy/go-json"
)

// deepCopy snapshots a model value through a JSON round-trip. Besides
// isolation this normalizes arbitrary input (structs, typed slices) into the
// map[string]any / []any / scalar shapes the path layer traverses, so a
// session constructed from a struct addresses fields by their json tag names.
// A value the codec rejects (channels, funcs) comes back as-is with a
// "snapshot" diagnostic: isolation is lost for it and the caller should hear
// about it.
func deepCopy(v any, diag DiagnosticFunc) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		if diag != nil {
			diag(Diagnostic{Op: "snapshot", Err: err})
		}
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		if diag != nil {
			diag(Diagnostic{Op: "snapshot", Err: err})
		}
		return v
	}
	return out
}
