package formline

import "strconv"

// InputEvent is the wire shape UI bindings hand to Field.Set for raw DOM-style
// change events. Type mirrors the control's declared input type and drives
// coercion; anything not listed passes the string value through.
type InputEvent struct {
	Value   string
	Type    string // "text", "checkbox", "number", ...
	Checked bool
}

// Extract normalizes heterogeneous input into a typed value: InputEvents are
// coerced by control type (checkbox -> bool, number -> float64), nil becomes
// the empty string to keep controlled-input semantics predictable, and
// everything else passes through untouched. Pure, no side effects.
func Extract(v any) any {
	switch ev := v.(type) {
	case nil:
		return ""
	case InputEvent:
		return extractEvent(ev)
	case *InputEvent:
		if ev == nil {
			return ""
		}
		return extractEvent(*ev)
	default:
		return v
	}
}

func extractEvent(ev InputEvent) any {
	switch ev.Type {
	case "checkbox":
		return ev.Checked
	case "number", "range":
		if ev.Value == "" {
			// Cleared number inputs stay "", not 0, so required-rules can
			// tell "empty" from "zero".
			return ""
		}
		if n, err := strconv.ParseFloat(ev.Value, 64); err == nil {
			return n
		}
		return ev.Value
	default:
		return ev.Value
	}
}
