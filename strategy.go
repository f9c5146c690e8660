package formline

// Strategy decides when a field's errors become visible to the user.
type Strategy int

const (
	ShowOnTouch   Strategy = iota // Visible once touched or once submitted.
	ShowImmediate                 // Always visible when errors exist.
	ShowOnSubmit                  // Visible only after submission.
	ShowManual                    // Never; the caller drives visibility itself.
)

// ShouldShow is the display truth table. ShowOnTouch intentionally reveals
// errors on submission even for untouched fields, so callers never need the
// disabled-submit anti-pattern. Pure function, no state.
func ShouldShow(touched, submitted bool, s Strategy) bool {
	switch s {
	case ShowImmediate:
		return true
	case ShowOnTouch:
		return touched || submitted
	case ShowOnSubmit:
		return submitted
	case ShowManual:
		return false
	default:
		return touched || submitted
	}
}
