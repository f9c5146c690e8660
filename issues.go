package formline

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeRequired      = "required"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodePattern       = "pattern"
	CodeInvalidFormat = "invalid_format"
	CodeUniqueness    = "uniqueness"
	CodeBusinessRule  = "business_rule"
	// Structural misuse of the path layer (programmer errors, surfaced loudly).
	CodeBadPath = "bad_path"
	// Submit-time failures reported by the session.
	CodeSubmitInvalid = "submit_invalid"
	CodeOverlayFailed = "overlay_failed"
	// Collaborator faults absorbed at the scheduler boundary.
	CodeValidatorFault = "validator_fault"
)

// Severity expresses the severity level for issues.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Issue represents a single validation entry bound to one canonical path.
type Issue struct {
	Path     string // Canonical dot path (for example: items.2.price).
	Code     string // One of the codes listed above.
	Message  string
	Severity Severity
	Cause    error // Optional: underlying error.
	// Params carries structured parameters (e.g., {"min":1, "got":42})
	// for i18n and observability.
	Params map[string]any
	// Rule optionally records the rule name that produced this issue.
	Rule string
}

// Issues is a collection of validation entries that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. required at email
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Messages returns the messages of all error-severity issues, in order.
func (iss Issues) Messages() []string {
	var out []string
	for _, it := range iss {
		if it.Severity == SeverityError {
			out = append(out, it.Message)
		}
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// IssueAt creates an Issue at the given path with provided code, message and params map.
// This is a convenience helper to improve readability at call sites with many parameters.
func IssueAt(path, code, msg string, params map[string]any) Issue {
	return Issue{Path: path, Code: code, Message: msg, Params: params}
}
