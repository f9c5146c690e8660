package formline

import (
	"context"
	"log/slog"
)

// FieldReport is one field's outcome from a single Validator invocation.
// A Pending report carries a Resolve hook the scheduler awaits off the hot
// path; until it resolves the field reads as pending. Resolve must be set
// exactly when Pending is true.
type FieldReport struct {
	Errors   []string
	Warnings []string
	Pending  bool
	Resolve  func(ctx context.Context) (FieldReport, error)
}

// Report maps field paths to their outcome. Paths are canonicalized on merge,
// so validators may emit either dot or bracket spellings.
type Report map[string]FieldReport

// Validator is the rule-execution collaborator: given a model snapshot and an
// optional scope hint it reports on the fields it chooses to. The scope is a
// hint only: a validator that ignores it and reports on more fields than
// requested is merged normally, never discarded. scope is "" for whole-model
// runs. Validators must treat the snapshot as read-only.
type Validator func(ctx context.Context, snapshot any, scope string) (Report, error)

// OverlayIssue is a single submit-time structural finding.
type OverlayIssue struct {
	Path    string
	Message string
}

// OverlayReport is the segregated result of a schema overlay run. Overlay
// issues never feed the live per-field verdicts; they describe submit-time
// structural failures and would otherwise be double-counted.
type OverlayReport struct {
	Success bool
	Issues  []OverlayIssue
}

// OverlayValidator adapts an external schema validator (JSON Schema, OpenAPI,
// ...) into the submit-time overlay contract.
type OverlayValidator interface {
	Validate(ctx context.Context, snapshot any) (*OverlayReport, error)
}

// Diagnostic describes a non-fatal engine-level fault: a collaborator that
// panicked, returned an error, or rejected asynchronously. Faults never
// surface as verdicts; the previous verdict for the affected paths survives.
type Diagnostic struct {
	Op   string // "validate", "resolve", "overlay", "snapshot"
	Path string // scope of the faulting run ("" = whole model)
	Err  error
}

// DiagnosticFunc receives absorbed faults. The default sink logs via slog.
type DiagnosticFunc func(Diagnostic)

func defaultDiagnostic(d Diagnostic) {
	slog.Warn("formline: collaborator fault", "op", d.Op, "path", d.Path, "err", d.Err)
}
