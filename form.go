package formline

import (
	"context"
	"sync"

	"github.com/formline/formline/internal/pathutil"
)

// Form is the session entry point: it owns the model, the accessor cache and
// the scheduler, and orchestrates the submit/reset lifecycle. All model writes
// funnel through Field/ArrayField operations, so write ordering has a single
// path and external collaborators only ever see read snapshots.
type Form struct {
	mu         sync.Mutex
	model      any
	initial    any
	fields     map[string]*Field
	submitted  bool
	submitting bool

	sched    *Scheduler
	strategy Strategy
	overlay  OverlayValidator
	diag     DiagnosticFunc
	ctx      context.Context
	cancel   context.CancelFunc
}

// SubmitResult is the structured outcome of Submit. An invalid form is a
// value, never an error: OK is false and Issues enumerates the failing paths.
// Overlay carries the segregated schema-overlay report when one is configured.
type SubmitResult struct {
	OK      bool
	Data    any
	Issues  Issues
	Overlay *OverlayReport
}

// New builds a session around a deep copy of initial. The initial value is
// normalized through a JSON round-trip, so struct input is addressed by json
// tag names. Close must be called to release timers and abandon in-flight
// async validations.
func New(initial any, opts ...Option) *Form {
	var cfg formConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.diag == nil {
		cfg.diag = defaultDiagnostic
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Form{
		model:    deepCopy(initial, cfg.diag),
		initial:  deepCopy(initial, cfg.diag),
		fields:   map[string]*Field{},
		strategy: cfg.strategy,
		overlay:  cfg.overlay,
		diag:     cfg.diag,
		ctx:      ctx,
		cancel:   cancel,
	}
	f.sched = NewScheduler(SchedulerConfig{
		Validator:  cfg.validator,
		Snapshot:   f.Model,
		Window:     cfg.window,
		Diagnostic: cfg.diag,
		BaseCtx:    ctx,
	})
	if cfg.dependents != nil {
		f.sched.SetDependents(cfg.dependents)
	}
	return f
}

// Model returns a deep-copy snapshot of the current model. Mutation goes
// through Field.Set and the array operations only.
func (f *Form) Model() any {
	f.mu.Lock()
	m := f.model
	f.mu.Unlock()
	return deepCopy(m, f.diag)
}

// Scheduler exposes the session's scheduler for advanced wiring (manual
// Validate calls, dependency updates after construction).
func (f *Form) Scheduler() *Scheduler { return f.sched }

// SetDependents replaces the dependency graph for subsequent mutations.
func (f *Form) SetDependents(graph map[string][]string) { f.sched.SetDependents(graph) }

// Field returns the cached accessor for path, creating it on first access.
// Equivalent spellings ("items[2].x", "items.2.x") return the identical
// accessor. Malformed paths are programmer errors and panic.
func (f *Form) Field(path string) *Field {
	cp, err := pathutil.Canonical(path)
	if err != nil {
		panic("formline: " + err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fieldLocked(cp)
}

func (f *Form) fieldLocked(canonical string) *Field {
	if fd, ok := f.fields[canonical]; ok {
		return fd
	}
	segs, _ := pathutil.Parse(canonical)
	cur, _ := pathutil.Get(f.model, segs)
	fd := &Field{
		form:    f,
		path:    canonical,
		initial: deepCopy(cur, f.diag),
	}
	f.fields[canonical] = fd
	return fd
}

// Array returns the array-field view over a list-valued path.
func (f *Form) Array(path string) *ArrayField {
	cp, err := pathutil.Canonical(path)
	if err != nil {
		panic("formline: " + err.Error())
	}
	return &ArrayField{form: f, path: cp}
}

// rekeyFieldsLocked migrates cached accessors to re-indexed paths. Dropped
// entries lose their accessor; kept accessors retain identity and interaction
// state under the new path.
func (f *Form) rekeyFieldsLocked(mapper func(string) (string, bool)) {
	out := make(map[string]*Field, len(f.fields))
	for p, fd := range f.fields {
		np, keep := mapper(p)
		if !keep {
			continue
		}
		fd.path = np
		out[np] = fd
	}
	f.fields = out
}

// Validate triggers a validation run; empty path covers the whole model.
func (f *Form) Validate(ctx context.Context, path string) {
	f.sched.Validate(ctx, path)
}

// Valid reports whether no known path carries errors or is pending.
func (f *Form) Valid() bool {
	for _, v := range f.sched.Verdicts() {
		if !v.Clean() {
			return false
		}
	}
	return true
}

// Pending reports whether any async validation is unresolved.
func (f *Form) Pending() bool {
	for _, v := range f.sched.Verdicts() {
		if v.Pending {
			return true
		}
	}
	return false
}

// Errors aggregates current error messages per canonical path.
func (f *Form) Errors() map[string][]string {
	out := map[string][]string{}
	for p, v := range f.sched.Verdicts() {
		if len(v.Errors) > 0 {
			out[p] = v.Errors
		}
	}
	return out
}

// Warnings aggregates current warning messages per canonical path.
func (f *Form) Warnings() map[string][]string {
	out := map[string][]string{}
	for p, v := range f.sched.Verdicts() {
		if len(v.Warnings) > 0 {
			out[p] = v.Warnings
		}
	}
	return out
}

// Submitted reports whether a submission has completed at least once.
func (f *Form) Submitted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

// Submitting reports whether a submission is currently running.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit runs a whole-model validation, awaits outstanding async verdicts,
// consults the schema overlay, and resolves with a structured result. The
// error return is reserved for engine-level failures (context cancellation);
// an invalid form always comes back as a result with OK=false. submitted is
// true afterwards regardless of the validity outcome.
func (f *Form) Submit(ctx context.Context) (*SubmitResult, error) {
	f.mu.Lock()
	f.submitting = true
	f.mu.Unlock()

	finish := func() {
		f.mu.Lock()
		f.submitting = false
		f.submitted = true
		f.mu.Unlock()
	}

	f.sched.Validate(ctx, "")
	if err := f.sched.Settle(ctx); err != nil {
		finish()
		return nil, err
	}

	var overlayReport *OverlayReport
	if f.overlay != nil {
		rep, err := f.overlay.Validate(ctx, f.Model())
		if err != nil {
			f.diag(Diagnostic{Op: "overlay", Err: err})
		} else {
			overlayReport = rep
		}
	}
	finish()

	var issues Issues
	for p, v := range f.sched.Verdicts() {
		for _, msg := range v.Errors {
			issues = AppendIssues(issues, Issue{Path: p, Code: CodeSubmitInvalid, Message: msg})
		}
	}
	ok := len(issues) == 0 && (overlayReport == nil || overlayReport.Success)
	res := &SubmitResult{
		OK:      ok,
		Issues:  issues,
		Overlay: overlayReport,
	}
	if ok {
		res.Data = f.Model()
	}
	return res, nil
}

// Reset restores the model to the given value (or the originally captured
// initial), clears submission state and every field's touched/dirty flags,
// re-captures accessor initial snapshots from the restored model, and runs
// one whole-model validation. Calling Reset twice in a row is idempotent.
func (f *Form) Reset(ctx context.Context, toValue ...any) {
	f.mu.Lock()
	if len(toValue) > 0 {
		f.initial = deepCopy(toValue[0], f.diag)
	}
	f.model = deepCopy(f.initial, f.diag)
	f.submitted = false
	f.submitting = false
	for _, fd := range f.fields {
		segs, _ := pathutil.Parse(fd.path)
		cur, _ := pathutil.Get(f.model, segs)
		fd.initial = deepCopy(cur, f.diag)
		fd.touched = false
		fd.dirty = false
	}
	f.mu.Unlock()

	f.sched.Reset()
	f.sched.Validate(ctx, "")
}

// Close cancels the session context, stops all debounce timers, and marks
// in-flight async runs abandoned.
func (f *Form) Close() {
	f.cancel()
	f.sched.Close()
}
