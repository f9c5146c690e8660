package formline

import (
	"context"
	"reflect"

	"github.com/formline/formline/internal/pathutil"
)

// Field is the cached accessor bound to one canonical path: current value
// read-through, touched/dirty interaction state, and validity read-through to
// the scheduler's verdict set. Accessors are created on first access and live
// for the session; a stale reference always reflects the latest model and
// verdict state, never a snapshot.
type Field struct {
	form    *Form
	path    string
	initial any
	touched bool
	dirty   bool
}

// Path returns the canonical path this accessor is bound to.
func (fd *Field) Path() string {
	fd.form.mu.Lock()
	defer fd.form.mu.Unlock()
	return fd.path
}

// Value reads through to the current model.
func (fd *Field) Value() any {
	fd.form.mu.Lock()
	defer fd.form.mu.Unlock()
	segs, _ := pathutil.Parse(fd.path)
	v, _ := pathutil.Get(fd.form.model, segs)
	return v
}

// Set extracts a typed value from eventOrValue (see Extract), writes it into
// the model, updates the dirty flag against the creation-time snapshot, and
// notifies the scheduler. Writing the value already present is a no-op: no
// mutation, no revalidation, dirty untouched. Structural misuse of the model
// is returned loudly as a bad_path issue.
func (fd *Field) Set(ctx context.Context, eventOrValue any) error {
	value := Extract(eventOrValue)

	fd.form.mu.Lock()
	segs, err := pathutil.Parse(fd.path)
	if err != nil {
		fd.form.mu.Unlock()
		return AppendIssues(nil, Issue{Code: CodeBadPath, Path: fd.path, Message: err.Error(), Cause: err})
	}
	old, _ := pathutil.Get(fd.form.model, segs)
	if reflect.DeepEqual(old, value) {
		fd.form.mu.Unlock()
		return nil
	}
	next, err := pathutil.Set(fd.form.model, segs, value)
	if err != nil {
		fd.form.mu.Unlock()
		return AppendIssues(nil, Issue{Code: CodeBadPath, Path: fd.path, Message: err.Error(), Cause: err})
	}
	fd.form.model = next
	fd.dirty = !reflect.DeepEqual(value, fd.initial)
	path := fd.path
	fd.form.mu.Unlock()

	fd.form.sched.OnChange(ctx, path)
	return nil
}

// Touch marks the field as visited. Idempotent.
func (fd *Field) Touch() {
	fd.form.mu.Lock()
	fd.touched = true
	fd.form.mu.Unlock()
}

// Touched reports whether Touch has been called since creation or Reset.
func (fd *Field) Touched() bool {
	fd.form.mu.Lock()
	defer fd.form.mu.Unlock()
	return fd.touched
}

// Dirty reports whether the current value differs from the initial snapshot.
func (fd *Field) Dirty() bool {
	fd.form.mu.Lock()
	defer fd.form.mu.Unlock()
	return fd.dirty
}

// Errors returns the current error messages for this path.
func (fd *Field) Errors() []string {
	return fd.form.sched.Verdict(fd.Path()).Errors
}

// Warnings returns the current warning messages for this path.
func (fd *Field) Warnings() []string {
	return fd.form.sched.Verdict(fd.Path()).Warnings
}

// Pending reports whether an async validation for this path is unresolved.
func (fd *Field) Pending() bool {
	return fd.form.sched.Verdict(fd.Path()).Pending
}

// Valid reports no errors and not pending.
func (fd *Field) Valid() bool {
	return fd.form.sched.Verdict(fd.Path()).Clean()
}

// ShowErrors applies the session display strategy to this field's touched
// state and the session's submitted state.
func (fd *Field) ShowErrors() bool {
	fd.form.mu.Lock()
	touched := fd.touched
	submitted := fd.form.submitted
	strategy := fd.form.strategy
	fd.form.mu.Unlock()
	return ShouldShow(touched, submitted, strategy)
}

// Reset restores this path's slice of the model to its creation-time
// snapshot, clears touched/dirty, and revalidates the path. Other fields'
// verdicts are only affected through that fresh run.
func (fd *Field) Reset(ctx context.Context) error {
	fd.form.mu.Lock()
	segs, err := pathutil.Parse(fd.path)
	if err != nil {
		fd.form.mu.Unlock()
		return AppendIssues(nil, Issue{Code: CodeBadPath, Path: fd.path, Message: err.Error(), Cause: err})
	}
	next, err := pathutil.Set(fd.form.model, segs, deepCopy(fd.initial, fd.form.diag))
	if err != nil {
		fd.form.mu.Unlock()
		return AppendIssues(nil, Issue{Code: CodeBadPath, Path: fd.path, Message: err.Error(), Cause: err})
	}
	fd.form.model = next
	fd.touched = false
	fd.dirty = false
	path := fd.path
	fd.form.mu.Unlock()

	fd.form.sched.Validate(ctx, path)
	return nil
}
