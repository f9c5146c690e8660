package formline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/formline/formline/internal/pathutil"
)

// DefaultDebounceWindow is the quiet period applied to dependency-triggered
// revalidation when no explicit window is configured.
const DefaultDebounceWindow = 100 * time.Millisecond

type timerKey struct {
	trigger   string
	dependent string
}

type pathVerdict struct {
	verdict Verdict
	writer  uint64   // start-ordered run id that last wrote this entry
	prev    *Verdict // verdict displaced by a pending run; restored on rejection
}

// Scheduler is the single source of truth for what the rule collaborator
// currently says about the model. It owns the verdict set, the per-path
// single-flight discipline, and the debounced dependency fan-out.
//
// Runs are ordered by a monotonically increasing start id; a run may only
// overwrite verdict entries written by an older run. An async resolution
// carries its originating run's id, so a stale late arrival can never clobber
// a newer result regardless of completion order.
type Scheduler struct {
	mu         sync.Mutex
	validator  Validator
	snapshot   func() any
	window     time.Duration
	diag       DiagnosticFunc
	baseCtx    context.Context
	verdicts   map[string]pathVerdict
	dependents map[string][]string
	timers     map[timerKey]*time.Timer
	nextID     uint64
	lastFull   uint64 // id of the newest completed whole-model run
	inflight   int
	settleCh   chan struct{}
	closed     bool
}

// SchedulerConfig wires a Scheduler to its owning session.
type SchedulerConfig struct {
	Validator  Validator
	Snapshot   func() any // read-only model snapshot provider
	Window     time.Duration
	Diagnostic DiagnosticFunc
	BaseCtx    context.Context // session context; cancels in-flight resolves on Close
}

// NewScheduler builds a scheduler. Snapshot must not be nil; the remaining
// fields fall back to sensible defaults.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Window <= 0 {
		cfg.Window = DefaultDebounceWindow
	}
	if cfg.Diagnostic == nil {
		cfg.Diagnostic = defaultDiagnostic
	}
	if cfg.BaseCtx == nil {
		cfg.BaseCtx = context.Background()
	}
	return &Scheduler{
		validator:  cfg.Validator,
		snapshot:   cfg.Snapshot,
		window:     cfg.Window,
		diag:       cfg.Diagnostic,
		baseCtx:    cfg.BaseCtx,
		verdicts:   map[string]pathVerdict{},
		dependents: map[string][]string{},
		timers:     map[timerKey]*time.Timer{},
	}
}

// SetDependents replaces the dependency graph. Paths are canonicalized;
// malformed entries are dropped with a diagnostic. Updates take effect for
// subsequent mutations only.
func (s *Scheduler) SetDependents(graph map[string][]string) {
	clean := make(map[string][]string, len(graph))
	for trigger, deps := range graph {
		ct, err := pathutil.Canonical(trigger)
		if err != nil {
			s.diag(Diagnostic{Op: "dependents", Path: trigger, Err: err})
			continue
		}
		for _, d := range deps {
			cd, err := pathutil.Canonical(d)
			if err != nil {
				s.diag(Diagnostic{Op: "dependents", Path: d, Err: err})
				continue
			}
			clean[ct] = append(clean[ct], cd)
		}
	}
	s.mu.Lock()
	s.dependents = clean
	s.mu.Unlock()
}

// Validate triggers a run. An empty path validates the whole model; otherwise
// the run is scoped to the field (the collaborator decides which rules apply).
// Validate never expands the dependency graph; only OnChange does.
func (s *Scheduler) Validate(ctx context.Context, path string) {
	s.run(ctx, path)
}

// OnChange is called by field setters after a genuine value mutation. It
// validates the changed path immediately, then schedules a debounced
// revalidation of each dependent. Dependency-triggered runs are never treated
// as new external mutations: they do not re-expand the graph, which bounds
// mutually dependent fields (A->B, B->A) to one revalidation each per settle
// cycle. A dependency-triggered run cannot change the dependent's value, so
// re-expansion is deliberately skipped even on verdict changes.
func (s *Scheduler) OnChange(ctx context.Context, path string) {
	s.run(ctx, path)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	deps := s.dependents[path]
	for _, dep := range deps {
		key := timerKey{trigger: path, dependent: dep}
		if t, ok := s.timers[key]; ok {
			// Re-mutation within the window restarts it; timers never stack.
			t.Reset(s.window)
			continue
		}
		dep := dep
		s.timers[key] = time.AfterFunc(s.window, func() {
			s.mu.Lock()
			delete(s.timers, key)
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			s.run(s.baseCtx, dep)
		})
	}
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context, path string) {
	scope := path
	if scope != "" {
		c, err := pathutil.Canonical(scope)
		if err != nil {
			s.diag(Diagnostic{Op: "validate", Path: scope, Err: err})
			return
		}
		scope = c
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.nextID++
	id := s.nextID
	snap := s.snapshot()
	s.mu.Unlock()

	report, err := s.invoke(ctx, snap, scope)
	if err != nil {
		// Previous verdicts for the affected paths are retained: a broken
		// validator must never freeze or blank the form.
		s.diag(Diagnostic{Op: "validate", Path: scope, Err: err})
		return
	}
	s.apply(scope, id, report)
}

func (s *Scheduler) invoke(ctx context.Context, snap any, scope string) (rep Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			rep, err = nil, fmt.Errorf("validator panic: %v", r)
		}
	}()
	if s.validator == nil {
		return Report{}, nil
	}
	return s.validator(ctx, snap, scope)
}

// apply merges a completed run. Whole-model runs own every path: entries the
// report no longer mentions are cleared when this run is newer than their
// writer. Scoped runs own their scope subtree plus whatever extra fields the
// collaborator chose to report on.
func (s *Scheduler) apply(scope string, id uint64, report Report) {
	type resolveJob struct {
		path    string
		resolve func(context.Context) (FieldReport, error)
	}
	var jobs []resolveJob

	s.mu.Lock()
	if s.closed || id < s.lastFull {
		// A whole-model run that started later has already completed; this
		// run's entire result is stale.
		s.mu.Unlock()
		return
	}
	covered := make(map[string]bool, len(report))
	for fp, fr := range report {
		cp, err := pathutil.Canonical(fp)
		if err != nil {
			s.diag(Diagnostic{Op: "validate", Path: fp, Err: err})
			continue
		}
		covered[cp] = true
		old, existed := s.verdicts[cp]
		if old.writer > id {
			continue // a newer run already wrote this path
		}
		nv := pathVerdict{
			verdict: Verdict{
				Errors:   append([]string(nil), fr.Errors...),
				Warnings: append([]string(nil), fr.Warnings...),
				Pending:  fr.Pending,
			},
			writer: id,
		}
		if fr.Pending && fr.Resolve != nil {
			// Stash what this pending run displaces: a rejected resolution is
			// no verdict change, so the displaced verdict comes back.
			if existed {
				prev := old.verdict
				prev.Pending = false
				nv.prev = &prev
			}
			jobs = append(jobs, resolveJob{path: cp, resolve: fr.Resolve})
		}
		s.verdicts[cp] = nv
	}
	// Cleared paths keep an empty verdict rather than losing their entry: the
	// writer id is the barrier that blocks a stale in-flight run from
	// resurrecting an error this run just cleared.
	if scope == "" {
		for p, pv := range s.verdicts {
			if !covered[p] && pv.writer < id {
				s.verdicts[p] = pathVerdict{writer: id}
			}
		}
		if id > s.lastFull {
			s.lastFull = id
		}
	} else {
		// A scoped run owns the scope subtree: descendants it stopped
		// reporting on are clean too (a container-level mutation revalidates
		// every row under it).
		prefix := scope + "."
		for p, pv := range s.verdicts {
			if covered[p] || pv.writer >= id {
				continue
			}
			if p == scope || strings.HasPrefix(p, prefix) {
				s.verdicts[p] = pathVerdict{writer: id}
			}
		}
	}
	for range jobs {
		s.addInflight()
	}
	s.mu.Unlock()

	// Resolutions ride the session context, not the caller's: disposing the
	// session is what abandons them.
	for _, j := range jobs {
		go s.awaitResolve(s.baseCtx, j.path, id, j.resolve)
	}
}

// awaitResolve completes a pending verdict off the hot path. The resolution
// keeps the originating run's id: if a newer run has started for the path by
// the time it lands, the late result is discarded (last-writer-wins by start
// order, not completion order).
func (s *Scheduler) awaitResolve(ctx context.Context, path string, id uint64, resolve func(context.Context) (FieldReport, error)) {
	defer s.doneInflight()

	fr, err := func() (fr FieldReport, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("resolve panic: %v", r)
			}
		}()
		return resolve(ctx)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || id < s.lastFull || s.verdicts[path].writer > id {
		return
	}
	if err != nil {
		s.diag(Diagnostic{Op: "resolve", Path: path, Err: err})
		// A rejected resolution changes nothing: the verdict displaced by the
		// pending run is restored. A path with no prior verdict settles on the
		// run's own sync findings.
		pv := s.verdicts[path]
		pv.verdict.Pending = false
		if pv.prev != nil {
			pv.verdict = *pv.prev
			pv.prev = nil
		}
		s.verdicts[path] = pv
		return
	}
	s.verdicts[path] = pathVerdict{
		verdict: Verdict{
			Errors:   append([]string(nil), fr.Errors...),
			Warnings: append([]string(nil), fr.Warnings...),
			Pending:  false,
		},
		writer: id,
	}
}

func (s *Scheduler) addInflight() {
	if s.inflight == 0 {
		s.settleCh = make(chan struct{})
	}
	s.inflight++
}

func (s *Scheduler) doneInflight() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight--
	if s.inflight == 0 && s.settleCh != nil {
		close(s.settleCh)
		s.settleCh = nil
	}
	s.mu.Unlock()
}

// Settle blocks until no async resolutions are in flight. Armed debounce
// timers do not count: they belong to future settle cycles.
func (s *Scheduler) Settle(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.closed || s.inflight == 0 {
			s.mu.Unlock()
			return nil
		}
		ch := s.settleCh
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Verdict returns the current verdict for a canonical path. Unknown paths are
// clean by definition.
func (s *Scheduler) Verdict(path string) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	pv := s.verdicts[path]
	return Verdict{
		Errors:   append([]string(nil), pv.verdict.Errors...),
		Warnings: append([]string(nil), pv.verdict.Warnings...),
		Pending:  pv.verdict.Pending,
	}
}

// Verdicts snapshots the full verdict set.
func (s *Scheduler) Verdicts() VerdictSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(VerdictSet, len(s.verdicts))
	for p, pv := range s.verdicts {
		out[p] = Verdict{
			Errors:   append([]string(nil), pv.verdict.Errors...),
			Warnings: append([]string(nil), pv.verdict.Warnings...),
			Pending:  pv.verdict.Pending,
		}
	}
	return out
}

// Rekey rewrites verdict paths after a structural re-index of an array. A
// false second return from the mapper drops the entry (the row is gone).
// Writer ids travel with the verdicts, so the single-flight ordering survives
// the shift.
func (s *Scheduler) Rekey(mapper func(string) (string, bool)) {
	s.mu.Lock()
	out := make(map[string]pathVerdict, len(s.verdicts))
	for p, pv := range s.verdicts {
		np, keep := mapper(p)
		if !keep {
			continue
		}
		out[np] = pv
	}
	s.verdicts = out
	s.mu.Unlock()
}

// Reset drops every verdict. The session calls this when the model is
// replaced wholesale.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.verdicts = map[string]pathVerdict{}
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
	s.mu.Unlock()
}

// Close cancels all armed timers and marks the scheduler closed; in-flight
// resolutions become no-ops against the verdict set.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
	if s.settleCh != nil {
		close(s.settleCh)
		s.settleCh = nil
	}
	s.inflight = 0
	s.mu.Unlock()
}
