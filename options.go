package formline

import "time"

// Option configures a Form at construction time.
type Option func(*formConfig)

type formConfig struct {
	validator  Validator
	dependents map[string][]string
	window     time.Duration
	strategy   Strategy
	overlay    OverlayValidator
	diag       DiagnosticFunc
}

// WithValidator injects the rule-execution collaborator.
func WithValidator(v Validator) Option {
	return func(c *formConfig) { c.validator = v }
}

// WithDependents declares the cross-field dependency graph: when a trigger
// path's value changes, each dependent path is revalidated after the debounce
// window. Cycles are allowed.
func WithDependents(graph map[string][]string) Option {
	return func(c *formConfig) { c.dependents = graph }
}

// WithDebounceWindow overrides the dependent-revalidation quiet period.
func WithDebounceWindow(d time.Duration) Option {
	return func(c *formConfig) { c.window = d }
}

// WithStrategy selects the error display strategy for all fields.
func WithStrategy(s Strategy) Option {
	return func(c *formConfig) { c.strategy = s }
}

// WithOverlay attaches a submit-time schema overlay. Its findings stay in the
// segregated overlay report and never feed live per-field verdicts.
func WithOverlay(v OverlayValidator) Option {
	return func(c *formConfig) { c.overlay = v }
}

// WithDiagnostic replaces the default slog sink for absorbed collaborator
// faults.
func WithDiagnostic(fn DiagnosticFunc) Option {
	return func(c *formConfig) { c.diag = fn }
}
