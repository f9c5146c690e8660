// Package rules is a declarative rule library that compiles into the engine's
// Validator contract. Rules attach to canonical paths (a "*" segment matches
// every element of an array or every key of an object), report errors or
// warnings, and may be asynchronous; the same Set also declares the
// cross-field dependency graph handed to the scheduler.
package rules

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	formline "github.com/formline/formline"
	"github.com/formline/formline/i18n"
)

// Value is what a rule check receives: the addressed value, whether the path
// exists in the model, and the whole model snapshot for cross-field checks.
type Value struct {
	Path   string
	Value  any
	Exists bool
	Model  any
}

// CheckFunc evaluates one rule synchronously; an empty string means pass.
type CheckFunc func(ctx context.Context, v Value) string

// AsyncFunc evaluates one rule off the hot path (remote uniqueness checks and
// the like). The field reads as pending until it returns.
type AsyncFunc func(ctx context.Context, v Value) (string, error)

// Rule is one named check bound to a path by Set.Field.
type Rule struct {
	Name  string
	Warn  bool
	Check CheckFunc
	Async AsyncFunc
}

// AsWarning downgrades the rule's findings from errors to warnings.
func (r Rule) AsWarning() Rule {
	r.Warn = true
	return r
}

// Set is an ordered collection of path-bound rules plus the dependency graph.
type Set struct {
	fields []fieldRules
	deps   map[string][]string
}

type fieldRules struct {
	pattern string
	rules   []Rule
}

// NewSet returns an empty rule set.
func NewSet() *Set {
	return &Set{deps: map[string][]string{}}
}

// Field attaches rules to a path pattern. Patterns use canonical dot form;
// a "*" segment expands over array indices (or object keys) at run time, so
// "items.*.sku" validates every row's sku.
func (s *Set) Field(pattern string, rules ...Rule) *Set {
	s.fields = append(s.fields, fieldRules{pattern: pattern, rules: rules})
	return s
}

// DependsOn records that mutating trigger revalidates each dependent.
func (s *Set) DependsOn(trigger string, dependents ...string) *Set {
	s.deps[trigger] = append(s.deps[trigger], dependents...)
	return s
}

// Dependents returns the declared dependency graph for formline.WithDependents.
func (s *Set) Dependents() map[string][]string {
	out := make(map[string][]string, len(s.deps))
	for k, v := range s.deps {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Validator compiles the set into the engine's collaborator contract. A
// scoped run evaluates only the patterns matching the scope; a whole-model
// run expands every pattern against the snapshot.
func (s *Set) Validator() formline.Validator {
	return func(ctx context.Context, snapshot any, scope string) (formline.Report, error) {
		rep := formline.Report{}
		for _, fr := range s.fields {
			var paths []string
			if scope == "" {
				paths = expandPattern(snapshot, fr.pattern)
			} else {
				// A scoped run covers the scope itself and everything under
				// it, so validating "items.3" evaluates "items.*.sku" for
				// that row. Reporting under the scope is allowed by the
				// collaborator contract; the scheduler merges extras.
				for _, p := range expandPattern(snapshot, fr.pattern) {
					if p == scope || strings.HasPrefix(p, scope+".") {
						paths = append(paths, p)
					}
				}
			}
			for _, p := range paths {
				cur, exists := formline.Get(snapshot, p)
				v := Value{Path: p, Value: cur, Exists: exists, Model: snapshot}
				s.evalField(ctx, rep, v, fr.rules)
			}
		}
		return rep, nil
	}
}

func (s *Set) evalField(ctx context.Context, rep formline.Report, v Value, rules []Rule) {
	fr := rep[v.Path]
	var asyncs []Rule
	for _, r := range rules {
		if r.Async != nil {
			asyncs = append(asyncs, r)
			continue
		}
		if r.Check == nil {
			continue
		}
		if msg := r.Check(ctx, v); msg != "" {
			if r.Warn {
				fr.Warnings = append(fr.Warnings, msg)
			} else {
				fr.Errors = append(fr.Errors, msg)
			}
		}
	}
	if len(asyncs) > 0 {
		base := fr
		fr.Pending = true
		fr.Resolve = func(ctx context.Context) (formline.FieldReport, error) {
			out := formline.FieldReport{
				Errors:   append([]string(nil), base.Errors...),
				Warnings: append([]string(nil), base.Warnings...),
			}
			for _, r := range asyncs {
				msg, err := r.Async(ctx, v)
				if err != nil {
					return out, err
				}
				if msg != "" {
					if r.Warn {
						out.Warnings = append(out.Warnings, msg)
					} else {
						out.Errors = append(out.Errors, msg)
					}
				}
			}
			return out, nil
		}
	}
	if len(fr.Errors) > 0 || len(fr.Warnings) > 0 || fr.Pending {
		rep[v.Path] = fr
	}
}

// ---------- pattern expansion ----------

// expandPattern materializes the concrete paths a pattern addresses in the
// snapshot. Concrete segments expand even when missing (Required must fire on
// absent fields); "*" expands only over what actually exists.
func expandPattern(model any, pattern string) []string {
	segs := strings.Split(pattern, ".")
	var out []string
	expandInto(model, segs, nil, &out)
	return out
}

func expandInto(cur any, segs []string, prefix []string, out *[]string) {
	if len(segs) == 0 {
		*out = append(*out, strings.Join(prefix, "."))
		return
	}
	seg := segs[0]
	rest := segs[1:]
	if seg != "*" {
		var next any
		switch v := cur.(type) {
		case map[string]any:
			next = v[seg]
		case []any:
			if i, err := atoi(seg); err == nil && i >= 0 && i < len(v) {
				next = v[i]
			}
		}
		expandInto(next, rest, append(prefix, seg), out)
		return
	}
	switch v := cur.(type) {
	case []any:
		for i, e := range v {
			expandInto(e, rest, append(prefix, fmt.Sprint(i)), out)
		}
	case map[string]any:
		for _, k := range sortedKeys(v) {
			expandInto(v[k], rest, append(prefix, k), out)
		}
	}
}

// ---------- primitive rules ----------

func msgOr(custom, code string, data map[string]string) string {
	if custom != "" {
		return custom
	}
	return i18n.T(code, data)
}

func isEmpty(v Value) bool {
	if !v.Exists || v.Value == nil {
		return true
	}
	switch x := v.Value.(type) {
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

// Required fails on missing, nil, empty-string and empty-container values.
func Required(message ...string) Rule {
	return Rule{Name: "required", Check: func(ctx context.Context, v Value) string {
		if isEmpty(v) {
			return msgOr(first(message), formline.CodeRequired, nil)
		}
		return ""
	}}
}

// MinLen fails when a string value is shorter than n runes. Empty values
// pass; combine with Required when absence is also an error.
func MinLen(n int, message ...string) Rule {
	return Rule{Name: "min_len", Check: func(ctx context.Context, v Value) string {
		s, ok := v.Value.(string)
		if !ok || s == "" {
			return ""
		}
		if len([]rune(s)) < n {
			return msgOr(first(message), formline.CodeTooShort, map[string]string{"min": fmt.Sprint(n)})
		}
		return ""
	}}
}

// MaxLen fails when a string value exceeds n runes.
func MaxLen(n int, message ...string) Rule {
	return Rule{Name: "max_len", Check: func(ctx context.Context, v Value) string {
		s, ok := v.Value.(string)
		if !ok {
			return ""
		}
		if len([]rune(s)) > n {
			return msgOr(first(message), formline.CodeTooLong, map[string]string{"max": fmt.Sprint(n)})
		}
		return ""
	}}
}

// Min fails when a numeric value is below bound.
func Min(bound float64, message ...string) Rule {
	return Rule{Name: "min", Check: func(ctx context.Context, v Value) string {
		n, ok := toFloat(v.Value)
		if !ok {
			return ""
		}
		if n < bound {
			return msgOr(first(message), formline.CodeTooSmall, map[string]string{"min": fmt.Sprint(bound)})
		}
		return ""
	}}
}

// Max fails when a numeric value is above bound.
func Max(bound float64, message ...string) Rule {
	return Rule{Name: "max", Check: func(ctx context.Context, v Value) string {
		n, ok := toFloat(v.Value)
		if !ok {
			return ""
		}
		if n > bound {
			return msgOr(first(message), formline.CodeTooBig, map[string]string{"max": fmt.Sprint(bound)})
		}
		return ""
	}}
}

// Pattern fails when a non-empty string does not match the anchored regexp.
func Pattern(expr string, message ...string) Rule {
	re := regexp.MustCompile(expr)
	return Rule{Name: "pattern", Check: func(ctx context.Context, v Value) string {
		s, ok := v.Value.(string)
		if !ok || s == "" {
			return ""
		}
		if !re.MatchString(s) {
			return msgOr(first(message), formline.CodePattern, map[string]string{"pattern": expr})
		}
		return ""
	}}
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email is a pragmatic mailbox shape check, not an RFC 5321 parser.
func Email(message ...string) Rule {
	return Rule{Name: "email", Check: func(ctx context.Context, v Value) string {
		s, ok := v.Value.(string)
		if !ok || s == "" {
			return ""
		}
		if !emailRe.MatchString(s) {
			return msgOr(first(message), formline.CodeInvalidFormat, map[string]string{"format": "email"})
		}
		return ""
	}}
}

// OneOf fails when the value is present and not among the allowed set.
func OneOf(allowed []any, message ...string) Rule {
	return Rule{Name: "one_of", Check: func(ctx context.Context, v Value) string {
		if isEmpty(v) {
			return ""
		}
		for _, a := range allowed {
			if reflect.DeepEqual(v.Value, a) {
				return ""
			}
		}
		return msgOr(first(message), formline.CodeInvalidFormat, map[string]string{"allowed": fmt.Sprint(allowed)})
	}}
}

// Custom wraps an arbitrary synchronous check.
func Custom(name string, fn CheckFunc) Rule {
	return Rule{Name: name, Check: fn}
}

// Async wraps an asynchronous check; the field reads as pending until it
// resolves. An error return is absorbed by the scheduler as a diagnostic and
// the previous verdict survives.
func Async(name string, fn AsyncFunc) Rule {
	return Rule{Name: name, Async: fn}
}

// ---------- list-level rules (attach to the array path itself) ----------

// AtLeastOne ensures the list has at least one element.
func AtLeastOne(message ...string) Rule {
	return Rule{Name: "at_least_one", Check: func(ctx context.Context, v Value) string {
		arr, _ := v.Value.([]any)
		if len(arr) == 0 {
			return msgOr(first(message), formline.CodeTooShort, map[string]string{"minItems": "1"})
		}
		return ""
	}}
}

// MaxItems caps the list length.
func MaxItems(n int, message ...string) Rule {
	return Rule{Name: "max_items", Check: func(ctx context.Context, v Value) string {
		arr, _ := v.Value.([]any)
		if len(arr) > n {
			return msgOr(first(message), formline.CodeTooLong, map[string]string{"maxItems": fmt.Sprint(n)})
		}
		return ""
	}}
}

// UniqueBy ensures list elements carry distinct values at keyPath (relative
// to each element, e.g. "sku").
// Note: keys are stringified for comparison; prefer a single, comparable key
// type so mixed-type keys cannot collide.
func UniqueBy(keyPath string, message ...string) Rule {
	return Rule{Name: "unique_by", Check: func(ctx context.Context, v Value) string {
		arr, _ := v.Value.([]any)
		seen := map[string]int{}
		for i, elem := range arr {
			kv, ok := formline.Get(elem, keyPath)
			if !ok {
				continue
			}
			key := fmt.Sprint(kv)
			if _, dup := seen[key]; dup {
				return msgOr(first(message), formline.CodeUniqueness, map[string]string{"key": key})
			}
			seen[key] = i
		}
		return ""
	}}
}

// ---------- conditionals ----------

// Op defines simple comparison operators for If(...).Then(...)
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional composes conditional execution of rules against model paths.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional that evaluates a model path against a value.
func If(path string, op Op, want any) Conditional {
	return Conditional{path: path, op: op, want: want}
}

// IfAll requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	return IfAll(append([]Conditional{c}, others...)...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	return IfAny(append([]Conditional{c}, others...)...)
}

// Then gates rules on the condition; when it does not hold the rules pass.
func (c Conditional) Then(rules ...Rule) Rule {
	return Rule{Name: "if", Check: func(ctx context.Context, v Value) string {
		if !evalConditional(v.Model, c) {
			return ""
		}
		for _, r := range rules {
			if r.Check == nil {
				continue
			}
			if msg := r.Check(ctx, v); msg != "" {
				return msg
			}
		}
		return ""
	}}
}

func evalConditional(model any, c Conditional) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !evalConditional(model, it) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if evalConditional(model, it) {
				return true
			}
		}
		return false
	}
	cur, ok := formline.Get(model, c.path)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return looseEqual(cur, want)
	case Ne:
		return !looseEqual(cur, want)
	default:
		a, aok := toFloat(cur)
		b, bok := toFloat(want)
		if !aok || !bok {
			return false
		}
		switch op {
		case Lt:
			return a < b
		case Le:
			return a <= b
		case Gt:
			return a > b
		case Ge:
			return a >= b
		}
		return false
	}
}

// looseEqual tolerates the JSON round-trip's numeric widening (int want vs
// float64 model value).
func looseEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

// ---------- helpers ----------

func first(msgs []string) string {
	if len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func atoi(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
