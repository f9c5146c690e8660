package formline

// Verdict is the current validation outcome for one canonical path.
type Verdict struct {
	Errors   []string
	Warnings []string
	Pending  bool
}

// VerdictSet maps canonical paths to their latest verdict. A completed
// scheduler run replaces only the entries it covered; entries owned by other,
// still-valid runs survive the merge untouched.
type VerdictSet map[string]Verdict

// Clone returns an independent shallow-enough copy: message slices are copied
// so callers can hold a snapshot across later runs.
func (vs VerdictSet) Clone() VerdictSet {
	out := make(VerdictSet, len(vs))
	for p, v := range vs {
		out[p] = Verdict{
			Errors:   append([]string(nil), v.Errors...),
			Warnings: append([]string(nil), v.Warnings...),
			Pending:  v.Pending,
		}
	}
	return out
}

// Clean reports whether the verdict carries no errors and is settled.
func (v Verdict) Clean() bool { return len(v.Errors) == 0 && !v.Pending }
