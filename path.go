package formline

import (
	"github.com/formline/formline/internal/pathutil"
)

// CanonicalPath normalizes a path to its canonical dot form ("items[2].price"
// and "items.2.price" render identically). Malformed paths (empty segments,
// non-numeric bracket indices) yield a bad_path Issue; they are programmer
// errors and are never silently repaired.
func CanonicalPath(path string) (string, error) {
	c, err := pathutil.Canonical(path)
	if err != nil {
		return "", AppendIssues(nil, Issue{Code: CodeBadPath, Path: path, Message: err.Error(), Cause: err})
	}
	return c, nil
}

// Get resolves the value at path within model. The bool reports existence.
func Get(model any, path string) (any, bool) {
	segs, err := pathutil.Parse(path)
	if err != nil {
		return nil, false
	}
	return pathutil.Get(model, segs)
}

// Set writes value at path, creating intermediate containers as needed and
// extending arrays with nil holes when the index is past the end. The
// returned model must replace the caller's reference. Structural misuse
// (descending through a scalar, keying into an array) fails loudly.
func Set(model any, path string, value any) (any, error) {
	segs, err := pathutil.Parse(path)
	if err != nil {
		return nil, AppendIssues(nil, Issue{Code: CodeBadPath, Path: path, Message: err.Error(), Cause: err})
	}
	next, err := pathutil.Set(model, segs, value)
	if err != nil {
		return nil, AppendIssues(nil, Issue{Code: CodeBadPath, Path: path, Message: err.Error(), Cause: err})
	}
	return next, nil
}

// MustSet is Set for statically known paths; structural errors panic.
func MustSet(model any, path string, value any) any {
	next, err := Set(model, path, value)
	if err != nil {
		panic("formline: " + err.Error())
	}
	return next
}

// Remove deletes the location at path. Removing a missing path is a no-op.
func Remove(model any, path string) (any, error) {
	segs, err := pathutil.Parse(path)
	if err != nil {
		return nil, AppendIssues(nil, Issue{Code: CodeBadPath, Path: path, Message: err.Error(), Cause: err})
	}
	next, err := pathutil.Remove(model, segs)
	if err != nil {
		return nil, AppendIssues(nil, Issue{Code: CodeBadPath, Path: path, Message: err.Error(), Cause: err})
	}
	return next, nil
}

// LeafPaths enumerates every scalar location of model in canonical form.
func LeafPaths(model any) []string {
	return pathutil.LeafPaths(model)
}
