// Package pathutil implements canonical dot-path parsing and traversal over
// nested models built from map[string]any, []any and scalars. The public
// surface of the root package re-exports the operations; callers outside this
// module never import pathutil directly.
package pathutil

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Segment is one step of a parsed path: either an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Parse splits a path into segments. Both dot form ("items.2.price") and
// bracket form ("items[2].price") are accepted; bracket content must be a
// non-negative integer. Empty paths and empty segments are rejected.
func Parse(path string) ([]Segment, error) {
	if path == "" {
		return nil, fmt.Errorf("pathutil: empty path")
	}
	var segs []Segment
	i := 0
	n := len(path)
	expectSeg := true
	for i < n {
		switch path[i] {
		case '.':
			if expectSeg {
				return nil, fmt.Errorf("pathutil: empty segment in %q", path)
			}
			expectSeg = true
			i++
		case '[':
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				return nil, fmt.Errorf("pathutil: unterminated index in %q", path)
			}
			raw := path[i+1 : i+j]
			idx, err := strconv.Atoi(raw)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("pathutil: bad index %q in %q", raw, path)
			}
			segs = append(segs, Segment{Index: idx, IsIndex: true})
			expectSeg = false
			i += j + 1
		default:
			j := i
			for j < n && path[j] != '.' && path[j] != '[' {
				j++
			}
			seg := path[i:j]
			if seg == "" {
				return nil, fmt.Errorf("pathutil: empty segment in %q", path)
			}
			if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
				segs = append(segs, Segment{Index: idx, IsIndex: true})
			} else {
				segs = append(segs, Segment{Key: seg})
			}
			expectSeg = false
			i = j
		}
	}
	if expectSeg {
		return nil, fmt.Errorf("pathutil: empty segment in %q", path)
	}
	return segs, nil
}

// Canonical renders a path in its canonical dot form. Equivalent bracket and
// dot spellings canonicalize to the same string, which keeps accessor-cache
// lookups stable.
func Canonical(path string) (string, error) {
	segs, err := Parse(path)
	if err != nil {
		return "", err
	}
	return Join(segs), nil
}

// Join renders segments into the canonical dot form.
func Join(segs []Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Get resolves a value. The second result reports whether the full path exists.
func Get(model any, segs []Segment) (any, bool) {
	cur := model
	for _, seg := range segs {
		switch v := cur.(type) {
		case map[string]any:
			if seg.IsIndex {
				// Numeric map keys are legal: dot paths are uniform for keys
				// and indices, the container decides the interpretation.
				nv, ok := v[seg.String()]
				if !ok {
					return nil, false
				}
				cur = nv
				continue
			}
			nv, ok := v[seg.Key]
			if !ok {
				return nil, false
			}
			cur = nv
		case []any:
			if !seg.IsIndex {
				return nil, false
			}
			if seg.Index < 0 || seg.Index >= len(v) {
				return nil, false
			}
			cur = v[seg.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set writes a value, creating intermediate containers along the way: a
// numeric next segment materializes a slice, anything else a map. Writing an
// index past the end of a slice extends it with nil holes. The returned root
// must replace the caller's model reference (slice growth reallocates).
// Writing through a scalar is a structural error.
func Set(model any, segs []Segment, value any) (any, error) {
	if len(segs) == 0 {
		return value, nil
	}
	return setIn(model, segs, value)
}

func setIn(cur any, segs []Segment, value any) (any, error) {
	seg := segs[0]
	rest := segs[1:]

	if cur == nil {
		if seg.IsIndex {
			cur = []any{}
		} else {
			cur = map[string]any{}
		}
	}

	switch v := cur.(type) {
	case map[string]any:
		key := seg.String()
		if len(rest) == 0 {
			v[key] = value
			return v, nil
		}
		child, err := setIn(v[key], rest, value)
		if err != nil {
			return nil, err
		}
		v[key] = child
		return v, nil
	case []any:
		if !seg.IsIndex {
			return nil, fmt.Errorf("pathutil: key %q into array", seg.Key)
		}
		for len(v) <= seg.Index {
			v = append(v, nil)
		}
		if len(rest) == 0 {
			v[seg.Index] = value
			return v, nil
		}
		child, err := setIn(v[seg.Index], rest, value)
		if err != nil {
			return nil, err
		}
		v[seg.Index] = child
		return v, nil
	default:
		return nil, fmt.Errorf("pathutil: cannot descend through %T at %q", cur, seg.String())
	}
}

// Remove deletes the addressed location. Map keys are deleted; array elements
// are spliced out, shifting later elements down. Missing paths are a no-op.
func Remove(model any, segs []Segment) (any, error) {
	if len(segs) == 0 {
		return nil, nil
	}
	return removeIn(model, segs)
}

func removeIn(cur any, segs []Segment) (any, error) {
	seg := segs[0]
	rest := segs[1:]

	switch v := cur.(type) {
	case map[string]any:
		key := seg.String()
		if len(rest) == 0 {
			delete(v, key)
			return v, nil
		}
		child, ok := v[key]
		if !ok {
			return v, nil
		}
		nc, err := removeIn(child, rest)
		if err != nil {
			return nil, err
		}
		v[key] = nc
		return v, nil
	case []any:
		if !seg.IsIndex {
			return nil, fmt.Errorf("pathutil: key %q into array", seg.Key)
		}
		if seg.Index < 0 || seg.Index >= len(v) {
			return v, nil
		}
		if len(rest) == 0 {
			return append(v[:seg.Index], v[seg.Index+1:]...), nil
		}
		nc, err := removeIn(v[seg.Index], rest)
		if err != nil {
			return nil, err
		}
		v[seg.Index] = nc
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("pathutil: cannot descend through %T at %q", cur, seg.String())
	}
}

// LeafPaths enumerates every scalar location in canonical form, one pass.
// Map keys are visited in sorted order for deterministic output; array
// elements positionally. Empty containers are themselves leaves.
func LeafPaths(model any) []string {
	var out []string
	walkLeaves(model, nil, &out)
	return out
}

func walkLeaves(cur any, prefix []Segment, out *[]string) {
	switch v := cur.(type) {
	case map[string]any:
		if len(v) == 0 {
			if len(prefix) > 0 {
				*out = append(*out, Join(prefix))
			}
			return
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkLeaves(v[k], append(prefix, Segment{Key: k}), out)
		}
	case []any:
		if len(v) == 0 {
			if len(prefix) > 0 {
				*out = append(*out, Join(prefix))
			}
			return
		}
		for i, e := range v {
			walkLeaves(e, append(prefix, Segment{Index: i, IsIndex: true}), out)
		}
	default:
		if len(prefix) > 0 {
			*out = append(*out, Join(prefix))
		}
	}
}
