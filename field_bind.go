package formline

import (
	"reflect"
	"strings"
)

// ResolveStructKey applies the repository-wide rule to resolve a struct
// field's external key used by path binding and the snapshot round-trip.
// Priority: formline:"name=..." > json tag name > field name; "-" disables
// the field.
func ResolveStructKey(sf reflect.StructField) string {
	if gt := sf.Tag.Get("formline"); gt != "" {
		for _, p := range strings.Split(gt, ",") {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(p, "name=") {
				return strings.TrimPrefix(p, "name=")
			}
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-"
		}
		if i := strings.IndexByte(jt, ','); i >= 0 {
			return jt[:i]
		}
		return jt
	}
	return sf.Name
}

// PathFor resolves a nested struct field of T to its canonical dot path using
// a selector, guaranteeing compile-time linkage to the field:
//
//	PathFor[Signup](func(s *Signup) *string { return &s.Account.Email })
//	// -> "account.email"
//
// Limitations: only descends through non-pointer struct fields.
func PathFor[T any, F any](selector func(*T) *F) string {
	if selector == nil {
		panic("formline.PathFor: selector must not be nil")
	}
	var zero T
	target := reflect.ValueOf(selector(&zero)).Pointer()
	// The field's type disambiguates offset-0 aliasing: a struct and its
	// first field share an address.
	ft := reflect.TypeOf((*F)(nil)).Elem()
	keys, ok := findPathKeys(reflect.ValueOf(&zero).Elem(), target, ft, 0)
	if !ok || len(keys) == 0 {
		panic("formline.PathFor: selector must address a nested struct field (non-pointer)")
	}
	return strings.Join(keys, ".")
}

// Bind returns the session's cached accessor for the field selected from T.
// This is pure sugar over Form.Field: two binds of the same field, or a bind
// and a string-path lookup, return the identical accessor.
func Bind[T any, F any](f *Form, selector func(*T) *F) *Field {
	return f.Field(PathFor(selector))
}

const _maxBindDepth = 32

func findPathKeys(v reflect.Value, target uintptr, ft reflect.Type, depth int) ([]string, bool) {
	if depth > _maxBindDepth {
		return nil, false
	}
	t := v.Type()
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := v.Field(i)
		if !fv.CanAddr() {
			continue
		}
		name := ResolveStructKey(sf)
		if name == "" || name == "-" {
			continue
		}
		if fv.Addr().Pointer() == target && fv.Type() == ft {
			return []string{name}, true
		}
		if fv.Kind() == reflect.Struct {
			if rest, ok := findPathKeys(fv, target, ft, depth+1); ok {
				return append([]string{name}, rest...), true
			}
		}
	}
	return nil, false
}
