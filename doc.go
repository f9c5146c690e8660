// Package formline provides:
//
// - A reactive form-validation engine over an arbitrarily nested model (Form/Field/ArrayField)
// - Canonical dot-path addressing with get/set/remove and leaf enumeration (Path)
// - A validation scheduler with debounced cross-field dependencies, single-flight async runs,
//   and cycle-safe re-triggering
// - A stable error model via Issues (path, code, message)
// - Display strategies deciding when errors become visible (immediate/on-touch/on-submit/manual)
//
// Design policy:
// - Keep only public APIs in the root package; put traversal detail under internal/.
// - Place the declarative rule library under rules/, schema overlays under overlay/,
//   translations under i18n/, and the CLI under cmd/formline.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	f := formline.New(map[string]any{"email": ""},
//	    formline.WithValidator(v),
//	    formline.WithStrategy(formline.ShowOnTouch))
//	defer f.Close()
//
//	email := f.Field("email")
//	email.Set(ctx, formline.InputEvent{Value: "a@b.example"})
//	res, err := f.Submit(ctx)
package formline
