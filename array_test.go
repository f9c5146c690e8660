package formline_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	formline "github.com/formline/formline"
	"github.com/formline/formline/rules"
)

func newItemsForm(t *testing.T, opts ...formline.Option) *formline.Form {
	t.Helper()
	return formline.New(map[string]any{
		"items": []any{
			map[string]any{"sku": "X"},
			map[string]any{"sku": "Y"},
			map[string]any{"sku": "Z"},
		},
	}, opts...)
}

func TestArray_RemoveReindexesAccessors(t *testing.T) {
	f := newItemsForm(t)
	defer f.Close()
	ctx := context.Background()

	items := f.Array("items")
	sku2 := f.Field("items.2.sku")
	if got := sku2.Value(); got != "Z" {
		t.Fatalf("precondition: items.2.sku = %v", got)
	}

	if err := items.RemoveAt(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if got := items.Len(); got != 2 {
		t.Fatalf("expected 2 elements, got %d", got)
	}
	// The accessor previously bound to index 2 migrated to index 1 and still
	// reflects Z's row: identity is preserved, never stale X/old-Z confusion.
	if sku2 != f.Field("items.1.sku") {
		t.Fatalf("shifted accessor must keep identity under its new index")
	}
	if got := sku2.Value(); got != "Z" {
		t.Fatalf("shifted accessor must reflect Z's data, got %v", got)
	}
	want := map[string]any{"items": []any{
		map[string]any{"sku": "X"},
		map[string]any{"sku": "Z"},
	}}
	if diff := cmp.Diff(want, f.Model()); diff != "" {
		t.Fatalf("model mismatch (-want +got):\n%s", diff)
	}
}

func TestArray_RemoveDropsRemovedRowState(t *testing.T) {
	f := newItemsForm(t)
	defer f.Close()
	ctx := context.Background()

	items := f.Array("items")
	doomed := f.Field("items.1.sku")
	doomed.Touch()

	if err := items.RemoveAt(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// A fresh accessor now owns items.1; the removed row's state is gone.
	if f.Field("items.1.sku").Touched() {
		t.Fatalf("state of the removed row must not leak onto its successor")
	}
}

func TestArray_PushValidatesNewIndexAndList(t *testing.T) {
	set := rules.NewSet().
		Field("items", rules.UniqueBy("sku", "duplicate sku")).
		Field("items.*.sku", rules.Required("sku required"))
	f := newItemsForm(t,
		formline.WithValidator(set.Validator()),
	)
	defer f.Close()
	ctx := context.Background()

	items := f.Array("items")
	if err := items.Push(ctx, map[string]any{"sku": ""}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if got := f.Field("items.3.sku").Errors(); len(got) != 1 || got[0] != "sku required" {
		t.Fatalf("new element must be validated, got %v", got)
	}

	if err := items.Push(ctx, map[string]any{"sku": "X"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if got := f.Field("items").Errors(); len(got) != 1 || got[0] != "duplicate sku" {
		t.Fatalf("list-level rule must see the post-mutation sequence, got %v", got)
	}
}

func TestArray_InsertShiftsVerdicts(t *testing.T) {
	set := rules.NewSet().Field("items.*.sku", rules.Required("sku required"))
	f := formline.New(map[string]any{
		"items": []any{map[string]any{"sku": ""}},
	}, formline.WithValidator(set.Validator()))
	defer f.Close()
	ctx := context.Background()

	f.Validate(ctx, "")
	if got := f.Field("items.0.sku").Errors(); len(got) != 1 {
		t.Fatalf("precondition: empty sku invalid, got %v", got)
	}

	items := f.Array("items")
	if err := items.InsertAt(ctx, 0, map[string]any{"sku": "A"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := f.Field("items.0.sku").Errors(); len(got) != 0 {
		t.Fatalf("inserted valid row must be clean, got %v", got)
	}
	if got := f.Field("items.1.sku").Errors(); len(got) != 1 {
		t.Fatalf("shifted row must carry its verdict to the new index, got %v", got)
	}
}

func TestArray_MoveToRelocatesRows(t *testing.T) {
	f := newItemsForm(t)
	defer f.Close()
	ctx := context.Background()

	items := f.Array("items")
	first := f.Field("items.0.sku")
	if err := items.MoveTo(ctx, 0, 2); err != nil {
		t.Fatalf("move: %v", err)
	}

	want := map[string]any{"items": []any{
		map[string]any{"sku": "Y"},
		map[string]any{"sku": "Z"},
		map[string]any{"sku": "X"},
	}}
	if diff := cmp.Diff(want, f.Model()); diff != "" {
		t.Fatalf("model mismatch (-want +got):\n%s", diff)
	}
	if first != f.Field("items.2.sku") {
		t.Fatalf("moved accessor must keep identity at its destination")
	}
	if got := first.Value(); got != "X" {
		t.Fatalf("moved accessor must reflect X's data, got %v", got)
	}
}

func TestArray_OutOfRangeIsLoud(t *testing.T) {
	f := newItemsForm(t)
	defer f.Close()
	ctx := context.Background()

	items := f.Array("items")
	if err := items.RemoveAt(ctx, 7); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if err := items.MoveTo(ctx, 0, -1); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}
