package formline_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	formline "github.com/formline/formline"
)

func TestCanonicalPath(t *testing.T) {
	got, err := formline.CanonicalPath("items[2].price")
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if got != "items.2.price" {
		t.Fatalf("canonical = %q", got)
	}

	_, err = formline.CanonicalPath("a..b")
	if err == nil {
		t.Fatalf("expected error for malformed path")
	}
	iss, ok := formline.AsIssues(err)
	if !ok || iss[0].Code != formline.CodeBadPath {
		t.Fatalf("expected bad_path issue, got %v", err)
	}
}

func TestGetSetRemoveRoundTrip(t *testing.T) {
	model, err := formline.Set(nil, "user.tags.1", "go")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok := formline.Get(model, "user.tags[1]")
	if !ok || v != "go" {
		t.Fatalf("get = %v %v", v, ok)
	}
	model, err = formline.Remove(model, "user.tags.0")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	want := map[string]any{"user": map[string]any{"tags": []any{"go"}}}
	if diff := cmp.Diff(want, model); diff != "" {
		t.Fatalf("model mismatch (-want +got):\n%s", diff)
	}
}

func TestLeafPaths(t *testing.T) {
	model := map[string]any{"a": map[string]any{"b": 1}, "c": []any{true}}
	got := formline.LeafPaths(model)
	want := []string{"a.b", "c.0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("leaf paths mismatch (-want +got):\n%s", diff)
	}
}
