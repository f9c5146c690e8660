package rules_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	formline "github.com/formline/formline"
	"github.com/formline/formline/rules"
)

func runWhole(t *testing.T, set *rules.Set, model any) formline.Report {
	t.Helper()
	rep, err := set.Validator()(context.Background(), model, "")
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	return rep
}

func TestSet_WholeModelRun(t *testing.T) {
	set := rules.NewSet().
		Field("email", rules.Required("email required"), rules.Email("not an email")).
		Field("age", rules.Min(18, "too young"))
	model := map[string]any{"email": "nope", "age": float64(12)}

	rep := runWhole(t, set, model)
	if got := rep["email"].Errors; len(got) != 1 || got[0] != "not an email" {
		t.Fatalf("email errors = %v", got)
	}
	if got := rep["age"].Errors; len(got) != 1 || got[0] != "too young" {
		t.Fatalf("age errors = %v", got)
	}
}

func TestSet_RequiredFiresOnAbsentPath(t *testing.T) {
	set := rules.NewSet().Field("profile.name", rules.Required("name required"))
	rep := runWhole(t, set, map[string]any{})
	if got := rep["profile.name"].Errors; len(got) != 1 {
		t.Fatalf("required must fire on a path missing from the model, got %v", got)
	}
}

func TestSet_WildcardExpandsOverRows(t *testing.T) {
	set := rules.NewSet().Field("items.*.sku", rules.Required("sku required"))
	model := map[string]any{"items": []any{
		map[string]any{"sku": "A"},
		map[string]any{"sku": ""},
		map[string]any{},
	}}

	rep := runWhole(t, set, model)
	if _, ok := rep["items.0.sku"]; ok {
		t.Fatalf("valid row must not be reported")
	}
	for _, p := range []string{"items.1.sku", "items.2.sku"} {
		if got := rep[p].Errors; len(got) != 1 {
			t.Fatalf("%s errors = %v", p, got)
		}
	}
}

func TestSet_ScopedRunCoversDescendants(t *testing.T) {
	set := rules.NewSet().Field("items.*.sku", rules.Required("sku required"))
	model := map[string]any{"items": []any{map[string]any{"sku": ""}}}

	rep, err := set.Validator()(context.Background(), model, "items.0")
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	if got := rep["items.0.sku"].Errors; len(got) != 1 {
		t.Fatalf("scoped run must evaluate descendant patterns, got %+v", rep)
	}

	rep, err = set.Validator()(context.Background(), model, "unrelated")
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	if len(rep) != 0 {
		t.Fatalf("unrelated scope must report nothing, got %+v", rep)
	}
}

func TestConditional_GatesRules(t *testing.T) {
	set := rules.NewSet().Field("company",
		rules.If("plan", rules.Eq, "business").Then(rules.Required("company required")),
	)

	rep := runWhole(t, set, map[string]any{"plan": "personal", "company": ""})
	if len(rep) != 0 {
		t.Fatalf("condition not met, got %+v", rep)
	}

	rep = runWhole(t, set, map[string]any{"plan": "business", "company": ""})
	if got := rep["company"].Errors; len(got) != 1 || got[0] != "company required" {
		t.Fatalf("condition met, got %v", got)
	}
}

func TestConditional_NumericComparesAcrossIntAndFloat(t *testing.T) {
	set := rules.NewSet().Field("discount",
		rules.If("total", rules.Ge, 100).Then(rules.Required("discount code required")),
	)
	// JSON round-trips widen numbers to float64; the comparison must not care.
	rep := runWhole(t, set, map[string]any{"total": float64(150)})
	if got := rep["discount"].Errors; len(got) != 1 {
		t.Fatalf("expected gated rule to fire, got %+v", rep)
	}
}

func TestListRules(t *testing.T) {
	set := rules.NewSet().Field("items",
		rules.AtLeastOne("add at least one item"),
		rules.UniqueBy("sku", "duplicate sku"),
		rules.MaxItems(3, "too many items"),
	)

	rep := runWhole(t, set, map[string]any{"items": []any{}})
	if got := rep["items"].Errors; len(got) != 1 || got[0] != "add at least one item" {
		t.Fatalf("empty list, got %v", got)
	}

	rep = runWhole(t, set, map[string]any{"items": []any{
		map[string]any{"sku": "A"},
		map[string]any{"sku": "A"},
	}})
	if got := rep["items"].Errors; len(got) != 1 || got[0] != "duplicate sku" {
		t.Fatalf("duplicate, got %v", got)
	}
}

func TestWarningsStaySeparate(t *testing.T) {
	set := rules.NewSet().Field("nickname", rules.MinLen(3, "a bit short").AsWarning())
	rep := runWhole(t, set, map[string]any{"nickname": "ab"})
	fr := rep["nickname"]
	if len(fr.Errors) != 0 || len(fr.Warnings) != 1 {
		t.Fatalf("expected warning-only report, got %+v", fr)
	}
}

func TestAsyncRule_ReportsPendingThenResolves(t *testing.T) {
	set := rules.NewSet().Field("handle",
		rules.Required("handle required"),
		rules.Async("handle_taken", func(ctx context.Context, v rules.Value) (string, error) {
			if v.Value == "taken" {
				return "handle already taken", nil
			}
			return "", nil
		}),
	)
	rep := runWhole(t, set, map[string]any{"handle": "taken"})
	fr := rep["handle"]
	if !fr.Pending || fr.Resolve == nil {
		t.Fatalf("expected pending report with resolver, got %+v", fr)
	}
	final, err := fr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(final.Errors) != 1 || final.Errors[0] != "handle already taken" {
		t.Fatalf("resolved errors = %v", final.Errors)
	}
}

func TestParse_BuildsSetAndDependents(t *testing.T) {
	config := []byte(`
dependents:
  password: [password_confirm]
fields:
  email:
    - rule: required
    - rule: email
  password_confirm:
    - rule: required
      message: please confirm your password
  items:
    - rule: at_least_one
    - rule: unique_by
      param: sku
  items.*.qty:
    - rule: min
      param: 1
      warn: true
`)
	set, err := rules.Parse(config)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := map[string][]string{"password": {"password_confirm"}}
	if diff := cmp.Diff(want, set.Dependents()); diff != "" {
		t.Fatalf("dependents mismatch (-want +got):\n%s", diff)
	}

	rep := runWhole(t, set, map[string]any{
		"email":            "",
		"password":         "hunter2",
		"password_confirm": "",
		"items": []any{
			map[string]any{"sku": "A", "qty": float64(0)},
		},
	})
	if got := rep["password_confirm"].Errors; len(got) != 1 || got[0] != "please confirm your password" {
		t.Fatalf("custom message lost: %v", got)
	}
	if got := rep["items.0.qty"].Warnings; len(got) != 1 {
		t.Fatalf("warn flag lost: %+v", rep["items.0.qty"])
	}
	if got := rep["email"].Errors; len(got) == 0 {
		t.Fatalf("expected required error for email")
	}
}

func TestParse_RejectsUnknownRule(t *testing.T) {
	_, err := rules.Parse([]byte("fields:\n  a:\n    - rule: frobnicate\n"))
	if err == nil {
		t.Fatalf("expected error for unknown rule name")
	}
}
