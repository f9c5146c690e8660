package formline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	formline "github.com/formline/formline"
	"github.com/formline/formline/rules"
)

func TestSubmit_InvalidFormIsAValueNotAnError(t *testing.T) {
	set := rules.NewSet().Field("email", rules.Required("email is required"))
	f := formline.New(map[string]any{"email": ""}, formline.WithValidator(set.Validator()))
	defer f.Close()

	res, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("invalid submission must not error: %v", err)
	}
	if res.OK {
		t.Fatalf("expected OK=false")
	}
	if res.Data != nil {
		t.Fatalf("invalid submission must not carry data")
	}
	if len(res.Issues) != 1 || res.Issues[0].Path != "email" || res.Issues[0].Message != "email is required" {
		t.Fatalf("expected the failing path enumerated, got %+v", res.Issues)
	}
	if !f.Submitted() {
		t.Fatalf("submitted must be true after an invalid submission")
	}
	if f.Submitting() {
		t.Fatalf("submitting must be false after Submit returns")
	}
}

func TestSubmit_ValidFormReturnsData(t *testing.T) {
	set := rules.NewSet().Field("email", rules.Required())
	f := formline.New(map[string]any{"email": "a@b.example"}, formline.WithValidator(set.Validator()))
	defer f.Close()

	res, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got issues %+v", res.Issues)
	}
	want := map[string]any{"email": "a@b.example"}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_AwaitsPendingAsyncVerdicts(t *testing.T) {
	set := rules.NewSet().Field("handle",
		rules.Async("handle_taken", func(ctx context.Context, v rules.Value) (string, error) {
			time.Sleep(30 * time.Millisecond)
			return "handle already taken", nil
		}),
	)
	f := formline.New(map[string]any{"handle": "ada"}, formline.WithValidator(set.Validator()))
	defer f.Close()

	res, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.OK {
		t.Fatalf("submit must await async verdicts before deciding")
	}
	if len(res.Issues) != 1 || res.Issues[0].Message != "handle already taken" {
		t.Fatalf("expected the async finding, got %+v", res.Issues)
	}
}

type stubOverlay struct {
	report *formline.OverlayReport
}

func (s stubOverlay) Validate(ctx context.Context, snapshot any) (*formline.OverlayReport, error) {
	return s.report, nil
}

func TestSubmit_OverlayStaysSegregated(t *testing.T) {
	overlay := stubOverlay{report: &formline.OverlayReport{
		Success: false,
		Issues:  []formline.OverlayIssue{{Path: "email", Message: "does not match schema"}},
	}}
	f := formline.New(map[string]any{"email": "a@b.example"}, formline.WithOverlay(overlay))
	defer f.Close()

	res, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.OK {
		t.Fatalf("a failing overlay must fail the submission")
	}
	if len(res.Issues) != 0 {
		t.Fatalf("overlay findings must not leak into per-field issues, got %+v", res.Issues)
	}
	if res.Overlay == nil || len(res.Overlay.Issues) != 1 {
		t.Fatalf("expected the segregated overlay report, got %+v", res.Overlay)
	}
	// Live per-field verdicts are untouched by the overlay.
	if got := f.Field("email").Errors(); len(got) != 0 {
		t.Fatalf("overlay must not feed live verdicts, got %v", got)
	}
}

func TestNew_UnsnapshotableModelEmitsDiagnostic(t *testing.T) {
	var diags []formline.Diagnostic
	var mu sync.Mutex
	f := formline.New(map[string]any{"ch": make(chan int)},
		formline.WithDiagnostic(func(d formline.Diagnostic) {
			mu.Lock()
			diags = append(diags, d)
			mu.Unlock()
		}),
	)
	defer f.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(diags) == 0 || diags[0].Op != "snapshot" {
		t.Fatalf("a model the codec rejects must emit a snapshot diagnostic, got %+v", diags)
	}
	for _, d := range diags {
		if d.Err == nil {
			t.Fatalf("snapshot diagnostics must carry the codec error, got %+v", d)
		}
	}
}

func TestReset_IsIdempotent(t *testing.T) {
	set := rules.NewSet().Field("email", rules.Required())
	f := formline.New(map[string]any{"email": ""}, formline.WithValidator(set.Validator()))
	defer f.Close()
	ctx := context.Background()

	email := f.Field("email")
	email.Touch()
	if err := email.Set(ctx, "a@b.example"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := f.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	f.Reset(ctx)
	model1 := f.Model()
	verdicts1 := f.Errors()
	f.Reset(ctx)

	if diff := cmp.Diff(model1, f.Model()); diff != "" {
		t.Fatalf("double reset changed the model (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(verdicts1, f.Errors()); diff != "" {
		t.Fatalf("double reset changed the verdicts (-first +second):\n%s", diff)
	}
	if f.Submitted() {
		t.Fatalf("reset clears submission state")
	}
	if email.Touched() || email.Dirty() {
		t.Fatalf("reset clears interaction state")
	}
	if got := email.Value(); got != "" {
		t.Fatalf("reset restores the initial model, got %v", got)
	}
}

func TestReset_ToExplicitValue(t *testing.T) {
	f := formline.New(map[string]any{"email": ""})
	defer f.Close()
	ctx := context.Background()

	f.Reset(ctx, map[string]any{"email": "seed@example.com"})
	if got := f.Field("email").Value(); got != "seed@example.com" {
		t.Fatalf("reset to explicit value, got %v", got)
	}
	// The explicit value becomes the new baseline for subsequent resets.
	f.Reset(ctx)
	if got := f.Field("email").Value(); got != "seed@example.com" {
		t.Fatalf("baseline must stick, got %v", got)
	}
}

func TestFormAggregates(t *testing.T) {
	set := rules.NewSet().
		Field("email", rules.Required("email is required")).
		Field("nickname", rules.MinLen(3).AsWarning())
	f := formline.New(map[string]any{"email": "", "nickname": "ab"},
		formline.WithValidator(set.Validator()))
	defer f.Close()

	f.Validate(context.Background(), "")

	if f.Valid() {
		t.Fatalf("expected invalid form")
	}
	errs := f.Errors()
	if len(errs) != 1 || errs["email"][0] != "email is required" {
		t.Fatalf("unexpected errors: %v", errs)
	}
	warns := f.Warnings()
	if len(warns) != 1 || len(warns["nickname"]) != 1 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	// Warnings alone do not invalidate a field.
	if got := f.Field("nickname").Valid(); !got {
		t.Fatalf("warning-only field must stay valid")
	}
}
