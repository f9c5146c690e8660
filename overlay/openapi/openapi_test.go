package openapi_test

import (
	"context"
	"testing"

	"github.com/formline/formline/overlay/openapi"
)

const signupSchema = `{
	"type": "object",
	"required": ["email"],
	"properties": {
		"email": {"type": "string"},
		"age": {"type": "integer", "minimum": 0}
	}
}`

func TestOverlay_ValidSnapshot(t *testing.T) {
	ov, err := openapi.FromJSON([]byte(signupSchema))
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	rep, err := ov.Validate(context.Background(), map[string]any{"email": "a@b.example", "age": 30.0})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !rep.Success || len(rep.Issues) != 0 {
		t.Fatalf("expected success, got %+v", rep)
	}
}

func TestOverlay_CollectsIssues(t *testing.T) {
	ov, err := openapi.FromJSON([]byte(signupSchema))
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	rep, err := ov.Validate(context.Background(), map[string]any{"age": -1.0})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rep.Success {
		t.Fatalf("expected failure report")
	}
	if len(rep.Issues) == 0 {
		t.Fatalf("expected at least one issue")
	}
	for _, is := range rep.Issues {
		if is.Message == "" {
			t.Fatalf("issues must carry a message: %+v", rep.Issues)
		}
	}
}

func TestOverlay_BadSchemaJSON(t *testing.T) {
	if _, err := openapi.FromJSON([]byte("{not json")); err == nil {
		t.Fatalf("expected parse error")
	}
}
