// Package openapi adapts an OpenAPI schema into the engine's submit-time
// overlay contract. Findings land in the segregated overlay report, never in
// the live per-field verdicts.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	formline "github.com/formline/formline"
)

// Overlay validates a model snapshot against an openapi3.Schema at submit.
type Overlay struct {
	schema *openapi3.Schema
}

// New wraps an already-built schema.
func New(schema *openapi3.Schema) *Overlay {
	return &Overlay{schema: schema}
}

// FromJSON builds an Overlay from a raw JSON schema definition.
func FromJSON(data []byte) (*Overlay, error) {
	var s openapi3.Schema
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("overlay/openapi: parse schema: %w", err)
	}
	return &Overlay{schema: &s}, nil
}

// Validate runs the schema against the snapshot and translates every
// SchemaError into an OverlayIssue with a canonical dot path.
func (o *Overlay) Validate(ctx context.Context, snapshot any) (*formline.OverlayReport, error) {
	if o.schema == nil {
		return &formline.OverlayReport{Success: true}, nil
	}
	err := o.schema.VisitJSON(snapshot, openapi3.MultiErrors())
	if err == nil {
		return &formline.OverlayReport{Success: true}, nil
	}
	rep := &formline.OverlayReport{}
	collect(err, rep)
	if len(rep.Issues) == 0 {
		// Non-schema failure (malformed schema, unsupported construct).
		return nil, err
	}
	return rep, nil
}

func collect(err error, rep *formline.OverlayReport) {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			collect(e, rep)
		}
		return
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		rep.Issues = append(rep.Issues, formline.OverlayIssue{
			Path:    strings.Join(se.JSONPointer(), "."),
			Message: se.Reason,
		})
	}
	// Anything else is not a schema finding; the caller surfaces the raw error.
}
