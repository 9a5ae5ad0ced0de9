package ports

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/aretw0/weft/pkg/domain"
)

// FillRequest is what a filler receives to produce a frame's remaining fields.
type FillRequest struct {
	RunID string
	// Frame is the frame name, which doubles as the production instruction.
	Frame       string
	Instruction string
	// Schema is the reduced description: only the fields the filler owns.
	Schema *jsonschema.Schema
	// Populated is a read-only view of the values the frame already holds.
	Populated map[string]any
	History   domain.History
}

// Candidate is one possible successor offered in a Decision.
type Candidate struct {
	Name        string
	Instruction string
	Schema      *jsonschema.Schema
}

// ChooseRequest asks the filler to select the next frame type.
type ChooseRequest struct {
	RunID      string
	Current    domain.FrameInstance
	Candidates []Candidate
	History    domain.History
}

// Filler is the external generation capability (typically an LLM backend).
// Both calls may block and may fail; a failure ends the run.
type Filler interface {
	// Fill returns values for the fields described by req.Schema, keyed by
	// external field name.
	Fill(ctx context.Context, req FillRequest) (map[string]any, error)

	// Choose returns the name of one of req.Candidates.
	Choose(ctx context.Context, req ChooseRequest) (string, error)
}

// GateRequest describes a gate field waiting for external input.
type GateRequest struct {
	RunID   string
	Frame   string
	Field   domain.Field
	History domain.History
}

// Gate supplies gate field values. Await blocks until input is available or
// ctx is done.
type Gate interface {
	Await(ctx context.Context, req GateRequest) (any, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, req GateRequest) (any, error)

func (f GateFunc) Await(ctx context.Context, req GateRequest) (any, error) { return f(ctx, req) }
