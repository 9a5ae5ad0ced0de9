package dsl

import (
	"fmt"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
)

// FrameBuilder provides a fluent API for configuring a frame.
type FrameBuilder struct {
	proto       any
	name        string
	instruction string
	response    string
	next        []any
	decide      bool
	builder     *Builder
}

// Named overrides the frame name (default: the Go type name).
func (f *FrameBuilder) Named(name string) *FrameBuilder {
	f.name = name
	return f
}

// Instruct attaches a production instruction longer than the frame name.
func (f *FrameBuilder) Instruct(text string) *FrameBuilder {
	f.instruction = text
	return f
}

// Next declares the successors as prototypes or frame names. A nil entry only
// marks the successor as optional. One successor continues directly; several
// let the filler decide.
func (f *FrameBuilder) Next(successors ...any) *FrameBuilder {
	f.next = append(f.next, successors...)
	return f
}

// Decide declares a decision between two or more successors.
func (f *FrameBuilder) Decide(candidates ...any) *FrameBuilder {
	f.decide = true
	return f.Next(candidates...)
}

// Terminal removes every declared successor.
func (f *FrameBuilder) Terminal() *FrameBuilder {
	f.next = nil
	f.decide = false
	return f
}

// Respond selects the field returned as run response when this frame ends a run.
func (f *FrameBuilder) Respond(field string) *FrameBuilder {
	f.response = field
	return f
}

// Frame continues with another frame of the same builder.
func (f *FrameBuilder) Frame(proto any) *FrameBuilder {
	return f.builder.Frame(proto)
}

func (f *FrameBuilder) options() []frame.Option {
	var opts []frame.Option
	if f.name != "" {
		opts = append(opts, frame.WithName(f.name))
	}
	if f.instruction != "" {
		opts = append(opts, frame.WithInstruction(f.instruction))
	}
	if f.response != "" {
		opts = append(opts, frame.WithResponse(f.response))
	}
	return opts
}

func (f *FrameBuilder) wire(reg *frame.Registry, name string) error {
	routing, err := reg.Successors(f.next...)
	if err != nil {
		return &domain.DefinitionError{Frame: name, Reason: fmt.Sprintf("successor: %v", err), Err: err}
	}
	if f.decide && routing.Kind != domain.RoutingDecision {
		return &domain.DefinitionError{Frame: name, Reason: fmt.Sprintf("a decision needs two or more successors, got %s", routing)}
	}
	return reg.SetRouting(name, routing)
}
