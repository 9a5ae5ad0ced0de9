package dsl

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
)

// Flow is a validated set of frames and dependency functions.
type Flow struct {
	Name string
	// Start is the first declared frame, used when a run names no start.
	Start  string
	Frames *frame.Registry
	Deps   *dependency.Catalog
}

// Builder manages the flow construction.
type Builder struct {
	name   string
	frames []*FrameBuilder
	byType map[reflect.Type]*FrameBuilder
	deps   []*dependency.Definition
}

// New creates a new flow builder.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		byType: make(map[reflect.Type]*FrameBuilder),
	}
}

// Frame declares a frame from a struct prototype.
// If the frame already exists, it returns the existing builder.
func (b *Builder) Frame(proto any) *FrameBuilder {
	t := reflect.TypeOf(proto)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if fb, ok := b.byType[t]; ok {
		return fb
	}
	fb := &FrameBuilder{proto: proto, builder: b}
	b.frames = append(b.frames, fb)
	b.byType[t] = fb
	return fb
}

// Dependency registers dependency functions available to every frame.
func (b *Builder) Dependency(defs ...*dependency.Definition) *Builder {
	b.deps = append(b.deps, defs...)
	return b
}

// Build registers and validates everything declared so far.
// All problems found are reported together.
func (b *Builder) Build() (*Flow, error) {
	if len(b.frames) == 0 {
		return nil, &domain.DefinitionError{Reason: "flow declares no frames"}
	}
	flow := &Flow{
		Name:   b.name,
		Frames: frame.NewRegistry(),
		Deps:   dependency.NewCatalog(),
	}

	var errs []error
	for _, def := range b.deps {
		if err := flow.Deps.Register(def); err != nil {
			errs = append(errs, err)
		}
	}

	registered := make([]*frame.Type, 0, len(b.frames))
	for _, fb := range b.frames {
		ft, err := flow.Frames.Register(fb.proto, fb.options()...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		registered = append(registered, ft)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	flow.Start = registered[0].Name

	for i, fb := range b.frames {
		if err := fb.wire(flow.Frames, registered[i].Name); err != nil {
			errs = append(errs, err)
		}
	}
	if err := flow.Frames.Validate(); err != nil {
		errs = append(errs, err)
	}

	fields := make(map[string]bool)
	for _, ft := range registered {
		for _, f := range ft.Fields {
			fields[f.Name] = true
		}
	}
	for _, ft := range registered {
		if err := checkDependencies(ft, flow.Deps, fields); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return flow, nil
}

// checkDependencies builds the frame's graph once to surface unknown
// functions and cycles, and checks that field parameters name a field some
// frame of the flow declares.
func checkDependencies(ft *frame.Type, cat *dependency.Catalog, fields map[string]bool) error {
	if len(ft.Dependencies()) == 0 {
		return nil
	}
	g, err := dependency.BuildForFrame(ft, cat)
	if err != nil {
		return err
	}
	for _, name := range g.Names() {
		def, _ := cat.Lookup(name)
		for _, p := range def.Params {
			if p.Field != "" && !fields[p.Field] {
				return &domain.DefinitionError{
					Frame:  ft.Name,
					Reason: fmt.Sprintf("dependency %s binds parameter %s to unknown field %q", def.Name, p.Name, p.Field),
				}
			}
		}
	}
	return nil
}
