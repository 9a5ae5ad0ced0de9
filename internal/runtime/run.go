package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
	"github.com/aretw0/weft/pkg/ports"
	"github.com/aretw0/weft/pkg/recall"
	"github.com/aretw0/weft/pkg/schema"
)

// runState is owned by a single run and touched only by its goroutine.
type runState struct {
	id      string
	cache   ports.DependencyCache
	history domain.History
	phase   Phase
	events  *emitter
}

func (rs *runState) enter(p Phase) {
	if rs.phase != "" && !CanTransition(rs.phase, p) {
		panic(fmt.Sprintf("runtime: illegal phase transition %s -> %s", rs.phase, p))
	}
	rs.phase = p
}

type scopeKey struct{}

// scope tells the dependency observer which run and frame an invocation
// belongs to.
type scope struct {
	rs    *runState
	frame string
}

func (e *Engine) observeDependency(ctx context.Context, function string, cached bool, elapsed time.Duration) {
	sc, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return
	}
	sc.rs.events.dependencyResolved(ctx, sc.rs.id, sc.frame, function, cached, elapsed)
}

// produce takes one frame from Pending to Produced and appends it to History.
func (e *Engine) produce(ctx context.Context, rs *runState, ft *frame.Type, input map[string]any, logger *slog.Logger) (domain.FrameInstance, error) {
	index := len(rs.history)
	ctx, span := tracer.Start(ctx, "weft.frame", trace.WithAttributes(
		attribute.String("frame.name", ft.Name),
		attribute.Int("frame.index", index),
	))
	defer span.End()

	inst, err := e.produceFrame(ctx, rs, ft, index, input, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return inst, err
}

func (e *Engine) produceFrame(ctx context.Context, rs *runState, ft *frame.Type, index int, input map[string]any, logger *slog.Logger) (domain.FrameInstance, error) {
	rs.enter(PhasePending)
	rs.events.frameStart(ctx, rs.id, ft.Name, index)
	logger.DebugContext(ctx, "frame started", "frame", ft.Name, "index", index)

	b := newBuilder(ft)
	for name, v := range input {
		f, _ := ft.Field(name)
		if err := b.set(f, v, domain.SourceInput); err != nil {
			return domain.FrameInstance{}, &domain.DefinitionError{Frame: ft.Name, Field: name, Err: err}
		}
	}

	rs.enter(PhaseResolving)
	if err := e.resolveDependencies(ctx, rs, ft, b); err != nil {
		return domain.FrameInstance{}, err
	}
	if err := e.resolveRecalls(rs, ft, b); err != nil {
		return domain.FrameInstance{}, err
	}
	if err := e.resolveGates(ctx, rs, ft, b); err != nil {
		return domain.FrameInstance{}, err
	}

	rs.enter(PhaseFilling)
	filled, err := e.fill(ctx, rs, ft, b)
	if err != nil {
		return domain.FrameInstance{}, err
	}
	if err := b.complete(); err != nil {
		return domain.FrameInstance{}, &domain.FillError{Frame: ft.Name, Err: err}
	}
	rs.events.filled(ctx, rs.id, ft.Name, index, filled)

	rs.enter(PhaseProduced)
	inst := b.instance(index)
	rs.history = append(rs.history, inst)
	logger.InfoContext(ctx, "frame produced", "frame", ft.Name, "index", index, "filled", len(filled))
	return inst, nil
}

func (e *Engine) resolveDependencies(ctx context.Context, rs *runState, ft *frame.Type, b *builder) error {
	fields := ft.FieldsOf(domain.KindDependency)
	if len(fields) == 0 {
		return nil
	}
	g, err := dependency.BuildForFrame(ft, e.deps)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, scopeKey{}, &scope{rs: rs, frame: ft.Name})
	results, err := e.resolver.Resolve(ctx, g, b.binder(rs.history), rs.cache)
	if err != nil {
		return interrupted(ctx, ft.Name, err, func(err error) error {
			var depErr *domain.DependencyError
			if errors.As(err, &depErr) {
				depErr.Frame = ft.Name
				return depErr
			}
			return &domain.DependencyError{Frame: ft.Name, Err: err}
		})
	}

	for _, f := range fields {
		if err := b.set(f, results[f.Dependency], domain.SourceDependency); err != nil {
			return &domain.DependencyError{
				Frame:    ft.Name,
				Function: f.Dependency,
				Err:      fmt.Errorf("field %s: %w", f.Name, err),
			}
		}
	}
	return nil
}

func (e *Engine) resolveRecalls(rs *runState, ft *frame.Type, b *builder) error {
	for _, f := range ft.FieldsOf(domain.KindRecall) {
		m, err := recall.Resolve(ft.Name, f, rs.history, e.frames)
		if err != nil {
			return err
		}
		b.setValue(f, m.Value, domain.SourceRecall)
	}
	return nil
}

func (e *Engine) resolveGates(ctx context.Context, rs *runState, ft *frame.Type, b *builder) error {
	for _, f := range ft.FieldsOf(domain.KindGate) {
		v, err := e.gate.Await(ctx, ports.GateRequest{
			RunID:   rs.id,
			Frame:   ft.Name,
			Field:   f,
			History: rs.history.Snapshot(),
		})
		if err != nil {
			return interrupted(ctx, ft.Name, err, func(err error) error {
				return &domain.FillError{Frame: ft.Name, Err: fmt.Errorf("gate %s: %w", f.Name, err)}
			})
		}
		if err := b.set(f, v, domain.SourceGate); err != nil {
			return &domain.FillError{Frame: ft.Name, Err: fmt.Errorf("gate %s: %w", f.Name, err)}
		}
	}
	return nil
}

// fill hands the reduced description to the filler and merges its output.
// A frame with nothing left to fill never reaches the filler.
func (e *Engine) fill(ctx context.Context, rs *runState, ft *frame.Type, b *builder) ([]string, error) {
	reduced := schema.Reduce(ft.Schema, b.populated)
	if schema.Empty(reduced) {
		return nil, nil
	}
	if e.filler == nil {
		if len(reduced.Required) == 0 {
			return nil, nil
		}
		return nil, &domain.FillError{Frame: ft.Name, Err: errors.New("no filler configured")}
	}

	ctx, span := tracer.Start(ctx, "weft.fill", trace.WithAttributes(
		attribute.String("frame.name", ft.Name),
		attribute.Int("fill.fields", reduced.Properties.Len()),
	))
	defer span.End()

	out, err := e.filler.Fill(ctx, ports.FillRequest{
		RunID:       rs.id,
		Frame:       ft.Name,
		Instruction: ft.Instruction,
		Schema:      reduced,
		Populated:   b.view(),
		History:     rs.history.Snapshot(),
	})
	if err != nil {
		return nil, interrupted(ctx, ft.Name, err, func(err error) error {
			return &domain.FillError{Frame: ft.Name, Err: err}
		})
	}

	filled, err := b.merge(out, reduced)
	if err != nil {
		return nil, &domain.FillError{Frame: ft.Name, Err: err}
	}
	return filled, nil
}
