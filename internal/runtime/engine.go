package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
	"github.com/aretw0/weft/pkg/ports"
	"github.com/aretw0/weft/pkg/schema"
)

var tracer = otel.Tracer("github.com/aretw0/weft/runtime")

const (
	// DefaultMaxFrames bounds runs over cyclic frame topologies.
	DefaultMaxFrames = 64
	// DefaultEventBuffer is the lifecycle event queue size.
	DefaultEventBuffer = 256
)

// Engine walks frames from a start frame to a terminal frame.
// It is safe for concurrent runs; runs share nothing but an injected cache.
type Engine struct {
	frames      *frame.Registry
	deps        *dependency.Catalog
	filler      ports.Filler
	gate        ports.Gate
	resolver    *dependency.Resolver
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	concurrency int
	maxFrames   int
	eventBuffer int
	pending     deliveries
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithGate sets the handler for gate fields.
func WithGate(g ports.Gate) EngineOption {
	return func(e *Engine) {
		e.gate = g
	}
}

// WithMaxConcurrency bounds concurrent dependency invocations per level.
func WithMaxConcurrency(n int) EngineOption {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithMaxFrames bounds the number of frames one run may produce.
// Zero or less disables the limit.
func WithMaxFrames(n int) EngineOption {
	return func(e *Engine) {
		e.maxFrames = n
	}
}

// WithEventBuffer sets the lifecycle event queue size.
func WithEventBuffer(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.eventBuffer = n
		}
	}
}

// NewEngine creates an engine over registered frames and dependencies.
// filler may be nil for flows whose frames are fully resolved without one.
func NewEngine(frames *frame.Registry, deps *dependency.Catalog, filler ports.Filler, opts ...EngineOption) *Engine {
	e := &Engine{
		frames:      frames,
		deps:        deps,
		filler:      filler,
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		maxFrames:   DefaultMaxFrames,
		eventBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.deps == nil {
		e.deps = dependency.NewCatalog()
	}
	e.resolver = dependency.NewResolver(
		dependency.WithLogger(e.logger),
		dependency.WithConcurrency(e.concurrency),
		dependency.WithObserver(e.observeDependency),
	)
	return e
}

// Run executes one run from the named start frame.
//
// input populates the start frame and is validated before anything executes.
// A nil cache gives the run its own cache. On failure the partial Result is
// returned together with the error.
func (e *Engine) Run(ctx context.Context, start string, input map[string]any, cache ports.DependencyCache) (*domain.Result, error) {
	rs := &runState{
		id:    uuid.NewString(),
		cache: cache,
	}
	if rs.cache == nil {
		rs.cache = memory.NewCache()
	}
	result := &domain.Result{RunID: rs.id}

	ft, err := e.prepare(start, input)
	if err != nil {
		return result, err
	}

	ctx, span := tracer.Start(ctx, "weft.run")
	span.SetAttributes(
		attribute.String("run.id", rs.id),
		attribute.String("run.start", ft.Name),
	)
	defer span.End()

	rs.events = newEmitter(e.hooks, e.eventBuffer, e.logger, &e.pending)
	defer rs.events.close()

	logger := e.logger.With("run_id", rs.id)
	logger.InfoContext(ctx, "run started", "start", ft.Name)

	response, err := e.walk(ctx, rs, ft, input, logger)
	result.History = rs.history.Snapshot()
	if err != nil {
		err = domain.AnnotateHistory(err, result.History)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "run failed", "frames", len(result.History), "err", err)
		return result, err
	}
	result.Response = response
	logger.InfoContext(ctx, "run finished", "frames", len(result.History))
	return result, nil
}

// Drain waits until the lifecycle events of finished runs have been
// delivered, or until ctx is done. Runs never wait for their hooks.
func (e *Engine) Drain(ctx context.Context) error {
	return e.pending.wait(ctx)
}

// prepare validates everything that can be checked before a frame executes.
func (e *Engine) prepare(start string, input map[string]any) (*frame.Type, error) {
	ft, err := e.frames.Lookup(start)
	if err != nil {
		return nil, &domain.DefinitionError{Frame: start, Err: err}
	}
	if err := schema.ValidateInput(ft.Fields, input); err != nil {
		return nil, &domain.DefinitionError{Frame: ft.Name, Reason: "invalid run input", Err: err}
	}
	if e.gate == nil {
		for _, name := range e.frames.Names() {
			t, _ := e.frames.Lookup(name)
			if gates := t.FieldsOf(domain.KindGate); len(gates) > 0 {
				return nil, &domain.DefinitionError{Frame: name, Field: gates[0].Name, Reason: "gate field declared but no gate handler configured"}
			}
		}
	}
	return ft, nil
}

// walk advances frame by frame until a terminal frame is produced.
func (e *Engine) walk(ctx context.Context, rs *runState, ft *frame.Type, input map[string]any, logger *slog.Logger) (any, error) {
	for {
		if e.maxFrames > 0 && len(rs.history) >= e.maxFrames {
			return nil, &domain.StepLimitError{Limit: e.maxFrames}
		}
		if err := ctx.Err(); err != nil {
			return nil, &domain.CancelledError{Frame: ft.Name, Err: err}
		}

		inst, err := e.produce(ctx, rs, ft, input, logger)
		if err != nil {
			return nil, err
		}
		input = nil

		nextFrame, err := e.route(ctx, rs, ft, inst, logger)
		if err != nil {
			return nil, err
		}
		if nextFrame == nil {
			rs.enter(PhaseTerminal)
			return response(ft, inst), nil
		}
		ft = nextFrame
	}
}

// response selects what a terminal frame hands back to the caller.
func response(ft *frame.Type, inst domain.FrameInstance) any {
	if ft.Response != "" {
		v, _ := inst.Field(ft.Response)
		return v
	}
	return inst.Value
}

// interrupted maps a failure observed while ctx was cancelled to a
// CancelledError, leaving other failures to wrap.
func interrupted(ctx context.Context, frameName string, err error, wrap func(error) error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.CancelledError{Frame: frameName, Err: ctxErr}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.CancelledError{Frame: frameName, Err: err}
	}
	return wrap(err)
}

func (e *Engine) lookupNext(name string) (*frame.Type, error) {
	ft, err := e.frames.Lookup(name)
	if err != nil {
		return nil, &domain.DefinitionError{Frame: name, Reason: fmt.Sprintf("routing target: %v", err)}
	}
	return ft, nil
}
