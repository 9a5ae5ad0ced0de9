package weft

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/weft/internal/runtime"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/aretw0/weft/pkg/ports"
)

// Version is the weft release version.
const Version = "0.1.0"

// Input holds the start frame values of a run, keyed by external field name.
type Input = map[string]any

var _ ports.Engine = (*Engine)(nil)

// Engine is the high-level entry point for the weft library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	flow        *dsl.Flow
	filler      ports.Filler
	cache       ports.DependencyCache
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithFiller sets the generation backend.
func WithFiller(f ports.Filler) Option {
	return func(e *Engine) {
		e.filler = f
	}
}

// WithGate sets the handler that supplies gate fields.
func WithGate(g ports.Gate) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithGate(g))
	}
}

// WithCache shares one dependency cache across every run of the engine.
// Without it each run gets a fresh in-memory cache.
func WithCache(c ports.DependencyCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxConcurrency bounds concurrent dependency invocations.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxConcurrency(n))
	}
}

// WithMaxFrames bounds the frames a run may produce (default 64, 0 disables).
func WithMaxFrames(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxFrames(n))
	}
}

// WithEventBuffer sets the lifecycle event queue size.
func WithEventBuffer(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithEventBuffer(n))
	}
}

// New initializes an engine over a built flow.
func New(flow *dsl.Flow, opts ...Option) (*Engine, error) {
	if flow == nil {
		return nil, fmt.Errorf("flow is required")
	}
	eng := &Engine{flow: flow, Name: flow.Name}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime)
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("flow", eng.Name)
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(flow.Frames, flow.Deps, eng.filler, runtimeOpts...)
	return eng, nil
}

// Run executes one run. start is a frame prototype, a frame name, or nil for
// the first frame of the flow.
func (e *Engine) Run(ctx context.Context, start any, input Input) (*domain.Result, error) {
	name := e.flow.Start
	if start != nil {
		var err error
		name, err = e.flow.Frames.NameOf(start)
		if err != nil {
			return &domain.Result{}, &domain.DefinitionError{Reason: "start frame", Err: err}
		}
	}
	return e.runtime.Run(ctx, name, input, e.cache)
}

// Drain waits until lifecycle hooks have received the events of finished
// runs, or until ctx is done. Run itself never waits for its hooks.
func (e *Engine) Drain(ctx context.Context) error {
	return e.runtime.Drain(ctx)
}

// Flow returns the flow the engine executes.
func (e *Engine) Flow() *dsl.Flow {
	return e.flow
}
