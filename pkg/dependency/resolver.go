package dependency

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

var tracer = otel.Tracer("github.com/aretw0/weft/dependency")

// Binder supplies the populated field values a dependency parameter can bind to.
type Binder func(field string) (any, bool)

// Observer is notified once per resolved function. It may be called from
// several goroutines at once.
type Observer func(ctx context.Context, function string, cached bool, elapsed time.Duration)

// Resolver executes dependency graphs.
type Resolver struct {
	logger  *slog.Logger
	limit   int
	observe Observer
	flight  singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context shared by every caller waiting on one invocation.
// It is detached from the callers and cancelled once the last of them leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithConcurrency bounds the number of functions running at once inside a
// level. Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(r *Resolver) { r.limit = n }
}

// WithObserver registers a callback for every resolved function.
func WithObserver(fn Observer) Option {
	return func(r *Resolver) { r.observe = fn }
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		flights: make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs every function of g and returns the results keyed by function
// name. Levels run one after the other; functions inside a level run
// concurrently unless marked Sync. The first failure cancels the remaining
// work of its level and is returned as a *domain.DependencyError. A nil cache
// disables caching, not deduplication inside the graph.
func (r *Resolver) Resolve(ctx context.Context, g *Graph, bind Binder, cache ports.DependencyCache) (map[string]any, error) {
	results := make([]any, len(g.nodes))

	for _, level := range g.Levels() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.runLevel(ctx, g, level, results, bind, cache); err != nil {
			return nil, err
		}
	}

	out := make(map[string]any, len(g.nodes))
	for i, def := range g.nodes {
		out[def.Name] = results[i]
	}
	return out, nil
}

func (r *Resolver) runLevel(ctx context.Context, g *Graph, level []int, results []any, bind Binder, cache ports.DependencyCache) error {
	levelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, egCtx := errgroup.WithContext(levelCtx)
	if r.limit > 0 {
		eg.SetLimit(r.limit)
	}

	var inline []int
	for _, idx := range level {
		if g.nodes[idx].Inline {
			inline = append(inline, idx)
			continue
		}
		args, err := g.bindArgs(idx, results, bind)
		if err != nil {
			cancel()
			_ = eg.Wait()
			return err
		}
		eg.Go(func() error {
			v, err := r.invoke(egCtx, g.nodes[idx], args, cache)
			if err != nil {
				return err
			}
			results[idx] = v
			return nil
		})
	}

	var inlineErr error
	for _, idx := range inline {
		args, err := g.bindArgs(idx, results, bind)
		if err == nil {
			results[idx], err = r.invoke(egCtx, g.nodes[idx], args, cache)
		}
		if err != nil {
			inlineErr = err
			cancel()
			break
		}
	}

	if err := eg.Wait(); err != nil && inlineErr == nil {
		return err
	}
	return inlineErr
}

func (g *Graph) bindArgs(idx int, results []any, bind Binder) (Args, error) {
	def := g.nodes[idx]
	args := make(Args, len(def.Params))
	for _, p := range def.Params {
		switch p.source {
		case fromDependency:
			args[p.Name] = results[g.index[p.Dep]]
		case fromValue:
			args[p.Name] = p.Value
		case fromField:
			var (
				v  any
				ok bool
			)
			if bind != nil {
				v, ok = bind(p.Field)
			}
			if !ok {
				return nil, &domain.DependencyError{
					Function: def.Name,
					Err:      fmt.Errorf("parameter %s: field %q is not populated", p.Name, p.Field),
				}
			}
			args[p.Name] = v
		}
	}
	return args, nil
}

// flightResult carries whether the value came from the cache through
// singleflight.
type flightResult struct {
	value  any
	cached bool
}

func (r *Resolver) invoke(ctx context.Context, def *Definition, args Args, cache ports.DependencyCache) (any, error) {
	key, err := KeyOf(def, args)
	if err != nil {
		return nil, &domain.DependencyError{Function: def.Name, Err: err}
	}
	start := time.Now()

	// Callers sharing a cache share in-flight invocations; separate caches
	// never see each other's values.
	flightKey := cacheIdentity(cache) + "|" + key.String()
	f := r.join(ctx, flightKey)
	ch := r.flight.DoChan(flightKey, func() (any, error) {
		return r.fetch(f.ctx, def, args, key, cache)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
		r.leave(flightKey, f)
	case <-ctx.Done():
		r.leave(flightKey, f)
		return nil, &domain.DependencyError{Function: def.Name, Err: ctx.Err()}
	}
	if res.Err != nil {
		return nil, &domain.DependencyError{Function: def.Name, Err: res.Err}
	}
	shared := res.Shared

	fr := res.Val.(flightResult)
	elapsed := time.Since(start)
	r.logger.Debug("dependency resolved",
		"function", def.Name,
		"cached", fr.cached,
		"shared", shared,
		"elapsed", elapsed,
	)
	if r.observe != nil {
		r.observe(ctx, def.Name, fr.cached || shared, elapsed)
	}
	return fr.value, nil
}

// fetch serves one invocation: cache, lock, call, store. ctx is the flight
// context, so a value computed after every waiter left is never stored.
func (r *Resolver) fetch(ctx context.Context, def *Definition, args Args, key domain.CacheKey, cache ports.DependencyCache) (any, error) {
	if cache != nil {
		v, ok, err := cache.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("cache lookup: %w", err)
		}
		if ok {
			return flightResult{value: v, cached: true}, nil
		}
	}
	if locker, ok := cache.(ports.InvocationLocker); ok {
		unlock, err := locker.Lock(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("cache lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("cache unlock failed", "function", def.Name, "err", err)
			}
		}()
		// Another holder may have stored the value while we waited.
		v, ok, err := cache.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("cache lookup: %w", err)
		}
		if ok {
			return flightResult{value: v, cached: true}, nil
		}
	}
	v, err := r.call(ctx, def, args)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cache != nil {
		if err := cache.Put(ctx, key, v); err != nil {
			return nil, fmt.Errorf("cache store: %w", err)
		}
	}
	return flightResult{value: v}, nil
}

// join registers a waiter on the flight for key, creating its context from
// the first caller's values when none is running.
func (r *Resolver) join(ctx context.Context, key string) *flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		r.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops a waiter. The last one out cancels the invocation and forgets
// it, so later callers start a fresh one instead of joining a cancelled call.
func (r *Resolver) leave(key string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if r.flights[key] == f {
		delete(r.flights, key)
		r.flight.Forget(key)
	}
}

// cacheIdentity names the cache instance a flight belongs to. Reference
// types are told apart by address; value types by their type alone.
func cacheIdentity(cache ports.DependencyCache) string {
	if cache == nil {
		return "<nil>"
	}
	v := reflect.ValueOf(cache)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("%T@%x", cache, v.Pointer())
	}
	return fmt.Sprintf("%T", cache)
}

func (r *Resolver) call(ctx context.Context, def *Definition, args Args) (v any, err error) {
	ctx, span := tracer.Start(ctx, "dependency."+def.Name)
	span.SetAttributes(
		attribute.String("dependency.name", def.Name),
		attribute.Int("dependency.params", len(def.Params)),
		attribute.Bool("dependency.sync", def.Inline),
	)
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	return def.Fn(ctx, args)
}
