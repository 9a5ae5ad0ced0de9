// Package scripted provides a deterministic ports.Filler driven by canned
// responses. It backs tests and demos where no model is available.
package scripted

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/aretw0/weft/pkg/ports"
	"github.com/aretw0/weft/pkg/schema"
)

// ErrNoScript is returned when a call has neither a scripted answer nor a
// fallback.
var ErrNoScript = errors.New("no scripted response")

// FillFunc computes a response for frames without a scripted one.
type FillFunc func(ctx context.Context, req ports.FillRequest) (map[string]any, error)

// Call records one request the filler served.
type Call struct {
	Method string // "fill" or "choose"
	Frame  string
	// Fields lists the leaf paths of the reduced schema (fill only).
	Fields []string
	// Chosen is the returned successor (choose only).
	Chosen string
}

// Filler answers Fill and Choose from per-frame scripts.
// Each scripted frame serves its responses in order and repeats the last one.
type Filler struct {
	mu       sync.Mutex
	fills    map[string][]map[string]any
	choices  map[string][]string
	fallback FillFunc
	calls    []Call
}

// Option configures the scripted filler.
type Option func(*Filler)

// WithFill queues a Fill response for a frame.
func WithFill(frameName string, out map[string]any) Option {
	return func(f *Filler) { f.fills[frameName] = append(f.fills[frameName], out) }
}

// WithChoice queues the successor to pick after a frame.
func WithChoice(frameName, next string) Option {
	return func(f *Filler) { f.choices[frameName] = append(f.choices[frameName], next) }
}

// WithFallback answers Fill calls for frames without a script.
func WithFallback(fn FillFunc) Option {
	return func(f *Filler) { f.fallback = fn }
}

// New creates a scripted filler.
func New(opts ...Option) *Filler {
	f := &Filler{
		fills:   make(map[string][]map[string]any),
		choices: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fill implements ports.Filler.
func (f *Filler) Fill(ctx context.Context, req ports.FillRequest) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	out, ok := next(f.fills, req.Frame)
	fallback := f.fallback
	f.calls = append(f.calls, Call{Method: "fill", Frame: req.Frame, Fields: schema.Paths(req.Schema)})
	f.mu.Unlock()

	if ok {
		return maps.Clone(out), nil
	}
	if fallback != nil {
		return fallback(ctx, req)
	}
	return nil, fmt.Errorf("%w: fill %s", ErrNoScript, req.Frame)
}

// Choose implements ports.Filler.
func (f *Filler) Choose(ctx context.Context, req ports.ChooseRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	chosen, ok := next(f.choices, req.Current.Type)
	if !ok {
		return "", fmt.Errorf("%w: choose after %s", ErrNoScript, req.Current.Type)
	}
	f.calls = append(f.calls, Call{Method: "choose", Frame: req.Current.Type, Chosen: chosen})
	return chosen, nil
}

// Calls returns the requests served so far.
func (f *Filler) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func next[T any](queues map[string][]T, key string) (T, bool) {
	q := queues[key]
	if len(q) == 0 {
		var zero T
		return zero, false
	}
	v := q[0]
	if len(q) > 1 {
		queues[key] = q[1:]
	}
	return v, true
}
