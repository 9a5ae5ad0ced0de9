package dependency

import (
	"context"
	"fmt"
	"reflect"
)

// Args holds the bound parameter values of one invocation.
type Args map[string]any

// Get returns a typed argument.
func Get[T any](args Args, name string) (T, error) {
	var zero T
	v, ok := args[name]
	if !ok {
		return zero, fmt.Errorf("argument %q is not bound", name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("argument %q: expected %T, got %T", name, zero, v)
	}
	return t, nil
}

// Func is the signature every dependency function is adapted to.
type Func func(ctx context.Context, args Args) (any, error)

type paramSource int

const (
	fromDependency paramSource = iota + 1
	fromField
	fromValue
)

// Param binds one parameter of a dependency function to its source.
type Param struct {
	Name   string
	source paramSource
	Dep    string
	Field  string
	Value  any
}

// FromDependency binds a parameter to the result of another dependency.
func FromDependency(name, dep string) Param {
	return Param{Name: name, source: fromDependency, Dep: dep}
}

// FromField binds a parameter to a populated field of the current frame.
func FromField(name, field string) Param {
	return Param{Name: name, source: fromField, Field: field}
}

// Value binds a parameter to a constant.
func Value(name string, v any) Param {
	return Param{Name: name, source: fromValue, Value: v}
}

// Definition is one registered dependency function.
type Definition struct {
	// Name is the function identity used by frame annotations and the cache.
	Name   string
	Params []Param
	Fn     Func
	// Returns is the declared result type, when known.
	Returns reflect.Type
	// Inline functions are cheap and synchronous: the resolver runs them on its
	// own goroutine instead of spawning one.
	Inline bool
}

// New declares an untyped dependency.
func New(name string, fn Func, params ...Param) *Definition {
	return &Definition{Name: name, Fn: fn, Params: params}
}

// Of declares a dependency with a typed result.
func Of[R any](name string, fn func(ctx context.Context, args Args) (R, error), params ...Param) *Definition {
	return &Definition{
		Name: name,
		Fn: func(ctx context.Context, args Args) (any, error) {
			return fn(ctx, args)
		},
		Params:  params,
		Returns: reflect.TypeFor[R](),
	}
}

// Sync marks the definition as inline.
func (d *Definition) Sync() *Definition {
	d.Inline = true
	return d
}

// Requires lists the dependencies this definition chains to, in parameter order.
func (d *Definition) Requires() []string {
	var out []string
	for _, p := range d.Params {
		if p.source == fromDependency {
			out = append(out, p.Dep)
		}
	}
	return out
}

func (d *Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("dependency without a name")
	}
	if d.Fn == nil {
		return fmt.Errorf("dependency %s has no function", d.Name)
	}
	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if p.Name == "" {
			return fmt.Errorf("dependency %s has an unnamed parameter", d.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("dependency %s binds parameter %s twice", d.Name, p.Name)
		}
		seen[p.Name] = true
		switch p.source {
		case fromDependency:
			if p.Dep == "" {
				return fmt.Errorf("dependency %s parameter %s: empty dependency reference", d.Name, p.Name)
			}
		case fromField:
			if p.Field == "" {
				return fmt.Errorf("dependency %s parameter %s: empty field reference", d.Name, p.Name)
			}
		case fromValue:
		default:
			return fmt.Errorf("dependency %s parameter %s has no source", d.Name, p.Name)
		}
	}
	return nil
}
