package runtime

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
	"github.com/aretw0/weft/pkg/schema"
)

// builder accumulates the field values of the frame being produced.
type builder struct {
	ft        *frame.Type
	value     reflect.Value
	populated map[string]any
	sources   map[string]domain.FieldSource
	// partials holds struct-typed plain fields supplied as nested maps that
	// still lack some leaves. They are decoded once the filler has run.
	partials map[string]map[string]any
}

func newBuilder(ft *frame.Type) *builder {
	return &builder{
		ft:        ft,
		value:     reflect.New(ft.GoType).Elem(),
		populated: make(map[string]any, len(ft.Fields)),
		sources:   make(map[string]domain.FieldSource, len(ft.Fields)),
		partials:  make(map[string]map[string]any),
	}
}

// set assigns v without serializing it. A nested map for a struct-typed plain
// field is kept as a partial so the filler is asked only for the missing
// leaves.
func (b *builder) set(f domain.Field, v any, src domain.FieldSource) error {
	if partial, ok := schema.Partial(v, f.Type); ok && f.Kind == domain.KindPlain {
		b.populated[f.Name] = partial
		b.sources[f.Name] = src
		b.partials[f.Name] = partial
		return nil
	}
	rv, err := schema.Coerce(v, f.Type)
	if err != nil {
		return err
	}
	b.setValue(f, rv, src)
	return nil
}

func (b *builder) setValue(f domain.Field, rv reflect.Value, src domain.FieldSource) {
	fieldByIndexAlloc(b.value, f.Index).Set(rv)
	b.populated[f.Name] = rv.Interface()
	b.sources[f.Name] = src
}

// binder exposes populated fields to dependency parameters, falling back to
// the nearest earlier frame that has a field of the same name.
func (b *builder) binder(history domain.History) dependency.Binder {
	return func(field string) (any, bool) {
		if v, ok := b.populated[field]; ok {
			return v, true
		}
		for i := len(history) - 1; i >= 0; i-- {
			if v, ok := history[i].Field(field); ok {
				return v, true
			}
		}
		return nil, false
	}
}

// view is a copy of the populated values handed to collaborators.
func (b *builder) view() map[string]any {
	return maps.Clone(b.populated)
}

// merge decodes filler output into the fields the filler owns. Output for
// fields that are already populated, or that the frame does not declare, is
// ignored.
func (b *builder) merge(out map[string]any, reduced *jsonschema.Schema) ([]string, error) {
	required := make(map[string]bool, len(reduced.Required))
	for _, name := range reduced.Required {
		required[name] = true
	}

	var (
		filled  []string
		missing []string
		errs    []error
	)
	for _, f := range b.ft.Fields {
		if f.Kind != domain.KindPlain {
			continue
		}
		partial, isPartial := b.partials[f.Name]
		if _, done := b.populated[f.Name]; done && !isPartial {
			continue
		}
		raw, ok := out[f.Name]
		if !ok {
			if required[f.Name] {
				missing = append(missing, f.Name)
			}
			continue
		}
		if isPartial {
			nested, isMap := raw.(map[string]any)
			if !isMap {
				errs = append(errs, fmt.Errorf("field %s: expected an object, got %T", f.Name, raw))
				continue
			}
			raw = overlay(nested, partial)
		}
		rv, err := decodeField(raw, f.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", f.Name, err))
			continue
		}
		b.setValue(f, rv, domain.SourceFiller)
		delete(b.partials, f.Name)
		filled = append(filled, f.Name)
	}
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	return filled, errors.Join(errs...)
}

// complete decodes the partials the filler did not extend.
func (b *builder) complete() error {
	var errs []error
	for _, f := range b.ft.Fields {
		partial, ok := b.partials[f.Name]
		if !ok {
			continue
		}
		rv, err := decodeField(partial, f.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", f.Name, err))
			continue
		}
		b.setValue(f, rv, b.sources[f.Name])
		delete(b.partials, f.Name)
	}
	return errors.Join(errs...)
}

// overlay returns base with top written over it. Nested maps merge key by
// key; any other value in top wins.
func overlay(base, top map[string]any) map[string]any {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]any, len(top))
	}
	for k, v := range top {
		if tm, ok := v.(map[string]any); ok {
			if bm, ok := out[k].(map[string]any); ok {
				out[k] = overlay(bm, tm)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// decodeField converts loosely typed filler output into a fresh value of t.
func decodeField(raw any, t reflect.Type) (reflect.Value, error) {
	target := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target.Interface(),
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return reflect.Value{}, err
	}
	return target.Elem(), nil
}

// instance freezes the builder into a history entry.
func (b *builder) instance(index int) domain.FrameInstance {
	fields := make(map[string]any, len(b.ft.Fields))
	for _, f := range b.ft.Fields {
		if fv, err := b.value.FieldByIndexErr(f.Index); err == nil {
			fields[f.Name] = fv.Interface()
		}
	}
	return domain.FrameInstance{
		Type:    b.ft.Name,
		Index:   index,
		Value:   b.value.Interface(),
		Fields:  fields,
		Sources: maps.Clone(b.sources),
	}
}

// fieldByIndexAlloc is reflect.Value.FieldByIndex allocating nil embedded
// struct pointers on the way.
func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}
