package schema

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/aretw0/weft/pkg/domain"
)

// ValidateInput checks caller-supplied run input against a start frame:
// every input-annotated field must be present, every key must name a field,
// and every value must be assignable to its field.
func ValidateInput(fields []domain.Field, input map[string]any) error {
	var errs []error

	byName := make(map[string]domain.Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
		if !f.Input {
			continue
		}
		if _, ok := input[f.Name]; !ok {
			errs = append(errs, &ValidationError{Key: f.Name, Reason: "required input"})
		}
	}

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f, ok := byName[k]
		if !ok {
			errs = append(errs, &ValidationError{Key: k, Reason: "not a field of the frame"})
			continue
		}
		if f.Kind != domain.KindPlain {
			errs = append(errs, &ValidationError{Key: k, Reason: fmt.Sprintf("%s fields cannot be supplied as input", f.Kind)})
			continue
		}
		if partial, ok := Partial(input[k], f.Type); ok {
			errs = append(errs, checkPartial(partial, f.Type, k)...)
			continue
		}
		if _, err := Coerce(input[k], f.Type); err != nil {
			errs = append(errs, &ValidationError{Key: k, Reason: err.Error(), Value: input[k]})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Partial reports whether v supplies only some leaves of a struct-typed
// field. The returned map is v itself.
func Partial(v any, t reflect.Type) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return m, t.Kind() == reflect.Struct
}

// checkPartial validates the leaves of a partial against the struct fields
// they name. Nested maps descend into nested structs.
func checkPartial(m map[string]any, t reflect.Type, path string) []error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	byName := jsonFields(t)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		key := path + "." + k
		sf, ok := byName[k]
		if !ok {
			errs = append(errs, &ValidationError{Key: key, Reason: "not a field of " + t.String()})
			continue
		}
		if nested, ok := Partial(m[k], sf.Type); ok {
			errs = append(errs, checkPartial(nested, sf.Type, key)...)
			continue
		}
		if _, err := Coerce(m[k], sf.Type); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: m[k]})
		}
	}
	return errs
}

// jsonFields maps the JSON names of t's exported fields to the fields.
func jsonFields(t reflect.Type) map[string]reflect.StructField {
	out := make(map[string]reflect.StructField, t.NumField())
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = sf.Name
		}
		out[name] = sf
	}
	return out
}

// Coerce turns v into a value of type t without serializing it.
// Assignable values are used as is, so maps, slices and pointers keep their
// identity. Numbers convert between numeric kinds. nil becomes the zero value
// of nillable types.
func Coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("expected %s, got nil", t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(t.Kind()) {
		if err := fitsNumber(rv, t); err != nil {
			return reflect.Value{}, err
		}
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("expected %s, got %s", t, rv.Type())
}

// fitsNumber rejects conversions that would truncate or wrap rv.
func fitsNumber(rv reflect.Value, t reflect.Type) error {
	target := reflect.New(t).Elem()
	switch {
	case rv.CanFloat():
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			if target.CanFloat() {
				return nil
			}
			return fmt.Errorf("%v does not fit %s", f, t)
		}
		switch {
		case target.CanFloat():
			if target.OverflowFloat(f) {
				return fmt.Errorf("%v overflows %s", f, t)
			}
		case f != math.Trunc(f):
			return fmt.Errorf("%v is not an integer", f)
		case target.CanInt():
			if f < math.MinInt64 || f >= math.MaxInt64 || target.OverflowInt(int64(f)) {
				return fmt.Errorf("%v overflows %s", f, t)
			}
		case target.CanUint():
			if f < 0 || f >= math.MaxUint64 || target.OverflowUint(uint64(f)) {
				return fmt.Errorf("%v overflows %s", f, t)
			}
		}
	case rv.CanInt():
		n := rv.Int()
		switch {
		case target.CanInt():
			if target.OverflowInt(n) {
				return fmt.Errorf("%d overflows %s", n, t)
			}
		case target.CanUint():
			if n < 0 || target.OverflowUint(uint64(n)) {
				return fmt.Errorf("%d overflows %s", n, t)
			}
		case target.CanFloat():
			if target.OverflowFloat(float64(n)) {
				return fmt.Errorf("%d overflows %s", n, t)
			}
		}
	case rv.CanUint():
		n := rv.Uint()
		switch {
		case target.CanInt():
			if n > math.MaxInt64 || target.OverflowInt(int64(n)) {
				return fmt.Errorf("%d overflows %s", n, t)
			}
		case target.CanUint():
			if target.OverflowUint(n) {
				return fmt.Errorf("%d overflows %s", n, t)
			}
		}
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
