// Package recall searches a run History for the most recent value of a type.
package recall

import (
	"reflect"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
)

// Match is the value found for a recall target and where it came from.
type Match struct {
	Value reflect.Value
	// Frame is the history index of the frame holding the value.
	Frame int
	// Field is the external field name, or empty when the frame value itself
	// matched.
	Field string
}

// Find walks history from the most recent frame backwards. Inside a frame,
// fields are visited in declared order and then the frame value itself. A
// candidate matches when its declared type is target or lists target among
// its nominal ancestors; the value is projected to target. The first match
// wins. ok is false when nothing matches.
func Find(target reflect.Type, history domain.History, reg *frame.Registry) (Match, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		inst := history[i]
		ft, err := reg.Lookup(inst.Type)
		if err != nil {
			continue
		}
		for _, f := range ft.Fields {
			v, ok := inst.Fields[f.Name]
			if !ok {
				continue
			}
			if m, ok := match(target, f.Type, v, reg); ok {
				return Match{Value: m, Frame: i, Field: f.Name}, true
			}
		}
		if m, ok := match(target, ft.GoType, inst.Value, reg); ok {
			return Match{Value: m, Frame: i}, true
		}
	}
	return Match{}, false
}

func match(target, declared reflect.Type, v any, reg *frame.Registry) (reflect.Value, bool) {
	for _, a := range reg.Ancestors(declared) {
		if a.Type != target {
			continue
		}
		rv := reflect.ValueOf(v)
		if a.Type == declared {
			out := reflect.New(target).Elem()
			if rv.IsValid() {
				if !rv.Type().AssignableTo(target) {
					return reflect.Value{}, false
				}
				out.Set(rv)
			}
			return out, true
		}
		if !rv.IsValid() {
			return reflect.Value{}, false
		}
		return a.Project(rv)
	}
	return reflect.Value{}, false
}

// Resolve is Find reporting a miss as a *domain.RecallNotFoundError for the
// given frame field.
func Resolve(frameName string, field domain.Field, history domain.History, reg *frame.Registry) (Match, error) {
	m, ok := Find(field.Type, history, reg)
	if !ok {
		return Match{}, &domain.RecallNotFoundError{
			Frame:   frameName,
			Field:   field.Name,
			Target:  field.Type.String(),
			History: history,
		}
	}
	return m, nil
}
