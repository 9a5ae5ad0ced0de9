package schema

import (
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reduce returns the part of full that is not covered by populated.
//
// A populated key removes its property. When the value is a map[string]any
// and the property is an object, the reduction recurses, so a partially filled
// nested object keeps only its missing members. Arrays and scalars are removed
// whole. Required lists are trimmed to the remaining properties.
//
// Untouched sub-schemas are shared with full; callers must treat the result as
// read-only.
func Reduce(full *jsonschema.Schema, populated map[string]any) *jsonschema.Schema {
	if full == nil {
		return nil
	}
	out := *full
	if full.Properties == nil {
		return &out
	}

	props := orderedmap.New[string, *jsonschema.Schema]()
	for pair := full.Properties.Oldest(); pair != nil; pair = pair.Next() {
		value, ok := populated[pair.Key]
		if !ok {
			props.Set(pair.Key, pair.Value)
			continue
		}
		nested, isMap := value.(map[string]any)
		if isMap && isObject(pair.Value) {
			sub := Reduce(pair.Value, nested)
			if sub.Properties.Len() > 0 {
				props.Set(pair.Key, sub)
			}
		}
	}
	out.Properties = props
	out.Required = keepRequired(full.Required, props)
	return &out
}

// Empty reports whether a (reduced) schema has nothing left to fill.
func Empty(s *jsonschema.Schema) bool {
	return s == nil || s.Properties == nil || s.Properties.Len() == 0
}

func keepRequired(required []string, props *orderedmap.OrderedMap[string, *jsonschema.Schema]) []string {
	var out []string
	for _, name := range required {
		if _, ok := props.Get(name); ok {
			out = append(out, name)
		}
	}
	return out
}

func isObject(s *jsonschema.Schema) bool {
	return s != nil && s.Properties != nil && s.Properties.Len() > 0
}
