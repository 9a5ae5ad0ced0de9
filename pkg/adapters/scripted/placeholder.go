package scripted

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/aretw0/weft/pkg/ports"
)

// Placeholder is a FillFunc that answers every requested property with a
// value of the described type: strings repeat the property name, numbers are
// zero, arrays are empty and objects recurse.
func Placeholder(ctx context.Context, req ports.FillRequest) (map[string]any, error) {
	return placeholderObject(req.Schema), nil
}

func placeholderObject(s *jsonschema.Schema) map[string]any {
	out := map[string]any{}
	if s == nil || s.Properties == nil {
		return out
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = placeholderValue(pair.Key, pair.Value)
	}
	return out
}

func placeholderValue(name string, s *jsonschema.Schema) any {
	if s == nil {
		return nil
	}
	switch s.Type {
	case "string":
		return "<" + name + ">"
	case "integer", "number":
		return 0
	case "boolean":
		return false
	case "array":
		return []any{}
	case "object":
		return placeholderObject(s)
	default:
		if s.Properties != nil && s.Properties.Len() > 0 {
			return placeholderObject(s)
		}
		return nil
	}
}
