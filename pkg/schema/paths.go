package schema

import "github.com/invopop/jsonschema"

// Paths lists the leaf property paths of a description ("a", "b.c"),
// in declaration order.
func Paths(s *jsonschema.Schema) []string {
	var out []string
	collect(s, "", &out)
	return out
}

// ValuePaths lists the leaf paths of full that populated covers.
func ValuePaths(full *jsonschema.Schema, populated map[string]any) []string {
	var out []string
	if full == nil || full.Properties == nil {
		return out
	}
	for pair := full.Properties.Oldest(); pair != nil; pair = pair.Next() {
		value, ok := populated[pair.Key]
		if !ok {
			continue
		}
		if nested, isMap := value.(map[string]any); isMap && isObject(pair.Value) {
			for _, p := range ValuePaths(pair.Value, nested) {
				out = append(out, pair.Key+"."+p)
			}
			continue
		}
		if isObject(pair.Value) {
			collect(pair.Value, pair.Key, &out)
			continue
		}
		out = append(out, pair.Key)
	}
	return out
}

func collect(s *jsonschema.Schema, prefix string, out *[]string) {
	if s == nil || s.Properties == nil {
		return
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		p := pair.Key
		if prefix != "" {
			p = prefix + "." + p
		}
		if isObject(pair.Value) {
			collect(pair.Value, p, out)
			continue
		}
		*out = append(*out, p)
	}
}
