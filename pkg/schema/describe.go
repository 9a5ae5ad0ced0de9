package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/aretw0/weft/pkg/domain"
)

// Describe reflects the full structural description of a frame struct.
// Nested structs are inlined and hints are attached as descriptions.
func Describe(t reflect.Type, fields []domain.Field) (*jsonschema.Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("describe: nil type")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
		Anonymous:      true,
	}
	s := r.ReflectFromType(t)
	if s == nil || s.Properties == nil {
		return nil, fmt.Errorf("describe %s: no properties reflected", t)
	}
	s.Version = ""
	s.ID = ""

	// Frame-level fields are removed when hidden by the classifier (json:"-").
	known := make(map[string]domain.Field, len(fields))
	for _, f := range fields {
		known[f.Name] = f
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		f, ok := known[pair.Key]
		if !ok || pair.Value == nil {
			continue
		}
		if f.Hint != "" {
			pair.Value.Description = f.Hint
		}
		applyHints(pair.Value, f.Type)
	}
	return s, nil
}

// applyHints walks a reflected sub-schema alongside its Go type and copies
// hint tags of nested struct fields into descriptions.
func applyHints(s *jsonschema.Schema, t reflect.Type) {
	if s == nil || t == nil {
		return
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		applyHints(s.Items, t.Elem())
	case reflect.Struct:
		if s.Properties == nil {
			return
		}
		for _, sf := range reflect.VisibleFields(t) {
			if !sf.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(sf.Tag.Get(domain.TagJSON), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			prop, ok := s.Properties.Get(name)
			if !ok || prop == nil {
				continue
			}
			if hint := sf.Tag.Get(domain.TagHint); hint != "" {
				prop.Description = hint
			}
			applyHints(prop, sf.Type)
		}
	}
}
