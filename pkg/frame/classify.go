package frame

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/weft/pkg/domain"
)

// Classification is the result of inspecting a frame struct.
type Classification struct {
	// Fields in declared order.
	Fields []domain.Field
	// Kinds maps external field names to their resolution kind.
	Kinds map[string]domain.FieldKind
}

// Classify partitions the exported fields of a struct type into dependency,
// recall, gate and plain fields. It fails when a field carries more than one
// resolution annotation or an annotation it cannot parse.
func Classify(t reflect.Type) (*Classification, error) {
	if t == nil {
		return nil, &domain.DefinitionError{Reason: "nil frame type"}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &domain.DefinitionError{Frame: t.String(), Reason: "frame types must be structs"}
	}

	c := &Classification{Kinds: make(map[string]domain.FieldKind)}
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || promotedThroughTagged(t, sf.Index) {
			continue
		}
		name, skip := externalName(sf)
		if skip {
			continue
		}
		// Untagged embedded structs only promote their fields.
		if sf.Anonymous && indirectKind(sf.Type) == reflect.Struct && sf.Tag.Get(domain.TagJSON) == "" {
			continue
		}
		if _, dup := c.Kinds[name]; dup {
			return nil, &domain.DefinitionError{Frame: t.Name(), Field: name, Reason: "duplicate field name"}
		}

		field := domain.Field{
			Name:   name,
			GoName: sf.Name,
			Index:  sf.Index,
			Type:   sf.Type,
			Kind:   domain.KindPlain,
			Hint:   sf.Tag.Get(domain.TagHint),
		}
		if err := parseAnnotation(sf.Tag.Get(domain.TagFrame), &field); err != nil {
			return nil, &domain.DefinitionError{Frame: t.Name(), Field: name, Reason: err.Error()}
		}
		c.Fields = append(c.Fields, field)
		c.Kinds[name] = field.Kind
	}
	return c, nil
}

// parseAnnotation reads the frame tag: "dep:<name>", "recall", "gate" and the
// "input" modifier, comma separated.
func parseAnnotation(tag string, f *domain.Field) error {
	if tag == "" {
		return nil
	}
	resolutions := 0
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		key, value, _ := strings.Cut(part, ":")
		switch key {
		case "":
			continue
		case domain.AnnotationDependency:
			if value == "" {
				return fmt.Errorf("dependency annotation without a function name")
			}
			f.Kind = domain.KindDependency
			f.Dependency = value
			resolutions++
		case domain.AnnotationRecall:
			f.Kind = domain.KindRecall
			resolutions++
		case domain.AnnotationGate:
			f.Kind = domain.KindGate
			resolutions++
		case domain.AnnotationInput:
			f.Input = true
		default:
			return fmt.Errorf("unknown annotation %q", part)
		}
	}
	if resolutions > 1 {
		return fmt.Errorf("more than one resolution annotation in %q", tag)
	}
	if f.Input && f.Kind != domain.KindPlain {
		return fmt.Errorf("input fields cannot carry a resolution annotation")
	}
	return nil
}

// externalName follows encoding/json naming: the json tag name when present,
// the Go name otherwise. A "-" tag hides the field.
func externalName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get(domain.TagJSON)
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}
	return name, false
}

// promotedThroughTagged reports whether a promoted field sits under an embedded
// struct that has its own json name, in which case it is not a frame field.
func promotedThroughTagged(t reflect.Type, index []int) bool {
	for i := 0; i < len(index)-1; i++ {
		sf := t.Field(index[i])
		if sf.Tag.Get(domain.TagJSON) != "" {
			return true
		}
		t = sf.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
	}
	return false
}

func indirectKind(t reflect.Type) reflect.Kind {
	if t.Kind() == reflect.Pointer {
		return t.Elem().Kind()
	}
	return t.Kind()
}
