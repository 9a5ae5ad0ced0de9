package frame

import "reflect"

// Ancestor is one entry of a type's nominal ancestor list.
type Ancestor struct {
	Type reflect.Type
	// Path is the embedded-field index path leading from the descendant value
	// to the ancestor value. Empty for the type itself.
	Path []int
}

// Lineage lists t followed by its nominal ancestors: the struct types it
// embeds, depth first in declaration order. A pointer type also lists its
// element type. Interfaces and structurally similar types never appear.
func Lineage(t reflect.Type) []Ancestor {
	if t == nil {
		return nil
	}
	out := []Ancestor{{Type: t}}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		out = append(out, Ancestor{Type: t})
	}
	seen := map[reflect.Type]bool{t: true}
	return appendEmbedded(out, t, nil, seen)
}

func appendEmbedded(out []Ancestor, t reflect.Type, prefix []int, seen map[reflect.Type]bool) []Ancestor {
	if t.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		et := sf.Type
		if et.Kind() == reflect.Pointer {
			et = et.Elem()
		}
		if et.Kind() != reflect.Struct || seen[et] {
			continue
		}
		seen[et] = true
		path := append(append([]int(nil), prefix...), i)
		out = append(out, Ancestor{Type: et, Path: path})
		out = appendEmbedded(out, et, path, seen)
	}
	return out
}

// Project extracts the ancestor value from a descendant value.
// It reports false when an embedded pointer on the way is nil.
func (a Ancestor) Project(v reflect.Value) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	if v.Type() == a.Type {
		return v, true
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if len(a.Path) > 0 {
		fv, err := v.FieldByIndexErr(a.Path)
		if err != nil {
			return reflect.Value{}, false
		}
		v = fv
	}
	if v.Type() != a.Type && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.Type() == a.Type
}
