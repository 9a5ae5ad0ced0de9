package domain

import "reflect"

// FieldKind tells the scheduler how a field gets its value.
type FieldKind string

const (
	// KindPlain fields are left for the filler (or supplied as run input).
	KindPlain FieldKind = "plain"
	// KindDependency fields are resolved by invoking a dependency function.
	KindDependency FieldKind = "dependency"
	// KindRecall fields are resolved by searching the run History.
	KindRecall FieldKind = "recall"
	// KindGate fields are resolved by suspending for external input.
	KindGate FieldKind = "gate"
)

// Field is the registration-time description of one frame field.
type Field struct {
	// Name is the external name (json tag, or the Go name when untagged).
	Name string
	// GoName is the struct field name.
	GoName string
	// Index is the reflect field index path inside the frame struct.
	Index []int
	// Type is the declared value type.
	Type reflect.Type
	// Kind is the resolution strategy.
	Kind FieldKind
	// Dependency names the dependency function when Kind == KindDependency.
	Dependency string
	// Hint is forwarded to the filler through the reduced schema.
	Hint string
	// Input marks a plain field that must be supplied when the frame starts a run.
	Input bool
}

// FieldSource records where a produced field value came from.
type FieldSource string

const (
	SourceInput      FieldSource = "input"
	SourceDependency FieldSource = "dependency"
	SourceRecall     FieldSource = "recall"
	SourceGate       FieldSource = "gate"
	SourceFiller     FieldSource = "filler"
)
