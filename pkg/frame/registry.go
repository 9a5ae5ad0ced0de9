package frame

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/schema"
)

// Type is a registered frame type. It is read-only once its registry is built.
type Type struct {
	Name        string
	GoType      reflect.Type
	Instruction string
	Fields      []domain.Field
	Kinds       map[string]domain.FieldKind
	Routing     domain.Routing
	// Response names the field returned as the run response when this frame
	// terminates a run. Empty means the whole frame value.
	Response string
	// Schema is the full structural description handed (reduced) to fillers.
	Schema *jsonschema.Schema

	byName map[string]int
}

// Field looks up a field by external name.
func (t *Type) Field(name string) (domain.Field, bool) {
	i, ok := t.byName[name]
	if !ok {
		return domain.Field{}, false
	}
	return t.Fields[i], true
}

// FieldsOf returns the fields of one kind in declared order.
func (t *Type) FieldsOf(kind domain.FieldKind) []domain.Field {
	var out []domain.Field
	for _, f := range t.Fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// Dependencies returns the distinct dependency names referenced by the frame,
// in field order.
func (t *Type) Dependencies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range t.Fields {
		if f.Kind == domain.KindDependency && !seen[f.Dependency] {
			seen[f.Dependency] = true
			out = append(out, f.Dependency)
		}
	}
	return out
}

// Inputs returns the fields that must be supplied when the frame starts a run.
func (t *Type) Inputs() []domain.Field {
	var out []domain.Field
	for _, f := range t.Fields {
		if f.Input {
			out = append(out, f)
		}
	}
	return out
}

// Option configures a frame at registration.
type Option func(*Type)

// WithName overrides the frame name (default: the Go type name).
func WithName(name string) Option {
	return func(t *Type) { t.Name = name }
}

// WithInstruction attaches a production instruction longer than the name.
func WithInstruction(text string) Option {
	return func(t *Type) { t.Instruction = text }
}

// WithRouting sets the successor routing (default: Terminal).
func WithRouting(r domain.Routing) Option {
	return func(t *Type) { t.Routing = r }
}

// WithResponse selects the field used as run response.
func WithResponse(field string) Option {
	return func(t *Type) { t.Response = field }
}

// Registry holds frame types keyed by name and by Go type, plus the
// precomputed ancestor lists of every declared field type.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*Type
	byGo    map[reflect.Type]*Type
	order   []string
	lineage map[reflect.Type][]Ancestor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Type),
		byGo:    make(map[reflect.Type]*Type),
		lineage: make(map[reflect.Type][]Ancestor),
	}
}

// Register classifies proto's struct type and stores it.
func (r *Registry) Register(proto any, opts ...Option) (*Type, error) {
	goType := reflect.TypeOf(proto)
	if goType != nil && goType.Kind() == reflect.Pointer {
		goType = goType.Elem()
	}
	c, err := Classify(goType)
	if err != nil {
		return nil, err
	}

	t := &Type{
		Name:    goType.Name(),
		GoType:  goType,
		Fields:  c.Fields,
		Kinds:   c.Kinds,
		Routing: domain.Terminal(),
		byName:  make(map[string]int, len(c.Fields)),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.Name == "" {
		return nil, &domain.DefinitionError{Frame: goType.String(), Reason: "anonymous struct frames need a name"}
	}
	for i, f := range t.Fields {
		t.byName[f.Name] = i
	}
	if t.Response != "" {
		if _, ok := t.byName[t.Response]; !ok {
			return nil, &domain.DefinitionError{Frame: t.Name, Field: t.Response, Reason: "response field does not exist"}
		}
	}

	t.Schema, err = schema.Describe(goType, t.Fields)
	if err != nil {
		return nil, &domain.DefinitionError{Frame: t.Name, Reason: err.Error()}
	}
	t.Schema.Title = t.Name
	if t.Instruction != "" {
		t.Schema.Description = t.Instruction
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[t.Name]; exists {
		return nil, &domain.DefinitionError{Frame: t.Name, Reason: "frame registered twice"}
	}
	if _, exists := r.byGo[goType]; exists {
		return nil, &domain.DefinitionError{Frame: t.Name, Reason: fmt.Sprintf("go type %s registered twice", goType)}
	}
	r.byName[t.Name] = t
	r.byGo[goType] = t
	r.order = append(r.order, t.Name)
	for _, f := range t.Fields {
		if _, ok := r.lineage[f.Type]; !ok {
			r.lineage[f.Type] = Lineage(f.Type)
		}
	}
	return t, nil
}

// SetRouting replaces the routing of a registered frame. Builders call it
// once every successor has been registered.
func (r *Registry) SetRouting(name string, routing domain.Routing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownFrame, name)
	}
	t.Routing = routing
	return nil
}

// Lookup returns a frame by name.
func (r *Registry) Lookup(name string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownFrame, name)
	}
	return t, nil
}

// LookupGo returns the frame registered for a Go struct type.
func (r *Registry) LookupGo(goType reflect.Type) (*Type, bool) {
	if goType != nil && goType.Kind() == reflect.Pointer {
		goType = goType.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byGo[goType]
	return t, ok
}

// NameOf resolves a prototype value (or a frame name string) to a frame name.
func (r *Registry) NameOf(ref any) (string, error) {
	if name, ok := ref.(string); ok {
		if _, err := r.Lookup(name); err != nil {
			return "", err
		}
		return name, nil
	}
	t, ok := r.LookupGo(reflect.TypeOf(ref))
	if !ok {
		return "", fmt.Errorf("%w: %T", domain.ErrUnknownFrame, ref)
	}
	return t.Name, nil
}

// Names lists registered frames in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Ancestors returns the nominal ancestor list of t. Declared field types are
// computed at registration; other types are computed once on first use.
func (r *Registry) Ancestors(t reflect.Type) []Ancestor {
	r.mu.RLock()
	a, ok := r.lineage[t]
	r.mu.RUnlock()
	if ok {
		return a
	}
	a = Lineage(t)
	r.mu.Lock()
	r.lineage[t] = a
	r.mu.Unlock()
	return a
}
