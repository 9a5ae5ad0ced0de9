package frame

import (
	"fmt"

	"github.com/aretw0/weft/pkg/domain"
)

// Route returns the routing variant of a frame.
func Route(t *Type) domain.Routing {
	return t.Routing
}

// Successors classifies a declared successor list given as prototypes or
// frame names. Nil entries only mark the successor as optional and are not
// counted: no successor is Terminal, one is Direct, two or more is Decision.
func (r *Registry) Successors(refs ...any) (domain.Routing, error) {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		name, err := r.NameOf(ref)
		if err != nil {
			return domain.Routing{}, err
		}
		names = append(names, name)
	}
	return domain.RoutingFor(names...), nil
}

// Validate checks that every routing target is registered.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		t := r.byName[name]
		for _, next := range t.Routing.Next {
			if _, ok := r.byName[next]; !ok {
				return &domain.DefinitionError{Frame: name, Reason: fmt.Sprintf("successor %q is not registered", next)}
			}
		}
	}
	return nil
}
