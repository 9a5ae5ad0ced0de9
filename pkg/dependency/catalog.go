package dependency

import (
	"sync"

	"github.com/aretw0/weft/pkg/domain"
)

// Catalog manages the available dependency definitions.
type Catalog struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	order []string
}

// NewCatalog creates a new empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		defs: make(map[string]*Definition),
	}
}

// Register adds a definition. Names are identities, so registering a name
// twice is a definition error.
func (c *Catalog) Register(def *Definition) error {
	if def == nil {
		return &domain.DefinitionError{Reason: "nil dependency definition"}
	}
	if err := def.validate(); err != nil {
		return &domain.DefinitionError{Reason: err.Error()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.defs[def.Name]; exists {
		return &domain.DefinitionError{Reason: "dependency " + def.Name + " registered twice"}
	}
	c.defs[def.Name] = def
	c.order = append(c.order, def.Name)
	return nil
}

// Lookup returns a definition by name.
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[name]
	return def, ok
}

// Names lists registered dependencies in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}
