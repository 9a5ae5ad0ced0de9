package memory

import (
	"context"
	"sync"

	"github.com/aretw0/weft/pkg/domain"
)

// Cache implements ports.DependencyCache in memory.
// Safe for concurrent use. Values are stored by reference.
type Cache struct {
	data map[string]any
	mu   sync.RWMutex
}

// NewCache creates a new in-memory dependency cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]any),
	}
}

// Get returns the cached result of an invocation.
func (c *Cache) Get(ctx context.Context, key domain.CacheKey) (any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key.String()]
	return v, ok, nil
}

// Put stores the result of an invocation.
func (c *Cache) Put(ctx context.Context, key domain.CacheKey, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key.String()] = value
	return nil
}

// Len returns the number of cached invocations.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
