package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/weft/pkg/domain"
)

// Cache implements ports.DependencyCache on Redis, letting several runs (or
// several processes) share dependency results.
//
// Values are stored as JSON. On read they are decoded into the key's declared
// return type when known, so typed dependencies keep their Go type.
type Cache struct {
	client  *backend.Client
	prefix  string
	ttl     time.Duration
	lockTTL time.Duration
	poll    time.Duration
}

// Option configures the Redis cache.
type Option func(*Cache)

// WithTTL sets the expiration of cached results. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithPrefix sets the key prefix (default "weft:cache:").
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithLockTTL bounds how long an invocation lock may be held (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.lockTTL = ttl }
}

// New creates a cache connected to addr.
func New(addr string, opts ...Option) *Cache {
	client := backend.NewClient(&backend.Options{Addr: addr})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a cache on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	c := &Cache{
		client:  client,
		prefix:  "weft:cache:",
		lockTTL: 30 * time.Second,
		poll:    50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(k domain.CacheKey) string {
	return c.prefix + k.String()
}

// Get returns the cached value for key.
func (c *Cache) Get(ctx context.Context, key domain.CacheKey) (any, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	if key.Returns == nil {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", key, err)
		}
		return v, true, nil
	}
	ptr := reflect.New(key.Returns)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, false, fmt.Errorf("decode %s into %s: %w", key, key.Returns, err)
	}
	return ptr.Elem().Interface(), true, nil
}

// Put stores value under key.
func (c *Cache) Put(ctx context.Context, key domain.CacheKey, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
