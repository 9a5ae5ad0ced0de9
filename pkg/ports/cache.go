package ports

import (
	"context"

	"github.com/aretw0/weft/pkg/domain"
)

// DependencyCache stores dependency results for the lifetime chosen by the host:
// one run by default, or a wider scope (a conversation) when injected.
// Concurrent invocations are shared per cache instance; implementations should
// be pointer types, since value-type caches of one type share a single scope.
type DependencyCache interface {
	// Get returns the cached value for key and whether it was present.
	Get(ctx context.Context, key domain.CacheKey) (any, bool, error)

	// Put stores the value produced for key.
	Put(ctx context.Context, key domain.CacheKey, value any) error
}

// UnlockFunc releases a lock taken by an InvocationLocker.
type UnlockFunc func(ctx context.Context) error

// InvocationLocker is implemented by caches shared between processes. The
// resolver holds the lock of a key between a cache miss and the Put of the
// fresh value, so replicas sharing the cache invoke each function once.
type InvocationLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	Lock(ctx context.Context, key domain.CacheKey) (UnlockFunc, error)
}
