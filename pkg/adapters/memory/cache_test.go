package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

func TestCache_Contract(t *testing.T) {
	ports.RunDependencyCacheContract(t, memory.NewCache())
}

func TestCache_KeepsReference(t *testing.T) {
	cache := memory.NewCache()
	ctx := context.Background()
	key := domain.CacheKey{Function: "profile", ArgsHash: 3}

	type profile struct{ Name string }
	p := &profile{Name: "Ada"}
	require.NoError(t, cache.Put(ctx, key, p))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, p, got)
	assert.Equal(t, 1, cache.Len())
}
