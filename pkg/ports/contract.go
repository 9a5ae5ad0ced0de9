package ports

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/pkg/domain"
)

// RunDependencyCacheContract runs a suite of tests to verify that a
// DependencyCache implementation adheres to the interface contract.
func RunDependencyCacheContract(t *testing.T, cache DependencyCache) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000")

	t.Run("Miss", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, domain.CacheKey{Function: "missing-" + suffix, ArgsHash: 1})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Put and Get", func(t *testing.T) {
		key := domain.CacheKey{Function: "weather-" + suffix, ArgsHash: 42, Returns: reflect.TypeOf("")}
		require.NoError(t, cache.Put(ctx, key, "sunny"))

		got, ok, err := cache.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "sunny", got)
	})

	t.Run("Arguments Are Part Of Identity", func(t *testing.T) {
		a := domain.CacheKey{Function: "score-" + suffix, ArgsHash: 1, Returns: reflect.TypeOf(0)}
		b := domain.CacheKey{Function: "score-" + suffix, ArgsHash: 2, Returns: reflect.TypeOf(0)}
		require.NoError(t, cache.Put(ctx, a, 10))
		require.NoError(t, cache.Put(ctx, b, 20))

		got, ok, err := cache.Get(ctx, a)
		require.NoError(t, err)
		require.True(t, ok)
		assert.EqualValues(t, 10, got)

		got, ok, err = cache.Get(ctx, b)
		require.NoError(t, err)
		require.True(t, ok)
		assert.EqualValues(t, 20, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := domain.CacheKey{Function: "city-" + suffix, ArgsHash: 7, Returns: reflect.TypeOf("")}
		require.NoError(t, cache.Put(ctx, key, "Lisbon"))
		require.NoError(t, cache.Put(ctx, key, "Porto"))

		got, ok, err := cache.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Porto", got)
	})
}
