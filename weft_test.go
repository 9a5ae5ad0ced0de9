package weft_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/adapters/scripted"
	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
)

type Begin struct {
	Name     string `json:"name" frame:"input"`
	Weather  string `json:"weather" frame:"dep:fetchWeather"`
	Greeting string `json:"greeting"`
}

func fetchWeather(ctx context.Context, args dependency.Args) (string, error) {
	city, err := dependency.Get[string](args, "city")
	if err != nil {
		return "", err
	}
	return "sunny in " + city, nil
}

func greeterFlow(t *testing.T, opts ...func(*dsl.Builder)) *dsl.Flow {
	t.Helper()
	b := dsl.New("greeter")
	b.Dependency(dependency.Of("fetchWeather", fetchWeather, dependency.FromField("city", "name")))
	b.Frame(Begin{})
	for _, opt := range opts {
		opt(b)
	}
	flow, err := b.Build()
	require.NoError(t, err)
	return flow
}

func TestEngine_Run(t *testing.T) {
	flow := greeterFlow(t)
	filler := scripted.New(scripted.WithFill("Begin", map[string]any{"greeting": "Hello Ann"}))

	eng, err := weft.New(flow, weft.WithFiller(filler))
	require.NoError(t, err)
	assert.Equal(t, "greeter", eng.Name)

	res, err := eng.Run(context.Background(), Begin{}, weft.Input{"name": "Ann"})
	require.NoError(t, err)
	require.Equal(t, 1, res.History.Len())
	assert.Equal(t, Begin{Name: "Ann", Weather: "sunny in Ann", Greeting: "Hello Ann"}, res.Response)

	// nil and the frame name both select the same start frame.
	for _, start := range []any{nil, "Begin"} {
		res, err := eng.Run(context.Background(), start, weft.Input{"name": "Bo"})
		require.NoError(t, err)
		assert.Equal(t, "sunny in Bo", res.History[0].Fields["weather"])
	}
}

func TestEngine_UnknownStart(t *testing.T) {
	eng, err := weft.New(greeterFlow(t))
	require.NoError(t, err)

	type Other struct{}
	_, err = eng.Run(context.Background(), Other{}, nil)
	assert.ErrorIs(t, err, domain.ErrDefinition)
	assert.ErrorIs(t, err, domain.ErrUnknownFrame)
}

func TestNew_RequiresFlow(t *testing.T) {
	_, err := weft.New(nil)
	assert.Error(t, err)
}

type Twin struct {
	Left  map[string]int `json:"left" frame:"dep:slowFn"`
	Right map[string]int `json:"right" frame:"dep:slowFn"`
}

func TestEngine_ConcurrentRunsShareInjectedCache(t *testing.T) {
	var calls atomic.Int32
	b := dsl.New("twins")
	b.Dependency(dependency.Of("slowFn", func(ctx context.Context, args dependency.Args) (map[string]int, error) {
		calls.Add(1)
		time.Sleep(30 * time.Millisecond)
		return map[string]int{"score": 1}, nil
	}, dependency.Value("q", "same")))
	b.Frame(Twin{})
	flow, err := b.Build()
	require.NoError(t, err)

	eng, err := weft.New(flow, weft.WithCache(memory.NewCache()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*domain.Result, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := eng.Run(context.Background(), nil, nil)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, res := range results {
		twin := res.Response.(Twin)
		assert.Equal(t, 1, twin.Left["score"])
		twin.Left["probe"] = 1
		assert.Equal(t, 1, twin.Right["probe"], "both fields hold the identical map")
		delete(twin.Left, "probe")
	}
}

func TestEngine_RunsAreIsolatedByDefault(t *testing.T) {
	var calls atomic.Int32
	b := dsl.New("isolated")
	b.Dependency(dependency.Of("slowFn", func(ctx context.Context, args dependency.Args) (map[string]int, error) {
		calls.Add(1)
		return map[string]int{}, nil
	}))
	b.Frame(Twin{})
	flow, err := b.Build()
	require.NoError(t, err)

	eng, err := weft.New(flow)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := eng.Run(context.Background(), nil, nil)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, calls.Load(), "each run owns its cache")
}

func TestEngine_PartialResultOnFailure(t *testing.T) {
	type Second struct {
		Text string `json:"text"`
	}
	flow := greeterFlow(t, func(b *dsl.Builder) {
		b.Frame(Begin{}).Next(Second{})
		b.Frame(Second{})
	})
	filler := scripted.New(scripted.WithFill("Begin", map[string]any{"greeting": "hi"}))

	eng, err := weft.New(flow, weft.WithFiller(filler))
	require.NoError(t, err)

	res, err := eng.Run(context.Background(), nil, weft.Input{"name": "Ann"})
	require.ErrorIs(t, err, scripted.ErrNoScript)

	var fillErr *domain.FillError
	require.True(t, errors.As(err, &fillErr))
	assert.Equal(t, "Second", fillErr.Frame)
	assert.Equal(t, []string{"Begin"}, res.History.Types())
}
