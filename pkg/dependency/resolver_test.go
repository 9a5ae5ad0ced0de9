package dependency_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestResolve_FanInInvokesOnce(t *testing.T) {
	var calls atomic.Int32
	cat := mustCatalog(t,
		dependency.New("location", func(ctx context.Context, args dependency.Args) (any, error) {
			calls.Add(1)
			return "Lisbon", nil
		}),
		dependency.New("weather", func(ctx context.Context, args dependency.Args) (any, error) {
			return args["city"].(string) + ": sunny", nil
		}, dependency.FromDependency("city", "location")),
		dependency.New("news", func(ctx context.Context, args dependency.Args) (any, error) {
			return args["city"].(string) + ": calm", nil
		}, dependency.FromDependency("city", "location")),
	)
	g, err := dependency.BuildFrom("weather", cat)
	require.NoError(t, err)
	g2, err := dependency.BuildFrom("news", cat)
	require.NoError(t, err)

	r := dependency.NewResolver()
	cache := memory.NewCache()

	got, err := r.Resolve(context.Background(), g, nil, cache)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon: sunny", got["weather"])

	got, err = r.Resolve(context.Background(), g2, nil, cache)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon: calm", got["news"])

	assert.EqualValues(t, 1, calls.Load(), "location must be served from the cache the second time")
}

func TestResolve_LevelRunsConcurrently(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0
	slow := func(ctx context.Context, args dependency.Args) (any, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return args["n"], nil
	}
	cat := mustCatalog(t,
		dependency.New("a", slow, dependency.Value("n", 1)),
		dependency.New("b", slow, dependency.Value("n", 2)),
		dependency.New("c", slow, dependency.Value("n", 3)),
		dependency.New("sum", func(ctx context.Context, args dependency.Args) (any, error) {
			return args["a"].(int) + args["b"].(int) + args["c"].(int), nil
		},
			dependency.FromDependency("a", "a"),
			dependency.FromDependency("b", "b"),
			dependency.FromDependency("c", "c"),
		),
	)
	g, err := dependency.BuildFrom("sum", cat)
	require.NoError(t, err)

	got, err := dependency.NewResolver().Resolve(context.Background(), g, nil, memory.NewCache())
	require.NoError(t, err)
	assert.Equal(t, 6, got["sum"])
	assert.Equal(t, 3, peak)
}

func TestResolve_ConcurrencyLimit(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0
	slow := func(ctx context.Context, args dependency.Args) (any, error) {
		mu.Lock()
		running++
		peak = max(peak, running)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return nil, nil
	}
	cat := mustCatalog(t,
		dependency.New("a", slow),
		dependency.New("b", slow),
		dependency.New("c", slow),
		dependency.New("all", constant(true),
			dependency.FromDependency("a", "a"),
			dependency.FromDependency("b", "b"),
			dependency.FromDependency("c", "c"),
		),
	)
	g, err := dependency.BuildFrom("all", cat)
	require.NoError(t, err)

	_, err = dependency.NewResolver(dependency.WithConcurrency(1)).Resolve(context.Background(), g, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, peak)
}

func TestResolve_BindsFieldsAndConstants(t *testing.T) {
	cat := mustCatalog(t,
		dependency.Of("greet", func(ctx context.Context, args dependency.Args) (string, error) {
			name, err := dependency.Get[string](args, "name")
			if err != nil {
				return "", err
			}
			punct, err := dependency.Get[string](args, "punct")
			if err != nil {
				return "", err
			}
			return "Hello " + name + punct, nil
		}, dependency.FromField("name", "name"), dependency.Value("punct", "!")),
	)
	g, err := dependency.BuildFrom("greet", cat)
	require.NoError(t, err)

	bind := func(field string) (any, bool) {
		if field == "name" {
			return "Ada", true
		}
		return nil, false
	}
	got, err := dependency.NewResolver().Resolve(context.Background(), g, bind, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada!", got["greet"])

	_, err = dependency.NewResolver().Resolve(context.Background(), g, nil, nil)
	var depErr *domain.DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "greet", depErr.Function)
}

func TestResolve_ErrorAbortsAndIsNotCached(t *testing.T) {
	boom := errors.New("upstream unavailable")
	var downstream atomic.Int32
	cat := mustCatalog(t,
		dependency.New("fetch", func(ctx context.Context, args dependency.Args) (any, error) {
			return nil, boom
		}),
		dependency.New("render", func(ctx context.Context, args dependency.Args) (any, error) {
			downstream.Add(1)
			return nil, nil
		}, dependency.FromDependency("data", "fetch")),
	)
	g, err := dependency.BuildFrom("render", cat)
	require.NoError(t, err)

	cache := memory.NewCache()
	_, err = dependency.NewResolver().Resolve(context.Background(), g, nil, cache)
	require.Error(t, err)

	var depErr *domain.DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "fetch", depErr.Function)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, downstream.Load())
	assert.Zero(t, cache.Len())
}

func TestResolve_CancelledInvocationNotCached(t *testing.T) {
	started := make(chan struct{})
	cat := mustCatalog(t,
		dependency.New("slow", func(ctx context.Context, args dependency.Args) (any, error) {
			close(started)
			<-ctx.Done()
			return "late", nil
		}),
	)
	g, err := dependency.BuildFrom("slow", cat)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	cache := memory.NewCache()
	_, err = dependency.NewResolver().Resolve(ctx, g, nil, cache)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, cache.Len())
}

func TestResolve_InlineRunsOnCaller(t *testing.T) {
	var observed []string
	var mu sync.Mutex
	cat := mustCatalog(t,
		dependency.New("cheap", constant(2)).Sync(),
		dependency.New("double", func(ctx context.Context, args dependency.Args) (any, error) {
			return args["x"].(int) * 2, nil
		}, dependency.FromDependency("x", "cheap")).Sync(),
	)
	g, err := dependency.BuildFrom("double", cat)
	require.NoError(t, err)

	r := dependency.NewResolver(dependency.WithObserver(func(ctx context.Context, fn string, cached bool, elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		observed = append(observed, fn)
	}))
	got, err := r.Resolve(context.Background(), g, nil, memory.NewCache())
	require.NoError(t, err)
	assert.Equal(t, 4, got["double"])
	assert.Equal(t, []string{"cheap", "double"}, observed)
}

func TestResolve_PanicBecomesDependencyError(t *testing.T) {
	cat := mustCatalog(t, dependency.New("bad", func(ctx context.Context, args dependency.Args) (any, error) {
		panic("nil map")
	}))
	g, err := dependency.BuildFrom("bad", cat)
	require.NoError(t, err)

	_, err = dependency.NewResolver().Resolve(context.Background(), g, nil, nil)
	var depErr *domain.DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Contains(t, depErr.Error(), "panic: nil map")
}

func TestResolve_SharedCacheAcrossConcurrentRuns(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	cat := mustCatalog(t, dependency.New("slowFn", func(ctx context.Context, args dependency.Args) (any, error) {
		calls.Add(1)
		<-release
		return "done", nil
	}, dependency.Value("q", "same")))
	g, err := dependency.BuildFrom("slowFn", cat)
	require.NoError(t, err)

	r := dependency.NewResolver()
	cache := memory.NewCache()

	var wg sync.WaitGroup
	results := make([]any, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Resolve(context.Background(), g, nil, cache)
			assert.NoError(t, err)
			results[i] = got["slowFn"]
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, v := range results {
		assert.Equal(t, "done", v)
	}
}

func TestResolve_CancelledRunDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	cat := mustCatalog(t, dependency.New("slowFn", func(ctx context.Context, args dependency.Args) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, dependency.Value("q", "same")))
	g, err := dependency.BuildFrom("slowFn", cat)
	require.NoError(t, err)

	r := dependency.NewResolver()
	cache := memory.NewCache()

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctxA, g, nil, cache)
		errA <- err
	}()
	<-started

	type outcome struct {
		got map[string]any
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		got, err := r.Resolve(context.Background(), g, nil, cache)
		doneB <- outcome{got, err}
	}()

	time.Sleep(10 * time.Millisecond)
	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-doneB
	require.NoError(t, b.err)
	assert.Equal(t, "done", b.got["slowFn"])
	assert.EqualValues(t, 1, calls.Load(), "the waiting run keeps the shared invocation alive")
	assert.Equal(t, 1, cache.Len())
}

func TestResolve_LastWaiterCancelsInvocation(t *testing.T) {
	started := make(chan struct{})
	stopped := make(chan struct{})
	cat := mustCatalog(t, dependency.New("slowFn", func(ctx context.Context, args dependency.Args) (any, error) {
		close(started)
		<-ctx.Done()
		close(stopped)
		return nil, ctx.Err()
	}))
	g, err := dependency.BuildFrom("slowFn", cat)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err = dependency.NewResolver().Resolve(ctx, g, nil, memory.NewCache())
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("invocation kept running after its only caller left")
	}
}

func TestKeyOf_IgnoresMapOrder(t *testing.T) {
	def := dependency.New("f", constant(nil))
	a, err := dependency.KeyOf(def, dependency.Args{"x": 1, "y": "two"})
	require.NoError(t, err)
	b, err := dependency.KeyOf(def, dependency.Args{"y": "two", "x": 1})
	require.NoError(t, err)
	c, err := dependency.KeyOf(def, dependency.Args{"x": 2, "y": "two"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.ArgsHash, c.ArgsHash)
}
