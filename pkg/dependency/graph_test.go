package dependency_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
)

func constant(v any) dependency.Func {
	return func(ctx context.Context, args dependency.Args) (any, error) { return v, nil }
}

func mustCatalog(t *testing.T, defs ...*dependency.Definition) *dependency.Catalog {
	t.Helper()
	cat := dependency.NewCatalog()
	for _, d := range defs {
		require.NoError(t, cat.Register(d))
	}
	return cat
}

func TestCatalog_Register(t *testing.T) {
	cat := dependency.NewCatalog()
	require.NoError(t, cat.Register(dependency.New("a", constant(1))))

	err := cat.Register(dependency.New("a", constant(2)))
	assert.ErrorIs(t, err, domain.ErrDefinition)

	err = cat.Register(dependency.New("b", nil))
	assert.ErrorIs(t, err, domain.ErrDefinition)

	err = cat.Register(dependency.New("c", constant(1), dependency.Value("x", 1), dependency.Value("x", 2)))
	assert.ErrorIs(t, err, domain.ErrDefinition)

	err = cat.Register(dependency.New("d", constant(1), dependency.Param{Name: "x"}))
	assert.ErrorIs(t, err, domain.ErrDefinition)

	assert.Equal(t, []string{"a"}, cat.Names())
}

func TestBuildFrom_Levels(t *testing.T) {
	// report <- (weather, news) ; weather <- location ; news <- location
	cat := mustCatalog(t,
		dependency.New("location", constant("Lisbon")),
		dependency.New("weather", constant("sunny"), dependency.FromDependency("city", "location")),
		dependency.New("news", constant("calm"), dependency.FromDependency("city", "location")),
		dependency.New("report", constant("ok"),
			dependency.FromDependency("w", "weather"),
			dependency.FromDependency("n", "news"),
		),
	)

	g, err := dependency.BuildFrom("report", cat)
	require.NoError(t, err)

	assert.Equal(t, 4, g.Len(), "shared chained dependency must be one node")
	assert.Equal(t, [][]string{{"location"}, {"weather", "news"}, {"report"}}, g.LevelNames())
	assert.ElementsMatch(t, [][2]string{
		{"report", "weather"},
		{"report", "news"},
		{"weather", "location"},
		{"news", "location"},
	}, g.Edges())
}

func TestBuildFrom_Cycle(t *testing.T) {
	calls := 0
	counting := func(ctx context.Context, args dependency.Args) (any, error) {
		calls++
		return nil, nil
	}
	cat := mustCatalog(t,
		dependency.New("a", counting, dependency.FromDependency("x", "b")),
		dependency.New("b", counting, dependency.FromDependency("x", "c")),
		dependency.New("c", counting, dependency.FromDependency("x", "a")),
	)

	_, err := dependency.BuildFrom("a", cat)
	require.Error(t, err)

	var cycle *domain.DependencyCycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Functions)
	assert.ErrorIs(t, err, domain.ErrDefinition)
	assert.Zero(t, calls, "no function runs when the graph is cyclic")
}

func TestBuildFrom_SelfCycle(t *testing.T) {
	cat := mustCatalog(t, dependency.New("loop", constant(1), dependency.FromDependency("x", "loop")))

	_, err := dependency.BuildFrom("loop", cat)
	var cycle *domain.DependencyCycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"loop", "loop"}, cycle.Functions)
}

func TestBuildFrom_UnknownDependency(t *testing.T) {
	cat := mustCatalog(t, dependency.New("a", constant(1), dependency.FromDependency("x", "ghost")))

	_, err := dependency.BuildFrom("a", cat)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDefinition)
	assert.Contains(t, err.Error(), `"ghost"`)
}

type weatherFrame struct {
	Today    string `json:"today" frame:"dep:weather"`
	Tomorrow string `json:"tomorrow" frame:"dep:weather"`
	Headline string `json:"headline" frame:"dep:news"`
}

func TestBuildForFrame_DeduplicatesFields(t *testing.T) {
	reg := frame.NewRegistry()
	ft, err := reg.Register(weatherFrame{})
	require.NoError(t, err)

	cat := mustCatalog(t,
		dependency.New("weather", constant("sunny")),
		dependency.New("news", constant("calm")),
	)
	g, err := dependency.BuildForFrame(ft, cat)
	require.NoError(t, err)
	assert.Equal(t, []string{"weather", "news"}, g.Names())
	assert.Equal(t, [][]string{{"weather", "news"}}, g.LevelNames())
}

func TestBuildForFrame_UnknownNamesFrame(t *testing.T) {
	reg := frame.NewRegistry()
	ft, err := reg.Register(weatherFrame{})
	require.NoError(t, err)

	_, err = dependency.BuildForFrame(ft, mustCatalog(t, dependency.New("weather", constant(1))))
	var defErr *domain.DefinitionError
	require.True(t, errors.As(err, &defErr))
	assert.Equal(t, "weatherFrame", defErr.Frame)
}
