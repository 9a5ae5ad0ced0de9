package recall_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
	"github.com/aretw0/weft/pkg/recall"
)

type Location struct {
	City string `json:"city"`
}

type Address struct {
	Location
	Street string `json:"street"`
}

// LookAlike has the same shape as Location but is not nominally related.
type LookAlike struct {
	City string `json:"city"`
}

type Visit struct {
	Where Location `json:"where"`
	Day   int      `json:"day"`
}

type Note struct {
	Text string `json:"text"`
}

type Delivery struct {
	To    *Address  `json:"to"`
	Other LookAlike `json:"other"`
}

type Summary struct {
	Where Location `json:"where" frame:"recall"`
}

func registry(t *testing.T) *frame.Registry {
	t.Helper()
	reg := frame.NewRegistry()
	for _, proto := range []any{Visit{}, Note{}, Delivery{}, Summary{}} {
		_, err := reg.Register(proto)
		require.NoError(t, err)
	}
	return reg
}

func instance(t *testing.T, reg *frame.Registry, index int, v any) domain.FrameInstance {
	t.Helper()
	ft, ok := reg.LookupGo(reflect.TypeOf(v))
	require.True(t, ok)
	rv := reflect.ValueOf(v)
	fields := make(map[string]any, len(ft.Fields))
	for _, f := range ft.Fields {
		fields[f.Name] = rv.FieldByIndex(f.Index).Interface()
	}
	return domain.FrameInstance{Type: ft.Name, Index: index, Value: v, Fields: fields}
}

var locationType = reflect.TypeOf(Location{})

func TestFind_NearestWins(t *testing.T) {
	reg := registry(t)
	history := domain.History{
		instance(t, reg, 0, Visit{Where: Location{City: "Lisbon"}, Day: 1}),
		instance(t, reg, 1, Note{Text: "between"}),
		instance(t, reg, 2, Visit{Where: Location{City: "Porto"}, Day: 2}),
	}

	m, ok := recall.Find(locationType, history, reg)
	require.True(t, ok)
	assert.Equal(t, Location{City: "Porto"}, m.Value.Interface())
	assert.Equal(t, 2, m.Frame)
	assert.Equal(t, "where", m.Field)
}

func TestFind_ProjectsEmbeddedAncestor(t *testing.T) {
	reg := registry(t)
	history := domain.History{
		instance(t, reg, 0, Visit{Where: Location{City: "Lisbon"}}),
		instance(t, reg, 1, Delivery{
			To:    &Address{Location: Location{City: "Braga"}, Street: "Rua Nova"},
			Other: LookAlike{City: "Nowhere"},
		}),
	}

	m, ok := recall.Find(locationType, history, reg)
	require.True(t, ok)
	assert.Equal(t, Location{City: "Braga"}, m.Value.Interface())
	assert.Equal(t, "to", m.Field)
}

func TestFind_IsNominalOnly(t *testing.T) {
	reg := registry(t)
	history := domain.History{
		instance(t, reg, 0, Delivery{Other: LookAlike{City: "Nowhere"}}),
	}

	// The nil *Address cannot be projected and LookAlike is only structurally
	// similar, so nothing matches.
	_, ok := recall.Find(locationType, history, reg)
	assert.False(t, ok)
}

func TestFind_WholeFrame(t *testing.T) {
	reg := registry(t)
	history := domain.History{
		instance(t, reg, 0, Note{Text: "first"}),
		instance(t, reg, 1, Visit{Day: 3}),
	}

	m, ok := recall.Find(reflect.TypeOf(Note{}), history, reg)
	require.True(t, ok)
	assert.Equal(t, Note{Text: "first"}, m.Value.Interface())
	assert.Empty(t, m.Field)
}

func TestResolve_NotFound(t *testing.T) {
	reg := registry(t)
	ft, err := reg.Lookup("Summary")
	require.NoError(t, err)
	field, ok := ft.Field("where")
	require.True(t, ok)

	history := domain.History{instance(t, reg, 0, Note{Text: "x"})}
	_, err = recall.Resolve("Summary", field, history, reg)
	require.Error(t, err)

	var notFound *domain.RecallNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Summary", notFound.Frame)
	assert.Equal(t, "where", notFound.Field)
	assert.Len(t, notFound.History, 1)
}
