package demo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/domain"
)

func TestGreetingFlow(t *testing.T) {
	flow, err := Flow()
	require.NoError(t, err)

	tests := []struct {
		city     string
		frames   []string
		response string
	}{
		{"Lisbon", []string{"Visitor", "Greeting"}, "Hello Ann, enjoy the sunny weather in Lisbon!"},
		{"London", []string{"Visitor", "Consolation"}, "Sorry about the rainy weather in London, Ann."},
	}
	for _, tt := range tests {
		t.Run(tt.city, func(t *testing.T) {
			eng, err := weft.New(flow, weft.WithFiller(Filler()))
			require.NoError(t, err)

			res, err := eng.Run(context.Background(), nil, weft.Input{"name": "Ann", "city": tt.city})
			require.NoError(t, err)
			assert.Equal(t, tt.frames, res.History.Types())
			assert.Equal(t, tt.response, res.Response)
		})
	}
}

func TestGreetingFlow_UnknownCity(t *testing.T) {
	flow, err := Flow()
	require.NoError(t, err)
	eng, err := weft.New(flow, weft.WithFiller(Filler()))
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), nil, weft.Input{"name": "Ann", "city": "Atlantis"})
	var depErr *domain.DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, "weather", depErr.Function)
	assert.Equal(t, "Visitor", depErr.Frame)
}
