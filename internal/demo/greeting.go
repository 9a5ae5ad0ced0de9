// Package demo holds the greeting flow run by the weft command.
package demo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/weft/pkg/adapters/scripted"
	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/aretw0/weft/pkg/ports"
)

// Visitor is the start frame: who is greeted and what is known about them.
type Visitor struct {
	Name    string `json:"name" frame:"input"`
	City    string `json:"city" frame:"input"`
	Weather string `json:"weather" frame:"dep:weather"`
	Mood    string `json:"mood" frame:"dep:mood"`
}

// Greeting answers a visitor in a good mood.
type Greeting struct {
	Visitor Visitor `json:"visitor" frame:"recall"`
	Text    string  `json:"text" hint:"one friendly sentence mentioning the weather"`
}

// Consolation answers a visitor in a bad mood.
type Consolation struct {
	Visitor Visitor `json:"visitor" frame:"recall"`
	Text    string  `json:"text" hint:"one kind sentence"`
	Offer   string  `json:"offer,omitempty" hint:"something to cheer them up"`
}

// Forecasts stands in for a weather service.
var Forecasts = map[string]string{
	"lisbon": "sunny",
	"london": "rainy",
	"oslo":   "snowy",
}

func weather(ctx context.Context, args dependency.Args) (string, error) {
	city, err := dependency.Get[string](args, "city")
	if err != nil {
		return "", err
	}
	if w, ok := Forecasts[strings.ToLower(city)]; ok {
		return w, nil
	}
	return "", fmt.Errorf("no forecast for %q", city)
}

func mood(ctx context.Context, args dependency.Args) (string, error) {
	w, err := dependency.Get[string](args, "weather")
	if err != nil {
		return "", err
	}
	if w == "sunny" {
		return "cheerful", nil
	}
	return "gloomy", nil
}

// Flow builds the greeting flow.
func Flow() (*dsl.Flow, error) {
	b := dsl.New("greeting")
	b.Dependency(
		dependency.Of("weather", weather, dependency.FromField("city", "city")),
		dependency.Of("mood", mood, dependency.FromDependency("weather", "weather")).Sync(),
	)
	b.Frame(Visitor{}).
		Instruct("Decide how to greet the visitor").
		Decide(Greeting{}, Consolation{})
	b.Frame(Greeting{}).Respond("text")
	b.Frame(Consolation{}).Respond("text")
	return b.Build()
}

// Filler answers the greeting flow without a model.
func Filler() Chooser {
	return Chooser{scripted.New(scripted.WithFallback(fill))}
}

func fill(ctx context.Context, req ports.FillRequest) (map[string]any, error) {
	if len(req.History) == 0 {
		return nil, fmt.Errorf("%s: no visitor in history", req.Frame)
	}
	v, ok := req.History[0].Value.(Visitor)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected start frame %T", req.Frame, req.History[0].Value)
	}
	switch req.Frame {
	case "Greeting":
		return map[string]any{"text": fmt.Sprintf("Hello %s, enjoy the %s weather in %s!", v.Name, v.Weather, v.City)}, nil
	case "Consolation":
		return map[string]any{
			"text":  fmt.Sprintf("Sorry about the %s weather in %s, %s.", v.Weather, v.City, v.Name),
			"offer": "a hot chocolate",
		}, nil
	}
	return nil, fmt.Errorf("%w: fill %s", scripted.ErrNoScript, req.Frame)
}

// Chooser is a scripted filler that picks the successor of the start frame
// from the visitor's mood.
type Chooser struct {
	*scripted.Filler
}

// Choose implements ports.Filler.
func (c Chooser) Choose(ctx context.Context, req ports.ChooseRequest) (string, error) {
	v, ok := req.Current.Value.(Visitor)
	if !ok {
		return c.Filler.Choose(ctx, req)
	}
	if v.Mood == "cheerful" {
		return "Greeting", nil
	}
	return "Consolation", nil
}
