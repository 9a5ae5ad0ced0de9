/*
Package dsl provides a fluent builder for declaring weft flows in Go.

Frames are plain structs whose field tags select how each field is resolved.
The builder registers them, wires their successors and dependency functions,
and validates the whole flow before anything runs.

Example usage:

	type Begin struct {
		Name     string `json:"name" frame:"input"`
		Weather  string `json:"weather" frame:"dep:fetchWeather"`
		Greeting string `json:"greeting" hint:"one friendly sentence"`
	}

	b := dsl.New("greeter")
	b.Dependency(dependency.Of("fetchWeather", fetchWeather, dependency.FromField("city", "name")))
	b.Frame(Begin{}).Instruct("Greet the user mentioning the weather").Respond("greeting")

	flow, err := b.Build()
	// ... pass flow to weft.New(flow, weft.WithFiller(...))
*/
package dsl
