/*
Package weft is a frame resolution and execution engine for structured
generation pipelines.

A flow is a set of frames: Go structs whose fields describe the information a
step needs. Each field is resolved by exactly one strategy, chosen by its
struct tag:

  - frame:"dep:<name>" invokes a registered dependency function. Functions may
    chain to other functions; independent ones run concurrently and each unique
    (function, arguments) pair runs once per cache scope.
  - frame:"recall" copies the most recent value of the field's type from the
    frames produced earlier in the run.
  - frame:"gate" suspends until the host supplies a value.
  - untagged fields are left to the filler (typically a language model), which
    only ever receives the description of what is still missing.

Successors are declared per frame: none ends the run, one continues directly,
several let the filler decide.

# Usage

	type Begin struct {
		Name     string `json:"name" frame:"input"`
		Weather  string `json:"weather" frame:"dep:fetchWeather"`
		Greeting string `json:"greeting" hint:"one friendly sentence"`
	}

	b := dsl.New("greeter")
	b.Dependency(dependency.Of("fetchWeather", fetchWeather, dependency.FromField("city", "name")))
	b.Frame(Begin{}).Respond("greeting")
	flow, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := weft.New(flow, weft.WithFiller(myModel))
	if err != nil {
		log.Fatal(err)
	}
	res, err := eng.Run(ctx, Begin{}, weft.Input{"name": "Ann"})

The Result carries the run's History (every produced frame, in order) and the
Response of the terminal frame. Failed runs return the partial Result together
with a typed error from pkg/domain.

# Observability

Lifecycle hooks (domain.LifecycleHooks) are delivered asynchronously and never
stall a run; pkg/observability turns them into Prometheus metrics. Runs and
dependency invocations are traced with OpenTelemetry.
*/
package weft
