/*
Package observability provides lifecycle hooks for monitoring weft runs.

Metrics records Prometheus counters and histograms from engine events,
Logging writes them to a structured logger, and Combine fans one event out
to several hook sets.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(metrics.Hooks(), observability.Logging(logger))
	eng, err := weft.New(flow, weft.WithLifecycleHooks(hooks))
*/
package observability
