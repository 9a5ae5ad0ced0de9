package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/weft/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by engine events.
type Metrics struct {
	FramesStarted  *prometheus.CounterVec
	FramesFilled   *prometheus.CounterVec
	FilledFields   *prometheus.CounterVec
	Routes         *prometheus.CounterVec
	Dependencies   *prometheus.CounterVec
	DependencyTime *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_frames_started_total",
				Help: "Total number of frames entered",
			},
			[]string{"frame"},
		),
		FramesFilled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_frames_filled_total",
				Help: "Total number of frames that completed filling",
			},
			[]string{"frame"},
		),
		FilledFields: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_filled_fields_total",
				Help: "Total number of fields produced by the filler",
			},
			[]string{"frame"},
		),
		Routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_routes_total",
				Help: "Routing decisions taken after a frame",
			},
			[]string{"frame", "routing", "next"},
		),
		Dependencies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_dependencies_resolved_total",
				Help: "Dependency resolutions, split by cache hit",
			},
			[]string{"function", "cached"},
		),
		DependencyTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weft_dependency_duration_seconds",
				Help:    "Duration of dependency resolutions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"function"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.FramesStarted, m.FramesFilled, m.FilledFields, m.Routes, m.Dependencies, m.DependencyTime)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFrameStart: func(_ context.Context, e *domain.FrameEvent) {
			m.FramesStarted.WithLabelValues(e.Frame).Inc()
		},
		OnFilled: func(_ context.Context, e *domain.FrameEvent) {
			m.FramesFilled.WithLabelValues(e.Frame).Inc()
			m.FilledFields.WithLabelValues(e.Frame).Add(float64(len(e.Filled)))
		},
		OnRouted: func(_ context.Context, e *domain.RouteEvent) {
			m.Routes.WithLabelValues(e.Frame, string(e.Routing), e.Next).Inc()
		},
		OnDependencyResolved: func(_ context.Context, e *domain.DependencyEvent) {
			m.Dependencies.WithLabelValues(e.Function, strconv.FormatBool(e.Cached)).Inc()
			m.DependencyTime.WithLabelValues(e.Function).Observe(e.Duration.Seconds())
		},
	}
}
