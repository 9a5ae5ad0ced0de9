package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/weft/pkg/domain"
)

// Combine returns hooks that call every non-nil hook of each set in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnFrameStart = chain(out.OnFrameStart, h.OnFrameStart)
		out.OnDependencyResolved = chain(out.OnDependencyResolved, h.OnDependencyResolved)
		out.OnFilled = chain(out.OnFilled, h.OnFilled)
		out.OnRouted = chain(out.OnRouted, h.OnRouted)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// Logging returns hooks that log every event at debug level, routing at info.
func Logging(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFrameStart: func(ctx context.Context, e *domain.FrameEvent) {
			logger.DebugContext(ctx, "frame_start", "run_id", e.RunID, "frame", e.Frame, "index", e.Index)
		},
		OnDependencyResolved: func(ctx context.Context, e *domain.DependencyEvent) {
			logger.DebugContext(ctx, "dependency_resolved",
				"run_id", e.RunID,
				"frame", e.Frame,
				"function", e.Function,
				"cached", e.Cached,
				"duration", e.Duration,
			)
		},
		OnFilled: func(ctx context.Context, e *domain.FrameEvent) {
			logger.DebugContext(ctx, "filled", "run_id", e.RunID, "frame", e.Frame, "fields", e.Filled)
		},
		OnRouted: func(ctx context.Context, e *domain.RouteEvent) {
			logger.InfoContext(ctx, "routed",
				"run_id", e.RunID,
				"frame", e.Frame,
				"routing", e.Routing,
				"next", e.Next,
			)
		},
	}
}
