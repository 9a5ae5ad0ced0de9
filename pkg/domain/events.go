package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventFrameStart         EventType = "frame_start"
	EventDependencyResolved EventType = "dependency_resolved"
	EventFilled             EventType = "filled"
	EventRouted             EventType = "routed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// FrameEvent marks the start of a frame or its production.
type FrameEvent struct {
	EventBase
	Frame string `json:"frame"`
	Index int    `json:"index"`
	// Filled lists the fields the filler produced (EventFilled only).
	Filled []string `json:"filled,omitempty"`
}

// DependencyEvent reports one resolved dependency function.
type DependencyEvent struct {
	EventBase
	Frame    string        `json:"frame"`
	Function string        `json:"function"`
	Cached   bool          `json:"cached,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RouteEvent reports the routing decision taken after a frame was produced.
type RouteEvent struct {
	EventBase
	Frame   string      `json:"frame"`
	Routing RoutingKind `json:"routing"`
	Next    string      `json:"next,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks are dispatched asynchronously and must not assume they run on the
// scheduler goroutine.
type LifecycleHooks struct {
	OnFrameStart         func(context.Context, *FrameEvent)
	OnDependencyResolved func(context.Context, *DependencyEvent)
	OnFilled             func(context.Context, *FrameEvent)
	OnRouted             func(context.Context, *RouteEvent)
}

// Empty reports whether no hook is set.
func (h LifecycleHooks) Empty() bool {
	return h.OnFrameStart == nil && h.OnDependencyResolved == nil &&
		h.OnFilled == nil && h.OnRouted == nil
}
