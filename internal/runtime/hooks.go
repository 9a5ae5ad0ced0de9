package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/weft/pkg/domain"
)

// deliveries counts emitters whose queue has not been fully delivered yet.
type deliveries struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (d *deliveries) add() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.n == 0 {
		d.idle = make(chan struct{})
	}
	d.n++
}

func (d *deliveries) done() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n--
	if d.n == 0 {
		close(d.idle)
	}
}

func (d *deliveries) wait(ctx context.Context) error {
	d.mu.Lock()
	if d.n == 0 {
		d.mu.Unlock()
		return nil
	}
	idle := d.idle
	d.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// emitter delivers lifecycle events on its own goroutine so that slow hooks
// never stall a run. A full queue drops the event.
type emitter struct {
	hooks  domain.LifecycleHooks
	queue  chan func()
	logger *slog.Logger
}

// newEmitter returns nil when no hook is set; a nil emitter ignores events.
func newEmitter(hooks domain.LifecycleHooks, size int, logger *slog.Logger, pending *deliveries) *emitter {
	if hooks.Empty() {
		return nil
	}
	em := &emitter{
		hooks:  hooks,
		queue:  make(chan func(), size),
		logger: logger,
	}
	pending.add()
	go em.loop(pending)
	return em
}

func (em *emitter) loop(pending *deliveries) {
	defer pending.done()
	for fn := range em.queue {
		em.deliver(fn)
	}
}

func (em *emitter) deliver(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			em.logger.Error("lifecycle hook panicked", "panic", p)
		}
	}()
	fn()
}

// close stops accepting events. Queued events are still delivered; the
// delivery goroutine exits on its own once the queue is empty.
func (em *emitter) close() {
	if em == nil {
		return
	}
	close(em.queue)
}

func (em *emitter) push(event domain.EventType, fn func()) {
	select {
	case em.queue <- fn:
	default:
		em.logger.Warn("lifecycle event dropped", "event", event, "capacity", cap(em.queue))
	}
}

func base(t domain.EventType, runID string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RunID: runID}
}

func (em *emitter) frameStart(ctx context.Context, runID, frameName string, index int) {
	if em == nil || em.hooks.OnFrameStart == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	ev := &domain.FrameEvent{EventBase: base(domain.EventFrameStart, runID), Frame: frameName, Index: index}
	em.push(ev.Type, func() { em.hooks.OnFrameStart(ctx, ev) })
}

func (em *emitter) dependencyResolved(ctx context.Context, runID, frameName, function string, cached bool, elapsed time.Duration) {
	if em == nil || em.hooks.OnDependencyResolved == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	ev := &domain.DependencyEvent{
		EventBase: base(domain.EventDependencyResolved, runID),
		Frame:     frameName,
		Function:  function,
		Cached:    cached,
		Duration:  elapsed,
	}
	em.push(ev.Type, func() { em.hooks.OnDependencyResolved(ctx, ev) })
}

func (em *emitter) filled(ctx context.Context, runID, frameName string, index int, fields []string) {
	if em == nil || em.hooks.OnFilled == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	ev := &domain.FrameEvent{EventBase: base(domain.EventFilled, runID), Frame: frameName, Index: index, Filled: fields}
	em.push(ev.Type, func() { em.hooks.OnFilled(ctx, ev) })
}

func (em *emitter) routed(ctx context.Context, runID, frameName string, kind domain.RoutingKind, nextFrame string) {
	if em == nil || em.hooks.OnRouted == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	ev := &domain.RouteEvent{EventBase: base(domain.EventRouted, runID), Frame: frameName, Routing: kind, Next: nextFrame}
	em.push(ev.Type, func() { em.hooks.OnRouted(ctx, ev) })
}
