package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/exengine/pkg/buffer"
)

// Filter selects which notifications a subscriber receives.
// A nil Filter receives everything.
type Filter func(Notification) bool

// ByCategory matches notifications of one category
func ByCategory(category Category) Filter {
	return func(n Notification) bool { return n.Category == category }
}

// ByKind matches notifications of one concrete kind
func ByKind(kind string) Filter {
	return func(n Notification) bool { return n.Kind == kind }
}

// Handler consumes a notification. Handlers run on the bus dispatch
// goroutine; a slow handler slows other subscribers but never publishers.
type Handler func(Notification)

// Subscription identifies one registered handler
type Subscription struct {
	id      uuid.UUID
	handler Handler
	filter  Filter
}

// ID returns the subscription handle
func (s *Subscription) ID() uuid.UUID { return s.id }

// Bus fans published notifications out to subscribers. Publication is
// non-blocking: notifications land on a bounded dispatch queue drained by
// a single goroutine, so per-publisher ordering is preserved. Under
// sustained pressure the oldest queued notifications are dropped.
type Bus struct {
	queue  *buffer.Circular[Notification]
	logger *slog.Logger

	// subscriber registry; publish is the hot path, so reads dominate
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	done        chan struct{}

	published  uint64
	dispatched uint64
	publishMu  sync.Mutex
}

// DefaultQueueDepth is used when the configured dispatch queue depth is zero
const DefaultQueueDepth = 1024

// NewBus creates a bus with the given dispatch queue depth
func NewBus(queueDepth int, logger *slog.Logger) (*Bus, error) {
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	q, err := buffer.NewCircular[Notification](queueDepth, buffer.DropOldest)
	if err != nil {
		return nil, err
	}
	return &Bus{
		queue:  q,
		logger: logger,
		subs:   make(map[uuid.UUID]*Subscription),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the dispatch goroutine
func (b *Bus) Start(ctx context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	if b.started {
		return fmt.Errorf("notification bus already started")
	}
	b.started = true

	go b.dispatch(ctx)
	return nil
}

// Stop closes the dispatch queue and waits for in-flight deliveries to
// finish, up to the timeout. Remaining queued notifications are delivered
// before the dispatch goroutine exits, unless the context given to Start
// has been cancelled, in which case dispatch exits without delivering them.
func (b *Bus) Stop(timeout time.Duration) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	if !b.started || b.stopped {
		return nil
	}
	b.stopped = true
	b.queue.Close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("notification bus stop timed out after %s", timeout)
	}
}

// Publish enqueues a notification for delivery. Never blocks the caller.
func (b *Bus) Publish(n Notification) {
	b.publishMu.Lock()
	b.published++
	b.publishMu.Unlock()

	if _, err := b.queue.Write(n); err != nil {
		// bus is stopping; late notifications are dropped silently
		b.logger.Debug("notification dropped during shutdown", "kind", n.Kind)
	}
}

// Subscribe registers a handler with an optional filter. A nil filter
// receives all notifications.
func (b *Bus) Subscribe(handler Handler, filter Filter) *Subscription {
	sub := &Subscription{
		id:      uuid.New(),
		handler: handler,
		filter:  filter,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	delete(b.subs, sub.id)
	b.mu.Unlock()
}

// Dropped returns the number of notifications lost to queue overflow
func (b *Bus) Dropped() uint64 {
	return b.queue.Dropped()
}

// Stats returns published/dispatched/dropped counts
func (b *Bus) Stats() (published, dispatched, dropped uint64) {
	b.publishMu.Lock()
	published = b.published
	dispatched = b.dispatched
	b.publishMu.Unlock()
	return published, dispatched, b.queue.Dropped()
}

// dispatch drains the queue and invokes subscribers until the queue is
// closed and fully drained, or the context is cancelled.
func (b *Bus) dispatch(ctx context.Context) {
	defer close(b.done)

	for {
		n, err := b.queue.Read()
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		b.mu.RLock()
		targets := make([]*Subscription, 0, len(b.subs))
		for _, sub := range b.subs {
			if sub.filter == nil || sub.filter(n) {
				targets = append(targets, sub)
			}
		}
		b.mu.RUnlock()

		for _, sub := range targets {
			b.deliver(sub, n)
		}

		b.publishMu.Lock()
		b.dispatched++
		b.publishMu.Unlock()
	}
}

// deliver invokes a single handler, isolating panics so one bad
// subscriber cannot take down dispatch or lose its registration
func (b *Bus) deliver(sub *Subscription, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("notification handler panicked",
				"subscription", sub.id.String(),
				"kind", n.Kind,
				"panic", r)
		}
	}()
	sub.handler(n)
}
