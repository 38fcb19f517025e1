// Package notify delivers change signals to observers of a bidding, project,
// or user scope.
//
// Delivery is fire-and-forget and at-least-once: publishing never blocks the
// mutating caller, and a slow observer loses the oldest buffered signal
// rather than stalling anyone. Observers treat every signal as "re-fetch the
// full snapshot", so dropped or duplicated signals are harmless.
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/procurekit/bidding/internal/domain/model"
	"github.com/procurekit/bidding/pkg/metrics"
)

// Signal is the payload type flowing through the bus.
type Signal = model.Signal

// Default bus configuration constants.
const (
	defaultSubscriberQueueSize = 64
)

// ScopeKey identifies one subscribable scope instance.
type ScopeKey struct {
	Scope model.Scope
	ID    string
}

// Key builds a ScopeKey.
func Key(scope model.Scope, id string) ScopeKey {
	return ScopeKey{Scope: scope, ID: id}
}

// Bus fans signals out to scope subscribers.
type Bus interface {
	// Publish delivers sig to every subscriber of its scope. Never blocks.
	Publish(ctx context.Context, sig Signal)

	// Subscribe registers an observer for the given scopes. The returned
	// subscription must be closed when the observer goes away or its watched
	// scope set changes; stale subscriptions must not leak.
	Subscribe(ctx context.Context, scopes ...ScopeKey) (*Subscription, error)
}

// Subscription is one observer's bounded signal queue.
type Subscription struct {
	id     string
	scopes map[ScopeKey]struct{}
	ch     chan Signal

	bus       *InMemoryBus
	closeOnce sync.Once
}

// Signals returns the receive channel. It is closed when the subscription is.
func (s *Subscription) Signals() <-chan Signal {
	return s.ch
}

// Scopes returns the watched scope keys.
func (s *Subscription) Scopes() []ScopeKey {
	out := make([]ScopeKey, 0, len(s.scopes))
	for k := range s.scopes {
		out = append(out, k)
	}
	return out
}

// Close unregisters the subscription. Idempotent.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.unsubscribe(s)
		close(s.ch)
	})
}

// InMemoryBus implements Bus with per-subscriber bounded queues and
// drop-oldest overflow semantics.
type InMemoryBus struct {
	mu        sync.RWMutex
	subs      map[string]*Subscription
	queueSize int
	closed    bool
}

// NewInMemoryBus creates a bus with configuration options.
func NewInMemoryBus(opts ...Option) *InMemoryBus {
	b := &InMemoryBus{
		subs:      make(map[string]*Subscription),
		queueSize: defaultSubscriberQueueSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(b)
	}

	metrics.UpdateBusSubscribers(0)
	metrics.UpdateBusQueueDepth(0)
	return b
}

// Subscribe registers an observer for the given scopes.
func (b *InMemoryBus) Subscribe(ctx context.Context, scopes ...ScopeKey) (*Subscription, error) {
	if len(scopes) == 0 {
		return nil, ErrNoScopes
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &Subscription{
		id:     uuid.NewString(),
		scopes: make(map[ScopeKey]struct{}, len(scopes)),
		ch:     make(chan Signal, b.queueSize),
		bus:    b,
	}
	for _, k := range scopes {
		sub.scopes[k] = struct{}{}
	}
	b.subs[sub.id] = sub
	metrics.UpdateBusSubscribers(len(b.subs))
	return sub, nil
}

// Publish delivers sig to every matching subscriber without blocking.
func (b *InMemoryBus) Publish(ctx context.Context, sig Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	key := ScopeKey{Scope: sig.Scope, ID: sig.ScopeID}
	depth := 0
	for _, sub := range b.subs {
		if _, watching := sub.scopes[key]; watching {
			b.offer(sub, sig)
		}
		depth += len(sub.ch)
	}
	metrics.RecordSignalPublished(string(sig.Scope))
	metrics.UpdateBusQueueDepth(depth)
}

// offer enqueues sig, evicting the oldest buffered signal on overflow.
func (b *InMemoryBus) offer(sub *Subscription, sig Signal) {
	select {
	case sub.ch <- sig:
		return
	default:
	}

	// Queue full: drop the oldest and retry once. If a concurrent receive
	// already drained a slot, the second send just succeeds.
	select {
	case <-sub.ch:
		metrics.RecordSignalDropped()
	default:
	}
	select {
	case sub.ch <- sig:
	default:
		metrics.RecordSignalDropped()
	}
}

// unsubscribe removes sub from the registry.
func (b *InMemoryBus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.id)
	metrics.UpdateBusSubscribers(len(b.subs))
}

// SubscriberCount returns the number of registered subscriptions.
func (b *InMemoryBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close shuts the bus down. Subsequent publishes are dropped and subscribes
// rejected; existing subscriptions are closed.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
}
