package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Bus is an in-process, synchronous event bus.
// Deliveries are serialized: a Publish call returns only after every matching handler ran,
// and no two Publish calls deliver concurrently.
type Bus struct {
	mu          sync.RWMutex
	deliverMu   sync.Mutex
	subscribers map[string]*subscriber
	order       []string
}

type subscriber struct {
	id        string
	eventType Type
	handler   Handler
	filters   []Filter
	bus       *Bus

	// mu is held for the duration of one delivery.
	mu     sync.Mutex
	active atomic.Bool
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers handler for events of type t that pass every filter.
func (b *Bus) Subscribe(t Type, handler Handler, filters ...Filter) Subscription {
	sub := &subscriber{
		id:        uuid.NewString(),
		eventType: t,
		handler:   handler,
		filters:   filters,
		bus:       b,
	}
	sub.active.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub.id] = sub
	b.order = append(b.order, sub.id)
	return sub
}

// Publish delivers e to all matching subscribers in subscription order.
// Handlers must not publish on the same bus.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	for _, sub := range b.matching(e) {
		// A handler may have unsubscribed a later subscriber; deliver skips it.
		sub.deliver(e)
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Bus) matching(e Event) []*subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*subscriber
	for _, id := range b.order {
		sub, ok := b.subscribers[id]
		if !ok || sub.eventType != e.Type {
			continue
		}
		if sub.accepts(e) {
			out = append(out, sub)
		}
	}
	return out
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[id]; !ok {
		return
	}
	delete(b.subscribers, id)
	for i, sid := range b.order {
		if sid == id {
			b.order = append(b.order[:i:i], b.order[i+1:]...)
			break
		}
	}
}

func (s *subscriber) accepts(e Event) bool {
	for _, f := range s.filters {
		if !f(e) {
			return false
		}
	}
	return true
}

func (s *subscriber) deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return
	}
	s.handler(e)
}

// Unsubscribe implements Subscription. It waits for a delivery already running on this
// subscription, so the handler is never called once Unsubscribe has returned. A handler may
// unsubscribe other subscriptions but not its own.
func (s *subscriber) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	// Wait out an in-flight delivery.
	s.mu.Lock()
	s.mu.Unlock()
	s.bus.remove(s.id)
}
