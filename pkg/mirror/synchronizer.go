// Package mirror keeps local, read-only copies of agent records in sync with the agent's event bus.
//
// A Synchronizer mirrors one record kind. It fetches a full snapshot from its Source once, then
// applies RecordUpdated events as upserts and RecordDeleted events as removals. Subscriptions
// only exist while the mirror is ready and are released when the source changes or the mirror
// is closed.
package mirror

import (
	"context"
	"sync"

	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/logging"
	"github.com/grovetools/recordsync/pkg/events"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/sirupsen/logrus"
)

// Source is the agent-side collaborator a Synchronizer reads from.
type Source interface {
	// GetAll returns the current records of type t, in the agent's order.
	GetAll(ctx context.Context, t records.Type) ([]records.Record, error)

	// Subscribe delivers events of eventType whose record has type recordType.
	Subscribe(eventType events.Type, recordType records.Type, handler events.Handler) (events.Subscription, error)
}

// Phase is the lifecycle position of a Synchronizer.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	}
	return "unknown"
}

// State is the read-only value exposed to view consumers.
type State[R records.Record] struct {
	Loading bool `json:"loading"`
	Items   []R  `json:"items"`
}

// Synchronizer mirrors the records of one kind.
type Synchronizer[R records.Record] struct {
	kind        records.Type
	logger      *logrus.Entry
	savedEvents bool

	mu         sync.RWMutex
	phase      Phase
	items      []R
	generation uint64
	subs       []events.Subscription
	closed     bool

	watchMu  sync.Mutex
	watchers map[<-chan State[R]]chan State[R]
}

// New creates a Synchronizer for records of the given kind. It starts empty and loading.
func New[R records.Record](kind records.Type, opts ...Option) *Synchronizer[R] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewLogger("mirror")
	}

	return &Synchronizer[R]{
		kind:        kind,
		logger:      o.logger.WithField("kind", kind.Kind()),
		savedEvents: o.savedEvents,
		phase:       PhaseUninitialized,
		items:       []R{},
		watchers:    make(map[<-chan State[R]]chan State[R]),
	}
}

// Kind returns the record type this mirror follows.
func (s *Synchronizer[R]) Kind() records.Type {
	return s.kind
}

// Start fetches the full snapshot from src and, once it is applied, subscribes to changes.
//
// A nil src leaves the mirror loading and is not an error. A failed fetch is not retried: the
// mirror stays loading and the FETCH_FAILED error is returned. Calling Start again behaves like
// SetSource.
func (s *Synchronizer[R]) Start(ctx context.Context, src Source) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	stale := s.detachLocked()
	s.generation++
	gen := s.generation
	if s.phase == PhaseUninitialized {
		s.phase = PhaseLoading
	}
	s.mu.Unlock()
	unsubscribeAll(stale)

	if src == nil {
		s.logger.Debug("No source available, mirror stays loading")
		s.notify()
		return nil
	}

	fetched, err := src.GetAll(ctx, s.kind)
	if err != nil {
		s.logger.WithError(err).Warn("Initial fetch failed, mirror stays loading")
		return errors.FetchFailed(string(s.kind), err)
	}
	items := s.convert(fetched)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding snapshot from superseded source")
		return nil
	}
	s.items = items
	s.phase = PhaseReady
	s.mu.Unlock()

	s.logger.WithField("count", len(items)).Debug("Snapshot loaded")
	s.notify()

	return s.subscribe(gen, src)
}

// SetSource reconfigures the mirror: existing subscriptions are released and a fresh snapshot is
// fetched from src. The current items stay visible until the new snapshot replaces them; a fetch
// still in flight for the previous source is discarded when it completes.
func (s *Synchronizer[R]) SetSource(ctx context.Context, src Source) error {
	return s.Start(ctx, src)
}

// Close releases subscriptions and watchers. Events delivered afterwards are ignored.
func (s *Synchronizer[R]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	stale := s.detachLocked()
	s.mu.Unlock()
	unsubscribeAll(stale)

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for key, ch := range s.watchers {
		close(ch)
		delete(s.watchers, key)
	}
}

func (s *Synchronizer[R]) subscribe(gen uint64, src Source) error {
	type binding struct {
		eventType events.Type
		handler   events.Handler
	}
	bindings := []binding{
		{events.RecordUpdated, s.changedHandler(gen)},
		{events.RecordDeleted, s.removedHandler(gen)},
	}
	if s.savedEvents {
		bindings = append(bindings, binding{events.RecordSaved, s.changedHandler(gen)})
	}

	subs := make([]events.Subscription, 0, len(bindings))
	for _, b := range bindings {
		sub, err := src.Subscribe(b.eventType, s.kind, b.handler)
		if err != nil {
			unsubscribeAll(subs)
			s.logger.WithError(err).WithField("event", b.eventType).Error("Subscription failed")
			return errors.SubscribeFailed(string(s.kind), string(b.eventType), err)
		}
		subs = append(subs, sub)
	}

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		unsubscribeAll(subs)
		return nil
	}
	s.subs = subs
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer[R]) changedHandler(gen uint64) events.Handler {
	return func(e events.Event) {
		rec, ok := s.accept(e)
		if !ok {
			return
		}
		s.apply(gen, func(items []R) []R { return Upsert(items, rec) })
	}
}

func (s *Synchronizer[R]) removedHandler(gen uint64) events.Handler {
	return func(e events.Event) {
		if e.Record == nil {
			return
		}
		id := e.Record.RecordID()
		s.apply(gen, func(items []R) []R { return Remove(items, id) })
	}
}

func (s *Synchronizer[R]) accept(e events.Event) (R, bool) {
	rec, ok := e.Record.(R)
	if !ok {
		var zero R
		if e.Record != nil {
			s.logger.WithField("record_type", e.Record.RecordType()).Warn("Ignoring event with foreign record")
		}
		return zero, false
	}
	return cloneRecord(rec), true
}

func (s *Synchronizer[R]) apply(gen uint64, patch func([]R) []R) {
	s.mu.Lock()
	if s.closed || gen != s.generation || s.phase != PhaseReady {
		s.mu.Unlock()
		return
	}
	s.items = patch(s.items)
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer[R]) convert(fetched []records.Record) []R {
	items := make([]R, 0, len(fetched))
	for _, r := range fetched {
		rec, ok := r.(R)
		if !ok {
			s.logger.WithField("record_type", r.RecordType()).Warn("Skipping record of unexpected type")
			continue
		}
		items = append(items, cloneRecord(rec))
	}
	return items
}

// detachLocked hands back the current subscriptions so they can be released without holding mu.
func (s *Synchronizer[R]) detachLocked() []events.Subscription {
	subs := s.subs
	s.subs = nil
	return subs
}

func unsubscribeAll(subs []events.Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func cloneRecord[R records.Record](r R) R {
	if c, ok := records.Clone(r).(R); ok {
		return c
	}
	return r
}

// State returns a copy of the current {loading, items} value.
func (s *Synchronizer[R]) State() State[R] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Synchronizer[R]) stateLocked() State[R] {
	items := make([]R, len(s.items))
	copy(items, s.items)
	return State[R]{Loading: s.phase != PhaseReady, Items: items}
}

// Phase returns the lifecycle phase.
func (s *Synchronizer[R]) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Loading reports whether the initial snapshot has not been applied yet.
func (s *Synchronizer[R]) Loading() bool {
	return s.Phase() != PhaseReady
}

// Subscribed reports whether change subscriptions are currently held.
func (s *Synchronizer[R]) Subscribed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs) > 0
}

// All returns every mirrored record.
func (s *Synchronizer[R]) All() []R {
	return s.State().Items
}

// ByID returns the record with the given id. A missing record yields the zero value and false.
func (s *Synchronizer[R]) ByID(id string) (R, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FindByID(s.items, id)
}

// ByState returns the records in the given state, keeping their relative order.
func (s *Synchronizer[R]) ByState(state string) []R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterByState(s.items, state)
}

// Watch returns a channel that receives the state after every change, starting with the current
// one. Slow readers only see the latest state. The channel is closed by Unwatch or Close.
func (s *Synchronizer[R]) Watch() <-chan State[R] {
	ch := make(chan State[R], 1)

	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	s.mu.RLock()
	closed := s.closed
	st := s.stateLocked()
	s.mu.RUnlock()

	if closed {
		close(ch)
		return ch
	}
	ch <- st
	s.watchers[ch] = ch
	return ch
}

// Unwatch stops delivery to ch and closes it.
func (s *Synchronizer[R]) Unwatch(ch <-chan State[R]) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if w, ok := s.watchers[ch]; ok {
		delete(s.watchers, ch)
		close(w)
	}
}

func (s *Synchronizer[R]) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if len(s.watchers) == 0 {
		return
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	st := s.stateLocked()
	s.mu.RUnlock()

	for _, ch := range s.watchers {
		select {
		case ch <- st:
		default:
			// Replace the unread state with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

// Snapshot returns the state with items widened to records.Record.
func (s *Synchronizer[R]) Snapshot() Snapshot {
	st := s.State()
	return Snapshot{Loading: st.Loading, Items: widen(st.Items)}
}

// Get is the type-erased form of ByID.
func (s *Synchronizer[R]) Get(id string) (records.Record, bool) {
	r, ok := s.ByID(id)
	if !ok {
		return nil, false
	}
	return r, true
}

// Filter is the type-erased form of ByState.
func (s *Synchronizer[R]) Filter(state string) []records.Record {
	return widen(s.ByState(state))
}

func widen[R records.Record](items []R) []records.Record {
	out := make([]records.Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
