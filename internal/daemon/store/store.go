// Package store holds the daemon's records: the agent that owns them, the mirrors the API reads
// from, and the fan-out of agent events to streaming clients.
package store

import (
	"sync"

	"github.com/grovetools/recordsync/pkg/agent"
	"github.com/grovetools/recordsync/pkg/events"
	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/sirupsen/logrus"
)

// SubscriberBuffer is how many messages a streaming client may fall behind before it is dropped.
const SubscriberBuffer = 256

// Store is the daemon's shared state.
type Store struct {
	agent    *agent.Agent
	provider *mirror.Provider
	logger   *logrus.Entry

	mu          sync.Mutex
	subscribers map[chan events.Message]records.Type
	busSubs     []events.Subscription
}

// New creates a Store over a and p and starts forwarding agent events to subscribers.
func New(a *agent.Agent, p *mirror.Provider, logger *logrus.Entry) *Store {
	s := &Store{
		agent:       a,
		provider:    p,
		logger:      logger,
		subscribers: make(map[chan events.Message]records.Type),
	}
	for _, t := range []events.Type{events.RecordSaved, events.RecordUpdated, events.RecordDeleted} {
		s.busSubs = append(s.busSubs, a.Events().Subscribe(t, s.broadcast))
	}
	return s
}

// Agent returns the record owner.
func (s *Store) Agent() *agent.Agent {
	return s.agent
}

// Provider returns the mirrors served by the API.
func (s *Store) Provider() *mirror.Provider {
	return s.provider
}

// Subscribe returns a channel of event messages. An empty kind receives every record type.
// The channel is closed by Unsubscribe, by Close, or when the client falls too far behind.
func (s *Store) Subscribe(kind records.Type) chan events.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan events.Message, SubscriberBuffer)
	s.subscribers[ch] = kind
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan events.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// SubscriberCount returns the number of streaming clients.
func (s *Store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Close stops forwarding events and closes every subscriber channel.
func (s *Store) Close() {
	for _, sub := range s.busSubs {
		sub.Unsubscribe()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Store) broadcast(e events.Event) {
	msg, err := events.NewMessage(e)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch, kind := range s.subscribers {
		if kind != "" && kind != msg.RecordType {
			continue
		}
		select {
		case ch <- msg:
		default:
			// A client that missed an event can no longer mirror correctly.
			s.logger.Warn("Dropping stream subscriber that fell behind")
			delete(s.subscribers, ch)
			close(ch)
		}
	}
}
