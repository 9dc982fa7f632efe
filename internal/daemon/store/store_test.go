package store

import (
	"io"
	"testing"

	"github.com/grovetools/recordsync/pkg/agent"
	"github.com/grovetools/recordsync/pkg/events"
	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *agent.Agent) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	logger := logrus.NewEntry(l)

	a := agent.New()
	p := mirror.NewProvider(mirror.WithLogger(logger))
	s := New(a, p, logger)
	t.Cleanup(func() {
		s.Close()
		p.Close()
	})
	return s, a
}

func TestSubscribeReceivesMessages(t *testing.T) {
	s, a := newStore(t)
	all := s.Subscribe("")
	proofs := s.Subscribe(records.TypeProof)
	assert.Equal(t, 2, s.SubscriberCount())

	require.NoError(t, a.Save(records.ConnectionRecord{Base: records.Base{ID: "c1"}}))
	require.NoError(t, a.Save(records.ProofExchangeRecord{Base: records.Base{ID: "p1"}}))
	require.NoError(t, a.Delete(records.TypeProof, "p1"))

	require.Len(t, all, 3)
	first := <-all
	assert.Equal(t, events.RecordSaved, first.Type)
	assert.Equal(t, records.TypeConnection, first.RecordType)

	require.Len(t, proofs, 2)
	msg := <-proofs
	assert.Equal(t, records.TypeProof, msg.RecordType)
	msg = <-proofs
	assert.Equal(t, events.RecordDeleted, msg.Type)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s, _ := newStore(t)
	ch := s.Subscribe("")
	s.Unsubscribe(ch)
	s.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, s.SubscriberCount())
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	s, a := newStore(t)
	ch := s.Subscribe(records.TypeConnection)

	for i := 0; i <= SubscriberBuffer; i++ {
		require.NoError(t, a.Put(records.ConnectionRecord{Base: records.Base{ID: "c1"}}))
	}

	assert.Equal(t, 0, s.SubscriberCount())
	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, SubscriberBuffer, n)
}
