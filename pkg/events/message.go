package events

import (
	"encoding/json"
	"time"

	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/pkg/records"
)

// Message is the wire form of an Event, as streamed by the daemon.
type Message struct {
	Type       Type            `json:"type"`
	RecordType records.Type    `json:"recordType"`
	Record     json.RawMessage `json:"record"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewMessage encodes e for the wire.
func NewMessage(e Event) (Message, error) {
	if e.Record == nil {
		return Message{}, errors.New(errors.ErrCodeInvalidInput, "event carries no record")
	}
	data, err := json.Marshal(e.Record)
	if err != nil {
		return Message{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to encode record")
	}
	return Message{
		Type:       e.Type,
		RecordType: e.RecordType(),
		Record:     data,
		Timestamp:  e.Timestamp,
	}, nil
}

// Event decodes the message back into an Event with a typed record.
func (m Message) Event() (Event, error) {
	rec, err := records.UnmarshalJSON(m.RecordType, m.Record)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: m.Type, Record: rec, Timestamp: m.Timestamp}, nil
}
