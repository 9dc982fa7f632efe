// Package events provides the record event bus that mirrors subscribe to.
package events

import (
	"time"

	"github.com/grovetools/recordsync/pkg/records"
)

// Type identifies what happened to a record.
type Type string

const (
	RecordSaved   Type = "RecordSaved"
	RecordUpdated Type = "RecordUpdated"
	RecordDeleted Type = "RecordDeleted"
)

// Event is a single record change notification.
type Event struct {
	Type      Type
	Record    records.Record
	Timestamp time.Time
}

// RecordType returns the type tag of the event's record, or "" when the event carries none.
func (e Event) RecordType() records.Type {
	if e.Record == nil {
		return ""
	}
	return e.Record.RecordType()
}

// Handler receives delivered events.
type Handler func(Event)

// Filter decides whether an event is delivered to a subscriber.
type Filter func(Event) bool

// FilterByRecordType only passes events whose record has type t.
func FilterByRecordType(t records.Type) Filter {
	return func(e Event) bool {
		return e.RecordType() == t
	}
}

// Subscription is a handle to an active subscription.
type Subscription interface {
	// Unsubscribe stops delivery and waits for a handler call already in progress.
	// It is safe to call more than once.
	Unsubscribe()
}
