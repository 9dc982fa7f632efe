package mirror

import (
	"github.com/sirupsen/logrus"
)

type options struct {
	logger      *logrus.Entry
	savedEvents bool
}

// Option configures a Synchronizer or Provider.
type Option func(*options)

// WithLogger sets the logger. Synchronizers add a "kind" field to it.
func WithLogger(logger *logrus.Entry) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSavedEvents also applies RecordSaved events as upserts.
// By default only RecordUpdated and RecordDeleted are observed.
func WithSavedEvents(enabled bool) Option {
	return func(o *options) {
		o.savedEvents = enabled
	}
}
