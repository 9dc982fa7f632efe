package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *SyncError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *SyncError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// UnknownKind creates an error for a record kind that is not mirrored.
func UnknownKind(kind string) *SyncError {
	return New(ErrCodeUnknownKind, fmt.Sprintf("unknown record kind '%s'", kind)).
		WithDetail("kind", kind)
}

// RecordNotFound creates a record not found error
func RecordNotFound(recordType, id string) *SyncError {
	return New(ErrCodeRecordNotFound, fmt.Sprintf("%s '%s' not found", recordType, id)).
		WithDetail("recordType", recordType).
		WithDetail("id", id)
}

// RecordExists creates an error for saving a record whose id is already taken.
func RecordExists(recordType, id string) *SyncError {
	return New(ErrCodeRecordExists, fmt.Sprintf("%s '%s' already exists", recordType, id)).
		WithDetail("recordType", recordType).
		WithDetail("id", id)
}

// RecordInvalid creates an error for a record that cannot be decoded.
func RecordInvalid(recordType string, reason string) *SyncError {
	return New(ErrCodeRecordInvalid, fmt.Sprintf("invalid %s: %s", recordType, reason)).
		WithDetail("recordType", recordType)
}

// FetchFailed wraps a failed initial snapshot fetch.
func FetchFailed(recordType string, err error) *SyncError {
	return Wrap(err, ErrCodeFetchFailed, fmt.Sprintf("failed to fetch %s records", recordType)).
		WithDetail("recordType", recordType)
}

// SubscribeFailed wraps a failed event subscription.
func SubscribeFailed(recordType, eventType string, err error) *SyncError {
	return Wrap(err, ErrCodeSubscribeFailed,
		fmt.Sprintf("failed to subscribe to %s events for %s", eventType, recordType)).
		WithDetail("recordType", recordType).
		WithDetail("eventType", eventType)
}

// DaemonNotRunning creates an error for operations that need the daemon.
func DaemonNotRunning(socketPath string) *SyncError {
	return New(ErrCodeDaemonNotRunning, "recordsync daemon is not running").
		WithDetail("socket", socketPath)
}

// DaemonUnreachable wraps a transport failure talking to the daemon.
func DaemonUnreachable(endpoint string, err error) *SyncError {
	return Wrap(err, ErrCodeDaemonUnreachable, fmt.Sprintf("daemon request failed: %s", endpoint)).
		WithDetail("endpoint", endpoint)
}
