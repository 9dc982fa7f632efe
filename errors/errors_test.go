package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestSyncError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeRecordNotFound, "record not found")
	if err.Code != ErrCodeRecordNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeRecordNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeFetchFailed, "fetch failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	if !Is(wrapped, ErrCodeFetchFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeRecordNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Codes survive fmt.Errorf wrapping
	outer := fmt.Errorf("start connections: %w", wrapped)
	if GetCode(outer) != ErrCodeFetchFailed {
		t.Errorf("expected code %s through %%w, got %s", ErrCodeFetchFailed, GetCode(outer))
	}

	if GetCode(cause) != "" {
		t.Error("plain errors should have no code")
	}

	detailed := err.WithDetail("id", "abc").WithDetail("attempt", 1)
	if detailed.Details["id"] != "abc" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	err := RecordNotFound("ConnectionRecord", "c-1")
	if err.Code != ErrCodeRecordNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeRecordNotFound, err.Code)
	}
	if err.Details["id"] != "c-1" {
		t.Error("RecordNotFound should include id detail")
	}

	err = UnknownKind("widgets")
	if err.Code != ErrCodeUnknownKind {
		t.Errorf("expected code %s, got %s", ErrCodeUnknownKind, err.Code)
	}
	if err.Details["kind"] != "widgets" {
		t.Error("UnknownKind should include kind detail")
	}

	err = FetchFailed("ProofRecord", fmt.Errorf("boom"))
	if !Is(err, ErrCodeFetchFailed) {
		t.Error("FetchFailed should carry FETCH_FAILED")
	}
	if err.Cause == nil {
		t.Error("FetchFailed should keep the cause")
	}
}

func TestGetCodeJoined(t *testing.T) {
	joined := stderrors.Join(fmt.Errorf("plain"), nil, FetchFailed("ProofRecord", fmt.Errorf("boom")))
	if got := GetCode(joined); got != ErrCodeFetchFailed {
		t.Errorf("expected %s from joined error, got %q", ErrCodeFetchFailed, got)
	}

	wrapped := fmt.Errorf("starting mirrors: %w", joined)
	if !Is(wrapped, ErrCodeFetchFailed) {
		t.Error("Is should find a code inside a wrapped join")
	}

	if got := GetCode(stderrors.Join(fmt.Errorf("a"), fmt.Errorf("b"))); got != "" {
		t.Errorf("expected no code, got %q", got)
	}

	first := stderrors.Join(UnknownKind("widgets"), FetchFailed("ProofRecord", fmt.Errorf("boom")))
	if got := GetCode(first); got != ErrCodeUnknownKind {
		t.Errorf("expected first code %s, got %q", ErrCodeUnknownKind, got)
	}
}
