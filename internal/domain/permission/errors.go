package permission

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	ErrNotFound       = errors.New("permission request not found")
)

// ValidationError lists the draft fields that were missing or invalid. All
// offending fields are reported in one error so the caller can surface a
// single message.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid draft fields: " + strings.Join(e.Fields, ", ")
}

// SubmissionError wraps a backend rejection of a create or update.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Message returns the backend-provided message when available, otherwise a
// generic fallback.
func (e *SubmissionError) Message() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "the request could not be submitted"
}

// FetchError wraps a failed scoped list retrieval. The record store keeps its
// last-known-good snapshot when this is returned.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
