package models

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable marks a failed fetch or stream. It is the only
	// error a load reports to its caller.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRowRejected marks a row that failed validation. Rejected rows are
	// counted and dropped, never reported individually.
	ErrRowRejected = errors.New("row rejected")

	ErrMissingTicker   = fmt.Errorf("%w: missing ticker", ErrRowRejected)
	ErrDateUnparseable = fmt.Errorf("%w: date unparseable", ErrRowRejected)
	ErrMissingPrice    = fmt.Errorf("%w: missing price", ErrRowRejected)

	// ErrInvalidFilter is returned for filter commands that cannot be applied.
	ErrInvalidFilter = errors.New("invalid filter")
)

// SourceError wraps the underlying failure of one load attempt.
type SourceError struct {
	Source  string
	Partial bool // some chunks had already arrived
	Err     error
}

// Error returns the underlying message verbatim.
func (e *SourceError) Error() string {
	if e.Err == nil {
		return ErrSourceUnavailable.Error()
	}
	return e.Err.Error()
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}
