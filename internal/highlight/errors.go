package highlight

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when an edit arrives while a reparse is in flight.
	ErrBusy = errors.New("highlight: reparse in progress")
	// ErrClosed is returned for operations on a closed document.
	ErrClosed = errors.New("highlight: document closed")
)

// MatchError is a regex engine failure during classification, such as a
// match timeout. It disables highlighting for one document only.
type MatchError struct {
	Pattern string
	Offset  int
	Err     error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("pattern %q at offset %d: %v", e.Pattern, e.Offset, e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }
