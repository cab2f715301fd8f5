package scraper

import "fmt"

// ExtractionError reports a listing whose fields could not be read.
// The session logs it and moves on to the next listing.
type ExtractionError struct {
	Index int // position in discovery order
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("listing %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("listing %d: field %s: %v", e.Index, e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SessionError reports a session that could not run to completion
// (browser launch, navigation timeout, search box missing, output write).
type SessionError struct {
	Keyword string
	Stage   string
	Err     error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %q: %s: %v", e.Keyword, e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }
