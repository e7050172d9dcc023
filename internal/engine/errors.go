package engine

import (
	"errors"
	"fmt"
)

// EmptyTimelineError is returned when the unfiltered trace has no events,
// leaving the timeline without an end time.
type EmptyTimelineError struct {
	RunID string
}

func (e *EmptyTimelineError) Error() string {
	if e.RunID == "" {
		return "timeline: execution trace is empty"
	}
	return "timeline: execution trace of run " + e.RunID + " is empty"
}

// TraceTooLongError is returned when the unfiltered trace ends after
// MaxTraceDurationMs.
type TraceTooLongError struct {
	RunID   string
	EndTime int64
}

func (e *TraceTooLongError) Error() string {
	return fmt.Sprintf("timeline: execution trace of run %q ends at %d ms, over the %d ms limit", e.RunID, e.EndTime, MaxTraceDurationMs)
}

// ErrRowOutOfRange is returned when a row index does not address the
// current execution tree.
var ErrRowOutOfRange = errors.New("row index out of range")

// ErrInvalidQuery is returned for row searches that do not parse.
var ErrInvalidQuery = errors.New("invalid query")
