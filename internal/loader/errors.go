package loader

import (
	"errors"
	"fmt"
)

// ErrResultNotFound is wrapped by LoadError when the run does not exist.
var ErrResultNotFound = errors.New("result not found")

// LoadError reports a result that could not be fetched or decoded. It is
// never retried.
type LoadError struct {
	RunID string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load result %s: %v", e.RunID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
