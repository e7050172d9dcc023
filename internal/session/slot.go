package session

import "github.com/Saturate/YellowLabTools/internal/model"

// Slot keeps the last loaded result of a session. Storing a result for a
// different run evicts the previous one.
type Slot struct {
	result *model.Result
}

// Get returns the cached result if it belongs to runID.
func (s *Slot) Get(runID string) (*model.Result, bool) {
	if s.result == nil || s.result.RunID != runID {
		return nil, false
	}
	return s.result, true
}

// Put replaces the cached result.
func (s *Slot) Put(result *model.Result) {
	s.result = result
}

// RunID returns the run id of the cached result, or "".
func (s *Slot) RunID() string {
	if s.result == nil {
		return ""
	}
	return s.result.RunID
}
