package session

import (
	"sync"
	"time"
)

// Scheduler runs at most one deferred callback at a time. Scheduling a new
// callback, or calling Cancel, discards the pending one even if its timer
// already fired.
type Scheduler struct {
	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

// Schedule runs fn after delay unless superseded. fn receives the
// generation it was scheduled under; Current reports whether that
// generation is still the latest.
func (s *Scheduler) Schedule(delay time.Duration, fn func(gen uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(delay, func() {
		if s.Current(gen) {
			fn(gen)
		}
	})
	return gen
}

// Cancel discards the pending callback.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// Current reports whether gen is the latest scheduled generation.
func (s *Scheduler) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}
