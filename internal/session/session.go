package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Saturate/YellowLabTools/internal/engine"
	"github.com/Saturate/YellowLabTools/internal/model"
)

// ErrNotOpen is returned when a session has no view for the requested run.
var ErrNotOpen = errors.New("timeline not open in this session")

// Loader fetches a result by run id.
type Loader interface {
	Load(ctx context.Context, runID string) (*model.Result, error)
}

// Session is one dashboard client. It owns the last loaded result and the
// view rendered from it; all access goes through its mutex.
type Session struct {
	ID           string `json:"id"`
	RegisteredAt int64  `json:"registered_at"`
	LastSeenAt   int64  `json:"last_seen_at"`

	mu     sync.Mutex
	slot   Slot
	view   *engine.View
	settle Scheduler
}

// Open returns the view of runID, loading and rendering it if the session
// shows something else. After a fresh render the profiler rows are
// populated once settle has elapsed. rendered reports a fresh render.
// The returned view must only be read through With.
func (s *Session) Open(ctx context.Context, l Loader, runID string, settle time.Duration) (v *engine.View, rendered bool, err error) {
	s.mu.Lock()
	result, cached := s.slot.Get(runID)
	if cached && s.view != nil && s.view.Result() == result {
		v = s.view
		s.mu.Unlock()
		return v, false, nil
	}
	s.mu.Unlock()

	// The upstream fetch runs unlocked so other requests of the session
	// keep working on the current view.
	if !cached {
		result, err = l.Load(ctx, runID)
		if err != nil {
			return nil, false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have rendered runID meanwhile.
	if current, ok := s.slot.Get(runID); ok && s.view != nil && s.view.Result() == current {
		return s.view, false, nil
	}
	s.slot.Put(result)

	v = engine.NewView(result)
	s.view = v
	s.settle.Schedule(settle, func(gen uint64) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.view == v && s.settle.Current(gen) {
			v.PopulateProfiler()
		}
	})
	return v, true, nil
}

// With runs fn on the view of runID.
func (s *Session) With(runID string, fn func(v *engine.View) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == nil || s.view.Result().RunID != runID {
		return ErrNotOpen
	}
	return fn(s.view)
}

// SelectScript changes the script filter of runID's view and reports
// whether it differed from the current one. The profiler is repopulated
// synchronously, so a pending settle callback is dropped.
func (s *Session) SelectScript(runID, fullPath string) (changed bool, err error) {
	err = s.With(runID, func(v *engine.View) error {
		current := ""
		if sel := v.SelectedScript(); sel != nil {
			current = sel.FullPath
		}
		if current == fullPath {
			return nil
		}
		s.settle.Cancel()
		v.SelectScript(fullPath)
		changed = true
		return nil
	})
	return changed, err
}

// Close drops the pending settle callback.
func (s *Session) Close() {
	s.settle.Cancel()
}
