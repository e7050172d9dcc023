package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/Saturate/YellowLabTools/internal/engine"
	"github.com/Saturate/YellowLabTools/internal/loader"
	"github.com/Saturate/YellowLabTools/internal/model"
	"github.com/Saturate/YellowLabTools/internal/session"
)

// countingLoader records load outcomes in the stats.
type countingLoader struct {
	next  session.Loader
	stats *engine.Stats
}

func (l *countingLoader) Load(ctx context.Context, runID string) (*model.Result, error) {
	res, err := l.next.Load(ctx, runID)
	if err != nil {
		l.stats.IncLoadFailure()
		return nil, err
	}
	l.stats.IncLoad()
	return res, nil
}

type timelinePayload struct {
	RunID          string               `json:"runId"`
	URL            string               `json:"url"`
	BackLink       string               `json:"backLink"`
	Scripts        []model.Script       `json:"scripts"`
	SelectedScript *model.Script        `json:"selectedScript"`
	ExecutionTree  model.ExecutionTrace `json:"executionTree"`
	Timeline       model.Timeline       `json:"timeline"`
	EmptyTimeline  bool                 `json:"emptyTimeline"`
	TimelineError  string               `json:"timelineError,omitempty"`
	ExpandedIndex  int                  `json:"expandedIndex"`
}

type profilerPayload struct {
	Ready bool                 `json:"ready"`
	Rows  model.ExecutionTrace `json:"profilerData"`
}

func newTimelinePayload(v *engine.View) (timelinePayload, error) {
	res := v.Result()
	tl, err := v.Timeline()

	p := timelinePayload{
		RunID:          res.RunID,
		URL:            res.URL,
		BackLink:       "/result/" + res.RunID,
		Scripts:        v.Scripts(),
		SelectedScript: v.SelectedScript(),
		ExecutionTree:  v.ExecutionTree(),
		Timeline:       tl,
		ExpandedIndex:  v.ExpandedIndex(),
	}
	if p.Scripts == nil {
		p.Scripts = []model.Script{}
	}
	if p.ExecutionTree == nil {
		p.ExecutionTree = model.ExecutionTrace{}
	}

	if err != nil {
		var empty *engine.EmptyTimelineError
		p.EmptyTimeline = errors.As(err, &empty)
		p.TimelineError = err.Error()
	}
	return p, err
}

// lookupSession resolves the session query parameter.
func (s *TimelineServer) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "Missing session", http.StatusBadRequest)
		return nil, false
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		http.Error(w, "Unknown session", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var loadErr *loader.LoadError
	switch {
	case errors.Is(err, loader.ErrResultNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &loadErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, session.ErrNotOpen):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrRowOutOfRange), errors.Is(err, engine.ErrInvalidQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleCreateSession registers a new dashboard session.
// POST /api/sessions
func (s *TimelineServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	log.Printf("[Session] Created %s for %s", sess.ID, caller(r).Name)
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

// handleTimeline renders a run, optionally narrowed to one script.
// GET /api/timeline/{runId}?session=&script=
func (s *TimelineServer) handleTimeline(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	runID := r.PathValue("runId")

	_, rendered, err := sess.Open(r.Context(), s.loader, runID, s.settle)
	if err != nil {
		log.Printf("[Timeline] Failed to open %s: %v", runID, err)
		writeError(w, err)
		return
	}
	if rendered {
		s.stats.IncRender()
	}

	if q := r.URL.Query(); q.Has("script") {
		changed, err := sess.SelectScript(runID, q.Get("script"))
		if err != nil {
			writeError(w, err)
			return
		}
		if changed {
			s.stats.IncFilterChange()
		}
	}

	var payload timelinePayload
	err = sess.With(runID, func(v *engine.View) error {
		var tlErr error
		payload, tlErr = newTimelinePayload(v)
		if tlErr != nil && rendered {
			log.Printf("[Timeline] %v", tlErr)
			if payload.EmptyTimeline {
				s.stats.IncEmptyTimeline()
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleProfiler returns the profiler rows once the view has settled.
// GET /api/timeline/{runId}/profiler?session=
func (s *TimelineServer) handleProfiler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var payload profilerPayload
	err := sess.With(r.PathValue("runId"), func(v *engine.View) error {
		payload.Rows, payload.Ready = v.Profiler()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if payload.Rows == nil {
		payload.Rows = model.ExecutionTrace{}
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleLocate maps a clicked timeline timestamp to a row.
// GET /api/timeline/{runId}/locate?session=&ts=
func (s *TimelineServer) handleLocate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	ts, err := strconv.ParseInt(r.URL.Query().Get("ts"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ts", http.StatusBadRequest)
		return
	}

	var index int
	err = sess.With(r.PathValue("runId"), func(v *engine.View) error {
		index = v.LocateLine(ts)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"index": index})
}

// handleSearch returns the rows of the current tree matching an event query.
// GET /api/timeline/{runId}/search?session=&q=
func (s *TimelineServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var rows []int
	err := sess.With(r.PathValue("runId"), func(v *engine.View) error {
		var err error
		rows, err = v.Search(r.URL.Query().Get("q"))
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"rows": rows})
}

// handleDetails toggles the detail panel of a row.
// POST /api/timeline/{runId}/details?session=&index=
func (s *TimelineServer) handleDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		http.Error(w, "Invalid index", http.StatusBadRequest)
		return
	}

	var details engine.Details
	err = sess.With(r.PathValue("runId"), func(v *engine.View) error {
		var err error
		details, err = v.ToggleDetails(index)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(details.ParseErrors) > 0 {
		s.stats.IncBacktraceError()
	}
	writeJSON(w, http.StatusOK, details)
}

// handleRetest launches a new test of the run's page.
// POST /api/timeline/{runId}/retest?session=
func (s *TimelineServer) handleRetest(w http.ResponseWriter, r *http.Request) {
	if s.relauncher == nil {
		http.Error(w, "Retest not available", http.StatusNotImplemented)
		return
	}
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var pageURL string
	err := sess.With(r.PathValue("runId"), func(v *engine.View) error {
		pageURL = v.Result().URL
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	runID, err := s.relauncher.Relaunch(r.Context(), pageURL)
	if err != nil {
		log.Printf("[Timeline] Retest of %s failed: %v", pageURL, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"runId":    runID,
		"location": "/result/" + runID,
	})
}
