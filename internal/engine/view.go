package engine

import (
	"errors"

	"github.com/Saturate/YellowLabTools/internal/model"
	"github.com/Saturate/YellowLabTools/internal/pkg/backtrace"
)

// View holds everything derived from one loaded result: the script list,
// the filtered execution tree, its timeline, the profiler rows and the
// single expanded row. A View is not safe for concurrent use.
type View struct {
	result *model.Result

	scripts  []model.Script
	filter   Filter
	tree     model.ExecutionTrace
	timeline model.Timeline
	tlErr    error

	profiler      model.ExecutionTrace
	profilerReady bool

	// expanded is identified by event, not row, so it survives filter changes.
	expanded *model.ExecutionEvent
}

// NewView renders result. Profiler rows stay empty until PopulateProfiler.
func NewView(result *model.Result) *View {
	v := &View{result: result}
	v.scripts = ScriptsFromOffenders(result.Offenders)
	v.refresh()
	return v
}

func (v *View) refresh() {
	v.tree = FilterExecutionTree(v.result.Events, v.filter.Script)
	v.timeline, v.tlErr = BuildTimeline(v.result.Events, v.tree)

	var empty *EmptyTimelineError
	if errors.As(v.tlErr, &empty) {
		empty.RunID = v.result.RunID
	}
	var tooLong *TraceTooLongError
	if errors.As(v.tlErr, &tooLong) {
		tooLong.RunID = v.result.RunID
	}
}

// Result returns the rendered result.
func (v *View) Result() *model.Result {
	return v.result
}

// Scripts returns the script filter entries.
func (v *View) Scripts() []model.Script {
	return v.scripts
}

// SelectedScript returns the active script filter, or nil.
func (v *View) SelectedScript() *model.Script {
	return v.filter.Script
}

// SelectScript filters the view down to fullPath. An empty path clears the
// filter. The tree, the timeline and the profiler rows are recomputed at once.
func (v *View) SelectScript(fullPath string) {
	if fullPath == "" {
		v.filter.Script = nil
	} else {
		v.filter.Script = &model.Script{FullPath: fullPath, ShortPath: ShortenPath(fullPath)}
	}
	v.refresh()
	v.PopulateProfiler()
}

// ExecutionTree returns the filtered events.
func (v *View) ExecutionTree() model.ExecutionTrace {
	return v.tree
}

// Timeline returns the activity histogram. For an empty trace, or one
// ending after MaxTraceDurationMs, it returns an all-zero timeline together
// with an *EmptyTimelineError or a *TraceTooLongError.
func (v *View) Timeline() (model.Timeline, error) {
	return v.timeline, v.tlErr
}

// PopulateProfiler exposes the filtered tree as profiler rows.
func (v *View) PopulateProfiler() {
	v.profiler = v.tree
	v.profilerReady = true
}

// Profiler returns the profiler rows and whether they were populated yet.
func (v *View) Profiler() (model.ExecutionTrace, bool) {
	return v.profiler, v.profilerReady
}

// LocateLine returns the row matching a clicked timeline timestamp.
func (v *View) LocateLine(ts int64) int {
	return FindLineIndex(v.tree, v.timeline.IntervalDurationMs, ts)
}

// Search returns the rows of the current tree matching query.
func (v *View) Search(query string) ([]int, error) {
	return SearchRows(v.tree, query)
}

// ExpandedIndex returns the row of the expanded event in the current tree,
// or -1 when no visible row is expanded.
func (v *View) ExpandedIndex() int {
	if v.expanded == nil {
		return -1
	}
	for i, ev := range v.tree {
		if ev == v.expanded {
			return i
		}
	}
	return -1
}

// Details is the detail panel of one row.
type Details struct {
	Index       int                    `json:"index"`
	Open        bool                   `json:"open"`
	Backtrace   []model.BacktraceFrame `json:"backtrace,omitempty"`
	ParseErrors []string               `json:"parseErrors,omitempty"`
	Fields      []Field                `json:"fields,omitempty"`
}

// ToggleDetails opens the detail panel of row index, closing any other, or
// closes it if it was already open. The backtrace is parsed on first open.
func (v *View) ToggleDetails(index int) (Details, error) {
	if index < 0 || index >= len(v.tree) {
		return Details{}, ErrRowOutOfRange
	}

	ev := v.tree[index]
	if v.expanded == ev {
		v.expanded = nil
		return Details{Index: index}, nil
	}
	v.expanded = ev

	d := Details{Index: index, Open: true, Fields: DataFields(ev.Data)}
	frames, err := ev.ParsedBacktrace(backtrace.Parse)
	d.Backtrace = frames
	if err != nil {
		d.ParseErrors = parseErrorMessages(err)
	}
	return d, nil
}

func parseErrorMessages(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	var msgs []string
	for _, e := range joined.Unwrap() {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
