package engine

import (
	"strings"

	"github.com/Saturate/YellowLabTools/internal/model"
)

// jQuery bookkeeping events carry the backtrace of whatever script loaded
// jQuery, so they are hidden while a script filter is active.
var filteredOnlyTypes = map[string]struct{}{
	"jQuery loaded":         {},
	"jQuery version change": {},
}

// Filter defines which execution events stay in the profiler view.
type Filter struct {
	Script *model.Script // nil means no filtering
}

// Active reports whether the filter removes anything.
func (f Filter) Active() bool {
	return f.Script != nil
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev *model.ExecutionEvent) bool {
	if f.Script == nil {
		return true
	}
	if ev.Backtrace == "" || !strings.Contains(ev.Backtrace, f.Script.FullPath+":") {
		return false
	}
	if _, ok := filteredOnlyTypes[ev.Type]; ok {
		return false
	}
	return true
}

// FilterExecutionTree returns the events of trace matching the selected
// script, in trace order. Without a selection trace itself is returned.
func FilterExecutionTree(trace model.ExecutionTrace, selected *model.Script) model.ExecutionTrace {
	f := Filter{Script: selected}
	if !f.Active() {
		return trace
	}

	out := make(model.ExecutionTrace, 0, len(trace))
	for _, ev := range trace {
		if f.Match(ev) {
			out = append(out, ev)
		}
	}
	return out
}
