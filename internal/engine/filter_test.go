package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saturate/YellowLabTools/internal/model"
)

func withBacktrace(typ, bt string) *model.ExecutionEvent {
	return &model.ExecutionEvent{Type: typ, Backtrace: bt}
}

func TestFilterPassthrough(t *testing.T) {
	trace := model.ExecutionTrace{withBacktrace("a", "a.js:1"), withBacktrace("b", "")}
	out := FilterExecutionTree(trace, nil)

	require.Len(t, out, len(trace))
	for i := range trace {
		assert.Same(t, trace[i], out[i])
	}
}

func TestFilterSelectivity(t *testing.T) {
	trace := model.ExecutionTrace{
		withBacktrace("domQuery", "a.js:10"),
		withBacktrace("domQuery", "b.js:5"),
		withBacktrace("domQuery", ""),
	}
	out := FilterExecutionTree(trace, &model.Script{FullPath: "a.js"})

	require.Len(t, out, 1)
	assert.Same(t, trace[0], out[0])
	assert.Len(t, trace, 3, "input must not be mutated")
}

func TestFilterRequiresLineSuffix(t *testing.T) {
	trace := model.ExecutionTrace{
		withBacktrace("domQuery", "foo (a.jsx:3)"),
		withBacktrace("domQuery", "foo (a.js:3) / b.js:9"),
	}
	out := FilterExecutionTree(trace, &model.Script{FullPath: "a.js"})

	require.Len(t, out, 1)
	assert.Same(t, trace[1], out[0])
}

func TestFilterDropsJQueryEventsOnlyWhenActive(t *testing.T) {
	trace := model.ExecutionTrace{
		withBacktrace("jQuery loaded", "a.js:1"),
		withBacktrace("jQuery version change", "a.js:2"),
		withBacktrace("jQuery - bind", "a.js:3"),
	}

	assert.Len(t, FilterExecutionTree(trace, nil), 3)

	out := FilterExecutionTree(trace, &model.Script{FullPath: "a.js"})
	require.Len(t, out, 1)
	assert.Equal(t, "jQuery - bind", out[0].Type)
}

func TestScriptsFromOffenders(t *testing.T) {
	long := "http://www.example.com/" + strings.Repeat("x", 127)
	require.Len(t, long, 150)

	scripts := ScriptsFromOffenders([]model.Offender{
		{File: long},
		{File: strings.Repeat("y", 50)},
		{File: strings.Repeat("y", 50)},
		{File: strings.Repeat("z", 100)},
	})

	require.Len(t, scripts, 4)
	assert.Len(t, scripts[0].ShortPath, 101)
	assert.True(t, strings.HasSuffix(scripts[0].ShortPath, "..."))
	assert.Equal(t, long[:98], strings.TrimSuffix(scripts[0].ShortPath, "..."))
	assert.Equal(t, long, scripts[0].FullPath)

	assert.Equal(t, scripts[1], scripts[2], "offenders are not deduplicated")
	assert.Equal(t, scripts[1].FullPath, scripts[1].ShortPath)
	assert.Equal(t, scripts[3].FullPath, scripts[3].ShortPath)
}

func TestScriptsFromNoOffenders(t *testing.T) {
	assert.Empty(t, ScriptsFromOffenders(nil))
}

func TestFindLineIndex(t *testing.T) {
	tree := model.ExecutionTrace{event(0, nil), event(50, nil), event(120, nil)}

	assert.Equal(t, 1, FindLineIndex(tree, 60, 55))
	// the next event is within one bin of the click
	assert.Equal(t, 1, FindLineIndex(tree, 60, 0))
	assert.Equal(t, 0, FindLineIndex(tree, 10, 0))
	assert.Equal(t, 2, FindLineIndex(tree, 60, 500))
	assert.Equal(t, 2, FindLineIndex(tree, 60, 70))
	assert.Equal(t, 0, FindLineIndex(nil, 60, 55))
}
