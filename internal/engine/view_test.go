package engine

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saturate/YellowLabTools/internal/model"
)

func sampleResult() *model.Result {
	return &model.Result{
		RunID:     "run1",
		URL:       "http://www.example.com",
		Offenders: []model.Offender{{File: "a.js"}, {File: "b.js"}},
		Events: model.ExecutionTrace{
			{Timestamp: 0, Duration: dur(10), Type: "domQuery", Backtrace: "foo (a.js:12) / b.js:7",
				Data: json.RawMessage(`{"type":"domQuery","resultsNumber":3,"args":["{\"a\":1}","#main","(function)"]}`)},
			{Timestamp: 50, Duration: dur(5), Type: "domQuery", Backtrace: "b.js:5"},
			{Timestamp: 70, Type: "jQuery loaded", Backtrace: "a.js:1"},
			{Timestamp: 199, Duration: dur(1), Type: "domMutation", Backtrace: "garbage / a.js:40"},
		},
	}
}

func TestViewRender(t *testing.T) {
	v := NewView(sampleResult())

	assert.Len(t, v.Scripts(), 2)
	assert.Nil(t, v.SelectedScript())
	assert.Len(t, v.ExecutionTree(), 4)

	tl, err := v.Timeline()
	require.NoError(t, err)
	assert.InDelta(t, 200.0/199, tl.IntervalDurationMs, 1e-12)
	assert.Equal(t, 16, sum(tl.Bins))

	rows, ready := v.Profiler()
	assert.False(t, ready)
	assert.Empty(t, rows)

	v.PopulateProfiler()
	rows, ready = v.Profiler()
	assert.True(t, ready)
	assert.Len(t, rows, 4)
}

func TestViewSelectScriptKeepsTimeAxis(t *testing.T) {
	v := NewView(sampleResult())
	v.SelectScript("a.js")

	require.NotNil(t, v.SelectedScript())
	tree := v.ExecutionTree()
	require.Len(t, tree, 2)
	assert.Equal(t, int64(0), tree[0].Timestamp)
	assert.Equal(t, int64(199), tree[1].Timestamp)

	tl, err := v.Timeline()
	require.NoError(t, err)
	assert.InDelta(t, 200.0/199, tl.IntervalDurationMs, 1e-12)
	assert.Equal(t, 11, sum(tl.Bins))

	rows, ready := v.Profiler()
	assert.True(t, ready, "filter changes populate the profiler immediately")
	assert.Len(t, rows, 2)

	v.SelectScript("")
	assert.Len(t, v.ExecutionTree(), 4)
}

func TestViewToggleDetails(t *testing.T) {
	v := NewView(sampleResult())
	assert.Equal(t, -1, v.ExpandedIndex())

	d, err := v.ToggleDetails(0)
	require.NoError(t, err)
	assert.True(t, d.Open)
	assert.Equal(t, []model.BacktraceFrame{
		{FunctionName: "foo", FilePath: "a.js", Line: 12},
		{FilePath: "b.js", Line: 7},
	}, d.Backtrace)
	assert.Empty(t, d.ParseErrors)
	require.Len(t, d.Fields, 3)
	assert.Equal(t, "args", d.Fields[0].Name)
	assert.Equal(t, 0, v.ExpandedIndex())

	// opening another row closes the first one
	d, err = v.ToggleDetails(3)
	require.NoError(t, err)
	assert.True(t, d.Open)
	assert.Equal(t, []model.BacktraceFrame{{FilePath: "a.js", Line: 40}}, d.Backtrace)
	assert.Len(t, d.ParseErrors, 1)
	assert.Equal(t, 3, v.ExpandedIndex())

	d, err = v.ToggleDetails(3)
	require.NoError(t, err)
	assert.False(t, d.Open)
	assert.Equal(t, -1, v.ExpandedIndex())

	_, err = v.ToggleDetails(4)
	assert.True(t, errors.Is(err, ErrRowOutOfRange))
}

func TestViewExpandedRowSurvivesFilter(t *testing.T) {
	v := NewView(sampleResult())
	_, err := v.ToggleDetails(3)
	require.NoError(t, err)

	v.SelectScript("a.js")
	assert.Equal(t, 1, v.ExpandedIndex())

	v.SelectScript("b.js")
	assert.Equal(t, -1, v.ExpandedIndex())
}

func TestViewBacktraceParsedOnce(t *testing.T) {
	res := sampleResult()
	v := NewView(res)

	_, err := v.ToggleDetails(0)
	require.NoError(t, err)
	res.Events[0].Backtrace = "changed.js:1"
	_, err = v.ToggleDetails(0)
	require.NoError(t, err)

	d, err := v.ToggleDetails(0)
	require.NoError(t, err)
	assert.Equal(t, "a.js", d.Backtrace[0].FilePath)
}

func TestViewEmptyTrace(t *testing.T) {
	v := NewView(&model.Result{RunID: "empty"})

	tl, err := v.Timeline()
	var empty *EmptyTimelineError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "empty", empty.RunID)
	assert.Equal(t, 0, tl.MaxCount)
	assert.Empty(t, v.Scripts())
	assert.Equal(t, 0, v.LocateLine(10))
}

func TestViewOverlongTrace(t *testing.T) {
	v := NewView(&model.Result{RunID: "long", Events: model.ExecutionTrace{event(0, dur(5)), event(math.MaxInt64, nil)}})

	tl, err := v.Timeline()
	var tooLong *TraceTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.Equal(t, "long", tooLong.RunID)
	assert.Equal(t, 0, tl.MaxCount)
	assert.Len(t, v.ExecutionTree(), 2)
}

func TestViewLocateLine(t *testing.T) {
	v := NewView(sampleResult())
	assert.Equal(t, 1, v.LocateLine(50))
	assert.Equal(t, 3, v.LocateLine(199))
}

func TestClassifyValue(t *testing.T) {
	tests := []struct {
		value any
		kind  ValueKind
	}{
		{`{"a":1}`, ValueObjectString},
		{"#main", ValuePureString},
		{"", ValuePureString},
		{"(function)", ValueOther},
		{"undefined", ValueOther},
		{"{broken", ValueOther},
		{3.0, ValueOther},
		{nil, ValueOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, ClassifyValue(tt.value), "%#v", tt.value)
	}
}
