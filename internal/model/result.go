package model

import "encoding/json"

// Result is one YellowLab test run, reduced to the parts the timeline needs.
type Result struct {
	RunID     string
	URL       string // params.url, passed through to the relauncher
	Offenders []Offender
	Events    ExecutionTrace
}

// Offender is a script flagged by the jsCount rule.
type Offender struct {
	File string `json:"file"`
}

// ExecutionEvent is a single node of the JavaScript execution tree.
// Only the parsed backtrace cache may change after loading.
type ExecutionEvent struct {
	Timestamp int64           `json:"timestamp"`
	Duration  *int64          `json:"time,omitempty"`
	Type      string          `json:"type"`
	Backtrace string          `json:"backtrace,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`

	parsed      []BacktraceFrame
	parseErr    error
	parseCached bool
}

// End returns the timestamp at which the event stops.
func (e *ExecutionEvent) End() int64 {
	if e.Duration == nil {
		return e.Timestamp
	}
	return e.Timestamp + *e.Duration
}

// ParsedBacktrace returns the cached backtrace, calling parse on first access.
func (e *ExecutionEvent) ParsedBacktrace(parse func(string) ([]BacktraceFrame, error)) ([]BacktraceFrame, error) {
	if !e.parseCached {
		e.parsed, e.parseErr = parse(e.Backtrace)
		e.parseCached = true
	}
	return e.parsed, e.parseErr
}

// ExecutionTrace is an ordered sequence of events in capture order.
type ExecutionTrace []*ExecutionEvent

// Script is an entry of the script filter dropdown.
type Script struct {
	FullPath  string `json:"fullPath"`
	ShortPath string `json:"shortPath"`
}

// BacktraceFrame is one function/file/line entry of a backtrace.
// FunctionName is empty for anonymous frames.
type BacktraceFrame struct {
	FunctionName string `json:"functionName,omitempty"`
	FilePath     string `json:"filePath"`
	Line         int    `json:"line"`
}

// TimelineBinCount is the fixed number of bins of a Timeline.
const TimelineBinCount = 200

// Timeline is the activity histogram drawn above the profiler.
type Timeline struct {
	Bins               [TimelineBinCount]int `json:"bins"`
	IntervalDurationMs float64               `json:"intervalDurationMs"`
	MaxCount           int                   `json:"maxCount"`
}
