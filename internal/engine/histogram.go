package engine

import (
	"math"
	"time"

	"github.com/Saturate/YellowLabTools/internal/model"
)

const (
	// Durations above this are instrumentation artefacts.
	maxEventDurationMs = 100

	intervalCount = model.TimelineBinCount - 1

	// MaxTraceDurationMs bounds the occupancy signal of one timeline.
	MaxTraceDurationMs = int64(time.Hour / time.Millisecond)
)

// EndTime returns the end of the last event of the unfiltered trace.
func EndTime(trace model.ExecutionTrace) (int64, error) {
	if len(trace) == 0 {
		return 0, &EmptyTimelineError{}
	}
	last := trace[len(trace)-1]

	// Both terms are checked before adding so the sum cannot overflow.
	end := max(last.Timestamp, 0)
	if end > MaxTraceDurationMs {
		return 0, &TraceTooLongError{EndTime: end}
	}
	if last.Duration != nil {
		d := *last.Duration
		if d > MaxTraceDurationMs {
			return 0, &TraceTooLongError{EndTime: math.MaxInt64}
		}
		end = max(end+d, 0)
	}
	if end > MaxTraceDurationMs {
		return 0, &TraceTooLongError{EndTime: end}
	}
	return end, nil
}

// BuildTimeline bins view over the time axis of the unfiltered trace raw,
// so that filtering never shrinks the axis.
func BuildTimeline(raw, view model.ExecutionTrace) (model.Timeline, error) {
	endTime, err := EndTime(raw)
	if err != nil {
		return model.Timeline{}, err
	}
	return ComputeTimeline(view, endTime), nil
}

// ComputeTimeline aggregates events into 200 activity bins spanning
// [0, endTime].
//
// Events are first flattened into a per-millisecond occupancy signal, so
// overlapping events count each millisecond once, then every occupied
// millisecond increments the bin it falls into.
func ComputeTimeline(events model.ExecutionTrace, endTime int64) model.Timeline {
	endTime = min(max(endTime, 0), MaxTraceDurationMs)

	// A zero-length trace still gets a positive bin width; everything lands in bin 0.
	span := max(endTime, 1)
	tl := model.Timeline{
		IntervalDurationMs: float64(span) / intervalCount,
	}

	// 1. Occupancy per millisecond
	occupied := make([]bool, endTime+1)
	for _, ev := range events {
		if ev.Duration == nil {
			continue
		}

		d := min(*ev.Duration, maxEventDurationMs)
		if d == 0 {
			d = 1
		}

		start := max(ev.Timestamp, 0)
		stop := min(ev.Timestamp+d, endTime+1)
		for ms := start; ms < stop; ms++ {
			occupied[ms] = true
		}
	}

	// 2. Downsample into bins
	for ms, on := range occupied {
		if !on {
			continue
		}
		bin := int(float64(ms) / tl.IntervalDurationMs)
		if bin > intervalCount {
			bin = intervalCount
		}
		tl.Bins[bin]++
	}

	// 3. Scale for display
	for _, c := range tl.Bins {
		if c > tl.MaxCount {
			tl.MaxCount = c
		}
	}

	return tl
}
