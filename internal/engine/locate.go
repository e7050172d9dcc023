package engine

import "github.com/Saturate/YellowLabTools/internal/model"

// FindLineIndex maps a timeline timestamp to the row of tree the detail
// view should scroll to: the last event starting before ts plus one bin
// width, stopping at the first event after ts. Returns 0 when nothing
// qualifies.
func FindLineIndex(tree model.ExecutionTrace, intervalDurationMs float64, ts int64) int {
	lineIndex := 0

	for i, ev := range tree {
		delta := ev.Timestamp - ts

		if float64(delta) < intervalDurationMs {
			lineIndex = i
		}

		if delta > 0 {
			break
		}
	}

	return lineIndex
}
