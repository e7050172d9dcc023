// Package backtrace parses the call-stack strings that PhantomJS attaches to
// execution tree events, e.g. "foo (http://a.com/app.js:12) / http://a.com/lib.js:7".
package backtrace

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Saturate/YellowLabTools/internal/model"
)

// Delimiter separates frames in a backtrace string.
const Delimiter = " / "

var (
	withFuncRe    = regexp.MustCompile(`^([^\s(]+) \((.+:\d+)\)$`)
	fileAndLineRe = regexp.MustCompile(`^(.*):(\d+)$`)
)

// ParseError reports a frame that has neither the function form nor a
// trailing ":<line>" with a positive line number.
type ParseError struct {
	Index int    // position of the frame in the backtrace
	Frame string // the raw frame text
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("backtrace frame %d is malformed: %q", e.Index, e.Frame)
}

// Parse splits str into frames. An empty string yields nil frames and no error.
//
// Malformed frames are skipped: the returned slice holds every frame that
// parsed, and the error joins one *ParseError per skipped frame.
func Parse(str string) ([]model.BacktraceFrame, error) {
	if str == "" {
		return nil, nil
	}

	parts := strings.Split(str, Delimiter)
	frames := make([]model.BacktraceFrame, 0, len(parts))
	var errs []error

	for i, part := range parts {
		frame, ok := parseFrame(part)
		if !ok {
			errs = append(errs, &ParseError{Index: i, Frame: part})
			continue
		}
		frames = append(frames, frame)
	}

	return frames, errors.Join(errs...)
}

func parseFrame(s string) (model.BacktraceFrame, bool) {
	var frame model.BacktraceFrame
	fileAndLine := s

	if m := withFuncRe.FindStringSubmatch(s); m != nil {
		frame.FunctionName = m[1]
		fileAndLine = m[2]
	}

	m := fileAndLineRe.FindStringSubmatch(fileAndLine)
	if m == nil {
		return frame, false
	}

	line, err := strconv.Atoi(m[2])
	if err != nil || line < 1 {
		// lines are 1-based; also rejects digits that overflow int
		return frame, false
	}

	frame.FilePath = m[1]
	frame.Line = line
	return frame, true
}
