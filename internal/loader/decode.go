package loader

import (
	"fmt"
	"math"

	"github.com/valyala/fastjson"

	"github.com/Saturate/YellowLabTools/internal/model"
)

var parserPool fastjson.ParserPool

// DecodeResult extracts the timeline inputs from a YellowLab result document:
// params.url, rules.jsCount.offendersObj.list and javascriptExecutionTree.children.
// Tree nodes without a data object are skipped.
func DecodeResult(runID string, body []byte) (*model.Result, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("invalid result JSON: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("result JSON must be an object, got %s", v.Type())
	}

	res := &model.Result{
		RunID: runID,
		URL:   string(v.GetStringBytes("params", "url")),
	}
	if res.RunID == "" {
		res.RunID = string(v.GetStringBytes("runId"))
	}

	offenders := v.GetArray("rules", "jsCount", "offendersObj", "list")
	res.Offenders = make([]model.Offender, 0, len(offenders))
	for _, o := range offenders {
		res.Offenders = append(res.Offenders, model.Offender{File: string(o.GetStringBytes("file"))})
	}

	children := v.GetArray("javascriptExecutionTree", "children")
	res.Events = make(model.ExecutionTrace, 0, len(children))
	for _, child := range children {
		data := child.Get("data")
		if data == nil || data.Type() != fastjson.TypeObject {
			continue
		}
		ev, err := decodeEvent(data)
		if err != nil {
			return nil, fmt.Errorf("execution tree node %d: %w", len(res.Events), err)
		}
		res.Events = append(res.Events, ev)
	}

	return res, nil
}

func decodeEvent(data *fastjson.Value) (*model.ExecutionEvent, error) {
	ev := &model.ExecutionEvent{
		Type:      string(data.GetStringBytes("type")),
		Backtrace: string(data.GetStringBytes("backtrace")),
		Data:      data.MarshalTo(nil),
	}

	if t := data.Get("timestamp"); t != nil && t.Type() == fastjson.TypeNumber {
		ts, err := millis("timestamp", t.GetFloat64())
		if err != nil {
			return nil, err
		}
		ev.Timestamp = ts
	}
	if t := data.Get("time"); t != nil && t.Type() == fastjson.TypeNumber {
		d, err := millis("time", t.GetFloat64())
		if err != nil {
			return nil, err
		}
		ev.Duration = &d
	}
	return ev, nil
}

// maxMillis is the largest float64 below 2^63.
const maxMillis = float64(1<<63 - 1024)

// millis converts a JSON number to whole milliseconds. Non-finite,
// negative and out-of-range values are rejected.
func millis(field string, f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > maxMillis {
		return 0, fmt.Errorf("invalid %s %v", field, f)
	}
	return int64(f), nil
}
