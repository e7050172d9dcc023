package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/Saturate/YellowLabTools/internal/model"
	"github.com/Saturate/YellowLabTools/internal/pkg/eventql"
)

// eventRecord exposes an execution event to eventql.
//
// Fields: type, backtrace (bt), ts (timestamp), time (duration) and
// data.<key> for the event's data object.
type eventRecord struct {
	ev *model.ExecutionEvent
}

func (r eventRecord) Field(name string) (string, bool) {
	switch name {
	case "type":
		return r.ev.Type, true
	case "backtrace", "bt":
		return r.ev.Backtrace, r.ev.Backtrace != ""
	case "ts", "timestamp":
		return strconv.FormatInt(r.ev.Timestamp, 10), true
	case "time", "duration":
		if r.ev.Duration == nil {
			return "", false
		}
		return strconv.FormatInt(*r.ev.Duration, 10), true
	}

	key, ok := strings.CutPrefix(name, "data.")
	if !ok || len(r.ev.Data) == 0 {
		return "", false
	}
	v, err := fastjson.ParseBytes(r.ev.Data)
	if err != nil {
		return "", false
	}
	field := v.Get(key)
	if field == nil {
		return "", false
	}
	if field.Type() == fastjson.TypeString {
		return string(field.GetStringBytes()), true
	}
	return string(field.MarshalTo(nil)), true
}

func (r eventRecord) Text() string {
	return r.ev.Type + " " + r.ev.Backtrace + " " + string(r.ev.Data)
}

// SearchRows returns the indexes of the rows of tree matching query.
func SearchRows(tree model.ExecutionTrace, query string) ([]int, error) {
	node, err := eventql.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	rows := make([]int, 0)
	for i, ev := range tree {
		if eventql.Match(node, eventRecord{ev: ev}) {
			rows = append(rows, i)
		}
	}
	return rows, nil
}
