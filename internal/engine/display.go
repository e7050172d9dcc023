package engine

import (
	"encoding/json"
	"sort"
)

// Placeholders PhantomJS writes instead of non-serialisable argument values.
var placeholderValues = map[string]struct{}{
	"(function)": {},
	"[Object]":   {},
	"[Array]":    {},
	"true":       {},
	"false":      {},
	"undefined":  {},
	"unknown":    {},
}

// IsStringOfObject reports whether v is a string holding a serialised object.
func IsStringOfObject(v any) bool {
	s, ok := v.(string)
	return ok && len(s) > 0 && s[0] == '{' && s[len(s)-1] == '}'
}

// IsPureString reports whether v is a plain string value, as opposed to a
// serialised object or a placeholder.
func IsPureString(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	if len(s) > 0 && s[0] == '{' {
		return false
	}
	_, placeholder := placeholderValues[s]
	return !placeholder
}

// ValueKind tells the detail view how to display an event field.
type ValueKind string

const (
	ValueObjectString ValueKind = "object"
	ValuePureString   ValueKind = "string"
	ValueOther        ValueKind = "other"
)

// Field is one entry of an event's data, as shown in the detail view.
type Field struct {
	Name  string    `json:"name"`
	Value any       `json:"value"`
	Kind  ValueKind `json:"kind"`
}

// ClassifyValue returns the display kind of v.
func ClassifyValue(v any) ValueKind {
	switch {
	case IsStringOfObject(v):
		return ValueObjectString
	case IsPureString(v):
		return ValuePureString
	default:
		return ValueOther
	}
}

// DataFields decodes raw event data into fields sorted by name. Data that
// is not a JSON object yields no fields.
func DataFields(raw json.RawMessage) []Field {
	if len(raw) == 0 {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}

	fields := make([]Field, 0, len(obj))
	for name, v := range obj {
		fields = append(fields, Field{Name: name, Value: v, Kind: ClassifyValue(v)})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
	return fields
}
