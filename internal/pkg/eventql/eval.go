package eventql

import (
	"strconv"
	"strings"
)

// Record is an event that queries can be evaluated against.
type Record interface {
	// Field returns a named field and whether the event has it.
	Field(name string) (string, bool)
	// Text returns the haystack of keyless searches.
	Text() string
}

// Match evaluates node against rec. A nil node matches everything.
func Match(node Node, rec Record) bool {
	if node == nil {
		return true
	}

	switch n := node.(type) {
	case BinaryExpr:
		if n.Op == "OR" {
			return Match(n.Left, rec) || Match(n.Right, rec)
		}
		return Match(n.Left, rec) && Match(n.Right, rec)
	case MatchExpr:
		return evalMatch(n, rec)
	case NotExpr:
		return !Match(n.Expr, rec)
	default:
		return false
	}
}

func evalMatch(expr MatchExpr, rec Record) bool {
	if expr.Key == "" {
		return containsIgnoreCase(rec.Text(), expr.Value)
	}

	value, ok := rec.Field(strings.ToLower(expr.Key))
	if !ok {
		return expr.Op == "!="
	}

	switch expr.Op {
	case "!=":
		return !strings.EqualFold(value, expr.Value)
	case "~":
		return containsIgnoreCase(value, expr.Value)
	case ">", "<":
		return compareNumbers(value, expr.Value, expr.Op)
	default:
		return strings.EqualFold(value, expr.Value)
	}
}

func containsIgnoreCase(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func compareNumbers(field, query, op string) bool {
	a, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return false
	}
	b, err := strconv.ParseFloat(query, 64)
	if err != nil {
		return false
	}
	if op == ">" {
		return a > b
	}
	return a < b
}
