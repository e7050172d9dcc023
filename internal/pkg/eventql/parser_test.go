package eventql

import (
	"strings"
	"testing"
)

type testEvent struct {
	fields map[string]string
}

func (e testEvent) Field(name string) (string, bool) {
	v, ok := e.fields[name]
	return v, ok
}

func (e testEvent) Text() string {
	var parts []string
	for _, v := range e.fields {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

func TestLexer(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{"type:setTimeout", []TokenType{TokenIdent, TokenColon, TokenIdent, TokenEOF}},
		{`backtrace~"http://x/a.js"`, []TokenType{TokenIdent, TokenContains, TokenString, TokenEOF}},
		{"time>50", []TokenType{TokenIdent, TokenGt, TokenIdent, TokenEOF}},
		{"ts<10", []TokenType{TokenIdent, TokenLt, TokenIdent, TokenEOF}},
		{"a AND b", []TokenType{TokenIdent, TokenAnd, TokenIdent, TokenEOF}},
		{"a or b", []TokenType{TokenIdent, TokenOr, TokenIdent, TokenEOF}},
		{"NOT a", []TokenType{TokenNot, TokenIdent, TokenEOF}},
		{"(a)", []TokenType{TokenLParen, TokenIdent, TokenRParen, TokenEOF}},
		{`type!="jQuery loaded"`, []TokenType{TokenIdent, TokenNeq, TokenString, TokenEOF}},
		{`data.selector:"#main"`, []TokenType{TokenIdent, TokenColon, TokenString, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			for i, expected := range tt.expected {
				tok := lexer.NextToken()
				if tok.Type != expected {
					t.Errorf("token %d: expected %v, got %v (%q)", i, expected, tok.Type, tok.Value)
				}
			}
		})
	}
}

func TestLexerStringEscapes(t *testing.T) {
	tok := NewLexer(`"say \"hi\""`).NextToken()
	if tok.Type != TokenString || tok.Value != `say "hi"` {
		t.Errorf("Unexpected token %+v", tok)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		check func(Node) bool
	}{
		{
			input: "type:setTimeout",
			check: func(n Node) bool {
				m, ok := n.(MatchExpr)
				return ok && m.Key == "type" && m.Value == "setTimeout" && m.Op == "="
			},
		},
		{
			input: `"addEventListener"`,
			check: func(n Node) bool {
				m, ok := n.(MatchExpr)
				return ok && m.Key == "" && m.Value == "addEventListener" && m.Op == "~"
			},
		},
		{
			input: "time>50 ts<100",
			check: func(n Node) bool {
				b, ok := n.(BinaryExpr)
				return ok && b.Op == "AND"
			},
		},
		{
			input: "a OR b AND c",
			check: func(n Node) bool {
				b, ok := n.(BinaryExpr)
				if !ok || b.Op != "OR" {
					return false
				}
				right, ok := b.Right.(BinaryExpr)
				return ok && right.Op == "AND"
			},
		},
		{
			input: "NOT (a OR b)",
			check: func(n Node) bool {
				not, ok := n.(NotExpr)
				if !ok {
					return false
				}
				_, ok = not.Expr.(BinaryExpr)
				return ok
			},
		},
		{
			input: "  ",
			check: func(n Node) bool { return n == nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if !tt.check(node) {
				t.Errorf("unexpected AST: %#v", node)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"(a", "type:", "a)", "NOT"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Expected error for %q", input)
		}
	}
}

func TestMatch(t *testing.T) {
	ev := testEvent{fields: map[string]string{
		"type":      "querySelectorAll",
		"backtrace": "init (http://x/a.js:12)",
		"time":      "75",
	}}

	tests := []struct {
		query string
		want  bool
	}{
		{"type:queryselectorall", true},
		{"type:querySelector", false},
		{"type~selector", true},
		{`backtrace~"a.js:12"`, true},
		{"type!=setTimeout", true},
		{"time>50", true},
		{"time<50", false},
		{"time>abc", false},
		{"missing:x", false},
		{"missing!=x", true},
		{"init", true},
		{"NOT init", false},
		{"type:setTimeout OR time>70", true},
		{"type:setTimeout AND time>70", false},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			node, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got := Match(node, ev); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
