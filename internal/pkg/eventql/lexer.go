package eventql

import (
	"strings"
	"unicode"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenString
	TokenColon
	TokenLParen
	TokenRParen
	TokenAnd
	TokenOr
	TokenNot
	TokenNeq      // !=
	TokenContains // ~
	TokenGt       // >
	TokenLt       // <
)

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
}

// Lexer tokenizes a query.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return Token{Type: TokenEOF}
		}

		ch := l.input[l.pos]
		switch ch {
		case ':':
			l.pos++
			return Token{Type: TokenColon, Value: ":"}
		case '(':
			l.pos++
			return Token{Type: TokenLParen, Value: "("}
		case ')':
			l.pos++
			return Token{Type: TokenRParen, Value: ")"}
		case '~':
			l.pos++
			return Token{Type: TokenContains, Value: "~"}
		case '>':
			l.pos++
			return Token{Type: TokenGt, Value: ">"}
		case '<':
			l.pos++
			return Token{Type: TokenLt, Value: "<"}
		case '!':
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
				l.pos += 2
				return Token{Type: TokenNeq, Value: "!="}
			}
		case '"':
			return l.readString()
		}

		if isIdentChar(ch) {
			return l.readIdent()
		}

		// Unknown character, skip
		l.pos++
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) readString() Token {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		if l.input[l.pos] == '\\' && l.pos+1 < len(l.input) {
			l.pos++
		}
		sb.WriteByte(l.input[l.pos])
		l.pos++
	}
	if l.pos < len(l.input) {
		l.pos++ // closing quote
	}
	return Token{Type: TokenString, Value: sb.String()}
}

func (l *Lexer) readIdent() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	value := l.input[start:l.pos]

	upper := strings.ToUpper(value)
	if typ, ok := keywords[upper]; ok {
		return Token{Type: typ, Value: upper}
	}
	return Token{Type: TokenIdent, Value: value}
}

var keywords = map[string]TokenType{
	"AND": TokenAnd,
	"OR":  TokenOr,
	"NOT": TokenNot,
}

// isIdentChar accepts the characters of field names, numbers and bare
// file names. URLs contain ':' and must be quoted.
func isIdentChar(ch byte) bool {
	r := rune(ch)
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.IndexByte("_-./$", ch) >= 0
}
