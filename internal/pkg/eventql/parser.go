package eventql

import (
	"fmt"
	"strings"
)

// Parser parses queries into an AST.
type Parser struct {
	lexer   *Lexer
	current Token
}

// Parse parses the input string and returns the AST root node. An empty
// query yields a nil node, which matches every event.
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	p := &Parser{lexer: NewLexer(input)}
	p.advance()

	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected %q after expression", p.current.Value)
	}
	return node, nil
}

func (p *Parser) advance() {
	p.current = p.lexer.NextToken()
}

// parseOr handles OR expressions (lowest precedence).
func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

// parseAnd handles AND expressions. Juxtaposed terms are joined with AND.
func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current.Type {
		case TokenAnd:
			p.advance()
		case TokenIdent, TokenString, TokenNot, TokenLParen:
		default:
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "AND", Left: left, Right: right}
	}
}

// parseNot handles NOT expressions.
func (p *Parser) parseNot() (Node, error) {
	if p.current.Type == TokenNot {
		p.advance()
		expr, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return NotExpr{Expr: expr}, nil
	}
	return p.parsePrimary()
}

var comparisonOps = map[TokenType]string{
	TokenColon:    "=",
	TokenNeq:      "!=",
	TokenContains: "~",
	TokenGt:       ">",
	TokenLt:       "<",
}

// parsePrimary handles (expr), key<op>value, bare words and "strings".
func (p *Parser) parsePrimary() (Node, error) {
	switch p.current.Type {
	case TokenLParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenRParen {
			return nil, fmt.Errorf("expected ')' but got %q", p.current.Value)
		}
		p.advance()
		return expr, nil

	case TokenString:
		value := p.current.Value
		p.advance()
		return MatchExpr{Value: value, Op: "~"}, nil

	case TokenIdent:
		key := p.current.Value
		p.advance()

		if op, ok := comparisonOps[p.current.Type]; ok {
			p.advance()
			return p.parseValue(key, op)
		}
		return MatchExpr{Value: key, Op: "~"}, nil

	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of query")

	default:
		return nil, fmt.Errorf("unexpected token %q", p.current.Value)
	}
}

// parseValue parses the value after key<op>.
func (p *Parser) parseValue(key, op string) (Node, error) {
	switch p.current.Type {
	case TokenString, TokenIdent:
		value := p.current.Value
		p.advance()
		return MatchExpr{Key: key, Value: value, Op: op}, nil
	default:
		return nil, fmt.Errorf("expected value after '%s%s'", key, op)
	}
}
