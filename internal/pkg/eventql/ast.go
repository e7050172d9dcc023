package eventql

// Node is the interface implemented by all AST nodes.
type Node interface {
	node()
}

// BinaryExpr joins two expressions with AND or OR.
type BinaryExpr struct {
	Op    string // "AND" or "OR"
	Left  Node
	Right Node
}

func (BinaryExpr) node() {}

// MatchExpr compares one event field with a value. An empty Key searches
// the event text.
type MatchExpr struct {
	Key   string
	Value string
	Op    string // "=", "!=", "~", ">" or "<"
}

func (MatchExpr) node() {}

// NotExpr negates its inner expression.
type NotExpr struct {
	Expr Node
}

func (NotExpr) node() {}
