package predicate

import (
	"strconv"
	"strings"
)

// Expr is implemented by all expression nodes.
type Expr interface {
	Pos() int // byte offset in source
	String() string
	exprNode()
}

// BoolExpr is a bare "true" or "false".
type BoolExpr struct {
	TokenPos int
	Value    bool
}

func (e *BoolExpr) Pos() int  { return e.TokenPos }
func (e *BoolExpr) exprNode() {}

func (e *BoolExpr) String() string {
	return strconv.FormatBool(e.Value)
}

// LogicOp is AND or OR.
type LogicOp int

const (
	LogicAnd LogicOp = iota
	LogicOr
)

// BinaryLogicExpr represents "expr and expr" or "expr or expr".
type BinaryLogicExpr struct {
	TokenPos int
	Op       LogicOp
	Left     Expr
	Right    Expr
}

func (e *BinaryLogicExpr) Pos() int  { return e.TokenPos }
func (e *BinaryLogicExpr) exprNode() {}

func (e *BinaryLogicExpr) String() string {
	op := " and "
	if e.Op == LogicOr {
		op = " or "
	}
	return "(" + e.Left.String() + op + e.Right.String() + ")"
}

// NotExpr represents "not expr".
type NotExpr struct {
	TokenPos int
	Expr     Expr
}

func (e *NotExpr) Pos() int       { return e.TokenPos }
func (e *NotExpr) exprNode()      {}
func (e *NotExpr) String() string { return "not " + e.Expr.String() }

// CompOp is a comparison operator.
type CompOp int

const (
	CompEQ CompOp = iota
	CompNEQ
	CompGT
	CompLT
	CompGTE
	CompLTE
	CompLike
)

// String returns the operator symbol.
func (op CompOp) String() string {
	switch op {
	case CompEQ:
		return "="
	case CompNEQ:
		return "!="
	case CompGT:
		return ">"
	case CompLT:
		return "<"
	case CompGTE:
		return ">="
	case CompLTE:
		return "<="
	case CompLike:
		return "like"
	default:
		return "?"
	}
}

// ComparisonExpr represents "field op value".
type ComparisonExpr struct {
	TokenPos int
	Field    string
	Op       CompOp
	Value    Literal
}

func (e *ComparisonExpr) Pos() int  { return e.TokenPos }
func (e *ComparisonExpr) exprNode() {}

func (e *ComparisonExpr) String() string {
	return e.Field + " " + e.Op.String() + " " + e.Value.String()
}

// InExpr represents "field in [val1, val2, ...]".
type InExpr struct {
	TokenPos int
	Field    string
	Values   []Literal
}

func (e *InExpr) Pos() int  { return e.TokenPos }
func (e *InExpr) exprNode() {}

func (e *InExpr) String() string {
	parts := make([]string, len(e.Values))
	for i, v := range e.Values {
		parts[i] = v.String()
	}
	return e.Field + " in [" + strings.Join(parts, ", ") + "]"
}

// LiteralType classifies a literal value.
type LiteralType int

const (
	LitString LiteralType = iota
	LitInt
	LitFloat
	LitBool
	LitNull
)

// Literal represents a constant value.
type Literal struct {
	TokenPos int
	Type     LiteralType
	Raw      string // token text, unquoted for strings
}

// String renders the literal back to source form.
func (l Literal) String() string {
	if l.Type == LitString {
		return strconv.Quote(l.Raw)
	}
	return l.Raw
}
