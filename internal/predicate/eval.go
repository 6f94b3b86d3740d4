package predicate

import (
	"fmt"
	"strconv"
	"strings"
)

// Property names every catalog identifier exposes.
const (
	PropLabel   = "entity_label"
	PropGivenID = "given_id"
)

// KnownProperties are the properties Validate accepts.
var KnownProperties = []string{PropLabel, PropGivenID}

// Props holds the property values of one entity.
type Props map[string]any

// IdentifierProps builds the property set of a catalog identifier.
func IdentifierProps(id, label string) Props {
	return Props{PropGivenID: id, PropLabel: label}
}

// Matcher is a compiled expression.
type Matcher struct {
	src  string
	expr Expr
}

// Compile parses src into a reusable Matcher.
func Compile(src string) (*Matcher, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", src, err)
	}
	return &Matcher{src: src, expr: expr}, nil
}

// Expr returns the parsed expression tree.
func (m *Matcher) Expr() Expr { return m.expr }

// Match evaluates the expression against props.
func (m *Matcher) Match(props Props) bool {
	return eval(m.expr, props)
}

// Eval parses and evaluates src against props.
func Eval(src string, props Props) (bool, error) {
	m, err := Compile(src)
	if err != nil {
		return false, err
	}
	return m.Match(props), nil
}

func eval(e Expr, props Props) bool {
	switch n := e.(type) {
	case *BoolExpr:
		return n.Value
	case *NotExpr:
		return !eval(n.Expr, props)
	case *BinaryLogicExpr:
		if n.Op == LogicAnd {
			return eval(n.Left, props) && eval(n.Right, props)
		}
		return eval(n.Left, props) || eval(n.Right, props)
	case *InExpr:
		v, ok := props[n.Field]
		if !ok {
			return false
		}
		for _, lit := range n.Values {
			if equal(v, lit) {
				return true
			}
		}
		return false
	case *ComparisonExpr:
		v, ok := props[n.Field]
		if !ok {
			switch n.Op {
			case CompEQ:
				return n.Value.Type == LitNull
			case CompNEQ:
				return n.Value.Type != LitNull
			}
			return false
		}
		return compare(v, n.Op, n.Value)
	default:
		return false
	}
}

func compare(v any, op CompOp, lit Literal) bool {
	switch op {
	case CompEQ:
		return equal(v, lit)
	case CompNEQ:
		return !equal(v, lit)
	case CompLike:
		s, ok := v.(string)
		return ok && likeMatch(strings.ToLower(s), strings.ToLower(lit.Raw))
	}

	var c int
	if a, ok := toFloat(v); ok {
		b, err := strconv.ParseFloat(lit.Raw, 64)
		if err != nil {
			return false
		}
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	} else if s, ok := v.(string); ok && lit.Type == LitString {
		c = strings.Compare(s, lit.Raw)
	} else {
		return false
	}

	switch op {
	case CompGT:
		return c > 0
	case CompLT:
		return c < 0
	case CompGTE:
		return c >= 0
	case CompLTE:
		return c <= 0
	}
	return false
}

func equal(v any, lit Literal) bool {
	switch lit.Type {
	case LitNull:
		return v == nil
	case LitBool:
		b, ok := v.(bool)
		return ok && strconv.FormatBool(b) == lit.Raw
	case LitInt, LitFloat:
		a, ok := toFloat(v)
		if !ok {
			return false
		}
		b, err := strconv.ParseFloat(lit.Raw, 64)
		return err == nil && a == b
	default:
		s, ok := v.(string)
		return ok && s == lit.Raw
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// likeMatch implements SQL LIKE: % matches any run, _ matches one rune.
// It backtracks only to the most recent %, so it runs in O(len(s)*len(pattern)).
func likeMatch(s, pattern string) bool {
	sr, pr := []rune(s), []rune(pattern)
	i, j := 0, 0
	star, mark := -1, 0
	for i < len(sr) {
		switch {
		case j < len(pr) && (pr[j] == '_' || (pr[j] != '%' && pr[j] == sr[i])):
			i++
			j++
		case j < len(pr) && pr[j] == '%':
			star, mark = j, i
			j++
		case star >= 0:
			mark++
			i, j = mark, star+1
		default:
			return false
		}
	}
	for j < len(pr) && pr[j] == '%' {
		j++
	}
	return j == len(pr)
}

// Fields returns the property names referenced by e, in source order.
func Fields(e Expr) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *NotExpr:
			walk(n.Expr)
		case *BinaryLogicExpr:
			walk(n.Left)
			walk(n.Right)
		case *ComparisonExpr:
			if !seen[n.Field] {
				seen[n.Field] = true
				out = append(out, n.Field)
			}
		case *InExpr:
			if !seen[n.Field] {
				seen[n.Field] = true
				out = append(out, n.Field)
			}
		}
	}
	walk(e)
	return out
}

// Validate parses src and checks that every referenced property is known.
func Validate(src string, known []string) error {
	tokens, lexErrs := NewLexer(src).Tokenize()
	if len(lexErrs) > 0 {
		return lexErrs[0]
	}
	expr, parseErrs := NewParser(tokens).Parse()
	if len(parseErrs) > 0 {
		return parseErrs[0]
	}
	for _, tok := range tokens {
		if tok.Type != TokenIdent || contains(known, tok.Literal) {
			continue
		}
		if !contains(Fields(expr), tok.Literal) {
			continue
		}
		return &ParseError{
			Message:    fmt.Sprintf("unknown property '%s'", tok.Literal),
			Line:       tok.Line,
			Col:        tok.Col,
			Pos:        tok.Pos,
			Suggestion: SuggestFrom(tok.Literal, known, 3),
		}
	}
	return nil
}

// IsMatchAll reports whether src is the match-everything sentinel.
func IsMatchAll(src string) bool {
	expr, err := Parse(src)
	if err != nil {
		return false
	}
	b, ok := expr.(*BoolExpr)
	return ok && b.Value
}

// SingleEntity reports whether src selects exactly one entity by label or
// given id, returning the property and value it pins.
func SingleEntity(src string) (field, value string, ok bool) {
	expr, err := Parse(src)
	if err != nil {
		return "", "", false
	}
	c, isCmp := expr.(*ComparisonExpr)
	if !isCmp || c.Op != CompEQ || c.Value.Type != LitString {
		return "", "", false
	}
	if c.Field != PropLabel && c.Field != PropGivenID {
		return "", "", false
	}
	return c.Field, c.Value.Raw, true
}

// EntityExpr builds the expression selecting the entity whose field equals value.
func EntityExpr(field, value string) string {
	return (&ComparisonExpr{Field: field, Op: CompEQ, Value: Literal{Type: LitString, Raw: value}}).String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
