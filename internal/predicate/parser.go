package predicate

import (
	"errors"
	"fmt"
	"strings"
)

// Parser implements a recursive descent parser for context expressions.
type Parser struct {
	tokens []Token
	pos    int
	errors []*ParseError
}

// NewParser creates a parser from a token slice (typically from Lexer.Tokenize).
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the token stream into a single expression.
func (p *Parser) Parse() (Expr, []*ParseError) {
	if p.atEnd() {
		p.addError(p.peek(), "empty expression")
		return nil, p.errors
	}
	expr := p.parseOrExpr()
	if !p.atEnd() {
		tok := p.peek()
		p.addError(tok, fmt.Sprintf("unexpected %s after expression", tok.Type))
	}
	return expr, p.errors
}

// ── Token navigation ────────────────────────────────────────────────────────

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) match(types ...TokenType) (Token, bool) {
	for _, t := range types {
		if p.check(t) {
			return p.advance(), true
		}
	}
	return Token{}, false
}

func (p *Parser) expect(t TokenType) (Token, bool) {
	if p.check(t) {
		return p.advance(), true
	}
	tok := p.peek()
	p.addError(tok, fmt.Sprintf("expected %s, got %s", t, tok.Type))
	return tok, false
}

func (p *Parser) addError(tok Token, msg string) {
	p.errors = append(p.errors, &ParseError{
		Message: msg,
		Line:    tok.Line,
		Col:     tok.Col,
		Pos:     tok.Pos,
	})
}

// ── Expressions ─────────────────────────────────────────────────────────────

func (p *Parser) parseOrExpr() Expr {
	left := p.parseAndExpr()
	if left == nil {
		return nil
	}
	for p.check(TokenOr) {
		opTok := p.advance()
		right := p.parseAndExpr()
		if right == nil {
			return left
		}
		left = &BinaryLogicExpr{TokenPos: opTok.Pos, Op: LogicOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAndExpr() Expr {
	left := p.parseUnaryExpr()
	if left == nil {
		return nil
	}
	for p.check(TokenAnd) {
		opTok := p.advance()
		right := p.parseUnaryExpr()
		if right == nil {
			return left
		}
		left = &BinaryLogicExpr{TokenPos: opTok.Pos, Op: LogicAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnaryExpr() Expr {
	if tok, ok := p.match(TokenNot); ok {
		expr := p.parseUnaryExpr()
		if expr == nil {
			return nil
		}
		return &NotExpr{TokenPos: tok.Pos, Expr: expr}
	}

	if p.check(TokenLParen) {
		p.advance()
		expr := p.parseOrExpr()
		p.expect(TokenRParen)
		return expr
	}

	if tok, ok := p.match(TokenBool); ok {
		return &BoolExpr{TokenPos: tok.Pos, Value: strings.EqualFold(tok.Literal, "true")}
	}

	return p.parseComparison()
}

func (p *Parser) parseComparison() Expr {
	if !p.check(TokenIdent) {
		p.addError(p.peek(), fmt.Sprintf("expected property name, got %s", p.peek().Type))
		p.advance()
		return nil
	}

	field := p.advance()
	startPos := field.Pos

	if p.check(TokenIn) {
		p.advance()
		values := p.parseArrayLiteral()
		return &InExpr{TokenPos: startPos, Field: field.Literal, Values: values}
	}

	if p.check(TokenLike) {
		p.advance()
		val := p.parseLiteral()
		if val.Type != LitString {
			p.addError(field, "like requires a string pattern")
		}
		return &ComparisonExpr{TokenPos: startPos, Field: field.Literal, Op: CompLike, Value: val}
	}

	op, ok := p.parseCompOp()
	if !ok {
		p.addError(p.peek(), fmt.Sprintf("expected comparison operator (=, !=, >, <, >=, <=, like, in), got %s", p.peek().Type))
		return nil
	}

	val := p.parseLiteral()
	return &ComparisonExpr{TokenPos: startPos, Field: field.Literal, Op: op, Value: val}
}

func (p *Parser) parseCompOp() (CompOp, bool) {
	switch p.peek().Type {
	case TokenEQ:
		p.advance()
		return CompEQ, true
	case TokenNEQ:
		p.advance()
		return CompNEQ, true
	case TokenGT:
		p.advance()
		return CompGT, true
	case TokenLT:
		p.advance()
		return CompLT, true
	case TokenGTE:
		p.advance()
		return CompGTE, true
	case TokenLTE:
		p.advance()
		return CompLTE, true
	default:
		return 0, false
	}
}

func (p *Parser) parseLiteral() Literal {
	tok := p.peek()
	switch tok.Type {
	case TokenString:
		p.advance()
		return Literal{TokenPos: tok.Pos, Type: LitString, Raw: tok.Literal}
	case TokenInt:
		p.advance()
		return Literal{TokenPos: tok.Pos, Type: LitInt, Raw: tok.Literal}
	case TokenFloat:
		p.advance()
		return Literal{TokenPos: tok.Pos, Type: LitFloat, Raw: tok.Literal}
	case TokenBool:
		p.advance()
		return Literal{TokenPos: tok.Pos, Type: LitBool, Raw: strings.ToLower(tok.Literal)}
	case TokenNull:
		p.advance()
		return Literal{TokenPos: tok.Pos, Type: LitNull, Raw: "null"}
	default:
		p.addError(tok, fmt.Sprintf("expected literal value, got %s", tok.Type))
		p.advance()
		return Literal{TokenPos: tok.Pos, Type: LitNull, Raw: "null"}
	}
}

func (p *Parser) parseArrayLiteral() []Literal {
	if _, ok := p.expect(TokenLBrack); !ok {
		return nil
	}

	var values []Literal
	for !p.check(TokenRBrack) && !p.atEnd() {
		values = append(values, p.parseLiteral())
		if !p.check(TokenRBrack) {
			if _, ok := p.expect(TokenComma); !ok {
				break
			}
		}
	}

	p.expect(TokenRBrack)
	return values
}

// Parse lexes and parses src, returning the first error encountered.
func Parse(src string) (Expr, error) {
	tokens, lexErrs := NewLexer(src).Tokenize()
	if len(lexErrs) > 0 {
		return nil, lexErrs[0]
	}
	expr, parseErrs := NewParser(tokens).Parse()
	if len(parseErrs) > 0 {
		return nil, parseErrs[0]
	}
	if expr == nil {
		return nil, errors.New("empty expression")
	}
	return expr, nil
}
