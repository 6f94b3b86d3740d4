// Package predicate implements the lexer, parser, AST, and evaluator for
// context expressions: boolean predicates over entity properties such as
//
//	entity_label in ["SOX10", "BRAF"] and not given_id = "ACH-000001"
//
// The expression "true" is the match-everything sentinel.
package predicate

import "strings"

// TokenType identifies the kind of lexical token.
type TokenType int

const (
	// Literals and identifiers
	TokenEOF    TokenType = iota
	TokenIdent            // property name
	TokenString           // "quoted string"
	TokenInt              // 123
	TokenFloat            // 1.23
	TokenBool             // true / false
	TokenNull             // null

	// Operators
	TokenEQ    // =
	TokenNEQ   // !=
	TokenGT    // >
	TokenLT    // <
	TokenGTE   // >=
	TokenLTE   // <=
	TokenComma // ,

	// Grouping
	TokenLParen // (
	TokenRParen // )
	TokenLBrack // [
	TokenRBrack // ]

	// Keywords
	TokenAnd
	TokenOr
	TokenNot
	TokenIn
	TokenLike
)

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string"
	case TokenInt:
		return "integer"
	case TokenFloat:
		return "float"
	case TokenBool:
		return "boolean"
	case TokenNull:
		return "null"
	case TokenEQ:
		return "="
	case TokenNEQ:
		return "!="
	case TokenGT:
		return ">"
	case TokenLT:
		return "<"
	case TokenGTE:
		return ">="
	case TokenLTE:
		return "<="
	case TokenComma:
		return ","
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLBrack:
		return "["
	case TokenRBrack:
		return "]"
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenNot:
		return "not"
	case TokenIn:
		return "in"
	case TokenLike:
		return "like"
	default:
		return "unknown"
	}
}

// Token represents a single lexical token in an expression.
type Token struct {
	Type    TokenType
	Literal string // raw text of the token
	Pos     int    // byte offset in source
	Line    int    // 1-based line number
	Col     int    // 1-based column number
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"and":   TokenAnd,
	"or":    TokenOr,
	"not":   TokenNot,
	"in":    TokenIn,
	"like":  TokenLike,
	"true":  TokenBool,
	"false": TokenBool,
	"null":  TokenNull,
}

// LookupKeyword returns the keyword token type for an identifier, or
// TokenIdent if the identifier is not a keyword. Lookup is case-insensitive.
func LookupKeyword(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return TokenIdent
}

// IsComparison returns true for the binary comparison operators.
func (t TokenType) IsComparison() bool {
	switch t {
	case TokenEQ, TokenNEQ, TokenGT, TokenLT, TokenGTE, TokenLTE:
		return true
	}
	return false
}
