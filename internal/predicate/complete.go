package predicate

import (
	"sort"
	"strings"
)

// CompletionItem is a single completion suggestion.
type CompletionItem struct {
	Label      string `json:"label"`
	Kind       string `json:"kind"` // "property", "keyword", "operator", "value"
	Detail     string `json:"detail,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
}

// ValueSource returns candidate literal values for a property. It may be nil.
type ValueSource func(property string) []string

// maxValueItems caps value suggestions; identifier lists can be large.
const maxValueItems = 50

var (
	startKeywords      = []string{"not", "true"}
	operators          = []string{"=", "!=", ">", "<", ">=", "<=", "like", "in"}
	afterValueKeywords = []string{"and", "or"}
)

// Complete returns suggestions for the expression text up to cursor.
func Complete(text string, cursor int, values ValueSource) []CompletionItem {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	prefix := text[:cursor]

	tokens, _ := NewLexer(prefix).Tokenize()
	if len(tokens) > 0 && tokens[len(tokens)-1].Type == TokenEOF {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return completeStart("")
	}

	last := tokens[len(tokens)-1]

	// A trailing identifier is a partial word only when no whitespace
	// follows it.
	partial := ""
	if last.Type == TokenIdent && cursor <= last.Pos+len(last.Literal) {
		partial = strings.ToLower(last.Literal)
		tokens = tokens[:len(tokens)-1]
		if len(tokens) == 0 {
			return completeStart(partial)
		}
		last = tokens[len(tokens)-1]
	}

	switch last.Type {
	case TokenAnd, TokenOr, TokenNot, TokenLParen:
		return completeStart(partial)

	case TokenIdent:
		return filterItems(operators, partial, "operator")

	case TokenEQ, TokenNEQ, TokenGT, TokenLT, TokenGTE, TokenLTE, TokenLike, TokenLBrack, TokenComma:
		return completeValues(values, findPropertyBefore(tokens), partial)

	case TokenIn:
		if partial != "" {
			return nil
		}
		return []CompletionItem{{Label: "[", Kind: "operator"}}

	case TokenString:
		if isUnterminatedString(prefix, last) {
			if len(tokens) >= 2 && expectsValue(tokens[len(tokens)-2].Type) {
				return completeValues(values, findPropertyBefore(tokens), strings.ToLower(last.Literal))
			}
			return nil
		}
		// The cursor sits on the closing quote.
		if partial == "" && !endsWithSpace(prefix) {
			return nil
		}
		return filterItems(afterValueKeywords, partial, "keyword")

	case TokenInt, TokenFloat, TokenBool, TokenNull, TokenRParen, TokenRBrack:
		if partial == "" && !endsWithSpace(prefix) {
			return nil
		}
		return filterItems(afterValueKeywords, partial, "keyword")
	}
	return nil
}

func completeStart(partial string) []CompletionItem {
	var items []CompletionItem
	for _, name := range KnownProperties {
		if strings.HasPrefix(name, partial) {
			items = append(items, CompletionItem{Label: name, Kind: "property"})
		}
	}
	return append(items, filterItems(startKeywords, partial, "keyword")...)
}

func completeValues(values ValueSource, property, partial string) []CompletionItem {
	if values == nil || property == "" {
		return nil
	}
	seen := make(map[string]bool)
	var matched []string
	for _, v := range values(property) {
		if seen[v] || !strings.HasPrefix(strings.ToLower(v), partial) {
			continue
		}
		seen[v] = true
		matched = append(matched, v)
	}
	sort.Strings(matched)
	if len(matched) > maxValueItems {
		matched = matched[:maxValueItems]
	}

	items := make([]CompletionItem, 0, len(matched))
	for _, v := range matched {
		items = append(items, CompletionItem{
			Label:      v,
			Kind:       "value",
			Detail:     property,
			InsertText: quote(v),
		})
	}
	return items
}

func filterItems(candidates []string, partial, kind string) []CompletionItem {
	var items []CompletionItem
	for _, c := range candidates {
		if partial == "" || strings.HasPrefix(c, partial) {
			items = append(items, CompletionItem{Label: c, Kind: kind})
		}
	}
	return items
}

// findPropertyBefore returns the nearest property name before the last
// token.
func findPropertyBefore(tokens []Token) string {
	for i := len(tokens) - 1; i >= 0; i-- {
		switch tokens[i].Type {
		case TokenIdent:
			return tokens[i].Literal
		case TokenAnd, TokenOr, TokenNot, TokenLParen:
			return ""
		}
	}
	return ""
}

func expectsValue(t TokenType) bool {
	return t.IsComparison() || t == TokenLike || t == TokenLBrack || t == TokenComma
}

// isUnterminatedString reports whether the string token starting at tok.Pos
// is still missing its closing quote.
func isUnterminatedString(source string, tok Token) bool {
	if tok.Pos >= len(source) {
		return true
	}
	q := source[tok.Pos]
	rest := source[tok.Pos+1:]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			i++
		case q:
			return false
		}
	}
	return true
}

func endsWithSpace(s string) bool {
	if s == "" {
		return false
	}
	c := s[len(s)-1]
	return c == ' ' || c == '\t' || c == '\n'
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
