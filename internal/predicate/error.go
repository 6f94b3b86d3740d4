package predicate

import "fmt"

// ParseError reports where an expression failed to parse.
type ParseError struct {
	Message    string
	Line       int
	Col        int
	Pos        int
	Suggestion string // "did you mean 'entity_label'?" or ""
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("line %d col %d: %s", e.Line, e.Col, e.Message)
	if e.Suggestion != "" {
		msg += " (" + e.Suggestion + ")"
	}
	return msg
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}
	for i, ca := range ra {
		diag := row[0]
		row[0] = i + 1
		for j, cb := range rb {
			above := row[j+1]
			sub := diag
			if ca != cb {
				sub++
			}
			row[j+1] = min(sub, above+1, row[j]+1)
			diag = above
		}
	}
	return row[len(rb)]
}

// SuggestFrom returns a did-you-mean hint naming the candidate closest to
// input, or "" when none is within maxDist edits. Ties keep the earlier
// candidate.
func SuggestFrom(input string, candidates []string, maxDist int) string {
	best, dist := "", maxDist+1
	for _, c := range candidates {
		if d := Levenshtein(input, c); d < dist {
			best, dist = c, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf("did you mean '%s'?", best)
}
