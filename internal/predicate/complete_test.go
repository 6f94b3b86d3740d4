package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func labels(items []CompletionItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func geneValues(property string) []string {
	switch property {
	case PropLabel:
		return []string{"SOX10", "BRAF", "SOX9", "SOX10"}
	case PropGivenID:
		return []string{"6663", "673"}
	}
	return nil
}

func TestComplete(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{"entity_label", "given_id", "not", "true"}},
		{"partial property", "ent", []string{"entity_label"}},
		{"after property", "entity_label ", operators},
		{"partial operator", "entity_label li", []string{"like"}},
		{"after operator", "entity_label = ", []string{"BRAF", "SOX10", "SOX9"}},
		{"unquoted partial value", "entity_label = so", []string{"SOX10", "SOX9"}},
		{"inside string", `entity_label = "SOX1`, []string{"SOX10"}},
		{"given id values", "given_id != ", []string{"6663", "673"}},
		{"after in", "entity_label in ", []string{"["}},
		{"list element", `entity_label in ["SOX10", `, []string{"BRAF", "SOX10", "SOX9"}},
		{"after value", `entity_label = "SOX10" `, []string{"and", "or"}},
		{"partial connector", `entity_label = "SOX10" o`, []string{"or"}},
		{"on closing quote", `entity_label = "SOX10"`, []string{}},
		{"after and", `given_id = "1" and `, []string{"entity_label", "given_id", "not", "true"}},
		{"after not", "not g", []string{"given_id"}},
		{"after list", `given_id in ["1"] `, []string{"and", "or"}},
		{"after number", "given_id > 3", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Complete(tt.text, len(tt.text), geneValues)
			assert.Equal(t, tt.want, labels(got))
		})
	}
}

func TestComplete_ValuesAreQuoted(t *testing.T) {
	items := Complete(`entity_label = "BR`, 18, geneValues)
	if assert.Len(t, items, 1) {
		assert.Equal(t, "value", items[0].Kind)
		assert.Equal(t, `"BRAF"`, items[0].InsertText)
		assert.Equal(t, PropLabel, items[0].Detail)
	}
	assert.Equal(t, `"a\"b"`, quote(`a"b`))
}

func TestComplete_Cursor(t *testing.T) {
	text := `entity_label = "SOX10" and given_id = "1"`
	assert.Equal(t, []string{"entity_label"}, labels(Complete(text, 3, nil)))
	assert.Equal(t, labels(Complete(text, len(text), nil)), labels(Complete(text, 1000, nil)))
	assert.Len(t, Complete(text, -1, nil), 4)
}

func TestComplete_NoValueSource(t *testing.T) {
	assert.Empty(t, Complete("entity_label = ", 15, nil))
}

func TestComplete_ValueLimit(t *testing.T) {
	many := func(string) []string {
		out := make([]string, 0, 80)
		for i := 0; i < 80; i++ {
			out = append(out, string(rune('A'+i%26))+string(rune('a'+i/26)))
		}
		return out
	}
	assert.Len(t, Complete("entity_label = ", 15, many), maxValueItems)
}
