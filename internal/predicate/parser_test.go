package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string) Expr {
	t.Helper()
	expr, err := Parse(input)
	require.NoError(t, err)
	require.NotNil(t, expr)
	return expr
}

func TestParser_MatchAll(t *testing.T) {
	b, ok := parse(t, "true").(*BoolExpr)
	require.True(t, ok)
	assert.True(t, b.Value)
}

func TestParser_Comparison(t *testing.T) {
	comp, ok := parse(t, `entity_label = "SOX10"`).(*ComparisonExpr)
	require.True(t, ok)
	assert.Equal(t, "entity_label", comp.Field)
	assert.Equal(t, CompEQ, comp.Op)
	assert.Equal(t, LitString, comp.Value.Type)
	assert.Equal(t, "SOX10", comp.Value.Raw)
}

func TestParser_Precedence(t *testing.T) {
	// and binds tighter than or
	logic, ok := parse(t, `a = 1 or b = 2 and c = 3`).(*BinaryLogicExpr)
	require.True(t, ok)
	assert.Equal(t, LogicOr, logic.Op)

	right, ok := logic.Right.(*BinaryLogicExpr)
	require.True(t, ok)
	assert.Equal(t, LogicAnd, right.Op)
}

func TestParser_Parens(t *testing.T) {
	logic, ok := parse(t, `(a = 1 or b = 2) and c = 3`).(*BinaryLogicExpr)
	require.True(t, ok)
	assert.Equal(t, LogicAnd, logic.Op)
	_, ok = logic.Left.(*BinaryLogicExpr)
	assert.True(t, ok)
}

func TestParser_NotAndIn(t *testing.T) {
	not, ok := parse(t, `not entity_label in ["A", "B"]`).(*NotExpr)
	require.True(t, ok)

	in, ok := not.Expr.(*InExpr)
	require.True(t, ok)
	assert.Equal(t, "entity_label", in.Field)
	require.Len(t, in.Values, 2)
	assert.Equal(t, "B", in.Values[1].Raw)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"empty", "", "empty expression"},
		{"missing operator", "entity_label", "expected comparison operator"},
		{"trailing tokens", `a = 1 b`, "unexpected identifier"},
		{"unclosed list", `a in ["x"`, "got EOF"},
		{"like needs string", `a like 3`, "like requires a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParser_RoundTrip(t *testing.T) {
	src := `(entity_label in ["A", "B"] and not given_id = "X")`
	expr := parse(t, src)
	again := parse(t, expr.String())
	assert.Equal(t, expr.String(), again.String())
}
