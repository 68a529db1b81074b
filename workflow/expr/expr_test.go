package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	vars := map[string]any{
		"score":  7.5,
		"count":  3,
		"name":   "alice",
		"active": true,
		"empty":  "",
		"result": map[string]any{"score": 0.9, "label": "positive"},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"score > 5", true},
		{"score > 10", false},
		{"score >= 7.5", true},
		{"score <= 7.5", true},
		{"score != 7.5", false},
		{"count == 3", true},
		{"count < -1", false},
		{"-1 < count", true},
		{`name == "alice"`, true},
		{`name != "bob"`, true},
		{"active", true},
		{"!active", false},
		{"empty", false},
		{"true", true},
		{"false", false},
		{"true && false", false},
		{"true || false", true},
		{"score > 5 && count == 3", true},
		{"score > 10 || count == 3", true},
		{"!(score > 10)", true},
		{"(score > 5) && (name == \"alice\" || active)", true},
		{"result.score > 0.5", true},
		{"result.label == \"positive\"", true},
		{"result.missing == 5", false},
		// Unbound identifiers are nil: falsy, equal only to nil.
		{"ghost", false},
		{"ghost == 1", false},
		{"ghost != 1", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	exprs := []string{
		"score >",
		"(score > 5",
		`name == "unterminated`,
		"score @ 5",
		"score > 5 )",
	}
	for _, e := range exprs {
		t.Run(e, func(t *testing.T) {
			_, err := Evaluate(e, map[string]any{"score": 1})
			assert.Error(t, err)
		})
	}
}

func TestEvaluate_NumericStringComparison(t *testing.T) {
	// Numeric strings compare numerically against numbers.
	got, err := Evaluate(`score > "5"`, map[string]any{"score": 7})
	require.NoError(t, err)
	assert.True(t, got)
}
