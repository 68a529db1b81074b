package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ai/weft/graph"
	"github.com/weft-ai/weft/types"
)

type fixedCounter int

func (f fixedCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return int(f)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, estimateTokens("a"))
	assert.Equal(t, 1, estimateTokens("abc"))
	assert.Equal(t, 2, estimateTokens("eight ch"))
	assert.Equal(t, 3, estimateTokens("twelve chars"))
}

func TestTiktokenCounter_EmptyText(t *testing.T) {
	c := NewTiktokenCounter("")
	assert.Equal(t, 0, c.Count(""))
}

func TestTokenUsage(t *testing.T) {
	u := tokenUsage(fixedCounter(5), "prompt", "completion")
	assert.Equal(t, types.TokenUsage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}, u)

	u = tokenUsage(fixedCounter(5), "prompt", "")
	assert.Equal(t, 5, u.PromptTokens)
	assert.Equal(t, 0, u.CompletionTokens)
	assert.Equal(t, 5, u.TotalTokens)
}

func TestApplyTransformRule(t *testing.T) {
	tests := []struct {
		rule, in, want string
	}{
		{"uppercase", "hi", "HI"},
		{"lowercase", "HI", "hi"},
		{"reverse", "abc", "cba"},
		{"reverse", "héllo", "olléh"},
		{"trim", "  x  ", "x"},
		{"identity", "same", "same"},
		{"unknown-rule", "same", "same"},
		{"", "same", "same"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, applyTransformRule(tt.rule, tt.in), "rule %q", tt.rule)
	}
}

func TestPrimaryInput(t *testing.T) {
	declared := &graph.Step{ID: "s", Inputs: []string{"text", "alt"}}

	v, ok := primaryInput(declared, types.Bundle{"alt": "b", "text": "a"})
	require.True(t, ok)
	assert.Equal(t, "a", v, "first declared port wins")

	v, ok = primaryInput(declared, types.Bundle{"alt": "b"})
	require.True(t, ok)
	assert.Equal(t, "b", v)

	undeclared := &graph.Step{ID: "s"}
	v, ok = primaryInput(undeclared, types.Bundle{"only": 42})
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = primaryInput(undeclared, types.Bundle{"a": 1, "b": 2})
	assert.False(t, ok, "ambiguous without declared ports")

	_, ok = primaryInput(declared, types.Bundle{})
	assert.False(t, ok)
}

func TestAsCollection(t *testing.T) {
	items, err := asCollection([]any{1, "two"})
	require.NoError(t, err)
	assert.Equal(t, []any{1, "two"}, items)

	items, err = asCollection([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, items)

	_, err = asCollection("not a collection")
	assert.Error(t, err)
}
