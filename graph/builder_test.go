package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	g, err := NewBuilder("review").
		AddStep("draft", KindAgentCall).
		WithConfig("prompt", "write a draft").
		Done().
		AddStep("shout", KindTransform).
		WithConfig("rule", "uppercase").
		WithInputs("text").
		Done().
		Connect("draft", PortResponse, "shout", "text").
		Build()
	require.NoError(t, err)

	assert.Len(t, g.Steps(), 2)

	draft, ok := g.StepByID("draft")
	require.True(t, ok)
	assert.Equal(t, "write a draft", draft.ConfigString("prompt"))

	shout, ok := g.StepByID("shout")
	require.True(t, ok)
	assert.Equal(t, []string{"text"}, shout.Inputs)
	assert.Equal(t, "uppercase", shout.ConfigString("rule"))
}

func TestBuilder_DeclaredOutputsOverrideImplied(t *testing.T) {
	g, err := NewBuilder("custom").
		AddStep("t", KindTransform).
		WithConfig("rule", "trim").
		WithOutputs("cleaned").
		Done().
		AddStep("sink", KindTransform).
		Done().
		Connect("t", "cleaned", "sink", "text").
		Build()
	require.NoError(t, err)

	s, _ := g.StepByID("t")
	assert.Equal(t, []string{"cleaned"}, s.EffectiveOutputs())
}

func TestBuilder_InvalidGraph(t *testing.T) {
	_, err := NewBuilder("bad").
		AddStep("a", KindTransform).Done().
		AddStep("a", KindTransform).Done().
		Build()
	assert.Error(t, err)
}
