package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ai/weft/types"
)

func step(id string, kind Kind) *Step {
	cfg := map[string]any{}
	switch kind {
	case KindCondition:
		cfg["condition"] = "score > 0"
	case KindBoundedLoop:
		cfg["iterations"] = 3
	}
	return &Step{ID: id, Kind: kind, Config: cfg}
}

func TestNewGraph_Valid(t *testing.T) {
	steps := []*Step{
		step("a", KindAgentCall),
		step("b", KindTransform),
	}
	conns := []Connection{
		{From: "a", FromPort: PortResponse, To: "b", ToPort: "text"},
	}

	g, err := NewGraph(steps, conns)
	require.NoError(t, err)

	assert.Len(t, g.Steps(), 2)
	assert.Len(t, g.Incoming("b"), 1)
	assert.Len(t, g.Outgoing("a"), 1)
	assert.Equal(t, []string{"b"}, g.Successors("a"))

	s, ok := g.StepByID("a")
	require.True(t, ok)
	assert.Equal(t, KindAgentCall, s.Kind)
}

func TestNewGraph_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		steps []*Step
		conns []Connection
	}{
		{
			name:  "empty step id",
			steps: []*Step{{ID: "", Kind: KindTransform}},
		},
		{
			name:  "duplicate step id",
			steps: []*Step{step("a", KindTransform), step("a", KindTransform)},
		},
		{
			name:  "unknown kind",
			steps: []*Step{{ID: "a", Kind: "teleport"}},
		},
		{
			name:  "condition without expression",
			steps: []*Step{{ID: "a", Kind: KindCondition, Config: map[string]any{}}},
		},
		{
			name:  "bounded loop without iterations",
			steps: []*Step{{ID: "a", Kind: KindBoundedLoop, Config: map[string]any{}}},
		},
		{
			name:  "bounded loop with zero iterations",
			steps: []*Step{{ID: "a", Kind: KindBoundedLoop, Config: map[string]any{"iterations": 0}}},
		},
		{
			name:  "bounded loop with negative iterations",
			steps: []*Step{{ID: "a", Kind: KindBoundedLoop, Config: map[string]any{"iterations": -2}}},
		},
		{
			name:  "connection from unknown step",
			steps: []*Step{step("a", KindTransform)},
			conns: []Connection{{From: "ghost", FromPort: "x", To: "a", ToPort: "y"}},
		},
		{
			name:  "connection to unknown step",
			steps: []*Step{step("a", KindTransform)},
			conns: []Connection{{From: "a", FromPort: PortTransformedText, To: "ghost", ToPort: "y"}},
		},
		{
			name:  "self loop",
			steps: []*Step{step("a", KindTransform)},
			conns: []Connection{{From: "a", FromPort: PortTransformedText, To: "a", ToPort: "y"}},
		},
		{
			name:  "undeclared output port",
			steps: []*Step{step("a", KindTransform), step("b", KindTransform)},
			conns: []Connection{{From: "a", FromPort: "nope", To: "b", ToPort: "y"}},
		},
		{
			name: "undeclared input port",
			steps: []*Step{
				step("a", KindTransform),
				{ID: "b", Kind: KindTransform, Inputs: []string{"text"}},
			},
			conns: []Connection{{From: "a", FromPort: PortTransformedText, To: "b", ToPort: "nope"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.steps, tt.conns)
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrValidation), "expected VALIDATION, got %v", err)
		})
	}
}

func TestNewGraph_AnalyzeOutputPortsAreOpen(t *testing.T) {
	// Analyze and generate output ports come from the collaborator, so
	// any port name is accepted on their outgoing connections.
	steps := []*Step{
		step("score", KindAnalyze),
		step("next", KindTransform),
	}
	conns := []Connection{
		{From: "score", FromPort: "sentiment", To: "next", ToPort: "text"},
	}

	_, err := NewGraph(steps, conns)
	assert.NoError(t, err)
}

func TestEffectiveOutputs(t *testing.T) {
	tests := []struct {
		kind Kind
		want []string
	}{
		{KindAgentCall, []string{PortResponse}},
		{KindGenerate, []string{PortResponse}},
		{KindTransform, []string{PortTransformedText}},
		{KindCondition, []string{PortTrue, PortFalse}},
		{KindParallelFanout, []string{PortParallelResults}},
		{KindBoundedLoop, []string{PortItems}},
	}
	for _, tt := range tests {
		s := step("s", tt.kind)
		assert.Equal(t, tt.want, s.EffectiveOutputs(), "kind %s", tt.kind)
	}

	declared := &Step{ID: "s", Kind: KindTransform, Outputs: []string{"custom"}}
	assert.Equal(t, []string{"custom"}, declared.EffectiveOutputs())
}

func TestConfigAccessors(t *testing.T) {
	s := &Step{ID: "s", Kind: KindTransform, Config: map[string]any{
		"rule":    "uppercase",
		"count":   5,
		"countF":  float64(7),
		"ratio":   0.5,
		"badInt":  1.5,
		"mistype": 42,
	}}

	assert.Equal(t, "uppercase", s.ConfigString("rule"))
	assert.Equal(t, "", s.ConfigString("mistype"))
	assert.Equal(t, "", s.ConfigString("missing"))

	n, ok := s.ConfigInt("count")
	require.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = s.ConfigInt("countF")
	require.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = s.ConfigInt("badInt")
	assert.False(t, ok)

	f, ok := s.ConfigFloat("ratio")
	require.True(t, ok)
	assert.Equal(t, 0.5, f)
}

func TestKnownKind(t *testing.T) {
	for _, k := range Kinds() {
		assert.True(t, KnownKind(k))
	}
	assert.False(t, KnownKind("teleport"))
	assert.False(t, KnownKind(""))
}
