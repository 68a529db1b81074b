package dsl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ai/weft/graph"
)

const pipelineYAML = `
version: "1"
name: review-pipeline
description: draft, shout, and gate a response
variables:
  topic:
    type: string
    default: testing
steps:
  - id: draft
    kind: agent_call
    config:
      prompt: "write about ${topic}"
  - id: shout
    kind: transform
    config:
      rule: uppercase
    inputs: [text]
  - id: gate
    kind: condition
    config:
      condition: "text != \"\""
    inputs: [text]
connections:
  - from: draft
    from_port: response
    to: shout
    to_port: text
  - from: shout
    from_port: transformedText
    to: gate
    to_port: text
`

func TestParse(t *testing.T) {
	g, def, err := NewParser().Parse([]byte(pipelineYAML))
	require.NoError(t, err)

	assert.Equal(t, "review-pipeline", def.Name)
	assert.Equal(t, "1", def.Version)
	assert.Len(t, g.Steps(), 3)
	assert.Len(t, g.Connections(), 2)

	draft, ok := g.StepByID("draft")
	require.True(t, ok)
	assert.Equal(t, graph.KindAgentCall, draft.Kind)
	assert.Equal(t, "write about testing", draft.ConfigString("prompt"),
		"variable defaults interpolate into string config values")

	shout, ok := g.StepByID("shout")
	require.True(t, ok)
	assert.Equal(t, []string{"text"}, shout.Inputs)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipelineYAML), 0o644))

	g, def, err := NewParser().ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "review-pipeline", def.Name)
	assert.Len(t, g.Steps(), 3)

	_, _, err = NewParser().ParseFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, _, err := NewParser().Parse([]byte("steps: [unclosed"))
	assert.Error(t, err)
}

func TestParse_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "steps:\n  - id: a\n    kind: transform\n",
			want: "name is required",
		},
		{
			name: "no steps",
			yaml: "name: empty\n",
			want: "no steps",
		},
		{
			name: "unknown kind",
			yaml: "name: w\nsteps:\n  - id: a\n    kind: teleport\n",
			want: "unknown kind",
		},
		{
			name: "duplicate id",
			yaml: "name: w\nsteps:\n  - id: a\n    kind: transform\n  - id: a\n    kind: transform\n",
			want: "duplicate id",
		},
		{
			name: "condition without expression",
			yaml: "name: w\nsteps:\n  - id: a\n    kind: condition\n",
			want: "condition expression",
		},
		{
			name: "loop without bound",
			yaml: "name: w\nsteps:\n  - id: a\n    kind: bounded_loop\n",
			want: "positive iterations",
		},
		{
			name: "connection to unknown step",
			yaml: "name: w\nsteps:\n  - id: a\n    kind: transform\nconnections:\n  - from: a\n    from_port: transformedText\n    to: ghost\n    to_port: x\n",
			want: "unknown step",
		},
		{
			name: "self loop",
			yaml: "name: w\nsteps:\n  - id: a\n    kind: transform\nconnections:\n  - from: a\n    from_port: transformedText\n    to: a\n    to_port: x\n",
			want: "self-loop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewParser().Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	def := &Definition{
		Steps: []StepDef{
			{ID: "a", Kind: "teleport"},
			{ID: "a", Kind: "transform"},
		},
	}

	errs := NewValidator().Validate(def)
	require.GreaterOrEqual(t, len(errs), 3, "name, unknown kind, and duplicate id are all reported")
}

func TestValidate_RequiredVariableNeedsDefault(t *testing.T) {
	def := &Definition{
		Name: "w",
		Variables: map[string]VariableDef{
			"topic": {Type: "string", Required: true},
		},
		Steps: []StepDef{
			{ID: "a", Kind: "transform"},
		},
	}

	errs := NewValidator().Validate(def)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "topic")
}

func TestInterpolate(t *testing.T) {
	vars := map[string]any{"name": "weft", "count": 3}
	assert.Equal(t, "hello weft x3", interpolate("hello ${name} x${count}", vars))
	assert.Equal(t, "no placeholders", interpolate("no placeholders", vars))
	assert.Equal(t, "${unknown} stays", interpolate("${unknown} stays", vars))
}

func TestMarshal_RoundTrip(t *testing.T) {
	_, def, err := NewParser().Parse([]byte(pipelineYAML))
	require.NoError(t, err)

	data, err := Marshal(def)
	require.NoError(t, err)

	g2, def2, err := NewParser().Parse(data)
	require.NoError(t, err)
	assert.Equal(t, def.Name, def2.Name)
	assert.Len(t, g2.Steps(), 3)
}
