package dsl

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weft-ai/weft/graph"
)

// Parser turns YAML workflow definitions into graph models.
type Parser struct{}

// NewParser creates a definition parser.
func NewParser() *Parser { return &Parser{} }

// ParseFile reads and parses a definition file.
func (p *Parser) ParseFile(path string) (*graph.Graph, *Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read definition file: %w", err)
	}
	return p.Parse(data)
}

// Parse decodes, validates, and builds the graph from YAML bytes. The
// returned Definition gives callers access to name and metadata.
func (p *Parser) Parse(data []byte) (*graph.Graph, *Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, nil, fmt.Errorf("parse YAML: %w", err)
	}

	if errs := NewValidator().Validate(&def); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, nil, fmt.Errorf("validate definition: %s", strings.Join(msgs, "; "))
	}

	vars := defaultVariables(def.Variables)
	g, err := buildGraph(&def, vars)
	if err != nil {
		return nil, nil, err
	}
	return g, &def, nil
}

// defaultVariables collects declared defaults for interpolation.
func defaultVariables(defs map[string]VariableDef) map[string]any {
	vars := make(map[string]any, len(defs))
	for name, d := range defs {
		if d.Default != nil {
			vars[name] = d.Default
		}
	}
	return vars
}

// interpolate replaces ${name} placeholders in string values.
func interpolate(s string, vars map[string]any) string {
	for name, v := range vars {
		s = strings.ReplaceAll(s, "${"+name+"}", fmt.Sprintf("%v", v))
	}
	return s
}

// buildGraph constructs the validated graph model from a definition.
func buildGraph(def *Definition, vars map[string]any) (*graph.Graph, error) {
	steps := make([]*graph.Step, 0, len(def.Steps))
	for _, sd := range def.Steps {
		config := make(map[string]any, len(sd.Config))
		for k, v := range sd.Config {
			if s, ok := v.(string); ok {
				config[k] = interpolate(s, vars)
				continue
			}
			config[k] = v
		}
		steps = append(steps, &graph.Step{
			ID:      sd.ID,
			Kind:    graph.Kind(sd.Kind),
			Config:  config,
			Inputs:  sd.Inputs,
			Outputs: sd.Outputs,
		})
	}

	conns := make([]graph.Connection, 0, len(def.Connections))
	for _, cd := range def.Connections {
		conns = append(conns, graph.Connection{
			From:     cd.From,
			FromPort: cd.FromPort,
			To:       cd.To,
			ToPort:   cd.ToPort,
		})
	}

	g, err := graph.NewGraph(steps, conns)
	if err != nil {
		return nil, fmt.Errorf("build graph %q: %w", def.Name, err)
	}
	return g, nil
}

// Marshal serializes a definition back to YAML.
func Marshal(def *Definition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	return data, nil
}
