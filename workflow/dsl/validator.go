package dsl

import (
	"fmt"

	"github.com/weft-ai/weft/graph"
)

// Validator checks a Definition for structural problems before graph
// construction, reporting every error rather than stopping at the
// first.
type Validator struct{}

// NewValidator creates a definition validator.
func NewValidator() *Validator { return &Validator{} }

// Validate returns all problems found in the definition.
func (v *Validator) Validate(def *Definition) []error {
	var errs []error

	if def.Name == "" {
		errs = append(errs, fmt.Errorf("workflow name is required"))
	}
	if len(def.Steps) == 0 {
		errs = append(errs, fmt.Errorf("workflow has no steps"))
	}

	ids := make(map[string]bool, len(def.Steps))
	for i, s := range def.Steps {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("step %d: id is required", i))
			continue
		}
		if ids[s.ID] {
			errs = append(errs, fmt.Errorf("step %q: duplicate id", s.ID))
		}
		ids[s.ID] = true

		if !graph.KnownKind(graph.Kind(s.Kind)) {
			errs = append(errs, fmt.Errorf("step %q: unknown kind %q", s.ID, s.Kind))
			continue
		}
		errs = append(errs, v.validateConfig(&s)...)
	}

	for i, c := range def.Connections {
		if c.From == "" || c.To == "" {
			errs = append(errs, fmt.Errorf("connection %d: from and to are required", i))
			continue
		}
		if !ids[c.From] {
			errs = append(errs, fmt.Errorf("connection %d: unknown step %q", i, c.From))
		}
		if !ids[c.To] {
			errs = append(errs, fmt.Errorf("connection %d: unknown step %q", i, c.To))
		}
		if c.From == c.To {
			errs = append(errs, fmt.Errorf("connection %d: self-loop on %q", i, c.From))
		}
		if c.FromPort == "" || c.ToPort == "" {
			errs = append(errs, fmt.Errorf("connection %d: from_port and to_port are required", i))
		}
	}

	for name, vd := range def.Variables {
		if vd.Required && vd.Default == nil {
			errs = append(errs, fmt.Errorf("variable %q: required but has no default and none supplied", name))
		}
	}

	return errs
}

// validateConfig applies the per-kind config requirements.
func (v *Validator) validateConfig(s *StepDef) []error {
	var errs []error
	switch graph.Kind(s.Kind) {
	case graph.KindCondition:
		if _, ok := s.Config["condition"].(string); !ok {
			errs = append(errs, fmt.Errorf("step %q: condition kind requires a condition expression", s.ID))
		}
	case graph.KindBoundedLoop:
		if !hasPositiveInt(s.Config, "iterations") {
			errs = append(errs, fmt.Errorf("step %q: bounded_loop kind requires a positive iterations bound", s.ID))
		}
	case graph.KindAgentCall, graph.KindGenerate:
		if _, ok := s.Config["prompt"].(string); !ok {
			errs = append(errs, fmt.Errorf("step %q: %s kind requires a prompt", s.ID, s.Kind))
		}
	}
	return errs
}

func hasPositiveInt(config map[string]any, key string) bool {
	switch n := config[key].(type) {
	case int:
		return n > 0
	case int64:
		return n > 0
	case float64:
		return n > 0 && n == float64(int(n))
	}
	return false
}
