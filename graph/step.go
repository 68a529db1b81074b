package graph

import (
	"fmt"
	"math"
)

// Kind is the closed set of step types understood by the dispatcher.
type Kind string

const (
	// KindAgentCall invokes a host-supplied agent collaborator with a
	// prompt and sampling parameters.
	KindAgentCall Kind = "agent_call"
	// KindTransform applies a named deterministic rule to a string input.
	KindTransform Kind = "transform"
	// KindAnalyze delegates to a host-supplied scoring collaborator.
	KindAnalyze Kind = "analyze"
	// KindGenerate delegates to a host-supplied generation collaborator.
	KindGenerate Kind = "generate"
	// KindCondition evaluates a boolean expression and emits its input
	// bundle on exactly one of two ports, "true" or "false".
	KindCondition Kind = "condition"
	// KindParallelFanout runs its immediate successors concurrently and
	// joins on all of them.
	KindParallelFanout Kind = "parallel_fanout"
	// KindBoundedLoop processes at most config "iterations" elements of
	// a collection-valued input.
	KindBoundedLoop Kind = "bounded_loop"
)

// Kinds lists every known step kind.
func Kinds() []Kind {
	return []Kind{
		KindAgentCall, KindTransform, KindAnalyze, KindGenerate,
		KindCondition, KindParallelFanout, KindBoundedLoop,
	}
}

// KnownKind reports whether k is part of the closed kind set.
func KnownKind(k Kind) bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Port names implied by a step kind when no outputs are declared.
const (
	PortResponse        = "response"
	PortTransformedText = "transformedText"
	PortTrue            = "true"
	PortFalse           = "false"
	PortParallelResults = "parallelResults"
	PortItems           = "items"
)

// Step is a single unit of work in a workflow. All fields are fixed at
// creation; the engine treats steps as read-only.
type Step struct {
	// ID uniquely identifies the step within its graph.
	ID string
	// Kind selects the dispatch handler.
	Kind Kind
	// Config carries kind-specific parameters (prompt, rule, condition
	// expression, iteration count, ...).
	Config map[string]any
	// Inputs is the ordered set of named input ports the step consumes.
	Inputs []string
	// Outputs is the ordered set of named output ports the step
	// produces on success. May be empty for kinds with implied ports.
	Outputs []string
}

// EffectiveOutputs returns the declared output ports, falling back to
// the ports implied by the step kind.
func (s *Step) EffectiveOutputs() []string {
	if len(s.Outputs) > 0 {
		return s.Outputs
	}
	switch s.Kind {
	case KindAgentCall, KindGenerate:
		return []string{PortResponse}
	case KindTransform:
		return []string{PortTransformedText}
	case KindCondition:
		return []string{PortTrue, PortFalse}
	case KindParallelFanout:
		return []string{PortParallelResults}
	case KindBoundedLoop:
		return []string{PortItems}
	default:
		return nil
	}
}

// ConfigString reads a string config value. Missing or mistyped keys
// yield "".
func (s *Step) ConfigString(key string) string {
	if v, ok := s.Config[key].(string); ok {
		return v
	}
	return ""
}

// ConfigInt reads an integer config value, accepting the numeric types
// YAML and JSON decoders produce.
func (s *Step) ConfigInt(key string) (int, bool) {
	switch v := s.Config[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

// ConfigFloat reads a float config value.
func (s *Step) ConfigFloat(key string) (float64, bool) {
	switch v := s.Config[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (s *Step) String() string {
	return fmt.Sprintf("%s(%s)", s.ID, s.Kind)
}
