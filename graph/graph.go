package graph

import (
	"github.com/weft-ai/weft/types"
)

// Connection directs the named output of one step into the named input
// of another.
type Connection struct {
	From     string `json:"from" yaml:"from"`
	FromPort string `json:"from_port" yaml:"from_port"`
	To       string `json:"to" yaml:"to"`
	ToPort   string `json:"to_port" yaml:"to_port"`
}

// Graph is an immutable workflow description: steps plus port-labeled
// connections. Construct with NewGraph, which validates structure;
// acyclicity is checked by the scheduler at run start.
type Graph struct {
	steps    []*Step
	byID     map[string]*Step
	conns    []Connection
	incoming map[string][]Connection
	outgoing map[string][]Connection
}

// NewGraph validates steps and connections and builds the adjacency
// indexes. It fails with a VALIDATION error on duplicate step ids,
// unknown kinds, dangling step or port references, self-loops, and
// loop steps without a finite positive bound.
func NewGraph(steps []*Step, conns []Connection) (*Graph, error) {
	g := &Graph{
		steps:    steps,
		byID:     make(map[string]*Step, len(steps)),
		conns:    conns,
		incoming: make(map[string][]Connection),
		outgoing: make(map[string][]Connection),
	}

	for _, s := range steps {
		if s.ID == "" {
			return nil, types.NewError(types.ErrValidation, "step with empty id")
		}
		if _, dup := g.byID[s.ID]; dup {
			return nil, types.Errorf(types.ErrValidation, "duplicate step id %q", s.ID)
		}
		if !KnownKind(s.Kind) {
			return nil, types.Errorf(types.ErrValidation, "unknown kind %q", s.Kind).WithStep(s.ID)
		}
		if err := validateStepConfig(s); err != nil {
			return nil, err
		}
		g.byID[s.ID] = s
	}

	for _, c := range conns {
		from, ok := g.byID[c.From]
		if !ok {
			return nil, types.Errorf(types.ErrValidation, "connection references unknown step %q", c.From)
		}
		to, ok := g.byID[c.To]
		if !ok {
			return nil, types.Errorf(types.ErrValidation, "connection references unknown step %q", c.To)
		}
		if c.From == c.To {
			return nil, types.Errorf(types.ErrValidation, "self-loop on step %q", c.From)
		}
		if !portDeclared(from.EffectiveOutputs(), c.FromPort, from.Kind) {
			return nil, types.Errorf(types.ErrValidation,
				"connection references undeclared output port %q on step %q", c.FromPort, c.From)
		}
		if len(to.Inputs) > 0 && !contains(to.Inputs, c.ToPort) {
			return nil, types.Errorf(types.ErrValidation,
				"connection references undeclared input port %q on step %q", c.ToPort, c.To)
		}
		g.incoming[c.To] = append(g.incoming[c.To], c)
		g.outgoing[c.From] = append(g.outgoing[c.From], c)
	}

	return g, nil
}

// validateStepConfig enforces the construction-time invariants the
// dispatcher relies on.
func validateStepConfig(s *Step) error {
	switch s.Kind {
	case KindCondition:
		if s.ConfigString("condition") == "" {
			return types.NewError(types.ErrValidation, "condition step requires a condition expression").WithStep(s.ID)
		}
	case KindBoundedLoop:
		n, ok := s.ConfigInt("iterations")
		if !ok || n <= 0 {
			return types.NewError(types.ErrValidation, "bounded_loop step requires a finite positive iterations bound").WithStep(s.ID)
		}
	}
	return nil
}

// portDeclared checks an output port against the step's effective
// ports. Analyze and generate outputs come from the collaborator and
// cannot be known statically, so any port name is accepted there.
func portDeclared(declared []string, port string, kind Kind) bool {
	if kind == KindAnalyze || kind == KindGenerate {
		return true
	}
	return contains(declared, port)
}

func contains(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

// Steps returns all steps in declaration order.
func (g *Graph) Steps() []*Step { return g.steps }

// StepByID retrieves a step.
func (g *Graph) StepByID(id string) (*Step, bool) {
	s, ok := g.byID[id]
	return s, ok
}

// Connections returns all connections in declaration order.
func (g *Graph) Connections() []Connection { return g.conns }

// Incoming returns the connections feeding the given step.
func (g *Graph) Incoming(stepID string) []Connection { return g.incoming[stepID] }

// Outgoing returns the connections leaving the given step.
func (g *Graph) Outgoing(stepID string) []Connection { return g.outgoing[stepID] }

// Successors returns the unique ids of steps directly downstream of
// stepID, in connection declaration order.
func (g *Graph) Successors(stepID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range g.outgoing[stepID] {
		if !seen[c.To] {
			seen[c.To] = true
			out = append(out, c.To)
		}
	}
	return out
}
