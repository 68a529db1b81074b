package graph

import (
	"go.uber.org/zap"
)

// Builder provides a fluent API for constructing workflow graphs in
// code. Validation happens in Build via NewGraph.
type Builder struct {
	name   string
	steps  []*Step
	conns  []Connection
	logger *zap.Logger
}

// NewBuilder creates a graph builder with the given workflow name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, logger: zap.NewNop()}
}

// WithLogger sets a custom logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger.With(zap.String("component", "graph_builder"))
	return b
}

// AddStep appends a step and returns a StepBuilder for configuration.
func (b *Builder) AddStep(id string, kind Kind) *StepBuilder {
	step := &Step{ID: id, Kind: kind, Config: make(map[string]any)}
	b.steps = append(b.steps, step)
	return &StepBuilder{step: step, parent: b}
}

// Connect wires an output port of one step into an input port of
// another.
func (b *Builder) Connect(from, fromPort, to, toPort string) *Builder {
	b.conns = append(b.conns, Connection{From: from, FromPort: fromPort, To: to, ToPort: toPort})
	return b
}

// Build validates the graph and returns it.
func (b *Builder) Build() (*Graph, error) {
	g, err := NewGraph(b.steps, b.conns)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("graph built",
		zap.String("name", b.name),
		zap.Int("steps", len(b.steps)),
		zap.Int("connections", len(b.conns)),
	)
	return g, nil
}

// StepBuilder configures a single step within a Builder chain.
type StepBuilder struct {
	step   *Step
	parent *Builder
}

// WithConfig sets one config key.
func (sb *StepBuilder) WithConfig(key string, value any) *StepBuilder {
	sb.step.Config[key] = value
	return sb
}

// WithInputs declares the step's input ports in order.
func (sb *StepBuilder) WithInputs(ports ...string) *StepBuilder {
	sb.step.Inputs = ports
	return sb
}

// WithOutputs declares the step's output ports in order.
func (sb *StepBuilder) WithOutputs(ports ...string) *StepBuilder {
	sb.step.Outputs = ports
	return sb
}

// Done completes step configuration and returns to the Builder.
func (sb *StepBuilder) Done() *Builder { return sb.parent }
