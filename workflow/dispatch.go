package workflow

import (
	"context"

	"github.com/weft-ai/weft/graph"
	"github.com/weft-ai/weft/types"
)

// Handler executes a single step of one kind: it receives the step,
// its resolved input bundle, and the run context, and returns the
// named output bundle. Handlers run concurrently with other steps of
// the same batch and must not share mutable state outside the context.
type Handler func(ctx context.Context, step *graph.Step, inputs types.Bundle, rc *RunContext) (types.Bundle, error)

// AgentFunc is the host-supplied collaborator behind agent_call steps.
// The engine never hard-codes a model call; it passes the step config
// (prompt, sampling parameters) and inputs through.
type AgentFunc func(ctx context.Context, config map[string]any, inputs types.Bundle) (string, error)

// AnalyzeFunc is the host-supplied scoring collaborator behind analyze
// steps. It returns a full output bundle so hosts control port names.
type AnalyzeFunc func(ctx context.Context, config map[string]any, inputs types.Bundle) (types.Bundle, error)

// GenerateFunc is the host-supplied generation collaborator behind
// generate steps.
type GenerateFunc func(ctx context.Context, config map[string]any, inputs types.Bundle) (string, error)

// Collaborators bundles the pluggable step bodies a host may supply.
// A nil collaborator makes the corresponding step kind fail at
// dispatch time.
type Collaborators struct {
	AgentCall AgentFunc
	Analyze   AnalyzeFunc
	Generate  GenerateFunc
}

// Registry maps step kinds to handlers. The builtin kinds are
// registered by the orchestrator; hosts may register additional kinds
// without touching the scheduler or the driver.
type Registry struct {
	handlers map[graph.Kind]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[graph.Kind]Handler)}
}

// Register installs (or replaces) the handler for a kind.
func (r *Registry) Register(kind graph.Kind, h Handler) {
	r.handlers[kind] = h
}

// Handler looks up the handler for a kind.
func (r *Registry) Handler(kind graph.Kind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}
