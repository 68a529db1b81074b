// Package weft provides a top-level convenience entry point for
// running workflows with minimal boilerplate.
//
// Usage:
//
//	import "github.com/weft-ai/weft"
//
//	result, err := weft.Run(ctx, yamlBytes, initial,
//		weft.WithCollaborators(myCollaborators))
//
// This is a thin wrapper around the dsl parser and the workflow
// orchestrator; use those packages directly for finer control.
package weft

import (
	"context"

	"github.com/weft-ai/weft/types"
	"github.com/weft-ai/weft/workflow"
	"github.com/weft-ai/weft/workflow/dsl"
)

// Option configures the orchestrator created by [Run].
type Option = workflow.Option

// Re-export orchestrator options so callers never need to import
// workflow/ for the common path.

// WithLogger sets the structured logger.
var WithLogger = workflow.WithLogger

// WithCollaborators supplies the host callbacks behind agent_call,
// analyze, and generate steps.
var WithCollaborators = workflow.WithCollaborators

// WithTokenCounter replaces the default tiktoken counter.
var WithTokenCounter = workflow.WithTokenCounter

// WithAgentRateLimit throttles collaborator invocations.
var WithAgentRateLimit = workflow.WithAgentRateLimit

// WithHandler registers a custom step handler.
var WithHandler = workflow.WithHandler

// WithMetricsRecorder attaches an external metrics backend.
var WithMetricsRecorder = workflow.WithMetricsRecorder

// Run parses a YAML workflow definition and executes it with the given
// initial inputs.
func Run(ctx context.Context, definition []byte, initial types.Bundle, opts ...Option) (*types.RunResult, error) {
	g, _, err := dsl.NewParser().Parse(definition)
	if err != nil {
		return nil, err
	}
	return workflow.New(opts...).Run(ctx, g, initial)
}
