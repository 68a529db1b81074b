// Package testutil provides shared helpers for engine tests: contexts
// with automatic cleanup, step factories, and deterministic
// collaborators.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/weft-ai/weft/graph"
	"github.com/weft-ai/weft/types"
	"github.com/weft-ai/weft/workflow"
)

// TestContext returns a context with a 30 second timeout, cancelled on
// test cleanup.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext returns an already-cancelled context.
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// Step builds a step with the given id and kind.
func Step(id string, kind graph.Kind, config map[string]any) *graph.Step {
	return &graph.Step{ID: id, Kind: kind, Config: config}
}

// TransformStep builds a transform step with a rule.
func TransformStep(id, rule string) *graph.Step {
	return Step(id, graph.KindTransform, map[string]any{"rule": rule})
}

// AgentStep builds an agent_call step with a prompt.
func AgentStep(id, prompt string) *graph.Step {
	return Step(id, graph.KindAgentCall, map[string]any{"prompt": prompt})
}

// ConditionStep builds a condition step with an expression.
func ConditionStep(id, expression string) *graph.Step {
	return Step(id, graph.KindCondition, map[string]any{"condition": expression})
}

// Conn builds a connection between two step ports.
func Conn(from, fromPort, to, toPort string) graph.Connection {
	return graph.Connection{From: from, FromPort: fromPort, To: to, ToPort: toPort}
}

// MustGraph builds a graph or fails the test.
func MustGraph(t *testing.T, steps []*graph.Step, conns []graph.Connection) *graph.Graph {
	t.Helper()
	g, err := graph.NewGraph(steps, conns)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

// EchoCollaborators returns deterministic step bodies for tests. The
// agent echoes its prompt and string inputs; analyze scores input
// length; generate returns its prompt.
func EchoCollaborators() workflow.Collaborators {
	return workflow.Collaborators{
		AgentCall: func(ctx context.Context, config map[string]any, inputs types.Bundle) (string, error) {
			prompt, _ := config["prompt"].(string)
			parts := []string{prompt}
			for _, v := range inputs {
				if s, ok := v.(string); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, "|"), nil
		},
		Analyze: func(ctx context.Context, config map[string]any, inputs types.Bundle) (types.Bundle, error) {
			total := 0
			for _, v := range inputs {
				if s, ok := v.(string); ok {
					total += len(s)
				}
			}
			return types.Bundle{"score": float64(total)}, nil
		},
		Generate: func(ctx context.Context, config map[string]any, inputs types.Bundle) (string, error) {
			prompt, _ := config["prompt"].(string)
			return prompt, nil
		},
	}
}

// FailingCollaborators returns collaborators that always error.
func FailingCollaborators(msg string) workflow.Collaborators {
	fail := fmt.Errorf("%s", msg)
	return workflow.Collaborators{
		AgentCall: func(ctx context.Context, config map[string]any, inputs types.Bundle) (string, error) {
			return "", fail
		},
		Analyze: func(ctx context.Context, config map[string]any, inputs types.Bundle) (types.Bundle, error) {
			return nil, fail
		},
		Generate: func(ctx context.Context, config map[string]any, inputs types.Bundle) (string, error) {
			return "", fail
		},
	}
}
