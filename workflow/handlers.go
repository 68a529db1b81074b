package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/weft-ai/weft/graph"
	"github.com/weft-ai/weft/types"
	"github.com/weft-ai/weft/workflow/expr"
)

// registerBuiltins installs the handlers for the closed kind set.
// parallel_fanout is driven by the orchestrator itself because it
// needs to execute other steps of the graph.
func (o *Orchestrator) registerBuiltins() {
	o.registry.Register(graph.KindAgentCall, o.agentCallHandler)
	o.registry.Register(graph.KindTransform, transformHandler)
	o.registry.Register(graph.KindAnalyze, o.analyzeHandler)
	o.registry.Register(graph.KindGenerate, o.generateHandler)
	o.registry.Register(graph.KindCondition, conditionHandler)
	o.registry.Register(graph.KindBoundedLoop, boundedLoopHandler)
}

// primaryInput picks the step's single consumed value: the first
// declared input port present in the bundle, or the only value when
// exactly one was routed.
func primaryInput(step *graph.Step, in types.Bundle) (any, bool) {
	for _, port := range step.Inputs {
		if v, ok := in[port]; ok {
			return v, true
		}
	}
	if len(in) == 1 {
		for _, v := range in {
			return v, true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// agent_call / analyze / generate: collaborator-backed kinds
// ---------------------------------------------------------------------------

// buildPrompt joins the configured prompt with the string input values
// in declared port order.
func buildPrompt(step *graph.Step, in types.Bundle) string {
	parts := []string{}
	if p := step.ConfigString("prompt"); p != "" {
		parts = append(parts, p)
	}
	for _, port := range step.Inputs {
		if s, ok := in[port].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	if len(step.Inputs) == 0 {
		for _, v := range in {
			if s, ok := v.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// waitLimiter blocks on the agent rate limiter when one is configured.
func (o *Orchestrator) waitLimiter(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}

func (o *Orchestrator) agentCallHandler(ctx context.Context, step *graph.Step, in types.Bundle, rc *RunContext) (types.Bundle, error) {
	if o.collab.AgentCall == nil {
		return nil, fmt.Errorf("no agent collaborator configured")
	}
	if err := o.waitLimiter(ctx); err != nil {
		return nil, err
	}

	prompt := buildPrompt(step, in)
	response, err := o.collab.AgentCall(ctx, step.Config, in)
	if err != nil {
		return nil, err
	}

	usage := tokenUsage(o.counter, prompt, response)
	rc.AddTokens(usage)
	o.recordTokens(usage)
	return types.Bundle{graph.PortResponse: response}, nil
}

func (o *Orchestrator) analyzeHandler(ctx context.Context, step *graph.Step, in types.Bundle, rc *RunContext) (types.Bundle, error) {
	if o.collab.Analyze == nil {
		return nil, fmt.Errorf("no analyze collaborator configured")
	}
	return o.collab.Analyze(ctx, step.Config, in)
}

func (o *Orchestrator) generateHandler(ctx context.Context, step *graph.Step, in types.Bundle, rc *RunContext) (types.Bundle, error) {
	if o.collab.Generate == nil {
		return nil, fmt.Errorf("no generate collaborator configured")
	}
	if err := o.waitLimiter(ctx); err != nil {
		return nil, err
	}

	prompt := buildPrompt(step, in)
	text, err := o.collab.Generate(ctx, step.Config, in)
	if err != nil {
		return nil, err
	}

	usage := tokenUsage(o.counter, prompt, text)
	rc.AddTokens(usage)
	o.recordTokens(usage)
	port := step.EffectiveOutputs()[0]
	return types.Bundle{port: text}, nil
}

func tokenUsage(counter TokenCounter, prompt, completion string) types.TokenUsage {
	p := counter.Count(prompt)
	c := counter.Count(completion)
	return types.TokenUsage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c}
}

// ---------------------------------------------------------------------------
// transform: deterministic string rules
// ---------------------------------------------------------------------------

// applyTransformRule applies a named rule. Unknown rules fall back to
// identity.
func applyTransformRule(rule, text string) string {
	switch rule {
	case "uppercase":
		return strings.ToUpper(text)
	case "lowercase":
		return strings.ToLower(text)
	case "reverse":
		runes := []rune(text)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	case "trim":
		return strings.TrimSpace(text)
	default:
		return text
	}
}

func transformHandler(_ context.Context, step *graph.Step, in types.Bundle, _ *RunContext) (types.Bundle, error) {
	v, ok := primaryInput(step, in)
	if !ok {
		return nil, fmt.Errorf("missing required input")
	}
	text, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("transform input must be a string, got %T", v)
	}

	out := applyTransformRule(step.ConfigString("rule"), text)
	port := step.EffectiveOutputs()[0]
	return types.Bundle{port: out}, nil
}

// ---------------------------------------------------------------------------
// condition: boolean routing over a closed expression grammar
// ---------------------------------------------------------------------------

// conditionHandler evaluates config "condition" against the input port
// bindings and emits the full input bundle on exactly one of the two
// output ports, never both, never neither.
func conditionHandler(_ context.Context, step *graph.Step, in types.Bundle, _ *RunContext) (types.Bundle, error) {
	vars := make(map[string]any, len(in))
	for k, v := range in {
		vars[k] = v
	}

	result, err := expr.Evaluate(step.ConfigString("condition"), vars)
	if err != nil {
		return nil, fmt.Errorf("evaluate condition: %w", err)
	}

	port := graph.PortFalse
	if result {
		port = graph.PortTrue
	}
	return types.Bundle{port: in.Clone()}, nil
}

// ---------------------------------------------------------------------------
// bounded_loop: finite iteration over a collection input
// ---------------------------------------------------------------------------

// boundedLoopHandler processes at most min(iterations, len(collection))
// elements, one output item per processed element. The bound is
// validated at graph construction, so it is always finite here.
func boundedLoopHandler(_ context.Context, step *graph.Step, in types.Bundle, _ *RunContext) (types.Bundle, error) {
	v, ok := primaryInput(step, in)
	if !ok {
		return nil, fmt.Errorf("missing required collection input")
	}
	items, err := asCollection(v)
	if err != nil {
		return nil, err
	}

	bound, _ := step.ConfigInt("iterations")
	if bound > len(items) {
		bound = len(items)
	}

	rule := step.ConfigString("rule")
	out := make([]any, 0, bound)
	for i := 0; i < bound; i++ {
		if s, ok := items[i].(string); ok {
			out = append(out, applyTransformRule(rule, s))
			continue
		}
		out = append(out, items[i])
	}

	port := step.EffectiveOutputs()[0]
	return types.Bundle{port: out}, nil
}

func asCollection(v any) ([]any, error) {
	switch c := v.(type) {
	case []any:
		return c, nil
	case []string:
		out := make([]any, len(c))
		for i, s := range c {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("bounded_loop input must be a collection, got %T", v)
	}
}
