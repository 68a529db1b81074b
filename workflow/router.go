package workflow

import (
	"github.com/weft-ai/weft/graph"
	"github.com/weft-ai/weft/types"
)

// ResolveInputs assembles the named input bundle for a step about to
// run by reading the outputs already produced by its upstream steps.
//
// A port whose upstream value is absent is simply omitted; treating a
// missing required input as an error is the dispatcher's job, not the
// router's. Values are forwarded opaquely, with no coercion.
//
// Steps with no incoming connections receive the run's initial inputs.
func ResolveInputs(step *graph.Step, rc *RunContext, g *graph.Graph, initial types.Bundle) types.Bundle {
	conns := g.Incoming(step.ID)
	if len(conns) == 0 {
		if initial == nil {
			return types.Bundle{}
		}
		return initial.Clone()
	}

	in := make(types.Bundle, len(conns))
	for _, c := range conns {
		upstream, ok := rc.Result(c.From)
		if !ok {
			continue
		}
		if v, ok := upstream[c.FromPort]; ok {
			in[c.ToPort] = v
		}
	}
	return in
}
