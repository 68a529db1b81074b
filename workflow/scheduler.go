package workflow

import (
	"strings"

	"github.com/weft-ai/weft/graph"
	"github.com/weft-ai/weft/types"
)

// PlanBatches computes a dependency-respecting execution plan using
// Kahn's algorithm. Each batch holds steps whose dependencies are all
// satisfied by earlier batches, so steps within a batch may run
// concurrently. Ties within a batch keep graph declaration order so
// plans are reproducible.
//
// A graph with a cycle yields a CYCLE error naming the unresolved
// steps; no step execution happens in that case.
func PlanBatches(g *graph.Graph) ([][]string, error) {
	indegree := make(map[string]int, len(g.Steps()))
	for _, s := range g.Steps() {
		indegree[s.ID] = 0
	}
	for _, c := range g.Connections() {
		indegree[c.To]++
	}

	scheduled := make(map[string]bool, len(g.Steps()))
	remaining := len(g.Steps())
	var plan [][]string

	for remaining > 0 {
		var batch []string
		for _, s := range g.Steps() {
			if !scheduled[s.ID] && indegree[s.ID] == 0 {
				batch = append(batch, s.ID)
			}
		}
		if len(batch) == 0 {
			var stuck []string
			for _, s := range g.Steps() {
				if !scheduled[s.ID] {
					stuck = append(stuck, s.ID)
				}
			}
			return nil, types.Errorf(types.ErrCycle,
				"graph contains a cycle; unresolved steps: %s", strings.Join(stuck, ", "))
		}
		for _, id := range batch {
			scheduled[id] = true
			remaining--
			for _, c := range g.Outgoing(id) {
				indegree[c.To]--
			}
		}
		plan = append(plan, batch)
	}

	return plan, nil
}
