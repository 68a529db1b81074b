package workflow_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/weft-ai/weft/graph"
	"github.com/weft-ai/weft/testutil"
	"github.com/weft-ai/weft/types"
	"github.com/weft-ai/weft/workflow"
)

func TestPlanBatches_LinearChain(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Step{
			testutil.TransformStep("a", "trim"),
			testutil.TransformStep("b", "trim"),
			testutil.TransformStep("c", "trim"),
		},
		[]graph.Connection{
			testutil.Conn("a", graph.PortTransformedText, "b", "text"),
			testutil.Conn("b", graph.PortTransformedText, "c", "text"),
		},
	)

	plan, err := workflow.PlanBatches(g)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, plan)
}

func TestPlanBatches_Diamond(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Step{
			testutil.TransformStep("a", "trim"),
			testutil.TransformStep("b", "trim"),
			testutil.TransformStep("c", "trim"),
			testutil.TransformStep("d", "trim"),
		},
		[]graph.Connection{
			testutil.Conn("a", graph.PortTransformedText, "b", "text"),
			testutil.Conn("a", graph.PortTransformedText, "c", "text"),
			testutil.Conn("b", graph.PortTransformedText, "d", "left"),
			testutil.Conn("c", graph.PortTransformedText, "d", "right"),
		},
	)

	plan, err := workflow.PlanBatches(g)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, plan)
}

func TestPlanBatches_IndependentStepsKeepDeclarationOrder(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Step{
			testutil.TransformStep("z", "trim"),
			testutil.TransformStep("a", "trim"),
			testutil.TransformStep("m", "trim"),
		},
		nil,
	)

	plan, err := workflow.PlanBatches(g)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"z", "a", "m"}}, plan)
}

func TestPlanBatches_Cycle(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Step{
			testutil.TransformStep("a", "trim"),
			testutil.TransformStep("b", "trim"),
		},
		[]graph.Connection{
			testutil.Conn("a", graph.PortTransformedText, "b", "text"),
			testutil.Conn("b", graph.PortTransformedText, "a", "text"),
		},
	)

	_, err := workflow.PlanBatches(g)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCycle))
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

// Random DAGs: every step is planned exactly once, and every connection
// crosses from an earlier batch to a strictly later one.
func TestProperty_PlanBatches_RespectsDependencies(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(rt, "steps")

		steps := make([]*graph.Step, n)
		for i := 0; i < n; i++ {
			steps[i] = testutil.TransformStep(fmt.Sprintf("s%d", i), "trim")
		}

		// Edges only from lower to higher index, so the graph is acyclic
		// by construction.
		var conns []graph.Connection
		for to := 1; to < n; to++ {
			deps := rapid.IntRange(0, 2).Draw(rt, fmt.Sprintf("deps%d", to))
			for d := 0; d < deps; d++ {
				from := rapid.IntRange(0, to-1).Draw(rt, fmt.Sprintf("from%d_%d", to, d))
				conns = append(conns, testutil.Conn(
					steps[from].ID, graph.PortTransformedText,
					steps[to].ID, fmt.Sprintf("in%d", d),
				))
			}
		}

		g, err := graph.NewGraph(steps, conns)
		require.NoError(rt, err)

		plan, err := workflow.PlanBatches(g)
		require.NoError(rt, err)

		batchOf := make(map[string]int)
		for i, batch := range plan {
			for _, id := range batch {
				_, dup := batchOf[id]
				require.False(rt, dup, "step %s planned twice", id)
				batchOf[id] = i
			}
		}
		require.Len(rt, batchOf, n, "every step planned exactly once")

		for _, c := range conns {
			require.Less(rt, batchOf[c.From], batchOf[c.To],
				"connection %s->%s must cross batches forward", c.From, c.To)
		}
	})
}
