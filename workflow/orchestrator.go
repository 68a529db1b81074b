package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/weft-ai/weft/graph"
	"github.com/weft-ai/weft/types"
)

// MetricsRecorder receives engine events for an external metrics
// backend. All methods must be safe for concurrent use.
type MetricsRecorder interface {
	RecordRun(status string, d time.Duration)
	RecordStep(kind, status string, d time.Duration)
	RecordTokens(prompt, completion int)
}

// Orchestrator drives workflow runs: it plans batches, resolves step
// inputs, dispatches handlers, and enforces fail-fast semantics. One
// orchestrator may serve many concurrent runs; per-run state lives in
// the RunContext.
type Orchestrator struct {
	logger   *zap.Logger
	registry *Registry
	collab   Collaborators
	counter  TokenCounter
	limiter  *rate.Limiter
	tracer   trace.Tracer
	recorder MetricsRecorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger.With(zap.String("component", "orchestrator"))
	}
}

// WithCollaborators supplies the host callbacks behind agent_call,
// analyze, and generate steps.
func WithCollaborators(c Collaborators) Option {
	return func(o *Orchestrator) { o.collab = c }
}

// WithTokenCounter replaces the default tiktoken counter.
func WithTokenCounter(c TokenCounter) Option {
	return func(o *Orchestrator) { o.counter = c }
}

// WithAgentRateLimit throttles agent_call and generate collaborator
// invocations.
func WithAgentRateLimit(limit rate.Limit, burst int) Option {
	return func(o *Orchestrator) { o.limiter = rate.NewLimiter(limit, burst) }
}

// WithHandler registers a handler, either for an additional kind or to
// override a builtin.
func WithHandler(kind graph.Kind, h Handler) Option {
	return func(o *Orchestrator) { o.registry.Register(kind, h) }
}

// WithMetricsRecorder attaches an external metrics backend.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// New creates an orchestrator with the builtin handlers registered.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   zap.NewNop(),
		registry: NewRegistry(),
		counter:  NewTiktokenCounter(""),
		tracer:   otel.Tracer("github.com/weft-ai/weft/workflow"),
	}
	o.registerBuiltins()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the graph with the given initial inputs and returns the
// terminal RunResult.
//
// Validation and cycle errors are returned before any step executes,
// with a nil result. Once execution starts the caller always receives
// a complete RunResult; on failure it carries the logs, metrics, and
// partial results accumulated before the abort, with the cause in
// FailureReason. The engine performs no retries.
func (o *Orchestrator) Run(ctx context.Context, g *graph.Graph, initial types.Bundle) (*types.RunResult, error) {
	if g == nil {
		return nil, types.NewError(types.ErrValidation, "graph is nil")
	}

	plan, err := PlanBatches(g)
	if err != nil {
		return nil, err
	}
	if err := validateFanoutSchedule(g, plan); err != nil {
		return nil, err
	}

	rc := NewRunContext(g)
	ctx, span := o.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("run.id", rc.RunID()),
			attribute.Int("run.steps", len(g.Steps())),
			attribute.Int("run.batches", len(plan)),
		))
	defer span.End()

	o.logger.Info("run started",
		zap.String("run_id", rc.RunID()),
		zap.Int("steps", len(g.Steps())),
		zap.Int("batches", len(plan)),
	)
	rc.Log(types.LevelInfo, "", "run started", map[string]any{"batches": len(plan)})

	start := time.Now()
	for i, batch := range plan {
		if err := o.runBatch(ctx, g, rc, batch, initial); err != nil {
			// Fail fast: no further batches execute.
			reason := o.failureReason(ctx, err)
			rc.Log(types.LevelError, "", "run aborted", map[string]any{
				"batch": i, "reason": reason,
			})
			o.logger.Error("run failed",
				zap.String("run_id", rc.RunID()),
				zap.Int("batch", i),
				zap.Error(err),
			)
			o.recordRun(string(types.RunFailed), time.Since(start))
			return rc.Snapshot(types.RunFailed, reason), nil
		}
	}

	rc.Log(types.LevelInfo, "", "run completed", nil)
	o.logger.Info("run completed",
		zap.String("run_id", rc.RunID()),
		zap.Duration("duration", time.Since(start)),
	)
	o.recordRun(string(types.RunCompleted), time.Since(start))
	return rc.Snapshot(types.RunCompleted, ""), nil
}

// runBatch executes one batch concurrently and waits for all of its
// steps (barrier between batches). Steps already completed by a fanout
// parent are skipped.
func (o *Orchestrator) runBatch(ctx context.Context, g *graph.Graph, rc *RunContext, batch []string, initial types.Bundle) error {
	eg, egCtx := errgroup.WithContext(ctx)
	for _, id := range batch {
		if rc.Status(id) == types.StepCompleted {
			continue
		}
		step, _ := g.StepByID(id)
		eg.Go(func() error {
			return o.runStep(egCtx, g, rc, step, initial)
		})
	}
	return eg.Wait()
}

// runStep executes a single step end to end: status transition, input
// resolution, dispatch, result storage, logging, and metrics.
func (o *Orchestrator) runStep(ctx context.Context, g *graph.Graph, rc *RunContext, step *graph.Step, initial types.Bundle) error {
	ctx, span := o.tracer.Start(ctx, "workflow.step",
		trace.WithAttributes(
			attribute.String("step.id", step.ID),
			attribute.String("step.kind", string(step.Kind)),
		))
	defer span.End()

	rc.SetStatus(step.ID, types.StepRunning)
	rc.Log(types.LevelInfo, step.ID, "step started", map[string]any{"kind": string(step.Kind)})

	inputs := ResolveInputs(step, rc, g, initial)

	start := time.Now()
	var (
		out types.Bundle
		err error
	)
	if step.Kind == graph.KindParallelFanout {
		out, err = o.runFanout(ctx, g, rc, step, initial)
	} else {
		handler, ok := o.registry.Handler(step.Kind)
		if !ok {
			err = fmt.Errorf("no handler registered for kind %q", step.Kind)
		} else {
			out, err = handler(ctx, step, inputs, rc)
		}
	}
	duration := time.Since(start)

	if err != nil {
		rc.SetStatus(step.ID, types.StepFailed)
		rc.RecordStep(step.ID, duration, true)
		rc.Log(types.LevelError, step.ID, "step failed", map[string]any{
			"error": err.Error(), "duration_ms": duration.Milliseconds(),
		})
		o.recordStep(string(step.Kind), "failed", duration)
		span.RecordError(err)
		return types.Errorf(types.ErrStepExecution, "step execution failed").
			WithStep(step.ID).WithCause(err)
	}

	rc.SetResult(step.ID, out)
	rc.SetStatus(step.ID, types.StepCompleted)
	rc.RecordStep(step.ID, duration, false)
	rc.Log(types.LevelInfo, step.ID, "step completed", map[string]any{
		"duration_ms": duration.Milliseconds(),
	})
	o.recordStep(string(step.Kind), "completed", duration)
	return nil
}

// validateFanoutSchedule rejects graphs where a fanout child reads from
// a step planned in the fanout's own batch or later. Children execute
// during the fanout's batch, ahead of their scheduled position, so
// every input they consume besides the fanout's own output must come
// from a strictly earlier batch.
func validateFanoutSchedule(g *graph.Graph, plan [][]string) error {
	batchOf := make(map[string]int, len(g.Steps()))
	for i, batch := range plan {
		for _, id := range batch {
			batchOf[id] = i
		}
	}

	for _, step := range g.Steps() {
		if step.Kind != graph.KindParallelFanout {
			continue
		}
		for _, childID := range g.Successors(step.ID) {
			for _, conn := range g.Incoming(childID) {
				if conn.From == step.ID {
					continue
				}
				if batchOf[conn.From] >= batchOf[step.ID] {
					return types.Errorf(types.ErrValidation,
						"fanout child %q reads from %q, which is not scheduled before fanout %q",
						childID, conn.From, step.ID).WithStep(step.ID)
				}
			}
		}
	}
	return nil
}

// runFanout executes the fanout step's immediate successors
// concurrently, each with a fresh copy of its own resolved inputs, and
// joins on completion of all of them. Any child failure fails the
// fanout (and therefore the run); children that completed keep their
// results in the context. Children may read from steps in batches
// strictly before the fanout's; validateFanoutSchedule rejects
// anything else before execution starts.
func (o *Orchestrator) runFanout(ctx context.Context, g *graph.Graph, rc *RunContext, step *graph.Step, initial types.Bundle) (types.Bundle, error) {
	children := g.Successors(step.ID)
	if len(children) == 0 {
		return types.Bundle{graph.PortParallelResults: map[string]types.Bundle{}}, nil
	}

	// Wait-all: every child runs to completion even when a sibling
	// fails, so completed siblings keep their results.
	var wg sync.WaitGroup
	errs := make([]error, len(children))
	for i, childID := range children {
		child, ok := g.StepByID(childID)
		if !ok {
			return nil, fmt.Errorf("fanout child not found: %s", childID)
		}
		wg.Add(1)
		go func(i int, child *graph.Step) {
			defer wg.Done()
			errs[i] = o.runStep(ctx, g, rc, child, initial)
		}(i, child)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fanout child %s: %w", children[i], err)
		}
	}

	results := make(map[string]types.Bundle, len(children))
	for _, childID := range children {
		if res, ok := rc.Result(childID); ok {
			results[childID] = res
		}
	}
	return types.Bundle{graph.PortParallelResults: results}, nil
}

// failureReason distinguishes host cancellation from step failure.
func (o *Orchestrator) failureReason(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return types.NewError(types.ErrCancelled, "run cancelled by host").WithCause(ctx.Err()).Error()
	}
	return err.Error()
}

func (o *Orchestrator) recordRun(status string, d time.Duration) {
	if o.recorder != nil {
		o.recorder.RecordRun(status, d)
	}
}

func (o *Orchestrator) recordStep(kind, status string, d time.Duration) {
	if o.recorder != nil {
		o.recorder.RecordStep(kind, status, d)
	}
}

func (o *Orchestrator) recordTokens(u types.TokenUsage) {
	if o.recorder != nil {
		o.recorder.RecordTokens(u.PromptTokens, u.CompletionTokens)
	}
}
