package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weft-ai/weft/graph"
	"github.com/weft-ai/weft/types"
)

// RunContext is the per-run mutable state: accumulated step results,
// an append-only structured log, per-step statuses, and aggregate
// metrics. It is created fresh for each run and owned by the one
// orchestrator invocation that created it.
//
// Result writes are partitioned by step id, so concurrently running
// steps never contend on the same key; the single mutex exists for the
// shared log and counters.
type RunContext struct {
	runID     string
	startedAt time.Time

	mu       sync.Mutex
	results  map[string]types.Bundle
	statuses map[string]types.StepStatus
	logs     []types.LogEntry
	metrics  types.Metrics
}

// NewRunContext creates a run context with every step pending.
func NewRunContext(g *graph.Graph) *RunContext {
	rc := &RunContext{
		runID:     uuid.NewString(),
		startedAt: time.Now(),
		results:   make(map[string]types.Bundle),
		statuses:  make(map[string]types.StepStatus, len(g.Steps())),
		metrics: types.Metrics{
			StepDurations: make(map[string]time.Duration),
		},
	}
	for _, s := range g.Steps() {
		rc.statuses[s.ID] = types.StepPending
	}
	return rc
}

// RunID returns the unique id assigned to this run.
func (rc *RunContext) RunID() string { return rc.runID }

// SetResult stores a step's output bundle.
func (rc *RunContext) SetResult(stepID string, out types.Bundle) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.results[stepID] = out
}

// Result retrieves a step's output bundle.
func (rc *RunContext) Result(stepID string) (types.Bundle, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out, ok := rc.results[stepID]
	return out, ok
}

// SetStatus updates a step's lifecycle state.
func (rc *RunContext) SetStatus(stepID string, st types.StepStatus) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.statuses[stepID] = st
}

// Status reads a step's lifecycle state.
func (rc *RunContext) Status(stepID string) types.StepStatus {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.statuses[stepID]
}

// Log appends one entry to the run log. Safe for concurrent use.
func (rc *RunContext) Log(level types.LogLevel, stepID, message string, data map[string]any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.logs = append(rc.logs, types.LogEntry{
		Time:    time.Now(),
		Level:   level,
		StepID:  stepID,
		Message: message,
		Data:    data,
	})
}

// RecordStep accumulates a step's duration and outcome counters.
func (rc *RunContext) RecordStep(stepID string, d time.Duration, failed bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.metrics.StepDurations[stepID] = d
	if failed {
		rc.metrics.StepsFailed++
	} else {
		rc.metrics.StepsCompleted++
	}
}

// AddTokens accumulates collaborator token usage.
func (rc *RunContext) AddTokens(u types.TokenUsage) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.metrics.Tokens.Add(u)
}

// Snapshot builds the terminal RunResult from the accumulated state.
// The context is discarded afterwards; retention of logs or results is
// the host's decision.
func (rc *RunContext) Snapshot(status types.RunStatus, failureReason string) *types.RunResult {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := time.Now()
	rc.metrics.TotalDuration = now.Sub(rc.startedAt)

	outputs := make(map[string]types.Bundle, len(rc.results))
	for id, b := range rc.results {
		outputs[id] = b
	}
	statuses := make(map[string]types.StepStatus, len(rc.statuses))
	for id, st := range rc.statuses {
		statuses[id] = st
	}
	logs := make([]types.LogEntry, len(rc.logs))
	copy(logs, rc.logs)

	durations := make(map[string]time.Duration, len(rc.metrics.StepDurations))
	for id, d := range rc.metrics.StepDurations {
		durations[id] = d
	}
	metrics := rc.metrics
	metrics.StepDurations = durations

	return &types.RunResult{
		RunID:         rc.runID,
		Status:        status,
		Outputs:       outputs,
		StepStatuses:  statuses,
		Logs:          logs,
		Metrics:       metrics,
		FailureReason: failureReason,
		StartedAt:     rc.startedAt,
		FinishedAt:    now,
	}
}
