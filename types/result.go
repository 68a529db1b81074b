package types

import "time"

// Bundle is a set of named port values produced or consumed by a step.
// Values are forwarded opaquely; the engine performs no type coercion.
type Bundle map[string]any

// Clone returns a shallow copy of the bundle.
func (b Bundle) Clone() Bundle {
	if b == nil {
		return nil
	}
	out := make(Bundle, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// StepStatus is the lifecycle state of a step within one run.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// RunStatus is the terminal state of a workflow run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Metrics aggregates per-run counters. Durations are wall-clock.
type Metrics struct {
	StepsCompleted int                      `json:"steps_completed"`
	StepsFailed    int                      `json:"steps_failed"`
	StepDurations  map[string]time.Duration `json:"step_durations,omitempty"`
	TotalDuration  time.Duration            `json:"total_duration"`
	Tokens         TokenUsage               `json:"tokens"`
}

// RunResult is the terminal structure returned to the caller. It is
// always complete: on failure the logs, metrics, and partial results
// accumulated before the abort are still present.
type RunResult struct {
	RunID         string                `json:"run_id"`
	Status        RunStatus             `json:"status"`
	Outputs       map[string]Bundle     `json:"outputs"`
	StepStatuses  map[string]StepStatus `json:"step_statuses"`
	Logs          []LogEntry            `json:"logs"`
	Metrics       Metrics               `json:"metrics"`
	FailureReason string                `json:"failure_reason,omitempty"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
}
