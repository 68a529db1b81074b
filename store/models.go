package store

import "time"

// WorkflowRecord is a stored workflow definition. Definition holds the
// original YAML so the workflow can be re-parsed and re-run later.
type WorkflowRecord struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:255;index"`
	Description string `gorm:"size:1024"`
	Definition  []byte `gorm:"type:blob"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the GORM default.
func (WorkflowRecord) TableName() string { return "workflows" }

// RunRecord is a finished run. Outputs, StepStatuses, Logs, and
// Metrics are JSON-encoded snapshots of the run result.
type RunRecord struct {
	RunID         string `gorm:"primaryKey;size:64"`
	WorkflowID    string `gorm:"size:64;index"`
	Status        string `gorm:"size:32;index"`
	Outputs       []byte `gorm:"type:blob"`
	StepStatuses  []byte `gorm:"type:blob"`
	Logs          []byte `gorm:"type:blob"`
	Metrics       []byte `gorm:"type:blob"`
	FailureReason string `gorm:"size:2048"`
	StartedAt     time.Time
	FinishedAt    time.Time
	CreatedAt     time.Time
}

// TableName overrides the GORM default.
func (RunRecord) TableName() string { return "runs" }
