package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/weft-ai/weft/config"
	"github.com/weft-ai/weft/types"
)

// ErrNotFound is returned when a workflow or run does not exist.
var ErrNotFound = errors.New("record not found")

// MetricsRecorder observes store query durations by operation.
type MetricsRecorder interface {
	RecordStoreQuery(operation string, d time.Duration)
}

// Store persists workflows and run results.
type Store struct {
	db      *gorm.DB
	sqlDB   *sql.DB
	logger  *zap.Logger
	metrics MetricsRecorder
	mu      sync.RWMutex
	closed  bool
}

// Open connects to the configured database, applies pool settings, and
// migrates the schema.
func Open(cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&WorkflowRecord{}, &RunRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	logger.Info("store opened",
		zap.String("driver", cfg.Driver),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return &Store{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(zap.String("component", "store")),
	}, nil
}

// SetMetrics attaches a metrics backend for query durations.
func (s *Store) SetMetrics(m MetricsRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// observe records one query duration. Use with defer and a captured
// start time.
func (s *Store) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordStoreQuery(operation, time.Since(start))
	}
}

// SaveWorkflow inserts or updates a workflow definition.
func (s *Store) SaveWorkflow(ctx context.Context, rec *WorkflowRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.observe("save_workflow", time.Now())

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if rec.ID == "" {
		return fmt.Errorf("workflow id is required")
	}

	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("save workflow %q: %w", rec.ID, err)
	}
	return nil
}

// GetWorkflow loads a workflow definition by id.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*WorkflowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.observe("get_workflow", time.Now())

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var rec WorkflowRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow %q: %w", id, err)
	}
	return &rec, nil
}

// ListWorkflows returns stored workflows ordered by most recent update.
func (s *Store) ListWorkflows(ctx context.Context, limit int) ([]WorkflowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.observe("list_workflows", time.Now())

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if limit <= 0 {
		limit = 50
	}

	var recs []WorkflowRecord
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return recs, nil
}

// SaveRun persists a finished run result under a workflow id.
func (s *Store) SaveRun(ctx context.Context, workflowID string, res *types.RunResult) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.observe("save_run", time.Now())

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if res == nil {
		return fmt.Errorf("run result is required")
	}

	rec, err := encodeRun(workflowID, res)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("save run %q: %w", res.RunID, err)
	}
	return nil
}

// GetRun loads a run result by run id.
func (s *Store) GetRun(ctx context.Context, runID string) (*types.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.observe("get_run", time.Now())

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var rec RunRecord
	err := s.db.WithContext(ctx).First(&rec, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %q: %w", runID, err)
	}
	return decodeRun(&rec)
}

// ListRuns returns run results for a workflow, newest first.
func (s *Store) ListRuns(ctx context.Context, workflowID string, limit int) ([]*types.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.observe("list_runs", time.Now())

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if limit <= 0 {
		limit = 50
	}

	var recs []RunRecord
	err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("started_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs for %q: %w", workflowID, err)
	}

	results := make([]*types.RunResult, 0, len(recs))
	for i := range recs {
		res, err := decodeRun(&recs[i])
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// WithTransaction runs fn inside a database transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	db := s.db
	s.mu.RUnlock()

	return db.WithContext(ctx).Transaction(fn)
}

// WithTransactionRetry retries fn on transient failures with
// exponential backoff.
func (s *Store) WithTransactionRetry(ctx context.Context, maxRetries int, fn func(tx *gorm.DB) error) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := s.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return err
		}

		s.logger.Warn("transaction failed, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		backoff := time.Duration(1<<uint(i)) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("transaction failed after %d retries: %w", maxRetries, lastErr)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return s.sqlDB.PingContext(ctx)
}

// Stats reports connection pool statistics.
func (s *Store) Stats() sql.DBStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sqlDB.Stats()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("closing store")
	return s.sqlDB.Close()
}

func encodeRun(workflowID string, res *types.RunResult) (*RunRecord, error) {
	outputs, err := json.Marshal(res.Outputs)
	if err != nil {
		return nil, fmt.Errorf("encode outputs: %w", err)
	}
	statuses, err := json.Marshal(res.StepStatuses)
	if err != nil {
		return nil, fmt.Errorf("encode step statuses: %w", err)
	}
	logs, err := json.Marshal(res.Logs)
	if err != nil {
		return nil, fmt.Errorf("encode logs: %w", err)
	}
	metrics, err := json.Marshal(res.Metrics)
	if err != nil {
		return nil, fmt.Errorf("encode metrics: %w", err)
	}

	return &RunRecord{
		RunID:         res.RunID,
		WorkflowID:    workflowID,
		Status:        string(res.Status),
		Outputs:       outputs,
		StepStatuses:  statuses,
		Logs:          logs,
		Metrics:       metrics,
		FailureReason: res.FailureReason,
		StartedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
	}, nil
}

func decodeRun(rec *RunRecord) (*types.RunResult, error) {
	res := &types.RunResult{
		RunID:         rec.RunID,
		Status:        types.RunStatus(rec.Status),
		FailureReason: rec.FailureReason,
		StartedAt:     rec.StartedAt,
		FinishedAt:    rec.FinishedAt,
	}
	if err := json.Unmarshal(rec.Outputs, &res.Outputs); err != nil {
		return nil, fmt.Errorf("decode outputs for run %q: %w", rec.RunID, err)
	}
	if err := json.Unmarshal(rec.StepStatuses, &res.StepStatuses); err != nil {
		return nil, fmt.Errorf("decode step statuses for run %q: %w", rec.RunID, err)
	}
	if err := json.Unmarshal(rec.Logs, &res.Logs); err != nil {
		return nil, fmt.Errorf("decode logs for run %q: %w", rec.RunID, err)
	}
	if err := json.Unmarshal(rec.Metrics, &res.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics for run %q: %w", rec.RunID, err)
	}
	return res, nil
}

// isRetryableError reports whether a transaction error is transient.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization failure"),
		strings.Contains(msg, "40001"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "lock timeout"),
		strings.Contains(msg, "lock wait timeout"),
		strings.Contains(msg, "bad connection"):
		return true
	}
	return false
}
