package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/weft-ai/weft/config"
	"github.com/weft-ai/weft/types"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	c, err := New(config.CacheConfig{
		Addr:       mr.Addr(),
		DefaultTTL: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func sampleResult(runID string) *types.RunResult {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.RunResult{
		RunID:  runID,
		Status: types.RunCompleted,
		Outputs: map[string]types.Bundle{
			"shout": {"transformedText": "HI"},
		},
		StepStatuses: map[string]types.StepStatus{"shout": types.StepCompleted},
		Metrics: types.Metrics{
			StepsCompleted: 1,
			StepDurations:  map[string]time.Duration{"shout": time.Millisecond},
		},
		StartedAt:  now,
		FinishedAt: now,
	}
}

func TestCache_PutAndGetResult(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	want := sampleResult("run-1")
	require.NoError(t, c.PutResult(ctx, want, 0))

	got, err := c.GetResult(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, "HI", got.Outputs["shout"]["transformedText"])
	assert.Equal(t, 1, got.Metrics.StepsCompleted)
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.GetResult(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.True(t, IsCacheMiss(err))
}

func TestCache_TTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutResult(ctx, sampleResult("run-1"), 30*time.Second))

	mr.FastForward(time.Minute)

	_, err := c.GetResult(ctx, "run-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutResult(ctx, sampleResult("run-1"), 0))
	require.NoError(t, c.PutResult(ctx, sampleResult("run-2"), 0))

	require.NoError(t, c.Invalidate(ctx, "run-1"))

	_, err := c.GetResult(ctx, "run-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.GetResult(ctx, "run-2")
	assert.NoError(t, err)

	assert.NoError(t, c.Invalidate(ctx), "empty invalidate is a no-op")
}

func TestCache_PutRequiresRunID(t *testing.T) {
	c, _ := newTestCache(t)

	assert.Error(t, c.PutResult(context.Background(), nil, 0))
	assert.Error(t, c.PutResult(context.Background(), &types.RunResult{}, 0))
}

func TestCache_ClosedRejectsOperations(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")

	ctx := context.Background()
	assert.Error(t, c.PutResult(ctx, sampleResult("r"), 0))
	_, err := c.GetResult(ctx, "r")
	assert.Error(t, err)
	assert.Error(t, c.Ping(ctx))
}

type countingRecorder struct {
	hits   int
	misses int
}

func (r *countingRecorder) RecordCacheHit(string)  { r.hits++ }
func (r *countingRecorder) RecordCacheMiss(string) { r.misses++ }

func TestCache_MetricsHitAndMiss(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	rec := &countingRecorder{}
	c.SetMetrics(rec)

	_, err := c.GetResult(ctx, "absent")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.PutResult(ctx, sampleResult("run-1"), 0))
	_, err = c.GetResult(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestNew_ConnectFailure(t *testing.T) {
	_, err := New(config.CacheConfig{Addr: "127.0.0.1:1"}, zap.NewNop())
	assert.Error(t, err)
}
