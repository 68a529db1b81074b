package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/weft-ai/weft/cache"
	"github.com/weft-ai/weft/store"
)

// The collector serves as the metrics backend for the cache and store.
var (
	_ cache.MetricsRecorder = (*Collector)(nil)
	_ store.MetricsRecorder = (*Collector)(nil)
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("weft", reg, zap.NewNop()), reg
}

func TestCollector_RecordRun(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordRun("completed", 100*time.Millisecond)
	c.RecordRun("completed", 200*time.Millisecond)
	c.RecordRun("failed", 50*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.runsTotal.WithLabelValues("failed")))
}

func TestCollector_RecordStep(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordStep("transform", "completed", time.Millisecond)
	c.RecordStep("transform", "completed", time.Millisecond)
	c.RecordStep("agent_call", "failed", time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.stepsTotal.WithLabelValues("transform", "completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.stepsTotal.WithLabelValues("agent_call", "failed")))
}

func TestCollector_RecordTokens(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordTokens(10, 25)
	c.RecordTokens(5, 5)

	assert.Equal(t, float64(15), testutil.ToFloat64(c.tokensUsed.WithLabelValues("prompt")))
	assert.Equal(t, float64(30), testutil.ToFloat64(c.tokensUsed.WithLabelValues("completion")))
}

func TestCollector_CacheCounters(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordCacheHit("run_result")
	c.RecordCacheHit("run_result")
	c.RecordCacheMiss("run_result")

	assert.Equal(t, float64(2), testutil.ToFloat64(c.cacheHits.WithLabelValues("run_result")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheMisses.WithLabelValues("run_result")))
}

func TestCollector_RegistersUnderNamespace(t *testing.T) {
	c, reg := newTestCollector(t)
	c.RecordRun("completed", time.Millisecond)
	c.RecordStoreQuery("save_run", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["weft_runs_total"])
	assert.True(t, names["weft_run_duration_seconds"])
	assert.True(t, names["weft_store_query_duration_seconds"])
}
