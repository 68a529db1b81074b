package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/weft-ai/weft/config"
	"github.com/weft-ai/weft/types"
)

// ErrCacheMiss is returned when a run result is not cached.
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss reports whether err is a cache miss.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// keyPrefix namespaces run result keys.
const keyPrefix = "weft:run:"

// cacheType labels this cache's metrics.
const cacheType = "run_result"

// MetricsRecorder receives cache hit and miss events.
type MetricsRecorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

// Cache is a Redis-backed run result cache.
type Cache struct {
	redis      *redis.Client
	defaultTTL time.Duration
	logger     *zap.Logger
	metrics    MetricsRecorder
	mu         sync.RWMutex
	closed     bool
}

// New connects to Redis and verifies the connection.
func New(cfg config.CacheConfig, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	logger.Info("run cache connected",
		zap.String("addr", cfg.Addr),
		zap.Duration("default_ttl", ttl),
	)

	return &Cache{
		redis:      client,
		defaultTTL: ttl,
		logger:     logger.With(zap.String("component", "cache")),
	}, nil
}

// SetMetrics attaches a metrics backend for hit and miss counts.
func (c *Cache) SetMetrics(m MetricsRecorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

func (c *Cache) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(cacheType)
	}
}

func (c *Cache) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(cacheType)
	}
}

// PutResult stores a run result under its run id. A zero ttl uses the
// configured default.
func (c *Cache) PutResult(ctx context.Context, res *types.RunResult, ttl time.Duration) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("cache is closed")
	}
	if res == nil || res.RunID == "" {
		return fmt.Errorf("run result with a run id is required")
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode run result: %w", err)
	}

	if err := c.redis.Set(ctx, keyPrefix+res.RunID, data, ttl).Err(); err != nil {
		c.logger.Error("cache put failed", zap.String("run_id", res.RunID), zap.Error(err))
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// GetResult loads a cached run result. Returns ErrCacheMiss when the
// run id is not present.
func (c *Cache) GetResult(ctx context.Context, runID string) (*types.RunResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("cache is closed")
	}

	data, err := c.redis.Get(ctx, keyPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		c.recordMiss()
		return nil, ErrCacheMiss
	}
	if err != nil {
		c.logger.Error("cache get failed", zap.String("run_id", runID), zap.Error(err))
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var res types.RunResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode run result %q: %w", runID, err)
	}
	c.recordHit()
	return &res, nil
}

// Invalidate removes cached run results.
func (c *Cache) Invalidate(ctx context.Context, runIDs ...string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("cache is closed")
	}
	if len(runIDs) == 0 {
		return nil
	}

	keys := make([]string, len(runIDs))
	for i, id := range runIDs {
		keys[i] = keyPrefix + id
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("cache is closed")
	}
	return c.redis.Ping(ctx).Err()
}

// Close releases the Redis client.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info("closing run cache")
	return c.redis.Close()
}
