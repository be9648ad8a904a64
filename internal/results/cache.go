package results

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/erfi/loadcompare/internal/metrics"
)

// Loader computes metrics for one event log
type Loader interface {
	Parse(ctx context.Context, path string) (*metrics.Aggregated, error)
}

// CacheConfig bounds the cache
type CacheConfig struct {
	TTL      time.Duration
	Capacity int
}

// DefaultCacheConfig returns a 5 minute TTL and room for 50 files
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:      5 * time.Minute,
		Capacity: 50,
	}
}

type cacheEntry struct {
	path      string
	metrics   *metrics.Aggregated
	createdAt time.Time
}

// Cache memoizes parsed metrics keyed by file path and modification time, so
// any write to a log invalidates its entry without an explicit call.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	group   singleflight.Group

	loader Loader
	config CacheConfig
	logger *zap.Logger
	inst   *Instruments
	now    func() time.Time
}

// NewCache creates a cache in front of loader
func NewCache(loader Loader, config CacheConfig, logger *zap.Logger, inst *Instruments) *Cache {
	defaults := DefaultCacheConfig()
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.Capacity <= 0 {
		config.Capacity = defaults.Capacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if inst == nil {
		inst = NewInstruments(nil)
	}

	return &Cache{
		entries: make(map[string]*cacheEntry),
		loader:  loader,
		config:  config,
		logger:  logger,
		inst:    inst,
		now:     time.Now,
	}
}

// Get returns metrics for the log at path, parsing it only when no fresh
// entry exists for its current modification time. Concurrent misses for the
// same key share one parse. If ctx ends first the parse keeps running and
// its result is still cached.
func (c *Cache) Get(ctx context.Context, path string) (*metrics.Aggregated, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat event log: %w", err)
	}
	key := cacheKey(path, info.ModTime())

	if agg, ok := c.lookup(key); ok {
		c.inst.cacheHits.Inc()
		return agg, nil
	}
	c.inst.cacheMisses.Inc()

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(loadCtx, key, path)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*metrics.Aggregated), nil
	}
}

func (c *Cache) lookup(key string) (*metrics.Aggregated, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.createdAt) >= c.config.TTL {
		return nil, false
	}
	return entry.metrics, true
}

func (c *Cache) load(ctx context.Context, key, path string) (*metrics.Aggregated, error) {
	timer := prometheus.NewTimer(c.inst.parseDuration)
	agg, err := c.loader.Parse(ctx, path)
	elapsed := timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("parsed event log",
		zap.String("file", path),
		zap.Int("durations", agg.Duration.Count),
		zap.Duration("elapsed", elapsed))

	c.store(key, path, agg)
	return agg, nil
}

func (c *Cache) store(key, path string, agg *metrics.Aggregated) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		path:      path,
		metrics:   agg,
		createdAt: c.now(),
	}

	if len(c.entries) > c.config.Capacity {
		c.evictLocked()
	}
	c.inst.cacheEntries.Set(float64(len(c.entries)))
}

// evictLocked keeps the Capacity most recently created entries. Access
// recency is not tracked.
func (c *Cache) evictLocked() {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return c.entries[keys[i]].createdAt.After(c.entries[keys[j]].createdAt)
	})

	for _, k := range keys[c.config.Capacity:] {
		delete(c.entries, k)
		c.inst.cacheEvictions.Inc()
	}
}

// Invalidate drops every entry for path regardless of modification time
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, entry := range c.entries {
		if entry.path == path {
			delete(c.entries, k)
		}
	}
	c.inst.cacheEntries.Set(float64(len(c.entries)))
}

// Len returns the number of cached entries, fresh or not
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(path string, modTime time.Time) string {
	return path + "@" + strconv.FormatInt(modTime.UnixNano(), 10)
}
