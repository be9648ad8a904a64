package results

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erfi/loadcompare/internal/metrics"
)

// countingLoader records how many times each file was read
type countingLoader struct {
	mu      sync.Mutex
	reads   map[string]int
	err     error
	release chan struct{}
}

func newCountingLoader() *countingLoader {
	return &countingLoader{reads: make(map[string]int)}
}

func (l *countingLoader) Parse(_ context.Context, path string) (*metrics.Aggregated, error) {
	if l.release != nil {
		<-l.release
	}

	l.mu.Lock()
	l.reads[path]++
	n := l.reads[path]
	l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}
	return &metrics.Aggregated{Requests: metrics.RequestStats{Count: float64(n)}}, nil
}

func (l *countingLoader) count(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads[path]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCache(loader Loader, config CacheConfig) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewCache(loader, config, zap.NewNop(), NewInstruments(prometheus.NewRegistry()))
	cache.now = clock.Now
	return cache, clock
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCacheHitDoesNotReread(t *testing.T) {
	loader := newCountingLoader()
	cache, clock := newTestCache(loader, DefaultCacheConfig())
	path := writeFile(t, t.TempDir(), "smoke_coordix_1.json", "{}")

	first, err := cache.Get(context.Background(), path)
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)
	second, err := cache.Get(context.Background(), path)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.count(path))
	assert.Equal(t, 1.0, testutil.ToFloat64(cache.inst.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(cache.inst.cacheMisses))
}

func TestCacheTTLExpiry(t *testing.T) {
	loader := newCountingLoader()
	cache, clock := newTestCache(loader, DefaultCacheConfig())
	path := writeFile(t, t.TempDir(), "smoke_coordix_1.json", "{}")

	_, err := cache.Get(context.Background(), path)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	agg, err := cache.Get(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, loader.count(path))
	assert.Equal(t, 2.0, agg.Requests.Count)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheModificationInvalidates(t *testing.T) {
	loader := newCountingLoader()
	cache, _ := newTestCache(loader, DefaultCacheConfig())
	path := writeFile(t, t.TempDir(), "smoke_coordix_1.json", "{}")

	_, err := cache.Get(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{}\n{}"), 0o644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	agg, err := cache.Get(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, loader.count(path))
	assert.Equal(t, 2.0, agg.Requests.Count)
}

func TestCacheEvictsOldestCreated(t *testing.T) {
	loader := newCountingLoader()
	cache, clock := newTestCache(loader, CacheConfig{TTL: time.Hour, Capacity: 3})
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("smoke_coordix_%d.json", i), "{}"))
	}

	for _, p := range paths {
		_, err := cache.Get(context.Background(), p)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	assert.Equal(t, 3, cache.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(cache.inst.cacheEvictions))

	// the newest three are still cached, the two oldest are parsed again
	for _, p := range paths[2:] {
		_, err := cache.Get(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, 1, loader.count(p), p)
	}
	_, err := cache.Get(context.Background(), paths[0])
	require.NoError(t, err)
	assert.Equal(t, 2, loader.count(paths[0]))
}

func TestCacheConcurrentMissesShareOneParse(t *testing.T) {
	loader := newCountingLoader()
	loader.release = make(chan struct{})
	cache, _ := newTestCache(loader, DefaultCacheConfig())
	path := writeFile(t, t.TempDir(), "smoke_coordix_1.json", "{}")

	var (
		wg      sync.WaitGroup
		started atomic.Int32
	)
	results := make([]*metrics.Aggregated, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Add(1)
			agg, err := cache.Get(context.Background(), path)
			assert.NoError(t, err)
			results[i] = agg
		}(i)
	}

	require.Eventually(t, func() bool { return started.Load() == 16 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(loader.release)
	wg.Wait()

	assert.Equal(t, 1, loader.count(path))
	for _, agg := range results {
		assert.Same(t, results[0], agg)
	}
}

func TestCacheLoaderErrorNotCached(t *testing.T) {
	loader := newCountingLoader()
	loader.err = errors.New("permission denied")
	cache, _ := newTestCache(loader, DefaultCacheConfig())
	path := writeFile(t, t.TempDir(), "smoke_coordix_1.json", "{}")

	_, err := cache.Get(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	loader.err = nil
	_, err = cache.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.count(path))
}

func TestCacheMissingFile(t *testing.T) {
	cache, _ := newTestCache(newCountingLoader(), DefaultCacheConfig())

	_, err := cache.Get(context.Background(), filepath.Join(t.TempDir(), "gone.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCacheCanceledCallerStillCaches(t *testing.T) {
	loader := newCountingLoader()
	loader.release = make(chan struct{})
	cache, _ := newTestCache(loader, DefaultCacheConfig())
	path := writeFile(t, t.TempDir(), "smoke_coordix_1.json", "{}")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, path)
		errc <- err
	}()

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(loader.release)
	require.Eventually(t, func() bool { return cache.Len() == 1 }, time.Second, 5*time.Millisecond)

	_, err := cache.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.count(path))
}

func TestCacheInvalidate(t *testing.T) {
	loader := newCountingLoader()
	cache, _ := newTestCache(loader, DefaultCacheConfig())
	dir := t.TempDir()
	a := writeFile(t, dir, "smoke_coordix_1.json", "{}")
	b := writeFile(t, dir, "smoke_mediatR_1.json", "{}")

	for _, p := range []string{a, b} {
		_, err := cache.Get(context.Background(), p)
		require.NoError(t, err)
	}

	cache.Invalidate(a)
	assert.Equal(t, 1, cache.Len())

	_, err := cache.Get(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.count(a))
	assert.Equal(t, 1, loader.count(b))
}
