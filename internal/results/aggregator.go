package results

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erfi/loadcompare/internal/metrics"
)

// ErrUnknownScenario is returned for scenarios outside the configured set
var ErrUnknownScenario = errors.New("unknown scenario")

// Source resolves an event log path to metrics, normally a *Cache
type Source interface {
	Get(ctx context.Context, path string) (*metrics.Aggregated, error)
}

// Options configures an Aggregator
type Options struct {
	Targets     []string
	Scenarios   []string
	Logger      *zap.Logger
	Instruments *Instruments
}

// Aggregator fans metric lookups out over targets and scenarios and folds
// the results into maps, reporting progress as each lookup completes.
type Aggregator struct {
	locator   *Locator
	source    Source
	targets   []string
	scenarios []string
	logger    *zap.Logger
	inst      *Instruments
	now       func() time.Time
}

// NewAggregator creates an aggregator over locator and source
func NewAggregator(locator *Locator, source Source, opts Options) *Aggregator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Instruments == nil {
		opts.Instruments = NewInstruments(nil)
	}

	return &Aggregator{
		locator:   locator,
		source:    source,
		targets:   slices.Clone(opts.Targets),
		scenarios: slices.Clone(opts.Scenarios),
		logger:    opts.Logger,
		inst:      opts.Instruments,
		now:       time.Now,
	}
}

// Targets returns the configured target keys in display order
func (a *Aggregator) Targets() []string {
	return slices.Clone(a.targets)
}

// Scenarios returns the configured scenario names
func (a *Aggregator) Scenarios() []string {
	return slices.Clone(a.scenarios)
}

// HasScenario reports whether scenario is configured
func (a *Aggregator) HasScenario(scenario string) bool {
	return slices.Contains(a.scenarios, scenario)
}

// Scenario loads every target of one scenario concurrently. emit, if not
// nil, receives a snapshot after each successful target; calls are
// serialized and each snapshot holds one more target than the last. The
// returned final snapshot contains every target that could be resolved.
func (a *Aggregator) Scenario(ctx context.Context, scenario string, emit func(ScenarioSnapshot)) (ScenarioSnapshot, error) {
	if !a.HasScenario(scenario) {
		return ScenarioSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownScenario, scenario)
	}

	names, err := a.locator.List()
	if err != nil {
		return ScenarioSnapshot{}, err
	}
	files := a.resolve(names, scenario)

	var mu sync.Mutex
	results := make(ScenarioResults, len(files))

	a.fanOut(ctx, files, func(f ResultFile, tm metrics.TargetMetrics) {
		mu.Lock()
		defer mu.Unlock()

		results[f.Target] = tm
		if emit == nil {
			return
		}
		emit(ScenarioSnapshot{
			Scenario: scenario,
			Results:  results.clone(),
			Progress: &Progress{
				Processed: len(results),
				Total:     len(files),
				Completed: len(results) == len(files),
			},
			Timestamp: a.now().UTC(),
		})
	})

	final := ScenarioSnapshot{
		Scenario:  scenario,
		Results:   results,
		Timestamp: a.now().UTC(),
	}
	return final, ctx.Err()
}

// All loads every (scenario, target) pair that has a result file, all at
// once, with the same snapshot contract as Scenario.
func (a *Aggregator) All(ctx context.Context, emit func(AllSnapshot)) (AllSnapshot, error) {
	names, err := a.locator.List()
	if err != nil {
		return AllSnapshot{}, err
	}

	var files []ResultFile
	for _, scenario := range a.scenarios {
		files = append(files, a.resolve(names, scenario)...)
	}

	var mu sync.Mutex
	results := make(AllResults)

	a.fanOut(ctx, files, func(f ResultFile, tm metrics.TargetMetrics) {
		mu.Lock()
		defer mu.Unlock()

		if results[f.Scenario] == nil {
			results[f.Scenario] = make(ScenarioResults)
		}
		results[f.Scenario][f.Target] = tm
		if emit == nil {
			return
		}
		processed := results.count()
		emit(AllSnapshot{
			Results: results.clone(),
			Progress: &Progress{
				Processed: processed,
				Total:     len(files),
				Completed: processed == len(files),
			},
			Timestamp: a.now().UTC(),
		})
	})

	final := AllSnapshot{
		Results:   results,
		Timestamp: a.now().UTC(),
	}
	return final, ctx.Err()
}

// resolve returns the latest file for each configured target of scenario
func (a *Aggregator) resolve(names []string, scenario string) []ResultFile {
	var files []ResultFile
	for _, target := range a.targets {
		if f, ok := a.locator.Latest(names, scenario, target); ok {
			files = append(files, f)
		}
	}
	return files
}

// fanOut loads every file in its own goroutine and waits for all of them.
// A failing file is logged and skipped; it never stops its siblings.
func (a *Aggregator) fanOut(ctx context.Context, files []ResultFile, record func(ResultFile, metrics.TargetMetrics)) {
	var wg sync.WaitGroup

	for _, f := range files {
		wg.Add(1)
		go func(f ResultFile) {
			defer wg.Done()

			tm, err := a.load(ctx, f)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					a.logger.Debug("result lookup abandoned", zap.String("file", f.Name), zap.Error(err))
					return
				}
				a.logger.Warn("failed to process result file",
					zap.String("scenario", f.Scenario),
					zap.String("target", f.Target),
					zap.String("file", f.Name),
					zap.Error(err))
				a.inst.targetFailures.WithLabelValues(f.Scenario, f.Target).Inc()
				return
			}
			record(f, tm)
		}(f)
	}

	wg.Wait()
}

func (a *Aggregator) load(ctx context.Context, f ResultFile) (tm metrics.TargetMetrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while loading %s: %v", f.Name, r)
		}
	}()

	agg, err := a.source.Get(ctx, f.Path)
	if err != nil {
		return tm, err
	}
	return metrics.NewTargetMetrics(agg, f.Name, f.RunStamp()), nil
}
