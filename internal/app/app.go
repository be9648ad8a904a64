package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/erfi/loadcompare/internal/config"
	"github.com/erfi/loadcompare/internal/metrics"
	"github.com/erfi/loadcompare/internal/output"
	"github.com/erfi/loadcompare/internal/results"
	"github.com/erfi/loadcompare/internal/server"
	"github.com/erfi/loadcompare/internal/thresholds"
)

// AllScenarios selects every configured scenario
const AllScenarios = "all"

// ErrThresholdsFailed is returned when a threshold fails and the caller
// asked for that to be fatal
var ErrThresholdsFailed = errors.New("thresholds failed")

// Options contains per-invocation settings that are not part of the config
type Options struct {
	OutputFormat    string
	Verbose         bool
	Quiet           bool
	FailOnThreshold bool
	Stdout          io.Writer
	Stderr          io.Writer
}

// App owns every long lived component
type App struct {
	config     config.Config
	opts       Options
	logger     *zap.Logger
	registry   *prometheus.Registry
	parser     *metrics.Parser
	cache      *results.Cache
	aggregator *results.Aggregator
	thresholds *thresholds.Set
	formatter  output.Formatter
}

// New wires the application from cfg
func New(cfg config.Config, opts Options, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	set, err := thresholds.Compile(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	formatter, err := output.GetFormatter(opts.OutputFormat, opts.Verbose)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	inst := results.NewInstruments(registry)

	parser := metrics.NewParser(metrics.Config{
		MaxLines:      cfg.Parser.MaxLines,
		MaxLineSize:   cfg.Parser.MaxLineSize,
		DefaultWindow: cfg.Parser.DefaultWindow,
	})
	cache := results.NewCache(parser, results.CacheConfig{
		TTL:      cfg.Cache.TTL,
		Capacity: cfg.Cache.Capacity,
	}, logger.Named("cache"), inst)
	aggregator := results.NewAggregator(results.NewLocator(cfg.ResultsDir), cache, results.Options{
		Targets:     cfg.Targets,
		Scenarios:   cfg.Scenarios,
		Logger:      logger.Named("aggregator"),
		Instruments: inst,
	})

	return &App{
		config:     cfg,
		opts:       opts,
		logger:     logger,
		registry:   registry,
		parser:     parser,
		cache:      cache,
		aggregator: aggregator,
		thresholds: set,
		formatter:  formatter,
	}, nil
}

// Registry returns the Prometheus registry shared by all components
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// selectScenarios resolves "all" or a single scenario name
func (a *App) selectScenarios(name string) ([]string, error) {
	if name == "" || name == AllScenarios {
		return a.aggregator.Scenarios(), nil
	}
	if !a.aggregator.HasScenario(name) {
		return nil, fmt.Errorf("%w: %s (available: %s, %s)", results.ErrUnknownScenario, name,
			AllScenarios, strings.Join(a.aggregator.Scenarios(), ", "))
	}
	return []string{name}, nil
}

func (a *App) requireResultsDir() error {
	info, err := os.Stat(a.config.ResultsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("results directory not found: %s", a.config.ResultsDir)
		}
		return fmt.Errorf("failed to access results directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("results path is not a directory: %s", a.config.ResultsDir)
	}
	return nil
}

func (a *App) progress(format string, args ...any) {
	if a.opts.Quiet {
		return
	}
	fmt.Fprintf(a.opts.Stderr, format, args...)
}

// Compare prints a comparison for one scenario or all of them
func (a *App) Compare(ctx context.Context, scenario string) error {
	scenarios, err := a.selectScenarios(scenario)
	if err != nil {
		return err
	}
	if err := a.requireResultsDir(); err != nil {
		return err
	}

	comparisons := make([]*output.Comparison, 0, len(scenarios))
	failed := 0

	for _, name := range scenarios {
		a.progress("Processing %s... ", name)
		final, err := a.aggregator.Scenario(ctx, name, nil)
		if err != nil {
			a.progress("%s\n", color.RedString("failed"))
			return err
		}
		a.progress("%s (%d/%d targets)\n", color.GreenString("done"), len(final.Results), len(a.config.Targets))

		c, err := output.NewComparison(name, a.aggregator.Targets(), final.Results, a.thresholds)
		if err != nil {
			return err
		}
		for _, r := range c.Thresholds {
			if !r.Passed {
				failed++
			}
		}
		comparisons = append(comparisons, c)
	}

	if err := a.formatter.WriteAll(a.opts.Stdout, comparisons); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if failed > 0 && a.opts.FailOnThreshold {
		return fmt.Errorf("%w: %d threshold(s) not met", ErrThresholdsFailed, failed)
	}
	return nil
}

// Export writes <scenario>_summary.csv for every selected scenario and
// returns the written paths. A scenario without results still gets a file
// with one blank row per target. outDir defaults to the results directory.
func (a *App) Export(ctx context.Context, scenario, outDir string) ([]string, error) {
	scenarios, err := a.selectScenarios(scenario)
	if err != nil {
		return nil, err
	}
	if err := a.requireResultsDir(); err != nil {
		return nil, err
	}
	if outDir == "" {
		outDir = a.config.ResultsDir
	}

	exporter := output.NewCSVExporter(a.aggregator.Targets())
	var written []string

	for _, name := range scenarios {
		a.progress("Processing %s... ", name)
		final, err := a.aggregator.Scenario(ctx, name, nil)
		if err != nil {
			a.progress("%s\n", color.RedString("failed"))
			return written, err
		}
		if len(final.Results) == 0 {
			a.progress("%s ", color.YellowString("no results"))
		}

		path, err := exporter.WriteFile(outDir, name, final.Results)
		if err != nil {
			return written, err
		}
		a.progress("%s %s\n", color.GreenString("exported"), path)
		written = append(written, path)
	}

	return written, nil
}

// Parse aggregates a single event log and prints its summary
func (a *App) Parse(ctx context.Context, path string) error {
	agg, err := a.parser.Parse(ctx, path)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	stamp := results.ResultFile{Name: name}.RunStamp()
	tm := metrics.NewTargetMetrics(agg, name, stamp)

	if err := a.formatter.WriteSummary(a.opts.Stdout, name, tm); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

// Serve runs the HTTP server until ctx is canceled. A results directory
// that does not exist yet is served as empty and not watched.
func (a *App) Serve(ctx context.Context) error {
	srv := server.New(a.aggregator, server.Options{
		Config: server.Config{
			Port:            a.config.Server.Port,
			ReadTimeout:     a.config.Server.ReadTimeout,
			WriteTimeout:    a.config.Server.WriteTimeout,
			IdleTimeout:     a.config.Server.IdleTimeout,
			ShutdownTimeout: a.config.Server.ShutdownTimeout,
			RateLimitRPS:    a.config.Server.RateLimit.RPS,
			RateLimitBurst:  a.config.Server.RateLimit.Burst,
		},
		Logger:   a.logger.Named("server"),
		Registry: a.registry,
	})

	watcher, err := results.NewWatcher(
		a.config.ResultsDir,
		a.config.Scenarios,
		a.config.Server.WatchDebounce,
		a.cache,
		a.logger.Named("watcher"),
		srv.Notify,
	)
	if err != nil {
		a.logger.Warn("results directory not watched", zap.String("dir", a.config.ResultsDir), zap.Error(err))
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	a.logger.Info("serving results",
		zap.String("dir", a.config.ResultsDir),
		zap.Strings("scenarios", a.config.Scenarios),
		zap.Strings("targets", a.config.Targets),
		zap.Int("port", a.config.Server.Port))

	return srv.ListenAndServe(ctx)
}

// Scenarios returns the configured scenarios in order
func (a *App) Scenarios() []string {
	return slices.Clone(a.config.Scenarios)
}
