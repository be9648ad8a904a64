package metrics

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
)

const (
	// DefaultMaxLines bounds how much of a runaway log is read
	DefaultMaxLines = 5_000_000

	// DefaultWindow is used when the log has fewer than two timestamps
	DefaultWindow = 45 * time.Second

	// DefaultMaxLineSize bounds a single line; longer lines are dropped
	DefaultMaxLineSize = 16 << 20

	cancelCheckAt = 4096
)

// Config contains parser tuning
type Config struct {
	MaxLines      int
	MaxLineSize   int
	DefaultWindow time.Duration
}

// DefaultConfig returns the parser defaults
func DefaultConfig() Config {
	return Config{
		MaxLines:      DefaultMaxLines,
		MaxLineSize:   DefaultMaxLineSize,
		DefaultWindow: DefaultWindow,
	}
}

// Parser streams k6 NDJSON event logs into aggregated statistics
type Parser struct {
	config Config
}

// NewParser creates a parser, filling zero fields with defaults
func NewParser(config Config) *Parser {
	if config.MaxLines <= 0 {
		config.MaxLines = DefaultMaxLines
	}
	if config.MaxLineSize <= 0 {
		config.MaxLineSize = DefaultMaxLineSize
	}
	if config.DefaultWindow <= 0 {
		config.DefaultWindow = DefaultWindow
	}
	return &Parser{config: config}
}

// point is one decoded k6 output line
type point struct {
	Type   string `json:"type"`
	Metric string `json:"metric"`
	Data   *struct {
		Value *float64 `json:"value"`
		Time  *string  `json:"time"`
	} `json:"data"`
}

// Parse reads the event log at path. Gzip-compressed logs are detected by
// their magic bytes.
func (p *Parser) Parse(ctx context.Context, path string) (*Aggregated, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 64<<10)
	var src io.Reader = reader

	if magic, err := reader.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip event log %s: %w", path, err)
		}
		defer gz.Close()
		src = gz
	}

	agg, err := p.ParseReader(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log %s: %w", path, err)
	}
	return agg, nil
}

// ParseReader aggregates an NDJSON stream. Lines that are not valid JSON or
// exceed MaxLineSize are dropped; only read errors are returned.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader) (*Aggregated, error) {
	lr := newLineReader(r, p.config.MaxLineSize)

	var (
		durations  []float64
		requests   []float64
		failures   []float64
		firstTime  string
		lastTime   string
		timestamps int
		lines      int
	)

	for {
		raw, oversized, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		lines++
		if lines > p.config.MaxLines {
			break
		}
		if lines%cancelCheckAt == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if oversized {
			continue
		}

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}

		var pt point
		if err := json.Unmarshal(line, &pt); err != nil {
			continue
		}
		if pt.Type != "Point" || pt.Data == nil || pt.Data.Value == nil || pt.Data.Time == nil {
			continue
		}

		value := *pt.Data.Value
		if timestamps == 0 {
			firstTime = *pt.Data.Time
		}
		lastTime = *pt.Data.Time
		timestamps++

		switch pt.Metric {
		case MetricDuration:
			durations = append(durations, value)
		case MetricRequests:
			requests = append(requests, value)
		case MetricFailed:
			if value > 0 {
				failures = append(failures, value)
			}
		}
	}

	window := p.windowSeconds(firstTime, lastTime, timestamps)
	return aggregate(durations, requests, failures, window), nil
}

// windowSeconds approximates the test length from the first and last
// observed point, never less than one second.
func (p *Parser) windowSeconds(first, last string, timestamps int) float64 {
	seconds := p.config.DefaultWindow.Seconds()

	if timestamps >= 2 {
		start, errStart := time.Parse(time.RFC3339Nano, first)
		end, errEnd := time.Parse(time.RFC3339Nano, last)
		if errStart == nil && errEnd == nil {
			seconds = end.Sub(start).Seconds()
		}
	}

	if seconds < 1 || math.IsNaN(seconds) {
		seconds = 1
	}
	return seconds
}

func aggregate(durations, requests, failures []float64, window float64) *Aggregated {
	agg := &Aggregated{}

	if n := len(durations); n > 0 {
		sort.Float64s(durations)
		agg.Duration = DurationStats{
			P50:   Percentile(durations, 50),
			P75:   Percentile(durations, 75),
			P90:   Percentile(durations, 90),
			P95:   Percentile(durations, 95),
			P99:   Percentile(durations, 99),
			P999:  Percentile(durations, 99.9),
			Count: n,
			Avg:   sum(durations) / float64(n),
			Min:   durations[0],
			Max:   durations[n-1],
		}
	}

	totalRequests := sum(requests)
	totalFailed := sum(failures)

	agg.Requests = RequestStats{Count: totalRequests}
	if window > 0 {
		agg.Requests.Rate = totalRequests / window
	}

	agg.Failures = FailureStats{Count: totalFailed}
	if totalRequests > 0 {
		agg.Failures.Rate = totalFailed / totalRequests
	}

	return agg
}
