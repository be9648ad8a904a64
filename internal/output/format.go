package output

import (
	"fmt"
	"strconv"

	"github.com/erfi/loadcompare/internal/metrics"
	"github.com/erfi/loadcompare/internal/results"
	"github.com/erfi/loadcompare/internal/thresholds"
)

// Comparison is one scenario's results ready for rendering
type Comparison struct {
	Scenario   string                  `json:"scenario"`
	Targets    []string                `json:"targets"`
	Results    results.ScenarioResults `json:"results"`
	Thresholds []thresholds.Result     `json:"thresholds,omitempty"`
}

// Winner names the best target for one measure
type Winner struct {
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

// Winners holds the per-measure leaders of a comparison. A nil entry means
// the measure has no winner.
type Winners struct {
	BestP95         *Winner `json:"best_p95,omitempty"`
	BestRPS         *Winner `json:"best_rps,omitempty"`
	LowestErrorRate *Winner `json:"lowest_error_rate,omitempty"`
}

// present returns the targets of c that have data, in configured order
func (c *Comparison) present() []string {
	var out []string
	for _, target := range c.Targets {
		if _, ok := c.Results[target]; ok {
			out = append(out, target)
		}
	}
	return out
}

// Winners picks the leaders among targets with data. Nothing is reported
// unless at least two targets have data, and the lowest error rate only when
// it is above zero. Ties go to the earlier configured target.
func (c *Comparison) Winners() Winners {
	var w Winners

	targets := c.present()
	if len(targets) < 2 {
		return w
	}

	for _, target := range targets {
		tm := c.Results[target]
		if w.BestP95 == nil || tm.P95 < w.BestP95.Value {
			w.BestP95 = &Winner{Target: target, Value: tm.P95}
		}
		if w.BestRPS == nil || tm.RPS > w.BestRPS.Value {
			w.BestRPS = &Winner{Target: target, Value: tm.RPS}
		}
		if w.LowestErrorRate == nil || tm.ErrorRate < w.LowestErrorRate.Value {
			w.LowestErrorRate = &Winner{Target: target, Value: tm.ErrorRate}
		}
	}

	if w.LowestErrorRate.Value <= 0 {
		w.LowestErrorRate = nil
	}
	return w
}

// NewComparison evaluates set against every target with data. A nil set
// yields no threshold results.
func NewComparison(scenario string, targets []string, res results.ScenarioResults, set *thresholds.Set) (*Comparison, error) {
	c := &Comparison{
		Scenario: scenario,
		Targets:  targets,
		Results:  res,
	}
	for _, target := range c.present() {
		out, err := set.Evaluate(scenario, target, res[target])
		if err != nil {
			return nil, err
		}
		c.Thresholds = append(c.Thresholds, out...)
	}
	return c, nil
}

// FormatDuration renders milliseconds as µs below 1ms, ms below 1s and
// seconds otherwise
func FormatDuration(ms float64) string {
	switch {
	case ms < 1:
		return fmt.Sprintf("%.0fµs", ms*1000)
	case ms < 1000:
		return fmt.Sprintf("%.2fms", ms)
	default:
		return fmt.Sprintf("%.2fs", ms/1000)
	}
}

// FormatNumber renders v with a fixed number of decimals
func FormatNumber(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// FormatPercent renders a fraction as a percentage with two decimals
func FormatPercent(rate float64) string {
	return FormatNumber(rate*100, 2) + "%"
}

type latencyRow struct {
	label string
	value float64
}

func latencyRows(tm metrics.TargetMetrics) []latencyRow {
	return []latencyRow{
		{"Min", tm.Min},
		{"Max", tm.Max},
		{"Mean", tm.Avg},
		{"Median (p50)", tm.P50},
		{"P75", tm.P75},
		{"P90", tm.P90},
		{"P95", tm.P95},
		{"P99", tm.P99},
		{"P99.9", tm.P999},
	}
}
