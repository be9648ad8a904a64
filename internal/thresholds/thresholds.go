package thresholds

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/erfi/loadcompare/internal/metrics"
)

// Defaults returns the pass criteria applied when the config names none.
// error_rate is a fraction, latencies are milliseconds.
func Defaults() map[string][]string {
	return map[string][]string{
		"smoke":       {"error_rate < 0.001", "p95 < 50"},
		"rampup":      {"error_rate < 0.01"},
		"load-steady": {"error_rate < 0.001", "p95 < 200"},
		"spike":       {"error_rate < 0.05"},
		"stress":      {"error_rate < 1.0"},
		"overnight":   {"error_rate < 0.01", "p95 < 1000"},
	}
}

// env is what a threshold expression can see
type env struct {
	P50       float64 `expr:"p50"`
	P75       float64 `expr:"p75"`
	P90       float64 `expr:"p90"`
	P95       float64 `expr:"p95"`
	P99       float64 `expr:"p99"`
	P999      float64 `expr:"p99_9"`
	Avg       float64 `expr:"avg"`
	Min       float64 `expr:"min"`
	Max       float64 `expr:"max"`
	RPS       float64 `expr:"rps"`
	Requests  float64 `expr:"requests"`
	Errors    float64 `expr:"errors"`
	ErrorRate float64 `expr:"error_rate"`
}

func newEnv(tm metrics.TargetMetrics) env {
	return env{
		P50:       tm.P50,
		P75:       tm.P75,
		P90:       tm.P90,
		P95:       tm.P95,
		P99:       tm.P99,
		P999:      tm.P999,
		Avg:       tm.Avg,
		Min:       tm.Min,
		Max:       tm.Max,
		RPS:       tm.RPS,
		Requests:  tm.TotalRequests,
		Errors:    tm.Errors,
		ErrorRate: tm.ErrorRate,
	}
}

type rule struct {
	source  string
	program *vm.Program
}

// Set holds compiled thresholds per scenario
type Set struct {
	rules map[string][]rule
}

// Result is the outcome of one expression for one target
type Result struct {
	Scenario   string `json:"scenario"`
	Target     string `json:"target"`
	Expression string `json:"expression"`
	Passed     bool   `json:"passed"`
}

// Compile builds a Set from scenario to expressions. Every expression must
// evaluate to a boolean.
func Compile(specs map[string][]string) (*Set, error) {
	set := &Set{rules: make(map[string][]rule, len(specs))}

	for scenario, sources := range specs {
		for _, source := range sources {
			program, err := expr.Compile(source, expr.Env(env{}), expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("failed to compile threshold %q for %s: %w", source, scenario, err)
			}
			set.rules[scenario] = append(set.rules[scenario], rule{source: source, program: program})
		}
	}
	return set, nil
}

// Expressions returns the threshold sources for scenario
func (s *Set) Expressions(scenario string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.rules[scenario]))
	for _, r := range s.rules[scenario] {
		out = append(out, r.source)
	}
	return out
}

// Scenarios returns the scenarios that carry thresholds, sorted
func (s *Set) Scenarios() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.rules))
	for scenario := range s.rules {
		out = append(out, scenario)
	}
	sort.Strings(out)
	return out
}

// Evaluate runs every threshold of scenario against one target's metrics.
// A scenario without thresholds yields no results.
func (s *Set) Evaluate(scenario, target string, tm metrics.TargetMetrics) ([]Result, error) {
	if s == nil {
		return nil, nil
	}

	rules := s.rules[scenario]
	results := make([]Result, 0, len(rules))
	e := newEnv(tm)

	for _, r := range rules {
		out, err := expr.Run(r.program, e)
		if err != nil {
			return nil, fmt.Errorf("threshold %q evaluation failed: %w", r.source, err)
		}
		passed, _ := out.(bool)
		results = append(results, Result{
			Scenario:   scenario,
			Target:     target,
			Expression: r.source,
			Passed:     passed,
		})
	}
	return results, nil
}
