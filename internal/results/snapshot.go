package results

import (
	"time"

	"github.com/erfi/loadcompare/internal/metrics"
)

// Progress tells a streaming consumer how far a query has come
type Progress struct {
	Processed int  `json:"processed"`
	Total     int  `json:"total"`
	Completed bool `json:"completed"`
}

// ScenarioResults maps target key to its metrics. Targets without a result
// file are absent.
type ScenarioResults map[string]metrics.TargetMetrics

func (r ScenarioResults) clone() ScenarioResults {
	out := make(ScenarioResults, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AllResults maps scenario to its per-target results
type AllResults map[string]ScenarioResults

func (r AllResults) clone() AllResults {
	out := make(AllResults, len(r))
	for k, v := range r {
		out[k] = v.clone()
	}
	return out
}

func (r AllResults) count() int {
	n := 0
	for _, s := range r {
		n += len(s)
	}
	return n
}

// ScenarioSnapshot is one self-contained view of a single scenario query.
// Partial snapshots carry Progress; the final one does not.
type ScenarioSnapshot struct {
	Scenario  string          `json:"scenario"`
	Results   ScenarioResults `json:"results"`
	Progress  *Progress       `json:"progress,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Error     string          `json:"error,omitempty"`
}

// AllSnapshot is one self-contained view of a query across every scenario
type AllSnapshot struct {
	Results   AllResults `json:"results"`
	Progress  *Progress  `json:"progress,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Error     string     `json:"error,omitempty"`
}
