package metrics

// Metric names emitted by k6 that the parser understands
const (
	MetricDuration = "http_req_duration"
	MetricRequests = "http_reqs"
	MetricFailed   = "http_req_failed"
)

// DurationStats contains latency statistics in milliseconds
type DurationStats struct {
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	P999  float64 `json:"p99_9"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// RequestStats contains request volume and throughput
type RequestStats struct {
	Count float64 `json:"count"`
	Rate  float64 `json:"rate"`
}

// FailureStats contains failed request volume and ratio
type FailureStats struct {
	Count float64 `json:"count"`
	Rate  float64 `json:"rate"`
}

// Aggregated is the result of parsing one event log
type Aggregated struct {
	Duration DurationStats `json:"http_req_duration"`
	Requests RequestStats  `json:"http_reqs"`
	Failures FailureStats  `json:"http_req_failed"`
}

// TargetMetrics is the per-target view consumed by reporters
type TargetMetrics struct {
	P50           float64 `json:"p50"`
	P75           float64 `json:"p75"`
	P90           float64 `json:"p90"`
	P95           float64 `json:"p95"`
	P99           float64 `json:"p99"`
	P999          float64 `json:"p99_9"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Avg           float64 `json:"avg"`
	Med           float64 `json:"med"`
	TotalRequests float64 `json:"total_requests"`
	RPS           float64 `json:"rps"`
	Errors        float64 `json:"errors"`
	ErrorRate     float64 `json:"error_rate"`
	File          string  `json:"file"`
	Timestamp     string  `json:"timestamp,omitempty"`
}

// NewTargetMetrics flattens aggregated metrics and attaches provenance
func NewTargetMetrics(agg *Aggregated, file, timestamp string) TargetMetrics {
	tm := TargetMetrics{File: file, Timestamp: timestamp}
	if agg == nil {
		return tm
	}

	tm.P50 = agg.Duration.P50
	tm.P75 = agg.Duration.P75
	tm.P90 = agg.Duration.P90
	tm.P95 = agg.Duration.P95
	tm.P99 = agg.Duration.P99
	tm.P999 = agg.Duration.P999
	tm.Min = agg.Duration.Min
	tm.Max = agg.Duration.Max
	tm.Avg = agg.Duration.Avg
	tm.Med = agg.Duration.P50
	tm.TotalRequests = agg.Requests.Count
	tm.RPS = agg.Requests.Rate
	tm.Errors = agg.Failures.Count
	if tm.TotalRequests > 0 {
		tm.ErrorRate = tm.Errors / tm.TotalRequests
	}

	return tm
}
