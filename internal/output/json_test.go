package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/erfi/loadcompare/internal/metrics"
	"github.com/erfi/loadcompare/internal/results"
)

func sampleComparison() *Comparison {
	return &Comparison{
		Scenario: "smoke",
		Targets:  []string{"coordix", "mediatR", "wolverine"},
		Results: results.ScenarioResults{
			"coordix": {
				P50: 30, P95: 50, P99: 50,
				TotalRequests: 5, RPS: 5, Errors: 1, ErrorRate: 0.2,
				File: "smoke_coordix_2024-01-02T00-00-00.json",
			},
			"wolverine": {
				P50: 20, P95: 40, P99: 60,
				TotalRequests: 8, RPS: 8, Errors: 0, ErrorRate: 0,
				File: "smoke_wolverine_2024-01-02T00-00-00.json",
			},
		},
	}
}

func TestNewJSONFormatter(t *testing.T) {
	formatter := NewJSONFormatter(false)

	if formatter == nil {
		t.Fatal("NewJSONFormatter returned nil")
	}

	if formatter.verbose {
		t.Error("verbose should be false")
	}
}

func TestJSONFormatterFormat(t *testing.T) {
	formatter := NewJSONFormatter(false)

	output, err := formatter.Format(sampleComparison())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}

	if parsed["scenario"] != "smoke" {
		t.Errorf("scenario = %v, want smoke", parsed["scenario"])
	}

	res := parsed["results"].(map[string]interface{})
	if _, ok := res["mediatR"]; ok {
		t.Error("target without data should be absent")
	}
	coordix := res["coordix"].(map[string]interface{})
	if coordix["p95"].(float64) != 50 {
		t.Error("p95 not correctly formatted")
	}
	if coordix["error_rate"].(float64) != 0.2 {
		t.Error("error_rate not correctly formatted")
	}

	winners := parsed["winners"].(map[string]interface{})
	best := winners["best_p95"].(map[string]interface{})
	if best["target"] != "wolverine" {
		t.Errorf("best_p95 = %v, want wolverine", best["target"])
	}
	if _, ok := winners["lowest_error_rate"]; ok {
		t.Error("lowest_error_rate should be omitted when the minimum is zero")
	}
}

func TestJSONFormatterWriteAll(t *testing.T) {
	formatter := NewJSONFormatter(false)
	empty := &Comparison{Scenario: "spike", Targets: []string{"coordix"}, Results: results.ScenarioResults{}}

	var buf bytes.Buffer
	if err := formatter.WriteAll(&buf, []*Comparison{sampleComparison(), empty}); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	var parsed []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(parsed))
	}
	if parsed[1]["scenario"] != "spike" {
		t.Errorf("second scenario = %v, want spike", parsed[1]["scenario"])
	}
}

func TestJSONFormatterWriteSummary(t *testing.T) {
	formatter := NewJSONFormatter(false)

	var buf bytes.Buffer
	tm := metrics.TargetMetrics{P50: 1.5, TotalRequests: 10}
	if err := formatter.WriteSummary(&buf, "run.json", tm); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if parsed["file"] != "run.json" {
		t.Errorf("file = %v, want run.json", parsed["file"])
	}
	if parsed["total_requests"].(float64) != 10 {
		t.Error("total_requests not correctly formatted")
	}
}
