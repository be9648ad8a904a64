package output

import (
	"testing"

	"github.com/erfi/loadcompare/internal/results"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "0µs"},
		{0.25, "250µs"},
		{1, "1.00ms"},
		{12.5, "12.50ms"},
		{999.99, "999.99ms"},
		{1000, "1.00s"},
		{2500, "2.50s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.ms); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(0.0123); got != "1.23%" {
		t.Errorf("FormatPercent = %q", got)
	}
}

func TestWinners(t *testing.T) {
	c := &Comparison{
		Targets: []string{"coordix", "mediatR", "wolverine"},
		Results: results.ScenarioResults{
			"coordix":   {P95: 20, RPS: 100, ErrorRate: 0.02},
			"mediatR":   {P95: 10, RPS: 100, ErrorRate: 0.01},
			"wolverine": {P95: 10, RPS: 300, ErrorRate: 0.05},
		},
	}

	w := c.Winners()
	if w.BestP95 == nil || w.BestP95.Target != "mediatR" {
		t.Errorf("BestP95 = %+v, want mediatR (earlier of the tie)", w.BestP95)
	}
	if w.BestRPS == nil || w.BestRPS.Target != "wolverine" {
		t.Errorf("BestRPS = %+v, want wolverine", w.BestRPS)
	}
	if w.LowestErrorRate == nil || w.LowestErrorRate.Target != "mediatR" {
		t.Errorf("LowestErrorRate = %+v, want mediatR", w.LowestErrorRate)
	}
}

func TestWinnersZeroErrorRateNamesNoErrorWinner(t *testing.T) {
	c := &Comparison{
		Targets: []string{"coordix", "mediatR"},
		Results: results.ScenarioResults{
			"coordix": {P95: 20, RPS: 100, ErrorRate: 0},
			"mediatR": {P95: 10, RPS: 200, ErrorRate: 0.01},
		},
	}

	if w := c.Winners(); w.LowestErrorRate != nil {
		t.Errorf("LowestErrorRate = %+v, want none when a target has no errors", w.LowestErrorRate)
	}
}

func TestWinnersNeedTwoTargets(t *testing.T) {
	c := &Comparison{
		Targets: []string{"coordix", "mediatR"},
		Results: results.ScenarioResults{"coordix": {P95: 20}},
	}

	w := c.Winners()
	if w.BestP95 != nil || w.BestRPS != nil || w.LowestErrorRate != nil {
		t.Errorf("expected no winners, got %+v", w)
	}
}

func TestNewComparisonWithoutThresholds(t *testing.T) {
	c, err := NewComparison("smoke", []string{"coordix"}, results.ScenarioResults{"coordix": {}}, nil)
	if err != nil {
		t.Fatalf("NewComparison failed: %v", err)
	}
	if len(c.Thresholds) != 0 {
		t.Errorf("expected no threshold results, got %d", len(c.Thresholds))
	}
}
