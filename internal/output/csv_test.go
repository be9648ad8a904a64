package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erfi/loadcompare/internal/results"
)

func TestCSVExporterWrite(t *testing.T) {
	exporter := NewCSVExporter([]string{"coordix", "mediatR", "wolverine"})

	var buf strings.Builder
	if err := exporter.Write(&buf, sampleComparison().Results); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := "Target,p50_ms,p95_ms,p99_ms,Total_Requests,RPS,Errors,Error_Rate_Percent\n" +
		"coordix,30.00,50.00,50.00,5,5.00,1,20.00\n" +
		"mediatR,,,,,,,\n" +
		"wolverine,20.00,40.00,60.00,8,8.00,0,0.00\n"
	if buf.String() != want {
		t.Errorf("unexpected CSV:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestCSVMissingRowMatchesHeaderWidth(t *testing.T) {
	exporter := NewCSVExporter([]string{"coordix"})

	var buf strings.Builder
	if err := exporter.Write(&buf, results.ScenarioResults{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if len(records[1]) != len(CSVHeader) {
		t.Errorf("missing row has %d fields, header has %d", len(records[1]), len(CSVHeader))
	}
	if records[1][0] != "coordix" {
		t.Errorf("missing row target = %q", records[1][0])
	}
}

func TestCSVEscaping(t *testing.T) {
	exporter := NewCSVExporter([]string{`odd,"name"`})

	var buf strings.Builder
	if err := exporter.Write(&buf, results.ScenarioResults{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[1] != `"odd,""name""",,,,,,,` {
		t.Errorf("unexpected escaping: %s", lines[1])
	}
}

func TestCSVExporterWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	exporter := NewCSVExporter([]string{"coordix", "mediatR", "wolverine"})

	path, err := exporter.WriteFile(dir, "smoke", sampleComparison().Results)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if filepath.Base(path) != "smoke_summary.csv" {
		t.Errorf("unexpected file name %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "Target,p50_ms") {
		t.Errorf("unexpected content:\n%s", data)
	}
}
