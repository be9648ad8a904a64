package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/erfi/loadcompare/internal/results"
)

// CSVHeader is the first record of every exported file
var CSVHeader = []string{"Target", "p50_ms", "p95_ms", "p99_ms", "Total_Requests", "RPS", "Errors", "Error_Rate_Percent"}

// CSVExporter writes one scenario's results as CSV, one row per target
type CSVExporter struct {
	targets []string
}

// NewCSVExporter creates an exporter emitting rows in targets order
func NewCSVExporter(targets []string) *CSVExporter {
	return &CSVExporter{targets: targets}
}

// FileName returns the summary file name for scenario
func FileName(scenario string) string {
	return scenario + "_summary.csv"
}

// Write renders the header and one row per target. Targets without data get
// their name followed by empty fields.
func (e *CSVExporter) Write(w io.Writer, res results.ScenarioResults) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for _, target := range e.targets {
		tm, ok := res[target]
		if !ok {
			record := make([]string, len(CSVHeader))
			record[0] = target
			if err := cw.Write(record); err != nil {
				return err
			}
			continue
		}

		record := []string{
			target,
			FormatNumber(tm.P50, 2),
			FormatNumber(tm.P95, 2),
			FormatNumber(tm.P99, 2),
			strconv.FormatFloat(tm.TotalRequests, 'f', -1, 64),
			FormatNumber(tm.RPS, 2),
			strconv.FormatFloat(tm.Errors, 'f', -1, 64),
			FormatNumber(tm.ErrorRate*100, 2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes <dir>/<scenario>_summary.csv and returns its path
func (e *CSVExporter) WriteFile(dir, scenario string, res results.ScenarioResults) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(scenario))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := e.Write(file, res); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}
