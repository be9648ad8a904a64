package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/erfi/loadcompare/internal/metrics"
)

const notAvailable = "N/A"

// TableFormatter formats output as a table
type TableFormatter struct {
	verbose bool
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(verbose bool) *TableFormatter {
	return &TableFormatter{verbose: verbose}
}

// Format formats one comparison as a table
func (f *TableFormatter) Format(c *Comparison) (string, error) {
	var buf strings.Builder
	if err := f.Write(&buf, c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write writes one comparison as a table to the writer
func (f *TableFormatter) Write(w io.Writer, c *Comparison) error {
	fmt.Fprintf(w, "%s\n", color.CyanString("=== Comparison: %s ===", strings.ToUpper(c.Scenario)))

	if len(c.Results) == 0 {
		fmt.Fprintf(w, "%s\n", color.RedString("No results found for this scenario"))
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Target", "p50", "p95", "p99", "RPS", "Errors", "Error %"})

	for _, target := range c.Targets {
		tm, ok := c.Results[target]
		if !ok {
			t.AppendRow(table.Row{target, notAvailable, notAvailable, notAvailable, notAvailable, notAvailable, notAvailable})
			continue
		}
		t.AppendRow(table.Row{
			target,
			FormatDuration(tm.P50),
			FormatDuration(tm.P95),
			FormatDuration(tm.P99),
			FormatNumber(tm.RPS, 1),
			FormatNumber(tm.Errors, 0),
			FormatPercent(tm.ErrorRate),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleLight)
	t.Render()

	f.writeWinners(w, c.Winners())
	f.writeThresholds(w, c)

	if f.verbose {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s\n", color.CyanString("Source Files:"))
		for _, target := range c.Targets {
			if tm, ok := c.Results[target]; ok {
				fmt.Fprintf(w, "  %s: %s\n", target, tm.File)
			}
		}
	}

	fmt.Fprintln(w)
	return nil
}

// WriteAll writes every comparison in order
func (f *TableFormatter) WriteAll(w io.Writer, cs []*Comparison) error {
	for _, c := range cs {
		if err := f.Write(w, c); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary writes the statistics of a single event log
func (f *TableFormatter) WriteSummary(w io.Writer, file string, tm metrics.TargetMetrics) error {
	fmt.Fprintf(w, "%s\n", color.CyanString("=== %s ===", file))
	fmt.Fprintf(w, "Total Requests: %s\n", FormatNumber(tm.TotalRequests, 0))
	fmt.Fprintf(w, "Failed: %s\n", color.RedString("%s", FormatNumber(tm.Errors, 0)))
	fmt.Fprintf(w, "Error Rate: %s\n", FormatPercent(tm.ErrorRate))
	fmt.Fprintf(w, "Requests/sec: %.2f\n\n", tm.RPS)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Latency Statistics")
	t.AppendHeader(table.Row{"Metric", "Value"})
	for _, row := range latencyRows(tm) {
		t.AppendRow(table.Row{row.label, FormatDuration(row.value)})
	}
	t.SetStyle(table.StyleLight)
	t.Render()

	return nil
}

func (f *TableFormatter) writeWinners(w io.Writer, winners Winners) {
	if winners.BestP95 == nil {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", color.YellowString("Analysis:"))
	fmt.Fprintf(w, "  Best p95: %s (%s)\n", color.GreenString("%s", winners.BestP95.Target), FormatDuration(winners.BestP95.Value))
	fmt.Fprintf(w, "  Highest RPS: %s (%s req/s)\n", color.GreenString("%s", winners.BestRPS.Target), FormatNumber(winners.BestRPS.Value, 1))
	if winners.LowestErrorRate != nil {
		fmt.Fprintf(w, "  Lowest error rate: %s (%s)\n", color.GreenString("%s", winners.LowestErrorRate.Target), FormatPercent(winners.LowestErrorRate.Value))
	}
}

func (f *TableFormatter) writeThresholds(w io.Writer, c *Comparison) {
	if len(c.Thresholds) == 0 {
		return
	}

	fmt.Fprintln(w)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Thresholds")
	t.AppendHeader(table.Row{"Target", "Threshold", "Result"})
	for _, r := range c.Thresholds {
		result := color.GreenString("PASS")
		if !r.Passed {
			result = color.RedString("FAIL")
		}
		t.AppendRow(table.Row{r.Target, r.Expression, result})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
