package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/erfi/loadcompare/internal/metrics"
)

const maxBarWidth = 50

// GraphFormatter formats output with ASCII graphs
type GraphFormatter struct {
	verbose bool
}

// NewGraphFormatter creates a new graph formatter
func NewGraphFormatter(verbose bool) *GraphFormatter {
	return &GraphFormatter{verbose: verbose}
}

// Format formats one comparison with graphs
func (f *GraphFormatter) Format(c *Comparison) (string, error) {
	var buf strings.Builder
	if err := f.Write(&buf, c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write draws p95 latency and throughput bars for each target
func (f *GraphFormatter) Write(w io.Writer, c *Comparison) error {
	fmt.Fprintf(w, "%s\n", color.CyanString("=== Comparison: %s ===", strings.ToUpper(c.Scenario)))

	if len(c.Results) == 0 {
		fmt.Fprintf(w, "%s\n", color.RedString("No results found for this scenario"))
	}

	width := 0
	for _, target := range c.Targets {
		width = max(width, len(target))
	}

	var maxP95, maxRPS float64
	for _, tm := range c.Results {
		maxP95 = max(maxP95, tm.P95)
		maxRPS = max(maxRPS, tm.RPS)
	}

	fmt.Fprintf(w, "%s\n", color.YellowString("p95 Latency (lower is better):"))
	for _, target := range c.Targets {
		tm, ok := c.Results[target]
		if !ok {
			fmt.Fprintf(w, "  %-*s │ %s\n", width, target, notAvailable)
			continue
		}
		bar := f.createBar(scale(tm.P95, maxP95), maxBarWidth, color.YellowString)
		fmt.Fprintf(w, "  %-*s │%s %s\n", width, target, bar, FormatDuration(tm.P95))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n", color.YellowString("Throughput (higher is better):"))
	for _, target := range c.Targets {
		tm, ok := c.Results[target]
		if !ok {
			fmt.Fprintf(w, "  %-*s │ %s\n", width, target, notAvailable)
			continue
		}
		bar := f.createBar(scale(tm.RPS, maxRPS), maxBarWidth, color.GreenString)
		fmt.Fprintf(w, "  %-*s │%s %s req/s\n", width, target, bar, FormatNumber(tm.RPS, 1))
	}
	fmt.Fprintln(w)

	if f.verbose {
		fmt.Fprintf(w, "%s\n", color.YellowString("Error Rate:"))
		for _, target := range c.Targets {
			if tm, ok := c.Results[target]; ok {
				bar := f.createBar(int(tm.ErrorRate*100+0.5), maxBarWidth, color.RedString)
				fmt.Fprintf(w, "  %-*s │%s %s\n", width, target, bar, FormatPercent(tm.ErrorRate))
			}
		}
		fmt.Fprintln(w)
	}

	return nil
}

// WriteAll writes every comparison in order
func (f *GraphFormatter) WriteAll(w io.Writer, cs []*Comparison) error {
	for _, c := range cs {
		if err := f.Write(w, c); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary draws the latency percentiles of one event log
func (f *GraphFormatter) WriteSummary(w io.Writer, file string, tm metrics.TargetMetrics) error {
	fmt.Fprintf(w, "%s\n", color.CyanString("=== %s ===", file))
	fmt.Fprintf(w, "Total Requests: %s\n", FormatNumber(tm.TotalRequests, 0))
	fmt.Fprintf(w, "Requests/sec: %.2f\n\n", tm.RPS)

	fmt.Fprintf(w, "%s\n", color.YellowString("Latency Distribution:"))
	for _, row := range latencyRows(tm)[3:] {
		bar := f.createBar(scale(row.value, tm.Max), maxBarWidth, color.GreenString)
		fmt.Fprintf(w, "  %12s │%s %s\n", row.label, bar, FormatDuration(row.value))
	}
	fmt.Fprintln(w)

	return nil
}

// scale maps value onto [0, maxBarWidth] relative to top
func scale(value, top float64) int {
	if top <= 0 || value <= 0 {
		return 0
	}
	width := int(value / top * maxBarWidth)
	if width == 0 {
		width = 1
	}
	return width
}

// createBar creates a horizontal bar for visualization
func (f *GraphFormatter) createBar(value, maxWidth int, paint func(string, ...interface{}) string) string {
	if value <= 0 {
		return ""
	}
	if value > maxWidth {
		value = maxWidth
	}
	return paint(strings.Repeat("█", value))
}
