package output

import (
	"io"

	"github.com/erfi/loadcompare/internal/metrics"
)

// Formatter defines the interface for different output formats
type Formatter interface {
	Format(c *Comparison) (string, error)
	Write(w io.Writer, c *Comparison) error
	WriteAll(w io.Writer, cs []*Comparison) error
	WriteSummary(w io.Writer, file string, tm metrics.TargetMetrics) error
}

// GetFormatter returns the appropriate formatter based on the format string
func GetFormatter(format string, verbose bool) (Formatter, error) {
	switch format {
	case "json":
		return NewJSONFormatter(verbose), nil
	case "table":
		return NewTableFormatter(verbose), nil
	case "graph":
		return NewGraphFormatter(verbose), nil
	default:
		return NewTableFormatter(verbose), nil
	}
}
