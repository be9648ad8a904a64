package output

import (
	"encoding/json"
	"io"

	"github.com/erfi/loadcompare/internal/metrics"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	verbose bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(verbose bool) *JSONFormatter {
	return &JSONFormatter{verbose: verbose}
}

// jsonComparison adds the computed winners to a comparison
type jsonComparison struct {
	*Comparison
	Winners Winners `json:"winners"`
}

func (f *JSONFormatter) document(c *Comparison) jsonComparison {
	return jsonComparison{Comparison: c, Winners: c.Winners()}
}

// Format formats one comparison as JSON
func (f *JSONFormatter) Format(c *Comparison) (string, error) {
	data, err := json.MarshalIndent(f.document(c), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write writes one comparison as JSON to the writer
func (f *JSONFormatter) Write(w io.Writer, c *Comparison) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.document(c))
}

// WriteAll writes every comparison as one JSON array
func (f *JSONFormatter) WriteAll(w io.Writer, cs []*Comparison) error {
	docs := make([]jsonComparison, 0, len(cs))
	for _, c := range cs {
		docs = append(docs, f.document(c))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(docs)
}

// WriteSummary writes the metrics of a single event log as JSON
func (f *JSONFormatter) WriteSummary(w io.Writer, file string, tm metrics.TargetMetrics) error {
	if tm.File == "" {
		tm.File = file
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(tm)
}
