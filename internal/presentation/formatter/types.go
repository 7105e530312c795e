package formatter

import (
	"fmt"
	"io"
	"time"
)

// Report is a grouped usage breakdown over one scope
type Report struct {
	Title   string        `json:"title"`
	Scope   string        `json:"scope"`
	GroupBy string        `json:"groupBy"`
	Total   time.Duration `json:"total"`
	Rows    []ReportRow   `json:"rows"`
}

// ReportRow is one group of a report. Detail carries the app name for window rows.
type ReportRow struct {
	Key       string        `json:"key"`
	Detail    string        `json:"detail,omitempty"`
	Start     string        `json:"start,omitempty"`
	Duration  time.Duration `json:"duration"`
	Percent   float64       `json:"percent"`
	Intervals int           `json:"intervals"`
}

// Formatter writes a report in one output format
type Formatter interface {
	Format(w io.Writer, report Report) error
}

// New returns the formatter for an output name
func New(output string) (Formatter, error) {
	switch output {
	case "", "table":
		return NewTableFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "csv":
		return NewCSVFormatter(), nil
	case "summary":
		return NewSummaryFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", output)
	}
}
