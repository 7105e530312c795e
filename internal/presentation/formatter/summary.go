package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-activity-monitor/internal/util"
)

// summaryTop is the number of groups listed with a bar
const summaryTop = 10

// SummaryFormatter prints a short human-readable digest of a report.
type SummaryFormatter struct{}

// NewSummaryFormatter creates a new instance of SummaryFormatter.
func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{}
}

// Format writes the total, the group count and the top groups with bars.
func (f *SummaryFormatter) Format(w io.Writer, report Report) error {
	title := report.Title
	if title == "" {
		title = "Activity Summary"
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w)

	if report.Scope != "" {
		fmt.Fprintf(w, "Scope: %s\n", report.Scope)
	}

	if len(report.Rows) == 0 || report.Total <= 0 {
		fmt.Fprintln(w, "No activity in scope")
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Repeat("=", 60))
		return nil
	}

	fmt.Fprintf(w, "Active time: %s across %d %s groups\n", util.FormatDuration(report.Total), len(report.Rows), report.GroupBy)
	fmt.Fprintln(w)

	rows := report.Rows
	if len(rows) > summaryTop {
		rows = rows[:summaryTop]
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %s %s %8s %6s\n",
			util.PadToWidth(row.Key, 24, true),
			util.CreateProgressBar(row.Percent, 22),
			util.FormatDuration(row.Duration),
			util.FormatPercent(row.Percent))
	}
	if extra := len(report.Rows) - len(rows); extra > 0 {
		fmt.Fprintf(w, "  ... and %d more\n", extra)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	return nil
}
