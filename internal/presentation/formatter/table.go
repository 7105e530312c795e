package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-activity-monitor/internal/util"
)

// maxKeyWidth caps the first column so long window titles stay on one line
const maxKeyWidth = 48

type TableFormatter struct {
	headers []string
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		headers: []string{"", "App", "Start", "Duration", "Share", "Intervals"},
	}
}

func (f *TableFormatter) Format(w io.Writer, report Report) error {
	headers := append([]string(nil), f.headers...)
	headers[0] = headerFor(report.GroupBy)

	rows := make([][]string, 0, len(report.Rows)+1)
	for _, row := range report.Rows {
		rows = append(rows, []string{
			row.Key,
			row.Detail,
			row.Start,
			util.FormatDuration(row.Duration),
			util.FormatPercent(row.Percent),
			fmt.Sprintf("%d", row.Intervals),
		})
	}
	total := []string{"Total", "", "", util.FormatDuration(report.Total), "", ""}

	widths := f.calculateColumnWidths(headers, append(rows, total))

	if report.Title != "" {
		fmt.Fprintln(w, report.Title)
	}
	if report.Scope != "" {
		fmt.Fprintf(w, "Scope: %s\n", report.Scope)
	}

	f.printBorder(w, widths, "top")
	f.printRow(w, headers, widths)
	f.printBorder(w, widths, "middle")
	for _, row := range rows {
		f.printRow(w, row, widths)
	}
	f.printBorder(w, widths, "middle")
	f.printRow(w, total, widths)
	f.printBorder(w, widths, "bottom")

	return nil
}

// calculateColumnWidths sizes each column to its widest cell in terminal cells
func (f *TableFormatter) calculateColumnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = util.GetDisplayWidth(header)
	}
	for _, row := range rows {
		for i, value := range row {
			if w := util.GetDisplayWidth(value); w > widths[i] {
				widths[i] = w
			}
		}
	}
	if widths[0] > maxKeyWidth {
		widths[0] = maxKeyWidth
	}
	return widths
}

// printBorder prints table borders (top, middle, bottom)
func (f *TableFormatter) printBorder(w io.Writer, widths []int, borderType string) {
	var left, middle, right string

	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	var b strings.Builder
	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	fmt.Fprintln(w, b.String())
}

// printRow left-aligns the text columns and right-aligns the numbers
func (f *TableFormatter) printRow(w io.Writer, values []string, widths []int) {
	var b strings.Builder
	b.WriteString("│")
	for i, value := range values {
		b.WriteString(" ")
		b.WriteString(util.PadToWidth(value, widths[i], i < 3))
		b.WriteString(" │")
	}
	fmt.Fprintln(w, b.String())
}
