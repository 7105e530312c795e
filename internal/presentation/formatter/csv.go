package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
)

type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

func (f *CSVFormatter) Format(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)

	headers := []string{headerFor(report.GroupBy), "App", "Start", "Seconds", "Percent", "Intervals"}
	if err := cw.Write(headers); err != nil {
		return err
	}

	for _, row := range report.Rows {
		record := []string{
			row.Key,
			row.Detail,
			row.Start,
			fmt.Sprintf("%.0f", row.Duration.Seconds()),
			fmt.Sprintf("%.2f", row.Percent),
			fmt.Sprintf("%d", row.Intervals),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func headerFor(groupBy string) string {
	switch groupBy {
	case "window":
		return "Window"
	case "day":
		return "Day"
	case "hour":
		return "Hour"
	default:
		return "App"
	}
}
