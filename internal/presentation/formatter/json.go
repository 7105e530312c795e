package formatter

import (
	"io"

	"github.com/bytedance/sonic"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// jsonRow mirrors ReportRow with durations in seconds
type jsonRow struct {
	Key       string  `json:"key"`
	Detail    string  `json:"detail,omitempty"`
	Start     string  `json:"start,omitempty"`
	Seconds   float64 `json:"seconds"`
	Percent   float64 `json:"percent"`
	Intervals int     `json:"intervals"`
}

type jsonReport struct {
	Title        string    `json:"title"`
	Scope        string    `json:"scope"`
	GroupBy      string    `json:"groupBy"`
	TotalSeconds float64   `json:"totalSeconds"`
	Rows         []jsonRow `json:"rows"`
}

func (f *JSONFormatter) Format(w io.Writer, report Report) error {
	out := jsonReport{
		Title:        report.Title,
		Scope:        report.Scope,
		GroupBy:      report.GroupBy,
		TotalSeconds: report.Total.Seconds(),
		Rows:         make([]jsonRow, 0, len(report.Rows)),
	}
	for _, r := range report.Rows {
		out.Rows = append(out.Rows, jsonRow{
			Key:       r.Key,
			Detail:    r.Detail,
			Start:     r.Start,
			Seconds:   r.Duration.Seconds(),
			Percent:   r.Percent,
			Intervals: r.Intervals,
		})
	}

	data, err := sonic.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
