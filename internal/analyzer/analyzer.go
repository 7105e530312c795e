package analyzer

import (
	"context"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/application/viewer"
	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/presentation/formatter"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// Group-by values
const (
	GroupByApp    = "app"
	GroupByWindow = "window"
	GroupByDay    = "day"
	GroupByHour   = "hour"
)

type Config struct {
	OutputFormat string
	Timezone     string

	// Scope: From/To win over the Duration lookback
	Duration string
	From     string
	To       string

	// Optional sub-range; the report covers only the selection when set
	SelectFrom string
	SelectTo   string

	GroupBy    string
	Limit      int
	FetchLimit int

	// Now defaults to the global time provider
	Now func() time.Time
}

// Validate fills defaults and rejects unknown values
func (c *Config) Validate() error {
	if c.OutputFormat == "" {
		c.OutputFormat = "table"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Duration == "" && c.From == "" {
		c.Duration = "1d"
	}
	switch c.GroupBy {
	case "":
		c.GroupBy = GroupByApp
	case GroupByApp, GroupByWindow, GroupByDay, GroupByHour:
	default:
		return fmt.Errorf("unsupported group-by: %s", c.GroupBy)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative: %d", c.Limit)
	}
	if (c.SelectFrom == "") != (c.SelectTo == "") {
		return fmt.Errorf("select-from and select-to must be given together")
	}
	if c.Now == nil {
		c.Now = util.GetTimeProvider().Now
	}
	return nil
}

// Analyzer builds one-shot usage reports from the event store
type Analyzer struct {
	config    *Config
	source    viewer.Source
	formatter formatter.Formatter
	loc       *time.Location
}

func New(config *Config, source viewer.Source) (*Analyzer, error) {
	if source == nil {
		return nil, fmt.Errorf("report source is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	loc, err := util.LoadLocation(config.Timezone)
	if err != nil {
		return nil, err
	}
	f, err := formatter.New(config.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &Analyzer{config: config, source: source, formatter: f, loc: loc}, nil
}

// Run builds the report and writes it to w
func (a *Analyzer) Run(ctx context.Context, w io.Writer) error {
	startTime := time.Now()

	report, err := a.BuildReport(ctx)
	if err != nil {
		return err
	}

	outputStart := time.Now()
	err = a.formatter.Format(w, report)
	util.LogDebug(fmt.Sprintf("Report output duration: %v, total: %v", time.Since(outputStart), time.Since(startTime)))
	return err
}

// BuildReport loads every event of the scope and groups its active time
func (a *Analyzer) BuildReport(ctx context.Context) (formatter.Report, error) {
	now := a.config.Now().In(a.loc)

	// Phase 1: resolve the scope
	from, to, err := a.resolveRange(now)
	if err != nil {
		return formatter.Report{}, err
	}
	scopeStart, scopeEnd := from, to
	if a.config.SelectFrom != "" {
		if scopeStart, err = parseTime(a.config.SelectFrom, a.loc); err != nil {
			return formatter.Report{}, fmt.Errorf("invalid select-from: %w", err)
		}
		if scopeEnd, err = parseTime(a.config.SelectTo, a.loc); err != nil {
			return formatter.Report{}, fmt.Errorf("invalid select-to: %w", err)
		}
		if scopeEnd.Before(scopeStart) {
			scopeStart, scopeEnd = scopeEnd, scopeStart
		}
	}

	// Phase 2: load the range through a session
	session, err := viewer.NewSession(ctx, a.source, viewer.Options{
		Span:       to.Sub(from),
		Location:   a.loc,
		FetchLimit: a.config.FetchLimit,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		return formatter.Report{}, err
	}
	defer session.Close()

	loadStart := time.Now()
	session.Navigate(float64(from.UnixMilli()), float64(to.UnixMilli()))
	added := session.EnsureCoverage(ctx)
	util.LogDebug(fmt.Sprintf("Loaded %d events in %v", added, time.Since(loadStart)))

	// Phase 3: aggregate the scope
	startMs, endMs := float64(scopeStart.UnixMilli()), float64(scopeEnd.UnixMilli())
	session.SelectRange(startMs, endMs)
	data := session.Aggregated()

	// Phase 4: group
	var rows []formatter.ReportRow
	switch a.config.GroupBy {
	case GroupByWindow:
		rows = windowRows(data.Windows, a.loc)
	case GroupByDay, GroupByHour:
		rows = a.bucketRows(session.Intervals(), startMs, math.Min(endMs, float64(now.UnixMilli())), data.Total)
	default:
		rows = appRows(data.Apps)
	}

	if a.config.Limit > 0 && len(rows) > a.config.Limit {
		util.LogDebug(fmt.Sprintf("Applying result limit: %d -> %d", len(rows), a.config.Limit))
		rows = rows[:a.config.Limit]
	}

	return formatter.Report{
		Title:   "Activity report",
		Scope:   fmt.Sprintf("%s → %s", scopeStart.Format("2006-01-02 15:04"), scopeEnd.Format("2006-01-02 15:04")),
		GroupBy: a.config.GroupBy,
		Total:   data.Total,
		Rows:    rows,
	}, nil
}

func (a *Analyzer) resolveRange(now time.Time) (time.Time, time.Time, error) {
	to := now
	if a.config.To != "" {
		t, err := parseTime(a.config.To, a.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
		}
		to = t
	}

	var from time.Time
	if a.config.From != "" {
		t, err := parseTime(a.config.From, a.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
		}
		from = t
	} else {
		t, err := parseDuration(a.config.Duration, to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}

	if to.Before(from) {
		from, to = to, from
	}
	return from, to, nil
}

func appRows(apps []model.AppUsage) []formatter.ReportRow {
	rows := make([]formatter.ReportRow, 0, len(apps))
	for _, app := range apps {
		rows = append(rows, formatter.ReportRow{
			Key:       app.AppName,
			Duration:  app.Duration,
			Percent:   app.Percent,
			Intervals: len(app.IntervalIDs),
		})
	}
	return rows
}

// windowRows lists window rows oldest first
func windowRows(windows []model.WindowUsage, loc *time.Location) []formatter.ReportRow {
	sorted := append([]model.WindowUsage(nil), windows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartSec < sorted[j].StartSec
	})

	rows := make([]formatter.ReportRow, 0, len(sorted))
	for _, win := range sorted {
		rows = append(rows, formatter.ReportRow{
			Key:       win.WindowTitle,
			Detail:    win.AppName,
			Start:     time.Unix(win.StartSec, 0).In(loc).Format("2006-01-02 15:04:05"),
			Duration:  win.Duration,
			Percent:   win.Percent,
			Intervals: 1,
		})
	}
	return rows
}

type bucket struct {
	start     time.Time
	ms        int64
	intervals int
}

// bucketRows splits each interval's in-scope time across calendar days or hours
func (a *Analyzer) bucketRows(intervals []model.Interval, startMs, endMs float64, total time.Duration) []formatter.ReportRow {
	buckets := make(map[int64]*bucket)
	for _, iv := range intervals {
		lo := math.Max(float64(iv.StartMs()), startMs)
		hi := math.Min(float64(iv.EndMs()), endMs)
		if hi <= lo {
			continue
		}

		cur := time.UnixMilli(int64(lo)).In(a.loc)
		end := time.UnixMilli(int64(hi)).In(a.loc)
		for cur.Before(end) {
			bStart := a.truncate(cur)
			bEnd := a.next(bStart)
			if end.Before(bEnd) {
				bEnd = end
			}

			b, ok := buckets[bStart.Unix()]
			if !ok {
				b = &bucket{start: bStart}
				buckets[bStart.Unix()] = b
			}
			b.ms += bEnd.Sub(cur).Milliseconds()
			b.intervals++
			cur = bEnd
		}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].start.Before(ordered[j].start)
	})

	layout := "2006-01-02"
	if a.config.GroupBy == GroupByHour {
		layout = "2006-01-02 15:00"
	}
	totalMs := total.Milliseconds()

	rows := make([]formatter.ReportRow, 0, len(ordered))
	for _, b := range ordered {
		var pct float64
		if totalMs > 0 {
			pct = float64(b.ms) / float64(totalMs) * 100
		}
		rows = append(rows, formatter.ReportRow{
			Key:       b.start.Format(layout),
			Duration:  time.Duration(b.ms) * time.Millisecond,
			Percent:   pct,
			Intervals: b.intervals,
		})
	}
	return rows
}

func (a *Analyzer) truncate(t time.Time) time.Time {
	if a.config.GroupBy == GroupByHour {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, a.loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.loc)
}

func (a *Analyzer) next(bucketStart time.Time) time.Time {
	if a.config.GroupBy == GroupByHour {
		return bucketStart.Add(time.Hour)
	}
	return bucketStart.AddDate(0, 0, 1)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts RFC3339 or a local date/time in loc
func parseTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time: %s", value)
}

var durationPattern = regexp.MustCompile(`(\d+)([hymwd])`)

// parseDuration returns now minus a lookback such as "2d", "1w3d" or "12h"
func parseDuration(durationStr string, now time.Time) (time.Time, error) {
	if durationStr == "" {
		return now, nil
	}

	matches := durationPattern.FindAllStringSubmatch(durationStr, -1)
	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid duration format: %s", durationStr)
	}

	var totalDuration time.Duration

	for _, match := range matches {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid number in duration: %s", match[1])
		}

		switch match[2] {
		case "h":
			totalDuration += time.Duration(value) * time.Hour
		case "d":
			totalDuration += time.Duration(value) * 24 * time.Hour
		case "w":
			totalDuration += time.Duration(value) * 7 * 24 * time.Hour
		case "m":
			// months approximate as 30 days
			totalDuration += time.Duration(value) * 30 * 24 * time.Hour
		case "y":
			totalDuration += time.Duration(value) * 365 * 24 * time.Hour
		}
	}

	return now.Add(-totalDuration), nil
}
