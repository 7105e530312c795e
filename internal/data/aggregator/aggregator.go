package aggregator

import (
	"math"
	"sort"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/selection"
)

// AggregatedData is the usage breakdown of one scope.
type AggregatedData struct {
	Total   time.Duration       `json:"total"`
	Apps    []model.AppUsage    `json:"apps"`
	Windows []model.WindowUsage `json:"windows"`
}

// BuildIntervals turns ordered events into active spans. Each span ends at the
// next event of any app, or at nowSec for the latest one. Spans that would be
// empty or inverted are dropped.
func BuildIntervals(events []model.RawEvent, nowSec int64) []model.Interval {
	intervals := make([]model.Interval, 0, len(events))
	for i, e := range events {
		end := nowSec
		if i+1 < len(events) && events[i+1].OccurredAtSec < end {
			end = events[i+1].OccurredAtSec
		}
		if end <= e.OccurredAtSec {
			continue
		}
		intervals = append(intervals, model.Interval{
			ID:          e.Key().ID(),
			AppID:       e.AppID,
			AppName:     e.AppName,
			WindowTitle: e.WindowTitle,
			StartSec:    e.OccurredAtSec,
			EndSec:      end,
		})
	}
	return intervals
}

// scoped is an interval with its duration inside the aggregation scope
type scoped struct {
	interval model.Interval
	ms       int64
}

// Aggregate reduces intervals to per-app and per-window usage within the
// scope implied by sel. None and empty id sets cover everything; ranges clip
// each interval to [start, min(end, now)].
func Aggregate(intervals []model.Interval, sel selection.Selection, nowMs float64) AggregatedData {
	var in []scoped
	switch {
	case sel.Kind == selection.KindRange:
		r, _ := sel.TimeRange()
		end := math.Min(r.EndMs, nowMs)
		for _, iv := range intervals {
			if ms := clippedMs(iv, r.StartMs, end); ms > 0 {
				in = append(in, scoped{interval: iv, ms: ms})
			}
		}
	case sel.Kind == selection.KindIDSet && len(sel.IDs) > 0:
		for _, iv := range intervals {
			if sel.Contains(iv.ID) {
				in = append(in, scoped{interval: iv, ms: iv.Duration().Milliseconds()})
			}
		}
	default:
		for _, iv := range intervals {
			in = append(in, scoped{interval: iv, ms: iv.Duration().Milliseconds()})
		}
	}

	var totalMs int64
	for _, s := range in {
		totalMs += s.ms
	}
	if totalMs <= 0 {
		return AggregatedData{Apps: []model.AppUsage{}, Windows: []model.WindowUsage{}}
	}

	return AggregatedData{
		Total:   time.Duration(totalMs) * time.Millisecond,
		Apps:    byApp(in, totalMs),
		Windows: byWindow(in, totalMs),
	}
}

func clippedMs(iv model.Interval, startMs, endMs float64) int64 {
	lo := math.Max(iv.StartMs(), startMs)
	hi := math.Min(iv.EndMs(), endMs)
	if hi <= lo {
		return 0
	}
	return int64(math.Round(hi - lo))
}

func percent(ms, totalMs int64) float64 {
	return float64(ms) * 100 / float64(totalMs)
}

// byApp groups by app id, largest first
func byApp(in []scoped, totalMs int64) []model.AppUsage {
	index := make(map[int64]int)
	var sums []int64
	var apps []model.AppUsage
	for _, s := range in {
		i, ok := index[s.interval.AppID]
		if !ok {
			i = len(apps)
			index[s.interval.AppID] = i
			apps = append(apps, model.AppUsage{AppID: s.interval.AppID, AppName: s.interval.AppName})
			sums = append(sums, 0)
		}
		sums[i] += s.ms
		apps[i].IntervalIDs = append(apps[i].IntervalIDs, s.interval.ID)
	}

	for i := range apps {
		apps[i].Duration = time.Duration(sums[i]) * time.Millisecond
		apps[i].Percent = percent(sums[i], totalMs)
	}
	sort.SliceStable(apps, func(i, j int) bool {
		if apps[i].Duration != apps[j].Duration {
			return apps[i].Duration > apps[j].Duration
		}
		return apps[i].AppID < apps[j].AppID
	})
	return apps
}

// byWindow lists one row per interval, newest first
func byWindow(in []scoped, totalMs int64) []model.WindowUsage {
	rows := make([]model.WindowUsage, 0, len(in))
	for _, s := range in {
		rows = append(rows, model.WindowUsage{
			IntervalID:  s.interval.ID,
			AppID:       s.interval.AppID,
			AppName:     s.interval.AppName,
			WindowTitle: s.interval.WindowTitle,
			StartSec:    s.interval.StartSec,
			EndSec:      s.interval.EndSec,
			Duration:    time.Duration(s.ms) * time.Millisecond,
			Percent:     percent(s.ms, totalMs),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].StartSec > rows[j].StartSec
	})
	return rows
}

// Covering returns the interval active at ms, if any
func Covering(intervals []model.Interval, ms float64) (model.Interval, bool) {
	i := sort.Search(len(intervals), func(i int) bool {
		return intervals[i].EndMs() > ms
	})
	if i < len(intervals) && intervals[i].StartMs() <= ms {
		return intervals[i], true
	}
	return model.Interval{}, false
}

// Span returns the time range covered by the intervals with the given ids
func Span(intervals []model.Interval, ids []string) (model.TimeRange, bool) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	var out model.TimeRange
	found := false
	for _, iv := range intervals {
		if _, ok := want[iv.ID]; !ok {
			continue
		}
		if !found || iv.StartMs() < out.StartMs {
			out.StartMs = iv.StartMs()
		}
		if !found || iv.EndMs() > out.EndMs {
			out.EndMs = iv.EndMs()
		}
		found = true
	}
	return out, found
}

// IDsForApp returns the ids of the intervals belonging to appID
func IDsForApp(intervals []model.Interval, appID int64) []string {
	var ids []string
	for _, iv := range intervals {
		if iv.AppID == appID {
			ids = append(ids, iv.ID)
		}
	}
	return ids
}
