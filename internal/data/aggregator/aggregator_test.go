package aggregator

import (
	"testing"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []model.RawEvent {
	return []model.RawEvent{
		{AppID: 1, AppName: "editor", WindowTitle: "A", EventType: "focus", OccurredAtSec: 1000},
		{AppID: 2, AppName: "browser", WindowTitle: "B", EventType: "focus", OccurredAtSec: 1500},
		{AppID: 1, AppName: "editor", WindowTitle: "A", EventType: "focus", OccurredAtSec: 1800},
	}
}

func TestBuildIntervals(t *testing.T) {
	intervals := BuildIntervals(sampleEvents(), 2000)
	require.Len(t, intervals, 3)

	want := [][3]int64{{1, 1000, 1500}, {2, 1500, 1800}, {1, 1800, 2000}}
	for i, w := range want {
		assert.Equal(t, w[0], intervals[i].AppID)
		assert.Equal(t, w[1], intervals[i].StartSec)
		assert.Equal(t, w[2], intervals[i].EndSec)
	}
	assert.Equal(t, "editor", intervals[0].AppName)
	assert.NotEqual(t, intervals[0].ID, intervals[2].ID, "recurring titles get distinct ids")
}

func TestBuildIntervalsDropsDegenerate(t *testing.T) {
	events := []model.RawEvent{
		{AppID: 1, WindowTitle: "A", OccurredAtSec: 100},
		{AppID: 2, WindowTitle: "B", OccurredAtSec: 100},
		{AppID: 3, WindowTitle: "C", OccurredAtSec: 200},
		{AppID: 4, WindowTitle: "future", OccurredAtSec: 500},
	}
	intervals := BuildIntervals(events, 300)
	require.Len(t, intervals, 2)
	assert.Equal(t, int64(2), intervals[0].AppID)
	assert.Equal(t, int64(3), intervals[1].AppID)
	assert.Equal(t, int64(300), intervals[1].EndSec, "span ends at now, not at a future event")
}

func TestBuildIntervalsStableIDs(t *testing.T) {
	full := BuildIntervals(sampleEvents(), 2000)

	backfilled := append([]model.RawEvent{{AppID: 9, WindowTitle: "old", OccurredAtSec: 900}}, sampleEvents()...)
	grown := BuildIntervals(backfilled, 2000)

	require.Len(t, grown, 4)
	for i := range full {
		assert.Equal(t, full[i].ID, grown[i+1].ID)
	}
}

func TestAggregateFullScope(t *testing.T) {
	intervals := BuildIntervals(sampleEvents(), 2000)
	data := Aggregate(intervals, selection.None, 2_000_000)

	assert.Equal(t, 1000*time.Second, data.Total)
	require.Len(t, data.Apps, 2)
	assert.Equal(t, int64(1), data.Apps[0].AppID)
	assert.Equal(t, 700*time.Second, data.Apps[0].Duration)
	assert.InDelta(t, 70.0, data.Apps[0].Percent, 1e-9)
	assert.Len(t, data.Apps[0].IntervalIDs, 2)
	assert.Equal(t, int64(2), data.Apps[1].AppID)
	assert.InDelta(t, 30.0, data.Apps[1].Percent, 1e-9)

	require.Len(t, data.Windows, 3)
	assert.Equal(t, int64(1800), data.Windows[0].StartSec)
	assert.Equal(t, int64(1500), data.Windows[1].StartSec)
	assert.Equal(t, int64(1000), data.Windows[2].StartSec)
	assert.InDelta(t, 50.0, data.Windows[2].Percent, 1e-9)
}

func TestAggregateRangeScope(t *testing.T) {
	intervals := BuildIntervals(sampleEvents(), 2000)
	data := Aggregate(intervals, selection.Range(1_200_000, 1_600_000), 2_000_000)

	assert.Equal(t, 400*time.Second, data.Total)
	require.Len(t, data.Apps, 2)
	assert.Equal(t, int64(1), data.Apps[0].AppID)
	assert.Equal(t, 300*time.Second, data.Apps[0].Duration)
	assert.InDelta(t, 75.0, data.Apps[0].Percent, 1e-9)
	assert.Equal(t, 100*time.Second, data.Apps[1].Duration)
	assert.InDelta(t, 25.0, data.Apps[1].Percent, 1e-9)

	require.Len(t, data.Windows, 2)
	assert.Equal(t, 100*time.Second, data.Windows[0].Duration)
	assert.Equal(t, 300*time.Second, data.Windows[1].Duration)
}

func TestAggregateRangeReversedAndClippedToNow(t *testing.T) {
	intervals := BuildIntervals(sampleEvents(), 2000)

	reversed := Aggregate(intervals, selection.Range(1_600_000, 1_200_000), 2_000_000)
	assert.Equal(t, 400*time.Second, reversed.Total)

	// the selection extends past now
	future := Aggregate(intervals, selection.Range(1_900_000, 5_000_000), 1_950_000)
	assert.Equal(t, 50*time.Second, future.Total)
}

func TestAggregateIDSetScope(t *testing.T) {
	intervals := BuildIntervals(sampleEvents(), 2000)

	data := Aggregate(intervals, selection.IDSet([]string{intervals[1].ID}), 2_000_000)
	assert.Equal(t, 300*time.Second, data.Total)
	require.Len(t, data.Apps, 1)
	assert.Equal(t, int64(2), data.Apps[0].AppID)
	assert.InDelta(t, 100.0, data.Apps[0].Percent, 1e-9)

	empty := Aggregate(intervals, selection.Selection{Kind: selection.KindIDSet}, 2_000_000)
	assert.Equal(t, 1000*time.Second, empty.Total, "empty id set aggregates everything")
}

func TestAggregateEmptyScope(t *testing.T) {
	intervals := BuildIntervals(sampleEvents(), 2000)

	tests := []struct {
		name string
		sel  selection.Selection
		in   []model.Interval
	}{
		{"no intervals", selection.None, nil},
		{"range outside data", selection.Range(10_000_000, 20_000_000), intervals},
		{"point range", selection.Range(1_200_000, 1_200_000), intervals},
		{"unknown ids", selection.IDSet([]string{"nope"}), intervals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := Aggregate(tt.in, tt.sel, 2_000_000)
			assert.Zero(t, data.Total)
			assert.Empty(t, data.Apps)
			assert.Empty(t, data.Windows)
		})
	}
}

func TestAggregateConservation(t *testing.T) {
	var events []model.RawEvent
	for i := int64(0); i < 40; i++ {
		events = append(events, model.RawEvent{AppID: i % 7, WindowTitle: "w", OccurredAtSec: 10_000 + i*i*3})
	}
	intervals := BuildIntervals(events, 20_000)

	scopes := []selection.Selection{
		selection.None,
		selection.Range(10_500_000, 13_333_333),
		selection.IDSet(IDsForApp(intervals, 3)),
	}
	for _, sel := range scopes {
		data := Aggregate(intervals, sel, 20_000_000)
		require.Positive(t, data.Total)

		var pct float64
		var sum time.Duration
		for _, app := range data.Apps {
			pct += app.Percent
			sum += app.Duration
		}
		assert.InDelta(t, 100.0, pct, 1e-6)
		assert.Equal(t, data.Total, sum)
	}
}

func TestCovering(t *testing.T) {
	intervals := BuildIntervals(sampleEvents(), 2000)

	iv, ok := Covering(intervals, 1_500_000)
	require.True(t, ok)
	assert.Equal(t, int64(2), iv.AppID)

	iv, ok = Covering(intervals, 1_999_999)
	require.True(t, ok)
	assert.Equal(t, int64(1800), iv.StartSec)

	_, ok = Covering(intervals, 999_999)
	assert.False(t, ok)
	_, ok = Covering(intervals, 2_000_000)
	assert.False(t, ok)
}

func TestSpanAndIDsForApp(t *testing.T) {
	intervals := BuildIntervals(sampleEvents(), 2000)

	ids := IDsForApp(intervals, 1)
	require.Len(t, ids, 2)

	span, ok := Span(intervals, ids)
	require.True(t, ok)
	assert.Equal(t, model.TimeRange{StartMs: 1_000_000, EndMs: 2_000_000}, span)

	_, ok = Span(intervals, []string{"missing"})
	assert.False(t, ok)
}
