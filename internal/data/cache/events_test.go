package cache

import (
	"fmt"
	"testing"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(app int64, title string, sec int64) model.RawEvent {
	return model.RawEvent{AppID: app, AppName: "app", WindowTitle: title, EventType: "focus", OccurredAtSec: sec}
}

func TestMergeOrdersAndDeduplicates(t *testing.T) {
	c := NewEventCache()

	added := c.Merge([]model.RawEvent{ev(1, "A", 1800), ev(1, "A", 1000), ev(2, "B", 1500)})
	assert.Equal(t, 3, added)

	added = c.Merge([]model.RawEvent{ev(2, "B", 1500), ev(3, "C", 1200)})
	assert.Equal(t, 1, added)

	events := c.Events()
	require.Len(t, events, 4)
	for i := 1; i < len(events); i++ {
		assert.LessOrEqual(t, events[i-1].OccurredAtSec, events[i].OccurredAtSec)
	}

	minSec, maxSec, ok := c.Bounds()
	require.True(t, ok)
	assert.Equal(t, int64(1000), minSec)
	assert.Equal(t, int64(1800), maxSec)
}

func TestMergeIdempotent(t *testing.T) {
	batch := []model.RawEvent{ev(1, "A", 10), ev(2, "B", 20), ev(1, "A", 30)}

	once := NewEventCache()
	once.Merge(batch)

	twice := NewEventCache()
	twice.Merge(batch)
	assert.Zero(t, twice.Merge(batch))

	assert.Equal(t, once.Events(), twice.Events())
	assert.Equal(t, once.Len(), twice.Len())
}

func TestMergeCommutative(t *testing.T) {
	forward := []model.RawEvent{ev(1, "A", 100), ev(2, "B", 100), ev(1, "C", 200)}
	backfill := []model.RawEvent{ev(3, "D", 50), ev(2, "B", 100), ev(1, "A", 60)}

	a := NewEventCache()
	a.Merge(forward)
	a.Merge(backfill)

	b := NewEventCache()
	b.Merge(backfill)
	b.Merge(forward)

	assert.Equal(t, a.Events(), b.Events())
}

func TestMergeTieBreaksByAppThenTitle(t *testing.T) {
	c := NewEventCache()
	c.Merge([]model.RawEvent{ev(2, "A", 100), ev(1, "Z", 100)})
	c.Merge([]model.RawEvent{ev(1, "B", 100), ev(0, "X", 90)})

	var got []string
	for _, e := range c.Events() {
		got = append(got, fmt.Sprintf("%d/%s", e.AppID, e.WindowTitle))
	}
	assert.Equal(t, []string{"0/X", "1/B", "1/Z", "2/A"}, got)
}

func TestMergeEmptyBatch(t *testing.T) {
	c := NewEventCache()
	assert.Zero(t, c.Merge(nil))
	_, _, ok := c.Bounds()
	assert.False(t, ok)
}

func TestBoundsMonotonic(t *testing.T) {
	c := NewEventCache()
	batches := [][]model.RawEvent{
		{ev(1, "A", 500), ev(1, "B", 600)},
		{ev(1, "C", 550)},
		{ev(1, "D", 100)},
		{},
		{ev(1, "A", 500)},
		{ev(1, "E", 900), ev(1, "F", 300)},
	}

	var prevMin, prevMax int64
	for i, batch := range batches {
		c.Merge(batch)
		minSec, maxSec, ok := c.Bounds()
		require.True(t, ok)
		if i > 0 {
			assert.LessOrEqual(t, minSec, prevMin)
			assert.GreaterOrEqual(t, maxSec, prevMax)
		}
		prevMin, prevMax = minSec, maxSec
	}
	assert.Equal(t, int64(100), prevMin)
	assert.Equal(t, int64(900), prevMax)
}

func TestEventsReturnsSnapshot(t *testing.T) {
	c := NewEventCache()
	c.Merge([]model.RawEvent{ev(1, "A", 10)})
	events := c.Events()
	events[0].WindowTitle = "changed"
	assert.Equal(t, "A", c.Events()[0].WindowTitle)
}

func TestPlan(t *testing.T) {
	t.Run("empty cache fetches whole buffered range", func(t *testing.T) {
		c := NewEventCache()
		req, ok := c.Plan(1_000.4, 9_999.2)
		require.True(t, ok)
		assert.Equal(t, FetchRequest{Kind: FetchInitial, StartMs: 1_000, EndMs: 10_000}, req)
	})

	c := NewEventCache()
	c.Merge([]model.RawEvent{ev(1, "A", 100), ev(1, "B", 200)})

	tests := []struct {
		name     string
		start    float64
		end      float64
		want     FetchRequest
		wantPlan bool
	}{
		{"covered", 100_000, 200_999, FetchRequest{}, false},
		{"backfill before min", 50_000, 150_000, FetchRequest{Kind: FetchBackfill, StartMs: 50_000, EndMs: 99_999}, true},
		{"backfill clipped to buffered end", 10_000, 20_000, FetchRequest{Kind: FetchBackfill, StartMs: 10_000, EndMs: 20_000}, true},
		{"backfill wins over forward", 50_000, 500_000, FetchRequest{Kind: FetchBackfill, StartMs: 50_000, EndMs: 99_999}, true},
		{"forward past max", 150_000, 400_000, FetchRequest{Kind: FetchForward, StartMs: 201_000, EndMs: 400_000}, true},
		{"forward starting at next second", 150_000, 201_000, FetchRequest{Kind: FetchForward, StartMs: 201_000, EndMs: 201_000}, true},
		{"swapped input", 400_000, 150_000, FetchRequest{Kind: FetchForward, StartMs: 201_000, EndMs: 400_000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ok := c.Plan(tt.start, tt.end)
			assert.Equal(t, tt.wantPlan, ok)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestFetchKindString(t *testing.T) {
	assert.Equal(t, "initial", FetchInitial.String())
	assert.Equal(t, "backfill", FetchBackfill.String())
	assert.Equal(t, "forward", FetchForward.String())
}

func TestFetchRequestOrder(t *testing.T) {
	assert.Equal(t, model.NewestFirst, FetchRequest{Kind: FetchInitial}.Order())
	assert.Equal(t, model.NewestFirst, FetchRequest{Kind: FetchBackfill}.Order())
	assert.Equal(t, model.OldestFirst, FetchRequest{Kind: FetchForward}.Order())
}
