package ticks

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mppForMinutes returns the msPerPixel at which the default 120px tick spans the given minutes
func mppForMinutes(minutes float64) float64 {
	return minutes * 60_000 / 120
}

func TestChooseStep(t *testing.T) {
	tests := []struct {
		name    string
		desired float64
		want    int
	}{
		{"below table", 0, 1},
		{"exact entry", 15, 15},
		{"nearest above", 55, 60},
		{"tie goes to smaller", 3.5, 2},
		{"tie between 30 and 60", 45, 30},
		{"beyond table", 1e9, 43200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseStep(mppForMinutes(tt.desired), 120))
		})
	}
}

func TestLabelForStep(t *testing.T) {
	assert.Equal(t, LabelMinutes, LabelForStep(1))
	assert.Equal(t, LabelMinutes, LabelForStep(30))
	assert.Equal(t, LabelHours, LabelForStep(60))
	assert.Equal(t, LabelHours, LabelForStep(720))
	assert.Equal(t, LabelDays, LabelForStep(1440))
	assert.Equal(t, LabelDays, LabelForStep(20160))
	assert.Equal(t, LabelMonths, LabelForStep(43200))
}

func TestSubdivisions(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.5, 0.75}, Subdivisions(160))
	assert.Equal(t, []float64{0.5}, Subdivisions(159.9))
	assert.Equal(t, []float64{0.5}, Subdivisions(60))
	assert.Nil(t, Subdivisions(59))
}

func assertCovers(t *testing.T, v viewport.Viewport, ticks []model.Tick) {
	t.Helper()
	require.NotEmpty(t, ticks)

	start, end := v.BufferedRange()
	assert.LessOrEqual(t, ticks[0].Ms, start)
	assert.GreaterOrEqual(t, ticks[len(ticks)-1].NextMs, end)

	for i, tick := range ticks {
		assert.Greater(t, tick.NextMs, tick.Ms, "tick %d", i)
		if i > 0 {
			assert.Equal(t, ticks[i-1].NextMs, tick.Ms, "gap or overlap before tick %d", i)
			assert.Greater(t, tick.Ms, ticks[i-1].Ms, "duplicate tick %d", i)
		}
	}
}

func TestGenerateCoverage(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	base := float64(time.Date(2024, 3, 9, 12, 0, 0, 0, ny).UnixMilli())

	for _, minutes := range []float64{0.01, 1, 7, 30, 90, 400, 1440, 5000, 20160, 43200, 500000} {
		for _, width := range []int{1, 37, 800} {
			v := viewport.Viewport{VisibleStartMs: base + 123.4, MsPerPixel: viewport.ClampMsPerPixel(mppForMinutes(minutes)), WidthPx: width}
			for _, loc := range []*time.Location{time.UTC, ny} {
				assertCovers(t, v, NewGenerator(120, loc).Generate(v))
			}
		}
	}
}

func TestGenerateUniformHours(t *testing.T) {
	v := viewport.New(1_700_000_000_000, 1_700_000_000_000+30_000*600, 600)
	g := NewGenerator(120, time.UTC)

	step, label := g.Step(v)
	require.Equal(t, 60, step)
	require.Equal(t, LabelHours, label)

	ticks := g.Generate(v)
	assertCovers(t, v, ticks)
	for _, tick := range ticks {
		assert.Zero(t, int64(tick.Ms)%3_600_000)
		assert.Equal(t, 3_600_000.0, tick.NextMs-tick.Ms)
		assert.Equal(t, []float64{0.5}, tick.Subdivisions)
	}
}

func TestGenerateDaysAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)
	v := viewport.Viewport{VisibleStartMs: float64(start.UnixMilli()), MsPerPixel: mppForMinutes(1440), WidthPx: 100}
	g := NewGenerator(120, ny)

	_, label := g.Step(v)
	require.Equal(t, LabelDays, label)

	ticks := g.Generate(v)
	assertCovers(t, v, ticks)

	var sawShortDay bool
	for _, tick := range ticks {
		local := time.UnixMilli(int64(tick.Ms)).In(ny)
		assert.Equal(t, 0, local.Hour())
		assert.Equal(t, 0, local.Minute())

		length := time.Duration(tick.NextMs-tick.Ms) * time.Millisecond
		if local.Month() == time.March && local.Day() == 10 {
			assert.Equal(t, 23*time.Hour, length)
			sawShortDay = true
		} else {
			assert.Equal(t, 24*time.Hour, length)
		}
	}
	assert.True(t, sawShortDay)
}

func TestGenerateMonthsFollowCalendar(t *testing.T) {
	start := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	v := viewport.Viewport{VisibleStartMs: float64(start.UnixMilli()), MsPerPixel: mppForMinutes(43200), WidthPx: 50}
	g := NewGenerator(120, time.UTC)

	ticks := g.Generate(v)
	assertCovers(t, v, ticks)
	require.Len(t, ticks, 3)

	day := 24 * time.Hour
	wantDays := []time.Duration{31 * day, 29 * day, 31 * day}
	wantLabels := []string{"2024", "Feb", "Mar"}
	for i, tick := range ticks {
		assert.Equal(t, wantDays[i], time.Duration(tick.NextMs-tick.Ms)*time.Millisecond)
		assert.Equal(t, wantLabels[i], tick.Label)
		assert.Equal(t, 1, time.UnixMilli(int64(tick.Ms)).UTC().Day())
	}
}

func TestFormatLabel(t *testing.T) {
	ms := float64(time.Date(2024, 5, 6, 14, 30, 0, 0, time.UTC).UnixMilli())
	midnight := float64(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC).UnixMilli())

	assert.Equal(t, "14:30", FormatLabel(ms, LabelMinutes, time.UTC))
	assert.Equal(t, "14:30", FormatLabel(ms, LabelHours, time.UTC))
	assert.Equal(t, "May 06", FormatLabel(midnight, LabelHours, time.UTC))
	assert.Equal(t, "Mon 06", FormatLabel(midnight, LabelDays, time.UTC))
	assert.Equal(t, "May", FormatLabel(midnight, LabelMonths, time.UTC))
}
