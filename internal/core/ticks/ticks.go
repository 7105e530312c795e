// Package ticks derives time-axis ticks from a viewport.
package ticks

import (
	"math"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/constants"
	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/viewport"
)

// ZoomLabel is the coarse granularity implied by a tick step
type ZoomLabel string

const (
	LabelMinutes ZoomLabel = "minutes"
	LabelHours   ZoomLabel = "hours"
	LabelDays    ZoomLabel = "days"
	LabelMonths  ZoomLabel = "months"
)

const msPerMinute = 60_000.0

// ChooseStep picks the step table entry closest to the requested tick density.
// Ties resolve to the earlier entry.
func ChooseStep(msPerPixel, pixelsPerTick float64) int {
	desired := msPerPixel * pixelsPerTick / msPerMinute

	best := constants.TickStepsMinutes[0]
	bestDiff := math.Abs(float64(best) - desired)
	for _, step := range constants.TickStepsMinutes[1:] {
		if diff := math.Abs(float64(step) - desired); diff < bestDiff {
			best, bestDiff = step, diff
		}
	}
	return best
}

// LabelForStep maps a step in minutes to its zoom label
func LabelForStep(stepMinutes int) ZoomLabel {
	switch {
	case stepMinutes >= 43200:
		return LabelMonths
	case stepMinutes >= 1440:
		return LabelDays
	case stepMinutes >= 60:
		return LabelHours
	default:
		return LabelMinutes
	}
}

// Subdivisions returns the minor tick fractions for a tick drawn widthPx wide
func Subdivisions(widthPx float64) []float64 {
	switch {
	case widthPx >= constants.QuarterSubdivisionPx:
		return []float64{0.25, 0.5, 0.75}
	case widthPx >= constants.HalfSubdivisionPx:
		return []float64{0.5}
	default:
		return nil
	}
}

// Generator produces the tick list for a viewport. It holds no state between calls.
type Generator struct {
	pixelsPerTick float64
	location      *time.Location
}

// NewGenerator creates a generator. Zero pixelsPerTick and nil location fall back
// to the defaults.
func NewGenerator(pixelsPerTick float64, location *time.Location) *Generator {
	if pixelsPerTick <= 0 {
		pixelsPerTick = constants.DefaultPixelsPerTick
	}
	if location == nil {
		location = time.Local
	}
	return &Generator{pixelsPerTick: pixelsPerTick, location: location}
}

// Step returns the step and label the generator would use for v
func (g *Generator) Step(v viewport.Viewport) (int, ZoomLabel) {
	step := ChooseStep(v.MsPerPixel, g.pixelsPerTick)
	return step, LabelForStep(step)
}

// Generate covers the buffered range of v with ordered, non-overlapping ticks.
// The first tick starts at or before the range start and the last one ends at
// or after the range end.
func (g *Generator) Generate(v viewport.Viewport) []model.Tick {
	startMs, endMs := v.BufferedRange()
	step, label := g.Step(v)

	var bounds []float64
	switch label {
	case LabelMonths:
		bounds = g.calendarBounds(startMs, endMs, monthAt)
	case LabelDays:
		bounds = g.calendarBounds(startMs, endMs, dayAt)
	default:
		bounds = uniformBounds(startMs, endMs, float64(step)*msPerMinute)
	}

	ticks := make([]model.Tick, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		ms, next := bounds[i], bounds[i+1]
		ticks = append(ticks, model.Tick{
			Ms:           ms,
			NextMs:       next,
			Label:        FormatLabel(ms, label, g.location),
			Subdivisions: Subdivisions((next - ms) / v.MsPerPixel),
		})
	}
	return ticks
}

// uniformBounds returns epoch-aligned boundaries stepMs apart
func uniformBounds(startMs, endMs, stepMs float64) []float64 {
	first := math.Floor(startMs/stepMs) * stepMs
	last := math.Ceil(endMs/stepMs) * stepMs
	if last <= first {
		last = first + stepMs
	}

	n := int(math.Round((last-first)/stepMs)) + 1
	bounds := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		bounds = append(bounds, first+float64(i)*stepMs)
	}
	return bounds
}

// calendarBounds walks calendar boundaries from the one at or before startMs
// until one at or after endMs. Each boundary is computed from the base date,
// so DST gaps at midnight cannot stall the walk.
func (g *Generator) calendarBounds(startMs, endMs float64, at func(base time.Time, n int) time.Time) []float64 {
	base := msToTime(startMs, g.location)
	bounds := []float64{timeToMs(at(base, 0))}
	for n := 1; bounds[len(bounds)-1] < endMs; n++ {
		if ms := timeToMs(at(base, n)); ms > bounds[len(bounds)-1] {
			bounds = append(bounds, ms)
		}
	}
	return bounds
}

// dayAt is local midnight n calendar days after base's date; days may be 23 or 25 hours long
func dayAt(base time.Time, n int) time.Time {
	y, m, d := base.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, base.Location())
}

func monthAt(base time.Time, n int) time.Time {
	y, m, _ := base.Date()
	return time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, base.Location())
}

func msToTime(ms float64, loc *time.Location) time.Time {
	return time.UnixMilli(int64(math.Floor(ms))).In(loc)
}

func timeToMs(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// FormatLabel renders the axis label of a tick at ms
func FormatLabel(ms float64, label ZoomLabel, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t := msToTime(ms, loc)
	switch label {
	case LabelMonths:
		if t.Month() == time.January {
			return t.Format("2006")
		}
		return t.Format("Jan")
	case LabelDays:
		return t.Format("Mon 02")
	case LabelHours:
		if t.Hour() == 0 && t.Minute() == 0 {
			return t.Format("Jan 02")
		}
		return t.Format("15:04")
	default:
		return t.Format("15:04")
	}
}
